package jsonschema

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/basilisklabs/jsonschema/internal/schemair"
)

// ValidateOption configures a single Validate/ValidateWithErrors call (§6,
// §4.7).
type ValidateOption func(*validateConfig)

type validateConfig struct {
	reportMultipleErrors bool
	parseJSON            bool
	validateFormats      *bool
}

// WithReportMultipleErrors makes Validate/ValidateWithErrors collect every
// violation instead of stopping at the first one. Default: collect all for
// ValidateWithErrors, fast-fail for Validate.
func WithReportMultipleErrors(v bool) ValidateOption {
	return func(c *validateConfig) { c.reportMultipleErrors = v }
}

// WithParseJSON treats a string instance as JSON text to decode before
// validating it.
func WithParseJSON(v bool) ValidateOption {
	return func(c *validateConfig) { c.parseJSON = v }
}

// WithValidateFormats overrides whether the format keyword is enforced.
// Every draft this package supports defaults to true.
func WithValidateFormats(v bool) ValidateOption {
	return func(c *validateConfig) { c.validateFormats = &v }
}

// CompileOption configures a single CreateSchema/CreateSchemaAsync call
// (§6, §4.7).
type CompileOption func(*compileConfig)

type compileConfig struct {
	draft            *schemair.Draft
	fetchedFromURI   string
	syncProvider     func(uri string) (content any, ok bool)
	asyncProvider    func(ctx context.Context, uri string) (content any, ok bool, err error)
	logger           logrus.FieldLogger
	httpClient       *http.Client
	fetchConcurrency int
}

// WithDraft pins the draft explicitly, overriding the document's own
// $schema and the default-draft-07 fallback.
func WithDraft(d Draft) CompileOption {
	return func(c *compileConfig) { c.draft = &d }
}

// WithFetchedFromURI records the URI the document was fetched from, used as
// the root's base URI when it declares no $id (§3's "effective base URI").
func WithFetchedFromURI(uri string) CompileOption {
	return func(c *compileConfig) { c.fetchedFromURI = uri }
}

// WithRefProvider installs a synchronous reference provider: looked up by
// absolute URI, returning raw schema JSON, a bool schema, or an
// already-compiled *Schema (whose root node is used as-is).
func WithRefProvider(p RefProvider) CompileOption {
	return func(c *compileConfig) {
		if p == nil {
			c.syncProvider = nil
			return
		}
		c.syncProvider = func(uri string) (any, bool) {
			content, ok := p.Provide(uri)
			if s, isSchema := content.(*Schema); isSchema && s != nil {
				content = s.root
			}
			return content, ok
		}
	}
}

// WithAsyncRefProvider installs an asynchronous reference provider for
// CreateSchemaAsync / CreateSchemaFromURL.
func WithAsyncRefProvider(p AsyncRefProvider) CompileOption {
	return func(c *compileConfig) {
		if p == nil {
			c.asyncProvider = nil
			return
		}
		c.asyncProvider = func(ctx context.Context, uri string) (any, bool, error) {
			content, ok, err := p.Provide(ctx, uri)
			if s, isSchema := content.(*Schema); isSchema && s != nil {
				content = s.root
			}
			return content, ok, err
		}
	}
}

// WithLogger overrides the default package logger for this compile only.
func WithLogger(l logrus.FieldLogger) CompileOption {
	return func(c *compileConfig) { c.logger = l }
}

// WithHTTPClient overrides the *http.Client used by the default HTTP
// fetcher behind CreateSchemaFromURL and async compiles with no explicit
// AsyncRefProvider.
func WithHTTPClient(client *http.Client) CompileOption {
	return func(c *compileConfig) { c.httpClient = client }
}

// WithFetchConcurrency bounds how many remote $refs are fetched in
// parallel during async compile. Default 8.
func WithFetchConcurrency(n int) CompileOption {
	return func(c *compileConfig) { c.fetchConcurrency = n }
}
