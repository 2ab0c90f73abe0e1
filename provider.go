package jsonschema

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/basilisklabs/jsonschema/internal/jsonio"
)

// RefProvider is the synchronous reference provider interface (§6): given
// an absolute URI, it returns raw schema JSON (as an `any` tree, typically
// from internal/jsonio), a bool schema, or an already-compiled *Schema.
// ok=false means "not found"; two lookups are attempted per ref, the base
// URI then the base URI with "#" appended.
type RefProvider interface {
	Provide(uri string) (content any, ok bool)
}

// RefProviderFunc adapts a function to RefProvider.
type RefProviderFunc func(uri string) (any, bool)

func (f RefProviderFunc) Provide(uri string) (any, bool) { return f(uri) }

// AsyncRefProvider is the async-mode equivalent, used by CreateSchemaAsync
// and CreateSchemaFromURL.
type AsyncRefProvider interface {
	Provide(ctx context.Context, uri string) (content any, ok bool, err error)
}

// AsyncRefProviderFunc adapts a function to AsyncRefProvider.
type AsyncRefProviderFunc func(ctx context.Context, uri string) (any, bool, error)

func (f AsyncRefProviderFunc) Provide(ctx context.Context, uri string) (any, bool, error) {
	return f(ctx, uri)
}

// defaultHTTPFetcher backs CreateSchemaFromURL and any async compile that
// supplies no AsyncRefProvider: it fetches uri over HTTP and decodes the
// body as JSON.
type defaultHTTPFetcher struct {
	client *http.Client
}

func newDefaultHTTPFetcher(client *http.Client) *defaultHTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &defaultHTTPFetcher{client: client}
}

func (f *defaultHTTPFetcher) Provide(ctx context.Context, uri string) (any, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode >= 300 {
		return nil, false, &httpStatusError{URI: uri, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	decoded, _, err := jsonio.DecodeBytes(body, jsonio.Options{})
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

type httpStatusError struct {
	URI        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return "jsonschema: fetching " + e.URI + " returned an unexpected status"
}
