// Package jsonschema compiles JSON Schema documents (draft-04, draft-06,
// draft-07) and validates JSON instances against them.
//
// Design policy:
//   - Keep only public API surface in the root package; the tree walk,
//     ref resolution, and validation engine live under internal/.
//   - A Schema is immutable after CreateSchema*/Schema.ResolvePath returns;
//     Validate/ValidateWithErrors never mutate it and may run concurrently.
//
// Typical usage:
//
//	s, err := jsonschema.CreateSchema(raw, jsonschema.WithDraft(jsonschema.Draft7))
//	ok := s.Validate(instance)
//	errs, _ := s.ValidateWithErrors(instance)
package jsonschema

import (
	"context"

	"github.com/pkg/errors"

	"github.com/basilisklabs/jsonschema/internal/compiler"
	"github.com/basilisklabs/jsonschema/internal/compileerr"
	"github.com/basilisklabs/jsonschema/internal/format"
	"github.com/basilisklabs/jsonschema/internal/interpret"
	"github.com/basilisklabs/jsonschema/internal/resolver"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

// Draft identifies a JSON Schema draft version this package understands.
type Draft = schemair.Draft

const (
	Draft4 = schemair.Draft4
	Draft6 = schemair.Draft6
	Draft7 = schemair.Draft7
)

// Schema is a compiled, immutable schema document, ready to validate
// instances or be walked by ResolvePath.
type Schema struct {
	root    *schemair.Node
	res     *resolver.Resolver
	draft   schemair.Draft
	formats *format.Registry
}

func buildCompileConfig(opts []CompileOption) *compileConfig {
	cfg := &compileConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func draftOrDefault(d *schemair.Draft) schemair.Draft {
	if d != nil {
		return *d
	}
	return schemair.Draft7
}

// buildSchema builds a Resolver whose CompileFunc recursively compiles
// anything it fetches, then compiles raw against it and drains pending
// refs via finish.
func buildSchema(ctx context.Context, raw any, cfg *compileConfig, finish func(*resolver.Resolver, context.Context) error) (*Schema, error) {
	log := cfg.logger
	if log == nil {
		log = defaultLogger
	}
	res := resolver.New(resolver.Config{
		Draft:            draftOrDefault(cfg.draft),
		SyncProvider:     cfg.syncProvider,
		AsyncProvider:    cfg.asyncProvider,
		FetchConcurrency: cfg.fetchConcurrency,
		Logger:           log,
	})
	res.SetCompileFunc(compiler.ForResolver(res))

	root, err := compiler.Compile(raw, compiler.Options{
		ExplicitDraft:  cfg.draft,
		FetchedFromURI: cfg.fetchedFromURI,
		Refs:           res,
	})
	if err != nil {
		return nil, wrapCompileError(err)
	}
	res.Insert(root.BaseURI, root)
	if err := finish(res, ctx); err != nil {
		return nil, wrapCompileError(err)
	}
	return &Schema{root: root, res: res, draft: root.Draft, formats: format.New()}, nil
}

// CreateSchema compiles raw synchronously. All external documents must
// already be reachable through a WithRefProvider; an unresolved remote
// $ref after compiling the root fails with UnresolvableRefError (§5).
func CreateSchema(raw any, opts ...CompileOption) (*Schema, error) {
	cfg := buildCompileConfig(opts)
	return buildSchema(context.Background(), raw, cfg, func(r *resolver.Resolver, ctx context.Context) error {
		return r.Finish(ctx)
	})
}

// CreateSchemaAsync compiles raw, fetching any remote $ref concurrently
// through WithAsyncRefProvider (or the default HTTP fetcher when none is
// given and a ref actually needs fetching).
func CreateSchemaAsync(ctx context.Context, raw any, opts ...CompileOption) (*Schema, error) {
	cfg := buildCompileConfig(opts)
	if cfg.asyncProvider == nil {
		fetcher := newDefaultHTTPFetcher(cfg.httpClient)
		cfg.asyncProvider = fetcher.Provide
	}
	return buildSchema(ctx, raw, cfg, func(r *resolver.Resolver, ctx context.Context) error {
		return r.Finish(ctx)
	})
}

// CreateSchemaFromURL fetches url over HTTP and compiles it asynchronously,
// a convenience composing CreateSchemaAsync with the default HTTP fetcher.
func CreateSchemaFromURL(ctx context.Context, url string, opts ...CompileOption) (*Schema, error) {
	cfg := buildCompileConfig(opts)
	fetcher := newDefaultHTTPFetcher(cfg.httpClient)
	content, ok, err := fetcher.Provide(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "jsonschema: fetching %s", url)
	}
	if !ok {
		return nil, &UnresolvableRefError{URI: url}
	}
	cfg.fetchedFromURI = url
	if cfg.asyncProvider == nil {
		cfg.asyncProvider = fetcher.Provide
	}
	return buildSchema(ctx, content, cfg, func(r *resolver.Resolver, ctx context.Context) error {
		return r.Finish(ctx)
	})
}

// Validate reports whether instance satisfies s. By default it stops at
// the first violation (fast-fail).
func (s *Schema) Validate(instance any, opts ...ValidateOption) bool {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	errs, err := interpret.Validate(s.root, instance, s.interpretOptions(cfg))
	return err == nil && len(errs) == 0
}

// ValidateWithErrors validates instance and returns every violation found.
// Unlike Validate it defaults to collecting all errors rather than
// fast-failing, since the caller is explicitly asking to see them.
func (s *Schema) ValidateWithErrors(instance any, opts ...ValidateOption) (ValidationErrors, error) {
	cfg := &validateConfig{reportMultipleErrors: true}
	for _, opt := range opts {
		opt(cfg)
	}
	errs, err := interpret.Validate(s.root, instance, s.interpretOptions(cfg))
	if err != nil {
		return nil, err
	}
	return fromInterpretErrors(errs), nil
}

func (s *Schema) interpretOptions(cfg *validateConfig) interpret.Options {
	validateFormats := true
	if cfg.validateFormats != nil {
		validateFormats = *cfg.validateFormats
	}
	return interpret.Options{
		ReportMultipleErrors: cfg.reportMultipleErrors,
		ParseJSON:            cfg.parseJSON,
		ValidateFormats:      validateFormats,
		Formats:              s.formats,
	}
}

// ResolvePath walks pointer (a JSON Pointer, with or without a leading
// "#") from the schema root, chasing a terminal $ref if it lands on one,
// and returns the located sub-schema as its own *Schema sharing this
// schema's ref map.
func (s *Schema) ResolvePath(pointer string) (*Schema, error) {
	target, err := s.res.ResolvePath(s.root, pointer)
	if err != nil {
		return nil, wrapCompileError(err)
	}
	return &Schema{root: target, res: s.res, draft: s.draft, formats: s.formats}, nil
}

func wrapCompileError(err error) error {
	switch e := err.(type) {
	case *resolver.UnresolvableRefError:
		return &UnresolvableRefError{URI: e.URI}
	case *resolver.RefCycleError:
		return &RefCycleError{Path: e.Path}
	case *compileerr.InvalidJSONError, *compileerr.InvalidKeywordShapeError,
		*compileerr.InvalidDraftConstructError, *compileerr.InterdependencyMissingError:
		return err
	default:
		return err
	}
}
