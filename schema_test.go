package jsonschema_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonschema "github.com/basilisklabs/jsonschema"
	"github.com/basilisklabs/jsonschema/internal/jsonio"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	v, _, err := jsonio.DecodeBytes([]byte(src), jsonio.Options{})
	require.NoError(t, err)
	return v
}

func TestCreateSchema_ValidateBasic(t *testing.T) {
	s, err := jsonschema.CreateSchema(decode(t, `{"type":"object","required":["name"]}`))
	require.NoError(t, err)

	assert.True(t, s.Validate(decode(t, `{"name":"x"}`)))
	assert.False(t, s.Validate(decode(t, `{}`)))
}

func TestCreateSchema_ExplicitDraftOverridesSchemaKeyword(t *testing.T) {
	s, err := jsonschema.CreateSchema(
		decode(t, `{"$schema":"http://json-schema.org/draft-04/schema#","type":"integer"}`),
		jsonschema.WithDraft(jsonschema.Draft6),
	)
	require.NoError(t, err)
	assert.True(t, s.Validate(decode(t, `3.0`)), "draft-06 accepts an integral float for type:integer")
}

func TestValidateWithErrors_CollectsAllByDefault(t *testing.T) {
	s, err := jsonschema.CreateSchema(decode(t, `{"type":"object","required":["a","b"]}`))
	require.NoError(t, err)

	errs, err := s.ValidateWithErrors(decode(t, `{}`))
	require.NoError(t, err)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs.Error(), "a")
}

func TestValidateWithErrors_ReportMultipleErrorsFalseStopsEarly(t *testing.T) {
	s, err := jsonschema.CreateSchema(decode(t, `{"type":"object","required":["a","b"]}`))
	require.NoError(t, err)

	errs, err := s.ValidateWithErrors(decode(t, `{}`), jsonschema.WithReportMultipleErrors(false))
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}

func TestValidate_ParseJSONOption(t *testing.T) {
	s, err := jsonschema.CreateSchema(decode(t, `{"type":"object"}`))
	require.NoError(t, err)

	assert.True(t, s.Validate(`{"a":1}`, jsonschema.WithParseJSON(true)))

	errs, err := s.ValidateWithErrors("not json", jsonschema.WithParseJSON(true))
	assert.Nil(t, errs)
	require.Error(t, err)
	var invalidJSON *jsonschema.InvalidJSONInputError
	assert.ErrorAs(t, err, &invalidJSON)
}

func TestWithRefProvider_SatisfiesRemoteRef(t *testing.T) {
	other := decode(t, `{"type":"string"}`)
	provider := jsonschema.RefProviderFunc(func(uri string) (any, bool) {
		if uri == "http://example.com/other.json" {
			return other, true
		}
		return nil, false
	})

	s, err := jsonschema.CreateSchema(
		decode(t, `{"$ref":"http://example.com/other.json"}`),
		jsonschema.WithRefProvider(provider),
	)
	require.NoError(t, err)

	assert.True(t, s.Validate("hello"))
	assert.False(t, s.Validate(decode(t, `5`)))
}

func TestCreateSchema_UnresolvableRefError(t *testing.T) {
	_, err := jsonschema.CreateSchema(decode(t, `{"$ref":"http://example.com/missing.json"}`))
	require.Error(t, err)
	var target *jsonschema.UnresolvableRefError
	assert.ErrorAs(t, err, &target)
}

func TestCreateSchema_RefCycleError(t *testing.T) {
	raw := decode(t, `{
		"definitions": {
			"a": {"$ref": "#/definitions/b"},
			"b": {"$ref": "#/definitions/a"}
		},
		"$ref": "#/definitions/a"
	}`)
	_, err := jsonschema.CreateSchema(raw)
	require.Error(t, err)
	var target *jsonschema.RefCycleError
	assert.ErrorAs(t, err, &target)
}

func TestCreateSchemaAsync_FetchesViaAsyncProvider(t *testing.T) {
	other := decode(t, `{"type":"number"}`)
	provider := jsonschema.AsyncRefProviderFunc(func(ctx context.Context, uri string) (any, bool, error) {
		if uri == "http://example.com/num.json" {
			return other, true, nil
		}
		return nil, false, nil
	})

	s, err := jsonschema.CreateSchemaAsync(
		context.Background(),
		decode(t, `{"$ref":"http://example.com/num.json"}`),
		jsonschema.WithAsyncRefProvider(provider),
	)
	require.NoError(t, err)
	assert.True(t, s.Validate(decode(t, `3`)))
	assert.False(t, s.Validate("x"))
}

func TestCreateSchemaFromURL_FetchesRootOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"boolean"}`))
	}))
	defer srv.Close()

	s, err := jsonschema.CreateSchemaFromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, s.Validate(decode(t, `true`)))
	assert.False(t, s.Validate(decode(t, `1`)))
}

func TestResolvePath_ReturnsIndependentlyValidatableSchema(t *testing.T) {
	s, err := jsonschema.CreateSchema(decode(t, `{
		"properties": {"age": {"type": "integer", "minimum": 0}}
	}`))
	require.NoError(t, err)

	age, err := s.ResolvePath("/properties/age")
	require.NoError(t, err)
	assert.True(t, age.Validate(decode(t, `5`)))
	assert.False(t, age.Validate(decode(t, `-1`)))
}
