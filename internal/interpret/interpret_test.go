package interpret_test

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilisklabs/jsonschema/internal/compiler"
	"github.com/basilisklabs/jsonschema/internal/format"
	"github.com/basilisklabs/jsonschema/internal/interpret"
	"github.com/basilisklabs/jsonschema/internal/jsonio"
	"github.com/basilisklabs/jsonschema/internal/resolver"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

func mustDecode(t *testing.T, src string) any {
	t.Helper()
	v, _, err := jsonio.DecodeBytes([]byte(src), jsonio.Options{})
	require.NoError(t, err)
	return v
}

func mustCompile(t *testing.T, schemaJSON string, draft schemair.Draft) *schemair.Node {
	t.Helper()
	raw := mustDecode(t, schemaJSON)
	res := resolver.New(resolver.Config{Draft: draft})
	res.SetCompileFunc(compiler.ForResolver(res))
	root, err := compiler.Compile(raw, compiler.Options{ExplicitDraft: &draft, Refs: res})
	require.NoError(t, err)
	res.Insert(root.BaseURI, root)
	require.NoError(t, res.Finish(context.Background()))
	return root
}

func validOptions() interpret.Options {
	return interpret.Options{ReportMultipleErrors: true, ValidateFormats: true, Formats: format.New()}
}

func TestInteger_AcceptsWholeNumberOnlyFromDraft06(t *testing.T) {
	root07 := mustCompile(t, `{"type":"integer"}`, schemair.Draft7)
	errs, err := interpret.Validate(root07, json.Number("3.0"), validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs, "draft-07 accepts an integral float for type:integer")

	root04 := mustCompile(t, `{"type":"integer"}`, schemair.Draft4)
	errs, err = interpret.Validate(root04, json.Number("3.0"), validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs, "draft-04 rejects a fractional literal for type:integer")
}

func TestOneOf_BothBranchesMatch_Rejected(t *testing.T) {
	root := mustCompile(t, `{"oneOf":[{"type":"string"},{"maxLength":3}]}`, schemair.Draft7)
	errs, err := interpret.Validate(root, "hi", validOptions())
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "oneOf")
}

func TestTupleItems_AdditionalItemsFalse(t *testing.T) {
	root := mustCompile(t, `{"type":"array","items":[{"type":"integer"},{"type":"string"}],"additionalItems":false}`, schemair.Draft7)
	instance := mustDecode(t, `[1,"a",true]`)
	errs, err := interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.InstancePath == "/2" {
			found = true
		}
	}
	assert.True(t, found, "expected a violation at /2 for the disallowed additional item")
}

func TestIfThenElse(t *testing.T) {
	root := mustCompile(t, `{"if":{"type":"integer"},"then":{"minimum":0},"else":{"type":"string"}}`, schemair.Draft7)

	errs, err := interpret.Validate(root, json.Number("-1"), validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs, "then branch (minimum:0) should reject -1")

	errs, err = interpret.Validate(root, "foo", validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs, "else branch (type:string) should accept \"foo\"")

	errs, err = interpret.Validate(root, json.Number("1.5"), validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs, "1.5 is neither an integer (if) nor a string (else)")
}

func TestRefToDefinition(t *testing.T) {
	root := mustCompile(t, `{"definitions":{"n":{"type":"number"}},"$ref":"#/definitions/n"}`, schemair.Draft7)

	errs, err := interpret.Validate(root, "x", validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs)

	errs, err = interpret.Validate(root, json.Number("7"), validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestUniqueItems_ReportsFirstOffendingPair(t *testing.T) {
	root := mustCompile(t, `{"type":"array","uniqueItems":true}`, schemair.Draft7)
	instance := mustDecode(t, `[1,2,2,3]`)
	errs, err := interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "items 1 and 2")
}

func TestMultipleOf_IntegerExact(t *testing.T) {
	root := mustCompile(t, `{"type":"integer","multipleOf":3}`, schemair.Draft7)

	errs, err := interpret.Validate(root, json.Number("9"), validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = interpret.Validate(root, json.Number("10"), validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs)
}

func TestRequiredProperties(t *testing.T) {
	root := mustCompile(t, `{"type":"object","required":["a","b"]}`, schemair.Draft7)

	instance := mustDecode(t, `{"a":1}`)
	errs, err := interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `"b"`)

	instance = mustDecode(t, `{"a":1,"b":2}`)
	errs, err = interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestAdditionalProperties_False(t *testing.T) {
	root := mustCompile(t, `{"type":"object","properties":{"a":{"type":"string"}},"additionalProperties":false}`, schemair.Draft7)
	instance := mustDecode(t, `{"a":"x","b":1}`)
	errs, err := interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/b", errs[0].InstancePath)
}

func TestDependencies_PropertyList(t *testing.T) {
	root := mustCompile(t, `{"dependencies":{"credit_card":["billing_address"]}}`, schemair.Draft7)

	instance := mustDecode(t, `{"credit_card":"1234"}`)
	errs, err := interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs)

	instance = mustDecode(t, `{"credit_card":"1234","billing_address":"x"}`)
	errs, err = interpret.Validate(root, instance, validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestFastFail_StopsAtFirstError(t *testing.T) {
	root := mustCompile(t, `{"type":"object","required":["a","b","c"]}`, schemair.Draft7)
	errs, err := interpret.Validate(root, mustDecode(t, `{}`), interpret.Options{ReportMultipleErrors: false})
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}

func TestBooleanSchema(t *testing.T) {
	trueRoot := mustCompile(t, `true`, schemair.Draft7)
	errs, err := interpret.Validate(trueRoot, mustDecode(t, `"anything"`), validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs)

	falseRoot := mustCompile(t, `false`, schemair.Draft7)
	errs, err = interpret.Validate(falseRoot, mustDecode(t, `"anything"`), validOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, errs)
}

func TestStringLength_CountsCodepoints(t *testing.T) {
	root := mustCompile(t, `{"type":"string","minLength":2,"maxLength":2}`, schemair.Draft7)
	errs, err := interpret.Validate(root, "é™", validOptions())
	require.NoError(t, err)
	assert.Empty(t, errs, "two Unicode scalar values, regardless of UTF-8 byte length")
}

func TestParseJSON_InvalidInputError(t *testing.T) {
	root := mustCompile(t, `{"type":"object"}`, schemair.Draft7)
	_, err := interpret.Validate(root, "{not json", interpret.Options{ParseJSON: true, ValidateFormats: true, Formats: format.New()})
	require.Error(t, err)
	var invalidJSON *interpret.InvalidJSONInputError
	assert.ErrorAs(t, err, &invalidJSON)
}
