package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilisklabs/jsonschema/internal/compileerr"
	"github.com/basilisklabs/jsonschema/internal/compiler"
	"github.com/basilisklabs/jsonschema/internal/jsonio"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	v, _, err := jsonio.DecodeBytes([]byte(src), jsonio.Options{})
	require.NoError(t, err)
	return v
}

func compile(t *testing.T, src string, draft schemair.Draft) (*schemair.Node, error) {
	t.Helper()
	return compiler.Compile(decode(t, src), compiler.Options{ExplicitDraft: &draft})
}

func TestBooleanSchema_RejectedUnderDraft04(t *testing.T) {
	_, err := compile(t, `true`, schemair.Draft4)
	require.Error(t, err)
	var target *compileerr.InvalidDraftConstructError
	assert.ErrorAs(t, err, &target)
}

func TestBooleanSchema_AcceptedUnderDraft06And07(t *testing.T) {
	for _, draft := range []schemair.Draft{schemair.Draft6, schemair.Draft7} {
		n, err := compile(t, `false`, draft)
		require.NoError(t, err)
		assert.True(t, n.IsBoolean)
		assert.False(t, n.BoolValue)
	}
}

func TestExclusiveMaximum_RequiresMaximumUnderDraft04(t *testing.T) {
	_, err := compile(t, `{"exclusiveMaximum":true}`, schemair.Draft4)
	require.Error(t, err)
	var target *compileerr.InterdependencyMissingError
	assert.ErrorAs(t, err, &target)

	n, err := compile(t, `{"maximum":10,"exclusiveMaximum":true}`, schemair.Draft4)
	require.NoError(t, err)
	assert.True(t, n.ExclusiveMaximum.BoolFlag)
}

func TestExclusiveMaximum_NumericFormDraft06DoesNotRequireMaximum(t *testing.T) {
	n, err := compile(t, `{"exclusiveMaximum":10}`, schemair.Draft6)
	require.NoError(t, err)
	assert.True(t, n.ExclusiveMaximum.IsNumber)
	assert.False(t, n.HasMaximum)
}

func TestRequired_Draft04MustBeNonEmptyAndUnique(t *testing.T) {
	_, err := compile(t, `{"required":[]}`, schemair.Draft4)
	require.Error(t, err)

	_, err = compile(t, `{"required":["a","a"]}`, schemair.Draft4)
	require.Error(t, err)

	n, err := compile(t, `{"required":["a","b"]}`, schemair.Draft4)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.Required)
}

func TestRequired_Draft07AllowsEmpty(t *testing.T) {
	n, err := compile(t, `{"required":[]}`, schemair.Draft7)
	require.NoError(t, err)
	assert.Empty(t, n.Required)
}

func TestDraftSelection_ExplicitWinsOverSchemaKeyword(t *testing.T) {
	raw := decode(t, `{"$schema":"http://json-schema.org/draft-04/schema#"}`)
	draft6 := schemair.Draft6
	n, err := compiler.Compile(raw, compiler.Options{ExplicitDraft: &draft6})
	require.NoError(t, err)
	assert.Equal(t, schemair.Draft6, n.Draft)
}

func TestDraftSelection_FromSchemaKeyword(t *testing.T) {
	raw := decode(t, `{"$schema":"http://json-schema.org/draft-04/schema#"}`)
	n, err := compiler.Compile(raw, compiler.Options{})
	require.NoError(t, err)
	assert.Equal(t, schemair.Draft4, n.Draft)
}

func TestDraftSelection_DefaultsToDraft07(t *testing.T) {
	raw := decode(t, `{}`)
	n, err := compiler.Compile(raw, compiler.Options{})
	require.NoError(t, err)
	assert.Equal(t, schemair.Draft7, n.Draft)
}

func TestUnknownKeyword_SubSchemaDiscoveredButFailuresSwallowed(t *testing.T) {
	n, err := compile(t, `{"x-custom":{"type":"string"}}`, schemair.Draft7)
	require.NoError(t, err)
	require.Contains(t, n.Custom, "x-custom")
	assert.Equal(t, []string{"string"}, n.Custom["x-custom"].Types)

	// A custom keyword whose value isn't schema-shaped is silently ignored,
	// not a compile error.
	n, err = compile(t, `{"x-custom":42}`, schemair.Draft7)
	require.NoError(t, err)
	assert.NotContains(t, n.Custom, "x-custom")
}

func TestMultipleOf_RejectsNonPositive(t *testing.T) {
	_, err := compile(t, `{"multipleOf":0}`, schemair.Draft7)
	require.Error(t, err)

	_, err = compile(t, `{"multipleOf":-1}`, schemair.Draft7)
	require.Error(t, err)
}

func TestPattern_InvalidRegexIsCompileError(t *testing.T) {
	_, err := compile(t, `{"pattern":"("}`, schemair.Draft7)
	require.Error(t, err)
}
