// Package interpret executes a compiled schema (internal/schemair.Node)
// against an instance value, producing a verdict and, in collect-all mode,
// a flat list of validation errors (spec §4.4).
package interpret

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/basilisklabs/jsonschema/internal/format"
	"github.com/basilisklabs/jsonschema/internal/jsonio"
	"github.com/basilisklabs/jsonschema/internal/jsonptr"
	"github.com/basilisklabs/jsonschema/internal/schemair"
	"github.com/basilisklabs/jsonschema/internal/typeinfo"
)

// Error is a single validation failure: an instance location, the schema
// location that rejected it, and a human message.
type Error struct {
	InstancePath string
	SchemaPath   string
	Message      string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", jsonptr.OrRoot(e.InstancePath), e.Message)
}

// InvalidJSONInputError reports that Options.ParseJSON was set but the
// instance string was not valid JSON.
type InvalidJSONInputError struct {
	Reason string
}

func (e *InvalidJSONInputError) Error() string {
	return "interpret: invalid JSON input: " + e.Reason
}

// Options configures one Validate call.
type Options struct {
	// ReportMultipleErrors, when false, stops at the first failure (the
	// verdict is still false, but only that one error is retained).
	ReportMultipleErrors bool
	// ParseJSON treats a string instance as JSON text to decode first.
	ParseJSON bool
	// ValidateFormats enables the format keyword. The zero value leaves it
	// off; the public jsonschema API sets it to true for every draft unless
	// the caller overrides it (§4.4).
	ValidateFormats bool
	// Formats supplies the format predicate registry. Required whenever
	// ValidateFormats is true.
	Formats *format.Registry
}

// fastFailSignal is the non-local exit used by fast-fail mode (§9 "Fast-fail
// control flow"): it never escapes Validate.
type fastFailSignal struct{ err Error }

// Validate runs root against instance. errs is empty iff the instance is
// valid. err is non-nil only for InvalidJSONInputError, a condition distinct
// from a failed validation.
func Validate(root *schemair.Node, instance any, opts Options) (errs []Error, err error) {
	if opts.ParseJSON {
		if s, ok := instance.(string); ok {
			decoded, _, derr := jsonio.DecodeBytes([]byte(s), jsonio.Options{})
			if derr != nil {
				return nil, &InvalidJSONInputError{Reason: derr.Error()}
			}
			instance = decoded
		}
	}

	st := &state{opts: opts}
	if !opts.ReportMultipleErrors {
		defer func() {
			if r := recover(); r != nil {
				sig, ok := r.(fastFailSignal)
				if !ok {
					panic(r)
				}
				errs = []Error{sig.err}
			}
		}()
	}
	st.node(root, instance, jsonptr.NewPath(), jsonptr.NewPath())
	return st.errs, nil
}

type state struct {
	opts Options
	errs []Error
}

func (st *state) fail(instPath, schemaPath jsonptr.Path, format string, args ...any) {
	e := Error{InstancePath: instPath.String(), SchemaPath: schemaPath.String(), Message: fmt.Sprintf(format, args...)}
	st.errs = append(st.errs, e)
	if !st.opts.ReportMultipleErrors {
		panic(fastFailSignal{err: e})
	}
}

// dryRun validates n in a scratch state that always collects every error
// (so callers can inspect pass/fail without triggering the outer state's
// fast-fail exit, and without instance errors from a failed branch leaking
// into the outer error list unless the caller chooses to append them).
func (st *state) dryRun(n *schemair.Node, instance any, instPath, schemaPath jsonptr.Path) (bool, []Error) {
	scratch := &state{opts: Options{ReportMultipleErrors: true, ValidateFormats: st.opts.ValidateFormats, Formats: st.opts.Formats}}
	scratch.node(n, instance, instPath, schemaPath)
	return len(scratch.errs) == 0, scratch.errs
}

// runAll validates every node in list against instance, contributing their
// errors directly to st, and returns how many failed.
func (st *state) runAll(list []*schemair.Node, keyword string, instance any, instPath, schemaPath jsonptr.Path) int {
	failed := 0
	for i, sub := range list {
		before := len(st.errs)
		st.node(sub, instance, instPath, schemaPath.Field(keyword).Index(i))
		if len(st.errs) > before {
			failed++
		}
	}
	return failed
}

// node implements the per-node dispatch order from §4.4. The steps are
// numbered to match the spec; order affects only error locality.
func (st *state) node(n *schemair.Node, instance any, instPath, schemaPath jsonptr.Path) {
	if n == nil {
		return
	}

	// 1. chase refs (already fully resolved by the time compilation finishes)
	if n.Ref != "" && n.ResolvedRef != nil {
		n = n.ResolvedRef
	}

	// 2. boolean schemas
	if n.IsBoolean {
		if !n.BoolValue {
			st.fail(instPath, schemaPath, "schema always fails")
		}
		return
	}

	// 3. if/then/else
	if n.If != nil {
		ok, _ := st.dryRun(n.If, instance, instPath, schemaPath.Field("if"))
		branch, label := n.Then, "then"
		if !ok {
			branch, label = n.Else, "else"
		}
		if branch != nil {
			before := len(st.errs)
			st.node(branch, instance, instPath, schemaPath.Field(label))
			if len(st.errs) > before {
				st.fail(instPath, schemaPath.Field(label), "%s branch violated", label)
			}
		}
	}

	// 4. type
	if len(n.Types) > 0 {
		allowIntegral := n.Draft >= schemair.Draft6
		matched := false
		for _, want := range n.Types {
			if typeinfo.Matches(want, instance, allowIntegral) {
				matched = true
				break
			}
		}
		if !matched {
			st.fail(instPath, schemaPath.Field("type"), "expected type %s, got %s", strings.Join(n.Types, " or "), typeinfo.Of(instance))
		}
	}

	// 5. const
	if n.HasConst && !typeinfo.DeepEqual(instance, n.Const) {
		st.fail(instPath, schemaPath.Field("const"), "does not equal const value")
	}

	// 6. enum
	if n.HasEnum {
		match := false
		for _, e := range n.Enum {
			if typeinfo.DeepEqual(instance, e) {
				match = true
				break
			}
		}
		if !match {
			st.fail(instPath, schemaPath.Field("enum"), "does not match any enum value")
		}
	}

	// 7-9. type-specific branches
	switch v := instance.(type) {
	case []any:
		st.array(n, v, instPath, schemaPath)
	case string:
		st.string(n, v, instPath, schemaPath)
	case json.Number:
		st.number(n, v, instPath, schemaPath)
	}

	// 10. allOf
	if len(n.AllOf) > 0 {
		if failed := st.runAll(n.AllOf, "allOf", instance, instPath, schemaPath); failed > 0 {
			st.fail(instPath, schemaPath.Field("allOf"), "allOf: %d of %d subschemas failed", failed, len(n.AllOf))
		}
	}

	// 11. anyOf
	if len(n.AnyOf) > 0 {
		anyPassed := false
		var inner []Error
		for i, sub := range n.AnyOf {
			ok, errs := st.dryRun(sub, instance, instPath, schemaPath.Field("anyOf").Index(i))
			if ok {
				anyPassed = true
			}
			inner = append(inner, errs...)
		}
		if !anyPassed {
			st.fail(instPath, schemaPath.Field("anyOf"), "anyOf: no subschema matched")
			st.errs = append(st.errs, inner...)
		}
	}

	// 12. oneOf
	if len(n.OneOf) > 0 {
		matches := 0
		var inner []Error
		for i, sub := range n.OneOf {
			ok, errs := st.dryRun(sub, instance, instPath, schemaPath.Field("oneOf").Index(i))
			if ok {
				matches++
			} else {
				inner = append(inner, errs...)
			}
		}
		if matches != 1 {
			st.fail(instPath, schemaPath.Field("oneOf"), "oneOf: expected exactly one match, got %d", matches)
			st.errs = append(st.errs, inner...)
		}
	}

	// 13. not
	if n.Not != nil {
		if ok, _ := st.dryRun(n.Not, instance, instPath, schemaPath.Field("not")); ok {
			st.fail(instPath, schemaPath.Field("not"), "not: subschema matched but must not")
		}
	}

	// 14. format
	if n.Format != "" && st.opts.ValidateFormats {
		if s, ok := instance.(string); ok && format.Recognized(n.Draft, n.Format) {
			if !st.opts.Formats.Check(n.Format, s) {
				st.fail(instPath, schemaPath.Field("format"), "does not match format %q", n.Format)
			}
		}
	}

	// 15. object branch
	if m, ok := instance.(map[string]any); ok {
		st.object(n, m, instPath, schemaPath)
	}
}

func (st *state) array(n *schemair.Node, items []any, instPath, schemaPath jsonptr.Path) {
	count := len(items)

	if n.HasItemsTuple {
		k := len(n.ItemsTuple)
		for i, item := range items {
			if i < k {
				st.node(n.ItemsTuple[i], item, instPath.Index(i), schemaPath.Field("items").Index(i))
				continue
			}
			switch {
			case n.AdditionalItems.AlwaysFalse():
				st.fail(instPath.Index(i), schemaPath.Field("additionalItems"), "additionalItems false")
			case n.AdditionalItems.Set && !n.AdditionalItems.IsBool:
				st.node(n.AdditionalItems.Schema, item, instPath.Index(i), schemaPath.Field("additionalItems"))
			}
		}
	} else if n.Items != nil {
		for i, item := range items {
			st.node(n.Items, item, instPath.Index(i), schemaPath.Field("items"))
		}
	}

	if n.HasMinItems && count < n.MinItems {
		st.fail(instPath, schemaPath.Field("minItems"), "array has %d items, want at least %d", count, n.MinItems)
	}
	if n.HasMaxItems && count > n.MaxItems {
		st.fail(instPath, schemaPath.Field("maxItems"), "array has %d items, want at most %d", count, n.MaxItems)
	}

	if n.UniqueItems {
		if i, j := typeinfo.UniqueIndexPair(items); i >= 0 {
			st.fail(instPath, schemaPath.Field("uniqueItems"), "items %d and %d are equal", i, j)
		}
	}

	if n.Contains != nil {
		found := false
		for i, item := range items {
			if ok, _ := st.dryRun(n.Contains, item, instPath.Index(i), schemaPath.Field("contains")); ok {
				found = true
				break
			}
		}
		if !found {
			st.fail(instPath, schemaPath.Field("contains"), "no item matches contains")
		}
	}
}

func (st *state) string(n *schemair.Node, s string, instPath, schemaPath jsonptr.Path) {
	length := utf8.RuneCountInString(s)
	if n.HasMinLength && length < n.MinLength {
		st.fail(instPath, schemaPath.Field("minLength"), "string has length %d, want at least %d", length, n.MinLength)
	}
	if n.HasMaxLength && length > n.MaxLength {
		st.fail(instPath, schemaPath.Field("maxLength"), "string has length %d, want at most %d", length, n.MaxLength)
	}
	if n.CompiledPattern != nil && !n.CompiledPattern.MatchString(s) {
		st.fail(instPath, schemaPath.Field("pattern"), "does not match pattern %q", n.Pattern)
	}
}

func (st *state) number(n *schemair.Node, num json.Number, instPath, schemaPath jsonptr.Path) {
	if n.ExclusiveMaximum.Set && n.ExclusiveMaximum.IsNumber {
		if cmpNumber(num, n.ExclusiveMaximum.Number) >= 0 {
			st.fail(instPath, schemaPath.Field("exclusiveMaximum"), "%s is not less than exclusive maximum %s", num, n.ExclusiveMaximum.Number)
		}
	} else if n.HasMaximum {
		exclusive := n.ExclusiveMaximum.Set && n.ExclusiveMaximum.BoolFlag
		c := cmpNumber(num, n.Maximum)
		if (exclusive && c >= 0) || (!exclusive && c > 0) {
			st.fail(instPath, schemaPath.Field("maximum"), "%s exceeds maximum %s", num, n.Maximum)
		}
	}

	if n.ExclusiveMinimum.Set && n.ExclusiveMinimum.IsNumber {
		if cmpNumber(num, n.ExclusiveMinimum.Number) <= 0 {
			st.fail(instPath, schemaPath.Field("exclusiveMinimum"), "%s is not greater than exclusive minimum %s", num, n.ExclusiveMinimum.Number)
		}
	} else if n.HasMinimum {
		exclusive := n.ExclusiveMinimum.Set && n.ExclusiveMinimum.BoolFlag
		c := cmpNumber(num, n.Minimum)
		if (exclusive && c <= 0) || (!exclusive && c < 0) {
			st.fail(instPath, schemaPath.Field("minimum"), "%s is below minimum %s", num, n.Minimum)
		}
	}

	if n.HasMultipleOf && !multipleOfOK(num, n.MultipleOf) {
		st.fail(instPath, schemaPath.Field("multipleOf"), "%s is not a multiple of %s", num, n.MultipleOf)
	}
}

func cmpNumber(a, b json.Number) int {
	ar, aok := new(big.Rat).SetString(string(a))
	br, bok := new(big.Rat).SetString(string(b))
	if !aok || !bok {
		return strings.Compare(string(a), string(b))
	}
	return ar.Cmp(br)
}

func isIntegerLiteral(n json.Number) bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// multipleOfOK follows §4.4.c exactly: integer operands use exact integer
// modulus; otherwise the check is done in floating point, hazards included.
func multipleOfOK(instance, multipleOf json.Number) bool {
	if isIntegerLiteral(instance) && isIntegerLiteral(multipleOf) {
		bi, ok1 := new(big.Int).SetString(string(instance), 10)
		bm, ok2 := new(big.Int).SetString(string(multipleOf), 10)
		if !ok1 || !ok2 || bm.Sign() == 0 {
			return false
		}
		return new(big.Int).Mod(bi, bm).Sign() == 0
	}
	fi, err1 := instance.Float64()
	fm, err2 := multipleOf.Float64()
	if err1 != nil || err2 != nil || fm == 0 {
		return false
	}
	q := fi / fm
	return q == math.Trunc(q)
}

func (st *state) object(n *schemair.Node, m map[string]any, instPath, schemaPath jsonptr.Path) {
	count := len(m)
	if n.HasMinProperties && count < n.MinProperties {
		st.fail(instPath, schemaPath.Field("minProperties"), "object has %d properties, want at least %d", count, n.MinProperties)
	}
	if n.HasMaxProperties && count > n.MaxProperties {
		st.fail(instPath, schemaPath.Field("maxProperties"), "object has %d properties, want at most %d", count, n.MaxProperties)
	}

	for _, name := range n.Required {
		if _, ok := m[name]; !ok {
			st.fail(instPath, schemaPath.Field("required"), "missing required property %q", name)
		}
	}

	for _, key := range typeinfo.SortedKeys(m) {
		value := m[key]
		keyPath := instPath.Field(key)

		if n.PropertyNames != nil {
			st.node(n.PropertyNames, key, keyPath, schemaPath.Field("propertyNames"))
		}

		covered := false
		if sub, ok := n.Properties[key]; ok {
			st.node(sub, value, keyPath, schemaPath.Field("properties").Field(key))
			covered = true
		}
		for _, ps := range n.PatternProperties {
			if ps.Compiled.MatchString(key) {
				st.node(ps.Schema, value, keyPath, schemaPath.Field("patternProperties").Field(ps.Pattern))
				covered = true
			}
		}
		if !covered {
			switch {
			case n.AdditionalProperties.AlwaysFalse():
				st.fail(keyPath, schemaPath.Field("additionalProperties"), "unallowed additional property %q", key)
			case n.AdditionalProperties.Set && !n.AdditionalProperties.IsBool:
				st.node(n.AdditionalProperties.Schema, value, keyPath, schemaPath.Field("additionalProperties"))
			}
		}
	}

	for _, dep := range sortedDepKeys(n.PropertyDependencies) {
		if _, ok := m[dep]; !ok {
			continue
		}
		for _, need := range n.PropertyDependencies[dep] {
			if _, ok := m[need]; !ok {
				st.fail(instPath, schemaPath.Field("dependencies").Field(dep), "property %q requires %q", dep, need)
			}
		}
	}
	for _, dep := range sortedSchemaDepKeys(n.SchemaDependencies) {
		if _, ok := m[dep]; !ok {
			continue
		}
		st.node(n.SchemaDependencies[dep], m, instPath, schemaPath.Field("dependencies").Field(dep))
	}
}

func sortedDepKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func sortedSchemaDepKeys(m map[string]*schemair.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
