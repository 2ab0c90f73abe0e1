// Package typeinfo recognizes the seven JSON Schema primitive types against
// a dynamic value and implements the structural (deep) equality used by
// const/enum/uniqueItems.
package typeinfo

import (
	"math/big"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Type is one of the seven JSON Schema type names.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
	Number  Type = "number"
	String  Type = "string"
	Integer Type = "integer"
)

// Of reports the primitive JSON Schema type of v. It never returns Integer;
// callers wanting integer-vs-number distinctions use IsInteger alongside Of.
func Of(v any) Type {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case map[string]any:
		return Object
	case []any:
		return Array
	case json.Number, float64, float32, int, int64:
		return Number
	case string:
		return String
	default:
		return Null
	}
}

// Matches reports whether v satisfies the named schema type, applying the
// draft-06/07 rule that "integer" accepts any number whose value is
// mathematically whole (allowIntegralNumbers = true selects that rule; false applies
// the stricter draft-04 rule where only json.Number literals without a
// fraction/exponent count as integer).
func Matches(want string, v any, allowIntegralNumbers bool) bool {
	actual := Of(v)
	switch Type(want) {
	case Integer:
		if actual != Number {
			return false
		}
		return IsInteger(v, allowIntegralNumbers)
	case Number:
		return actual == Number
	default:
		return string(actual) == want
	}
}

// IsInteger reports whether a JSON number value is mathematically integral.
// When allowIntegralNumbers is false, only literals with no '.' or exponent
// count (draft-04's stricter type:"integer" semantics); when true, a number
// such as 3.0 also counts (draft-06/07).
func IsInteger(v any, allowIntegralNumbers bool) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	s := string(n)
	hasFraction := strings.ContainsAny(s, ".eE")
	if !hasFraction {
		return true
	}
	if !allowIntegralNumbers {
		return false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return false
	}
	return r.IsInt()
}

// DeepEqual implements JSON structural equality: recursive on arrays/objects,
// numeric equality compares mathematical value (not text or float64 bit
// pattern), and NaN never appears in valid JSON so no special case is needed.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case json.Number:
		return numEqual(av, b)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !DeepEqual(v, ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numEqual(a json.Number, b any) bool {
	bn, ok := b.(json.Number)
	if !ok {
		return false
	}
	ar, aok := new(big.Rat).SetString(string(a))
	br, bok := new(big.Rat).SetString(string(bn))
	if !aok || !bok {
		return string(a) == string(bn)
	}
	return ar.Cmp(br) == 0
}

// UniqueIndexPair returns the first pair (i, j) with i<j whose elements are
// deep-equal, or (-1, -1) if all elements are distinct.
func UniqueIndexPair(items []any) (int, int) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if DeepEqual(items[i], items[j]) {
				return i, j
			}
		}
	}
	return -1, -1
}

// SortedKeys returns an object's keys in sorted order, used wherever
// deterministic iteration order matters (error reporting, ref-map dumps).
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
