// Package schemair defines the compiled, in-memory representation of a JSON
// Schema node: keyword values, child schemas, compiled regexes, and the
// identity/draft metadata the resolver and interpreter need. A Node is built
// once by internal/compiler; the resolver then fills in ResolvedRef, and
// after that it is never mutated again; validation only reads it.
package schemair

import (
	"regexp"

	json "github.com/goccy/go-json"
)

// Draft identifies which JSON Schema draft governs a node's keyword set and
// semantics.
type Draft int

const (
	Draft4 Draft = iota
	Draft6
	Draft7
)

// String renders the draft the way $schema URIs spell it.
func (d Draft) String() string {
	switch d {
	case Draft4:
		return "draft-04"
	case Draft6:
		return "draft-06"
	case Draft7:
		return "draft-07"
	default:
		return "unknown"
	}
}

// SchemaURI returns the canonical $schema meta-schema URI for d.
func (d Draft) SchemaURI() string {
	switch d {
	case Draft4:
		return "http://json-schema.org/draft-04/schema#"
	case Draft6:
		return "http://json-schema.org/draft-06/schema#"
	case Draft7:
		return "http://json-schema.org/draft-07/schema#"
	default:
		return ""
	}
}

// SchemaOrBool is the "schema OR bool" sum type used by additionalItems,
// additionalProperties and (pre-draft-06) nothing else: a tagged union
// rather than an `any` field, so callers never type-switch at call sites.
type SchemaOrBool struct {
	Set       bool // false means the keyword was absent; treat as BoolValue=true
	IsBool    bool
	BoolValue bool
	Schema    *Node
}

// AlwaysTrue reports whether an absent-or-true additionalItems/additionalProperties
// passes everything, independent of whether it was ever set.
func (s SchemaOrBool) AlwaysTrue() bool {
	return !s.Set || (s.IsBool && s.BoolValue)
}

// AlwaysFalse reports the `false` boolean form.
func (s SchemaOrBool) AlwaysFalse() bool {
	return s.Set && s.IsBool && !s.BoolValue
}

// Bound represents exclusiveMinimum/exclusiveMaximum, which is a bool in
// draft-04 (paired with minimum/maximum) and a number in draft-06/07.
type Bound struct {
	Set      bool
	IsNumber bool // draft-06/07 numeric form
	Number   json.Number
	BoolFlag bool // draft-04 boolean form
}

// PatternSchema pairs a patternProperties regex with its compiled form and
// target schema.
type PatternSchema struct {
	Pattern  string
	Compiled *regexp.Regexp
	Schema   *Node
}

// Field is a property-name/schema pair; the compiler records them in sorted
// key order so iteration is stable (the document's own declaration order is
// not kept); lookups still go through Properties for O(1) access.
type Field struct {
	Name   string
	Schema *Node
}

// Node is either a boolean-form schema or a structured node carrying the
// full draft-04/06/07 keyword surface. Exactly one of IsBoolean or the
// structured fields below is meaningful for a given Node.
type Node struct {
	// Identity
	IsBoolean  bool
	BoolValue  bool // meaningful iff IsBoolean
	ID         string
	Ref        string // raw, pre-resolution $ref text
	ResolvedRef *Node  // filled in by the resolver once $ref resolves
	Path       string // JSON Pointer from this node's document root
	BaseURI    string // effective base URI (§4.2 base-URI inheritance)
	Draft      Draft
	Parent     *Node

	// Annotations
	Title             string
	Description       string
	Comment           string
	Default           any
	HasDefault        bool
	Examples          []any
	ReadOnly          bool
	WriteOnly         bool
	ContentMediaType  string
	ContentEncoding   string

	// Type constraints
	Types    []string // ordered, allow-any-match
	Const    any
	HasConst bool
	Enum     []any
	HasEnum  bool
	Format   string

	// Numeric
	HasMinimum       bool
	Minimum          json.Number
	HasMaximum       bool
	Maximum          json.Number
	ExclusiveMinimum Bound
	ExclusiveMaximum Bound
	HasMultipleOf    bool
	MultipleOf       json.Number

	// String
	HasMinLength    bool
	MinLength       int
	HasMaxLength    bool
	MaxLength       int
	Pattern         string
	CompiledPattern *regexp.Regexp

	// Array
	Items           *Node
	ItemsTuple      []*Node
	HasItemsTuple   bool
	AdditionalItems SchemaOrBool
	HasMinItems     bool
	MinItems        int
	HasMaxItems     bool
	MaxItems        int
	UniqueItems     bool
	Contains        *Node

	// Object
	PropertyOrder         []Field
	Properties            map[string]*Node
	PatternProperties     []PatternSchema
	AdditionalProperties  SchemaOrBool
	PropertyNames         *Node
	Required              []string
	HasMinProperties      bool
	MinProperties         int
	HasMaxProperties      bool
	MaxProperties         int
	PropertyDependencies  map[string][]string
	SchemaDependencies    map[string]*Node

	// Composition
	AllOf []*Node
	AnyOf []*Node
	OneOf []*Node
	Not   *Node
	If    *Node
	Then  *Node
	Else  *Node

	// Custom holds sub-schemas discovered under keywords the compiler does
	// not recognize, keyed by the pointer segment they were found at
	// (§4.1: "recursively examined for sub-schemas so refs buried under
	// custom keywords still participate in resolution").
	Custom map[string]*Node
}

// Child implements the "keyword-specific accessor table" from §4.2:
// resolve_path walks a JSON Pointer one segment at a time via repeated calls
// to Child. It understands every keyword whose value is itself a schema or
// schema container.
func (n *Node) Child(segment string) (*Node, bool) {
	if n == nil || n.IsBoolean {
		return nil, false
	}
	switch segment {
	case "items":
		if n.HasItemsTuple {
			return nil, false // numeric index required; see ChildIndex
		}
		if n.Items != nil {
			return n.Items, true
		}
		return nil, false
	case "additionalItems":
		if n.AdditionalItems.Set && !n.AdditionalItems.IsBool {
			return n.AdditionalItems.Schema, true
		}
		return nil, false
	case "additionalProperties":
		if n.AdditionalProperties.Set && !n.AdditionalProperties.IsBool {
			return n.AdditionalProperties.Schema, true
		}
		return nil, false
	case "propertyNames":
		if n.PropertyNames != nil {
			return n.PropertyNames, true
		}
		return nil, false
	case "contains":
		if n.Contains != nil {
			return n.Contains, true
		}
		return nil, false
	case "not":
		if n.Not != nil {
			return n.Not, true
		}
		return nil, false
	case "if":
		if n.If != nil {
			return n.If, true
		}
		return nil, false
	case "then":
		if n.Then != nil {
			return n.Then, true
		}
		return nil, false
	case "else":
		if n.Else != nil {
			return n.Else, true
		}
		return nil, false
	default:
		if c, ok := n.Custom[segment]; ok {
			return c, true
		}
		return nil, false
	}
}

// ChildIndex resolves a numeric pointer segment against items/allOf/anyOf/oneOf
// tuples, as required when a $ref targets e.g. "#/items/1".
func (n *Node) ChildIndex(container string, i int) (*Node, bool) {
	if n == nil || n.IsBoolean {
		return nil, false
	}
	pick := func(list []*Node) (*Node, bool) {
		if i < 0 || i >= len(list) {
			return nil, false
		}
		return list[i], true
	}
	switch container {
	case "items":
		if n.HasItemsTuple {
			return pick(n.ItemsTuple)
		}
		return nil, false
	case "allOf":
		return pick(n.AllOf)
	case "anyOf":
		return pick(n.AnyOf)
	case "oneOf":
		return pick(n.OneOf)
	default:
		return nil, false
	}
}

// ChildProperty resolves "properties/<key>", "patternProperties/<pattern>",
// "definitions/<key>" and "$defs/<key>"-shaped segments, the containers whose
// child lookup is by object key rather than fixed keyword name or numeric
// index.
func (n *Node) ChildProperty(container, key string) (*Node, bool) {
	if n == nil || n.IsBoolean {
		return nil, false
	}
	switch container {
	case "properties":
		c, ok := n.Properties[key]
		return c, ok
	case "patternProperties":
		for _, p := range n.PatternProperties {
			if p.Pattern == key {
				return p.Schema, true
			}
		}
		return nil, false
	case "definitions", "$defs":
		c, ok := n.Custom[container+"/"+key]
		return c, ok
	default:
		return nil, false
	}
}
