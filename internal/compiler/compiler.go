// Package compiler walks a raw JSON document and produces a
// internal/schemair.Node tree (spec §4.3), validating keyword shapes per
// draft and recording $refs into the resolver as it goes.
package compiler

import (
	"regexp"

	json "github.com/goccy/go-json"

	"github.com/basilisklabs/jsonschema/internal/compileerr"
	"github.com/basilisklabs/jsonschema/internal/jsonptr"
	"github.com/basilisklabs/jsonschema/internal/resolver"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

// RefRecorder is the subset of *resolver.Resolver the compiler needs; tests
// can supply a stub without spinning up a real resolver.
type RefRecorder interface {
	Insert(baseURI string, n *schemair.Node)
	AddRef(node *schemair.Node, fromPath string)
}

// Options configures a single compile pass.
type Options struct {
	// ExplicitDraft, when non-nil, wins over the document's own $schema.
	ExplicitDraft *schemair.Draft
	// FetchedFromURI is this document's fetched-from base URI (spec §3's
	// "document's fetched-from URI" fallback for base-URI inheritance).
	FetchedFromURI string
	Refs           RefRecorder
}

// Compile builds a Node tree from raw. It never performs I/O; remote $refs
// are only recorded (via Options.Refs), not followed.
func Compile(raw any, opt Options) (*schemair.Node, error) {
	draft := selectDraft(raw, opt.ExplicitDraft)
	c := &compileState{draft: draft, refs: opt.Refs}
	return c.node(raw, "", opt.FetchedFromURI, nil)
}

// ForResolver adapts Compile to the resolver.CompileFunc shape, so a
// *resolver.Resolver can call back into the compiler when it fetches a
// remote schema document.
func ForResolver(refs RefRecorder) func(raw any, draft schemair.Draft, fetchedFromURI string) (*schemair.Node, error) {
	return func(raw any, draft schemair.Draft, fetchedFromURI string) (*schemair.Node, error) {
		return Compile(raw, Options{ExplicitDraft: &draft, FetchedFromURI: fetchedFromURI, Refs: refs})
	}
}

func selectDraft(raw any, explicit *schemair.Draft) schemair.Draft {
	if explicit != nil {
		return *explicit
	}
	if m, ok := raw.(map[string]any); ok {
		if s, ok := m["$schema"].(string); ok {
			switch {
			case containsDraft(s, "draft-04"):
				return schemair.Draft4
			case containsDraft(s, "draft-06"):
				return schemair.Draft6
			case containsDraft(s, "draft-07"):
				return schemair.Draft7
			}
		}
	}
	return schemair.Draft7
}

func containsDraft(schemaURI, marker string) bool {
	for i := 0; i+len(marker) <= len(schemaURI); i++ {
		if schemaURI[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

type compileState struct {
	draft schemair.Draft
	refs  RefRecorder
}

// node compiles raw into a Node. ancestorBase is the base URI inherited
// from the containing schema; parent links the node into its containment
// chain (used by nothing at compile time but kept for interpreter/debug use).
func (c *compileState) node(raw any, path, ancestorBase string, parent *schemair.Node) (*schemair.Node, error) {
	switch v := raw.(type) {
	case bool:
		if c.draft == schemair.Draft4 {
			return nil, &compileerr.InvalidDraftConstructError{Construct: "boolean schema", Draft: c.draft.String(), Path: path}
		}
		return &schemair.Node{IsBoolean: true, BoolValue: v, Draft: c.draft, Path: path, BaseURI: ancestorBase, Parent: parent}, nil
	case map[string]any:
		return c.object(v, path, ancestorBase, parent)
	default:
		return nil, &compileerr.InvalidJSONError{Reason: "schema must be a JSON object or boolean"}
	}
}

func (c *compileState) object(v map[string]any, path, ancestorBase string, parent *schemair.Node) (*schemair.Node, error) {
	n := &schemair.Node{
		Draft:                c.draft,
		Path:                 path,
		Parent:               parent,
		Properties:           map[string]*schemair.Node{},
		PropertyDependencies: map[string][]string{},
		SchemaDependencies:   map[string]*schemair.Node{},
		Custom:               map[string]*schemair.Node{},
	}

	idKeyword := "$id"
	if c.draft == schemair.Draft4 {
		idKeyword = "id"
	}
	seen := map[string]bool{idKeyword: true}
	if idRaw, ok := v[idKeyword]; ok {
		id, ok := idRaw.(string)
		if !ok {
			return nil, &compileerr.InvalidKeywordShapeError{Keyword: idKeyword, Value: idRaw, Path: path}
		}
		n.ID = id
	}
	n.BaseURI = resolver.EffectiveBaseURI(n.ID, ancestorBase)
	if n.ID != "" && c.refs != nil {
		c.refs.Insert(n.BaseURI, n)
	}
	childBase := n.BaseURI

	if refRaw, ok := v["$ref"]; ok {
		seen["$ref"] = true
		ref, ok := refRaw.(string)
		if !ok {
			return nil, &compileerr.InvalidKeywordShapeError{Keyword: "$ref", Value: refRaw, Path: path}
		}
		n.Ref = ref
		if c.refs != nil {
			c.refs.AddRef(n, path)
		}
	}

	if err := c.annotations(v, n, seen); err != nil {
		return nil, err
	}
	if err := c.typeConstraints(v, n, path, seen); err != nil {
		return nil, err
	}
	if err := c.numeric(v, n, path, seen); err != nil {
		return nil, err
	}
	if err := c.stringKeywords(v, n, path, seen); err != nil {
		return nil, err
	}
	if err := c.array(v, n, path, childBase, seen); err != nil {
		return nil, err
	}
	if err := c.object_(v, n, path, childBase, seen); err != nil {
		return nil, err
	}
	if err := c.composition(v, n, path, childBase, seen); err != nil {
		return nil, err
	}
	c.custom(v, n, path, childBase, seen)

	return n, nil
}

func (c *compileState) annotations(v map[string]any, n *schemair.Node, seen map[string]bool) error {
	str := func(key string, dst *string) error {
		seen[key] = true
		raw, ok := v[key]
		if !ok {
			return nil
		}
		s, ok := raw.(string)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: key, Value: raw, Path: n.Path}
		}
		*dst = s
		return nil
	}
	if err := str("title", &n.Title); err != nil {
		return err
	}
	if err := str("description", &n.Description); err != nil {
		return err
	}
	if err := str("$comment", &n.Comment); err != nil {
		return err
	}
	if err := str("contentMediaType", &n.ContentMediaType); err != nil {
		return err
	}
	if err := str("contentEncoding", &n.ContentEncoding); err != nil {
		return err
	}
	seen["default"] = true
	if raw, ok := v["default"]; ok {
		n.Default = raw
		n.HasDefault = true
	}
	seen["examples"] = true
	if raw, ok := v["examples"]; ok {
		arr, ok := raw.([]any)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "examples", Value: raw, Path: n.Path}
		}
		n.Examples = arr
	}
	seen["readOnly"] = true
	if raw, ok := v["readOnly"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "readOnly", Value: raw, Path: n.Path}
		}
		n.ReadOnly = b
	}
	seen["writeOnly"] = true
	if raw, ok := v["writeOnly"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "writeOnly", Value: raw, Path: n.Path}
		}
		n.WriteOnly = b
	}
	return nil
}

func (c *compileState) typeConstraints(v map[string]any, n *schemair.Node, path string, seen map[string]bool) error {
	seen["type"] = true
	if raw, ok := v["type"]; ok {
		switch t := raw.(type) {
		case string:
			n.Types = []string{t}
		case []any:
			for _, item := range t {
				s, ok := item.(string)
				if !ok {
					return &compileerr.InvalidKeywordShapeError{Keyword: "type", Value: raw, Path: path}
				}
				n.Types = append(n.Types, s)
			}
		default:
			return &compileerr.InvalidKeywordShapeError{Keyword: "type", Value: raw, Path: path}
		}
	}

	seen["const"] = true
	if raw, ok := v["const"]; ok {
		n.Const = raw
		n.HasConst = true
	}

	seen["enum"] = true
	if raw, ok := v["enum"]; ok {
		arr, ok := raw.([]any)
		if !ok || len(arr) == 0 {
			return &compileerr.InvalidKeywordShapeError{Keyword: "enum", Value: raw, Path: path}
		}
		n.Enum = arr
		n.HasEnum = true
	}

	seen["format"] = true
	if raw, ok := v["format"]; ok {
		s, ok := raw.(string)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "format", Value: raw, Path: path}
		}
		n.Format = s
	}
	return nil
}

func asNumber(key string, v map[string]any, path string, seen map[string]bool) (json.Number, bool, error) {
	seen[key] = true
	raw, ok := v[key]
	if !ok {
		return "", false, nil
	}
	num, ok := raw.(json.Number)
	if !ok {
		return "", false, &compileerr.InvalidKeywordShapeError{Keyword: key, Value: raw, Path: path}
	}
	return num, true, nil
}

func asNonNegativeInt(key string, v map[string]any, path string, seen map[string]bool) (int, bool, error) {
	num, ok, err := asNumber(key, v, path, seen)
	if err != nil || !ok {
		return 0, ok, err
	}
	f, err := num.Float64()
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, false, &compileerr.InvalidKeywordShapeError{Keyword: key, Value: num, Path: path}
	}
	return int(f), true, nil
}

func (c *compileState) numeric(v map[string]any, n *schemair.Node, path string, seen map[string]bool) error {
	min, hasMin, err := asNumber("minimum", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMinimum, n.Minimum = hasMin, min

	max, hasMax, err := asNumber("maximum", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMaximum, n.Maximum = hasMax, max

	mult, hasMult, err := asNumber("multipleOf", v, path, seen)
	if err != nil {
		return err
	}
	if hasMult {
		if f, ferr := mult.Float64(); ferr != nil || f <= 0 {
			return &compileerr.InvalidKeywordShapeError{Keyword: "multipleOf", Value: mult, Path: path}
		}
	}
	n.HasMultipleOf, n.MultipleOf = hasMult, mult

	seen["exclusiveMinimum"] = true
	if raw, ok := v["exclusiveMinimum"]; ok {
		b, err := c.bound("exclusiveMinimum", raw, path)
		if err != nil {
			return err
		}
		n.ExclusiveMinimum = b
	}
	seen["exclusiveMaximum"] = true
	if raw, ok := v["exclusiveMaximum"]; ok {
		b, err := c.bound("exclusiveMaximum", raw, path)
		if err != nil {
			return err
		}
		n.ExclusiveMaximum = b
	}

	if c.draft == schemair.Draft4 {
		if n.ExclusiveMinimum.Set && n.ExclusiveMinimum.BoolFlag && !n.HasMinimum {
			return &compileerr.InterdependencyMissingError{Needs: "exclusiveMinimum", Missing: "minimum", Path: path}
		}
		if n.ExclusiveMaximum.Set && n.ExclusiveMaximum.BoolFlag && !n.HasMaximum {
			return &compileerr.InterdependencyMissingError{Needs: "exclusiveMaximum", Missing: "maximum", Path: path}
		}
	}
	return nil
}

func (c *compileState) bound(keyword string, raw any, path string) (schemair.Bound, error) {
	if c.draft == schemair.Draft4 {
		b, ok := raw.(bool)
		if !ok {
			return schemair.Bound{}, &compileerr.InvalidKeywordShapeError{Keyword: keyword, Value: raw, Path: path}
		}
		return schemair.Bound{Set: true, BoolFlag: b}, nil
	}
	num, ok := raw.(json.Number)
	if !ok {
		return schemair.Bound{}, &compileerr.InvalidKeywordShapeError{Keyword: keyword, Value: raw, Path: path}
	}
	return schemair.Bound{Set: true, IsNumber: true, Number: num}, nil
}

func (c *compileState) stringKeywords(v map[string]any, n *schemair.Node, path string, seen map[string]bool) error {
	minLen, hasMinLen, err := asNonNegativeInt("minLength", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMinLength, n.MinLength = hasMinLen, minLen

	maxLen, hasMaxLen, err := asNonNegativeInt("maxLength", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMaxLength, n.MaxLength = hasMaxLen, maxLen

	seen["pattern"] = true
	if raw, ok := v["pattern"]; ok {
		s, ok := raw.(string)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "pattern", Value: raw, Path: path}
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return &compileerr.InvalidKeywordShapeError{Keyword: "pattern", Value: raw, Path: path}
		}
		n.Pattern = s
		n.CompiledPattern = re
	}
	return nil
}

func (c *compileState) array(v map[string]any, n *schemair.Node, path, childBase string, seen map[string]bool) error {
	seen["items"] = true
	if raw, ok := v["items"]; ok {
		if tuple, ok := raw.([]any); ok {
			n.HasItemsTuple = true
			for i, item := range tuple {
				child, err := c.node(item, jsonptr.JoinIndex(path+"/items", i), childBase, n)
				if err != nil {
					return err
				}
				n.ItemsTuple = append(n.ItemsTuple, child)
			}
		} else {
			child, err := c.node(raw, path+"/items", childBase, n)
			if err != nil {
				return err
			}
			n.Items = child
		}
	}

	seen["additionalItems"] = true
	if raw, ok := v["additionalItems"]; ok {
		sb, err := c.schemaOrBool(raw, path+"/additionalItems", childBase, n)
		if err != nil {
			return err
		}
		n.AdditionalItems = sb
	}

	minItems, hasMinItems, err := asNonNegativeInt("minItems", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMinItems, n.MinItems = hasMinItems, minItems

	maxItems, hasMaxItems, err := asNonNegativeInt("maxItems", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMaxItems, n.MaxItems = hasMaxItems, maxItems

	seen["uniqueItems"] = true
	if raw, ok := v["uniqueItems"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "uniqueItems", Value: raw, Path: path}
		}
		n.UniqueItems = b
	}

	seen["contains"] = true
	if raw, ok := v["contains"]; ok {
		child, err := c.node(raw, path+"/contains", childBase, n)
		if err != nil {
			return err
		}
		n.Contains = child
	}
	return nil
}

func (c *compileState) schemaOrBool(raw any, path, childBase string, parent *schemair.Node) (schemair.SchemaOrBool, error) {
	if b, ok := raw.(bool); ok {
		return schemair.SchemaOrBool{Set: true, IsBool: true, BoolValue: b}, nil
	}
	child, err := c.node(raw, path, childBase, parent)
	if err != nil {
		return schemair.SchemaOrBool{}, err
	}
	return schemair.SchemaOrBool{Set: true, Schema: child}, nil
}

func (c *compileState) object_(v map[string]any, n *schemair.Node, path, childBase string, seen map[string]bool) error {
	seen["properties"] = true
	if raw, ok := v["properties"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "properties", Value: raw, Path: path}
		}
		for _, key := range sortedKeys(m) {
			child, err := c.node(m[key], jsonptr.Join(path+"/properties", key), childBase, n)
			if err != nil {
				return err
			}
			n.Properties[key] = child
			n.PropertyOrder = append(n.PropertyOrder, schemair.Field{Name: key, Schema: child})
		}
	}

	seen["patternProperties"] = true
	if raw, ok := v["patternProperties"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "patternProperties", Value: raw, Path: path}
		}
		for _, pattern := range sortedKeys(m) {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return &compileerr.InvalidKeywordShapeError{Keyword: "patternProperties", Value: pattern, Path: path}
			}
			child, err := c.node(m[pattern], jsonptr.Join(path+"/patternProperties", pattern), childBase, n)
			if err != nil {
				return err
			}
			n.PatternProperties = append(n.PatternProperties, schemair.PatternSchema{Pattern: pattern, Compiled: re, Schema: child})
		}
	}

	seen["additionalProperties"] = true
	if raw, ok := v["additionalProperties"]; ok {
		sb, err := c.schemaOrBool(raw, path+"/additionalProperties", childBase, n)
		if err != nil {
			return err
		}
		n.AdditionalProperties = sb
	}

	seen["propertyNames"] = true
	if raw, ok := v["propertyNames"]; ok {
		child, err := c.node(raw, path+"/propertyNames", childBase, n)
		if err != nil {
			return err
		}
		n.PropertyNames = child
	}

	seen["required"] = true
	if raw, ok := v["required"]; ok {
		arr, ok := raw.([]any)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "required", Value: raw, Path: path}
		}
		names := make([]string, 0, len(arr))
		unique := map[string]bool{}
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				return &compileerr.InvalidKeywordShapeError{Keyword: "required", Value: raw, Path: path}
			}
			if unique[s] && c.draft == schemair.Draft4 {
				return &compileerr.InvalidKeywordShapeError{Keyword: "required", Value: raw, Path: path}
			}
			unique[s] = true
			names = append(names, s)
		}
		if c.draft == schemair.Draft4 && len(names) == 0 {
			return &compileerr.InvalidKeywordShapeError{Keyword: "required", Value: raw, Path: path}
		}
		n.Required = names
	}

	minProps, hasMinProps, err := asNonNegativeInt("minProperties", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMinProperties, n.MinProperties = hasMinProps, minProps

	maxProps, hasMaxProps, err := asNonNegativeInt("maxProperties", v, path, seen)
	if err != nil {
		return err
	}
	n.HasMaxProperties, n.MaxProperties = hasMaxProps, maxProps

	seen["dependencies"] = true
	if raw, ok := v["dependencies"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return &compileerr.InvalidKeywordShapeError{Keyword: "dependencies", Value: raw, Path: path}
		}
		for _, key := range sortedKeys(m) {
			switch dep := m[key].(type) {
			case []any:
				names := make([]string, 0, len(dep))
				for _, item := range dep {
					s, ok := item.(string)
					if !ok {
						return &compileerr.InvalidKeywordShapeError{Keyword: "dependencies", Value: raw, Path: path}
					}
					names = append(names, s)
				}
				n.PropertyDependencies[key] = names
			default:
				child, err := c.node(dep, jsonptr.Join(path+"/dependencies", key), childBase, n)
				if err != nil {
					return err
				}
				n.SchemaDependencies[key] = child
			}
		}
	}
	return nil
}

func (c *compileState) composition(v map[string]any, n *schemair.Node, path, childBase string, seen map[string]bool) error {
	list := func(key string) ([]*schemair.Node, error) {
		seen[key] = true
		raw, ok := v[key]
		if !ok {
			return nil, nil
		}
		arr, ok := raw.([]any)
		if !ok || len(arr) == 0 {
			return nil, &compileerr.InvalidKeywordShapeError{Keyword: key, Value: raw, Path: path}
		}
		out := make([]*schemair.Node, 0, len(arr))
		for i, item := range arr {
			child, err := c.node(item, jsonptr.JoinIndex(path+"/"+key, i), childBase, n)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	}
	var err error
	if n.AllOf, err = list("allOf"); err != nil {
		return err
	}
	if n.AnyOf, err = list("anyOf"); err != nil {
		return err
	}
	if n.OneOf, err = list("oneOf"); err != nil {
		return err
	}

	single := func(key string) (*schemair.Node, error) {
		seen[key] = true
		raw, ok := v[key]
		if !ok {
			return nil, nil
		}
		return c.node(raw, path+"/"+key, childBase, n)
	}
	if n.Not, err = single("not"); err != nil {
		return err
	}
	if n.If, err = single("if"); err != nil {
		return err
	}
	if n.Then, err = single("then"); err != nil {
		return err
	}
	if n.Else, err = single("else"); err != nil {
		return err
	}
	return nil
}

// custom recursively examines every keyword the compiler above didn't handle
// (§4.1): if the value parses as a schema, index it under its pointer so
// buried $refs still resolve; failures are swallowed rather than propagated.
func (c *compileState) custom(v map[string]any, n *schemair.Node, path, childBase string, seen map[string]bool) {
	for _, key := range sortedKeys(v) {
		if seen[key] {
			continue
		}
		child, err := c.node(v[key], jsonptr.Join(path, key), childBase, n)
		if err != nil {
			continue
		}
		n.Custom[key] = child
		if m, ok := v[key].(map[string]any); ok {
			for _, subKey := range sortedKeys(m) {
				if grand, ok := child.Custom[subKey]; ok {
					n.Custom[key+"/"+subKey] = grand
				} else if grand, ok := child.Properties[subKey]; ok {
					n.Custom[key+"/"+subKey] = grand
				}
			}
		}
	}
}

func sortedKeys(m map[string]any) []string {
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
