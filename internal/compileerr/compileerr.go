// Package compileerr defines the closed vocabulary of compile-time errors
// (spec §7). It lives apart from internal/compiler so the root package can
// alias these types into its public API without an import cycle back into
// the compiler.
package compileerr

import "fmt"

// InvalidJSONError reports a document that is not valid JSON, or whose
// top-level shape is not a schema (object or boolean).
type InvalidJSONError struct {
	Reason string
}

func (e *InvalidJSONError) Error() string { return "jsonschema: invalid JSON: " + e.Reason }

// InvalidKeywordShapeError reports a keyword whose value does not match the
// shape the draft requires (e.g. "required" not a list of strings).
type InvalidKeywordShapeError struct {
	Keyword string
	Value   any
	Path    string
}

func (e *InvalidKeywordShapeError) Error() string {
	return fmt.Sprintf("jsonschema: invalid shape for %q at %s: %#v", e.Keyword, pathOrRoot(e.Path), e.Value)
}

// InvalidDraftConstructError reports a construct that a draft forbids, e.g.
// a boolean schema under draft-04.
type InvalidDraftConstructError struct {
	Construct string
	Draft     string
	Path      string
}

func (e *InvalidDraftConstructError) Error() string {
	return fmt.Sprintf("jsonschema: %s is not valid in %s (at %s)", e.Construct, e.Draft, pathOrRoot(e.Path))
}

// InterdependencyMissingError reports a draft-04 exclusiveMinimum/Maximum
// present without its paired minimum/maximum.
type InterdependencyMissingError struct {
	Needs   string
	Missing string
	Path    string
}

func (e *InterdependencyMissingError) Error() string {
	return fmt.Sprintf("jsonschema: %q requires %q at %s", e.Needs, e.Missing, pathOrRoot(e.Path))
}

func pathOrRoot(p string) string {
	if p == "" {
		return "# (root)"
	}
	return p
}
