// Package jsonptr builds and escapes RFC 6901 JSON Pointers. Both the
// instance-side validator and the schema-side compiler/resolver use it to
// keep path construction (and its escaping rules) in one place.
package jsonptr

import (
	"strconv"
	"strings"
)

var escaper = strings.NewReplacer("~", "~0", "/", "~1")

// Escape escapes a single reference token per RFC 6901 (~ -> ~0, / -> ~1).
func Escape(token string) string { return escaper.Replace(token) }

// Join appends a field name to a pointer, escaping it first.
func Join(base, field string) string {
	return base + "/" + Escape(field)
}

// JoinIndex appends an array index to a pointer.
func JoinIndex(base string, i int) string {
	return base + "/" + strconv.Itoa(i)
}

// Root is the empty-string root pointer used throughout the public API.
const Root = ""

// Split breaks a JSON Pointer fragment (with or without a leading "/", and
// with or without a leading "#") into its unescaped reference tokens.
func Split(pointer string) []string {
	p := strings.TrimPrefix(pointer, "#")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, seg := range parts {
		if seg == "" {
			continue
		}
		out = append(out, Unescape(seg))
	}
	return out
}

// Unescape reverses Escape (~1 -> /, ~0 -> ~), applied in the RFC 6901 order.
func Unescape(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
}

// OrRoot renders p, substituting a human label for the empty root pointer.
func OrRoot(p string) string {
	if p == "" {
		return "# (root)"
	}
	return p
}

// Path is an immutable, chainable pointer builder, mirroring the way the
// interpreter threads an instance_path or schema_path through recursive calls
// without ever mutating a shared buffer.
type Path struct {
	parts []string
}

// NewPath returns the root path.
func NewPath() Path { return Path{} }

// Field returns a new path with name appended (escaped).
func (p Path) Field(name string) Path {
	next := make([]string, len(p.parts)+1)
	copy(next, p.parts)
	next[len(p.parts)] = Escape(name)
	return Path{parts: next}
}

// Index returns a new path with an array index appended.
func (p Path) Index(i int) Path {
	return p.Field(strconv.Itoa(i))
}

// String renders the pointer; the root path renders as "".
func (p Path) String() string {
	if len(p.parts) == 0 {
		return ""
	}
	return "/" + strings.Join(p.parts, "/")
}
