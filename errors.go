package jsonschema

import (
	"fmt"
	"strings"

	"github.com/basilisklabs/jsonschema/internal/compileerr"
	"github.com/basilisklabs/jsonschema/internal/interpret"
)

// Compile-time error types (§7). Each aliases the internal/compileerr value
// that actually carries the diagnostic, so callers can errors.As against a
// specific failure kind without reaching into an internal package.
type (
	InvalidJSONError            = compileerr.InvalidJSONError
	InvalidKeywordShapeError    = compileerr.InvalidKeywordShapeError
	InvalidDraftConstructError  = compileerr.InvalidDraftConstructError
	InterdependencyMissingError = compileerr.InterdependencyMissingError
)

// UnresolvableRefError reports a $ref that neither the document nor any
// configured provider could satisfy.
type UnresolvableRefError struct {
	URI string
}

func (e *UnresolvableRefError) Error() string { return "jsonschema: unresolvable ref " + e.URI }

// RefCycleError reports a $ref chain that revisits a location it already
// passed through.
type RefCycleError struct {
	Path string
}

func (e *RefCycleError) Error() string { return "jsonschema: ref cycle at " + e.Path }

// InvalidJSONInputError reports that ParseJSON was requested but the
// instance string was not valid JSON.
type InvalidJSONInputError = interpret.InvalidJSONInputError

// ValidationError is a single validation failure: an instance location, the
// schema location that rejected it, and a human message (§6).
type ValidationError struct {
	InstancePath string
	SchemaPath   string
	Message      string
}

// Error renders as "<instance_path or '# (root)'>: <message>" per §6.
func (e ValidationError) Error() string {
	path := e.InstancePath
	if path == "" {
		path = "# (root)"
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

// ValidationErrors is a collection of ValidationError that implements error,
// mirroring the teacher's Issues.Error() "first few, then a count" style.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(errs)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[i].Error())
	}
	if len(errs) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(errs))
	}
	return b.String()
}

func fromInterpretErrors(in []interpret.Error) ValidationErrors {
	if in == nil {
		return nil
	}
	out := make(ValidationErrors, len(in))
	for i, e := range in {
		out[i] = ValidationError{InstancePath: e.InstancePath, SchemaPath: e.SchemaPath, Message: e.Message}
	}
	return out
}
