// Package jsonio decodes JSON text into the dynamic value shapes the rest of
// the module operates on: nil, bool, json.Number, string, []any and
// map[string]any. It is built on goccy/go-json, a drop-in replacement for
// encoding/json, so large schema documents and instances decode quickly
// while still preserving number literals via UseNumber semantics.
package jsonio

import (
	"bytes"
	"io"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/basilisklabs/jsonschema/internal/jsonptr"
)

// DuplicateKeyPolicy controls how repeated object keys are treated while decoding.
type DuplicateKeyPolicy int

const (
	// DuplicateIgnore accepts the last occurrence of a repeated key, same as encoding/json.
	DuplicateIgnore DuplicateKeyPolicy = iota
	// DuplicateWarn decodes normally but records a DuplicateKeyIssue per repeat.
	DuplicateWarn
	// DuplicateError aborts decoding with ErrDuplicateKey on the first repeat.
	DuplicateError
)

// DuplicateKeyIssue records one repeated object key encountered during decode.
type DuplicateKeyIssue struct {
	Path string // JSON Pointer of the object that carries the duplicate.
	Key  string
}

// Options configures Decode/DecodeBytes.
type Options struct {
	// MaxDepth caps object/array nesting; 0 means unlimited.
	MaxDepth int
	// OnDuplicateKey controls duplicate-key handling (default DuplicateIgnore).
	OnDuplicateKey DuplicateKeyPolicy
}

// ErrDuplicateKey is returned when OnDuplicateKey is DuplicateError.
type ErrDuplicateKey struct {
	Path string
	Key  string
}

func (e *ErrDuplicateKey) Error() string {
	return "jsonio: duplicate key " + strconv.Quote(e.Key) + " at " + jsonptr.OrRoot(e.Path)
}

// ErrMaxDepthExceeded is returned when nesting exceeds Options.MaxDepth.
type ErrMaxDepthExceeded struct {
	Path  string
	Limit int
}

func (e *ErrMaxDepthExceeded) Error() string {
	return "jsonio: max depth exceeded at " + jsonptr.OrRoot(e.Path)
}

// DecodeBytes decodes a full JSON document from b.
func DecodeBytes(b []byte, opt Options) (any, []DuplicateKeyIssue, error) {
	return Decode(bytes.NewReader(b), opt)
}

// Decode decodes a full JSON document from r, enforcing opt along the way.
func Decode(r io.Reader, opt Options) (any, []DuplicateKeyIssue, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	d := &decoder{dec: dec, opt: opt}
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	v, err := d.value(tok, "", 0)
	if err != nil {
		return nil, d.issues, err
	}
	return v, d.issues, nil
}

type decoder struct {
	dec    *json.Decoder
	opt    Options
	issues []DuplicateKeyIssue
}

func (d *decoder) value(tok json.Token, path string, depth int) (any, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return d.object(path, depth+1)
		case '[':
			return d.array(path, depth+1)
		default:
			return nil, io.ErrUnexpectedEOF
		}
	case string:
		return v, nil
	case json.Number:
		return v, nil
	case bool:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func (d *decoder) object(path string, depth int) (any, error) {
	if d.opt.MaxDepth > 0 && depth > d.opt.MaxDepth {
		return nil, &ErrMaxDepthExceeded{Path: path, Limit: d.opt.MaxDepth}
	}
	m := make(map[string]any)
	seen := make(map[string]struct{})
	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, io.ErrUnexpectedEOF
		}
		if _, dup := seen[key]; dup && d.opt.OnDuplicateKey != DuplicateIgnore {
			if d.opt.OnDuplicateKey == DuplicateError {
				return nil, &ErrDuplicateKey{Path: path, Key: key}
			}
			d.issues = append(d.issues, DuplicateKeyIssue{Path: path, Key: key})
		}
		seen[key] = struct{}{}
		valTok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := d.value(valTok, jsonptr.Join(path, key), depth)
		if err != nil {
			return nil, err
		}
		m[key] = val
	}
	// consume closing delimiter
	if _, err := d.dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return m, nil
}

func (d *decoder) array(path string, depth int) (any, error) {
	if d.opt.MaxDepth > 0 && depth > d.opt.MaxDepth {
		return nil, &ErrMaxDepthExceeded{Path: path, Limit: d.opt.MaxDepth}
	}
	var arr []any
	idx := 0
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := d.value(tok, jsonptr.JoinIndex(path, idx), depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
		idx++
	}
	if _, err := d.dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return arr, nil
}
