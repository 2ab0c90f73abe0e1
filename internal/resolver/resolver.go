// Package resolver implements $ref resolution: base-URI inheritance, the
// global ref map keyed by absolute URI, pending retrieval requests, pending
// local-ref assignments, and JSON-Pointer fragment resolution with cycle
// detection (spec §4.2).
package resolver

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/basilisklabs/jsonschema/internal/jsonptr"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

// RefCycleError reports a $ref chain that revisits a URI it already passed
// through.
type RefCycleError struct {
	Path string // the absolute-URI#fragment chain, joined by " -> "
}

func (e *RefCycleError) Error() string { return "resolver: ref cycle at " + e.Path }

// UnresolvableRefError reports a $ref that neither the local document nor
// any provider/fetch could satisfy.
type UnresolvableRefError struct {
	URI string
}

func (e *UnresolvableRefError) Error() string { return "resolver: unresolvable ref " + e.URI }

// CompileFunc compiles a freshly fetched document into a Node. The resolver
// calls back into the compiler this way to avoid a compiler<->resolver
// import cycle (the compiler is the one that knows how to walk raw JSON).
type CompileFunc func(raw any, draft schemair.Draft, fetchedFromURI string) (*schemair.Node, error)

// SyncProvider looks up an absolute URI and returns its content: a raw JSON
// value, a bool schema, or an already-compiled *schemair.Node. ok=false
// means "not found".
type SyncProvider func(uri string) (content any, ok bool)

// AsyncProvider is the async-mode equivalent, invoked concurrently by
// Resolver.Finish.
type AsyncProvider func(ctx context.Context, uri string) (content any, ok bool, err error)

// Config wires the resolver to its collaborators.
type Config struct {
	Compile        CompileFunc
	SyncProvider   SyncProvider
	AsyncProvider  AsyncProvider
	Draft          schemair.Draft
	FetchConcurrency int // default 8 when <= 0
	Logger         logrus.FieldLogger
}

type pendingRef struct {
	node     *schemair.Node // the referencing node; node.Ref/node.BaseURI carry the raw ref
	fromPath string
}

// Resolver accumulates refs during a single compile and resolves them to a
// fixed point in Finish.
type Resolver struct {
	cfg Config

	mu     sync.Mutex
	refMap map[string]*schemair.Node // canonical absolute-base (trailing '#') -> node
	pending []pendingRef
}

// New returns a Resolver ready to receive refs recorded during compilation.
func New(cfg Config) *Resolver {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 8
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		cfg.Logger = l
	}
	return &Resolver{cfg: cfg, refMap: make(map[string]*schemair.Node)}
}

// Canonical renders a base URI (fragment stripped) into ref_map's canonical
// form: exactly one trailing '#'.
func Canonical(base string) string {
	b := base
	if i := strings.IndexByte(b, '#'); i >= 0 {
		b = b[:i]
	}
	return b + "#"
}

// Promote resolves ref against ancestorBase per RFC 3986, splitting the
// result into its base (fragment-stripped, uncanonicalized) and fragment.
func Promote(ref, ancestorBase string) (base, fragment string, err error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolver: invalid $ref %q", ref)
	}
	if ancestorBase == "" {
		frag := refURL.Fragment
		cp := *refURL
		cp.Fragment = ""
		return cp.String(), frag, nil
	}
	ancestorURL, err := url.Parse(ancestorBase)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolver: invalid base URI %q", ancestorBase)
	}
	resolved := ancestorURL.ResolveReference(refURL)
	frag := resolved.Fragment
	cp := *resolved
	cp.Fragment = ""
	return cp.String(), frag, nil
}

// EffectiveBaseURI implements §4.2's inheritance rule: a node's own id (if
// present, fragment stripped) or, failing that, the ancestor's base.
func EffectiveBaseURI(id, ancestorBase string) string {
	if id == "" {
		return ancestorBase
	}
	base, _, err := Promote(id, ancestorBase)
	if err != nil {
		return ancestorBase
	}
	return base
}

// Insert registers n under the canonical form of baseURI only; registering
// a node under its own id as well is left to the caller (see
// ingestFetched). Called by the compiler as soon as an $id-bearing node is built,
// so sibling refs within the same document resolve without a fetch, and by
// the caller once for the document root itself (baseURI=="" is a valid key:
// it is how a document with neither $id nor a fetched-from URI registers).
func (r *Resolver) Insert(baseURI string, n *schemair.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refMap[Canonical(baseURI)] = n
}

// SetCompileFunc installs the callback used to compile freshly fetched
// documents. Callers construct the Resolver first (so they have a
// *Resolver to hand the compiler as its RefRecorder), then wire this.
func (r *Resolver) SetCompileFunc(fn CompileFunc) {
	r.cfg.Compile = fn
}

// Lookup returns the node registered for baseURI, if any.
func (r *Resolver) Lookup(baseURI string) (*schemair.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.refMap[Canonical(baseURI)]
	return n, ok
}

// AddRef records a $ref encountered during compilation. node.Ref and
// node.BaseURI must already be set; resolution is deferred to Finish so
// forward references (an $id declared later in the same document) still
// work.
func (r *Resolver) AddRef(node *schemair.Node, fromPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingRef{node: node, fromPath: fromPath})
}

// Finish drains pending refs to a fixed point: local refs (whose base is
// already in ref_map after the full document compiled) resolve immediately;
// refs whose base is missing trigger a provider lookup (sync) or a fanned
// out fetch (async). It returns the first UnresolvableRefError/RefCycleError
// encountered.
func (r *Resolver) Finish(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.mu.Unlock()

	needsFetch := map[string]bool{}
	for _, p := range pending {
		base, _, err := Promote(p.node.Ref, p.node.BaseURI)
		if err != nil {
			return err
		}
		key := Canonical(base)
		if _, ok := r.Lookup(base); !ok {
			needsFetch[key] = true
		}
	}

	if len(needsFetch) > 0 {
		if err := r.fetchAll(ctx, needsFetch); err != nil {
			return err
		}
	}

	for _, p := range pending {
		target, err := r.resolveNode(p.node, map[string]bool{})
		if err != nil {
			return err
		}
		p.node.ResolvedRef = target
	}
	return nil
}

func (r *Resolver) fetchAll(ctx context.Context, keys map[string]bool) error {
	uris := make([]string, 0, len(keys))
	for k := range keys {
		uris = append(uris, strings.TrimSuffix(k, "#"))
	}

	if r.cfg.AsyncProvider != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.FetchConcurrency)
		for _, uri := range uris {
			uri := uri
			g.Go(func() error { return r.fetchOneAsync(gctx, uri) })
		}
		return g.Wait()
	}

	if r.cfg.SyncProvider == nil {
		if len(uris) > 0 {
			return &UnresolvableRefError{URI: uris[0]}
		}
		return nil
	}
	for _, uri := range uris {
		if err := r.fetchOneSync(uri); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) fetchOneSync(uri string) error {
	content, ok := r.cfg.SyncProvider(uri)
	if !ok {
		content, ok = r.cfg.SyncProvider(uri + "#")
	}
	if !ok {
		return &UnresolvableRefError{URI: uri}
	}
	return r.ingestFetched(uri, content)
}

func (r *Resolver) fetchOneAsync(ctx context.Context, uri string) error {
	content, ok, err := r.cfg.AsyncProvider(ctx, uri)
	if err != nil {
		return errors.Wrapf(err, "resolver: fetching %s", uri)
	}
	if !ok {
		content, ok, err = r.cfg.AsyncProvider(ctx, uri+"#")
		if err != nil {
			return errors.Wrapf(err, "resolver: fetching %s", uri)
		}
	}
	if !ok {
		return &UnresolvableRefError{URI: uri}
	}
	return r.ingestFetched(uri, content)
}

func (r *Resolver) ingestFetched(uri string, content any) error {
	switch v := content.(type) {
	case *schemair.Node:
		r.Insert(uri, v)
		return nil
	case bool:
		r.Insert(uri, &schemair.Node{IsBoolean: true, BoolValue: v, Draft: r.cfg.Draft, BaseURI: uri})
		return nil
	default:
		n, err := r.cfg.Compile(v, r.cfg.Draft, uri)
		if err != nil {
			return errors.Wrapf(err, "resolver: compiling fetched %s", uri)
		}
		r.Insert(uri, n)
		if !n.IsBoolean && n.ID != "" {
			r.Insert(n.ID, n)
		}
		r.cfg.Logger.WithField("schema_uri", uri).Debug("resolver: fetched and compiled ref target")
		return nil
	}
}

// resolveNode chases a $ref chain to its terminal (non-ref) node, detecting
// cycles via the set of absolute-URI#fragment keys already visited in this
// chain.
func (r *Resolver) resolveNode(n *schemair.Node, visited map[string]bool) (*schemair.Node, error) {
	if n == nil || n.Ref == "" {
		return n, nil
	}
	base, fragment, err := Promote(n.Ref, n.BaseURI)
	if err != nil {
		return nil, err
	}
	key := Canonical(base) + fragment
	if visited[key] {
		return nil, &RefCycleError{Path: key}
	}
	visited[key] = true

	root, ok := r.Lookup(base)
	if !ok {
		return nil, &UnresolvableRefError{URI: base}
	}
	target, err := WalkFragment(root, fragment)
	if err != nil {
		return nil, err
	}
	if target.Ref != "" {
		return r.resolveNode(target, visited)
	}
	return target, nil
}

// ResolvePath resolves a JSON Pointer against root, chasing a terminal $ref
// if the pointer lands on one. It is the engine behind the public
// Schema.ResolvePath and behind resolve_path(uri) in §4.2 when uri is
// fragment-only against the schema's own root.
func (r *Resolver) ResolvePath(root *schemair.Node, pointer string) (*schemair.Node, error) {
	target, err := WalkFragment(root, pointer)
	if err != nil {
		return nil, err
	}
	if target.Ref != "" {
		return r.resolveNode(target, map[string]bool{})
	}
	return target, nil
}

// WalkFragment descends a JSON Pointer fragment through node using the
// keyword-specific accessor table (§4.2): properties/<key>, items/<index>,
// definitions/<key>, plus any custom sub-schema recorded by the compiler.
func WalkFragment(node *schemair.Node, fragment string) (*schemair.Node, error) {
	segments := jsonptr.Split(fragment)
	cur := node
	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		var (
			next *schemair.Node
			ok   bool
		)
		switch seg {
		case "properties", "patternProperties", "definitions", "$defs":
			if i+1 >= len(segments) {
				return nil, errors.Errorf("resolver: %q requires a following key segment", seg)
			}
			next, ok = cur.ChildProperty(seg, segments[i+1])
			i++
		case "items", "allOf", "anyOf", "oneOf":
			if i+1 < len(segments) {
				if idx, err := strconv.Atoi(segments[i+1]); err == nil {
					next, ok = cur.ChildIndex(seg, idx)
					if ok {
						i++
						break
					}
				}
			}
			next, ok = cur.Child(seg)
		default:
			next, ok = cur.Child(seg)
		}
		if !ok {
			return nil, errors.Errorf("resolver: no such schema location /%s", strings.Join(segments[:i+1], "/"))
		}
		cur = next
	}
	return cur, nil
}
