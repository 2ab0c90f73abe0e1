package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilisklabs/jsonschema/internal/resolver"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

func TestCanonical_AddsExactlyOneTrailingHash(t *testing.T) {
	assert.Equal(t, "http://x/y#", resolver.Canonical("http://x/y"))
	assert.Equal(t, "http://x/y#", resolver.Canonical("http://x/y#"))
	assert.Equal(t, "http://x/y#", resolver.Canonical("http://x/y#/a/b"))
	assert.Equal(t, "#", resolver.Canonical(""))
}

func TestPromote_RelativeRefAgainstAncestorBase(t *testing.T) {
	base, frag, err := resolver.Promote("other.json#/a", "http://x/root.json")
	require.NoError(t, err)
	assert.Equal(t, "http://x/other.json", base)
	assert.Equal(t, "/a", frag)
}

func TestPromote_FragmentOnlyAgainstEmptyAncestor(t *testing.T) {
	base, frag, err := resolver.Promote("#/definitions/n", "")
	require.NoError(t, err)
	assert.Equal(t, "", base)
	assert.Equal(t, "/definitions/n", frag)
}

func TestEffectiveBaseURI_InheritsWhenNoID(t *testing.T) {
	assert.Equal(t, "http://x/root.json", resolver.EffectiveBaseURI("", "http://x/root.json"))
}

func TestEffectiveBaseURI_OwnIDWins(t *testing.T) {
	assert.Equal(t, "http://x/sub.json", resolver.EffectiveBaseURI("sub.json", "http://x/root.json"))
}

func TestInsert_RegistersEmptyBaseURI(t *testing.T) {
	r := resolver.New(resolver.Config{Draft: schemair.Draft7})
	root := &schemair.Node{Draft: schemair.Draft7}
	r.Insert("", root)
	got, ok := r.Lookup("")
	require.True(t, ok)
	assert.Same(t, root, got)
}

func TestFinish_LocalRefResolvesWithoutAnyProvider(t *testing.T) {
	r := resolver.New(resolver.Config{Draft: schemair.Draft7})
	target := &schemair.Node{Draft: schemair.Draft7, Types: []string{"number"}}
	root := &schemair.Node{
		Draft: schemair.Draft7,
		Ref:   "#/definitions/n",
		Custom: map[string]*schemair.Node{
			"definitions/n": target,
		},
	}
	r.Insert("", root)
	r.AddRef(root, "")

	err := r.Finish(context.Background())
	require.NoError(t, err)
	assert.Same(t, target, root.ResolvedRef)
}

func TestFinish_UnresolvableWithoutProvider(t *testing.T) {
	r := resolver.New(resolver.Config{Draft: schemair.Draft7})
	root := &schemair.Node{Draft: schemair.Draft7, Ref: "http://example.com/other.json#/x"}
	r.Insert("", root)
	r.AddRef(root, "")

	err := r.Finish(context.Background())
	require.Error(t, err)
	var target *resolver.UnresolvableRefError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "http://example.com/other.json", target.URI)
}

func TestFinish_SyncProviderSuppliesRemoteDocument(t *testing.T) {
	fetched := &schemair.Node{Draft: schemair.Draft7, Types: []string{"string"}}
	r := resolver.New(resolver.Config{
		Draft: schemair.Draft7,
		SyncProvider: func(uri string) (any, bool) {
			if uri == "http://example.com/other.json" {
				return fetched, true
			}
			return nil, false
		},
	})
	root := &schemair.Node{Draft: schemair.Draft7, Ref: "http://example.com/other.json"}
	r.Insert("", root)
	r.AddRef(root, "")

	require.NoError(t, r.Finish(context.Background()))
	assert.Same(t, fetched, root.ResolvedRef)
}

func TestFinish_AsyncProviderFansOutConcurrently(t *testing.T) {
	one := &schemair.Node{Draft: schemair.Draft7, Types: []string{"string"}}
	two := &schemair.Node{Draft: schemair.Draft7, Types: []string{"number"}}
	r := resolver.New(resolver.Config{
		Draft: schemair.Draft7,
		AsyncProvider: func(ctx context.Context, uri string) (any, bool, error) {
			switch uri {
			case "http://example.com/one.json":
				return one, true, nil
			case "http://example.com/two.json":
				return two, true, nil
			default:
				return nil, false, nil
			}
		},
	})
	rootA := &schemair.Node{Draft: schemair.Draft7, Ref: "http://example.com/one.json"}
	rootB := &schemair.Node{Draft: schemair.Draft7, Ref: "http://example.com/two.json"}
	r.Insert("", rootA)
	r.AddRef(rootA, "")
	r.AddRef(rootB, "")

	require.NoError(t, r.Finish(context.Background()))
	assert.Same(t, one, rootA.ResolvedRef)
	assert.Same(t, two, rootB.ResolvedRef)
}

func TestResolveNode_DetectsDirectCycle(t *testing.T) {
	r := resolver.New(resolver.Config{Draft: schemair.Draft7})
	a := &schemair.Node{Draft: schemair.Draft7, Ref: "#/b"}
	b := &schemair.Node{Draft: schemair.Draft7, Ref: "#/a"}
	root := &schemair.Node{
		Draft:  schemair.Draft7,
		Custom: map[string]*schemair.Node{"a": a, "b": b},
	}
	r.Insert("", root)
	r.AddRef(a, "")

	err := r.Finish(context.Background())
	require.Error(t, err)
	var target *resolver.RefCycleError
	assert.ErrorAs(t, err, &target)
}

func TestWalkFragment_PropertiesAndItemsIndex(t *testing.T) {
	leaf := &schemair.Node{Draft: schemair.Draft7, Types: []string{"string"}}
	first := &schemair.Node{Draft: schemair.Draft7, Types: []string{"integer"}}
	root := &schemair.Node{
		Draft:         schemair.Draft7,
		Properties:    map[string]*schemair.Node{"name": leaf},
		HasItemsTuple: true,
		ItemsTuple:    []*schemair.Node{first, leaf},
	}

	got, err := resolver.WalkFragment(root, "/properties/name")
	require.NoError(t, err)
	assert.Same(t, leaf, got)

	got, err = resolver.WalkFragment(root, "/items/1")
	require.NoError(t, err)
	assert.Same(t, leaf, got)
}

func TestWalkFragment_UnknownSegmentErrors(t *testing.T) {
	root := &schemair.Node{Draft: schemair.Draft7}
	_, err := resolver.WalkFragment(root, "/nope")
	require.Error(t, err)
}

func TestResolvePath_ChasesTerminalRef(t *testing.T) {
	r := resolver.New(resolver.Config{Draft: schemair.Draft7})
	target := &schemair.Node{Draft: schemair.Draft7, Types: []string{"boolean"}}
	aliased := &schemair.Node{Draft: schemair.Draft7, Ref: "#/definitions/n"}
	root := &schemair.Node{
		Draft: schemair.Draft7,
		Custom: map[string]*schemair.Node{
			"definitions/n": target,
			"alias":         aliased,
		},
	}
	r.Insert("", root)

	got, err := r.ResolvePath(root, "/alias")
	require.NoError(t, err)
	assert.Same(t, target, got)
}
