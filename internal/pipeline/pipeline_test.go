package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGraph struct {
	g                             *docs.Graph
	bag, helper, addRange, remove docs.ID
}

// newTestGraph builds an assembly with a Bag class and a helper class
// extending it.
func newTestGraph(t *testing.T) *testGraph {
	t.Helper()
	tg := &testGraph{g: docs.NewGraph()}
	g := tg.g

	asm := g.AddAssembly("Contoso")
	ns, err := g.AddNamespace(asm, "Contoso.Collections")
	require.NoError(t, err)

	tg.bag, err = g.AddType(ns, "Bag", "", docs.TypeInfo{Kind: docs.TypeClass})
	require.NoError(t, err)
	bag := g.Node(tg.bag)
	bag.Docs.Summary = `Holds <see cref="T:Contoso.Collections.Bag"/> items. See <see cref="T:Missing.Type"/>.`
	bag.References = []docs.Reference{
		{Raw: "T:System.String"},
		{Raw: "T:Nowhere.Else"},
	}

	tg.remove, err = g.AddMember(tg.bag, "Remove", "M:Contoso.Collections.Bag.Remove(System.Object)", docs.MemberInfo{Kind: docs.MemberMethod})
	require.NoError(t, err)
	g.Node(tg.remove).Docs.Summary = "Removes an item, returning <see langword=\"true\"/> on success."

	tg.helper, err = g.AddType(ns, "BagExtensions", "", docs.TypeInfo{Kind: docs.TypeClass})
	require.NoError(t, err)
	tg.addRange, err = g.AddMember(tg.helper, "AddRange", "M:Contoso.Collections.BagExtensions.AddRange(Contoso.Collections.Bag,System.Object[])",
		docs.MemberInfo{Kind: docs.MemberMethod, Extension: true, ExtendedType: "T:Contoso.Collections.Bag"})
	require.NoError(t, err)
	addRange := g.Node(tg.addRange)
	addRange.Docs.Summary = `Adds <paramref name="items"/> to the bag.`
	addRange.Docs.Params = []docs.NamedDoc{{Name: "items", Text: "The <c>items</c> to add."}}
	return tg
}

// stubRewrite replaces the per-entity rewrite for the duration of a test.
func stubRewrite(t *testing.T, fn func(docs.Docs, []docs.Reference, []docs.Reference, *docs.Resolver, markdown.Options) *result) {
	t.Helper()
	orig := rewriteEntity
	rewriteEntity = fn
	t.Cleanup(func() { rewriteEntity = orig })
}

func TestRun(t *testing.T) {
	t.Parallel()
	tg := newTestGraph(t)
	g := tg.g

	report, err := Run(context.Background(), g, Options{
		Relocate: docs.RelocateOptions{SynthesizePlaceholders: true},
		Workers:  2,
	})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Len(t, report.Relocation.Moved, 1)
	assert.Equal(t, []docs.ID{tg.helper}, report.Relocation.Removed)
	assert.Equal(t, tg.bag, g.Node(tg.addRange).Parent)

	// assembly, namespace, Bag, Remove and the relocated AddRange
	assert.Equal(t, 5, report.Entities)
	assert.Equal(t, 5, report.Rewritten)

	bag := g.Node(tg.bag)
	assert.Equal(t, "Holds [`Bag`](#t-contoso-collections-bag) items. See `Type`.", bag.Docs.Summary)
	assert.Equal(t, []docs.Reference{
		{Raw: "T:System.String", State: docs.StateExternal, Target: "https://learn.microsoft.com/dotnet/api/system.string"},
		{Raw: "T:Nowhere.Else", State: docs.StateUnresolved},
	}, bag.References)
	assert.Equal(t, []docs.Reference{
		{Raw: "T:Contoso.Collections.Bag", State: docs.StateInternal, Target: "#t-contoso-collections-bag"},
		{Raw: "T:Missing.Type", State: docs.StateUnresolved},
	}, bag.Inline)

	remove := g.Node(tg.remove)
	assert.Equal(t, "Removes an item, returning [`true`](https://learn.microsoft.com/dotnet/csharp/language-reference/builtin-types/bool) on success.", remove.Docs.Summary)
	assert.Equal(t, []docs.Reference{
		{Raw: "true", Kind: docs.RefKeyword, State: docs.StateExternal, Target: "https://learn.microsoft.com/dotnet/csharp/language-reference/builtin-types/bool"},
	}, remove.Inline)

	addRange := g.Node(tg.addRange)
	assert.Equal(t, "Adds `items` to the bag.", addRange.Docs.Summary)
	assert.Equal(t, "The `items` to add.", addRange.Docs.Params[0].Text)
	assert.Empty(t, addRange.Inline)

	assert.Equal(t, []Unresolved{
		{Entity: "T:Contoso.Collections.Bag", Ref: docs.Reference{Raw: "T:Nowhere.Else", State: docs.StateUnresolved}},
		{Entity: "T:Contoso.Collections.Bag", Ref: docs.Reference{Raw: "T:Missing.Type", State: docs.StateUnresolved}},
	}, report.Unresolved)

	_, ok := report.Index.Lookup("T:Contoso.Collections.BagExtensions")
	assert.False(t, ok)
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t).g

	_, err := Run(context.Background(), g, Options{})
	require.NoError(t, err)
	first, err := docs.Encode(g)
	require.NoError(t, err)

	report, err := Run(context.Background(), g, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Relocation.Moved)
	second, err := docs.Encode(g)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestRun_NoPlaceholders(t *testing.T) {
	t.Parallel()
	tg := newTestGraph(t)
	g := tg.g
	extra, err := g.AddMember(tg.helper, "Shuffle", "M:Contoso.Collections.BagExtensions.Shuffle(System.Collections.IList)",
		docs.MemberInfo{Kind: docs.MemberMethod, Extension: true, ExtendedType: "T:System.Collections.IList"})
	require.NoError(t, err)

	report, err := Run(context.Background(), g, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Relocation.Placeholders)
	assert.Equal(t, []docs.ID{extra}, report.Relocation.Skipped)
	assert.Equal(t, tg.helper, g.Node(extra).Parent)
	assert.Empty(t, report.Relocation.Removed)
}

func TestRun_IsolatesPanics(t *testing.T) {
	stubRewrite(t, func(d docs.Docs, refs, inline []docs.Reference, r *docs.Resolver, m markdown.Options) *result {
		if strings.Contains(d.Summary, "Removes") {
			panic("boom")
		}
		return rewrite(d, refs, inline, r, m)
	})

	tg := newTestGraph(t)
	g := tg.g
	original := g.Node(tg.remove).Docs.Summary

	report, err := Run(context.Background(), g, Options{})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	failure := report.Failures[0]
	assert.Equal(t, "M:Contoso.Collections.Bag.Remove(System.Object)", failure.UID)
	assert.Equal(t, tg.remove, failure.ID)
	assert.ErrorContains(t, failure, "panic: boom")

	var entityErr *EntityError
	require.ErrorAs(t, report.Err(), &entityErr)
	assert.Equal(t, failure, entityErr)

	// The failing entity is untouched, the rest of the batch went through.
	assert.Equal(t, original, g.Node(tg.remove).Docs.Summary)
	assert.Equal(t, report.Entities-1, report.Rewritten)
	assert.Equal(t, "Adds `items` to the bag.", g.Node(tg.addRange).Docs.Summary)
}

func TestRun_EntityTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stubRewrite(t, func(d docs.Docs, refs, inline []docs.Reference, r *docs.Resolver, m markdown.Options) *result {
		if strings.Contains(d.Summary, "Adds") {
			<-release
		}
		return rewrite(d, refs, inline, r, m)
	})

	tg := newTestGraph(t)
	g := tg.g

	report, err := Run(context.Background(), g, Options{EntityTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], ErrTimeout)
	assert.ErrorIs(t, report.Err(), ErrTimeout)
	assert.Equal(t, `Adds <paramref name="items"/> to the bag.`, g.Node(tg.addRange).Docs.Summary)
	assert.Equal(t, "Holds [`Bag`](#t-contoso-collections-bag) items. See `Type`.", g.Node(tg.bag).Docs.Summary)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	tg := newTestGraph(t)
	g := tg.g
	original := g.Node(tg.bag).Docs.Summary

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, g, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, report.Rewritten)
	assert.Empty(t, report.Failures)
	assert.Equal(t, original, g.Node(tg.bag).Docs.Summary)
}

func TestReport_ErrNoFailures(t *testing.T) {
	t.Parallel()
	assert.NoError(t, (&Report{}).Err())
}
