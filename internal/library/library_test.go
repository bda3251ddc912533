package library

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jcdickinson/xmldocmd/internal/cas"
	"github.com/jcdickinson/xmldocmd/internal/db"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bagUID = "T:Contoso.Collections.Bag"

func testLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database, cas.New(filepath.Join(dir, "cas"))), dir
}

// transformed returns a small graph after a pipeline run, cached under dir.
func transformed(t *testing.T, dir string) (*docs.Graph, string) {
	t.Helper()
	g := docs.NewGraph()
	asm := g.AddAssembly("Contoso")
	ns, err := g.AddNamespace(asm, "Contoso.Collections")
	require.NoError(t, err)

	bag, err := g.AddType(ns, "Bag", "", docs.TypeInfo{Kind: docs.TypeClass})
	require.NoError(t, err)
	g.Node(bag).Docs.Summary = `A bag. See <see cref="M:Contoso.Collections.Bag.Add(System.Object)"/> and <see cref="T:Nowhere.Else"/>.`

	add, err := g.AddMember(bag, "Add", "M:Contoso.Collections.Bag.Add(System.Object)",
		docs.MemberInfo{Kind: docs.MemberMethod, Signature: "public void Add(object item)"})
	require.NoError(t, err)
	g.Node(add).Docs.Summary = "Adds an item."

	helper, err := g.AddType(ns, "BagExtensions", "", docs.TypeInfo{Kind: docs.TypeClass})
	require.NoError(t, err)
	_, err = g.AddMember(helper, "Shake", "M:Contoso.Collections.BagExtensions.Shake(Contoso.Collections.Bag)",
		docs.MemberInfo{Kind: docs.MemberMethod, Extension: true, ExtendedType: bagUID})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), g, pipeline.Options{})
	require.NoError(t, err)

	path := filepath.Join(dir, "graphs", "contoso.json.zst")
	require.NoError(t, docs.SaveGraph(g, path))
	return g, path
}

func TestPublish_GetDoc(t *testing.T) {
	lib, dir := testLibrary(t)
	g, path := transformed(t, dir)

	res, err := lib.Publish("contoso", g, path)
	require.NoError(t, err)
	// assembly, namespace, Bag, Add and the relocated Shake
	assert.Equal(t, 5, res.Entities)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.Refs)
	assert.NotNil(t, res.Source)

	page, err := lib.GetDoc(bagUID, "")
	require.NoError(t, err)
	assert.Contains(t, page, "---\nextension-methods: xmldoc://T:Contoso.Collections.Bag#extension-methods\nmethods: xmldoc://T:Contoso.Collections.Bag#methods\n---\n\n# Bag class")
	assert.Contains(t, page, "A bag. See [`Bag.Add`](xmldoc://T:Contoso.Collections.Bag) and `Else`.")
	assert.NotContains(t, page, "](#")

	member, err := lib.GetDoc("M:Contoso.Collections.Bag.Add(System.Object)", "")
	require.NoError(t, err)
	assert.Equal(t, "# Bag.Add\n\n```csharp\npublic void Add(object item)\n```\n\nAdds an item.", member)

	_, err = lib.GetDoc("T:Missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.GetDoc("N:Contoso.Collections", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDoc_Fragment(t *testing.T) {
	lib, dir := testLibrary(t)
	g, path := transformed(t, dir)
	_, err := lib.Publish("contoso", g, path)
	require.NoError(t, err)

	frag, err := lib.GetDoc(bagUID, "extension-methods")
	require.NoError(t, err)
	assert.Equal(t, "## Extension methods\n\n### Bag.Shake\n\nDeclared in `BagExtensions`.", frag)

	_, err = lib.GetDoc(bagUID, "events")
	assert.ErrorIs(t, err, ErrNotFound)

	// Concurrent fragment reads share one load of the cached graph.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := lib.GetDoc(bagUID, "methods")
			assert.NoError(t, err)
			assert.Contains(t, got, "### Bag.Add")
		}()
	}
	wg.Wait()
	assert.Len(t, lib.graphs, 1)
}

func TestSearch(t *testing.T) {
	lib, dir := testLibrary(t)
	g, path := transformed(t, dir)
	_, err := lib.Publish("contoso", g, path)
	require.NoError(t, err)

	results, err := lib.Search("bag.add", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, SearchResult{
		URI:     "xmldoc://M:Contoso.Collections.Bag.Add(System.Object)",
		UID:     "M:Contoso.Collections.Bag.Add(System.Object)",
		Display: "Bag.Add",
		Kind:    "method",
	}, results[0])

	results, err = lib.Search("shake", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bag.Shake", results[0].Display)
}

func TestUnresolved(t *testing.T) {
	lib, dir := testLibrary(t)
	g, path := transformed(t, dir)
	_, err := lib.Publish("contoso", g, path)
	require.NoError(t, err)

	refs, err := lib.Unresolved("contoso", 0)
	require.NoError(t, err)
	assert.Equal(t, []UnresolvedRef{
		{Entity: bagUID, Raw: "T:Nowhere.Else", Kind: "symbol", Inline: true},
	}, refs)

	all, err := lib.Unresolved("", 0)
	require.NoError(t, err)
	assert.Equal(t, refs, all)

	_, err = lib.Unresolved("fabrikam", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
