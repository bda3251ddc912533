package docs

import (
	"strings"
	"testing"

	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPage_Type(t *testing.T) {
	t.Parallel()
	f, r := relocatedFixture(t)
	g := f.g

	bag := g.Node(f.bag)
	bag.Docs.Summary = "An unordered bag."
	bag.Docs.Remarks = "Not thread-safe."
	bag.References = r.ResolveReferences([]Reference{{Raw: "T:System.String"}, {Raw: "T:Acme.Widget", Label: "widgets"}})
	g.Node(f.count).Member.Signature = "public int Count { get; }"
	g.Node(f.add).Docs.Params = []NamedDoc{{Name: "item", Text: "The\n item."}}

	page, err := BuildPage(g, f.bag)
	require.NoError(t, err)
	assert.Equal(t, "T:Contoso.Collections.Bag", page.UID)
	assert.Equal(t, "Bag class", page.Title)

	var names []string
	for _, frag := range page.Fragments {
		names = append(names, frag.Name)
	}
	assert.Equal(t, []string{FragProperties, FragMethods, FragExtensions}, names)

	c := page.Content
	assert.True(t, strings.HasPrefix(c, "# Bag class\n\nNamespace: `Contoso.Collections`  \nAssembly: `Contoso`\n"))
	assert.Contains(t, c, "\nAn unordered bag.\n")
	assert.Contains(t, c, "## Remarks\n\nNot thread-safe.")
	assert.Contains(t, c, "## See also\n\n- [String](https://learn.microsoft.com/dotnet/api/system.string)\n- `widgets`")
	assert.Contains(t, c, "### Bag.Count\n\n```csharp\npublic int Count { get; }\n```")
	assert.Contains(t, c, "#### Parameters\n\n- `item`: The item.")
	assert.Contains(t, c, "## Extension methods\n\n### Bag.AddRange\n\nDeclared in `BagExtensions`.")
	assert.Contains(t, c, "### Bag.Tally\n\nDeclared in `Mixed`.")

	assert.True(t, markdown.Validate(c).Clean())
}

func TestBuildPage_Placeholder(t *testing.T) {
	t.Parallel()
	f, _ := relocatedFixture(t)

	id := f.g.Node(f.shuffle).Parent
	page, err := BuildPage(f.g, id)
	require.NoError(t, err)
	assert.Equal(t, "IEnumerable class", page.Title)
	assert.Contains(t, page.Content, "documented elsewhere")
	require.Len(t, page.Fragments, 1)
	assert.Equal(t, FragExtensions, page.Fragments[0].Name)
	assert.Contains(t, page.Fragments[0].Content, "### IEnumerable.Shuffle")
}

func TestBuildPage_Member(t *testing.T) {
	t.Parallel()
	f, _ := relocatedFixture(t)
	g := f.g
	g.Node(f.count).Docs.Value = "The number of items."

	page, err := BuildPage(g, f.count)
	require.NoError(t, err)
	assert.Equal(t, "Bag.Count", page.Title)
	assert.Equal(t, "# Bag.Count\n\n## Value\n\nThe number of items.", page.Content)

	_, err = BuildPage(g, f.ns)
	assert.ErrorContains(t, err, "pages are built for types and members")
	_, err = BuildPage(g, ID(1000))
	assert.Error(t, err)
}

func TestLinkMap(t *testing.T) {
	t.Parallel()
	f, _ := relocatedFixture(t)
	links := LinkMap(BuildIndex(f.g))

	assert.Equal(t, "xmldoc://T:Contoso.Collections.Bag", links["#t-contoso-collections-bag"])
	assert.Equal(t, "xmldoc://T:Contoso.Collections.Bag", links["#p-contoso-collections-bag-count"])

	got := markdown.RewriteLinks("See [`Count`](#p-contoso-collections-bag-count).", links)
	assert.Equal(t, "See [`Count`](xmldoc://T:Contoso.Collections.Bag).", got)
}
