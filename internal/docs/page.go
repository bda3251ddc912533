package docs

import (
	"fmt"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/markdown"
)

// URIScheme prefixes the addresses of stored pages, e.g. "xmldoc://T:Ns.Type".
const URIScheme = "xmldoc://"

const (
	FragConstructors = "constructors"
	FragProperties   = "properties"
	FragMethods      = "methods"
	FragFields       = "fields"
	FragEvents       = "events"
	FragExtensions   = "extension-methods"
)

// Fragment is a named sub-document of a page.
type Fragment struct {
	Name    string
	Content string
}

// Page is the Markdown rendering of one type, or of a single member.
type Page struct {
	UID       string
	Title     string
	Content   string
	Fragments []Fragment
}

// URI returns the page address.
func URI(uid string) string {
	return URIScheme + uid
}

// LinkMap maps every internal anchor of idx to the page URI of its target,
// for use with markdown.RewriteLinks. Members map to their owner's page.
func LinkMap(idx *Index) map[string]string {
	m := make(map[string]string, idx.Len())
	for uid, d := range idx.byUID {
		target := uid
		if d.Kind == KindMember && d.Owner != "" {
			target = d.Owner
		}
		m[d.Anchor] = URI(target)
	}
	return m
}

// memberSections lists member fragments in page order.
var memberSections = []struct {
	frag  string
	title string
	kind  MemberKind
}{
	{FragConstructors, "Constructors", MemberConstructor},
	{FragProperties, "Properties", MemberProperty},
	{FragMethods, "Methods", MemberMethod},
	{FragFields, "Fields", MemberField},
	{FragEvents, "Events", MemberEvent},
}

// BuildPage renders the page for a type or member node. Field text is used
// as is, so pages are built after the rewrite pass.
func BuildPage(g *Graph, id ID) (*Page, error) {
	n := g.Node(id)
	if n == nil {
		return nil, fmt.Errorf("node %d does not exist", id)
	}
	switch n.Kind {
	case KindType:
		return typePage(g, n), nil
	case KindMember:
		var b strings.Builder
		writeMember(&b, g, n, "#")
		return &Page{UID: n.UID, Title: memberTitle(g, n), Content: strings.TrimSpace(b.String())}, nil
	default:
		return nil, fmt.Errorf("node %s is a %s, pages are built for types and members", n.UID, n.Kind)
	}
}

func typePage(g *Graph, n *Node) *Page {
	title := markdown.DisplayName(n.UID) + " " + n.Type.Kind.String()
	page := &Page{UID: n.UID, Title: title}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Namespace: `%s`  \n", n.Type.Namespace)
	if asm := g.Node(g.AssemblyOf(n.ID)); asm != nil {
		fmt.Fprintf(&b, "Assembly: `%s`\n", asm.Name)
	}
	if n.Type.External {
		b.WriteString("\nThis type is documented elsewhere; only extension methods are listed here.\n")
	}
	writeDocs(&b, &n.Docs, "##")
	writeReferences(&b, n.References, "##")

	for _, sec := range memberSections {
		var members []*Node
		for _, childID := range n.Children {
			m := g.Node(childID)
			if m.Member.Kind == sec.kind && !relocated(m) {
				members = append(members, m)
			}
		}
		if frag := memberFragment(g, sec.frag, sec.title, members); frag != nil {
			page.Fragments = append(page.Fragments, *frag)
		}
	}

	var extensions []*Node
	for _, childID := range n.Children {
		if m := g.Node(childID); relocated(m) {
			extensions = append(extensions, m)
		}
	}
	if frag := memberFragment(g, FragExtensions, "Extension methods", extensions); frag != nil {
		page.Fragments = append(page.Fragments, *frag)
	}

	for _, frag := range page.Fragments {
		b.WriteString("\n" + frag.Content + "\n")
	}
	page.Content = strings.TrimSpace(b.String())
	return page
}

// relocated reports whether m was moved here from another type.
func relocated(m *Node) bool {
	return m.Member.Extension && m.Member.DeclaringType != m.Parent
}

func memberFragment(g *Graph, name, title string, members []*Node) *Fragment {
	if len(members) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", title)
	for _, m := range members {
		b.WriteString("\n")
		writeMember(&b, g, m, "###")
	}
	return &Fragment{Name: name, Content: strings.TrimSpace(b.String())}
}

func memberTitle(g *Graph, m *Node) string {
	if owner := g.Node(m.Parent); owner != nil {
		return memberDisplay(owner, m)
	}
	return markdown.DisplayName(m.UID)
}

func writeMember(b *strings.Builder, g *Graph, m *Node, heading string) {
	fmt.Fprintf(b, "%s %s\n", heading, memberTitle(g, m))
	if sig := strings.TrimSpace(m.Member.Signature); sig != "" {
		fmt.Fprintf(b, "\n```csharp\n%s\n```\n", sig)
	}
	if relocated(m) && m.Member.DeclaringUID != "" {
		fmt.Fprintf(b, "\nDeclared in `%s`.\n", markdown.DisplayName(m.Member.DeclaringUID))
	}
	writeDocs(b, &m.Docs, heading+"#")
	writeReferences(b, m.References, heading+"#")
}

func writeDocs(b *strings.Builder, d *Docs, heading string) {
	if s := strings.TrimSpace(d.Summary); s != "" {
		b.WriteString("\n" + s + "\n")
	}
	writeNamed(b, heading, "Type parameters", d.TypeParams)
	writeNamed(b, heading, "Parameters", d.Params)
	for _, sec := range []struct{ title, text string }{
		{"Returns", d.Returns},
		{"Value", d.Value},
		{"Remarks", d.Remarks},
		{"Usage", d.Usage},
		{"Examples", d.Examples},
		{"Best practices", d.BestPractices},
		{"Patterns", d.Patterns},
		{"Considerations", d.Considerations},
	} {
		if s := strings.TrimSpace(sec.text); s != "" {
			fmt.Fprintf(b, "\n%s %s\n\n%s\n", heading, sec.title, s)
		}
	}
}

func writeNamed(b *strings.Builder, heading, title string, docs []NamedDoc) {
	if len(docs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s %s\n\n", heading, title)
	for _, d := range docs {
		text := strings.Join(strings.Fields(d.Text), " ")
		if text == "" {
			fmt.Fprintf(b, "- `%s`\n", d.Name)
			continue
		}
		fmt.Fprintf(b, "- `%s`: %s\n", d.Name, text)
	}
}

// writeReferences renders a curated "see also" list from resolved records.
func writeReferences(b *strings.Builder, refs []Reference, heading string) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s See also\n\n", heading)
	for _, ref := range refs {
		label := ref.Label
		if label == "" && ref.Kind == RefSymbol {
			label = markdown.DisplayName(ref.Raw)
		}
		if label == "" {
			label = ref.Raw
		}
		switch ref.State {
		case StateInternal, StateExternal:
			fmt.Fprintf(b, "- [%s](%s)\n", label, ref.Target)
		default:
			fmt.Fprintf(b, "- `%s`\n", label)
		}
	}
}
