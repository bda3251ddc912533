package docs

import (
	"regexp"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/markdown"
)

// DefaultExternalBaseURL is where well-known framework symbols are documented.
const DefaultExternalBaseURL = "https://learn.microsoft.com/dotnet/api/"

// DefaultExternalPrefixes are the namespaces treated as documented externally.
var DefaultExternalPrefixes = []string{"System", "Microsoft"}

// Descriptor is what the index knows about a documented symbol.
type Descriptor struct {
	UID     string
	Name    string
	Display string
	Kind    Kind
	Anchor  string
	// Owner is the uid of the type owning a member after relocation.
	Owner string
}

// Index maps symbol uids to descriptors. It is built once and never mutated,
// so it can be shared by concurrent workers.
type Index struct {
	byUID map[string]Descriptor
}

// BuildIndex walks the reachable graph once and indexes every node by uid.
// The first node wins when uids collide.
func BuildIndex(g *Graph) *Index {
	idx := &Index{byUID: make(map[string]Descriptor, g.Len())}
	g.Walk(func(n *Node) bool {
		if n.UID == "" {
			return true
		}
		if _, dup := idx.byUID[n.UID]; dup {
			return true
		}
		d := Descriptor{
			UID:     n.UID,
			Name:    n.Name,
			Display: n.Name,
			Kind:    n.Kind,
			Anchor:  "#" + Anchor(n.UID),
		}
		if n.Kind == KindType {
			d.Display = markdown.DisplayName(n.UID)
		}
		if n.Kind == KindMember {
			if owner := g.Node(n.Parent); owner != nil {
				d.Owner = owner.UID
				d.Display = memberDisplay(owner, n)
			}
		}
		idx.byUID[n.UID] = d
		return true
	})
	return idx
}

// memberDisplay names a member by its current owner, so relocated extension
// methods read as members of the type they extend.
func memberDisplay(owner, n *Node) string {
	typ := markdown.DisplayName(owner.UID)
	name := markdown.CleanName(n.Name)
	if name == "" || name == "#ctor" || name == "#cctor" {
		return typ
	}
	return typ + "." + name
}

// Lookup returns the descriptor for uid.
func (idx *Index) Lookup(uid string) (Descriptor, bool) {
	d, ok := idx.byUID[uid]
	return d, ok
}

// Len returns the number of indexed symbols.
func (idx *Index) Len() int {
	return len(idx.byUID)
}

var anchorUnsafeRe = regexp.MustCompile(`[^a-z0-9]+`)

// Anchor turns a uid into a fragment-safe slug, e.g. "T:Ns.Type" → "t-ns-type".
func Anchor(uid string) string {
	return strings.Trim(anchorUnsafeRe.ReplaceAllString(strings.ToLower(uid), "-"), "-")
}

// symbolPrefixes are tried, in order, for crefs written without a kind prefix.
var symbolPrefixes = []string{"T:", "M:", "P:", "F:", "E:", "N:"}

// uidRe splits a documentation id into its kind prefix and name.
var uidRe = regexp.MustCompile(`^([A-Z!]):(.+)$`)

// ResolverOptions configures the external heuristics of a Resolver.
type ResolverOptions struct {
	ExternalBaseURL  string
	ExternalPrefixes []string
	// Keywords overrides entries of the built-in keyword dictionary.
	Keywords map[string]string
}

// Resolver classifies and resolves reference tokens against an Index. It
// implements markdown.Linker and holds no mutable state.
type Resolver struct {
	index    *Index
	baseURL  string
	prefixes []string
	keywords map[string]string
}

// NewResolver returns a resolver over idx.
func NewResolver(idx *Index, opts ResolverOptions) *Resolver {
	base := opts.ExternalBaseURL
	if base == "" {
		base = DefaultExternalBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	prefixes := opts.ExternalPrefixes
	if prefixes == nil {
		prefixes = DefaultExternalPrefixes
	}
	if idx == nil {
		idx = &Index{}
	}
	return &Resolver{
		index:    idx,
		baseURL:  base,
		prefixes: prefixes,
		keywords: keywordTable(opts.Keywords),
	}
}

// Resolve returns ref with its state and target set. The result depends only
// on ref.Kind, ref.Raw and the index, so resolving twice gives the same answer.
func (r *Resolver) Resolve(ref Reference) Reference {
	ref.Target = ""
	raw := strings.TrimSpace(ref.Raw)
	switch ref.Kind {
	case RefSymbol:
		if d, ok := r.lookup(raw); ok {
			ref.State, ref.Target = StateInternal, d.Anchor
		} else if url := r.ExternalURL(raw); url != "" {
			ref.State, ref.Target = StateExternal, url
		} else {
			ref.State = StateUnresolved
		}
	case RefExternal:
		if raw == "" {
			ref.State = StateUnresolved
		} else {
			ref.State, ref.Target = StateExternal, raw
		}
	case RefKeyword:
		if url, ok := r.keywords[strings.ToLower(raw)]; ok {
			ref.State, ref.Target = StateExternal, url
		} else {
			ref.State = StateUnresolved
		}
	default:
		ref.State = StateUnresolved
	}
	return ref
}

// ResolveReferences resolves a curated reference collection, returning a new
// slice; the input is not modified.
func (r *Resolver) ResolveReferences(refs []Reference) []Reference {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Reference, len(refs))
	for i, ref := range refs {
		out[i] = r.Resolve(ref)
	}
	return out
}

// ResolveLink implements markdown.Linker for inline cross-reference tags.
func (r *Resolver) ResolveLink(kind markdown.RefKind, payload string) markdown.Link {
	ref := r.Resolve(Reference{Raw: payload, Kind: refKindOf(kind)})
	link := markdown.Link{Text: strings.TrimSpace(payload)}
	if kind == markdown.RefSymbol {
		link.Text = markdown.DisplayName(payload)
		if d, ok := r.lookup(strings.TrimSpace(payload)); ok {
			link.Text = d.Display
		}
	}
	if ref.State != StateUnresolved {
		link.URL = ref.Target
	}
	return link
}

func (r *Resolver) lookup(raw string) (Descriptor, bool) {
	if d, ok := r.index.Lookup(raw); ok {
		return d, true
	}
	if uidRe.MatchString(raw) {
		return Descriptor{}, false
	}
	for _, prefix := range symbolPrefixes {
		if d, ok := r.index.Lookup(prefix + raw); ok {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ExternalURL returns the external documentation URL for a well-known symbol,
// or "" when the symbol is not in a recognized namespace. Type generic arity
// becomes "-N" and member parameter lists are dropped, following the
// learn.microsoft.com URL scheme.
func (r *Resolver) ExternalURL(raw string) string {
	kind, name := "T", raw
	if m := uidRe.FindStringSubmatch(raw); m != nil {
		kind, name = m[1], m[2]
	}
	if kind == "!" || name == "" {
		return ""
	}
	if !r.isExternal(name) {
		return ""
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if kind != "T" && kind != "N" {
		if i := strings.Index(name, "``"); i >= 0 {
			name = name[:i]
		}
	}
	name = strings.ReplaceAll(name, "`", "-")
	return r.baseURL + strings.ToLower(name)
}

func (r *Resolver) isExternal(name string) bool {
	for _, p := range r.prefixes {
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

func refKindOf(kind markdown.RefKind) RefKind {
	switch kind {
	case markdown.RefHref:
		return RefExternal
	case markdown.RefKeyword:
		return RefKeyword
	default:
		return RefSymbol
	}
}

// Recorder wraps a Resolver and keeps the inline references it resolved, so
// they can be stored on the entity being rewritten. A Recorder belongs to a
// single worker.
type Recorder struct {
	resolver *Resolver
	seen     map[Reference]bool
	refs     []Reference
}

// NewRecorder returns a recorder resolving through r.
func NewRecorder(r *Resolver) *Recorder {
	return &Recorder{resolver: r, seen: make(map[Reference]bool)}
}

// ResolveLink implements markdown.Linker.
func (rec *Recorder) ResolveLink(kind markdown.RefKind, payload string) markdown.Link {
	link := rec.resolver.ResolveLink(kind, payload)
	ref := rec.resolver.Resolve(Reference{Raw: strings.TrimSpace(payload), Kind: refKindOf(kind)})
	if !rec.seen[ref] {
		rec.seen[ref] = true
		rec.refs = append(rec.refs, ref)
	}
	return link
}

// References returns the distinct inline references seen so far, in order.
func (rec *Recorder) References() []Reference {
	return rec.refs
}
