// Package library publishes transformed graphs as Markdown pages and answers
// lookups against what was published.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jcdickinson/xmldocmd/internal/cas"
	"github.com/jcdickinson/xmldocmd/internal/db"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when a uid or fragment is not in the library.
var ErrNotFound = errors.New("not found")

// Library ties the entity database to the page store.
type Library struct {
	db    *db.DB
	store *cas.Store

	graphsMu  sync.RWMutex
	graphs    map[string]*loadedGraph
	loadGroup singleflight.Group
}

// loadedGraph is a cached graph dump with the lookups page rendering needs.
type loadedGraph struct {
	g     *docs.Graph
	links map[string]string
	byUID map[string]docs.ID
}

func New(database *db.DB, store *cas.Store) *Library {
	return &Library{
		db:     database,
		store:  store,
		graphs: make(map[string]*loadedGraph),
	}
}

// PublishResult counts what Publish stored.
type PublishResult struct {
	Source   *db.Source
	Entities int
	Pages    int
	Refs     int
}

// Publish renders a page for every type and member of g into the page store
// and replaces the source's entities and references in the database.
// graphPath is where the transformed graph is cached, for fragment reads.
func (l *Library) Publish(name string, g *docs.Graph, graphPath string) (*PublishResult, error) {
	src, err := l.db.UpsertSource(name, graphPath)
	if err != nil {
		return nil, err
	}

	idx := docs.BuildIndex(g)
	links := docs.LinkMap(idx)
	result := &PublishResult{Source: src}

	var entities []db.Entity
	var refs []db.Ref
	for _, id := range g.Reachable() {
		n := g.Node(id)
		e := db.Entity{
			UID:     n.UID,
			Name:    n.Name,
			Display: n.Name,
			Kind:    entityKind(n),
			Owner:   n.UID,
		}
		if d, ok := idx.Lookup(n.UID); ok {
			e.Display = d.Display
			if d.Owner != "" {
				e.Owner = d.Owner
			}
		}
		if n.Member != nil {
			e.Signature = n.Member.Signature
		}

		if n.Kind == docs.KindType || n.Kind == docs.KindMember {
			page, err := docs.BuildPage(g, id)
			if err != nil {
				return nil, err
			}
			hash, err := l.store.Put(markdown.RewriteLinks(page.Content, links))
			if err != nil {
				return nil, fmt.Errorf("storing page for %s: %w", n.UID, err)
			}
			e.ContentHash = hash
			result.Pages++

			if len(page.Fragments) > 0 {
				names := make([]string, len(page.Fragments))
				for i, f := range page.Fragments {
					names[i] = f.Name
				}
				b, _ := json.Marshal(names)
				e.FragmentNames = string(b)
			}
		}
		entities = append(entities, e)

		refs = appendRefs(refs, n.UID, n.References, false)
		refs = appendRefs(refs, n.UID, n.Inline, true)
	}

	if err := l.db.ReplaceEntities(src.ID, entities, refs); err != nil {
		return nil, err
	}
	if err := l.db.MarkSourceProcessed(src.ID); err != nil {
		return nil, fmt.Errorf("marking source processed: %w", err)
	}

	// A republished source must not be served from a stale cached graph.
	l.graphsMu.Lock()
	delete(l.graphs, graphPath)
	l.graphsMu.Unlock()

	result.Entities = len(entities)
	result.Refs = len(refs)
	slog.Debug("published source", "source", name, "entities", result.Entities, "pages", result.Pages, "refs", result.Refs)
	return result, nil
}

func appendRefs(out []db.Ref, uid string, refs []docs.Reference, inline bool) []db.Ref {
	for _, r := range refs {
		out = append(out, db.Ref{
			EntityUID: uid,
			Raw:       r.Raw,
			Label:     r.Label,
			Kind:      r.Kind.String(),
			State:     r.State.String(),
			Target:    r.Target,
			Inline:    inline,
		})
	}
	return out
}

func entityKind(n *docs.Node) string {
	switch {
	case n.Type != nil:
		return n.Type.Kind.String()
	case n.Member != nil:
		return n.Member.Kind.String()
	default:
		return n.Kind.String()
	}
}

// GetDoc returns the page for uid. With a fragment name, only that section
// is rendered, from the cached graph. Full pages list their fragments in
// front matter.
func (l *Library) GetDoc(uid, fragment string) (string, error) {
	e, err := l.db.GetEntity(uid)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", uid, err)
	}
	if e == nil {
		return "", fmt.Errorf("entity %s: %w", uid, ErrNotFound)
	}

	if fragment != "" {
		return l.fragment(e, fragment)
	}

	if e.ContentHash == "" {
		return "", fmt.Errorf("entity %s has no page: %w", uid, ErrNotFound)
	}
	text, err := l.store.Get(e.ContentHash)
	if err != nil {
		return "", err
	}

	if e.FragmentNames != "" {
		var fragNames []string
		if err := json.Unmarshal([]byte(e.FragmentNames), &fragNames); err != nil {
			slog.Warn("failed to unmarshal fragment names", "uid", uid, "error", err)
		} else if len(fragNames) > 0 {
			fragURIs := make(map[string]string, len(fragNames))
			for _, name := range fragNames {
				fragURIs[name] = docs.URI(uid) + "#" + name
			}
			text = markdown.AddFrontMatter(text, fragURIs)
		}
	}
	return text, nil
}

func (l *Library) fragment(e *db.Entity, name string) (string, error) {
	src, err := l.db.GetSourceByID(e.SourceID)
	if err != nil {
		return "", err
	}
	if src == nil || src.GraphPath == "" {
		return "", fmt.Errorf("no cached graph for %s", e.UID)
	}
	lg, err := l.graph(src.GraphPath)
	if err != nil {
		return "", err
	}
	id, ok := lg.byUID[e.UID]
	if !ok {
		return "", fmt.Errorf("entity %s is not in the cached graph: %w", e.UID, ErrNotFound)
	}
	page, err := docs.BuildPage(lg.g, id)
	if err != nil {
		return "", err
	}
	for _, f := range page.Fragments {
		if f.Name == name {
			return markdown.RewriteLinks(f.Content, lg.links), nil
		}
	}
	return "", fmt.Errorf("fragment #%s of %s: %w", name, e.UID, ErrNotFound)
}

// graph returns a cached graph dump, checking memory first then disk.
// Concurrent loads of the same dump are collapsed.
func (l *Library) graph(path string) (*loadedGraph, error) {
	l.graphsMu.RLock()
	lg, ok := l.graphs[path]
	l.graphsMu.RUnlock()
	if ok {
		return lg, nil
	}

	v, err, _ := l.loadGroup.Do(path, func() (any, error) {
		g, err := docs.LoadGraph(path)
		if err != nil {
			return nil, err
		}
		lg := &loadedGraph{
			g:     g,
			links: docs.LinkMap(docs.BuildIndex(g)),
			byUID: make(map[string]docs.ID),
		}
		g.Walk(func(n *docs.Node) bool {
			lg.byUID[n.UID] = n.ID
			return true
		})

		l.graphsMu.Lock()
		l.graphs[path] = lg
		l.graphsMu.Unlock()
		return lg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading cached graph: %w", err)
	}
	return v.(*loadedGraph), nil
}

// SearchResult is one entity matching a search.
type SearchResult struct {
	URI     string `json:"uri"`
	UID     string `json:"uid"`
	Display string `json:"display"`
	Kind    string `json:"kind"`
}

// Search finds entities by uid or display name. URIs point at the page that
// documents each match.
func (l *Library) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	entities, err := l.db.SearchEntities(query, limit)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, len(entities))
	for i, e := range entities {
		uri := docs.URI(e.UID)
		if e.ContentHash == "" && e.Owner != "" {
			uri = docs.URI(e.Owner)
		}
		results[i] = SearchResult{URI: uri, UID: e.UID, Display: e.Display, Kind: e.Kind}
	}
	return results, nil
}

// UnresolvedRef is a reference the resolver could not place.
type UnresolvedRef struct {
	Entity string `json:"entity"`
	Raw    string `json:"raw"`
	Label  string `json:"label,omitempty"`
	Kind   string `json:"kind"`
	Inline bool   `json:"inline"`
}

// Unresolved lists unresolved references of the named source, or of every
// source when name is empty.
func (l *Library) Unresolved(name string, limit int) ([]UnresolvedRef, error) {
	if limit <= 0 {
		limit = 100
	}
	var sourceID int
	if name != "" {
		src, err := l.db.GetSource(name)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, fmt.Errorf("source %s: %w", name, ErrNotFound)
		}
		sourceID = src.ID
	}
	refs, err := l.db.ListUnresolved(sourceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UnresolvedRef, len(refs))
	for i, r := range refs {
		out[i] = UnresolvedRef{Entity: r.EntityUID, Raw: r.Raw, Label: r.Label, Kind: r.Kind, Inline: r.Inline}
	}
	return out, nil
}
