// Package pipeline runs the documentation transformation over a whole graph:
// extension relocation, index construction, then a parallel per-entity
// rewrite of every text field and reference collection.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout is wrapped by EntityError when an entity exceeds EntityTimeout.
var ErrTimeout = errors.New("entity transform timed out")

// Options configures a Run.
type Options struct {
	Relocate docs.RelocateOptions
	Resolver docs.ResolverOptions
	// Markup.Linker is ignored; each entity is rewritten through its own
	// recorder over the run's resolver.
	Markup markdown.Options
	// Workers bounds the number of entities rewritten at once. Zero means
	// GOMAXPROCS.
	Workers int
	// EntityTimeout bounds the rewrite of a single entity. Zero disables it.
	EntityTimeout time.Duration
}

// EntityError is a failure isolated to one entity. The entity keeps its
// original text.
type EntityError struct {
	ID  docs.ID
	UID string
	Err error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %s: %v", e.UID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Unresolved is a reference that could not be resolved, with the entity it
// was found on.
type Unresolved struct {
	Entity string
	Ref    docs.Reference
}

// Report summarizes a Run.
type Report struct {
	Entities   int
	Rewritten  int
	Relocation docs.RelocationReport
	Unresolved []Unresolved
	Failures   []*EntityError
	// Index is the resolution index the run used, for building pages and
	// link maps afterwards.
	Index *docs.Index
}

// Err joins every entity failure, or returns nil when there were none.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// result is the detached outcome of rewriting one entity.
type result struct {
	docs       docs.Docs
	references []docs.Reference
	inline     []docs.Reference
}

// Run transforms g in place. Entity failures are collected in the report and
// never stop the batch; the returned error is non-nil only when ctx is
// cancelled, in which case entities not yet processed keep their text.
func Run(ctx context.Context, g *docs.Graph, opts Options) (*Report, error) {
	report := &Report{}
	report.Relocation = docs.RelocateExtensions(g, opts.Relocate)
	slog.Debug("relocated extension members",
		"moved", len(report.Relocation.Moved),
		"placeholders", len(report.Relocation.Placeholders),
		"removed", len(report.Relocation.Removed))

	report.Index = docs.BuildIndex(g)
	resolver := docs.NewResolver(report.Index, opts.Resolver)

	ids := g.Reachable()
	report.Entities = len(ids)
	failures := make([]*EntityError, len(ids))
	done := make([]bool, len(ids))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		n := g.Node(id)
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := transformEntity(gctx, n, resolver, opts)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = &EntityError{ID: n.ID, UID: entityName(n), Err: err}
				slog.Debug("entity transform failed", "entity", entityName(n), "error", err)
				return nil
			}
			n.Docs = res.docs
			n.References = res.references
			n.Inline = res.inline
			done[i] = true
			return nil
		})
	}
	err := eg.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for i, id := range ids {
		if failures[i] != nil {
			report.Failures = append(report.Failures, failures[i])
		}
		if !done[i] {
			continue
		}
		report.Rewritten++
		n := g.Node(id)
		for _, refs := range [][]docs.Reference{n.References, n.Inline} {
			for _, ref := range refs {
				if ref.State == docs.StateUnresolved {
					report.Unresolved = append(report.Unresolved, Unresolved{Entity: entityName(n), Ref: ref})
				}
			}
		}
	}

	slog.Debug("pipeline finished",
		"entities", report.Entities,
		"rewritten", report.Rewritten,
		"unresolved", len(report.Unresolved),
		"failures", len(report.Failures))
	if err != nil {
		return report, fmt.Errorf("pipeline cancelled: %w", err)
	}
	return report, nil
}

// transformEntity rewrites a copy of n's fields and resolves its references.
// The work runs on its own goroutine so a timeout can abandon it; an
// abandoned rewrite only ever touches its own copy.
func transformEntity(ctx context.Context, n *docs.Node, resolver *docs.Resolver, opts Options) (*result, error) {
	if opts.EntityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, opts.EntityTimeout, ErrTimeout)
		defer cancel()
	}

	in := n.Docs.Clone()
	refs, inline := n.References, n.Inline
	fn := rewriteEntity
	type outcome struct {
		res *result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res := fn(in, refs, inline, resolver, opts.Markup)
		ch <- outcome{res: res}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// rewriteEntity is replaced in tests to simulate failing entities.
var rewriteEntity = rewrite

// rewrite works on detached copies only. Inline references recorded by an
// earlier run are kept, since their tags are no longer in the text.
func rewrite(d docs.Docs, refs, inline []docs.Reference, resolver *docs.Resolver, markup markdown.Options) *result {
	rec := docs.NewRecorder(resolver)
	markup.Linker = rec
	for _, field := range d.Fields() {
		if *field != "" {
			*field = markdown.Rewrite(*field, markup)
		}
	}
	return &result{
		docs:       d,
		references: resolver.ResolveReferences(refs),
		inline:     mergeReferences(resolver.ResolveReferences(inline), rec.References()),
	}
}

func mergeReferences(a, b []docs.Reference) []docs.Reference {
	if len(b) == 0 {
		return a
	}
	out := a
	for _, ref := range b {
		if !slices.Contains(out, ref) {
			out = append(out, ref)
		}
	}
	return out
}

// entityName returns the uid of n, or its name for nodes without one.
func entityName(n *docs.Node) string {
	if n.UID != "" {
		return n.UID
	}
	return n.Kind.String() + ":" + n.Name
}
