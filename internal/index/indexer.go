// Package index runs scan passes: it turns declarations into registered elements and
// reconciles the validity of elements that were not confirmed again.
package index

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"specgraph/internal/cache"
	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/factory"
	"specgraph/internal/logging"
	"specgraph/internal/registry"
	"specgraph/internal/typename"
)

// Host is the element store a pass registers new elements in.
type Host interface {
	registry.ElementRegistry
	Add(project string, e element.Element)
}

// Options names the containers that make a field a specification or a behavior.
type Options struct {
	SpecificationContainer string
	BehaviorContainer      string
}

// DefaultOptions matches specgraph/pkg/spec.
func DefaultOptions() Options {
	return Options{SpecificationContainer: "It", BehaviorContainer: "Behaves"}
}

// Indexer orchestrates scan passes for one project session.
type Indexer struct {
	project   string
	cache     *cache.ElementCache
	host      Host
	contexts  *factory.ContextFactory
	behaviors *factory.BehaviorFactory
	specs     *factory.SpecificationFactory
	opts      Options
	logger    *log.Logger
}

// NewIndexer creates an indexer bound to the cache's project.
func NewIndexer(c *cache.ElementCache, host Host, opts Options, logger *log.Logger) *Indexer {
	logger = logging.OrDiscard(logger)
	project := c.Project()
	return &Indexer{
		project:   project,
		cache:     c,
		host:      host,
		contexts:  factory.NewContextFactory(project, c, host, logger),
		behaviors: factory.NewBehaviorFactory(project, c, host, logger),
		specs:     factory.NewSpecificationFactory(project, host, logger),
		opts:      opts,
		logger:    logger,
	}
}

// Project is the registry scope the indexer writes to.
func (ix *Indexer) Project() string { return ix.project }

// Pass runs a source scan pass over decls.
//
// Contexts are resolved first, then the behaviors and specifications of each context, then
// the behavior and context sweeps. Cached declarations that were not seen again and whose
// element lies in one of files are treated as removed; a nil files covers every file.
// A cancelled pass stops between contexts and returns ctx.Err() with the partial report.
func (ix *Indexer) Pass(ctx context.Context, decls []*declaration.Type, files []string) (*Report, error) {
	report := &Report{}
	table := typeTable(decls)
	seenContexts := make(map[declaration.Handle]bool)
	seenBehaviors := make(map[declaration.Handle]bool)

	for _, t := range decls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if t.Origin != declaration.Source || !ix.isContext(t) {
			continue
		}

		c := ix.contexts.CreateFromSource(t)
		if c == nil {
			continue
		}
		seenContexts[t.Handle] = true
		ix.confirm(report, c, element.Location{File: t.File, StartLine: t.StartLine, EndLine: t.EndLine})

		for _, f := range t.Fields {
			switch {
			case f.Type.Is(ix.opts.SpecificationContainer):
				if s := ix.specs.CreateContextSpecification(c, f); s != nil {
					ix.confirm(report, s, fieldLocation(t, f))
				}

			case f.Type.Is(ix.opts.BehaviorContainer):
				b := ix.behaviors.CreateFromSource(f)
				if b == nil {
					continue
				}
				seenBehaviors[f.Handle] = true
				ix.confirm(report, b, fieldLocation(t, f))
				ix.behaviorSpecifications(report, b, table[b.FieldType()])

				report.invalidated(pendingDescendants(b))
				ix.behaviors.MarkChildrenInvalidated(f.Handle)
			}
		}

		report.invalidated(pendingDescendants(c))
		ix.contexts.MarkChildrenInvalidated(t.Handle)
	}

	ix.sweepDisappeared(report, seenContexts, seenBehaviors, files)

	ix.logger.Debug("pass finished",
		"contexts", report.Contexts,
		"behaviors", report.Behaviors,
		"specifications", report.Specifications,
		"invalidated", len(report.Invalidated))
	return report, nil
}

// PassMetadata confirms elements from metadata declarations. It neither opens nor sweeps
// a pass: children are not marked Pending and the cache is left alone.
func (ix *Indexer) PassMetadata(ctx context.Context, decls []*declaration.Type) (*Report, error) {
	report := &Report{}
	table := typeTable(decls)

	for _, t := range decls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if t.Origin != declaration.Metadata || !ix.isContext(t) {
			continue
		}

		c := ix.contexts.CreateFromMetadata(t)
		if c == nil {
			continue
		}
		ix.confirm(report, c, element.Location{File: t.File, StartLine: t.StartLine, EndLine: t.EndLine})

		for _, f := range t.Fields {
			switch {
			case f.Type.Is(ix.opts.SpecificationContainer):
				if s := ix.specs.CreateContextSpecification(c, f); s != nil {
					ix.confirm(report, s, fieldLocation(t, f))
				}

			case f.Type.Is(ix.opts.BehaviorContainer):
				b := ix.behaviors.CreateFromMetadata(c, f)
				if b == nil {
					continue
				}
				ix.confirm(report, b, fieldLocation(t, f))
				behaviors := f.FirstGenericArgument()
				if behaviors == nil {
					behaviors = table[b.FieldType()]
				}
				ix.behaviorSpecifications(report, b, behaviors)
			}
		}
	}
	return report, nil
}

func (ix *Indexer) behaviorSpecifications(report *Report, b *element.Behavior, behaviors *declaration.Type) {
	if behaviors == nil {
		ix.logger.Debug("behaviors type not found", "behavior", b.ID(), "type", b.FieldType())
		return
	}
	for _, f := range behaviors.Fields {
		if !f.Type.Is(ix.opts.SpecificationContainer) {
			continue
		}
		if s := ix.specs.CreateBehaviorSpecification(b, f); s != nil {
			ix.confirm(report, s, fieldLocation(behaviors, f))
		}
	}
}

// sweepDisappeared invalidates the subtrees of cached declarations that the pass did not
// visit and forgets them.
func (ix *Indexer) sweepDisappeared(report *Report, seenContexts, seenBehaviors map[declaration.Handle]bool, files []string) {
	covered := coverage(files)

	for _, h := range ix.cache.BehaviorHandles() {
		b, _ := ix.cache.Behavior(h)
		if seenBehaviors[h] || !covered(b) {
			continue
		}
		ix.disappear(report, h, b)
		ix.cache.DeleteBehavior(h)
	}
	for _, h := range ix.cache.ContextHandles() {
		c, _ := ix.cache.Context(h)
		if seenContexts[h] || !covered(c) {
			continue
		}
		ix.disappear(report, h, c)
		ix.cache.DeleteContext(h)
	}
}

func (ix *Indexer) disappear(report *Report, h declaration.Handle, e element.Element) {
	report.Disappeared = append(report.Disappeared, h)
	if e == nil {
		return
	}
	element.MarkSubtreePending(e)
	report.invalidated(pendingDescendants(e))
	element.InvalidatePending(e)
	report.invalidated([]string{e.ID()})
	element.Invalidate(e)
	ix.logger.Debug("declaration disappeared", "handle", h, "element", e.ID())
}

// confirm registers e if it is new, refreshes its location and counts it.
func (ix *Indexer) confirm(report *Report, e element.Element, loc element.Location) {
	if ix.host.ElementByID(ix.project, e.ID()) != e {
		ix.host.Add(ix.project, e)
		report.Created = append(report.Created, e.ID())
	} else {
		report.Reused++
	}
	e.SetLocation(loc)

	switch e.Kind() {
	case element.KindContext:
		report.Contexts++
	case element.KindBehavior:
		report.Behaviors++
	default:
		report.Specifications++
	}
}

// isContext reports whether t declares at least one specification or behavior and may
// hold them.
func (ix *Indexer) isContext(t *declaration.Type) bool {
	if !t.IsStruct || t.Generic || t.Behaviors {
		return false
	}
	for _, f := range t.Fields {
		if f.Type.Is(ix.opts.SpecificationContainer) || f.Type.Is(ix.opts.BehaviorContainer) {
			return true
		}
	}
	return false
}

func typeTable(decls []*declaration.Type) map[string]*declaration.Type {
	table := make(map[string]*declaration.Type, len(decls))
	for _, t := range decls {
		table[typename.Qualified(t.Package, t.Name)] = t
	}
	return table
}

func fieldLocation(owner *declaration.Type, f *declaration.Field) element.Location {
	return element.Location{File: owner.File, StartLine: f.Line, EndLine: f.Line}
}

func coverage(files []string) func(element.Element) bool {
	if files == nil {
		return func(element.Element) bool { return true }
	}
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return func(e element.Element) bool {
		return e != nil && set[e.Location().File]
	}
}

func pendingDescendants(e element.Element) []string {
	var ids []string
	for _, d := range element.Flatten(e) {
		if d.State() == element.Pending {
			ids = append(ids, d.ID())
		}
	}
	return ids
}

// Report summarises a pass.
type Report struct {
	Contexts       int
	Behaviors      int
	Specifications int
	Reused         int
	Created        []string
	Invalidated    []string
	Disappeared    []declaration.Handle

	seen map[string]bool
}

func (r *Report) invalidated(ids []string) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	for _, id := range ids {
		if !r.seen[id] {
			r.seen[id] = true
			r.Invalidated = append(r.Invalidated, id)
		}
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("%d contexts, %d behaviors, %d specifications (%d new, %d invalidated)",
		r.Contexts, r.Behaviors, r.Specifications, len(r.Created), len(r.Invalidated))
}
