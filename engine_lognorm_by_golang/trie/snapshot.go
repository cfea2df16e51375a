package trie

import (
	"sync"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

// Snapshot is an immutable view of a rule set. Readers hold a *Snapshot for the
// whole match; loads build a new one with a Builder.
type Snapshot struct {
	root        *Node
	rules       []*ir.Rule
	annotations []ir.Annotation
	generation  uint64

	pfOnce sync.Once
	pf     *Prefilter
}

var emptyRoot = &Node{}

// Empty is the snapshot of a fresh context.
func Empty() *Snapshot {
	return &Snapshot{root: emptyRoot}
}

func (s *Snapshot) Root() *Node                  { return s.root }
func (s *Snapshot) Generation() uint64           { return s.generation }
func (s *Snapshot) RuleCount() int               { return len(s.rules) }
func (s *Snapshot) Rules() []*ir.Rule            { return s.rules }
func (s *Snapshot) Annotations() []ir.Annotation { return s.annotations }

// Rule returns the rule with the given insertion id.
func (s *Snapshot) Rule(id ir.RuleId) (*ir.Rule, bool) {
	if int(id) >= len(s.rules) {
		return nil, false
	}
	return s.rules[id], true
}

// AnnotationsFor returns the constant fields added to results of r, in load order.
func (s *Snapshot) AnnotationsFor(r *ir.Rule) []ir.Entry {
	if len(r.Tags) == 0 || len(s.annotations) == 0 {
		return nil
	}
	var out []ir.Entry
	for _, a := range s.annotations {
		if r.HasTag(a.Tag) {
			out = append(out, a.Fields...)
		}
	}
	return out
}

// Prefilter is built on first use and cached for the lifetime of the snapshot.
func (s *Snapshot) Prefilter() *Prefilter {
	s.pfOnce.Do(func() { s.pf = BuildPrefilter(s.rules) })
	return s.pf
}

// Stats walks the trie once. It leaves the prefilter fields zero and never
// builds the automaton; see StatsWithPrefilter.
func (s *Snapshot) Stats() Stats {
	nodes, lits, fields := countNodes(s.root)
	return Stats{
		Rules:        len(s.rules),
		Nodes:        nodes,
		LiteralEdges: lits,
		FieldEdges:   fields,
		Annotations:  len(s.annotations),
		Generation:   s.generation,
	}
}

// StatsWithPrefilter is Stats plus the prefilter fields, building the
// automaton if it does not exist yet.
func (s *Snapshot) StatsWithPrefilter() Stats {
	st := s.Stats()
	pf := s.Prefilter()
	st.PrefilterActive = pf.Active()
	st.PrefilterPatterns = pf.Stats().PatternCount
	return st
}

// ---------- Builder ----------

// Builder stages rules on top of a base snapshot. Nothing is visible to
// readers until Build returns and the caller publishes the result.
type Builder struct {
	base        *Snapshot
	root        *Node
	rules       []*ir.Rule
	annotations []ir.Annotation
	reg         *fieldtype.Registry
	opts        ir.CtxOpt
}

func NewBuilder(base *Snapshot, reg *fieldtype.Registry, opts ir.CtxOpt) *Builder {
	if base == nil {
		base = Empty()
	}
	if reg == nil {
		reg = fieldtype.Default()
	}
	return &Builder{
		base: base,
		root: base.root,
		// fresh backing arrays: a parent and its child may both extend the same base
		rules:       append(make([]*ir.Rule, 0, len(base.rules)), base.rules...),
		annotations: append(make([]ir.Annotation, 0, len(base.annotations)), base.annotations...),
		reg:         reg,
		opts:        opts,
	}
}

// Add compiles the rule's field extractors, assigns its id and inserts it.
func (b *Builder) Add(rule *ir.Rule) error {
	fns := make([]fieldtype.ExtractFn, 0, len(rule.Segments))
	for _, s := range rule.Segments {
		if s.Kind != ir.SegField {
			continue
		}
		fn, err := b.reg.CompileField(s.Field, b.opts)
		if err != nil {
			return &ir.SyntaxError{Source: rule.Loc.Source, Line: rule.Loc.Line, Column: s.Column,
				Reason: "bad field " + s.Field.Name, Err: err}
		}
		fns = append(fns, fn)
	}
	r := rule.Clone()
	r.RuleId = ir.RuleId(len(b.rules))
	root, err := Insert(b.root, r, fns)
	if err != nil {
		return err
	}
	b.root = root
	b.rules = append(b.rules, r)
	return nil
}

func (b *Builder) AddAnnotations(as ...ir.Annotation) {
	b.annotations = append(b.annotations, as...)
}

// Pending is the number of rules added since NewBuilder.
func (b *Builder) Pending() int { return len(b.rules) - len(b.base.rules) }

// Build returns the new snapshot with the next generation number.
func (b *Builder) Build() *Snapshot {
	return &Snapshot{
		root:        b.root,
		rules:       b.rules,
		annotations: b.annotations,
		generation:  b.base.generation + 1,
	}
}
