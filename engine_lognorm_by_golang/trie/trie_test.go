package trie

import (
	"testing"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/compiler"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

func mustRule(t *testing.T, sample string, line int) *ir.Rule {
	t.Helper()
	r, err := compiler.ParseRule(sample, ir.Location{Line: line}, fieldtype.Default(), 0)
	if err != nil {
		t.Fatalf("parse %q: %v", sample, err)
	}
	return r
}

func build(t *testing.T, base *Snapshot, samples ...string) *Snapshot {
	t.Helper()
	b := NewBuilder(base, nil, 0)
	for i, s := range samples {
		if err := b.Add(mustRule(t, s, i+1)); err != nil {
			t.Fatalf("add %q: %v", s, err)
		}
	}
	return b.Build()
}

func TestLiteralPrefixSharing(t *testing.T) {
	s := build(t, nil, "user login ok", "user logout ok", "admin")
	root := s.Root()
	if len(root.Literals) != 2 {
		t.Fatalf("root should have 2 literal edges (a, u), got %d", len(root.Literals))
	}
	if root.Literals[0].Label != "admin" || root.Literals[1].Label != "user log" {
		t.Fatalf("labels: %q %q", root.Literals[0].Label, root.Literals[1].Label)
	}
	mid := root.Literals[1].Child
	if len(mid.Literals) != 2 || mid.Literals[0].Label != "in ok" || mid.Literals[1].Label != "out ok" {
		t.Fatalf("split node: %#v", mid.Literals)
	}
	if !mid.Literals[0].Child.IsTerminal() || mid.Literals[0].Child.Terminal[0].RuleId != 0 {
		t.Fatalf("first rule should terminate below 'in ok'")
	}
}

func TestSplitAtShorterLiteral(t *testing.T) {
	s := build(t, nil, "abcdef", "abc")
	e, ok := s.Root().LiteralFor("abcdef")
	if !ok || e.Label != "abc" {
		t.Fatalf("expected split edge 'abc', got %#v", e)
	}
	if !e.Child.IsTerminal() || e.Child.Terminal[0].RuleId != 1 {
		t.Fatalf("'abc' should terminate at split node")
	}
	if e2, ok := e.Child.LiteralFor("def"); !ok || e2.Label != "def" || !e2.Child.IsTerminal() {
		t.Fatalf("remainder edge missing")
	}
}

func TestIdenticalFieldsShareEdge(t *testing.T) {
	s := build(t, nil, "id %n:number% a", "id %n:number% b", "id %n:word% c")
	e, _ := s.Root().LiteralFor("id ")
	f := e.Child.Fields
	if len(f) != 2 {
		t.Fatalf("expected 2 field edges, got %d", len(f))
	}
	if f[0].Field.Type != "number" || f[1].Field.Type != "word" {
		t.Fatalf("field edges must keep insertion order: %v %v", f[0].Field, f[1].Field)
	}
	sp, ok := f[0].Child.LiteralFor(" ")
	if !ok || sp.Label != " " || len(sp.Child.Literals) != 2 {
		t.Fatalf("shared number edge should branch into a/b after ' ', got %#v", f[0].Child.Literals)
	}
}

func TestTerminalKeepsInsertionOrder(t *testing.T) {
	s := build(t, nil, "same %x:word%", "same %x:word%")
	e, _ := s.Root().LiteralFor("same ")
	term := e.Child.Fields[0].Child.Terminal
	if len(term) != 2 || term[0].RuleId != 0 || term[1].RuleId != 1 {
		t.Fatalf("terminal order: %#v", term)
	}
}

func TestInsertIsPersistent(t *testing.T) {
	base := build(t, nil, "alpha %a:word%", "beta")
	before := base.Stats()

	next := build(t, base, "alpha %b:number%", "alphabet", "gamma")
	if base.RuleCount() != 2 {
		t.Fatalf("base rules changed: %d", base.RuleCount())
	}
	after := base.Stats()
	if before.Nodes != after.Nodes || before.LiteralEdges != after.LiteralEdges || before.FieldEdges != after.FieldEdges {
		t.Fatalf("base trie mutated: %+v -> %+v", before, after)
	}
	if next.RuleCount() != 5 || next.Generation() != base.Generation()+1 {
		t.Fatalf("next: rules=%d gen=%d", next.RuleCount(), next.Generation())
	}
	// untouched subtree is shared, not copied
	b1, _ := base.Root().LiteralFor("beta")
	b2, _ := next.Root().LiteralFor("beta")
	if b1.Child != b2.Child {
		t.Fatalf("unchanged subtree should be shared")
	}
}

func TestSiblingBuildersDoNotAlias(t *testing.T) {
	base := build(t, nil, "x")
	// two builders extending the same base, as a parent and child would
	left := build(t, base, "left")
	right := build(t, base, "right")
	if left.RuleCount() != 2 || right.RuleCount() != 2 {
		t.Fatalf("counts: %d %d", left.RuleCount(), right.RuleCount())
	}
	if left.Rules()[1].Mockup != "left" || right.Rules()[1].Mockup != "right" {
		t.Fatalf("rule slices aliased: %q %q", left.Rules()[1].Mockup, right.Rules()[1].Mockup)
	}
	if _, ok := left.Root().LiteralFor("right"); ok {
		t.Fatalf("left sees right's rule")
	}
}

func TestBuilderDoesNotMutateCallerRule(t *testing.T) {
	r := mustRule(t, "abc", 1)
	r.RuleId = 42
	b := NewBuilder(nil, nil, 0)
	b.Add(mustRule(t, "zzz", 1))
	if err := b.Add(r); err != nil {
		t.Fatal(err)
	}
	if r.RuleId != 42 {
		t.Fatalf("caller rule mutated")
	}
	if got, _ := b.Build().Rule(1); got.RuleId != 1 {
		t.Fatalf("stored rule id: %d", got.RuleId)
	}
}

func TestBuilderRejectsDisabledType(t *testing.T) {
	r := &ir.Rule{Segments: []ir.Segment{ir.FieldSegment(ir.NewField("r", "regex", "a+"))}}
	if err := NewBuilder(nil, nil, 0).Add(r); err == nil {
		t.Fatalf("regex without ALLOW_REGEX must be rejected")
	}
	if err := NewBuilder(nil, nil, ir.OptAllowRegex).Add(r); err != nil {
		t.Fatalf("regex with ALLOW_REGEX: %v", err)
	}
}

func TestInsertExtractorCountMismatch(t *testing.T) {
	r := mustRule(t, "%a:word%", 1)
	if _, err := Insert(Empty().Root(), r, nil); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestAnnotationsFor(t *testing.T) {
	b := NewBuilder(nil, nil, 0)
	r := mustRule(t, "x", 1)
	r.Tags = []string{"net"}
	b.Add(r)
	b.AddAnnotations(
		ir.Annotation{Tag: "net", Fields: []ir.Entry{{Key: "a", Value: "1"}}},
		ir.Annotation{Tag: "other", Fields: []ir.Entry{{Key: "b", Value: "2"}}},
		ir.Annotation{Tag: "net", Fields: []ir.Entry{{Key: "c", Value: "3"}}},
	)
	s := b.Build()
	got := s.AnnotationsFor(s.Rules()[0])
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "c" {
		t.Fatalf("annotations: %#v", got)
	}
}
