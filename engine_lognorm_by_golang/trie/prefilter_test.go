package trie

import "testing"

func TestPrefilterActiveWhenAllRulesAnchored(t *testing.T) {
	s := build(t, nil, "connect from %ip:ipv4%", "%u:word% logged in", "disconnect %ip:ipv4%")
	pf := s.Prefilter()
	if !pf.Active() {
		t.Fatalf("prefilter should be active")
	}
	st := pf.Stats()
	if st.PatternCount != 3 || st.RuleCount != 3 || st.UnanchoredRules != 0 {
		t.Fatalf("stats: %+v", st)
	}
	if !pf.MayMatch("bob logged in") {
		t.Fatalf("line with anchor must pass")
	}
	if pf.MayMatch("something else entirely") {
		t.Fatalf("line without any anchor must be rejected")
	}
	if s.Prefilter() != pf {
		t.Fatalf("prefilter should be built once per snapshot")
	}
}

func TestPrefilterInactiveWithUnanchoredRule(t *testing.T) {
	s := build(t, nil, "connect from %ip:ipv4%", "%all:rest%")
	pf := s.Prefilter()
	if pf.Active() {
		t.Fatalf("a field-only rule must disable the prefilter")
	}
	if !pf.MayMatch("anything") {
		t.Fatalf("inactive prefilter passes everything")
	}
	if pf.Stats().UnanchoredRules != 1 {
		t.Fatalf("stats: %+v", pf.Stats())
	}
}

func TestPrefilterDedupesAnchors(t *testing.T) {
	s := build(t, nil, "port %p:number%", "port %p:word%x")
	if n := s.Prefilter().Stats().PatternCount; n != 1 {
		t.Fatalf("expected 1 distinct anchor, got %d", n)
	}
	if Empty().Prefilter().Active() {
		t.Fatalf("empty snapshot prefilter should be inactive")
	}
}

func TestSnapshotStats(t *testing.T) {
	s := build(t, nil, "a %x:word%", "b")
	st := s.Stats()
	if st.Rules != 2 || st.Generation != 1 {
		t.Fatalf("stats: %+v", st)
	}
	// root, node after "a ", node after field, node after "b"
	if st.Nodes != 4 || st.LiteralEdges != 2 || st.FieldEdges != 1 {
		t.Fatalf("shape: %+v", st)
	}
	if st.PrefilterActive || st.PrefilterPatterns != 0 || s.pf != nil {
		t.Fatalf("Stats must not build the prefilter: %+v", st)
	}
	st = s.StatsWithPrefilter()
	if !st.PrefilterActive || st.PrefilterPatterns != 2 || st.Nodes != 4 {
		t.Fatalf("prefilter stats: %+v", st)
	}
}
