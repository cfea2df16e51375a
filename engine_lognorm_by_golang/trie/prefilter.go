package trie

import (
	ac "github.com/petar-dambovaliev/aho-corasick"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

//
// Anchor prefilter: every line a rule matches contains the rule's longest
// literal segment. One Aho-Corasick scan over all anchors rejects lines that
// no rule can match without walking the trie.
//

// -------------------- Statistics --------------------

type PrefilterStats struct {
	// Distinct anchors in the automaton
	PatternCount int `json:"pattern_count"`
	// Rules that contributed an anchor
	RuleCount int `json:"rule_count"`
	// Rules with no literal segment; any of these disables the prefilter
	UnanchoredRules int `json:"unanchored_rules"`
	// Shortest anchor length; short anchors filter little
	MinAnchorLen int `json:"min_anchor_len"`
}

// IsEffective: enough distinct anchors that are not trivially short.
func (s PrefilterStats) IsEffective() bool {
	return s.UnanchoredRules == 0 && s.PatternCount >= 1 && s.MinAnchorLen >= 3
}

// -------------------- Prefilter --------------------

type Prefilter struct {
	ac       *ac.AhoCorasick
	patterns []string
	stats    PrefilterStats
}

// BuildPrefilter collects anchors from rules. The result is inactive when
// any rule has no anchor or there are no rules.
func BuildPrefilter(rules []*ir.Rule) *Prefilter {
	p := &Prefilter{}
	dedupe := make(map[string]struct{})
	for _, r := range rules {
		a := r.Anchor()
		if a == "" {
			p.stats.UnanchoredRules++
			continue
		}
		p.stats.RuleCount++
		if p.stats.MinAnchorLen == 0 || len(a) < p.stats.MinAnchorLen {
			p.stats.MinAnchorLen = len(a)
		}
		if _, ok := dedupe[a]; ok {
			continue
		}
		dedupe[a] = struct{}{}
		p.patterns = append(p.patterns, a)
	}
	p.stats.PatternCount = len(p.patterns)
	if p.stats.UnanchoredRules > 0 || len(p.patterns) == 0 {
		return p
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: false,
		MatchKind:            ac.LeftMostLongestMatch,
	})
	built := builder.Build(p.patterns)
	p.ac = &built
	return p
}

func (p *Prefilter) Active() bool          { return p != nil && p.ac != nil }
func (p *Prefilter) Stats() PrefilterStats { return p.stats }
func (p *Prefilter) Patterns() []string    { return append([]string(nil), p.patterns...) }

// MayMatch reports false only when no rule can match line. An inactive
// prefilter lets everything through.
func (p *Prefilter) MayMatch(line string) bool {
	if !p.Active() {
		return true
	}
	return len(p.ac.FindAll(line)) > 0
}
