package trie

import (
	"fmt"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

// Insert returns a new root that contains rule. root is left untouched: only the
// nodes on the rule's path are copied, every other subtree is shared.
// fns holds one compiled extractor per field segment of rule, in order.
func Insert(root *Node, rule *ir.Rule, fns []fieldtype.ExtractFn) (*Node, error) {
	segs := normalizeSegments(rule.Segments)
	nf := 0
	for _, s := range segs {
		if s.Kind == ir.SegField {
			nf++
		}
	}
	if nf != len(fns) {
		return nil, fmt.Errorf("rule %s: %d field segments but %d extractors", rule.Loc, nf, len(fns))
	}
	return insertSegs(root, segs, fns, rule), nil
}

// normalizeSegments drops empty literals and merges adjacent ones.
func normalizeSegments(in []ir.Segment) []ir.Segment {
	out := make([]ir.Segment, 0, len(in))
	for _, s := range in {
		if s.Kind == ir.SegLiteral {
			if s.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Kind == ir.SegLiteral {
				out[n-1].Text += s.Text
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func insertSegs(n *Node, segs []ir.Segment, fns []fieldtype.ExtractFn, rule *ir.Rule) *Node {
	cp := n.clone()
	if len(segs) == 0 {
		cp.Terminal = append(cp.Terminal, rule)
		return cp
	}
	s := segs[0]
	if s.Kind == ir.SegLiteral {
		insertText(cp, s.Text, segs[1:], fns, rule)
		return cp
	}
	// identical field (name, type, params) shares the edge
	for i := range cp.Fields {
		if cp.Fields[i].Field == s.Field {
			cp.Fields[i].Child = insertSegs(cp.Fields[i].Child, segs[1:], fns[1:], rule)
			return cp
		}
	}
	cp.Fields = append(cp.Fields, FieldEdge{
		Field:   s.Field,
		Extract: fns[0],
		Child:   insertSegs(nil, segs[1:], fns[1:], rule),
	})
	return cp
}

// insertText adds a literal span below cp, which the caller already owns.
func insertText(cp *Node, text string, rest []ir.Segment, fns []fieldtype.ExtractFn, rule *ir.Rule) {
	i := cp.literalIndex(text[0])
	if i == len(cp.Literals) || cp.Literals[i].Label[0] != text[0] {
		edge := LiteralEdge{Label: text, Child: insertSegs(nil, rest, fns, rule)}
		cp.Literals = append(cp.Literals, LiteralEdge{})
		copy(cp.Literals[i+1:], cp.Literals[i:])
		cp.Literals[i] = edge
		return
	}
	e := cp.Literals[i]
	k := commonPrefix(e.Label, text)
	if k == len(e.Label) {
		// label fully matched: continue in the child
		child := e.Child
		if k == len(text) {
			cp.Literals[i].Child = insertSegs(child, rest, fns, rule)
			return
		}
		c := child.clone()
		insertText(c, text[k:], rest, fns, rule)
		cp.Literals[i].Child = c
		return
	}
	// split the edge at k; mid is new so it can be filled in place
	mid := &Node{Literals: []LiteralEdge{{Label: e.Label[k:], Child: e.Child}}}
	if k == len(text) {
		mid = insertSegs(mid, rest, fns, rule)
	} else {
		insertText(mid, text[k:], rest, fns, rule)
	}
	cp.Literals[i] = LiteralEdge{Label: e.Label[:k], Child: mid}
}

func commonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
