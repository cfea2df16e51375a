package trie

import (
	"sort"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
)

// ---------- Edges ----------

// LiteralEdge is labelled with a non-empty span. Siblings never share a first byte.
type LiteralEdge struct {
	Label string
	Child *Node
}

// FieldEdge consumes one typed value. Siblings are tried in insertion order.
type FieldEdge struct {
	Field   ir.Field
	Extract fieldtype.ExtractFn
	Child   *Node
}

// ---------- Node ----------

// Node is immutable once reachable from a published Snapshot.
type Node struct {
	// sorted by first byte of Label
	Literals []LiteralEdge
	// insertion order
	Fields []FieldEdge
	// rules ending here, earliest inserted first
	Terminal []*ir.Rule
}

func (n *Node) IsTerminal() bool { return len(n.Terminal) > 0 }

// LiteralFor returns the only literal edge that can match text, if any.
func (n *Node) LiteralFor(text string) (*LiteralEdge, bool) {
	if len(text) == 0 || len(n.Literals) == 0 {
		return nil, false
	}
	i := n.literalIndex(text[0])
	if i < len(n.Literals) && n.Literals[i].Label[0] == text[0] {
		return &n.Literals[i], true
	}
	return nil, false
}

func (n *Node) literalIndex(b byte) int {
	return sort.Search(len(n.Literals), func(i int) bool { return n.Literals[i].Label[0] >= b })
}

// clone copies the edge lists so the copy can be modified without touching n.
func (n *Node) clone() *Node {
	if n == nil {
		return &Node{}
	}
	return &Node{
		Literals: append([]LiteralEdge(nil), n.Literals...),
		Fields:   append([]FieldEdge(nil), n.Fields...),
		Terminal: append([]*ir.Rule(nil), n.Terminal...),
	}
}

// ---------- Stats ----------

type Stats struct {
	Rules        int    `json:"rules"`
	Nodes        int    `json:"nodes"`
	LiteralEdges int    `json:"literal_edges"`
	FieldEdges   int    `json:"field_edges"`
	Annotations  int    `json:"annotations"`
	Generation   uint64 `json:"generation"`
	// Prefilter
	PrefilterActive   bool `json:"prefilter_active"`
	PrefilterPatterns int  `json:"prefilter_patterns"`
}

// countNodes walks the trie once; shared subtrees are counted once.
func countNodes(root *Node) (nodes, lits, fields int) {
	seen := make(map[*Node]struct{})
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		nodes++
		lits += len(n.Literals)
		fields += len(n.Fields)
		for _, e := range n.Literals {
			stack = append(stack, e.Child)
		}
		for _, e := range n.Fields {
			stack = append(stack, e.Child)
		}
	}
	return nodes, lits, fields
}
