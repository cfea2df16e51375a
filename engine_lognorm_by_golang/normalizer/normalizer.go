// Package normalizer walks a trie snapshot to find the one rule that explains a line.
package normalizer

import (
	"context"
	"sync"
	"time"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/trie"
)

// checkEvery is how many steps pass between clock and context checks.
const checkEvery = 256

// frame is one node on the explicit backtracking stack.
type frame struct {
	node *trie.Node
	pos  int
	// next alternative: 0 terminal check, 1 literal edge, 2+k field edge k
	step int
	// len(captures) when this frame was entered
	mark int
}

type capture struct {
	field *ir.Field
	value ir.Value
}

// walker holds reusable buffers for one match.
type walker struct {
	stack    []frame
	captures []capture
}

var walkerPool = sync.Pool{New: func() any {
	return &walker{stack: make([]frame, 0, 32), captures: make([]capture, 0, 16)}
}}

// Normalizer is stateless apart from its config and safe for concurrent use.
type Normalizer struct {
	cfg ir.Config
}

func New(cfg ir.Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

func (n *Normalizer) Config() ir.Config { return n.cfg }

// Normalize matches line against snap and assembles the output record.
func Normalize(snap *trie.Snapshot, line string, cfg ir.Config) ir.Result {
	return New(cfg).NormalizeContext(context.Background(), snap, line)
}

func (n *Normalizer) Normalize(snap *trie.Snapshot, line string) ir.Result {
	return n.NormalizeContext(context.Background(), snap, line)
}

// NormalizeContext is Normalize with cancellation. A cancelled or over-budget
// match returns Unparsed with Aborted set; it never returns a partial record.
func (n *Normalizer) NormalizeContext(ctx context.Context, snap *trie.Snapshot, line string) ir.Result {
	res := ir.Result{Kind: ir.Unparsed, Raw: line}
	if n.cfg.EnablePrefilter && !snap.Prefilter().MayMatch(line) {
		res.Output = Assemble(snap, res, n.cfg.Options)
		return res
	}
	w := walkerPool.Get().(*walker)
	n.walk(ctx, w, snap.Root(), line, &res)
	w.stack = w.stack[:0]
	w.captures = w.captures[:0]
	walkerPool.Put(w)
	res.Output = Assemble(snap, res, n.cfg.Options)
	return res
}

// walk runs the depth-first search. Per node: terminal check at end of input,
// then the literal edge, then field edges in insertion order. First completion wins.
func (n *Normalizer) walk(ctx context.Context, w *walker, root *trie.Node, line string, res *ir.Result) {
	var (
		start    time.Time
		deadline = n.cfg.MatchTimeout > 0
		done     = ctx.Done()
		furthest = 0
		steps    = 0
	)
	if deadline {
		start = time.Now()
	}
	w.stack = append(w.stack, frame{node: root})

	for len(w.stack) > 0 {
		steps++
		if n.cfg.MaxSteps > 0 && steps > n.cfg.MaxSteps {
			res.Aborted = true
			break
		}
		if steps%checkEvery == 0 {
			if deadline && time.Since(start) > n.cfg.MatchTimeout {
				res.Aborted = true
				break
			}
			if done != nil {
				select {
				case <-done:
					res.Aborted = true
				default:
				}
				if res.Aborted {
					break
				}
			}
		}

		top := len(w.stack) - 1
		f := &w.stack[top]
		w.captures = w.captures[:f.mark]
		if f.pos > furthest {
			furthest = f.pos
		}
		rest := line[f.pos:]

		switch {
		case f.step == 0:
			f.step++
			if len(rest) == 0 && f.node.IsTerminal() {
				succeed(w, f.node.Terminal[0], res)
				res.Steps = steps
				res.UnparsedOffset = len(line)
				return
			}
		case f.step == 1:
			f.step++
			if e, ok := f.node.LiteralFor(rest); ok && len(rest) >= len(e.Label) && rest[:len(e.Label)] == e.Label {
				w.stack = append(w.stack, frame{node: e.Child, pos: f.pos + len(e.Label), mark: len(w.captures)})
			}
		case f.step-2 < len(f.node.Fields):
			fe := &f.node.Fields[f.step-2]
			f.step++
			if cn, v, ok := fe.Extract(line, f.pos); ok {
				w.captures = append(w.captures, capture{field: &fe.Field, value: v})
				w.stack = append(w.stack, frame{node: fe.Child, pos: f.pos + cn, mark: len(w.captures)})
			}
		default:
			w.stack = w.stack[:top]
		}
	}
	res.Steps = steps
	if res.Aborted {
		// an abandoned search says nothing about how far the line parses
		furthest = 0
	}
	res.UnparsedOffset = furthest
}

func succeed(w *walker, rule *ir.Rule, res *ir.Result) {
	res.Kind = ir.Structured
	res.Rule = rule
	fields := make(ir.Record, 0, len(w.captures))
	for _, c := range w.captures {
		if c.field.Discard() {
			continue
		}
		fields = append(fields, ir.Entry{Key: c.field.Name, Value: c.value})
	}
	res.Fields = fields
}
