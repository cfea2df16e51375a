// Package lognorm is the public API of the normalization engine: contexts that
// own a rule trie, load rulebases into it and normalize log lines against it.
//
// Loads on one Context are serialized by a writer mutex and publish a new
// immutable trie snapshot with an atomic store. Normalize never takes a lock;
// it reads the snapshot current at call time, so a concurrent load can never
// change a trie an in-flight match is walking.
package lognorm

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/compiler"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/fieldtype"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/normalizer"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/trie"
)

// Option configures a Context at creation.
type Option func(*Context)

// WithRegistry sets the field-type registry rules are compiled against.
func WithRegistry(reg *fieldtype.Registry) Option {
	return func(c *Context) {
		if reg != nil {
			c.reg = reg
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

type cacheKey struct {
	gen  uint64
	line string
}

// Context is a normalization context. It is safe for concurrent use.
type Context struct {
	cfg  ir.Config
	reg  *fieldtype.Registry
	log  *zap.Logger
	comp *compiler.Compiler
	norm *normalizer.Normalizer

	snap    atomic.Pointer[trie.Snapshot]
	writeMu sync.Mutex
	cache   *lru.Cache[cacheKey, ir.Result]

	// refs counts the handle itself plus every in-flight operation.
	refs     atomic.Int64
	released atomic.Bool
}

// New creates an empty root context.
func New(cfg ir.Config, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Context{cfg: cfg, reg: fieldtype.Default(), log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	if err := c.init(trie.Empty()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) init(snap *trie.Snapshot) error {
	c.comp = compiler.New(c.reg, c.cfg.Options)
	c.norm = normalizer.New(c.cfg)
	if c.cfg.ResultCacheSize > 0 {
		cache, err := lru.New[cacheKey, ir.Result](c.cfg.ResultCacheSize)
		if err != nil {
			return err
		}
		c.cache = cache
	}
	c.snap.Store(snap)
	c.refs.Store(1)
	return nil
}

// NewChild creates a context that starts with the rules this context holds
// now. Later loads into either context are invisible to the other, and the
// child stays usable after the parent is released.
func (c *Context) NewChild() (*Context, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.done()

	child := &Context{cfg: c.cfg, reg: c.reg, log: c.log}
	base := c.snap.Load()
	if err := child.init(base); err != nil {
		return nil, err
	}
	c.log.Debug("child context created", zap.Int("rules", base.RuleCount()), zap.Uint64("generation", base.Generation()))
	return child, nil
}

// Release invalidates the handle. Operations already running finish against
// their snapshot; teardown happens when the last of them returns. Calling
// Release again is a no-op.
func (c *Context) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.done()
}

func (c *Context) acquire() error {
	for {
		n := c.refs.Load()
		if n <= 0 || c.released.Load() {
			return ir.ErrInvalidHandle
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

func (c *Context) done() {
	if c.refs.Add(-1) == 0 {
		c.teardown()
	}
}

func (c *Context) teardown() {
	snap := c.snap.Swap(nil)
	if c.cache != nil {
		c.cache.Purge()
	}
	if snap != nil {
		c.log.Debug("context released", zap.Int("rules", snap.RuleCount()), zap.Uint64("generation", snap.Generation()))
	}
}

func (c *Context) Config() ir.Config             { return c.cfg }
func (c *Context) Registry() *fieldtype.Registry { return c.reg }

// LoadSamples compiles the rulebase at path and merges its rules. It returns
// the number of rules added. On error nothing is added.
func (c *Context) LoadSamples(path string) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.done()

	rb, err := c.comp.CompileFile(path)
	if err != nil {
		c.log.Warn("rulebase rejected", zap.String("source", path), zap.Error(err))
		return 0, err
	}
	return c.install(rb)
}

// LoadSamplesFromString loads an in-memory rulebase. Its rules report
// --NO-FILE-- as their source.
func (c *Context) LoadSamplesFromString(text string) (int, error) {
	return c.LoadSamplesNamed("", text)
}

// LoadSamplesNamed loads an in-memory rulebase under the given source name,
// which is used in error locations and rule metadata.
func (c *Context) LoadSamplesNamed(source, text string) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.done()

	var (
		rb  *compiler.Rulebase
		err error
	)
	if compiler.IsYAMLPath(source) {
		rb, err = c.comp.CompileYAML(source, []byte(text))
	} else {
		rb, err = c.comp.CompileString(source, text)
	}
	if err != nil {
		c.log.Warn("rulebase rejected", zap.String("source", source), zap.Error(err))
		return 0, err
	}
	return c.install(rb)
}

// install publishes a snapshot holding rb on top of the current one.
func (c *Context) install(rb *compiler.Rulebase) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	b := trie.NewBuilder(c.snap.Load(), c.reg, c.cfg.Options)
	for _, r := range rb.Rules {
		if err := b.Add(r); err != nil {
			c.log.Warn("rulebase rejected", zap.String("source", rb.Source), zap.Error(err))
			return 0, err
		}
	}
	b.AddAnnotations(rb.Annotations...)
	next := b.Build()
	c.snap.Store(next)

	c.log.Info("rulebase loaded",
		zap.String("source", rb.Source),
		zap.Int("added", len(rb.Rules)),
		zap.Int("rules", next.RuleCount()),
		zap.Uint64("generation", next.Generation()),
	)
	return len(rb.Rules), nil
}

// Normalize matches one line. The error is only ErrInvalidHandle; a line no
// rule explains is an Unparsed result.
func (c *Context) Normalize(line string) (ir.Result, error) {
	return c.NormalizeContext(context.Background(), line)
}

// NormalizeContext is Normalize with cancellation; a cancelled match returns
// an Unparsed result with Aborted set.
func (c *Context) NormalizeContext(ctx context.Context, line string) (ir.Result, error) {
	if err := c.acquire(); err != nil {
		return ir.Result{}, err
	}
	defer c.done()
	return c.normalize(ctx, c.snap.Load(), line), nil
}

func (c *Context) normalize(ctx context.Context, snap *trie.Snapshot, line string) ir.Result {
	key := cacheKey{gen: snap.Generation(), line: line}
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			return res.Clone()
		}
	}
	res := c.norm.NormalizeContext(ctx, snap, line)
	if res.Aborted {
		c.log.Warn("match aborted", zap.Int("steps", res.Steps), zap.Int("length", len(line)))
		return res
	}
	if c.cache != nil {
		c.cache.Add(key, res)
		return res.Clone()
	}
	return res
}

// Stats describes the current snapshot of a context. The prefilter fields are
// only filled when Config.EnablePrefilter is set.
type Stats struct {
	trie.Stats
	CachedResults int
}

func (c *Context) Stats() (Stats, error) {
	if err := c.acquire(); err != nil {
		return Stats{}, err
	}
	defer c.done()

	snap := c.snap.Load()
	var st Stats
	if c.cfg.EnablePrefilter {
		st.Stats = snap.StatsWithPrefilter()
	} else {
		st.Stats = snap.Stats()
	}
	if c.cache != nil {
		st.CachedResults = c.cache.Len()
	}
	return st, nil
}

// Rules returns the rules of the current snapshot in insertion order.
func (c *Context) Rules() ([]*ir.Rule, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.done()
	return append([]*ir.Rule(nil), c.snap.Load().Rules()...), nil
}

// Version returns the engine version.
func Version() string { return ir.Version }
