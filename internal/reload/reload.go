// Package reload swaps in a freshly built context when rulebase files change.
package reload

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/internal/rules"
	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

// Holder owns the context currently serving requests.
type Holder struct {
	mu  sync.RWMutex
	cur *lognorm.Context
}

func NewHolder(c *lognorm.Context) *Holder {
	return &Holder{cur: c}
}

func (h *Holder) Current() *lognorm.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Swap installs c and returns the previous context. The caller releases it.
func (h *Holder) Swap(c *lognorm.Context) *lognorm.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.cur
	h.cur = c
	return old
}

// Normalize runs line through the current context. A context released by a
// concurrent swap is retried against its replacement.
func (h *Holder) Normalize(line string) (ir.Result, error) {
	for {
		c := h.Current()
		if c == nil {
			return ir.Result{}, ir.ErrInvalidHandle
		}
		res, err := c.Normalize(line)
		if errors.Is(err, ir.ErrInvalidHandle) && h.Current() != c {
			continue
		}
		return res, err
	}
}

// Close releases the current context.
func (h *Holder) Close() {
	if old := h.Swap(nil); old != nil {
		old.Release()
	}
}

// Reloader rebuilds a context from rulebase paths.
type Reloader struct {
	holder *Holder
	cfg    ir.Config
	paths  []string
	opts   []lognorm.Option
	log    *zap.Logger

	// serializes Reload
	mu sync.Mutex
}

func NewReloader(h *Holder, cfg ir.Config, paths []string, log *zap.Logger, opts ...lognorm.Option) *Reloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{holder: h, cfg: cfg, paths: paths, opts: append(opts, lognorm.WithLogger(log)), log: log}
}

// Build creates a context holding every rulebase under the configured paths.
func (r *Reloader) Build() (*lognorm.Context, rules.LoadReport, error) {
	c, err := lognorm.New(r.cfg, r.opts...)
	if err != nil {
		return nil, rules.LoadReport{}, err
	}
	rep, err := rules.LoadPaths(c, r.paths)
	if err != nil {
		c.Release()
		return nil, rep, err
	}
	return c, rep, nil
}

// Reload builds a new context and swaps it in. On failure the current context
// keeps serving.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, rep, err := r.Build()
	if err != nil {
		r.log.Error("reload failed", zap.Strings("paths", r.paths), zap.Error(err))
		return err
	}
	if old := r.holder.Swap(c); old != nil {
		old.Release()
	}
	r.log.Info("reload ok", zap.Int("files", len(rep.Files)), zap.Int("rules", rep.Rules))
	return nil
}
