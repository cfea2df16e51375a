package lognorm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

// BatchResult summarizes one NormalizeBatch call.
type BatchResult struct {
	Results        []ir.Result   `json:"results"`
	Parsed         int           `json:"parsed"`
	Unparsed       int           `json:"unparsed"`
	Aborted        int           `json:"aborted"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// NormalizeBatch normalizes lines in parallel and returns results in input
// order. Lines are handed out in chunks of Config.BatchSize to at most
// Config.Workers goroutines. Every line is matched against the same snapshot.
// If ctx is cancelled the error is ctx.Err() and the partial results are
// discarded.
func (c *Context) NormalizeBatch(ctx context.Context, lines []string) (*BatchResult, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.done()

	start := time.Now()
	snap := c.snap.Load()
	out := &BatchResult{Results: make([]ir.Result, len(lines))}

	chunk := c.cfg.BatchSize
	if chunk <= 0 {
		chunk = len(lines)
	}
	workers := c.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(lines); lo += chunk {
		hi := min(lo+chunk, len(lines))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out.Results[i] = c.normalize(gctx, snap, lines[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range out.Results {
		switch {
		case r.Parsed():
			out.Parsed++
		case r.Aborted:
			out.Aborted++
			out.Unparsed++
		default:
			out.Unparsed++
		}
	}
	out.ProcessingTime = time.Since(start)
	c.log.Debug("batch normalized",
		zap.Int("lines", len(lines)),
		zap.Int("parsed", out.Parsed),
		zap.Int("unparsed", out.Unparsed),
		zap.Duration("elapsed", out.ProcessingTime),
	)
	return out, nil
}
