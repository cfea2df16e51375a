package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/internal/config"
	"github.com/PhucNguyen204/lognorm/internal/reload"
	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

// maxLineBytes bounds one input line.
const maxLineBytes = 1 << 20

type normalizeOptions struct {
	cfgPath string
	rules   []string
	input   string

	allowRegex      bool
	addOriginalMsg  bool
	addRule         bool
	addRuleLocation bool
	addExecPath     bool
	workers         int
	watch           bool
}

func newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Read log lines and write one JSON record per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(opts.cfgPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			applyNormalizeFlags(cmd, cfg, opts)

			in := cmd.InOrStdin()
			if opts.input != "" && opts.input != "-" {
				f, err := os.Open(opts.input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runNormalize(ctx, cfg, log, in, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.cfgPath, "config", "", "config yaml path")
	fs.StringArrayVarP(&opts.rules, "rules", "r", nil, "rulebase file or directory (repeatable)")
	fs.StringVarP(&opts.input, "input", "i", "", "input file (default stdin)")
	fs.BoolVar(&opts.allowRegex, "allow-regex", false, "enable the regex field type")
	fs.BoolVar(&opts.addOriginalMsg, "add-originalmsg", false, "add originalmsg to parsed records")
	fs.BoolVar(&opts.addRule, "add-rule", false, "add metadata.rule.mockup")
	fs.BoolVar(&opts.addRuleLocation, "add-rule-location", false, "add metadata.rule.location")
	fs.BoolVar(&opts.addExecPath, "add-exec-path", false, "add metadata.exec-path")
	fs.IntVarP(&opts.workers, "workers", "w", 0, "parallel workers (default from config)")
	fs.BoolVar(&opts.watch, "watch", false, "reload rulebases when they change")
	return cmd
}

// applyNormalizeFlags lets explicit flags win over the config file.
func applyNormalizeFlags(cmd *cobra.Command, cfg *config.Config, opts normalizeOptions) {
	fs := cmd.Flags()
	if len(opts.rules) > 0 {
		cfg.Rules.Paths = opts.rules
	}
	if fs.Changed("allow-regex") {
		cfg.Engine.AllowRegex = opts.allowRegex
	}
	if fs.Changed("add-originalmsg") {
		cfg.Engine.AddOriginalMsg = opts.addOriginalMsg
	}
	if fs.Changed("add-rule") {
		cfg.Engine.AddRule = opts.addRule
	}
	if fs.Changed("add-rule-location") {
		cfg.Engine.AddRuleLocation = opts.addRuleLocation
	}
	if fs.Changed("add-exec-path") {
		cfg.Engine.AddExecPath = opts.addExecPath
	}
	if opts.workers > 0 {
		cfg.Engine.Workers = opts.workers
	}
	if fs.Changed("watch") {
		cfg.Rules.AutoReload.Enabled = opts.watch
	}
}

func runNormalize(ctx context.Context, cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer) error {
	if len(cfg.Rules.Paths) == 0 {
		return errors.New("no rulebases: pass --rules or set rules.paths")
	}
	holder := reload.NewHolder(nil)
	defer holder.Close()
	r := reload.NewReloader(holder, cfg.EngineConfig(), cfg.Rules.Paths, log)
	if err := r.Reload(); err != nil {
		return err
	}
	if cfg.Rules.AutoReload.Enabled {
		w, err := reload.Watch(r, cfg.Debounce())
		if err != nil {
			return err
		}
		defer w.Close()
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(out)
	defer bw.Flush()

	batch := make([]string, 0, cfg.Engine.BatchSize)
	var parsed, total int
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := normalizeBatch(ctx, holder, batch)
		if err != nil {
			return err
		}
		for _, item := range res.Results {
			b, err := item.JSON()
			if err != nil {
				return err
			}
			bw.Write(b)
			bw.WriteByte('\n')
		}
		parsed += res.Parsed
		total += len(batch)
		batch = batch[:0]
		return bw.Flush()
	}
	for sc.Scan() {
		batch = append(batch, sc.Text())
		if len(batch) >= cfg.Engine.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}
	log.Info("normalize done", zap.Int("lines", total), zap.Int("parsed", parsed))
	return nil
}

// normalizeBatch retries once on a context released by a concurrent reload.
func normalizeBatch(ctx context.Context, h *reload.Holder, lines []string) (*lognorm.BatchResult, error) {
	res, err := h.Current().NormalizeBatch(ctx, lines)
	if errors.Is(err, ir.ErrInvalidHandle) {
		res, err = h.Current().NormalizeBatch(ctx, lines)
	}
	return res, err
}
