package engine_lognorm_by_golang

// Unified configuration for the normalization engine.

import (
	"fmt"
	"strings"
	"time"
)

// -------------------- Context options --------------------

// CtxOpt is a bit set of context options. The zero value has every option off.
type CtxOpt uint32

const (
	// OptAllowRegex permits regex-typed fields in rules.
	OptAllowRegex CtxOpt = 1 << iota
	// OptAddExecPath annotates results with the source path of the winning rule.
	OptAddExecPath
	// OptAddOriginalMsg includes the raw input line in results.
	OptAddOriginalMsg
	// OptAddRule includes the winning rule's sample text in results.
	OptAddRule
	// OptAddRuleLocation includes file:line of the winning rule in results.
	OptAddRuleLocation
)

var optNames = []struct {
	opt  CtxOpt
	name string
}{
	{OptAllowRegex, "ALLOW_REGEX"},
	{OptAddExecPath, "ADD_EXEC_PATH"},
	{OptAddOriginalMsg, "ADD_ORIGINALMSG"},
	{OptAddRule, "ADD_RULE"},
	{OptAddRuleLocation, "ADD_RULE_LOCATION"},
}

func (o CtxOpt) Has(flag CtxOpt) bool { return o&flag == flag }

func (o CtxOpt) String() string {
	if o == 0 {
		return "NONE"
	}
	parts := make([]string, 0, len(optNames))
	for _, n := range optNames {
		if o.Has(n.opt) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("CtxOpt(%d)", uint32(o))
	}
	return strings.Join(parts, "|")
}

// -------------------- Config --------------------

type Config struct {
	// Option flags applied to rule compilation and output assembly
	Options CtxOpt `json:"options"`

	// Wall-clock budget for one match; 0 disables the check
	MatchTimeout time.Duration `json:"match_timeout"`

	// Backtracking step budget for one match; 0 means unlimited
	MaxSteps int `json:"max_steps"`

	// Aho-Corasick anchor prefilter in front of the trie walk
	EnablePrefilter bool `json:"enable_prefilter"`

	// Entries in the per-context LRU result cache; 0 disables caching
	ResultCacheSize int `json:"result_cache_size"`

	// Lines handed to one worker at a time in NormalizeBatch
	BatchSize int `json:"batch_size"`

	// Parallel workers in NormalizeBatch
	Workers int `json:"workers"`
}

// DefaultConfig keeps liblognorm-compatible output: no prefilter, no budgets.
func DefaultConfig() Config {
	return Config{
		Options:         0,
		MatchTimeout:    0,
		MaxSteps:        0,
		EnablePrefilter: false,
		ResultCacheSize: 0,
		BatchSize:       100,
		Workers:         4,
	}
}

func NewConfig() Config {
	return DefaultConfig()
}

// ProductionConfig bounds every match and turns on the prefilter and cache.
func ProductionConfig() Config {
	return Config{
		Options:         0,
		MatchTimeout:    50 * time.Millisecond,
		MaxSteps:        1 << 20,
		EnablePrefilter: true,
		ResultCacheSize: 4096,
		BatchSize:       1000,
		Workers:         8,
	}
}

// DevelopmentConfig echoes the rule and original message for debugging rulebases.
func DevelopmentConfig() Config {
	return Config{
		Options:         OptAddOriginalMsg | OptAddRule | OptAddRuleLocation,
		MatchTimeout:    0,
		MaxSteps:        0,
		EnablePrefilter: false,
		ResultCacheSize: 0,
		BatchSize:       10,
		Workers:         1,
	}
}

func (c Config) WithOptions(o CtxOpt) Config {
	c.Options = o
	return c
}

func (c Config) WithOption(o CtxOpt, enable bool) Config {
	if enable {
		c.Options |= o
	} else {
		c.Options &^= o
	}
	return c
}

func (c Config) WithMatchTimeout(d time.Duration) Config {
	c.MatchTimeout = d
	return c
}

func (c Config) WithMaxSteps(n int) Config {
	c.MaxSteps = n
	return c
}

func (c Config) WithPrefilter(enable bool) Config {
	c.EnablePrefilter = enable
	return c
}

func (c Config) WithResultCache(size int) Config {
	c.ResultCacheSize = size
	return c
}

func (c Config) WithBatchSize(size int) Config {
	c.BatchSize = size
	return c
}

func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// Validate rejects negative budgets and sizes.
func (c Config) Validate() error {
	switch {
	case c.MatchTimeout < 0:
		return fmt.Errorf("invalid config: match timeout %v is negative", c.MatchTimeout)
	case c.MaxSteps < 0:
		return fmt.Errorf("invalid config: max steps %d is negative", c.MaxSteps)
	case c.ResultCacheSize < 0:
		return fmt.Errorf("invalid config: result cache size %d is negative", c.ResultCacheSize)
	case c.BatchSize < 0:
		return fmt.Errorf("invalid config: batch size %d is negative", c.BatchSize)
	case c.Workers < 0:
		return fmt.Errorf("invalid config: workers %d is negative", c.Workers)
	}
	return nil
}
