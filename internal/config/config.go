// Package config loads the process configuration of the lognorm CLI.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
)

const (
	defaultDebounceMs       = 300
	defaultWorkers          = 4
	defaultRotateMaxSizeMB  = 100
	defaultRotateMaxBackups = 7
	defaultRotateMaxAgeDays = 14
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
)

type RotateConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

type LoggingConfig struct {
	Level  string       `yaml:"level"`
	Format string       `yaml:"format"`
	File   string       `yaml:"file"`
	Rotate RotateConfig `yaml:"rotate"`
}

type EngineConfig struct {
	AllowRegex      bool `yaml:"allow_regex"`
	AddOriginalMsg  bool `yaml:"add_originalmsg"`
	AddRule         bool `yaml:"add_rule"`
	AddRuleLocation bool `yaml:"add_rule_location"`
	AddExecPath     bool `yaml:"add_exec_path"`
	MatchTimeoutMs  int  `yaml:"match_timeout_ms"`
	MaxSteps        int  `yaml:"max_steps"`
	Prefilter       bool `yaml:"prefilter"`
	ResultCacheSize int  `yaml:"result_cache_size"`
	BatchSize       int  `yaml:"batch_size"`
	Workers         int  `yaml:"workers"`
}

type Config struct {
	Rules struct {
		Paths []string `yaml:"paths"`
		// AutoReload watches the rule paths and rebuilds the context on change.
		AutoReload struct {
			Enabled    bool `yaml:"enabled"`
			DebounceMs int  `yaml:"debounce_ms"`
		} `yaml:"auto_reload"`
	} `yaml:"rules"`

	Engine EngineConfig `yaml:"engine"`

	Store struct {
		DSN string `yaml:"dsn"`
	} `yaml:"store"`

	Logging LoggingConfig `yaml:"logging"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads path (skipped when empty), then .env, then LOGNORM_* overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}
	_ = godotenv.Load()
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Rules.AutoReload.DebounceMs <= 0 {
		cfg.Rules.AutoReload.DebounceMs = defaultDebounceMs
	}
	if cfg.Engine.Workers <= 0 {
		cfg.Engine.Workers = defaultWorkers
	}
	if cfg.Engine.BatchSize <= 0 {
		cfg.Engine.BatchSize = ir.DefaultConfig().BatchSize
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = defaultLogFormat
	}
	if cfg.Logging.Rotate.MaxSizeMB <= 0 {
		cfg.Logging.Rotate.MaxSizeMB = defaultRotateMaxSizeMB
	}
	if cfg.Logging.Rotate.MaxBackups <= 0 {
		cfg.Logging.Rotate.MaxBackups = defaultRotateMaxBackups
	}
	if cfg.Logging.Rotate.MaxAgeDays <= 0 {
		cfg.Logging.Rotate.MaxAgeDays = defaultRotateMaxAgeDays
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOGNORM_RULES_PATHS")); v != "" {
		cfg.Rules.Paths = splitList(v)
	}
	cfg.Rules.AutoReload.Enabled = envBool("LOGNORM_RULES_AUTO_RELOAD", cfg.Rules.AutoReload.Enabled)
	cfg.Engine.AllowRegex = envBool("LOGNORM_ALLOW_REGEX", cfg.Engine.AllowRegex)
	if n, ok := envInt("LOGNORM_WORKERS"); ok && n > 0 {
		cfg.Engine.Workers = n
	}
	if n, ok := envInt("LOGNORM_MATCH_TIMEOUT_MS"); ok {
		cfg.Engine.MatchTimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv("LOGNORM_STORE_DSN")); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("LOGNORM_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOGNORM_LOG_FILE")); v != "" {
		cfg.Logging.File = v
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "console":
	default:
		return errors.New("logging.format must be json or console")
	}
	if cfg.Engine.MatchTimeoutMs < 0 {
		return errors.New("engine.match_timeout_ms must be >= 0")
	}
	if cfg.Engine.MaxSteps < 0 {
		return errors.New("engine.max_steps must be >= 0")
	}
	if cfg.Engine.ResultCacheSize < 0 {
		return errors.New("engine.result_cache_size must be >= 0")
	}
	if cfg.Rules.AutoReload.Enabled && len(cfg.Rules.Paths) == 0 {
		return errors.New("rules.paths is required when rules.auto_reload.enabled=true")
	}
	return nil
}

// Options returns the context option flags the engine section enables.
func (e EngineConfig) Options() ir.CtxOpt {
	var o ir.CtxOpt
	set := func(flag ir.CtxOpt, on bool) {
		if on {
			o |= flag
		}
	}
	set(ir.OptAllowRegex, e.AllowRegex)
	set(ir.OptAddOriginalMsg, e.AddOriginalMsg)
	set(ir.OptAddRule, e.AddRule)
	set(ir.OptAddRuleLocation, e.AddRuleLocation)
	set(ir.OptAddExecPath, e.AddExecPath)
	return o
}

// EngineConfig converts the engine section into an engine Config.
func (c *Config) EngineConfig() ir.Config {
	return ir.DefaultConfig().
		WithOptions(c.Engine.Options()).
		WithMatchTimeout(time.Duration(c.Engine.MatchTimeoutMs) * time.Millisecond).
		WithMaxSteps(c.Engine.MaxSteps).
		WithPrefilter(c.Engine.Prefilter).
		WithResultCache(c.Engine.ResultCacheSize).
		WithBatchSize(c.Engine.BatchSize).
		WithWorkers(c.Engine.Workers)
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Rules.AutoReload.DebounceMs) * time.Millisecond
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
