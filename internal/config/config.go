// Package config loads and validates the engine's YAML configuration via
// viper, as a standalone loader the scheduler/discovery/CLI all consume.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// defaultSearchNames is the four well-known config file names tried in
// order when no explicit -c/--config path is given.
var defaultSearchNames = []string{
	"flow-test.config.yml",
	"flow-test.config.yaml",
	"flow-test.yml",
	"flow-test.yaml",
}

// Timeouts holds the default and slow-test timeouts, in milliseconds.
type Timeouts struct {
	Default   int `mapstructure:"default" validate:"gte=0"`
	SlowTests int `mapstructure:"slow_tests" validate:"gte=0"`
}

// Globals holds globals.variables and globals.timeouts.
type Globals struct {
	Variables map[string]interface{} `mapstructure:"variables"`
	Timeouts  Timeouts                `mapstructure:"timeouts"`
}

// Discovery holds discovery.patterns / discovery.exclude.
type Discovery struct {
	Patterns []string `mapstructure:"patterns"`
	Exclude  []string `mapstructure:"exclude"`
}

// Priorities holds the priorities.* block.
type Priorities struct {
	Levels             []string `mapstructure:"levels"`
	Required           []string `mapstructure:"required"`
	FailFastOnRequired bool     `mapstructure:"fail_fast_on_required"`
}

// RetryFailed holds execution.retry_failed.*.
type RetryFailed struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxAttempts int  `mapstructure:"max_attempts" validate:"omitempty,gte=1"`
	DelayMs     int  `mapstructure:"delay_ms" validate:"omitempty,gte=0"`
}

// Execution holds the execution.* block.
type Execution struct {
	Mode              string      `mapstructure:"mode" validate:"omitempty,oneof=sequential parallel"`
	MaxParallel       int         `mapstructure:"max_parallel" validate:"omitempty,gte=1"`
	TimeoutMs         int         `mapstructure:"timeout" validate:"omitempty,gte=0"`
	ContinueOnFailure bool        `mapstructure:"continue_on_failure"`
	RetryFailed       RetryFailed `mapstructure:"retry_failed"`
	RateLimitRPS      float64     `mapstructure:"rate_limit_rps" validate:"omitempty,gt=0"`
}

// Reporting holds the reporting.* block.
type Reporting struct {
	Formats   []string `mapstructure:"formats" validate:"dive,oneof=html json"`
	OutputDir string   `mapstructure:"output_dir"`
}

// Filters holds the filters.* block — the config-level defaults that CLI
// flags override.
type Filters struct {
	Priority   []string `mapstructure:"priority"`
	SuiteNames []string `mapstructure:"suite_names"`
	NodeIDs    []string `mapstructure:"node_ids"`
	Tags       []string `mapstructure:"tags"`
}

// EngineConfig is the fully resolved, validated execution plan root.
type EngineConfig struct {
	ProjectName   string        `mapstructure:"project_name" validate:"required"`
	TestDirectory string        `mapstructure:"test_directory" validate:"required"`
	Globals       Globals       `mapstructure:"globals"`
	Discovery     Discovery     `mapstructure:"discovery"`
	Priorities    Priorities    `mapstructure:"priorities"`
	Execution     Execution     `mapstructure:"execution"`
	Reporting     Reporting     `mapstructure:"reporting"`
	Filters       Filters       `mapstructure:"filters"`
}

// Error is a ConfigError: malformed or invalid config, fatal before
// discovery begins.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config_error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config_error: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

var knownPriorities = map[string]bool{"critical": true, "high": true, "medium": true, "low": true}

func defaults() EngineConfig {
	return EngineConfig{
		ProjectName:   "flow-test",
		TestDirectory: "./tests",
		Discovery: Discovery{
			Patterns: []string{"**/*.yaml", "**/*.yml"},
			Exclude:  []string{"**/node_modules/**"},
		},
		Priorities: Priorities{
			Levels: []string{"critical", "high", "medium", "low"},
		},
		Execution: Execution{
			Mode:        "parallel",
			MaxParallel: 4,
			TimeoutMs:   30000,
		},
		Reporting: Reporting{
			Formats:   []string{"json"},
			OutputDir: "./results",
		},
	}
}

// Options carry the CLI override flags layered on top of the file config.
type Options struct {
	ConfigPath    string
	TestDirectory string
	Environment   string
	PriorityCSV   string
	SuiteCSV      string
	NodeCSV       string
	TagCSV        string
}

// Load resolves, reads, merges, and validates the engine configuration.
// It tries Options.ConfigPath first, then the four well-known names, and
// is tolerant of a missing file (the defaults then apply wholesale).
func Load(opts Options) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := defaults()
	setViperDefaults(v, def)

	found := false
	if opts.ConfigPath != "" {
		v.SetConfigFile(opts.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Message: fmt.Sprintf("cannot read config file %q", opts.ConfigPath), Cause: err}
		}
		found = true
	} else {
		for _, name := range defaultSearchNames {
			v.SetConfigFile(name)
			if err := v.ReadInConfig(); err == nil {
				found = true
				break
			}
		}
	}
	_ = found // absence of any config file is not an error; defaults apply

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Message: "cannot decode config", Cause: err}
	}

	applyOverrides(&cfg, opts)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setViperDefaults(v *viper.Viper, def EngineConfig) {
	v.SetDefault("project_name", def.ProjectName)
	v.SetDefault("test_directory", def.TestDirectory)
	v.SetDefault("discovery.patterns", def.Discovery.Patterns)
	v.SetDefault("discovery.exclude", def.Discovery.Exclude)
	v.SetDefault("priorities.levels", def.Priorities.Levels)
	v.SetDefault("execution.mode", def.Execution.Mode)
	v.SetDefault("execution.max_parallel", def.Execution.MaxParallel)
	v.SetDefault("execution.timeout", def.Execution.TimeoutMs)
	v.SetDefault("reporting.formats", def.Reporting.Formats)
	v.SetDefault("reporting.output_dir", def.Reporting.OutputDir)
}

func applyOverrides(cfg *EngineConfig, opts Options) {
	if opts.TestDirectory != "" {
		cfg.TestDirectory = opts.TestDirectory
	}
	if opts.PriorityCSV != "" {
		cfg.Filters.Priority = splitCSV(opts.PriorityCSV)
	}
	if opts.SuiteCSV != "" {
		cfg.Filters.SuiteNames = splitCSV(opts.SuiteCSV)
	}
	if opts.NodeCSV != "" {
		cfg.Filters.NodeIDs = splitCSV(opts.NodeCSV)
	}
	if opts.TagCSV != "" {
		cfg.Filters.Tags = splitCSV(opts.TagCSV)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateConfig(cfg *EngineConfig) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &Error{Message: "validation failed", Cause: err}
	}
	for _, lvl := range cfg.Priorities.Levels {
		if !knownPriorities[lvl] {
			return &Error{Message: fmt.Sprintf("unknown priority level %q", lvl)}
		}
	}
	for _, req := range cfg.Priorities.Required {
		if !knownPriorities[req] {
			return &Error{Message: fmt.Sprintf("priorities.required references unknown level %q", req)}
		}
	}
	if cfg.Execution.Mode == "sequential" {
		cfg.Execution.MaxParallel = 1
	}
	return nil
}
