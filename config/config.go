// Package config loads and validates engine configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every recognized engine option. Values come from a YAML
// config file, LOGLENS_* environment variables, or the defaults below.
type Config struct {
	Matcher struct {
		// Timeout is the session-wide deadline in seconds. Zero disables it.
		Timeout int `mapstructure:"timeout" validate:"gte=0"`
		// MaxMatches caps the number of final matches returned. Zero means
		// unlimited.
		MaxMatches int `mapstructure:"max_matches" validate:"gte=0"`
		// ParallelThreads bounds the matching worker pool.
		ParallelThreads int `mapstructure:"parallel_threads" validate:"gte=1"`
	} `mapstructure:"matcher"`

	Regex struct {
		// Timeout is the per-pattern evaluation budget in seconds.
		Timeout float64 `mapstructure:"timeout" validate:"gt=0"`
		// MaxRecursion bounds pattern nesting depth at compile time.
		MaxRecursion int `mapstructure:"max_recursion" validate:"gte=1"`
	} `mapstructure:"regex"`

	MultiLine struct {
		// MaxLines bounds how many lines a multi-line scan may span before
		// it expires.
		MaxLines int `mapstructure:"max_lines" validate:"gte=1"`
		// ContextSize is the context window used by the relevance factor.
		ContextSize int `mapstructure:"context_size" validate:"gte=0"`
	} `mapstructure:"multi_line"`

	Correlation struct {
		// MaxDistance is the default edge distance bound for correlation
		// rules that do not declare their own.
		MaxDistance int `mapstructure:"max_distance" validate:"gte=1"`
	} `mapstructure:"correlation"`

	Optimization struct {
		// CacheSize is the compiled-pattern cache budget in bytes.
		CacheSize int64 `mapstructure:"cache_size" validate:"gte=0"`
		// PatternOptimization enables prefilter derivation.
		PatternOptimization bool `mapstructure:"pattern_optimization"`
		// ParallelMatching enables the worker pool; when false every unit
		// runs sequentially on the calling goroutine.
		ParallelMatching bool `mapstructure:"parallel_matching"`
	} `mapstructure:"optimization"`

	Resources struct {
		// MaxMemory approximates the candidate memory budget in bytes.
		MaxMemory int64 `mapstructure:"max_memory" validate:"gte=0"`
		// MaxCPUPercent scales the effective worker count.
		MaxCPUPercent int `mapstructure:"max_cpu_percent" validate:"gte=1,lte=100"`
	} `mapstructure:"resources"`

	History struct {
		// Path points at the read-only rule feedback database. Empty
		// disables the historical-accuracy lookup.
		Path string `mapstructure:"path"`
	} `mapstructure:"history"`

	Logging struct {
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	} `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("matcher.timeout", 30)
	viper.SetDefault("matcher.max_matches", 1000)
	viper.SetDefault("matcher.parallel_threads", 4)
	viper.SetDefault("regex.timeout", 0.5)
	viper.SetDefault("regex.max_recursion", 10)
	viper.SetDefault("multi_line.max_lines", 50)
	viper.SetDefault("multi_line.context_size", 5)
	viper.SetDefault("correlation.max_distance", 10)
	viper.SetDefault("optimization.cache_size", 10485760) // 10MB
	viper.SetDefault("optimization.pattern_optimization", true)
	viper.SetDefault("optimization.parallel_matching", true)
	viper.SetDefault("resources.max_memory", 104857600) // 100MB
	viper.SetDefault("resources.max_cpu_percent", 100)
	viper.SetDefault("history.path", "")
	viper.SetDefault("logging.level", "info")
}

// LoadConfig reads configuration from ./config.yaml (or ./config/config.yaml),
// applies environment overrides, and validates the result. A missing config
// file is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("LOGLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, defaults and env vars apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every option against its declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// EffectiveWorkers returns the worker count after applying the CPU budget.
// parallel_threads is the requested degree; max_cpu_percent scales it down
// against the machine's core count.
func (c *Config) EffectiveWorkers() int {
	workers := c.Matcher.ParallelThreads
	if workers < 1 {
		workers = 1
	}
	if c.Resources.MaxCPUPercent > 0 && c.Resources.MaxCPUPercent < 100 {
		byCPU := runtime.NumCPU() * c.Resources.MaxCPUPercent / 100
		if byCPU < 1 {
			byCPU = 1
		}
		if byCPU < workers {
			workers = byCPU
		}
	}
	return workers
}
