// Package config loads extraction settings from files, environment
// variables, and defaults.
//
// Configuration files are discovered by walking upward from a start
// directory, so a project-level extractkit.toml applies to every document
// under that tree. Environment variables prefixed EXTRACTKIT_ override
// file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wudi/extractkit/extract"
	"github.com/wudi/extractkit/reduce"
)

// Config is the complete extraction configuration.
type Config struct {
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Reduction ReductionConfig `mapstructure:"reduction"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// DispatchConfig controls concurrent task admission.
type DispatchConfig struct {
	// Concurrency is the maximum number of documents processed at once.
	// Zero means the number of usable CPUs.
	Concurrency int `mapstructure:"concurrency"`
	// RatePerSecond caps task starts per second. Zero means unlimited.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// RateBurst is the rate limiter burst size.
	RateBurst int `mapstructure:"rate_burst"`
}

// ReductionConfig controls token reduction of extracted content.
type ReductionConfig struct {
	// Mode is "off", "light", or "moderate".
	Mode string `mapstructure:"mode"`
	// PreserveMarkdown keeps structural markdown lines untouched.
	PreserveMarkdown bool `mapstructure:"preserve_markdown"`
	// Language is the stopword language hint (e.g., "en").
	Language string `mapstructure:"language"`
}

// ChunkingConfig controls splitting extracted content into chunks.
type ChunkingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxCharacters is the maximum chunk size in bytes.
	MaxCharacters int `mapstructure:"max_characters"`
	// Overlap is how many bytes consecutive chunks share.
	Overlap int `mapstructure:"overlap"`
}

// OCRConfig controls optical character recognition for image inputs.
type OCRConfig struct {
	// Backend selects the OCR engine; "tesseract" or "none".
	Backend string `mapstructure:"backend"`
	// Languages lists recognition languages in priority order.
	Languages []string `mapstructure:"languages"`
	// DPI is the assumed input resolution.
	DPI int `mapstructure:"dpi"`
	// PSM is the tesseract page segmentation mode; zero keeps the
	// engine default.
	PSM int `mapstructure:"psm"`
	// Whitelist restricts recognition to the listed characters.
	Whitelist string `mapstructure:"whitelist"`
}

// CacheConfig controls result caching.
type CacheConfig struct {
	// Backend is "none", "memory", or "redis".
	Backend string `mapstructure:"backend"`
	// MaxEntries bounds the in-memory cache.
	MaxEntries int `mapstructure:"max_entries"`
	// TTLSeconds is the entry lifetime; zero means no expiry.
	TTLSeconds int `mapstructure:"ttl_seconds"`
	// RedisAddr is the host:port of the redis backend.
	RedisAddr string `mapstructure:"redis_addr"`
	// RedisPassword authenticates against the redis backend.
	RedisPassword string `mapstructure:"redis_password"`
	// RedisDB selects the redis database number.
	RedisDB int `mapstructure:"redis_db"`
}

// ScriptingConfig controls the post-processing script hook.
type ScriptingConfig struct {
	// HookScript is a path to a JavaScript file run against each result.
	HookScript string `mapstructure:"hook_script"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			Concurrency:   runtime.GOMAXPROCS(0),
			RatePerSecond: 0,
			RateBurst:     0,
		},
		Reduction: ReductionConfig{
			Mode:             "off",
			PreserveMarkdown: true,
			Language:         "en",
		},
		Chunking: ChunkingConfig{
			Enabled:       false,
			MaxCharacters: 2000,
			Overlap:       0,
		},
		OCR: OCRConfig{
			Backend:   "tesseract",
			Languages: []string{"eng"},
			DPI:       0,
			PSM:       0,
			Whitelist: "",
		},
		Cache: CacheConfig{
			Backend:    "none",
			MaxEntries: 128,
			TTLSeconds: 0,
			RedisAddr:  "localhost:6379",
			RedisDB:    0,
		},
		Scripting: ScriptingConfig{
			HookScript: "",
		},
	}
}

// FileNames lists the configuration file names probed during discovery,
// in precedence order.
var FileNames = []string{"extractkit.toml", ".extractkit.yaml", "extractkit.yaml"}

// Discover walks upward from start looking for a configuration file.
// It returns the empty string when no file exists up to the filesystem
// root.
func Discover(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("dispatch.concurrency", defaults.Dispatch.Concurrency)
	v.SetDefault("dispatch.rate_per_second", defaults.Dispatch.RatePerSecond)
	v.SetDefault("dispatch.rate_burst", defaults.Dispatch.RateBurst)

	v.SetDefault("reduction.mode", defaults.Reduction.Mode)
	v.SetDefault("reduction.preserve_markdown", defaults.Reduction.PreserveMarkdown)
	v.SetDefault("reduction.language", defaults.Reduction.Language)

	v.SetDefault("chunking.enabled", defaults.Chunking.Enabled)
	v.SetDefault("chunking.max_characters", defaults.Chunking.MaxCharacters)
	v.SetDefault("chunking.overlap", defaults.Chunking.Overlap)

	v.SetDefault("ocr.backend", defaults.OCR.Backend)
	v.SetDefault("ocr.languages", defaults.OCR.Languages)
	v.SetDefault("ocr.dpi", defaults.OCR.DPI)
	v.SetDefault("ocr.psm", defaults.OCR.PSM)
	v.SetDefault("ocr.whitelist", defaults.OCR.Whitelist)

	v.SetDefault("cache.backend", defaults.Cache.Backend)
	v.SetDefault("cache.max_entries", defaults.Cache.MaxEntries)
	v.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	v.SetDefault("cache.redis_addr", defaults.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", defaults.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", defaults.Cache.RedisDB)

	v.SetDefault("scripting.hook_script", defaults.Scripting.HookScript)
}

// Load reads the configuration from path. When path is empty, a file is
// discovered upward from the current directory; absence of a file is not
// an error, defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EXTRACTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = Discover(".")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values that cannot be expressed by types alone.
func (c *Config) Validate() error {
	if c.Dispatch.Concurrency < 0 {
		return &extract.ValidationError{
			Message: "dispatch concurrency must not be negative",
			Context: map[string]string{"concurrency": strconv.Itoa(c.Dispatch.Concurrency)},
		}
	}
	if c.Dispatch.RatePerSecond < 0 {
		return &extract.ValidationError{
			Message: "dispatch rate must not be negative",
			Context: map[string]string{"rate_per_second": strconv.FormatFloat(c.Dispatch.RatePerSecond, 'f', -1, 64)},
		}
	}
	switch reduce.Mode(c.Reduction.Mode) {
	case reduce.ModeOff, reduce.ModeLight, reduce.ModeModerate:
	default:
		return &extract.ValidationError{
			Message: "unknown reduction mode",
			Context: map[string]string{"mode": c.Reduction.Mode},
		}
	}
	if c.Chunking.Enabled && c.Chunking.MaxCharacters <= 0 {
		return &extract.ValidationError{
			Message: "chunk size must be positive",
			Context: map[string]string{"max_characters": strconv.Itoa(c.Chunking.MaxCharacters)},
		}
	}
	if c.Chunking.Overlap < 0 || (c.Chunking.Enabled && c.Chunking.Overlap >= c.Chunking.MaxCharacters) {
		return &extract.ValidationError{
			Message: "chunk overlap must be smaller than the chunk size",
			Context: map[string]string{
				"overlap":        strconv.Itoa(c.Chunking.Overlap),
				"max_characters": strconv.Itoa(c.Chunking.MaxCharacters),
			},
		}
	}
	switch c.OCR.Backend {
	case "", "none", "tesseract":
	default:
		return &extract.ValidationError{
			Message: "unknown ocr backend",
			Context: map[string]string{"backend": c.OCR.Backend},
		}
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return &extract.ValidationError{
			Message: "ocr psm must be between 0 and 13",
			Context: map[string]string{"psm": strconv.Itoa(c.OCR.PSM)},
		}
	}
	switch c.Cache.Backend {
	case "", "none", "memory", "redis":
	default:
		return &extract.ValidationError{
			Message: "unknown cache backend",
			Context: map[string]string{"backend": c.Cache.Backend},
		}
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return &extract.ValidationError{
			Message: "redis cache requires an address",
		}
	}
	return nil
}

// ReduceConfig converts the reduction section to the reduce package's form.
func (c *Config) ReduceConfig() reduce.Config {
	return reduce.Config{
		Mode:             reduce.Mode(c.Reduction.Mode),
		PreserveMarkdown: c.Reduction.PreserveMarkdown,
		LanguageHint:     c.Reduction.Language,
	}
}

// ChunkConfig converts the chunking section to the extract package's form.
func (c *Config) ChunkConfig() extract.ChunkConfig {
	return extract.ChunkConfig{
		Enabled:       c.Chunking.Enabled,
		MaxCharacters: c.Chunking.MaxCharacters,
		Overlap:       c.Chunking.Overlap,
	}
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
