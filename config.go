package gostrata

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/gostrata/table"
)

// maxIterationCap is the hard ceiling on secondary-extraction calls per
// table; budgets above it indicate a misconfigured deployment rather than
// a tuning choice.
const maxIterationCap = 5

// Config holds all tunables for the structuring pipeline.
type Config struct {
	// MaxHeadingLevels caps the number of heading levels the classifier
	// may produce.
	MaxHeadingLevels int `json:"max_heading_levels" yaml:"max_heading_levels"`

	// HeadingGapRatio is the relative line-height gap that separates two
	// heading levels.
	HeadingGapRatio float64 `json:"heading_gap_ratio" yaml:"heading_gap_ratio"`

	// MinTableQuality is the score floor below which a table goes to the
	// secondary engine.
	MinTableQuality float64 `json:"min_table_quality" yaml:"min_table_quality"`

	// MinTableCells is the cell count below which a table goes to the
	// secondary engine regardless of score.
	MinTableCells int `json:"min_table_cells" yaml:"min_table_cells"`

	// QualityWeights blends the table quality metrics.
	QualityWeights table.Weights `json:"quality_weights" yaml:"quality_weights"`

	// EnableOptimization allows parameter perturbation beyond the first
	// secondary-extraction attempt.
	EnableOptimization bool `json:"enable_optimization" yaml:"enable_optimization"`

	// MaxOptimizationIterations caps secondary-extraction calls per table,
	// first attempt included. At most maxIterationCap.
	MaxOptimizationIterations int `json:"max_optimization_iterations" yaml:"max_optimization_iterations"`

	// ExtractionTimeout bounds each individual secondary-extraction call.
	ExtractionTimeout time.Duration `json:"extraction_timeout" yaml:"extraction_timeout"`

	// Workers is the number of documents processed in parallel by
	// ProcessAll. Within one document, stages always run sequentially.
	Workers int `json:"workers" yaml:"workers"`

	// CacheSize bounds the shared re-extraction cache; 0 disables it.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// Logger receives structured pipeline events. Nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MaxHeadingLevels:          6,
		HeadingGapRatio:           0.12,
		MinTableQuality:           0.6,
		MinTableCells:             4,
		QualityWeights:            table.DefaultWeights(),
		EnableOptimization:        true,
		MaxOptimizationIterations: 3,
		ExtractionTimeout:         10 * time.Second,
		Workers:                   min(runtime.NumCPU(), 8),
		CacheSize:                 256,
	}
}

// fileConfig mirrors Config for YAML decoding; the timeout travels as a
// duration string.
type fileConfig struct {
	MaxHeadingLevels          int           `yaml:"max_heading_levels"`
	HeadingGapRatio           float64       `yaml:"heading_gap_ratio"`
	MinTableQuality           float64       `yaml:"min_table_quality"`
	MinTableCells             int           `yaml:"min_table_cells"`
	QualityWeights            table.Weights `yaml:"quality_weights"`
	EnableOptimization        *bool         `yaml:"enable_optimization"`
	MaxOptimizationIterations int           `yaml:"max_optimization_iterations"`
	ExtractionTimeout         string        `yaml:"extraction_timeout"`
	Workers                   int           `yaml:"workers"`
	CacheSize                 *int          `yaml:"cache_size"`
}

// LoadConfig builds a Config from defaults, an optional YAML file, and
// GOSTRATA_* environment variables, in that order of precedence. A .env
// file in the working directory is loaded first when present.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
		if fc.MaxHeadingLevels != 0 {
			cfg.MaxHeadingLevels = fc.MaxHeadingLevels
		}
		if fc.HeadingGapRatio != 0 {
			cfg.HeadingGapRatio = fc.HeadingGapRatio
		}
		if fc.MinTableQuality != 0 {
			cfg.MinTableQuality = fc.MinTableQuality
		}
		if fc.MinTableCells != 0 {
			cfg.MinTableCells = fc.MinTableCells
		}
		if !fc.QualityWeights.IsZero() {
			cfg.QualityWeights = fc.QualityWeights
		}
		if fc.EnableOptimization != nil {
			cfg.EnableOptimization = *fc.EnableOptimization
		}
		if fc.MaxOptimizationIterations != 0 {
			cfg.MaxOptimizationIterations = fc.MaxOptimizationIterations
		}
		if fc.ExtractionTimeout != "" {
			d, err := time.ParseDuration(fc.ExtractionTimeout)
			if err != nil {
				return cfg, fmt.Errorf("parsing extraction_timeout: %w", err)
			}
			cfg.ExtractionTimeout = d
		}
		if fc.Workers != 0 {
			cfg.Workers = fc.Workers
		}
		if fc.CacheSize != nil {
			cfg.CacheSize = *fc.CacheSize
		}
	}

	cfg.MaxHeadingLevels = envInt("GOSTRATA_MAX_HEADING_LEVELS", cfg.MaxHeadingLevels)
	cfg.HeadingGapRatio = envFloat("GOSTRATA_HEADING_GAP_RATIO", cfg.HeadingGapRatio)
	cfg.MinTableQuality = envFloat("GOSTRATA_MIN_TABLE_QUALITY", cfg.MinTableQuality)
	cfg.MinTableCells = envInt("GOSTRATA_MIN_TABLE_CELLS", cfg.MinTableCells)
	cfg.EnableOptimization = envBool("GOSTRATA_ENABLE_OPTIMIZATION", cfg.EnableOptimization)
	cfg.MaxOptimizationIterations = envInt("GOSTRATA_MAX_OPTIMIZATION_ITERATIONS", cfg.MaxOptimizationIterations)
	cfg.ExtractionTimeout = envDuration("GOSTRATA_EXTRACTION_TIMEOUT", cfg.ExtractionTimeout)
	cfg.Workers = envInt("GOSTRATA_WORKERS", cfg.Workers)
	cfg.CacheSize = envInt("GOSTRATA_CACHE_SIZE", cfg.CacheSize)

	return cfg, cfg.Validate()
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.MaxHeadingLevels < 1 {
		return fmt.Errorf("%w: max_heading_levels must be at least 1, got %d", ErrInvalidConfig, c.MaxHeadingLevels)
	}
	if c.HeadingGapRatio <= 0 || c.HeadingGapRatio >= 1 {
		return fmt.Errorf("%w: heading_gap_ratio must be in (0,1), got %g", ErrInvalidConfig, c.HeadingGapRatio)
	}
	if c.MinTableQuality < 0 || c.MinTableQuality > 1 {
		return fmt.Errorf("%w: min_table_quality must be in [0,1], got %g", ErrInvalidConfig, c.MinTableQuality)
	}
	if c.MinTableCells < 1 {
		return fmt.Errorf("%w: min_table_cells must be at least 1, got %d", ErrInvalidConfig, c.MinTableCells)
	}
	if c.MaxOptimizationIterations < 1 || c.MaxOptimizationIterations > maxIterationCap {
		return fmt.Errorf("%w: max_optimization_iterations must be in [1,%d], got %d",
			ErrInvalidConfig, maxIterationCap, c.MaxOptimizationIterations)
	}
	if c.ExtractionTimeout <= 0 {
		return fmt.Errorf("%w: extraction_timeout must be positive, got %s", ErrInvalidConfig, c.ExtractionTimeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative, got %d", ErrInvalidConfig, c.CacheSize)
	}
	return nil
}

// Env helpers keep the current value on parse failure, matching the
// keep-defaults behavior of the file loader.

func envInt(key string, cur int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return cur
}

func envFloat(key string, cur float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return cur
}

func envBool(key string, cur bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return cur
}

func envDuration(key string, cur time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return cur
}
