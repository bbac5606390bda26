package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketsynth/internal/generator"
	"marketsynth/internal/indicator"
	"marketsynth/internal/model"
	"marketsynth/internal/schedule"
	"marketsynth/internal/synth"
)

// Supported sinks.
const (
	SinkSQLite   = "sqlite"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
)

// Config holds all application configuration. Values come from defaults,
// then the optional YAML generator file, then environment variables.
type Config struct {
	// Generation
	Symbols     []string
	Seed        int64
	BatchSize   int
	Concurrency int
	StartMin    float64
	StartMax    float64
	Phases      []schedule.PhaseConfig
	Profiles    map[model.Resolution]synth.Profile
	Indicators  indicator.Params

	// Infrastructure
	Sink          string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	PostgresDSN   string
	HTTPAddr      string
	MetricsAddr   string // generate's /metrics and /healthz; "off" disables
	LogLevel      string

	GeneratorFile string
}

// FileConfig is the YAML generator file layout. Absent sections keep
// their defaults.
type FileConfig struct {
	Symbols    []string                 `yaml:"symbols"`
	Seed       *int64                   `yaml:"seed"`
	Phases     []schedule.PhaseConfig   `yaml:"phases"`
	Profiles   map[string]synth.Profile `yaml:"profiles"`
	StartPrice *struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"start_price"`
	Indicators yaml.Node `yaml:"indicators"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Symbols:     append([]string(nil), model.DefaultSymbols...),
		BatchSize:   generator.DefaultBatchSize,
		StartMin:    synth.DefaultStartMin,
		StartMax:    synth.DefaultStartMax,
		Phases:      schedule.DefaultPhases(),
		Profiles:    synth.DefaultProfiles(),
		Indicators:  indicator.DefaultParams(),
		Sink:        SinkSQLite,
		SQLitePath:  "data/marketsynth.db",
		RedisAddr:   "localhost:6379",
		PostgresDSN: "host=localhost user=postgres dbname=marketsynth port=5432 sslmode=disable TimeZone=UTC",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
	}
}

// Load reads .env (if present), the GENERATOR_CONFIG file (if set) and the
// environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	cfg.GeneratorFile = getEnv("GENERATOR_CONFIG", "")
	if cfg.GeneratorFile != "" {
		if err := cfg.ApplyFile(cfg.GeneratorFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays the YAML generator file at path.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return c.ApplyYAML(data)
}

// ApplyYAML overlays a generator file already in memory.
func (c *Config) ApplyYAML(data []byte) error {
	var f FileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	if len(f.Symbols) > 0 {
		c.Symbols = f.Symbols
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if f.Phases != nil {
		c.Phases = f.Phases
	}
	for label, p := range f.Profiles {
		res, err := model.ParseResolution(label)
		if err != nil {
			return err
		}
		c.Profiles[res] = p
	}
	if f.StartPrice != nil {
		c.StartMin, c.StartMax = f.StartPrice.Min, f.StartPrice.Max
	}
	// Decoding onto the current params keeps every key the file omits.
	if !f.Indicators.IsZero() {
		if err := f.Indicators.Decode(&c.Indicators); err != nil {
			return fmt.Errorf("failed to parse indicators from YAML: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("SYMBOLS", ""); v != "" {
		c.Symbols = SplitList(v)
	}
	var err error
	if c.Seed, err = envInt64("SEED", c.Seed); err != nil {
		return err
	}
	if c.BatchSize, err = envInt("BATCH_SIZE", c.BatchSize); err != nil {
		return err
	}
	if c.Concurrency, err = envInt("CONCURRENCY", c.Concurrency); err != nil {
		return err
	}
	if v := getEnv("INDICATOR_CONFIGS", ""); v != "" {
		if c.Indicators, err = indicator.ParseSpecs(v, c.Indicators); err != nil {
			return err
		}
	}

	c.Sink = strings.ToLower(getEnv("SINK", c.Sink))
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	return nil
}

// Validate reports the first invalid setting as a *model.ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return model.Errorf("config", "no symbols configured")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" {
			return model.Errorf("config", "empty symbol")
		}
		if seen[s] {
			return model.Errorf("config", "duplicate symbol %q", s)
		}
		seen[s] = true
	}
	if c.BatchSize < 1 {
		return model.Errorf("config", "batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 0 {
		return model.Errorf("config", "concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.StartMin <= 0 || c.StartMax <= c.StartMin {
		return model.Errorf("config", "start price range [%g, %g) is invalid", c.StartMin, c.StartMax)
	}
	switch c.Sink {
	case SinkSQLite, SinkRedis, SinkPostgres:
	default:
		return model.Errorf("config", "unknown sink %q (want sqlite, redis or postgres)", c.Sink)
	}
	if _, err := schedule.Resolve(time.Now(), c.Phases); err != nil {
		return err
	}
	if _, err := synth.New(c.Profiles); err != nil {
		return err
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func envInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.Errorf("config", "%s: %q is not an integer", key, v)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, model.Errorf("config", "%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// LogValue keeps secrets out of the startup log line.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("symbols", len(c.Symbols)),
		slog.Int64("seed", c.Seed),
		slog.Int("batch_size", c.BatchSize),
		slog.Int("concurrency", c.Concurrency),
		slog.String("sink", c.Sink),
		slog.String("sqlite_path", c.SQLitePath),
		slog.String("redis_addr", c.RedisAddr),
		slog.String("http_addr", c.HTTPAddr),
		slog.String("metrics_addr", c.MetricsAddr),
		slog.String("generator_file", c.GeneratorFile),
	)
}
