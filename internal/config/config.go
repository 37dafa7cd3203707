package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type SchedulerConfig struct {
	// EntityMax is the ceiling on candidate identifiers for one side of an edge.
	EntityMax int `toml:"entity_max"`
}

type ScoringConfig struct {
	TuningParam           float64  `toml:"tuning_param"`
	RecordWeight          float64  `toml:"record_weight"`
	TextMinedRecordWeight float64  `toml:"text_mined_record_weight"`
	RelatednessWeight     float64  `toml:"relatedness_weight"`
	LengthPenalty         float64  `toml:"length_penalty"`
	TextMinedSources      []string `toml:"text_mined_sources"`
}

type RelatednessConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (c RelatednessConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	InMemory   bool   `toml:"in_memory"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ProvidersConfig struct {
	// FixturePath points at a JSON file of records served by the fixture provider.
	FixturePath string `toml:"fixture_path"`
	// ResolverPath points at a JSON identifier equivalence/subclass table.
	ResolverPath string `toml:"resolver_path"`
	Concurrency  int    `toml:"concurrency"`
}

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Relatedness RelatednessConfig `toml:"relatedness"`
	Cache       CacheConfig       `toml:"cache"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Providers   ProvidersConfig   `toml:"providers"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Scheduler: SchedulerConfig{EntityMax: 1000},
		Scoring: ScoringConfig{
			TuningParam:           2.0,
			RecordWeight:          1.0,
			TextMinedRecordWeight: 0.5,
			RelatednessWeight:     0.25,
			LengthPenalty:         2.0,
			TextMinedSources: []string{
				"infores:biothings-semmeddb",
				"infores:scibite",
				"infores:semmeddb",
				"infores:text-mining-provider-cooccurrence",
				"infores:text-mining-provider-targeted",
			},
		},
		Relatedness: RelatednessConfig{TimeoutSeconds: 10},
		Cache:       CacheConfig{InMemory: true, TTLSeconds: 600},
		Providers:   ProvidersConfig{Concurrency: 4},
	}
}

// Load reads a TOML file on top of Default, so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scheduler.EntityMax <= 0 {
		return fmt.Errorf("scheduler.entity_max must be positive, got %d", c.Scheduler.EntityMax)
	}
	if c.Scoring.TuningParam <= 0 {
		return fmt.Errorf("scoring.tuning_param must be positive, got %v", c.Scoring.TuningParam)
	}
	if c.Providers.Concurrency < 0 {
		return fmt.Errorf("providers.concurrency must be non-negative")
	}
	return nil
}

// ApplyEnv overrides file values with environment variables when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("KGFED_ENTITY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scheduler.EntityMax = n
		}
	}
	if v := os.Getenv("KGFED_RELATEDNESS_URL"); v != "" {
		c.Relatedness.URL = v
	}
	if v := os.Getenv("KGFED_CACHE_PATH"); v != "" {
		c.Cache.Enabled = true
		c.Cache.InMemory = false
		c.Cache.Path = v
	}
	if v := os.Getenv("KGFED_FIXTURE_PATH"); v != "" {
		c.Providers.FixturePath = v
	}
	if v := os.Getenv("KGFED_RESOLVER_PATH"); v != "" {
		c.Providers.ResolverPath = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
}
