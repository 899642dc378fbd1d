// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the API server and CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string for the trip log. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// Migrate applies the embedded goose migrations on startup when true.
	Migrate bool

	Simulation Simulation
	Scorer     Scorer
}

// Simulation holds the tunables of the baseline and greedy simulator.
type Simulation struct {
	// Timezone names the IANA zone used to resolve a calendar day into an
	// absolute time range. Defaults to "Europe/Amsterdam".
	Timezone string `yaml:"timezone"`

	RestThresholdMinutes float64 `yaml:"rest_threshold_minutes"`
	LookaheadMinutes     int     `yaml:"lookahead_minutes"`
	ToleranceMinutes     int     `yaml:"tolerance_minutes"`
	HexRingK             int     `yaml:"hex_ring_k"`
}

// Location resolves Timezone. An unknown name is a configuration error and is
// caught by Load, so callers holding a loaded Config can rely on it.
func (s Simulation) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Scorer configures the external ride-scoring model client.
type Scorer struct {
	// BaseURL is the prefix a trip id is appended to. Always ends with "/".
	BaseURL        string        `yaml:"base_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`

	// RateLimit caps outbound scoring requests per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// CacheRedisURL switches the score cache to Redis when set.
	CacheRedisURL string `yaml:"cache_redis_url"`
}

// DefaultSimulation returns the simulator defaults.
func DefaultSimulation() Simulation {
	return Simulation{
		Timezone:             "Europe/Amsterdam",
		RestThresholdMinutes: 30,
		LookaheadMinutes:     30,
		ToleranceMinutes:     5,
		HexRingK:             2,
	}
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set or any
// values that cannot be parsed.
func Load() (Config, error) {
	return load(true)
}

// LoadWithoutDatabase is Load for commands that never touch the trip log
// (ring lookups, scoring probes). DATABASE_URL is read but not required.
func LoadWithoutDatabase() (Config, error) {
	return load(false)
}

func load(requireDB bool) (Config, error) {
	p := &parser{}
	def := DefaultSimulation()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Migrate:     p.getBool("DB_MIGRATE", false),
		Simulation: Simulation{
			Timezone:             getEnv("SIM_TIMEZONE", def.Timezone),
			RestThresholdMinutes: p.getFloat("SIM_REST_THRESHOLD_MINUTES", def.RestThresholdMinutes),
			LookaheadMinutes:     p.getInt("SIM_LOOKAHEAD_MINUTES", def.LookaheadMinutes),
			ToleranceMinutes:     p.getInt("SIM_TOLERANCE_MINUTES", def.ToleranceMinutes),
			HexRingK:             p.getInt("SIM_HEX_RING_K", def.HexRingK),
		},
		Scorer: Scorer{
			BaseURL:        getEnv("SCORER_BASE_URL", "http://127.0.0.1:8000/prediction/"),
			ConnectTimeout: p.getDuration("SCORER_CONNECT_TIMEOUT", 2*time.Second),
			ReadTimeout:    p.getDuration("SCORER_READ_TIMEOUT", 3*time.Second),
			RateLimit:      p.getFloat("SCORER_RATE_LIMIT", 0),
			CacheRedisURL:  os.Getenv("SCORE_CACHE_REDIS_URL"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && requireDB {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors the YAML overlay. Only keys present in the file override.
type fileConfig struct {
	Simulation struct {
		Timezone             *string  `yaml:"timezone"`
		RestThresholdMinutes *float64 `yaml:"rest_threshold_minutes"`
		LookaheadMinutes     *int     `yaml:"lookahead_minutes"`
		ToleranceMinutes     *int     `yaml:"tolerance_minutes"`
		HexRingK             *int     `yaml:"hex_ring_k"`
	} `yaml:"simulation"`
	Scorer struct {
		BaseURL        *string        `yaml:"base_url"`
		ConnectTimeout *time.Duration `yaml:"connect_timeout"`
		ReadTimeout    *time.Duration `yaml:"read_timeout"`
		RateLimit      *float64       `yaml:"rate_limit"`
		CacheRedisURL  *string        `yaml:"cache_redis_url"`
	} `yaml:"scorer"`
}

// ApplyFile overlays the simulation and scorer blocks of a YAML file onto cfg.
//
//	simulation:
//	  lookahead_minutes: 45
//	scorer:
//	  read_timeout: 1500ms
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.ApplyFile: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config.ApplyFile: parse %s: %w", path, err)
	}

	s := &c.Simulation
	set(&s.Timezone, f.Simulation.Timezone)
	set(&s.RestThresholdMinutes, f.Simulation.RestThresholdMinutes)
	set(&s.LookaheadMinutes, f.Simulation.LookaheadMinutes)
	set(&s.ToleranceMinutes, f.Simulation.ToleranceMinutes)
	set(&s.HexRingK, f.Simulation.HexRingK)

	sc := &c.Scorer
	set(&sc.BaseURL, f.Scorer.BaseURL)
	set(&sc.ConnectTimeout, f.Scorer.ConnectTimeout)
	set(&sc.ReadTimeout, f.Scorer.ReadTimeout)
	set(&sc.RateLimit, f.Scorer.RateLimit)
	set(&sc.CacheRedisURL, f.Scorer.CacheRedisURL)

	return c.normalize()
}

// normalize validates cross-field rules and canonicalises values.
func (c *Config) normalize() error {
	if _, err := c.Simulation.Location(); err != nil {
		return fmt.Errorf("invalid SIM_TIMEZONE %q: %w", c.Simulation.Timezone, err)
	}
	if c.Scorer.BaseURL != "" && !strings.HasSuffix(c.Scorer.BaseURL, "/") {
		c.Scorer.BaseURL += "/"
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser reads typed env values and remembers the keys that failed to parse.
type parser struct {
	invalid []string
}

func (p *parser) getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
