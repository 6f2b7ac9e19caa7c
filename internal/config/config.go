// Package config loads and validates ORPHAN_* environment variables at
// startup. Every problem is reported at once; the process should exit when
// Load fails.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const prefix = "ORPHAN_"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	HTTPAddr string
	// GRPCAddr is empty when the gRPC health server is disabled.
	GRPCAddr string

	Backend    string
	PGDSN      string
	APIBaseURL string
	APITimeout time.Duration
	APIRate    float64
	APIBurst   int
	DemoSeed   bool

	RedisURL  string
	ViewTTL   time.Duration
	ViewSweep time.Duration

	RatePerSec   float64
	RateBurst    int
	MaxBodyBytes int64
	CORSOrigins  []string

	LogLevel  string
	LogFormat string
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads variables through lookup.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}
	cfg := &Config{
		HTTPAddr:     r.str("HTTP_ADDR", ":8080"),
		GRPCAddr:     r.str("GRPC_ADDR", ":9090"),
		Backend:      strings.ToLower(r.str("BACKEND", BackendMemory)),
		PGDSN:        r.str("PG_DSN", ""),
		APIBaseURL:   r.str("API_BASE_URL", ""),
		APITimeout:   r.duration("API_TIMEOUT", 10*time.Second),
		APIRate:      r.number("API_RATE", 0),
		APIBurst:     r.integer("API_BURST", 10),
		DemoSeed:     r.boolean("DEMO_SEED", false),
		RedisURL:     r.str("REDIS_URL", ""),
		ViewTTL:      r.duration("VIEW_TTL", 30*time.Minute),
		ViewSweep:    r.duration("VIEW_SWEEP", time.Minute),
		RatePerSec:   r.number("RATE_PER_SEC", 20),
		RateBurst:    r.integer("RATE_BURST", 40),
		MaxBodyBytes: int64(r.integer("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:  r.list("CORS_ORIGINS"),
		LogLevel:     strings.ToLower(r.str("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(r.str("LOG_FORMAT", "json")),
	}
	if strings.EqualFold(cfg.GRPCAddr, "off") {
		cfg.GRPCAddr = ""
	}

	switch cfg.Backend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.PGDSN == "" {
			r.fail("PG_DSN", "is required for the postgres backend")
		}
	case BackendRemote:
		if cfg.APIBaseURL == "" {
			r.fail("API_BASE_URL", "is required for the remote backend")
		} else if u, err := url.Parse(cfg.APIBaseURL); err != nil || !u.IsAbs() {
			r.fail("API_BASE_URL", "must be an absolute URL")
		}
	default:
		r.fail("BACKEND", "must be one of memory, postgres, remote")
	}
	if cfg.HTTPAddr == "" {
		r.fail("HTTP_ADDR", "must not be empty")
	}
	if cfg.ViewTTL <= 0 {
		r.fail("VIEW_TTL", "must be positive")
	}
	if cfg.ViewSweep <= 0 {
		r.fail("VIEW_SWEEP", "must be positive")
	}
	if cfg.RatePerSec <= 0 || cfg.RateBurst <= 0 {
		r.fail("RATE_PER_SEC", "and RATE_BURST must be positive")
	}
	if cfg.MaxBodyBytes <= 0 {
		r.fail("MAX_BODY_BYTES", "must be positive")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		r.fail("LOG_FORMAT", "must be json or console")
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) fail(key, msg string) {
	r.errs = append(r.errs, fmt.Errorf("%s%s %s", prefix, key, msg))
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(prefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid int %q", v))
		return def
	}
	return n
}

func (r *reader) number(key string, def float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid number %q", v))
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid bool %q", v))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid duration %q (e.g. 250ms, 2s, 1h)", v))
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	v, ok := r.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
