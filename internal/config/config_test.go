package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		HTTPAddr:     ":8080",
		GRPCAddr:     ":9090",
		Backend:      BackendMemory,
		APITimeout:   10 * time.Second,
		APIBurst:     10,
		ViewTTL:      30 * time.Minute,
		ViewSweep:    time.Minute,
		RatePerSec:   20,
		RateBurst:    40,
		MaxBodyBytes: 1 << 20,
		LogLevel:     "info",
		LogFormat:    "json",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
}

func TestRemoteBackend(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"ORPHAN_BACKEND":      "Remote",
		"ORPHAN_API_BASE_URL": "https://api.example.org",
		"ORPHAN_API_RATE":     "5.5",
		"ORPHAN_GRPC_ADDR":    "off",
		"ORPHAN_CORS_ORIGINS": "https://a.example, https://b.example ,",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendRemote || cfg.APIRate != 5.5 || cfg.GRPCAddr != "" {
		t.Fatalf("cfg %+v", cfg)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins); diff != "" {
		t.Fatalf("cors (-want +got):\n%s", diff)
	}
}

func TestReportsEveryProblem(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{
		"ORPHAN_BACKEND":    "postgres",
		"ORPHAN_VIEW_TTL":   "soon",
		"ORPHAN_RATE_BURST": "many",
		"ORPHAN_LOG_FORMAT": "xml",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"ORPHAN_PG_DSN", "ORPHAN_VIEW_TTL", "ORPHAN_RATE_BURST", "ORPHAN_LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := LoadFrom(env(map[string]string{"ORPHAN_BACKEND": "mongo"})); err == nil {
		t.Fatal("expected error")
	}
	if _, err := LoadFrom(env(map[string]string{"ORPHAN_BACKEND": "remote", "ORPHAN_API_BASE_URL": "/relative"})); err == nil {
		t.Fatal("expected error for relative url")
	}
}
