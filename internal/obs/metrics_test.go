package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                    "/",
		"/metrics":                            "/metrics",
		"/v1/applications":                    "/v1/applications",
		"/v1/applications?page=2":             "/v1/applications",
		"/v1/applications/01HZX":              "/v1/applications/:id",
		"/v1/applications/01HZX/status":       "/v1/applications/:id/status",
		"/v1/applications/01HZX/export":       "/v1/applications/:id/export",
		"/v1/applications/01HZX/transitions":  "/v1/applications/:id/transitions",
		"/v1/applications/01HZX/other":        "/v1/applications/01HZX/other",
		"/v1/views/abc/intents":               "/v1/views/:id/intents",
		"/v1/views/abc":                       "/v1/views/:id",
		"/v1/auth/token":                      "/v1/auth/token",
		"/v1/applications/01HZX/status/extra": "/v1/applications/01HZX/status/extra",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
}

func TestSetOutputCapturesJSON(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Named("test").Info().Str("k", "v").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "component", "service"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in %v", key, entry)
		}
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
