package ids

import (
	"testing"
	"time"
)

func TestNewIsMonotonic(t *testing.T) {
	now := time.Now()
	a := NewAt(now)
	b := NewAt(now)
	if a >= b {
		t.Fatalf("expected %s < %s", a, b)
	}
	if !Valid(a) || !Valid(b) {
		t.Fatalf("generated ids must be valid")
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", "not-a-ulid-at-all-00000000"} {
		if Valid(s) {
			t.Fatalf("Valid(%q) = true", s)
		}
	}
}
