package application

import (
	"context"
	"testing"
	"time"

	"orphanadmin/internal/query"
)

func TestDemoApplicationsCoverEveryStatus(t *testing.T) {
	apps := DemoApplications(14, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if len(apps) != 14 {
		t.Fatalf("expected 14 applications, got %d", len(apps))
	}
	seen := map[Status]bool{}
	for _, a := range apps {
		seen[a.Status] = true
		d := Draft{PrimaryInformation: a.PrimaryInformation, Address: a.Address, Guardian: a.Guardian}
		if err := d.Validate(); err != nil {
			t.Fatalf("%s: %v", a.ID, err)
		}
		if complete := d.Complete(); complete == (a.Status == StatusIncomplete) {
			t.Fatalf("%s: status %s but complete=%v", a.ID, a.Status, complete)
		}
	}
	for _, st := range Statuses {
		if !seen[st] {
			t.Fatalf("status %s not covered", st)
		}
	}

	s := NewInMemory()
	s.Seed(apps...)
	p, err := s.ListApplications(context.Background(), query.SetFilter(query.Default(), query.FilterStatus, "REJECTED"))
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalElements != 2 {
		t.Fatalf("expected 2 rejected demo applications, got %d", p.TotalElements)
	}
}
