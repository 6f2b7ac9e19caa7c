package statuschange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/notify"
)

type call struct {
	ID      string
	Target  application.Status
	Message string
}

type recorder struct {
	calls []call
	err   error
}

func (r *recorder) UpdateApplicationStatus(_ context.Context, id string, target application.Status, msg string) error {
	r.calls = append(r.calls, call{id, target, msg})
	return r.err
}

type noteLog struct{ notes []notify.Notification }

func (n *noteLog) Notify(_ context.Context, note notify.Notification) {
	n.notes = append(n.notes, note)
}

func TestRejectWithMessageScenario(t *testing.T) {
	agent := auth.Roles{auth.RoleAgent}
	if !application.CanChangeStatus(application.StatusPending, agent) {
		t.Fatal("agent should be able to change a PENDING application")
	}
	rec := &recorder{}
	notes := &noteLog{}
	var detail, list int
	s := New("app-1", application.StatusPending, agent, rec, notes,
		WithDetailRefresh(func(context.Context) { detail++ }),
		WithListRefresh(func(context.Context) { list++ }))
	ctx := context.Background()

	if err := s.Select(application.StatusRejected); err != nil {
		t.Fatal(err)
	}
	if s.State() != RejectionMessageRequired {
		t.Fatalf("state %s", s.State())
	}
	if err := s.Submit(ctx); !errors.Is(err, application.ErrValidation) {
		t.Fatalf("submission without message: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("blocked submission reached the API")
	}

	if err := s.SetMessage("Missing documents"); err != nil {
		t.Fatal(err)
	}
	if s.State() != ReadyToConfirm {
		t.Fatalf("state %s", s.State())
	}
	if err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	want := []call{{"app-1", application.StatusRejected, "Missing documents"}}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if s.State() != Closed || detail != 1 || list != 1 {
		t.Fatalf("state %s detail %d list %d", s.State(), detail, list)
	}
	if len(notes.notes) != 1 || notes.notes[0].Level != notify.LevelSuccess {
		t.Fatalf("notes %+v", notes.notes)
	}
	if err := s.Select(application.StatusAccepted); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed session accepted input: %v", err)
	}
}

func TestWhitespaceMessageStillRequired(t *testing.T) {
	s := New("a", application.StatusPending, auth.Roles{auth.RoleAdmin}, &recorder{}, nil)
	_ = s.Select(application.StatusRejected)
	_ = s.SetMessage("   ")
	if s.State() != RejectionMessageRequired {
		t.Fatalf("state %s", s.State())
	}
}

func TestSelectRejectsInvalidTargets(t *testing.T) {
	s := New("a", application.StatusPending, auth.Roles{auth.RoleAuthenticator}, &recorder{}, nil)
	if err := s.Select(application.StatusGranted); !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if s.State() != Idle {
		t.Fatalf("state %s", s.State())
	}

	s = New("a", application.StatusPending, nil, &recorder{}, nil)
	if err := s.Select(application.StatusAccepted); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(s.Targets()) != 0 {
		t.Fatal("anonymous actor offered targets")
	}

	s = New("a", application.StatusGranted, auth.Roles{auth.RoleAdmin}, &recorder{}, nil)
	if err := s.Select(application.StatusPending); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAcceptDropsMessage(t *testing.T) {
	rec := &recorder{}
	s := New("a", application.StatusPending, auth.Roles{auth.RoleAuthenticator}, rec, nil)
	_ = s.SetMessage("not needed")
	_ = s.Select(application.StatusAccepted)
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec.calls[0].Message != "" {
		t.Fatalf("message passed for ACCEPTED: %q", rec.calls[0].Message)
	}
}

func TestFailureKeepsSelectionForRetry(t *testing.T) {
	rec := &recorder{err: fmt.Errorf("%w: upstream 500", application.ErrFetch)}
	notes := &noteLog{}
	var list int
	s := New("a", application.StatusAccepted, auth.Roles{auth.RoleAdmin}, rec, notes,
		WithListRefresh(func(context.Context) { list++ }))
	ctx := context.Background()

	_ = s.Select(application.StatusGranted)
	if err := s.Submit(ctx); !errors.Is(err, application.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != ErrorShown || snap.Target != application.StatusGranted || !snap.CanSubmit || snap.Error == "" {
		t.Fatalf("snapshot %+v", snap)
	}
	if list != 0 {
		t.Fatal("plain failure must not refresh")
	}
	if len(notes.notes) != 1 || notes.notes[0].Level != notify.LevelError {
		t.Fatalf("notes %+v", notes.notes)
	}

	rec.err = nil
	if err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if s.State() != Closed || len(rec.calls) != 2 {
		t.Fatalf("retry: state %s calls %d", s.State(), len(rec.calls))
	}
}

func TestStaleViewRefreshes(t *testing.T) {
	svc := application.NewInMemory()
	svc.Seed(application.Application{ID: "a", Status: application.StatusAccepted})
	var list int
	// The dialog was opened on a PENDING row that has since been accepted.
	s := New("a", application.StatusPending, auth.Roles{auth.RoleAdmin}, svc, nil,
		WithListRefresh(func(context.Context) { list++ }))
	_ = s.Select(application.StatusRejected)
	_ = s.SetMessage("duplicate")
	err := s.Submit(context.Background())
	if !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if list != 1 {
		t.Fatalf("list refreshed %d times", list)
	}
}

func TestStateJSONName(t *testing.T) {
	b, _ := ReadyToConfirm.MarshalText()
	if string(b) != "ready_to_confirm" {
		t.Fatalf("got %s", b)
	}
}
