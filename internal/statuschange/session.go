// Package statuschange drives one "change status" dialog for an application
// as an explicit state machine.
package statuschange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/obs"
)

var (
	ErrClosed     = errors.New("status change session is closed")
	ErrSubmitting = errors.New("status change already submitting")
)

// State of a session.
//
//	Idle -> StatusSelected -> RejectionMessageRequired | ReadyToConfirm
//	ReadyToConfirm -> Submitting -> Closed | ErrorShown
//
// StatusSelected resolves immediately to one of its two successors, and
// ErrorShown behaves like the state it was entered from.
type State int

const (
	Idle State = iota
	StatusSelected
	RejectionMessageRequired
	ReadyToConfirm
	Submitting
	Closed
	ErrorShown
)

var stateNames = [...]string{
	Idle:                     "idle",
	StatusSelected:           "status_selected",
	RejectionMessageRequired: "rejection_message_required",
	ReadyToConfirm:           "ready_to_confirm",
	Submitting:               "submitting",
	Closed:                   "closed",
	ErrorShown:               "error_shown",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Refresh is called after a status change so that views showing the
// application reload it.
type Refresh func(ctx context.Context)

type Option func(*Session)

// WithDetailRefresh sets the refresh for an open detail view.
func WithDetailRefresh(fn Refresh) Option { return func(s *Session) { s.refreshDetail = fn } }

// WithListRefresh sets the refresh for the list view.
func WithListRefresh(fn Refresh) Option { return func(s *Session) { s.refreshList = fn } }

// Session is one status change dialog. It is safe for concurrent use; the
// status update call is made without holding the lock.
type Session struct {
	applicationID string
	current       application.Status
	roles         auth.Roles
	updater       application.StatusUpdater
	notifier      notify.Notifier
	refreshDetail Refresh
	refreshList   Refresh

	mu       sync.Mutex
	state    State
	resumeAt State
	target   application.Status
	message  string
	lastErr  error
}

// New opens a session for the application with the given current status.
func New(id string, current application.Status, roles auth.Roles, u application.StatusUpdater, n notify.Notifier, opts ...Option) *Session {
	if n == nil {
		n = notify.Discard
	}
	s := &Session{
		applicationID: id,
		current:       current,
		roles:         roles,
		updater:       u,
		notifier:      n,
		state:         Idle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Targets lists the statuses the actor may pick. Empty when the actor may not
// change the status at all.
func (s *Session) Targets() []application.Status {
	if !application.CanChangeStatus(s.current, s.roles) {
		return []application.Status{}
	}
	return application.AvailableTargets(s.current)
}

// Select picks the target status.
func (s *Session) Select(target application.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !application.CanChangeStatus(s.current, s.roles) {
		return fmt.Errorf("%w: cannot change status of a %s application", auth.ErrForbidden, s.current)
	}
	if !application.TransitionAllowed(s.current, target) {
		return fmt.Errorf("%w: %s -> %s", application.ErrInvalidTransition, s.current, target)
	}
	s.target = target
	s.state = StatusSelected
	s.settle()
	return nil
}

// SetMessage sets the rejection message. It may be called before or after
// Select.
func (s *Session) SetMessage(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.message = msg
	if s.target != "" {
		s.settle()
	}
	return nil
}

// Submit sends the selected change. On success the session closes and the
// detail and list views are refreshed. On failure the error is returned, the
// selection is kept for a retry, and a stale-view failure also refreshes.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	st := s.effective()
	switch st {
	case Closed:
		s.mu.Unlock()
		return ErrClosed
	case Submitting:
		s.mu.Unlock()
		return ErrSubmitting
	case Idle:
		s.mu.Unlock()
		return fmt.Errorf("%w: no status selected", application.ErrValidation)
	case RejectionMessageRequired:
		s.mu.Unlock()
		return fmt.Errorf("%w: a rejection message is required", application.ErrValidation)
	}
	target, message := s.target, s.message
	if err := application.ValidateTransition(s.current, target, message); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = Submitting
	s.mu.Unlock()

	err := s.updater.UpdateApplicationStatus(ctx, s.applicationID, target, application.RejectionMessageFor(target, message))

	s.mu.Lock()
	if err != nil {
		s.state = ErrorShown
		s.resumeAt = ReadyToConfirm
		s.lastErr = err
		s.mu.Unlock()
		obs.ObserveTransition(string(target), "error")
		s.notifier.Notify(ctx, notify.Failure("change status to "+string(target), s.applicationID, err))
		if errors.Is(err, application.ErrInvalidTransition) {
			s.refresh(ctx)
		}
		return err
	}
	s.state = Closed
	s.lastErr = nil
	s.mu.Unlock()

	obs.ObserveTransition(string(target), "ok")
	s.notifier.Notify(ctx, notify.Success("change status to "+string(target), s.applicationID, "status changed to "+string(target)))
	s.refresh(ctx)
	return nil
}

// Snapshot is the render-ready view of a session.
type Snapshot struct {
	ApplicationID string               `json:"applicationId"`
	Current       application.Status   `json:"current"`
	State         State                `json:"state"`
	Target        application.Status   `json:"target,omitempty"`
	Message       string               `json:"message,omitempty"`
	Targets       []application.Status `json:"targets"`
	CanSubmit     bool                 `json:"canSubmit"`
	Error         string               `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	targets := s.Targets()
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ApplicationID: s.applicationID,
		Current:       s.current,
		State:         s.state,
		Target:        s.target,
		Message:       s.message,
		Targets:       targets,
		CanSubmit:     s.effective() == ReadyToConfirm,
	}
	if s.lastErr != nil && s.state == ErrorShown {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) effective() State {
	if s.state == ErrorShown {
		return s.resumeAt
	}
	return s.state
}

func (s *Session) editable() error {
	switch s.state {
	case Closed:
		return ErrClosed
	case Submitting:
		return ErrSubmitting
	}
	return nil
}

// settle resolves StatusSelected (and an error state being edited) from the
// current target and message.
func (s *Session) settle() {
	if application.CanSubmit(s.target, s.message) {
		s.state = ReadyToConfirm
	} else {
		s.state = RejectionMessageRequired
	}
}

func (s *Session) refresh(ctx context.Context) {
	if s.refreshDetail != nil {
		s.refreshDetail(ctx)
	}
	if s.refreshList != nil {
		s.refreshList(ctx)
	}
}
