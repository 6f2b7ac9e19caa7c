package application

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"orphanadmin/internal/auth"
	"orphanadmin/internal/ids"
	"orphanadmin/internal/query"
)

// InMemory implements Service with in-process concurrency safety. It backs
// tests and the demo mode of cmd/api.
type InMemory struct {
	mu   sync.RWMutex
	apps map[string]Application
	now  func() time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		apps: make(map[string]Application),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores applications as given, assigning ids and timestamps only where
// they are missing.
func (s *InMemory) Seed(apps ...Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range apps {
		if a.ID == "" {
			a.ID = ids.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = s.now()
		}
		if a.LastModifiedAt.IsZero() {
			a.LastModifiedAt = a.CreatedAt
		}
		s.apps[a.ID] = clone(a)
	}
}

func (s *InMemory) ListApplications(ctx context.Context, q query.State) (Page, error) {
	q, err := ValidateQuery(q)
	if err != nil {
		return Page{}, err
	}
	s.mu.RLock()
	rows := make([]Summary, 0, len(s.apps))
	for _, a := range s.apps {
		rows = append(rows, a.Summary())
	}
	s.mu.RUnlock()
	return Paginate(rows, q), nil
}

func (s *InMemory) GetApplication(ctx context.Context, id string) (Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return Application{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(a), nil
}

func (s *InMemory) CreateApplication(ctx context.Context, d Draft) (Application, error) {
	d, status, err := PrepareSave("", d)
	if err != nil {
		return Application{}, err
	}
	now := s.now()
	a := Application{
		ID:             ids.NewAt(now),
		Status:         status,
		CreatedBy:      Actor(ctx),
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	a = applyDraft(a, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[a.ID] = a
	return clone(a), nil
}

func (s *InMemory) UpdateApplication(ctx context.Context, id string, d Draft) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return Application{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d, status, err := PrepareSave(a.Status, d)
	if err != nil {
		return Application{}, err
	}
	if status == StatusPending && a.Status == StatusRejected {
		a.RejectionMessage = ""
	}
	a = applyDraft(a, d)
	a.Status = status
	a.LastModifiedAt = s.now()
	s.apps[id] = a
	return clone(a), nil
}

func (s *InMemory) DeleteApplication(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.apps, id)
	return nil
}

func (s *InMemory) UpdateApplicationStatus(ctx context.Context, id string, target Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := ValidateTransition(a.Status, target, message); err != nil {
		return err
	}
	a.Status = target
	a.RejectionMessage = RejectionMessageFor(target, message)
	a.LastReviewedBy = Actor(ctx)
	a.LastModifiedAt = s.now()
	s.apps[id] = a
	return nil
}

// RejectionMessageFor returns the message to store with target. Only
// rejections keep one.
func RejectionMessageFor(target Status, message string) string {
	if target != StatusRejected {
		return ""
	}
	return trimMessage(message)
}

func applyDraft(a Application, d Draft) Application {
	a.PrimaryInformation = d.PrimaryInformation
	a.Address = d.Address
	a.Guardian = d.Guardian
	a.Education = d.Education
	a.FamilyMembers = slices.Clone(d.FamilyMembers)
	if a.FamilyMembers == nil {
		a.FamilyMembers = []FamilyMember{}
	}
	a.PhotoURL = d.PhotoURL
	return a
}

func clone(a Application) Application {
	a.FamilyMembers = slices.Clone(a.FamilyMembers)
	if a.FamilyMembers == nil {
		a.FamilyMembers = []FamilyMember{}
	}
	return a
}

// Actor is the acting user id from ctx, or "system" for background work.
func Actor(ctx context.Context) string {
	if id, ok := auth.UserIDFromContext(ctx); ok && id != "" {
		return id
	}
	return "system"
}
