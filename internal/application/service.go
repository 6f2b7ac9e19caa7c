package application

import (
	"context"
	"fmt"

	"orphanadmin/internal/query"
)

// Service is the application API port. Every backend (in-memory, Postgres,
// remote HTTP) implements it with the same error taxonomy. The acting user is
// taken from the context (see auth.ContextWithUser).
type Service interface {
	ListApplications(ctx context.Context, q query.State) (Page, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	CreateApplication(ctx context.Context, d Draft) (Application, error)
	UpdateApplication(ctx context.Context, id string, d Draft) (Application, error)
	DeleteApplication(ctx context.Context, id string) error
	UpdateApplicationStatus(ctx context.Context, id string, target Status, message string) error
}

// Lister is the read side used by list views.
type Lister interface {
	ListApplications(ctx context.Context, q query.State) (Page, error)
}

// StatusUpdater is the write side used by status change sessions.
type StatusUpdater interface {
	UpdateApplicationStatus(ctx context.Context, id string, target Status, message string) error
}

// ValidateQuery checks the page range and the filter values whose domain
// lives in this package, and returns q with the status filter in canonical form.
func ValidateQuery(q query.State) (query.State, error) {
	if q.Page < 0 || q.Page > query.MaxPage {
		return q, fmt.Errorf("%w: page must be between 0 and %d", query.ErrInvalidQuery, query.MaxPage)
	}
	raw, ok := q.Filter(query.FilterStatus)
	if !ok {
		return q, nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return q, err
	}
	if string(st) == raw {
		return q, nil
	}
	return query.SetPage(query.SetFilter(q, query.FilterStatus, string(st)), q.Page), nil
}

// PrepareSave normalizes and validates a draft and works out the status it
// should be stored with. current is empty for a new application.
func PrepareSave(current Status, d Draft) (Draft, Status, error) {
	if current == StatusGranted {
		return d, "", fmt.Errorf("%w: granted applications are read-only", ErrValidation)
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return d, "", err
	}
	switch current {
	case StatusPending, StatusAccepted:
		// Under review: content may be corrected, the status stays.
		return d, current, nil
	}
	if !d.Complete() {
		if d.Submit {
			return d, "", fmt.Errorf("%w: cannot submit, missing %v", ErrValidation, d.MissingFields())
		}
		return d, StatusIncomplete, nil
	}
	if d.Submit {
		return d, StatusPending, nil
	}
	return d, StatusComplete, nil
}
