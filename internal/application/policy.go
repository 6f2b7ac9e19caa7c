package application

import (
	"fmt"
	"slices"
	"strings"

	"orphanadmin/internal/auth"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusGranted},
}

// AvailableTargets returns the statuses current may move to, in display
// order. Terminal and pre-review statuses have none.
func AvailableTargets(current Status) []Status {
	return slices.Clone(transitions[current])
}

// TransitionAllowed reports whether from -> to is in the transition table.
func TransitionAllowed(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// CanSubmit reports whether a change to target may be confirmed with message.
// Only REJECTED needs a reason.
func CanSubmit(target Status, message string) bool {
	if target == "" {
		return false
	}
	if target == StatusRejected {
		return trimMessage(message) != ""
	}
	return true
}

// ValidateTransition is the server-side gate for a status change.
func ValidateTransition(current, target Status, message string) error {
	if !TransitionAllowed(current, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	if !CanSubmit(target, message) {
		return fmt.Errorf("%w: a rejection message is required", ErrValidation)
	}
	return nil
}

// CanChangeStatus reports whether roles may move an application out of
// status. Any staff role may act while transitions remain.
func CanChangeStatus(status Status, roles auth.Roles) bool {
	return len(transitions[status]) > 0 &&
		roles.HasAny(auth.RoleAdmin, auth.RoleAgent, auth.RoleAuthenticator)
}

// CanEditApplication: GRANTED applications are frozen; agents and admins edit
// everything else.
func CanEditApplication(status Status, roles auth.Roles) bool {
	return status != StatusGranted && roles.HasAny(auth.RoleAdmin, auth.RoleAgent)
}

// CanDeleteApplication is admin-only and never for GRANTED.
func CanDeleteApplication(status Status, roles auth.Roles) bool {
	return status != StatusGranted && roles.IsAdmin()
}

// RowActions is the set of actions offered for one list row.
type RowActions struct {
	Edit         bool     `json:"edit"`
	Delete       bool     `json:"delete"`
	ChangeStatus bool     `json:"changeStatus"`
	Targets      []Status `json:"targets"`
}

// RowActionsFor evaluates the row-action policy for a summary.
func RowActionsFor(s Summary, roles auth.Roles) RowActions {
	out := RowActions{
		Edit:         CanEditApplication(s.Status, roles),
		Delete:       CanDeleteApplication(s.Status, roles),
		ChangeStatus: CanChangeStatus(s.Status, roles),
		Targets:      []Status{},
	}
	if out.ChangeStatus {
		out.Targets = AvailableTargets(s.Status)
	}
	return out
}

func trimMessage(m string) string { return strings.TrimSpace(m) }
