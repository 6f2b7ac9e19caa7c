// Package notify delivers user-visible success and failure notices for
// mutations and list fetches.
package notify

import (
	"context"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification names the action that was attempted and how it ended.
type Notification struct {
	Level         Level     `json:"level"`
	Action        string    `json:"action"`
	ApplicationID string    `json:"applicationId,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notifier receives notifications. Implementations must not block callers
// for long; delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})

// Multi fans a notification out to every non-nil notifier in order.
func Multi(ns ...Notifier) Notifier {
	var out []Notifier
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return Func(func(ctx context.Context, n Notification) {
		for _, target := range out {
			target.Notify(ctx, n)
		}
	})
}

// Success builds a success notification.
func Success(action, applicationID, message string) Notification {
	return Notification{
		Level:         LevelSuccess,
		Action:        action,
		ApplicationID: applicationID,
		Message:       message,
		Timestamp:     time.Now().UTC(),
	}
}

// Failure builds a failure notification from err.
func Failure(action, applicationID string, err error) Notification {
	msg := action + " failed"
	if err != nil {
		msg += ": " + err.Error()
	}
	return Notification{
		Level:         LevelError,
		Action:        action,
		ApplicationID: applicationID,
		Message:       msg,
		Timestamp:     time.Now().UTC(),
	}
}
