package notify

import (
	"context"

	"github.com/rs/zerolog"

	"orphanadmin/internal/auth"
)

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(l *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Notify(ctx context.Context, note Notification) {
	evt := n.log.Info()
	if note.Level == LevelError {
		evt = n.log.Warn()
	}
	if note.Actor == "" {
		note.Actor, _ = auth.UserIDFromContext(ctx)
	}
	evt.Str("action", note.Action).
		Str("outcome", string(note.Level)).
		Str("application_id", note.ApplicationID).
		Str("actor", note.Actor).
		Msg(note.Message)
}
