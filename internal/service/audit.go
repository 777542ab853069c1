package service

import (
	"context"

	"github.com/rs/zerolog"

	"devnotes/api/internal/ids"
	"devnotes/api/internal/models"
)

type eventStore interface {
	Insert(ctx context.Context, event models.Event) error
}

// AuditRecorder writes audit events fire-and-forget: a failed write is
// reported to the operator log and nowhere else. Primary operations must
// never fail because their audit entry did.
type AuditRecorder struct {
	events eventStore
	log    zerolog.Logger
}

func NewAuditRecorder(events eventStore, log zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{events: events, log: log}
}

func (r *AuditRecorder) Record(ctx context.Context, eventType models.EventType, actor models.User, metadata map[string]string) {
	if r == nil || r.events == nil {
		return
	}

	event := models.Event{
		ID:       ids.New(),
		Type:     eventType,
		UserID:   actor.ID,
		Email:    actor.Email,
		Metadata: metadata,
	}

	// The triggering request may be cancelled right after its response is
	// written; the audit write should still get a chance to land.
	if err := r.events.Insert(context.WithoutCancel(ctx), event); err != nil {
		r.log.Warn().Err(err).
			Str("event_type", string(eventType)).
			Str("user_id", actor.ID).
			Msg("audit event write failed")
	}
}
