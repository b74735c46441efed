package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types recorded by the attempt lifecycle.
const (
	TypeAttemptStarted   = "attempt_started"
	TypeAttemptSubmitted = "attempt_submitted"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// EventRepo appends lifecycle events to the event_log table. Appends are
// best effort: a failure is logged and never propagated into the flow that
// produced the event.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record marshals the payload and appends it under the given type and key.
// A nil repo is a no-op, so callers without an event log can stay unwired.
func (r *EventRepo) Record(ctx context.Context, typ, key string, payload any) {
	if r == nil || r.db == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("type", typ).Warn("event payload marshal failed")
		return
	}
	if err := r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(data)}); err != nil {
		logrus.WithError(err).WithField("type", typ).Warn("event append failed")
	}
}
