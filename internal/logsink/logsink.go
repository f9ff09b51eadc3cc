// Package logsink records terminal pipeline outcomes in an append-only log.
// Appends are best-effort: a sink failure never blocks or fails the pipeline.
package logsink

import (
	"context"
	"time"
)

// Entry is one publish-log row. Status is PUBLISHED, COMPLETED or FAILED.
type Entry struct {
	JobID        string
	ScriptID     string
	TopicTitle   string
	OfferName    string
	Provider     string
	Status       string
	URL          string
	Error        string
	JobCreatedAt time.Time
	LoggedAt     time.Time
}

// Row flattens the entry into the sheet column order.
func (e Entry) Row() []any {
	loggedAt := e.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now().UTC()
	}
	return []any{
		e.JobID,
		e.ScriptID,
		e.TopicTitle,
		e.OfferName,
		e.Provider,
		e.Status,
		e.URL,
		e.Error,
		e.JobCreatedAt.UTC().Format(time.RFC3339),
		loggedAt.UTC().Format(time.RFC3339),
	}
}

// Sink is the append-only outcome log.
type Sink interface {
	Append(ctx context.Context, e Entry)
}

// Nop discards every entry. Used when no sheet is configured.
type Nop struct{}

func (Nop) Append(context.Context, Entry) {}
