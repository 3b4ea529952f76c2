package handoff

import (
	"context"
	"time"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	Type        ActivityType
	UserID      int64
	Description string
	Meta        RequestMeta
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// NewRepositoryActivitySink persists events through the ActivityLogs
// repository, one append-only entry per event.
func NewRepositoryActivitySink(repo ActivityLogs) ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		_, err := repo.Create(ctx, &ActivityLog{
			UserID:      event.UserID,
			Type:        event.Type,
			Description: event.Description,
			UserAgent:   event.Meta.UserAgent,
			IPAddress:   event.Meta.IP,
		})
		return err
	})
}
