package handlers

import (
	"context"
	"net/url"
	"time"

	"timelapse/internal/preview"
)

// Dispatcher executes a named API action.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload url.Values) (any, int)
}

// PreviewSource exposes the current preview state.
type PreviewSource interface {
	Current() *preview.State
}

// StatusClock reports when the status snapshot was last fully refreshed.
type StatusClock interface {
	LastFullRefresh() time.Time
}

type Handlers struct {
	api       Dispatcher
	preview   PreviewSource
	status    StatusClock
	staleAge  time.Duration
	startedAt time.Time
	now       func() time.Time
}

// New creates the handler set. A status snapshot older than three status
// intervals is reported as degraded by the health check.
func New(api Dispatcher, src PreviewSource, status StatusClock, statusInterval time.Duration) *Handlers {
	return &Handlers{
		api:       api,
		preview:   src,
		status:    status,
		staleAge:  3 * statusInterval,
		startedAt: time.Now(),
		now:       time.Now,
	}
}
