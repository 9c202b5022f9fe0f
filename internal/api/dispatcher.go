package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"timelapse/internal/history"
	"timelapse/internal/logging"
	"timelapse/internal/metrics"
	"timelapse/internal/status"
)

const (
	defaultHistoryMinutes = 60
	maxHistoryMinutes     = 24 * 60
)

// ErrorBody is the JSON error document returned by every failing action.
type ErrorBody struct {
	Error string `json:"error"`
}

// HistoryBody is the loadHistory response.
type HistoryBody struct {
	Minutes int              `json:"minutes"`
	Samples []history.Sample `json:"samples"`
}

// StatusSource refreshes and returns the status snapshot.
type StatusSource interface {
	PartialRefresh(ctx context.Context) status.Snapshot
}

// HistorySource returns stored status samples.
type HistorySource interface {
	Recent(ctx context.Context, since time.Time) ([]history.Sample, error)
}

// Dispatcher executes API actions.
type Dispatcher struct {
	status  StatusSource
	history HistorySource
	now     func() time.Time
}

// NewDispatcher creates a dispatcher without history support.
func NewDispatcher(status StatusSource) *Dispatcher {
	return &Dispatcher{status: status, now: time.Now}
}

// WithHistory enables the loadHistory action.
func (d *Dispatcher) WithHistory(h HistorySource) *Dispatcher {
	d.history = h
	return d
}

// Dispatch runs the named action and returns the response body and HTTP
// status. payload carries the request's query and form values.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload url.Values) (body any, code int) {
	label := name
	defer func() {
		if r := recover(); r != nil {
			logging.Error("API action %q panicked: %v\n%s", name, r, debug.Stack())
			body, code = ErrorBody{Error: "Internal error"}, http.StatusInternalServerError
		}
		metrics.APIActionsTotal.WithLabelValues(label, strconv.Itoa(code)).Inc()
	}()

	action, err := ParseAction(name)
	if err != nil {
		label = "unknown"
		logging.Debug("Rejected API action: %v", err)
		return ErrorBody{Error: ErrUnknownAction.Error()}, http.StatusNotFound
	}

	switch action {
	case ActionStartCapture, ActionStopCapture, ActionLoadConfig, ActionSaveConfig:
		return notImplemented(action)
	case ActionLoadStatus:
		return d.status.PartialRefresh(ctx), http.StatusOK
	case ActionLoadHistory:
		return d.loadHistory(ctx, payload)
	default:
		panic(fmt.Sprintf("unhandled action %v", action))
	}
}

func notImplemented(action Action) (any, int) {
	return ErrorBody{Error: reservedActionError(action).Error()}, http.StatusNotImplemented
}

// reservedActionError wraps ErrNotImplemented with the action name.
func reservedActionError(action Action) error {
	return fmt.Errorf("Action %s %w", action, ErrNotImplemented) //nolint:staticcheck // returned verbatim to the web client
}

func (d *Dispatcher) loadHistory(ctx context.Context, payload url.Values) (any, int) {
	if d.history == nil {
		return ErrorBody{Error: ErrHistoryDisabled.Error()}, http.StatusServiceUnavailable
	}

	minutes := defaultHistoryMinutes
	if raw := payload.Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryMinutes {
			return ErrorBody{Error: fmt.Sprintf("minutes must be between 1 and %d", maxHistoryMinutes)}, http.StatusBadRequest
		}
		minutes = n
	}

	since := d.now().Add(-time.Duration(minutes) * time.Minute)
	samples, err := d.history.Recent(ctx, since)
	if err != nil {
		logging.Error("Failed to load status history: %v", err)
		return ErrorBody{Error: "Failed to load history"}, http.StatusInternalServerError
	}
	return HistoryBody{Minutes: minutes, Samples: samples}, http.StatusOK
}
