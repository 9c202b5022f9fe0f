package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"
)

type requestStartKey struct{}

// RequestTimer records when a request arrived. It belongs outermost in the
// chain so durations include authentication and rate limiting.
func RequestTimer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(requestStartKey{}).(time.Time); ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withRequestStart(r.Context(), time.Now())))
		})
	}
}

func withRequestStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, requestStartKey{}, start)
}

// RequestStart returns the arrival time recorded by RequestTimer, or now
// when the request did not pass through it.
func RequestStart(r *http.Request) time.Time {
	if start, ok := r.Context().Value(requestStartKey{}).(time.Time); ok {
		return start
	}
	return time.Now()
}

// FormatDuration renders d in milliseconds rounded to one decimal place,
// the format of the X-Duration header.
func FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return strconv.FormatFloat(math.Round(ms*10)/10, 'f', -1, 64)
}

// Duration sets X-Duration on every response of the wrapped handler,
// including error and rate-limit responses, measured from RequestStart.
func Duration() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&durationWriter{ResponseWriter: w, start: RequestStart(r)}, r)
		})
	}
}

type durationWriter struct {
	http.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *durationWriter) WriteHeader(code int) {
	if !w.stamped {
		w.stamped = true
		w.Header().Set("X-Duration", FormatDuration(time.Since(w.start)))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *durationWriter) Write(b []byte) (int, error) {
	if !w.stamped {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
