package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"timelapse/internal/logging"
)

// accessFields lists the W3C columns of every access log line. x-action is
// the /api.php action and x-duration the time since RequestStart in ms.
const accessFields = "date time c-ip cs-username cs-method cs-uri-stem x-action sc-status sc-bytes x-duration cs(User-Agent)"

// statusRecorder captures what the handler sent back.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) code() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// LoggingConfig selects which requests reach the access log.
type LoggingConfig struct {
	SkipPaths      []string
	SkipExtensions []string
	// LogStaticFiles includes requests for web client assets.
	LogStaticFiles bool
	// LogHealthChecks includes /livez and /healthz.
	LogHealthChecks bool
	// LogPolling includes the web client's polls: /preview.php and
	// /api.php?action=loadStatus, each fetched about once a second.
	LogPolling bool
}

// DefaultLoggingConfig logs API calls other than status polls.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipExtensions: []string{".css", ".js", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".woff", ".woff2", ".ttf", ".map", ".html"},
	}
}

var healthCheckPaths = map[string]bool{
	"/livez":   true,
	"/healthz": true,
}

// isPoll reports whether r is one of the requests the web client repeats
// on a timer while a page is open.
func isPoll(r *http.Request) bool {
	switch r.URL.Path {
	case "/preview.php":
		return true
	case "/api.php":
		return r.URL.Query().Get("action") == "loadStatus"
	}
	return false
}

func shouldSkip(r *http.Request, config LoggingConfig) bool {
	path := r.URL.Path
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if healthCheckPaths[path] {
		return !config.LogHealthChecks
	}
	if isPoll(r) {
		return !config.LogPolling
	}
	if !config.LogStaticFiles {
		lower := strings.ToLower(path)
		if lower == "/" {
			return true
		}
		for _, ext := range config.SkipExtensions {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
	}
	return false
}

// Logger returns access logging middleware writing one W3C extended line
// per request. The #Fields directive is logged once when it is built.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	logging.Println(fmt.Sprintf("#Software: RaspiCam-Timelapse #Version: 1.0 #Fields: %s", accessFields))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r, config) {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			logging.Println(accessLine(r, rec, time.Since(RequestStart(r))))
		})
	}
}

// accessLine formats one request. Every client-controlled value is
// sanitized so a request cannot forge or split log lines.
func accessLine(r *http.Request, rec *statusRecorder, elapsed time.Duration) string {
	now := time.Now().UTC()

	user := "-"
	if name, _, ok := r.BasicAuth(); ok && name != "" {
		user = escapeW3CField(sanitizeLogField(name))
	}

	action := "-"
	if r.URL.Path == "/api.php" {
		if a := sanitizeLogField(r.URL.Query().Get("action")); a != "" {
			action = escapeW3CField(a)
		}
	}

	agent := "-"
	if ua := sanitizeLogField(r.Header.Get("User-Agent")); ua != "" {
		agent = escapeW3CField(ua)
	}

	return strings.Join([]string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		sanitizeLogField(getClientIP(r)),
		user,
		sanitizeLogField(r.Method),
		escapeW3CField(sanitizeLogField(r.URL.Path)),
		action,
		fmt.Sprint(rec.code()),
		fmt.Sprint(rec.bytes),
		FormatDuration(elapsed),
		agent,
	}, " ")
}

// sanitizeLogField drops control characters. Newlines become spaces so a
// value can never start a new log line; tabs are kept.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField quotes values containing blanks or quotes, doubling
// embedded quotes.
func escapeW3CField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
