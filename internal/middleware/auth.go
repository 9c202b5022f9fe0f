package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"net/http"
	"strings"
	"sync/atomic"

	"timelapse/internal/logging"
	"timelapse/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

// Realm is sent in the WWW-Authenticate challenge.
const Realm = "RaspiCam-Timelapse"

// AuthConfig holds the single account allowed to use the server.
type AuthConfig struct {
	Username string
	// Password is compared in constant time when PasswordHash is empty.
	Password string
	// PasswordHash is a bcrypt hash and takes precedence over Password.
	PasswordHash string
	// SkipPaths are served without credentials
	SkipPaths []string
}

// compareHash is the bcrypt check, swapped out by tests that count calls.
var compareHash = bcrypt.CompareHashAndPassword

// Verify reports whether the given credentials match.
func (c AuthConfig) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		passOK = compareHash([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// authenticator remembers the digest of the last accepted credentials, so
// the web client's polling costs one bcrypt comparison per credential
// instead of one per request. Rejected credentials are never cached.
type authenticator struct {
	config   AuthConfig
	accepted atomic.Pointer[[sha256.Size]byte]
}

func credentialDigest(username, password string) [sha256.Size]byte {
	h := sha256.New()
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(username)))
	h.Write(n[:])
	h.Write([]byte(username))
	h.Write([]byte(password))

	var digest [sha256.Size]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func (a *authenticator) check(username, password string) bool {
	digest := credentialDigest(username, password)
	if known := a.accepted.Load(); known != nil && subtle.ConstantTimeCompare(known[:], digest[:]) == 1 {
		return true
	}
	if !a.config.Verify(username, password) {
		return false
	}
	a.accepted.Store(&digest)
	return true
}

// BasicAuth returns a middleware that rejects requests without valid HTTP
// basic credentials with 401 and a plain "Access denied" body.
func BasicAuth(config AuthConfig) func(http.Handler) http.Handler {
	auth := &authenticator{config: config}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path || strings.HasPrefix(r.URL.Path, path+"/") {
					next.ServeHTTP(w, r)
					return
				}
			}

			username, password, ok := r.BasicAuth()
			switch {
			case !ok:
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
			case !auth.check(username, password):
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Warn("Rejected credentials for user %q from %s", sanitizeLogField(username), sanitizeLogField(getClientIP(r)))
			default:
				metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Access denied"))
		})
	}
}
