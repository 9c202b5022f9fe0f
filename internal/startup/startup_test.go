package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
	assert.Equal(t, GoVersion, info.GoVersion)
}

// clearEnv blanks every key the loader reads so the host environment
// (USERNAME, PORT, ...) cannot leak into the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CAPTURE_DIR", "STATIC_DIR", "PORT", "METRICS_PORT", "METRICS_ENABLED",
		"TLS_CERT", "TLS_KEY", "USERNAME", "PASSWORD", "PASSWORD_HASH",
		"PREVIEW_INTERVAL", "STATUS_INTERVAL", "WATCH_CAPTURE", "PREVIEW_FALLBACK",
		"HISTORY_ENABLED", "HISTORY_DIR", "HISTORY_RETENTION", "RATE_LIMIT",
		"LOG_STATIC_FILES", "LOG_HEALTH_CHECKS", "LOG_POLLING",
		"ALLOW_INSECURE_HTTP", "METRICS_BIND",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildConfigDefaults(t *testing.T) {
	clearEnv(t)
	config, err := buildConfig("")
	require.NoError(t, err)

	assert.Equal(t, "../capture", config.CaptureDir)
	assert.Equal(t, "./webapp", config.StaticDir)
	assert.Equal(t, "4443", config.Port)
	assert.Equal(t, "9090", config.MetricsPort)
	assert.Equal(t, "127.0.0.1", config.MetricsBind)
	assert.False(t, config.MetricsEnabled)
	assert.Equal(t, DefaultUsername, config.Username)
	assert.Equal(t, DefaultPassword, config.Password)
	assert.Equal(t, time.Second, config.PreviewInterval)
	assert.Equal(t, 10*time.Second, config.StatusInterval)
	assert.Equal(t, 24*time.Hour, config.HistoryRetention)
	assert.Equal(t, 600, config.RateLimit)
	assert.False(t, config.HistoryEnabled)
	assert.False(t, config.LogPolling)
	assert.False(t, config.AllowInsecureHTTP)
	assert.True(t, config.TLSEnabled(), "HTTPS is the default")
	assert.Equal(t, DefaultTLSCert, config.TLSCert)
	assert.Equal(t, DefaultTLSKey, config.TLSKey)
}

func TestDefaultCertificateMustExist(t *testing.T) {
	clearEnv(t)
	config, err := buildConfig("")
	require.NoError(t, err)

	// The package directory has no config/timelapse.crt.
	err = checkTLSFiles(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOW_INSECURE_HTTP")
}

func TestCheckTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "timelapse.crt")
	key := filepath.Join(dir, "timelapse.key")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	config := &Config{TLSCert: cert, TLSKey: key}
	require.NoError(t, checkTLSFiles(config))
	assert.Equal(t, cert, config.TLSCert)

	assert.Error(t, checkTLSFiles(&Config{TLSCert: cert, TLSKey: filepath.Join(dir, "missing.key")}))
	assert.Error(t, checkTLSFiles(&Config{TLSCert: dir, TLSKey: key}), "a directory is not a certificate")
	assert.Error(t, checkTLSFiles(&Config{}), "plain HTTP needs an explicit opt-in")
}

func TestAllowInsecureHTTP(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOW_INSECURE_HTTP", "true")

	config, err := buildConfig("")
	require.NoError(t, err)

	assert.True(t, config.AllowInsecureHTTP)
	assert.False(t, config.TLSEnabled())
	assert.NoError(t, checkTLSFiles(config))

	// Explicit files still win over the opt-in.
	t.Setenv("TLS_CERT", "/etc/ssl/cert.pem")
	t.Setenv("TLS_KEY", "/etc/ssl/key.pem")
	config, err = buildConfig("")
	require.NoError(t, err)
	assert.True(t, config.TLSEnabled())
}

func TestBuildConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
capture_dir: /srv/capture
port: 8443
username: pi
password_hash: $2a$10$abcdefghijklmnopqrstuv
preview_interval: 2s
history_enabled: true
rate_limit: 30
`)

	config, err := buildConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/capture", config.CaptureDir)
	assert.Equal(t, "8443", config.Port)
	assert.Equal(t, "pi", config.Username)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", config.PasswordHash)
	assert.Empty(t, config.Password, "a hash must not fall back to the default password")
	assert.Equal(t, 2*time.Second, config.PreviewInterval)
	assert.True(t, config.HistoryEnabled)
	assert.Equal(t, 30, config.RateLimit)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "port: 8443\nusername: pi\n")
	t.Setenv("PORT", "9443")

	config, err := buildConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9443", config.Port)
	assert.Equal(t, "pi", config.Username)
}

func TestBuildConfigInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREVIEW_INTERVAL", "soon")
	t.Setenv("STATUS_INTERVAL", "-5s")
	t.Setenv("RATE_LIMIT", "lots")
	t.Setenv("WATCH_CAPTURE", "maybe")

	config, err := buildConfig("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, config.PreviewInterval)
	assert.Equal(t, 10*time.Second, config.StatusInterval)
	assert.Equal(t, 600, config.RateLimit)
	assert.False(t, config.WatchCapture)
}

func TestBuildConfigErrors(t *testing.T) {
	clearEnv(t)
	t.Run("missing file", func(t *testing.T) {
		_, err := buildConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := buildConfig(writeConfigFile(t, "port: [1, 2\n"))
		assert.Error(t, err)
	})

	t.Run("certificate without key", func(t *testing.T) {
		t.Setenv("ALLOW_INSECURE_HTTP", "true")
		t.Setenv("TLS_CERT", "/etc/ssl/cert.pem")
		_, err := buildConfig("")
		assert.Error(t, err)
	})
}

func TestPasswordSource(t *testing.T) {
	assert.Equal(t, "(bcrypt hash)", passwordSource(&Config{PasswordHash: "x", Password: "secret"}))
	assert.Equal(t, "(default)", passwordSource(&Config{Password: DefaultPassword}))
	assert.Equal(t, "(plain text)", passwordSource(&Config{Password: "secret"}))
}

func TestResolveDirectories(t *testing.T) {
	root := t.TempDir()
	config := &Config{
		CaptureDir:     filepath.Join(root, "capture"),
		StaticDir:      root,
		HistoryEnabled: true,
		HistoryDir:     filepath.Join(root, "data"),
	}

	require.NoError(t, resolveDirectories(config))

	assert.Equal(t, filepath.Join(root, "capture", "latest.jpg"), config.LatestImagePath)
	assert.Equal(t, filepath.Join(root, "data", "status.db"), config.HistoryPath)
	assert.DirExists(t, config.HistoryDir)
	assert.NoDirExists(t, config.CaptureDir, "the capture directory is never created")
}

func TestEnsureDirectoryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.Error(t, ensureDirectory(path, "history"))
	assert.Error(t, checkDirectory(path, "capture"))
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	router := mux.NewRouter()
	router.HandleFunc("/api.php", noop).Methods("GET", "POST")
	router.HandleFunc("/preview.php", noop).Methods("GET")
	router.PathPrefix("/").HandlerFunc(noop)

	routes, err := GetRoutes(router)
	require.NoError(t, err)

	assert.Contains(t, routes, RouteInfo{Method: "GET", Path: "/api.php"})
	assert.Contains(t, routes, RouteInfo{Method: "POST", Path: "/api.php"})
	assert.Contains(t, routes, RouteInfo{Method: "*", Path: "/"})
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api.php":     "api",
		"/preview.php": "preview",
		"/livez":       "health",
		"/version":     "health",
		"/":            "static",
		"/js/app.js":   "js",
	}
	for path, want := range tests {
		assert.Equal(t, want, getRouteGroup(path), path)
	}
}

func TestServerConfigScheme(t *testing.T) {
	assert.Equal(t, "http", ServerConfig{}.scheme())
	assert.Equal(t, "https", ServerConfig{TLSEnabled: true}.scheme())
}
