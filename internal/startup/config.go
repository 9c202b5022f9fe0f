package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"timelapse/internal/logging"
	"timelapse/internal/preview"

	"gopkg.in/yaml.v3"
)

// Default credentials shipped with the web client. A warning is logged
// while they are in use.
const (
	DefaultUsername = "timelapse"
	DefaultPassword = "timelapse"
)

// Default certificate and key, relative to the working directory. Plain
// HTTP is only served when ALLOW_INSECURE_HTTP is set.
const (
	DefaultTLSCert = "config/timelapse.crt"
	DefaultTLSKey  = "config/timelapse.key"
)

// Config holds all application configuration
type Config struct {
	CaptureDir string
	StaticDir  string

	Port              string
	MetricsPort       string
	MetricsBind       string
	MetricsEnabled    bool
	TLSCert           string
	TLSKey            string
	AllowInsecureHTTP bool

	Username     string
	Password     string `json:"-"`
	PasswordHash string `json:"-"`

	PreviewInterval time.Duration
	StatusInterval  time.Duration
	WatchCapture    bool
	PreviewFallback bool

	HistoryEnabled   bool
	HistoryDir       string
	HistoryRetention time.Duration

	RateLimit       int
	LogStaticFiles  bool
	LogHealthChecks bool
	LogPolling      bool

	// Derived paths
	LatestImagePath string
	HistoryPath     string
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// source resolves configuration keys. Environment variables take
// precedence over the optional YAML file, which takes precedence over
// the built-in defaults.
type source struct {
	file map[string]string
}

// loadSource reads the YAML file at path. Keys are the lower-case form
// of the environment variable names (capture_dir, password_hash, ...).
func loadSource(path string) (*source, error) {
	s := &source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for k, v := range raw {
		s.file[strings.ToLower(k)] = v
	}
	return s, nil
}

func (s *source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[strings.ToLower(key)]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (s *source) getString(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s *source) getBool(key string, defaultValue bool) bool {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) getInt(key string, defaultValue int) int {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("  Invalid %s %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// LoadConfig loads and validates configuration from the environment and
// the optional file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		logging.Info("  CONFIG_FILE:         %s", configFile)
	}

	config, err := buildConfig(configFile)
	if err != nil {
		return nil, err
	}
	logConfig(config)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := resolveDirectories(config); err != nil {
		return nil, err
	}

	if err := checkTLSFiles(config); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    TLS:             %s", enabledString(config.TLSEnabled()))
	logging.Info("    Capture watch:   %s", enabledString(config.WatchCapture))
	logging.Info("    Preview render:  %s", enabledString(config.PreviewFallback))
	logging.Info("    Status history:  %s", enabledString(config.HistoryEnabled))
	logging.Info("    Metrics:         %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// buildConfig resolves every key without logging or touching directories.
func buildConfig(configFile string) (*Config, error) {
	src, err := loadSource(configFile)
	if err != nil {
		return nil, err
	}

	insecure := src.getBool("ALLOW_INSECURE_HTTP", false)
	certDefault, keyDefault := DefaultTLSCert, DefaultTLSKey
	if insecure {
		certDefault, keyDefault = "", ""
	}

	config := &Config{
		CaptureDir:        src.getString("CAPTURE_DIR", "../capture"),
		StaticDir:         src.getString("STATIC_DIR", "./webapp"),
		Port:              src.getString("PORT", "4443"),
		MetricsPort:       src.getString("METRICS_PORT", "9090"),
		MetricsBind:       src.getString("METRICS_BIND", "127.0.0.1"),
		MetricsEnabled:    src.getBool("METRICS_ENABLED", false),
		TLSCert:           src.getString("TLS_CERT", certDefault),
		TLSKey:            src.getString("TLS_KEY", keyDefault),
		AllowInsecureHTTP: insecure,
		Username:          src.getString("USERNAME", DefaultUsername),
		Password:          src.getString("PASSWORD", ""),
		PasswordHash:      src.getString("PASSWORD_HASH", ""),
		PreviewInterval:   src.getDuration("PREVIEW_INTERVAL", time.Second),
		StatusInterval:    src.getDuration("STATUS_INTERVAL", 10*time.Second),
		WatchCapture:      src.getBool("WATCH_CAPTURE", false),
		PreviewFallback:   src.getBool("PREVIEW_FALLBACK", false),
		HistoryEnabled:    src.getBool("HISTORY_ENABLED", false),
		HistoryDir:        src.getString("HISTORY_DIR", "./data"),
		HistoryRetention:  src.getDuration("HISTORY_RETENTION", 24*time.Hour),
		RateLimit:         src.getInt("RATE_LIMIT", 600),
		LogStaticFiles:    src.getBool("LOG_STATIC_FILES", false),
		LogHealthChecks:   src.getBool("LOG_HEALTH_CHECKS", false),
		LogPolling:        src.getBool("LOG_POLLING", false),
	}

	if config.Password == "" && config.PasswordHash == "" {
		config.Password = DefaultPassword
	}

	if (config.TLSCert == "") != (config.TLSKey == "") {
		return nil, errors.New("TLS_CERT and TLS_KEY must be set together")
	}

	return config, nil
}

func logConfig(config *Config) {
	logging.Info("  CAPTURE_DIR:         %s", config.CaptureDir)
	logging.Info("  STATIC_DIR:          %s", config.StaticDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	if config.MetricsEnabled {
		logging.Info("  METRICS_BIND:        %s:%s", config.MetricsBind, config.MetricsPort)
	}
	logging.Info("  TLS_CERT:            %s", valueOrNone(config.TLSCert))
	logging.Info("  TLS_KEY:             %s", valueOrNone(config.TLSKey))
	logging.Info("  ALLOW_INSECURE_HTTP: %v", config.AllowInsecureHTTP)
	logging.Info("  USERNAME:            %s", config.Username)
	logging.Info("  PASSWORD:            %s", passwordSource(config))
	logging.Info("  PREVIEW_INTERVAL:    %s", config.PreviewInterval)
	logging.Info("  STATUS_INTERVAL:     %s", config.StatusInterval)
	logging.Info("  WATCH_CAPTURE:       %v", config.WatchCapture)
	logging.Info("  PREVIEW_FALLBACK:    %v", config.PreviewFallback)
	logging.Info("  HISTORY_ENABLED:     %v", config.HistoryEnabled)
	if config.HistoryEnabled {
		logging.Info("  HISTORY_DIR:         %s", config.HistoryDir)
		logging.Info("  HISTORY_RETENTION:   %s", config.HistoryRetention)
	}
	logging.Info("  RATE_LIMIT:          %d/min", config.RateLimit)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_POLLING:         %v", config.LogPolling)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if config.PasswordHash == "" && config.Password == DefaultPassword {
		logging.Warn("  Default credentials in use, set PASSWORD_HASH with timelapse-passwd")
	}
}

// passwordSource describes how the password is configured without ever
// revealing it.
func passwordSource(config *Config) string {
	switch {
	case config.PasswordHash != "":
		return "(bcrypt hash)"
	case config.Password == DefaultPassword:
		return "(default)"
	default:
		return "(plain text)"
	}
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func resolveDirectories(config *Config) error {
	var err error

	config.CaptureDir, err = filepath.Abs(config.CaptureDir)
	if err != nil {
		return fmt.Errorf("failed to resolve capture directory path: %w", err)
	}
	logging.Info("  Capture directory (absolute): %s", config.CaptureDir)
	config.LatestImagePath = filepath.Join(config.CaptureDir, preview.LatestImageName)

	// The capture process owns this directory; a missing one only means
	// no picture has been taken yet.
	if err := checkDirectory(config.CaptureDir, "capture"); err != nil {
		logging.Warn("  Capture directory issue: %v", err)
	}

	config.StaticDir, err = filepath.Abs(config.StaticDir)
	if err != nil {
		return fmt.Errorf("failed to resolve static directory path: %w", err)
	}
	logging.Info("  Static directory (absolute):  %s", config.StaticDir)
	if err := checkDirectory(config.StaticDir, "static"); err != nil {
		logging.Warn("  Static directory issue: %v", err)
	}

	if !config.HistoryEnabled {
		return nil
	}

	config.HistoryDir, err = filepath.Abs(config.HistoryDir)
	if err != nil {
		return fmt.Errorf("failed to resolve history directory path: %w", err)
	}
	logging.Info("  History directory (absolute): %s", config.HistoryDir)
	config.HistoryPath = filepath.Join(config.HistoryDir, "status.db")

	if err := ensureDirectory(config.HistoryDir, "history"); err != nil {
		return fmt.Errorf("history directory error: %w", err)
	}

	logging.Debug("  Testing history directory write access...")
	if err := testWriteAccess(config.HistoryDir); err != nil {
		return fmt.Errorf("history directory is not writable: %w", err)
	}
	logging.Info("  [OK] History directory is writable")

	return nil
}

// checkTLSFiles resolves the certificate and key and fails when either is
// missing. Without them the server only starts with ALLOW_INSECURE_HTTP.
func checkTLSFiles(config *Config) error {
	if !config.TLSEnabled() {
		if !config.AllowInsecureHTTP {
			return errors.New("no TLS certificate configured, set TLS_CERT and TLS_KEY or ALLOW_INSECURE_HTTP=true")
		}
		logging.Warn("  ALLOW_INSECURE_HTTP is set, serving plain HTTP")
		return nil
	}

	for _, f := range []struct {
		name string
		path *string
	}{
		{"TLS_CERT", &config.TLSCert},
		{"TLS_KEY", &config.TLSKey},
	} {
		abs, err := filepath.Abs(*f.path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s path: %w", f.name, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("%s %s: %w (set ALLOW_INSECURE_HTTP=true to serve plain HTTP)", f.name, abs, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s %s is a directory", f.name, abs)
		}
		*f.path = abs
	}
	logging.Info("  [OK] TLS certificate and key found")
	return nil
}

// checkDirectory verifies path is an existing directory without creating it.
func checkDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
