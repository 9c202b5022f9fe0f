package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timelapse/internal/api"
	"timelapse/internal/filesystem"
	"timelapse/internal/handlers"
	"timelapse/internal/history"
	"timelapse/internal/logging"
	"timelapse/internal/media"
	"timelapse/internal/memory"
	"timelapse/internal/metrics"
	"timelapse/internal/middleware"
	"timelapse/internal/preview"
	"timelapse/internal/probes"
	"timelapse/internal/startup"
	"timelapse/internal/status"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout         = 15 * time.Second
	historyCollectInterval  = time.Minute
	serverReadHeaderTimeout = 10 * time.Second
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	memory.ConfigureFromEnv()

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.RegisterVolume("capture", config.CaptureDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Preview
	var extractor media.Extractor = media.NewThumbnailExtractor()
	if config.PreviewFallback {
		extractor = media.WithFallback(extractor, media.DefaultFallbackRenderer())
	}
	cache := preview.New(config.LatestImagePath, extractor)
	startup.LogPreviewInit(cache.Path(), config.PreviewInterval, config.WatchCapture, config.PreviewFallback)

	// Status
	observers := []status.Observer{metrics.NewReadingObserver()}

	var store *history.Store
	var collector *metrics.Collector
	if config.HistoryEnabled {
		filesystem.RegisterVolume("history", config.HistoryDir)

		historyStart := time.Now()
		store, err = history.New(ctx, config.HistoryPath, config.HistoryRetention)
		if err != nil {
			startup.LogFatal("Failed to open status history: %v", err)
		}
		startup.LogHistoryInit(config.HistoryPath, config.HistoryRetention, time.Since(historyStart))

		observers = append(observers, store)
		collector = metrics.NewCollector(store, historyCollectInterval)
		collector.Start()
	}

	aggregator := status.New(probes.NewSystem(), cache, config.CaptureDir, observers...)
	startup.LogStatusInit(config.StatusInterval)

	// HTTP
	dispatcher := api.NewDispatcher(aggregator)
	if store != nil {
		dispatcher.WithHistory(store)
	}

	h := handlers.New(dispatcher, cache, aggregator, config.StatusInterval)
	router := setupRouter(h, config.StaticDir, config.RateLimit)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := newServer(":"+config.Port, buildHandler(router, config))

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(net.JoinHostPort(config.MetricsBind, config.MetricsPort))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cache.Run(gctx, config.PreviewInterval)
		return nil
	})
	if config.WatchCapture {
		g.Go(func() error {
			if err := cache.Watch(gctx); err != nil {
				logging.Warn("Capture watch unavailable, relying on polling: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		aggregator.Run(gctx, config.StatusInterval)
		return nil
	})
	g.Go(func() error {
		return serve(srv, config.TLSCert, config.TLSKey)
	})
	if metricsSrv != nil {
		g.Go(func() error {
			return serve(metricsSrv, "", "")
		})
	}
	g.Go(func() error {
		waitForShutdown(gctx, cancel)
		shutdownServers(srv, metricsSrv)
		return nil
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsAddr:     net.JoinHostPort(config.MetricsBind, config.MetricsPort),
		MetricsEnabled:  config.MetricsEnabled,
		TLSEnabled:      config.TLSEnabled(),
		StartupDuration: time.Since(startTime),
	})

	runErr := g.Wait()

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}
	if store != nil {
		startup.LogShutdownStep("Closing status history")
		if err := store.Close(); err != nil {
			logging.Warn("Status history close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Status history closed")
		}
	}

	if runErr != nil {
		startup.LogFatal("Server error: %v", runErr)
	}
	startup.LogShutdownComplete()
}

func setupRouter(h *handlers.Handlers, staticDir string, rateLimit int) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Web client endpoints
	limitConfig := middleware.DefaultRateLimitConfig()
	limitConfig.RequestLimit = rateLimit
	limit := middleware.RateLimit(limitConfig)
	timed := middleware.Duration()
	r.Handle("/api.php", timed(limit(http.HandlerFunc(h.API)))).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/preview.php", h.Preview).Methods(http.MethodGet, http.MethodHead)

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

// buildHandler wraps the router in the middleware chain. The request timer
// is outermost, then logging, so rejected requests are logged and timed too.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	authed := middleware.BasicAuth(middleware.AuthConfig{
		Username:     config.Username,
		Password:     config.Password,
		PasswordHash: config.PasswordHash,
		SkipPaths:    []string{"/livez"},
	})(router)

	secured := middleware.SecurityHeaders()(authed)
	measured := middleware.Metrics(middleware.DefaultMetricsConfig())(secured)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggingConfig.LogPolling = config.LogPolling
	return middleware.RequestTimer()(middleware.Logger(loggingConfig)(measured))
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

func newMetricsServer(addr string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// serve blocks until srv is shut down. It serves HTTPS when both a
// certificate and a key are given.
func serve(srv *http.Server, certFile, keyFile string) error {
	var err error
	if certFile != "" && keyFile != "" {
		err = srv.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// waitForShutdown blocks until a termination signal arrives or ctx is
// cancelled by a failing server, then stops the background loops.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case <-ctx.Done():
		startup.LogShutdownInitiated("server error")
	}
	cancel()
}

func shutdownServers(srv, metricsSrv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv == nil {
		return
	}
	startup.LogShutdownStep("Shutting down metrics server")
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logging.Warn("Metrics server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Metrics server stopped")
	}
}
