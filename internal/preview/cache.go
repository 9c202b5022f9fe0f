package preview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"timelapse/internal/filesystem"
	"timelapse/internal/format"
	"timelapse/internal/logging"
	"timelapse/internal/media"
	"timelapse/internal/metrics"

	"github.com/dustin/go-humanize"
)

// LatestImageName is the file the capture process overwrites on every shot.
const LatestImageName = "latest.jpg"

// Outcome is the result of a single refresh cycle.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeUpdated   Outcome = "updated"
	OutcomeEmpty     Outcome = "empty"
	OutcomeError     Outcome = "error"
)

// State is a populated preview. A State is never modified after it has
// been published, so callers may keep the pointer.
type State struct {
	Thumbnail   []byte
	Fingerprint media.Fingerprint
	Description string
	UpdatedAt   time.Time
}

// Cache holds the preview of the latest capture.
type Cache struct {
	path      string
	extractor media.Extractor
	retry     filesystem.RetryConfig

	state atomic.Pointer[State]
	nudge chan struct{}

	// refreshMu serializes refresh cycles; readers never take it.
	refreshMu sync.Mutex
	lastErr   string
}

// New creates an EMPTY cache for the image at path.
func New(path string, extractor media.Extractor) *Cache {
	return &Cache{
		path:      path,
		extractor: extractor,
		retry:     filesystem.DefaultRetryConfig(),
		nudge:     make(chan struct{}, 1),
	}
}

// Path returns the watched image path.
func (c *Cache) Path() string {
	return c.path
}

// Current returns the published state, or nil while the cache is EMPTY.
func (c *Cache) Current() *State {
	return c.state.Load()
}

// Refresh runs one cycle synchronously and reports what it did.
func (c *Cache) Refresh() Outcome {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	outcome := c.refresh()
	metrics.PreviewRefreshTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (c *Cache) refresh() Outcome {
	info, err := filesystem.StatWithRetry(c.path, c.retry)
	if err != nil {
		if c.clear() {
			logging.Info("Latest image %s is no longer available: %v", c.path, err)
		}
		return OutcomeEmpty
	}

	fp := media.FingerprintFromInfo(info)
	var cached media.Fingerprint
	if current := c.state.Load(); current != nil {
		cached = current.Fingerprint
	}
	if !media.HasChanged(fp, cached) {
		return OutcomeUnchanged
	}

	start := time.Now()
	thumb, err := c.extractor.Extract(c.path)
	metrics.PreviewExtractDuration.Observe(time.Since(start).Seconds())
	if err == nil && len(thumb) == 0 {
		err = media.ErrMetadata
	}
	if err != nil {
		c.clear()
		// A broken capture is retried every cycle; only log when the failure changes.
		if msg := err.Error(); msg != c.lastErr {
			logging.Warn("Failed to extract preview: %v", err)
			c.lastErr = msg
		}
		return OutcomeError
	}
	c.lastErr = ""

	state := &State{
		Thumbnail:   thumb,
		Fingerprint: fp,
		Description: format.ImageDescription(info.ModTime(), info.Size()),
		UpdatedAt:   time.Now(),
	}
	c.state.Store(state)

	metrics.PreviewPopulated.Set(1)
	metrics.PreviewThumbnailBytes.Set(float64(len(thumb)))
	metrics.PreviewLastUpdateTimestamp.Set(float64(state.UpdatedAt.Unix()))

	logging.Debug("Preview updated: %s, thumbnail %s", state.Description, humanize.Bytes(uint64(len(thumb))))
	return OutcomeUpdated
}

// clear moves the cache to EMPTY and reports whether it was POPULATED.
func (c *Cache) clear() bool {
	previous := c.state.Swap(nil)
	if previous == nil {
		return false
	}
	metrics.PreviewPopulated.Set(0)
	metrics.PreviewThumbnailBytes.Set(0)
	return true
}

// Nudge requests an immediate cycle from Run. It never blocks; nudges that
// arrive while one is pending are merged.
func (c *Cache) Nudge() {
	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

// Run refreshes once immediately and then every interval, or sooner when
// nudged, until ctx is cancelled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	logging.Info("Preview refresh started for %s (every %v)", c.path, interval)
	c.Refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Preview refresh stopped")
			return
		case <-ticker.C:
			c.Refresh()
		case <-c.nudge:
			c.Refresh()
		}
	}
}
