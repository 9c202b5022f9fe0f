package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"timelapse/internal/logging"
	"timelapse/internal/metrics"
	"timelapse/internal/probes"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Sample is one stored reading. Nil fields were not available when the
// reading was taken.
type Sample struct {
	Time           time.Time `json:"time"`
	CameraDetected bool      `json:"cameraDetected"`
	Temperature    *float64  `json:"temperature"`
	Load1          *float64  `json:"load1"`
	Load5          *float64  `json:"load5"`
	Load15         *float64  `json:"load15"`
	DiskFree       *uint64   `json:"diskFree"`
	DiskTotal      *uint64   `json:"diskTotal"`
	Uptime         *uint64   `json:"uptime"`
}

// Store manages the history database.
type Store struct {
	db        *sql.DB
	dbPath    string
	retention time.Duration
}

// New opens or creates the history database at dbPath. Samples older than
// retention are removed as new ones arrive; zero keeps everything.
func New(ctx context.Context, dbPath string, retention time.Duration) (*Store, error) {
	logging.Info("History database path: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer (the status loop) and occasional API readers.
	db.SetMaxOpenConns(4)

	s := &Store{db: db, dbPath: dbPath, retention: retention}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Info("History database initialized (retention %v)", retention)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at INTEGER NOT NULL,
		camera_detected INTEGER NOT NULL DEFAULT 0,
		temperature REAL,
		load1 REAL,
		load5 REAL,
		load15 REAL,
		disk_free INTEGER,
		disk_total INTEGER,
		uptime INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_samples_recorded_at ON samples(recorded_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a reading.
func (s *Store) Record(ctx context.Context, r probes.Reading) error {
	var load1, load5, load15 sql.NullFloat64
	if r.Load != nil {
		load1 = sql.NullFloat64{Float64: r.Load.Load1, Valid: true}
		load5 = sql.NullFloat64{Float64: r.Load.Load5, Valid: true}
		load15 = sql.NullFloat64{Float64: r.Load.Load15, Valid: true}
	}
	var temp sql.NullFloat64
	if r.Temperature != nil {
		temp = sql.NullFloat64{Float64: *r.Temperature, Valid: true}
	}
	var diskFree, diskTotal sql.NullInt64
	if r.Disk != nil {
		diskFree = sql.NullInt64{Int64: int64(r.Disk.Free), Valid: true}
		diskTotal = sql.NullInt64{Int64: int64(r.Disk.Total), Valid: true}
	}
	var uptime sql.NullInt64
	if r.Uptime != nil {
		uptime = sql.NullInt64{Int64: int64(*r.Uptime), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (recorded_at, camera_detected, temperature, load1, load5, load15, disk_free, disk_total, uptime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Time.UnixMilli(), r.CameraDetected, temp, load1, load5, load15, diskFree, diskTotal, uptime)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// Prune deletes samples recorded before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE recorded_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Recent returns the samples recorded at or after since, oldest first.
func (s *Store) Recent(ctx context.Context, since time.Time) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, camera_detected, temperature, load1, load5, load15, disk_free, disk_total, uptime
		FROM samples
		WHERE recorded_at >= ?
		ORDER BY recorded_at ASC, id ASC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("failed to close history rows: %v", err)
		}
	}()

	samples := []Sample{}
	for rows.Next() {
		var (
			recordedAt             int64
			camera                 bool
			temp, l1, l5, l15      sql.NullFloat64
			diskFree, diskTotal, u sql.NullInt64
		)
		if err := rows.Scan(&recordedAt, &camera, &temp, &l1, &l5, &l15, &diskFree, &diskTotal, &u); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, Sample{
			Time:           time.UnixMilli(recordedAt).UTC(),
			CameraDetected: camera,
			Temperature:    nullFloat(temp),
			Load1:          nullFloat(l1),
			Load5:          nullFloat(l5),
			Load15:         nullFloat(l15),
			DiskFree:       nullUint(diskFree),
			DiskTotal:      nullUint(diskTotal),
			Uptime:         nullUint(u),
		})
	}
	return samples, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullUint(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

// ObserveReading records a reading and applies retention. Failures are
// logged; the status loop never waits on the database for long.
func (s *Store) ObserveReading(r probes.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := s.Record(ctx, r); err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		logging.Error("History write failed: %v", err)
		return
	}
	metrics.HistoryWritesTotal.WithLabelValues("success").Inc()

	if s.retention <= 0 {
		return
	}
	n, err := s.Prune(ctx, r.Time.Add(-s.retention))
	if err != nil {
		logging.Warn("History prune failed: %v", err)
		return
	}
	if n > 0 {
		metrics.HistoryPrunedTotal.Add(float64(n))
		logging.Debug("Pruned %d history samples older than %v", n, s.retention)
	}
}

// GetStats implements metrics.StatsProvider.
func (s *Store) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&stats.Samples); err != nil {
		logging.Warn("failed to count history samples: %v", err)
	}
	for _, path := range []string{s.dbPath, s.dbPath + "-wal"} {
		if info, err := os.Stat(path); err == nil {
			stats.SizeBytes += info.Size()
		}
	}
	return stats
}
