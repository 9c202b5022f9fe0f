package media

import (
	"crypto/md5" //nolint:gosec // MD5 used as a change fingerprint, not for security
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"timelapse/internal/filesystem"
)

// Fingerprint identifies one on-disk state of a file. It derives only from
// size and modification time, so computing it never reads file content.
type Fingerprint string

// FingerprintFromInfo computes the fingerprint for an already stat'd file.
func FingerprintFromInfo(info os.FileInfo) Fingerprint {
	return fingerprint(info.ModTime(), info.Size())
}

func fingerprint(modTime time.Time, size int64) Fingerprint {
	sum := md5.Sum([]byte(fmt.Sprintf("%s#%d", modTime.UTC().Format(time.RFC3339Nano), size)))
	return Fingerprint(fmt.Sprintf("%x", sum))
}

// FingerprintOf stats path and returns its fingerprint.
func FingerprintOf(path string) (Fingerprint, error) {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %w: %s", ErrIO, ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	return FingerprintFromInfo(info), nil
}

// HasChanged reports whether an extraction is needed: the cached
// fingerprint is absent or differs from the current one.
func HasChanged(current, cached Fingerprint) bool {
	return cached == "" || current != cached
}
