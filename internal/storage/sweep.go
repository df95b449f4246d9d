package storage

import (
	"log/slog"
	"time"
)

// Sweep deletes objects older than maxAge. It keys age off the object's
// modification time, so an object is only eligible once its run has long
// finished writing. Re-running a sweep over the same store is a no-op.
func Sweep(store *FileStore, maxAge time.Duration, now time.Time, log *slog.Logger) (int, error) {
	objects, err := store.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, obj := range objects {
		if !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := store.Delete(obj.Name); err != nil {
			log.Warn("sweep delete failed", "object", obj.Name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info("retention sweep removed objects", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
