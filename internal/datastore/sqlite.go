package datastore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// SQLiteStore keeps one artist graph in its own SQLite file.
type SQLiteStore struct {
	DataStore
	Path               string
	SlowQueryThreshold time.Duration
}

// SQLitePath returns the database file of artist under dir.
func SQLitePath(dir, artist string) string {
	return filepath.Join(dir, artist+".db")
}

// Open opens the SQLite database, creating its directory when needed.
func (store *SQLiteStore) Open() error {
	if store.Path == "" {
		return errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Artist(store.ArtistID).
			Build()
	}

	dsn := store.Path
	if !isMemoryDSN(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", filepath.Dir(dsn)).
				Build()
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger(store.SlowQueryThreshold)})
	if err != nil {
		return dbError(err, "open_sqlite", "path", store.Path)
	}

	// The graph is single-writer; one connection also keeps in-memory databases alive.
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_sqlite", "path", store.Path)
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	GetLogger().Debug("sqlite graph store opened",
		logger.String("artist", store.ArtistID),
		logger.String("path", store.Path))
	return nil
}

// Close closes the SQLite database.
func (store *SQLiteStore) Close() error {
	return store.closeDB()
}

// Remove deletes the database file and its WAL companions. The store must be closed.
func (store *SQLiteStore) Remove() error {
	if isMemoryDSN(store.Path) {
		return nil
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(store.Path + suffix); err != nil && !os.IsNotExist(err) {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", store.Path+suffix).
				Build()
		}
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
