package datastore

import (
	"context"
	"time"

	"github.com/tphakala/lyricgraph/internal/logger"
)

// PoolStats mirrors the connection pool counters of database/sql.
type PoolStats struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
}

// StoreStats reports the size and shape of one artist's graph store.
type StoreStats struct {
	Artist    string           `json:"artist"`
	Backend   string           `json:"backend"`
	SizeBytes int64            `json:"size_bytes"`
	Tables    map[string]int64 `json:"tables"`
	Pool      PoolStats        `json:"pool"`
}

// Stats collects database size, per table row counts and pool statistics.
// Missing tables count as zero rows.
func (ds *DataStore) Stats(ctx context.Context) (*StoreStats, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	stats := &StoreStats{
		Artist:  ds.ArtistID,
		Backend: db.Name(),
		Tables:  make(map[string]int64),
	}

	if stats.SizeBytes, err = ds.databaseSize(ctx); err != nil {
		return nil, err
	}

	migrator := db.Migrator()
	for _, table := range tableModels() {
		if !migrator.HasTable(table.name) {
			stats.Tables[table.name] = 0
			continue
		}
		var n int64
		if err := db.Table(table.name).Count(&n).Error; err != nil {
			return nil, queryError(err, "table_row_count", "table", table.name)
		}
		stats.Tables[table.name] = n
	}

	if sqlDB, err := db.DB(); err == nil {
		s := sqlDB.Stats()
		stats.Pool = PoolStats{
			OpenConnections: s.OpenConnections,
			InUse:           s.InUse,
			Idle:            s.Idle,
			WaitCount:       s.WaitCount,
			WaitDuration:    s.WaitDuration,
		}
		if s.WaitCount > 0 {
			GetLogger().Warn("graph store connection pool experiencing waits",
				logger.String("artist", ds.ArtistID),
				logger.Int("wait_count", int(s.WaitCount)),
				logger.Duration("total_wait_duration", s.WaitDuration))
		}
	}
	return stats, nil
}

// databaseSize returns the total size of the database in bytes.
func (ds *DataStore) databaseSize(ctx context.Context) (int64, error) {
	db := ds.DB.WithContext(ctx)
	var size int64

	switch db.Name() {
	case "sqlite":
		err := db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Row().Scan(&size)
		if err != nil {
			return 0, queryError(err, "database_size", "backend", "sqlite")
		}
	case "mysql":
		var dbName string
		if err := db.Raw("SELECT DATABASE()").Scan(&dbName).Error; err != nil {
			return 0, queryError(err, "database_name", "backend", "mysql")
		}
		err := db.Raw(`
			SELECT COALESCE(SUM(data_length + index_length), 0)
			FROM information_schema.tables
			WHERE table_schema = ?
		`, dbName).Scan(&size).Error
		if err != nil {
			return 0, queryError(err, "database_size", "backend", "mysql")
		}
	}
	return size, nil
}
