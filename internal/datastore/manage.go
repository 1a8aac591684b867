package datastore

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/logger"
)

// MaxColumnsForDetailedDisplay limits column names listed in migration logs.
const MaxColumnsForDetailedDisplay = 10

// embeddingIndexName is the lookup index over lyric embeddings. It is created
// once, after the bulk load, by BuildVectorIndex.
const embeddingIndexName = "idx_lyric_embeddings_type_artist"

// EnsureSchema creates missing tables. It is idempotent: existing tables are
// detected through the migrator rather than inferred from driver errors.
func (ds *DataStore) EnsureSchema(ctx context.Context) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	start := time.Now()
	db := ds.DB.WithContext(ctx)

	created := 0
	for _, table := range tableModels() {
		wasCreated, err := migrateTable(db, table.model, table.name)
		if err != nil {
			return err
		}
		if wasCreated {
			created++
		}
	}

	GetLogger().Debug("graph schema ensured",
		logger.String("artist", ds.ArtistID),
		logger.Int("tables_created", created),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// migrateTable migrates a single table and reports whether it was created.
func migrateTable(db *gorm.DB, model any, tableName string) (bool, error) {
	tableStart := time.Now()
	tableExists := db.Migrator().HasTable(model)
	columnsBefore := getTableColumns(db, model, tableExists)

	if err := db.AutoMigrate(model); err != nil {
		return false, dbError(err, "auto_migrate_table", "table", tableName)
	}

	action, addedColumns := determineTableChanges(db, model, tableExists, columnsBefore)
	logTableMigration(tableName, action, addedColumns, time.Since(tableStart))
	return !tableExists, nil
}

// getTableColumns retrieves column names for a table
func getTableColumns(db *gorm.DB, model any, tableExists bool) []string {
	var columns []string
	if tableExists {
		if cols, err := db.Migrator().ColumnTypes(model); err == nil {
			for _, col := range cols {
				columns = append(columns, col.Name())
			}
		}
	}
	return columns
}

// determineTableChanges checks what changed after migration
func determineTableChanges(db *gorm.DB, model any, tableExists bool, columnsBefore []string) (action string, addedColumns []string) {
	if !tableExists {
		if cols, err := db.Migrator().ColumnTypes(model); err == nil {
			for _, col := range cols {
				addedColumns = append(addedColumns, col.Name())
			}
		}
		return "created", addedColumns
	}

	if cols, err := db.Migrator().ColumnTypes(model); err == nil {
		for _, col := range cols {
			if !slices.Contains(columnsBefore, col.Name()) {
				addedColumns = append(addedColumns, col.Name())
			}
		}
	}
	if len(addedColumns) == 0 {
		return "unchanged", nil
	}
	return "updated", addedColumns
}

func logTableMigration(tableName, action string, addedColumns []string, duration time.Duration) {
	fields := []logger.Field{
		logger.String("table", tableName),
		logger.String("action", action),
		logger.Duration("duration", duration),
	}
	if len(addedColumns) > 0 {
		fields = append(fields, logger.Int("columns_added", len(addedColumns)))
		if len(addedColumns) <= MaxColumnsForDetailedDisplay {
			fields = append(fields, logger.Any("new_columns", addedColumns))
		}
	}
	GetLogger().Trace("table migration completed", fields...)
}

// Drop removes every graph table so the artist can be ingested into a fresh store.
func (ds *DataStore) Drop(ctx context.Context) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	db := ds.DB.WithContext(ctx)
	tables := tableModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if !db.Migrator().HasTable(tables[i].model) {
			continue
		}
		if err := db.Migrator().DropTable(tables[i].model); err != nil {
			return dbError(err, "drop_table", "table", tables[i].name)
		}
	}

	ds.vectorMu.Lock()
	ds.vectors = nil
	ds.indexBuilt = false
	ds.dbIndexDone = false
	ds.vectorMu.Unlock()

	GetLogger().Info("graph store dropped", logger.String("artist", ds.ArtistID))
	return nil
}

// ensureEmbeddingIndex creates the embedding lookup index if it does not exist.
func (ds *DataStore) ensureEmbeddingIndex(ctx context.Context) error {
	m := ds.DB.WithContext(ctx).Migrator()
	if m.HasIndex(&LyricEmbedding{}, embeddingIndexName) {
		GetLogger().Debug("embedding index already exists, skipping creation",
			logger.String("index", embeddingIndexName))
		return nil
	}
	if err := ds.DB.WithContext(ctx).Exec(
		"CREATE INDEX " + embeddingIndexName + " ON lyric_embeddings (node_type, artist_id)").Error; err != nil {
		return dbError(err, "create_embedding_index", "index", embeddingIndexName)
	}
	return nil
}
