package datastore

import (
	"net"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// MySQLStore keeps one artist graph in its own MySQL database, named after
// the configured database with the artist slug appended.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// MySQLDatabase returns the database name used for artist.
func MySQLDatabase(base, artist string) string {
	return base + "_" + strings.ReplaceAll(artist, "-", "_")
}

// mysqlDSN formats a DSN for database, or for the server when database is
// empty. The driver escapes credentials.
func mysqlDSN(cfg *conf.MySQLSettings, database string) string {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dc.DBName = database
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// Open connects to the MySQL server and creates the artist database when missing.
func (store *MySQLStore) Open() error {
	cfg := store.Settings.Graph.MySQL
	database := MySQLDatabase(cfg.Database, store.ArtistID)
	log := GetLogger().With(logger.String("backend", "mysql"))

	gcfg := &gorm.Config{Logger: gormLogger(store.Settings.Graph.SlowQueryThreshold)}

	server, err := gorm.Open(mysql.Open(mysqlDSN(&cfg, "")), gcfg)
	if err != nil {
		log.Error("failed to connect to MySQL server",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.Error(err))
		return dbError(err, "open_mysql", "host", cfg.Host, "port", cfg.Port)
	}
	createErr := server.Exec("CREATE DATABASE IF NOT EXISTS `" + database + "` CHARACTER SET utf8mb4").Error
	if sqlDB, err := server.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if createErr != nil {
		return dbError(createErr, "create_database", "database", database)
	}

	db, err := gorm.Open(mysql.Open(mysqlDSN(&cfg, database)), gcfg)
	if err != nil {
		log.Error("failed to open MySQL database",
			logger.String("database", database),
			logger.Error(err))
		return dbError(err, "open_mysql", "database", database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_mysql", "database", database)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store.DB = db
	log.Debug("mysql graph store opened",
		logger.String("artist", store.ArtistID),
		logger.String("database", database))
	return nil
}

// Close closes the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return store.closeDB()
}
