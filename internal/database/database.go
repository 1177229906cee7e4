// Package database keeps the catalog of finished recordings in Postgres, or
// in a local SQLite file when Postgres is not configured or unreachable.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/tacview/internal/config"
)

// Manager owns the catalog connection.
type Manager struct {
	DB          *gorm.DB
	IsLocal     bool
	Logger      zerolog.Logger
	SqlitePath  string
	postgresDSN string
}

// NewManager creates a manager for cfg. Nothing is opened until Connect.
func NewManager(cfg config.CatalogConfig, log zerolog.Logger) *Manager {
	m := &Manager{Logger: log, SqlitePath: cfg.SQLitePath}
	if cfg.Driver == "postgres" {
		m.postgresDSN = fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
	}
	return m
}

// Connect opens the catalog, falling back to SQLite if Postgres fails, and
// migrates the schema.
func (m *Manager) Connect() error {
	if m.postgresDSN != "" {
		db, err := m.openPostgres()
		if err == nil {
			m.DB = db
			m.Logger.Info().Msg("Connected to catalog database")
			return m.migrate()
		}
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres catalog, trying SQLite")
	}

	db, err := OpenSqlite(m.SqlitePath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite catalog: %w", err)
	}
	m.DB = db
	m.IsLocal = true
	m.Logger.Info().Str("path", m.SqlitePath).Msg("Using local SQLite catalog")
	return m.migrate()
}

func (m *Manager) openPostgres() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  m.postgresDSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	return db, nil
}

// OpenSqlite opens a SQLite database at path, or an in-memory one when path
// is empty.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

func (m *Manager) migrate() error {
	if err := m.DB.AutoMigrate(&Recording{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
