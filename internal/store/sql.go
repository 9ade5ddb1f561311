package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nhle/opencart-qa/internal/model"
)

// Supported values of mysql.driver.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// SQLStore implements Store on MySQL or SQLite through sqlx.
type SQLStore struct {
	db          *sqlx.DB
	driver      string
	statusStart string
	statusEnd   string
}

// Open validates cfg and opens the store for cfg.Driver.
func Open(ctx context.Context, cfg model.MySQLConfig) (*SQLStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		s   *SQLStore
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		s, err = NewSQLiteStore(cfg.SQLitePath)
	default:
		s, err = NewMySQLStore(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	if cfg.ExecutionStatusStart != "" {
		s.statusStart = cfg.ExecutionStatusStart
	}
	if cfg.ExecutionStatusEnd != "" {
		s.statusEnd = cfg.ExecutionStatusEnd
	}
	return s, nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs
// any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := newSQLStore(db, DriverSQLite)
	if err := s.runMigrations(context.Background(), sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// NewMySQLStore creates the database named by cfg when it is missing,
// connects to it, and runs any pending schema migrations.
func NewMySQLStore(ctx context.Context, cfg model.MySQLConfig) (*SQLStore, error) {
	if err := createMySQLDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", mysqlDSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("opening mysql db: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to mysql %s: %w", cfg.Database, err)
	}

	s := newSQLStore(db, DriverMySQL)
	if err := s.runMigrations(ctx, mysqlMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func newSQLStore(db *sqlx.DB, driver string) *SQLStore {
	return &SQLStore{
		db:          db,
		driver:      driver,
		statusStart: model.RunStatusStarted,
		statusEnd:   model.RunStatusCompleted,
	}
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns DriverMySQL or DriverSQLite.
func (s *SQLStore) Driver() string {
	return s.driver
}

func mysqlDSN(cfg model.MySQLConfig, database string) string {
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Timeout = 30 * time.Second
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// createMySQLDatabase connects without selecting a database and issues
// CREATE DATABASE IF NOT EXISTS.
func createMySQLDatabase(ctx context.Context, cfg model.MySQLConfig) error {
	db, err := sql.Open("mysql", mysqlDSN(cfg, ""))
	if err != nil {
		return fmt.Errorf("opening mysql server connection: %w", err)
	}
	defer db.Close()

	stmt := "CREATE DATABASE IF NOT EXISTS " + quoteIdent(cfg.Database)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating database %s: %w", cfg.Database, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// runMigrations reads the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations(ctx context.Context, migrations []migration) error {
	if _, err := s.db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := s.db.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying migration v%d: %w", m.version, err)
			}
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
