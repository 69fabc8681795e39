package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver names accepted by New.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// New creates a new database connection pool for the given driver.
func New(driver, dataSourceName string) (*sql.DB, error) {
	var dsn string
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dataSourceName)
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dataSourceName)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		// Report matched rather than changed rows so an UPDATE with identical values still counts.
		cfg.ClientFoundRows = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; busy_timeout makes the rest wait instead of failing.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = sqliteSchema
	case DriverMySQL:
		stmts = mysqlSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn returns nil
// and rolled back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL,
		password TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		region TEXT NOT NULL,
		category TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_places_user_created ON places(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS place_costs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		place_id INTEGER NOT NULL UNIQUE REFERENCES places(id) ON DELETE CASCADE,
		travel_cost REAL NOT NULL DEFAULT 0,
		food_cost REAL NOT NULL DEFAULT 0,
		stay_cost REAL NOT NULL DEFAULT 0,
		entry_fee REAL NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS place_requirements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		place_id INTEGER NOT NULL UNIQUE REFERENCES places(id) ON DELETE CASCADE,
		footwear INTEGER NOT NULL DEFAULT 0,
		water INTEGER NOT NULL DEFAULT 0,
		food INTEGER NOT NULL DEFAULT 0,
		raincoat INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS place_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		place_id INTEGER NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		image_path TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS place_risks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		place_id INTEGER NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
	`CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		phone VARCHAR(50) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		region VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		difficulty VARCHAR(50) NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_places_user_created (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS place_costs (
		id INT AUTO_INCREMENT PRIMARY KEY,
		place_id INT NOT NULL UNIQUE,
		travel_cost DOUBLE NOT NULL DEFAULT 0,
		food_cost DOUBLE NOT NULL DEFAULT 0,
		stay_cost DOUBLE NOT NULL DEFAULT 0,
		entry_fee DOUBLE NOT NULL DEFAULT 0,
		FOREIGN KEY (place_id) REFERENCES places(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS place_requirements (
		id INT AUTO_INCREMENT PRIMARY KEY,
		place_id INT NOT NULL UNIQUE,
		footwear TINYINT(1) NOT NULL DEFAULT 0,
		water TINYINT(1) NOT NULL DEFAULT 0,
		food TINYINT(1) NOT NULL DEFAULT 0,
		raincoat TINYINT(1) NOT NULL DEFAULT 0,
		FOREIGN KEY (place_id) REFERENCES places(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS place_photos (
		id INT AUTO_INCREMENT PRIMARY KEY,
		place_id INT NOT NULL,
		image_path VARCHAR(512) NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (place_id) REFERENCES places(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS place_risks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		place_id INT NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (place_id) REFERENCES places(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		user_id INT NOT NULL,
		expires_at BIGINT NOT NULL,
		INDEX idx_sessions_expires (expires_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(64) NOT NULL UNIQUE,
		type VARCHAR(100) NOT NULL,
		level VARCHAR(20) NOT NULL,
		message TEXT NOT NULL,
		user_id INT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_events_user (user_id)
	)`,
}
