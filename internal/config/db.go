package config

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	intdb "fleetcore/internal/db"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var (
	DB   *sql.DB
	dbMu sync.Mutex
)

// ConnectDB initializes the shared DB connection (idempotent) and migrates the schema.
func ConnectDB(env Env) (*sql.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB, nil
	}

	dialect, err := intdb.ParseDialect(env.DBDriver)
	if err != nil {
		return nil, err
	}
	dsn := env.DBDSN
	if dialect == intdb.SQLite && dsn == "" {
		dsn = "file:fleetcore.db?_foreign_keys=1&_journal_mode=WAL"
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if dialect == intdb.SQLite {
		// single writer; savepoints need the tx to own the connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(10 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	intdb.SetDialect(dialect)
	if err := intdb.Migrate(context.Background(), db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	DB = db
	logrus.WithField("driver", string(dialect)).Info("database connected")
	return DB, nil
}

func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}
