package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jinzhu/gorm"
	// driver for postgres
	_ "github.com/lib/pq"
	log "github.com/public-forge/go-logger"
)

const (
	// defaultMaxPool is the pool size applied when PgConfig.MaxOpenConnections is zero.
	defaultMaxPool = 250
	// dialect is the gorm dialect name registered by lib/pq.
	dialect = "postgres"
)

// gormOpenFn is replaced in tests to hand out sqlmock-backed connections.
var gormOpenFn = gorm.Open

// CheckConnection executes a basic query to verify the database connection is still active.
func CheckConnection(db *gorm.DB) error {
	return db.Exec("SELECT 1;").Error
}

// Open opens a database connection using the provided PgConfig settings.
// A failed attempt is retried cfg.ConnectRetries times, cfg.RetryIntervalMS apart;
// cancelling ctx stops the retries. On success, it applies SQL and GORM-specific configurations.
func Open(ctx context.Context, cfg *PgConfig, logger log.Logger) (*gorm.DB, error) {
	attempts := cfg.ConnectRetries + 1
	interval := time.Duration(cfg.RetryIntervalMS) * time.Millisecond
	target := ConnectionURL(cfg)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, connectionError(cfg, err)
		}

		logger.Infof("Connecting to postgres %s as %q... (attempt %d of %d)", target, cfg.User, attempt, attempts)

		db, err := gormOpenFn(dialect, dataSourceName(cfg))
		if err != nil {
			lastErr = err
			logger.Errorf("Connecting to postgres %s FAILED: %s", target, err)

			if attempt < attempts {
				if err := sleepContext(ctx, interval); err != nil {
					return nil, connectionError(cfg, err)
				}
			}
			continue
		}

		db.SetLogger(logger)
		logger.Infof("Successfully connected to postgres %s", target)

		setSQLSettings(db.DB(), cfg)
		setGORMSettings(db, cfg)

		return db, nil
	}

	return nil, connectionError(cfg, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// setGORMSettings configures GORM-specific settings, such as enabling or disabling log mode.
func setGORMSettings(db *gorm.DB, pgConfig *PgConfig) {
	db.LogMode(pgConfig.LogMode)
}

// setSQLSettings applies the pool size and connection lifetime.
func setSQLSettings(db *sql.DB, pgConfig *PgConfig) {
	maxOpen := pgConfig.MaxOpenConnections
	if maxOpen <= 0 {
		maxOpen = defaultMaxPool
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxLifetime(time.Duration(pgConfig.ConnectionMaxLifetimeMS) * time.Millisecond)
}
