package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jinzhu/gorm"
	log "github.com/public-forge/go-logger"
)

// Factory lazily opens one database connection and shares it with every caller
// until Disconnect. Callers borrow the handle and must not close it themselves.
//
// Connect, Disconnect and Connected are serialized, so concurrent callers never
// open a second connection or observe a half-closed one.
type Factory struct {
	config    PgConfig
	logger    log.Logger
	collector Collector

	mu sync.Mutex
	db *gorm.DB
}

// Option customizes a Factory.
type Option func(*Factory)

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(logger log.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCollector sets the metrics collector.
func WithCollector(collector Collector) Option {
	return func(f *Factory) {
		if collector != nil {
			f.collector = collector
		}
	}
}

// NewFactory returns a factory for cfg. The configuration is copied, later
// changes to cfg do not affect the factory. No connection is opened until Connect.
func NewFactory(cfg *PgConfig, opts ...Option) (*Factory, error) {
	if cfg == nil {
		return nil, configurationError("nil config")
	}

	f := &Factory{
		config:    *cfg,
		logger:    log.FromDefaultContext(),
		collector: NoopCollector(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewFactoryFromFile loads the properties file at path and returns a factory for it.
func NewFactoryFromFile(path string, opts ...Option) (*Factory, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewFactory(cfg, opts...)
}

// Config returns a copy of the factory configuration.
func (f *Factory) Config() PgConfig {
	return f.config
}

// Connect returns the shared connection, opening it on first use.
// While a connection is live every call returns the same handle.
// A failed open caches nothing; the error wraps ErrConnection.
func (f *Factory) Connect(ctx context.Context) (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db != nil {
		return f.db, nil
	}

	db, err := Open(ctx, &f.config, f.logger)
	if err != nil {
		f.collector.ConnectFailed()
		return nil, err
	}

	f.db = db
	f.collector.ConnectSucceeded()
	return f.db, nil
}

// Disconnect closes the shared connection. It is a no-op without a live connection.
// The handle is dropped even when closing fails; that error wraps ErrDisconnect.
func (f *Factory) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db == nil {
		return nil
	}

	db := f.db
	f.db = nil

	if err := db.Close(); err != nil {
		f.logger.Errorf("closing postgres %s FAILED: %s", ConnectionURL(&f.config), err)
		f.collector.DisconnectFailed()
		return fmt.Errorf("%w: %s: %w", ErrDisconnect, ConnectionURL(&f.config), err)
	}

	f.logger.Infof("Disconnected from postgres %s", ConnectionURL(&f.config))
	f.collector.DisconnectSucceeded()
	return nil
}

// Connected reports whether the factory holds a live connection.
func (f *Factory) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.db != nil
}
