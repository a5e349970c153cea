// Package pool manages the database connection pool shared by all queries.
//
// A Manager lazily builds one Pool per process and reports its status at any
// time, including before the first connection attempt. The Pool itself is a
// thin layer over database/sql: sizing, recycling and validation knobs map
// onto the standard pool, and Execute checks a connection out for the
// duration of a single statement.
package pool

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	// Database drivers registered for database/sql. The duckdb driver is
	// registered in driver_duckdb.go because it builds only with cgo.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/askdb/askdb/internal/errors"
)

const connectTimeout = 10 * time.Second

// Pool lifecycle states reported by Manager.Status.
const (
	StateUninitialized = "uninitialized"
	StateActive        = "active"
)

// Config tunes the pool. MaxSize connections are kept alive between queries;
// up to MaxOverflow more may be opened under load and are discarded on
// release. RecycleAfter bounds the lifetime of any single connection.
type Config struct {
	MaxSize           int
	MaxOverflow       int
	AcquireTimeout    time.Duration
	RecycleAfter      time.Duration
	ValidateBeforeUse bool
}

// Status is a point-in-time snapshot of the pool. State is "uninitialized"
// until the first pool is built, then "active"; counts are zero while
// uninitialized.
type Status struct {
	State     string `json:"state"`
	Total     int    `json:"total"`
	InUse     int    `json:"in_use"`
	Available int    `json:"available"`
	Overflow  int    `json:"overflow"`
	MaxSize   int    `json:"max_size"`
}

// Manager owns the process-wide pool. The pool is created on the first call
// to Get and reused by every later caller; GetNew tears the old pool down
// and builds a fresh one.
type Manager struct {
	mu     sync.Mutex
	pool   *Pool
	logger *zap.Logger

	// openDB is swapped out in tests.
	openDB func(driverName, dsn string) (*sql.DB, error)
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger,
		openDB: sql.Open,
	}
}

// Get returns the current pool, building it on first use. Concurrent callers
// observe the same pool.
func (m *Manager) Get(ctx context.Context, desc Descriptor, cfg Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool, nil
	}

	pool, err := m.open(ctx, desc, cfg)
	if err != nil {
		return nil, err
	}

	m.pool = pool

	return pool, nil
}

// GetNew discards the current pool, if any, and builds a replacement. Used
// when connection parameters change at runtime.
func (m *Manager) GetNew(ctx context.Context, desc Descriptor, cfg Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		if err := m.pool.db.Close(); err != nil {
			m.logger.Warn("failed to close previous pool", zap.Error(err))
		}

		m.pool = nil
	}

	pool, err := m.open(ctx, desc, cfg)
	if err != nil {
		return nil, err
	}

	m.pool = pool

	return pool, nil
}

// Current returns the pool built by a prior Get, or nil.
func (m *Manager) Current() *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pool
}

// Status never fails: before the first Get it reports an uninitialized pool
// with zero counts.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool == nil {
		return Status{State: StateUninitialized}
	}

	stats := m.pool.db.Stats()

	overflow := stats.OpenConnections - m.pool.cfg.MaxSize
	if overflow < 0 {
		overflow = 0
	}

	return Status{
		State:     StateActive,
		Total:     stats.OpenConnections,
		InUse:     stats.InUse,
		Available: stats.Idle,
		Overflow:  overflow,
		MaxSize:   m.pool.cfg.MaxSize,
	}
}

// Close releases the pool. Safe to call when no pool was ever built.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool == nil {
		return nil
	}

	err := m.pool.db.Close()
	m.pool = nil

	return err
}

func (m *Manager) open(ctx context.Context, desc Descriptor, cfg Config) (*Pool, error) {
	driverName, dsn, err := BuildDSN(desc)
	if err != nil {
		return nil, err
	}

	db, err := m.openDB(driverName, dsn)
	if err != nil {
		return nil, errors.NewPoolInitError(err, desc.Server, desc.Database)
	}

	// MaxOverflow connections beyond the resident size are allowed under
	// load; keeping MaxIdleConns at the resident size means overflow
	// connections are dropped as soon as they are released.
	db.SetMaxOpenConns(cfg.MaxSize + cfg.MaxOverflow)
	db.SetMaxIdleConns(cfg.MaxSize)
	db.SetConnMaxLifetime(cfg.RecycleAfter)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, errors.NewPoolInitError(err, desc.Server, desc.Database)
	}

	m.logger.Info("connection pool ready",
		zap.String("target", desc.Redacted()),
		zap.Int("max_size", cfg.MaxSize),
		zap.Int("max_overflow", cfg.MaxOverflow))

	return &Pool{
		db:     db,
		driver: desc.Driver,
		desc:   desc,
		cfg:    cfg,
		logger: m.logger,
	}, nil
}

// Pool executes statements against one database through a bounded set of
// connections.
type Pool struct {
	db     *sql.DB
	driver string
	desc   Descriptor
	cfg    Config
	logger *zap.Logger
}

// NewPoolFromDB wraps an already-open handle. Intended for tests that
// substitute a mock driver.
func NewPoolFromDB(db *sql.DB, desc Descriptor, cfg Config, logger *zap.Logger) *Pool {
	return &Pool{
		db:     db,
		driver: desc.Driver,
		desc:   desc,
		cfg:    cfg,
		logger: logger,
	}
}

// DB exposes the underlying handle for schema introspection.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Driver returns the configured driver key (mssql, postgres, mysql, sqlite,
// duckdb).
func (p *Pool) Driver() string {
	return p.driver
}

// Execute checks out a connection, optionally validates it, runs the query
// and returns the fully materialized result set. Checkout is bounded by the
// configured acquire timeout; the query itself runs under the caller's
// context.
func (p *Pool) Execute(ctx context.Context, query string, args ...any) (*Rows, error) {
	start := time.Now()

	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		return nil, errors.NewQueryExecutionError(err, time.Since(start))
	}
	defer conn.Close()

	if p.cfg.ValidateBeforeUse {
		if err := conn.PingContext(acquireCtx); err != nil {
			return nil, errors.NewQueryExecutionError(err, time.Since(start))
		}
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionError(err, time.Since(start))
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, errors.NewQueryExecutionError(err, time.Since(start))
	}

	p.logger.Debug("query executed",
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// Rows is a materialized result set with column order preserved.
type Rows struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of data rows.
func (r *Rows) Len() int {
	return len(r.Rows)
}

// Records re-shapes the rows into column-keyed maps.
func (r *Rows) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))

	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}

		records = append(records, record)
	}

	return records
}

func scanRows(rows *sql.Rows) (*Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Rows{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		// Drivers commonly hand text columns back as []byte.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
	}

	return result, rows.Err()
}
