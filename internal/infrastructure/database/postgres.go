// Package database provides the PostgreSQL connection pool and the
// preference table queries behind the durable location preference
// store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrNoRow indicates a preference key that has never been written.
var ErrNoRow = errors.New("no preference row")

// PostgresDB wraps the connection pool used by the preference backend.
type PostgresDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config contains PostgreSQL connection settings.
type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// NewPostgresDB opens and verifies a connection pool.
//
// Parameters:
//   - cfg: Connection settings
//   - logger: Zap logger for query logging
//
// Returns:
//   - *PostgresDB: Connected pool
//   - error: Open or ping failure
func NewPostgresDB(cfg Config, logger *zap.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

// GetPreference reads one value from the preference table, returning
// ErrNoRow when the key has never been written.
func (p *PostgresDB) GetPreference(ctx context.Context, namespace, key string) (string, error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "GetPreference")

	defer span.End()

	span.SetAttributes(
		attribute.String("preference.namespace", namespace),
		attribute.String("preference.key", key),
	)

	query := `SELECT value FROM location_preferences WHERE namespace = $1 AND key = $2`

	var value string

	start := time.Now()
	err := p.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	duration := time.Since(start)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRow
	}

	if err != nil {
		span.RecordError(err)

		p.logger.Error("failed to read preference",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(err))

		return "", err
	}

	return value, nil
}

// UpsertPreference writes one value into the preference table,
// last write wins.
func (p *PostgresDB) UpsertPreference(ctx context.Context, namespace, key, value string) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "UpsertPreference")

	defer span.End()

	span.SetAttributes(
		attribute.String("preference.namespace", namespace),
		attribute.String("preference.key", key),
	)

	query := `
        INSERT INTO location_preferences (namespace, key, value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (namespace, key)
        DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
    `

	start := time.Now()
	_, err := p.db.ExecContext(ctx, query, namespace, key, value)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		p.logger.Error("failed to write preference",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Duration("duration", duration),
			zap.Error(err))

		return err
	}

	p.logger.Debug("preference written",
		zap.String("namespace", namespace),
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// DB exposes the underlying pool for the migration runner.
func (p *PostgresDB) DB() *sql.DB {
	return p.db
}

// Ping verifies the connection is still alive.
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}

// Close releases the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}
