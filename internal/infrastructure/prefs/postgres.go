package prefs

import (
	"context"
	"errors"

	"github.com/sean-rowe/weather-app/internal/infrastructure/database"
)

// PostgresBackend persists preferences in the location_preferences
// table managed by the database package.
type PostgresBackend struct {
	db *database.PostgresDB
}

// NewPostgresBackend wraps an open database pool as a preference
// backend.
func NewPostgresBackend(db *database.PostgresDB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get reads the stored value, translating a missing row into
// ErrNotFound.
func (b *PostgresBackend) Get(ctx context.Context, namespace, key string) (string, error) {
	value, err := b.db.GetPreference(ctx, namespace, key)

	if errors.Is(err, database.ErrNoRow) {
		return "", ErrNotFound
	}

	return value, err
}

// Set upserts the value, last write wins.
func (b *PostgresBackend) Set(ctx context.Context, namespace, key, value string) error {
	return b.db.UpsertPreference(ctx, namespace, key, value)
}
