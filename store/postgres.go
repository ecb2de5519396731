package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inventohq/festival-system/models"
)

// PostgresSnapshotStore держит снапшот одной строкой jsonb.
// Используется, когда шлюз работает не один и файл на диске
// не переживает передеплой.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// EnsureSchema создаёт таблицу снапшота, если её ещё нет.
func (s *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS cache_snapshot (
			id      INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			version INT NOT NULL,
			payload JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure snapshot schema: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	const query = `SELECT version, payload FROM cache_snapshot WHERE id = 1`

	var version int
	var payload []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&version, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load snapshot row: %w", err)
	}

	if version != models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d",
			ErrNoSnapshot, version, models.SnapshotSchemaVersion)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return &snap, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	const query = `
		INSERT INTO cache_snapshot (id, version, payload, saved_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET version = EXCLUDED.version, payload = EXCLUDED.payload, saved_at = now()`
	if _, err := s.db.ExecContext(ctx, query, snap.SchemaVersion, payload); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}
