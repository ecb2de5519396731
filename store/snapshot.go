package store

import (
	"context"
	"errors"

	"github.com/inventohq/festival-system/models"
)

// ErrNoSnapshot означает, что сохранённого снапшота нет или он
// отброшен (устаревшая схема). Кэш в этом случае стартует пустым.
var ErrNoSnapshot = errors.New("no usable snapshot")

// SnapshotStore персистит локальное зеркало коллекций между
// перезапусками шлюза.
type SnapshotStore interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}
