package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/barcheck/internal/models"
)

// RunStorage persists the history of harness runs
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
	// ListRuns returns the most recent runs first; limit <= 0 returns all
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
	// DeleteRunsBefore removes runs started before cutoff and returns how many were removed
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager owns the history database and the storages built on it
type StorageManager interface {
	RunStorage() RunStorage
	Close() error
}
