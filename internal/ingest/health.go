package ingest

import (
	"context"

	"github.com/sells-group/linkedin-ingestor/internal/model"
	"github.com/sells-group/linkedin-ingestor/internal/storage"
)

// Health is the one-shot health snapshot served by the API and CLI.
type Health struct {
	Database      bool                `json:"database"`
	DatabaseError string              `json:"database_error,omitempty"`
	Running       bool                `json:"running"`
	Summary       *model.StoreSummary `json:"summary,omitempty"`
	Storage       *storage.Stats      `json:"storage,omitempty"`
	StorageError  string              `json:"storage_error,omitempty"`
}

// Healthy reports whether every probed subsystem responded.
func (h *Health) Healthy() bool {
	return h.Database && h.StorageError == ""
}

// HealthCheck probes the repository and the working directories. It never
// returns an error; problems are reported inside the snapshot.
func (j *Job) HealthCheck(ctx context.Context) *Health {
	health := &Health{Running: j.IsRunning()}

	summary, err := j.repo.Summary(ctx)
	if err != nil {
		health.DatabaseError = err.Error()
	} else {
		health.Database = true
		health.Summary = summary
	}

	stats, err := j.storage.Stats()
	if err != nil {
		health.StorageError = err.Error()
	} else {
		health.Storage = stats
	}
	return health
}
