// Package store is the idempotent persistence layer. Every upsert is keyed
// by the entity's natural key and is safe to call twice with identical
// input.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Repository defines the persistence interface for the ingestion pipeline.
// Begin returns a transaction-scoped Repository; Commit and Rollback only
// apply to that copy.
type Repository interface {
	// Entities. The bool reports whether a new row was inserted.
	UpsertParticipant(ctx context.Context, p model.Participant) (*model.Participant, bool, error)
	UpsertConversation(ctx context.Context, c model.Conversation) (*model.Conversation, bool, error)
	UpsertMessage(ctx context.Context, m model.Message) (*model.Message, bool, error)
	UpsertConversationParticipant(ctx context.Context, j model.ConversationParticipant) (bool, error)

	// Runs
	CreateIngestionRun(ctx context.Context, sourcePath, sourceHash string) (*model.IngestionRun, error)
	UpdateIngestionRun(ctx context.Context, runID string, status model.RunStatus, errText string, counters model.RunCounters) error
	GetIngestionRun(ctx context.Context, runID string) (*model.IngestionRun, error)
	ListIngestionRuns(ctx context.Context, limit int) ([]model.IngestionRun, error)
	ZipAlreadyIngested(ctx context.Context, sourceHash string) (bool, error)
	TrackMessageIngestion(ctx context.Context, messageID, runID, rawHash string) (bool, error)

	// Reconciliation support
	MessagesForRun(ctx context.Context, runID string) ([]model.Message, error)
	Counts(ctx context.Context) (map[string]int, error)
	Summary(ctx context.Context) (*model.StoreSummary, error)

	// Transactions
	Begin(ctx context.Context) (Repository, error)
	Commit() error
	Rollback() error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New constructs a Repository for the configured driver.
func New(driver, databaseURL string) (Repository, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(context.Background(), databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
