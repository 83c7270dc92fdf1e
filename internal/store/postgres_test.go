package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithQuerier(mock), mock
}

func TestPostgresUpsertParticipant_Insert(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectQuery(`SELECT id, linkedin_id, name`).
		WithArgs("p1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO participants`).
		WithArgs(pgxmock.AnyArg(), "p1", "Alice", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, inserted, err := s.UpsertParticipant(context.Background(), model.Participant{LinkedInID: "p1", Name: "Alice"})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertParticipant_NoChangeSkipsUpdate(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, linkedin_id, name`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "linkedin_id", "name", "profile_url", "email", "headline", "created_at", "updated_at",
		}).AddRow("row-1", "p1", "Alice", nil, nil, nil, now, now))

	// No UPDATE expected when the payload adds nothing.
	p, inserted, err := s.UpsertParticipant(context.Background(), model.Participant{LinkedInID: "p1", Name: "Alice"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "row-1", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJunctionConflictReturnsFalse(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec(`INSERT INTO conversation_participants`).
		WithArgs(pgxmock.AnyArg(), "c1", "p1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	added, err := s.UpsertConversationParticipant(context.Background(), model.ConversationParticipant{
		ConversationID: "c1", ParticipantID: "p1",
	})
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresZipAlreadyIngested(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ingestion_runs`).
		WithArgs("hash-1", "success").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	ingested, err := s.ZipAlreadyIngested(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.True(t, ingested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateIngestionRun_UnknownID(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec(`UPDATE ingestion_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateIngestionRun(context.Background(), "missing", model.RunStatusFailed, "boom", model.RunCounters{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRollback(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
