package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// pgQuerier is satisfied by *pgxpool.Pool, pgx.Tx, and the pgxmock pool.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Repository using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    pgQuerier
	tx   pgx.Tx
}

// NewPostgres connects a pgx pool for the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, q: pool}, nil
}

// NewPostgresWithQuerier wraps an existing querier. Used by tests.
func NewPostgresWithQuerier(q pgQuerier) *PostgresStore {
	return &PostgresStore{q: q}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS participants (
	id          TEXT PRIMARY KEY,
	linkedin_id TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	profile_url TEXT,
	email       TEXT,
	headline    TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id               TEXT PRIMARY KEY,
	conversation_id  TEXT NOT NULL UNIQUE,
	title            TEXT,
	is_group_chat    BOOLEAN NOT NULL DEFAULT FALSE,
	first_message_at TIMESTAMPTZ,
	last_message_at  TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id                 TEXT PRIMARY KEY,
	message_id         TEXT NOT NULL UNIQUE,
	conversation_id    TEXT NOT NULL,
	sender_linkedin_id TEXT NOT NULL,
	content            TEXT,
	sent_at            TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_participants (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	participant_id  TEXT NOT NULL,
	joined_at       TIMESTAMPTZ,
	left_at         TIMESTAMPTZ,
	UNIQUE (conversation_id, participant_id)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                     TEXT PRIMARY KEY,
	source_path            TEXT NOT NULL,
	source_hash            TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'running',
	started_at             TIMESTAMPTZ NOT NULL,
	completed_at           TIMESTAMPTZ,
	participants_found     INTEGER NOT NULL DEFAULT 0,
	participants_inserted  INTEGER NOT NULL DEFAULT 0,
	conversations_found    INTEGER NOT NULL DEFAULT 0,
	conversations_inserted INTEGER NOT NULL DEFAULT 0,
	messages_found         INTEGER NOT NULL DEFAULT 0,
	messages_inserted      INTEGER NOT NULL DEFAULT 0,
	error                  TEXT
);

CREATE TABLE IF NOT EXISTS message_ingestion_tracking (
	id          TEXT PRIMARY KEY,
	message_id  TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	raw_hash    TEXT,
	ingested_at TIMESTAMPTZ NOT NULL,
	UNIQUE (message_id, run_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_linkedin_id);
CREATE INDEX IF NOT EXISTS idx_runs_source_hash ON ingestion_runs(source_hash);
CREATE INDEX IF NOT EXISTS idx_tracking_run_id ON message_ingestion_tracking(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.q.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Repository, error) {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	return &PostgresStore{pool: s.pool, q: tx, tx: tx}, nil
}

func (s *PostgresStore) Commit() error {
	if s.tx == nil {
		return eris.New("postgres: not in transaction")
	}
	return eris.Wrap(s.tx.Commit(context.Background()), "postgres: commit")
}

func (s *PostgresStore) Rollback() error {
	if s.tx == nil {
		return eris.New("postgres: not in transaction")
	}
	return eris.Wrap(s.tx.Rollback(context.Background()), "postgres: rollback")
}

// --- Participants ---

func (s *PostgresStore) UpsertParticipant(ctx context.Context, p model.Participant) (*model.Participant, bool, error) {
	existing, err := s.getParticipant(ctx, p.LinkedInID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	if existing == nil {
		p.ID = uuid.New().String()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		_, err := s.q.Exec(ctx,
			`INSERT INTO participants (id, linkedin_id, name, profile_url, email, headline, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.LinkedInID, p.Name, nullStr(p.ProfileURL), nullStr(p.Email), nullStr(p.Headline), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "postgres: insert participant %s", p.LinkedInID)
		}
		return &p, true, nil
	}

	changed := false
	for _, merged := range []bool{
		mergeStr(&existing.Name, p.Name),
		mergeStr(&existing.ProfileURL, p.ProfileURL),
		mergeStr(&existing.Email, p.Email),
		mergeStr(&existing.Headline, p.Headline),
	} {
		changed = changed || merged
	}
	if !changed {
		return existing, false, nil
	}

	existing.UpdatedAt = now
	_, err = s.q.Exec(ctx,
		`UPDATE participants SET name = $1, profile_url = $2, email = $3, headline = $4, updated_at = $5 WHERE linkedin_id = $6`,
		existing.Name, nullStr(existing.ProfileURL), nullStr(existing.Email), nullStr(existing.Headline), existing.UpdatedAt, existing.LinkedInID,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: update participant %s", p.LinkedInID)
	}
	return existing, false, nil
}

func (s *PostgresStore) getParticipant(ctx context.Context, linkedinID string) (*model.Participant, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, linkedin_id, name, profile_url, email, headline, created_at, updated_at
		 FROM participants WHERE linkedin_id = $1`, linkedinID)

	var p model.Participant
	var profileURL, email, headline sql.NullString
	err := row.Scan(&p.ID, &p.LinkedInID, &p.Name, &profileURL, &email, &headline, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan participant")
	}
	p.ProfileURL = profileURL.String
	p.Email = email.String
	p.Headline = headline.String
	return &p, nil
}

// --- Conversations ---

func (s *PostgresStore) UpsertConversation(ctx context.Context, c model.Conversation) (*model.Conversation, bool, error) {
	existing, err := s.getConversation(ctx, c.ConversationID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	if existing == nil {
		c.ID = uuid.New().String()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		_, err := s.q.Exec(ctx,
			`INSERT INTO conversations (id, conversation_id, title, is_group_chat, first_message_at, last_message_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.ConversationID, nullStr(c.Title), c.IsGroupChat, nullTime(c.FirstMessageAt), nullTime(c.LastMessageAt), c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "postgres: insert conversation %s", c.ConversationID)
		}
		return &c, true, nil
	}

	changed := mergeStr(&existing.Title, c.Title)
	if c.IsGroupChat && !existing.IsGroupChat {
		existing.IsGroupChat = true
		changed = true
	}
	if widenFirst(&existing.FirstMessageAt, c.FirstMessageAt) {
		changed = true
	}
	if widenLast(&existing.LastMessageAt, c.LastMessageAt) {
		changed = true
	}
	if !changed {
		return existing, false, nil
	}

	existing.UpdatedAt = now
	_, err = s.q.Exec(ctx,
		`UPDATE conversations SET title = $1, is_group_chat = $2, first_message_at = $3, last_message_at = $4, updated_at = $5
		 WHERE conversation_id = $6`,
		nullStr(existing.Title), existing.IsGroupChat, nullTime(existing.FirstMessageAt), nullTime(existing.LastMessageAt),
		existing.UpdatedAt, existing.ConversationID,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: update conversation %s", c.ConversationID)
	}
	return existing, false, nil
}

func (s *PostgresStore) getConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, conversation_id, title, is_group_chat, first_message_at, last_message_at, created_at, updated_at
		 FROM conversations WHERE conversation_id = $1`, conversationID)

	var c model.Conversation
	var title sql.NullString
	var first, last sql.NullTime
	err := row.Scan(&c.ID, &c.ConversationID, &title, &c.IsGroupChat, &first, &last, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan conversation")
	}
	c.Title = title.String
	if first.Valid {
		t := first.Time.UTC()
		c.FirstMessageAt = &t
	}
	if last.Valid {
		t := last.Time.UTC()
		c.LastMessageAt = &t
	}
	return &c, nil
}

// --- Messages ---

func (s *PostgresStore) UpsertMessage(ctx context.Context, m model.Message) (*model.Message, bool, error) {
	existing, err := s.getMessage(ctx, m.MessageID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	inserted := false
	switch {
	case existing == nil:
		m.ID = uuid.New().String()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		_, err := s.q.Exec(ctx,
			`INSERT INTO messages (id, message_id, conversation_id, sender_linkedin_id, content, sent_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.MessageID, m.ConversationID, m.SenderLinkedInID, nullStr(m.Content), m.SentAt, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "postgres: insert message %s", m.MessageID)
		}
		existing = &m
		inserted = true

	default:
		changed := mergeStr(&existing.Content, m.Content)
		if mergeStr(&existing.SenderLinkedInID, m.SenderLinkedInID) {
			changed = true
		}
		if !m.SentAt.IsZero() && !m.SentAt.Equal(existing.SentAt) {
			existing.SentAt = m.SentAt
			changed = true
		}
		if changed {
			existing.UpdatedAt = now
			_, err = s.q.Exec(ctx,
				`UPDATE messages SET content = $1, sender_linkedin_id = $2, sent_at = $3, updated_at = $4 WHERE message_id = $5`,
				nullStr(existing.Content), existing.SenderLinkedInID, existing.SentAt, existing.UpdatedAt, existing.MessageID,
			)
			if err != nil {
				return nil, false, eris.Wrapf(err, "postgres: update message %s", m.MessageID)
			}
		}
	}

	_, err = s.q.Exec(ctx,
		`UPDATE conversations SET
			first_message_at = CASE WHEN first_message_at IS NULL OR $1 < first_message_at THEN $1 ELSE first_message_at END,
			last_message_at  = CASE WHEN last_message_at  IS NULL OR $1 > last_message_at  THEN $1 ELSE last_message_at  END
		 WHERE conversation_id = $2`,
		existing.SentAt, existing.ConversationID,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: widen conversation %s", existing.ConversationID)
	}
	return existing, inserted, nil
}

func (s *PostgresStore) getMessage(ctx context.Context, messageID string) (*model.Message, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, message_id, conversation_id, sender_linkedin_id, content, sent_at, created_at, updated_at
		 FROM messages WHERE message_id = $1`, messageID)

	var m model.Message
	var content sql.NullString
	err := row.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.SenderLinkedInID, &content, &m.SentAt, &m.CreatedAt, &m.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan message")
	}
	m.Content = content.String
	return &m, nil
}

// --- Junction ---

func (s *PostgresStore) UpsertConversationParticipant(ctx context.Context, j model.ConversationParticipant) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`INSERT INTO conversation_participants (id, conversation_id, participant_id, joined_at, left_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (conversation_id, participant_id) DO NOTHING`,
		uuid.New().String(), j.ConversationID, j.ParticipantID, nullTime(j.JoinedAt), nullTime(j.LeftAt),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert junction %s/%s", j.ConversationID, j.ParticipantID)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Ingestion runs ---

func (s *PostgresStore) CreateIngestionRun(ctx context.Context, sourcePath, sourceHash string) (*model.IngestionRun, error) {
	run := &model.IngestionRun{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		SourceHash: sourceHash,
		Status:     model.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO ingestion_runs (id, source_path, source_hash, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.SourcePath, run.SourceHash, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert ingestion run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateIngestionRun(ctx context.Context, runID string, status model.RunStatus, errText string, counters model.RunCounters) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE ingestion_runs SET
			status = $1, completed_at = $2, error = $3,
			participants_found = $4, participants_inserted = $5,
			conversations_found = $6, conversations_inserted = $7,
			messages_found = $8, messages_inserted = $9
		 WHERE id = $10`,
		string(status), time.Now().UTC(), nullStr(errText),
		counters.ParticipantsFound, counters.ParticipantsInserted,
		counters.ConversationsFound, counters.ConversationsInserted,
		counters.MessagesFound, counters.MessagesInserted,
		runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update ingestion run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ingestion run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetIngestionRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.q.QueryRow(ctx, pgSelectRun+` WHERE id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, eris.Errorf("postgres: ingestion run not found: %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListIngestionRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.Query(ctx, pgSelectRun+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingestion runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list ingestion runs iterate")
}

func (s *PostgresStore) ZipAlreadyIngested(ctx context.Context, sourceHash string) (bool, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingestion_runs WHERE source_hash = $1 AND status = $2`,
		sourceHash, string(model.RunStatusSuccess),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: check ingested hash")
	}
	return n > 0, nil
}

func (s *PostgresStore) TrackMessageIngestion(ctx context.Context, messageID, runID, rawHash string) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`INSERT INTO message_ingestion_tracking (id, message_id, run_id, raw_hash, ingested_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id, run_id) DO NOTHING`,
		uuid.New().String(), messageID, runID, nullStr(rawHash), time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: track message %s", messageID)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Reconciliation support ---

func (s *PostgresStore) MessagesForRun(ctx context.Context, runID string) ([]model.Message, error) {
	rows, err := s.q.Query(ctx,
		`SELECT m.id, m.message_id, m.conversation_id, m.sender_linkedin_id, m.content, m.sent_at, m.created_at, m.updated_at
		 FROM messages m
		 JOIN message_ingestion_tracking t ON t.message_id = m.message_id
		 WHERE t.run_id = $1
		 ORDER BY m.sent_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: messages for run %s", runID)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var content sql.NullString
		if err := rows.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.SenderLinkedInID, &content, &m.SentAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan message")
		}
		m.Content = content.String
		messages = append(messages, m)
	}
	return messages, eris.Wrap(rows.Err(), "postgres: messages for run iterate")
}

func (s *PostgresStore) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)
	for table, query := range map[string]string{
		model.TableParticipants:     `SELECT COUNT(*) FROM participants`,
		model.TableConversations:    `SELECT COUNT(*) FROM conversations`,
		model.TableMessages:         `SELECT COUNT(*) FROM messages`,
		"conversation_participants": `SELECT COUNT(*) FROM conversation_participants`,
	} {
		var n int
		if err := s.q.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *PostgresStore) Summary(ctx context.Context) (*model.StoreSummary, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return nil, err
	}
	summary := &model.StoreSummary{
		Participants:  counts[model.TableParticipants],
		Conversations: counts[model.TableConversations],
		Messages:      counts[model.TableMessages],
		Junctions:     counts["conversation_participants"],
	}

	var earliest, latest sql.NullTime
	err = s.q.QueryRow(ctx, `SELECT MIN(sent_at), MAX(sent_at) FROM messages`).Scan(&earliest, &latest)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: message time bounds")
	}
	if earliest.Valid {
		t := earliest.Time.UTC()
		summary.EarliestMessage = &t
	}
	if latest.Valid {
		t := latest.Time.UTC()
		summary.LatestMessage = &t
	}

	err = s.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0) FROM ingestion_runs`,
		string(model.RunStatusSuccess),
	).Scan(&summary.TotalRuns, &summary.SuccessfulRuns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run counts")
	}
	return summary, nil
}

const pgSelectRun = `SELECT id, source_path, source_hash, status, started_at, completed_at,
	participants_found, participants_inserted, conversations_found, conversations_inserted,
	messages_found, messages_inserted, error
	FROM ingestion_runs`
