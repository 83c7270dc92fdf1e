package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// SQLiteStore implements Repository using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS participants (
	id          TEXT PRIMARY KEY,
	linkedin_id TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	profile_url TEXT,
	email       TEXT,
	headline    TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id               TEXT PRIMARY KEY,
	conversation_id  TEXT NOT NULL UNIQUE,
	title            TEXT,
	is_group_chat    INTEGER NOT NULL DEFAULT 0,
	first_message_at DATETIME,
	last_message_at  DATETIME,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id                 TEXT PRIMARY KEY,
	message_id         TEXT NOT NULL UNIQUE,
	conversation_id    TEXT NOT NULL,
	sender_linkedin_id TEXT NOT NULL,
	content            TEXT,
	sent_at            DATETIME NOT NULL,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_participants (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	participant_id  TEXT NOT NULL,
	joined_at       DATETIME,
	left_at         DATETIME,
	UNIQUE (conversation_id, participant_id)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                     TEXT PRIMARY KEY,
	source_path            TEXT NOT NULL,
	source_hash            TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'running',
	started_at             DATETIME NOT NULL,
	completed_at           DATETIME,
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
	ingested_at DATETIME NOT NULL,
	UNIQUE (message_id, run_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_linkedin_id);
CREATE INDEX IF NOT EXISTS idx_runs_source_hash ON ingestion_runs(source_hash);
CREATE INDEX IF NOT EXISTS idx_tracking_run_id ON message_ingestion_tracking(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.q().ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier lets the same methods run against the pool or an open transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Begin returns a Repository scoped to a new transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (Repository, error) {
	if s.tx != nil {
		return nil, eris.New("sqlite: already in transaction")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	return &SQLiteStore{db: s.db, tx: tx}, nil
}

func (s *SQLiteStore) Commit() error {
	if s.tx == nil {
		return eris.New("sqlite: not in transaction")
	}
	return eris.Wrap(s.tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) Rollback() error {
	if s.tx == nil {
		return eris.New("sqlite: not in transaction")
	}
	return eris.Wrap(s.tx.Rollback(), "sqlite: rollback")
}

// --- Participants ---

func (s *SQLiteStore) UpsertParticipant(ctx context.Context, p model.Participant) (*model.Participant, bool, error) {
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
		_, err := s.q().ExecContext(ctx,
			`INSERT INTO participants (id, linkedin_id, name, profile_url, email, headline, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.LinkedInID, p.Name, nullStr(p.ProfileURL), nullStr(p.Email), nullStr(p.Headline), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "sqlite: insert participant %s", p.LinkedInID)
		}
		return &p, true, nil
	}

	// Non-empty incoming fields win; updated_at moves only on real change.
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
	_, err = s.q().ExecContext(ctx,
		`UPDATE participants SET name = ?, profile_url = ?, email = ?, headline = ?, updated_at = ? WHERE linkedin_id = ?`,
		existing.Name, nullStr(existing.ProfileURL), nullStr(existing.Email), nullStr(existing.Headline), existing.UpdatedAt, existing.LinkedInID,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: update participant %s", p.LinkedInID)
	}
	return existing, false, nil
}

func (s *SQLiteStore) getParticipant(ctx context.Context, linkedinID string) (*model.Participant, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT id, linkedin_id, name, profile_url, email, headline, created_at, updated_at
		 FROM participants WHERE linkedin_id = ?`, linkedinID)

	var p model.Participant
	var profileURL, email, headline sql.NullString
	err := row.Scan(&p.ID, &p.LinkedInID, &p.Name, &profileURL, &email, &headline, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan participant")
	}
	p.ProfileURL = profileURL.String
	p.Email = email.String
	p.Headline = headline.String
	return &p, nil
}

// --- Conversations ---

func (s *SQLiteStore) UpsertConversation(ctx context.Context, c model.Conversation) (*model.Conversation, bool, error) {
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
		_, err := s.q().ExecContext(ctx,
			`INSERT INTO conversations (id, conversation_id, title, is_group_chat, first_message_at, last_message_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.ConversationID, nullStr(c.Title), c.IsGroupChat, nullTime(c.FirstMessageAt), nullTime(c.LastMessageAt), c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "sqlite: insert conversation %s", c.ConversationID)
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
	_, err = s.q().ExecContext(ctx,
		`UPDATE conversations SET title = ?, is_group_chat = ?, first_message_at = ?, last_message_at = ?, updated_at = ?
		 WHERE conversation_id = ?`,
		nullStr(existing.Title), existing.IsGroupChat, nullTime(existing.FirstMessageAt), nullTime(existing.LastMessageAt),
		existing.UpdatedAt, existing.ConversationID,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: update conversation %s", c.ConversationID)
	}
	return existing, false, nil
}

func (s *SQLiteStore) getConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT id, conversation_id, title, is_group_chat, first_message_at, last_message_at, created_at, updated_at
		 FROM conversations WHERE conversation_id = ?`, conversationID)

	var c model.Conversation
	var title sql.NullString
	var first, last sql.NullTime
	err := row.Scan(&c.ID, &c.ConversationID, &title, &c.IsGroupChat, &first, &last, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan conversation")
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

// UpsertMessage inserts or corrects a message and widens the owning
// conversation's first/last message bounds in the same unit of work.
func (s *SQLiteStore) UpsertMessage(ctx context.Context, m model.Message) (*model.Message, bool, error) {
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
		_, err := s.q().ExecContext(ctx,
			`INSERT INTO messages (id, message_id, conversation_id, sender_linkedin_id, content, sent_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.MessageID, m.ConversationID, m.SenderLinkedInID, nullStr(m.Content), m.SentAt, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return nil, false, eris.Wrapf(err, "sqlite: insert message %s", m.MessageID)
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
			_, err = s.q().ExecContext(ctx,
				`UPDATE messages SET content = ?, sender_linkedin_id = ?, sent_at = ?, updated_at = ? WHERE message_id = ?`,
				nullStr(existing.Content), existing.SenderLinkedInID, existing.SentAt, existing.UpdatedAt, existing.MessageID,
			)
			if err != nil {
				return nil, false, eris.Wrapf(err, "sqlite: update message %s", m.MessageID)
			}
		}
	}

	if err := s.widenConversation(ctx, existing.ConversationID, existing.SentAt); err != nil {
		return nil, false, err
	}
	return existing, inserted, nil
}

// widenConversation moves first_message_at down and last_message_at up to
// cover sentAt. Bounds never narrow.
func (s *SQLiteStore) widenConversation(ctx context.Context, conversationID string, sentAt time.Time) error {
	_, err := s.q().ExecContext(ctx,
		`UPDATE conversations SET
			first_message_at = CASE WHEN first_message_at IS NULL OR ? < first_message_at THEN ? ELSE first_message_at END,
			last_message_at  = CASE WHEN last_message_at  IS NULL OR ? > last_message_at  THEN ? ELSE last_message_at  END
		 WHERE conversation_id = ?`,
		sentAt, sentAt, sentAt, sentAt, conversationID,
	)
	return eris.Wrapf(err, "sqlite: widen conversation %s", conversationID)
}

func (s *SQLiteStore) getMessage(ctx context.Context, messageID string) (*model.Message, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT id, message_id, conversation_id, sender_linkedin_id, content, sent_at, created_at, updated_at
		 FROM messages WHERE message_id = ?`, messageID)
	return scanMessage(row)
}

// --- Junction ---

func (s *SQLiteStore) UpsertConversationParticipant(ctx context.Context, j model.ConversationParticipant) (bool, error) {
	res, err := s.q().ExecContext(ctx,
		`INSERT INTO conversation_participants (id, conversation_id, participant_id, joined_at, left_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (conversation_id, participant_id) DO NOTHING`,
		uuid.New().String(), j.ConversationID, j.ParticipantID, nullTime(j.JoinedAt), nullTime(j.LeftAt),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: upsert junction %s/%s", j.ConversationID, j.ParticipantID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// --- Ingestion runs ---

func (s *SQLiteStore) CreateIngestionRun(ctx context.Context, sourcePath, sourceHash string) (*model.IngestionRun, error) {
	run := &model.IngestionRun{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		SourceHash: sourceHash,
		Status:     model.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.q().ExecContext(ctx,
		`INSERT INTO ingestion_runs (id, source_path, source_hash, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.SourcePath, run.SourceHash, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ingestion run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateIngestionRun(ctx context.Context, runID string, status model.RunStatus, errText string, counters model.RunCounters) error {
	res, err := s.q().ExecContext(ctx,
		`UPDATE ingestion_runs SET
			status = ?, completed_at = ?, error = ?,
			participants_found = ?, participants_inserted = ?,
			conversations_found = ?, conversations_inserted = ?,
			messages_found = ?, messages_inserted = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), nullStr(errText),
		counters.ParticipantsFound, counters.ParticipantsInserted,
		counters.ConversationsFound, counters.ConversationsInserted,
		counters.MessagesFound, counters.MessagesInserted,
		runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update ingestion run %s", runID)
	}
	return checkRowsAffected(res, "ingestion run", runID)
}

func (s *SQLiteStore) GetIngestionRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.q().QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, eris.Errorf("sqlite: ingestion run not found: %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListIngestionRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q().QueryContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingestion runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list ingestion runs iterate")
}

func (s *SQLiteStore) ZipAlreadyIngested(ctx context.Context, sourceHash string) (bool, error) {
	var n int
	err := s.q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingestion_runs WHERE source_hash = ? AND status = ?`,
		sourceHash, string(model.RunStatusSuccess),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check ingested hash")
	}
	return n > 0, nil
}

func (s *SQLiteStore) TrackMessageIngestion(ctx context.Context, messageID, runID, rawHash string) (bool, error) {
	res, err := s.q().ExecContext(ctx,
		`INSERT INTO message_ingestion_tracking (id, message_id, run_id, raw_hash, ingested_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (message_id, run_id) DO NOTHING`,
		uuid.New().String(), messageID, runID, nullStr(rawHash), time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: track message %s", messageID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// --- Reconciliation support ---

func (s *SQLiteStore) MessagesForRun(ctx context.Context, runID string) ([]model.Message, error) {
	rows, err := s.q().QueryContext(ctx,
		`SELECT m.id, m.message_id, m.conversation_id, m.sender_linkedin_id, m.content, m.sent_at, m.created_at, m.updated_at
		 FROM messages m
		 JOIN message_ingestion_tracking t ON t.message_id = m.message_id
		 WHERE t.run_id = ?
		 ORDER BY m.sent_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: messages for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, eris.Wrap(rows.Err(), "sqlite: messages for run iterate")
}

func (s *SQLiteStore) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)
	for table, query := range map[string]string{
		model.TableParticipants:     `SELECT COUNT(*) FROM participants`,
		model.TableConversations:    `SELECT COUNT(*) FROM conversations`,
		model.TableMessages:         `SELECT COUNT(*) FROM messages`,
		"conversation_participants": `SELECT COUNT(*) FROM conversation_participants`,
	} {
		var n int
		if err := s.q().QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *SQLiteStore) Summary(ctx context.Context) (*model.StoreSummary, error) {
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

	// Select the column directly so the driver converts it to time.Time;
	// aggregate expressions lose the DATETIME declared type.
	var earliest, latest time.Time
	err = s.q().QueryRowContext(ctx, `SELECT sent_at FROM messages ORDER BY sent_at ASC LIMIT 1`).Scan(&earliest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, eris.Wrap(err, "sqlite: earliest message")
	default:
		err = s.q().QueryRowContext(ctx, `SELECT sent_at FROM messages ORDER BY sent_at DESC LIMIT 1`).Scan(&latest)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: latest message")
		}
		e, l := earliest.UTC(), latest.UTC()
		summary.EarliestMessage = &e
		summary.LatestMessage = &l
	}

	err = s.q().QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM ingestion_runs`,
		string(model.RunStatusSuccess),
	).Scan(&summary.TotalRuns, &summary.SuccessfulRuns)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run counts")
	}
	return summary, nil
}

// --- helpers ---

const selectRun = `SELECT id, source_path, source_hash, status, started_at, completed_at,
	participants_found, participants_inserted, conversations_found, conversations_inserted,
	messages_found, messages_inserted, error
	FROM ingestion_runs`

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.IngestionRun, error) {
	var run model.IngestionRun
	var completed sql.NullTime
	var errText sql.NullString
	err := row.Scan(
		&run.ID, &run.SourcePath, &run.SourceHash, &run.Status, &run.StartedAt, &completed,
		&run.Counters.ParticipantsFound, &run.Counters.ParticipantsInserted,
		&run.Counters.ConversationsFound, &run.Counters.ConversationsInserted,
		&run.Counters.MessagesFound, &run.Counters.MessagesInserted,
		&errText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan ingestion run")
	}
	if completed.Valid {
		t := completed.Time.UTC()
		run.CompletedAt = &t
	}
	run.Error = errText.String
	return &run, nil
}

func scanMessage(row scannable) (*model.Message, error) {
	var m model.Message
	var content sql.NullString
	err := row.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.SenderLinkedInID, &content, &m.SentAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan message")
	}
	m.Content = content.String
	m.SentAt = m.SentAt.UTC()
	return &m, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// mergeStr overwrites dst with src when src is non-empty and different.
func mergeStr(dst *string, src string) bool {
	if src != "" && src != *dst {
		*dst = src
		return true
	}
	return false
}

func widenFirst(dst **time.Time, src *time.Time) bool {
	if src == nil {
		return false
	}
	if *dst == nil || src.Before(**dst) {
		t := src.UTC()
		*dst = &t
		return true
	}
	return false
}

func widenLast(dst **time.Time, src *time.Time) bool {
	if src == nil {
		return false
	}
	if *dst == nil || src.After(**dst) {
		t := src.UTC()
		*dst = &t
		return true
	}
	return false
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
