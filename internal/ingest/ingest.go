// Package ingest sequences the pipeline stages of one ingestion run:
// locate the source archive, detect duplicates, extract, normalize, persist,
// reconcile, package, archive, and notify.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/extractor"
	"github.com/sells-group/linkedin-ingestor/internal/model"
	"github.com/sells-group/linkedin-ingestor/internal/normalizer"
	"github.com/sells-group/linkedin-ingestor/internal/notifier"
	"github.com/sells-group/linkedin-ingestor/internal/packager"
	"github.com/sells-group/linkedin-ingestor/internal/reconciler"
	"github.com/sells-group/linkedin-ingestor/internal/storage"
	"github.com/sells-group/linkedin-ingestor/internal/store"
)

// Stage names one step of the run state machine.
type Stage string

const (
	StageLocatingSource   Stage = "locating_source"
	StageCheckingDup      Stage = "checking_duplicate"
	StageInitializingRun  Stage = "initializing_run"
	StageParsing          Stage = "parsing"
	StageNormalizing      Stage = "normalizing"
	StageInsertingDB      Stage = "inserting_db"
	StageReconciling      Stage = "reconciling"
	StageFinalizingRun    Stage = "finalizing_run"
	StagePackaging        Stage = "packaging"
	StageArchiving        Stage = "archiving"
	StageEmailing         Stage = "emailing"
	StageCompleted        Stage = "completed"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeSkipped Outcome = "SKIPPED"
)

// ErrRunInProgress rejects a second concurrent invocation.
var ErrRunInProgress = eris.New("ingest: a run is already in progress")

// RunStats nests the counts gathered across stages.
type RunStats struct {
	RawCounts        map[string]int     `json:"raw_counts,omitempty"`
	NormalizedCounts map[string]int     `json:"normalized_counts,omitempty"`
	Counters         model.RunCounters  `json:"counters"`
	Reconciliation   *reconciler.Report `json:"reconciliation,omitempty"`
}

// RunStatus is the full observable record of one run.
type RunStatus struct {
	RunID       string    `json:"run_id,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	Stage       Stage     `json:"stage"`
	SourcePath  string    `json:"source_path,omitempty"`
	SourceHash  string    `json:"source_hash,omitempty"`
	PackagePath string    `json:"package_path,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Stats       RunStats  `json:"stats"`
}

// Job wires the pipeline components and enforces the single-flight guarantee.
type Job struct {
	repo       store.Repository
	extractor  *extractor.Extractor
	normalizer *normalizer.Normalizer
	reconciler *reconciler.Reconciler
	storage    *storage.Manager
	packager   *packager.Packager
	notifier   notifier.Notifier

	mu      sync.Mutex
	running bool
	last    *RunStatus
}

// NewJob builds a Job from its collaborators. notifier may be nil.
func NewJob(
	repo store.Repository,
	ext *extractor.Extractor,
	norm *normalizer.Normalizer,
	rec *reconciler.Reconciler,
	dirs *storage.Manager,
	pack *packager.Packager,
	notify notifier.Notifier,
) *Job {
	if notify == nil {
		notify = notifier.NewMulti()
	}
	return &Job{
		repo:       repo,
		extractor:  ext,
		normalizer: norm,
		reconciler: rec,
		storage:    dirs,
		packager:   pack,
		notifier:   notify,
	}
}

// IsRunning reports whether a run is currently in flight.
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// LastRunStatus returns the most recently completed run, or nil when no run
// has completed yet. An in-flight run is observable only through IsRunning;
// its status record is still being written.
func (j *Job) LastRunStatus() *RunStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	copied := *j.last
	return &copied
}

// Run executes one full ingestion. zipPath may be empty, in which case the
// newest archive in the incoming directory is used. A second call while one
// run is active returns ErrRunInProgress.
func (j *Job) Run(ctx context.Context, zipPath string) (*RunStatus, error) {
	status := &RunStatus{
		Stage:     StageLocatingSource,
		StartedAt: time.Now().UTC(),
	}

	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil, ErrRunInProgress
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		status.CompletedAt = time.Now().UTC()
		j.mu.Lock()
		j.running = false
		j.last = status
		j.mu.Unlock()
	}()

	j.execute(ctx, status, zipPath)

	zap.L().Info("ingest: run finished",
		zap.String("run_id", status.RunID),
		zap.String("outcome", string(status.Outcome)),
		zap.String("stage", string(status.Stage)),
		zap.Duration("elapsed", status.CompletedAt.Sub(status.StartedAt)),
	)
	return status, nil
}

func (j *Job) execute(ctx context.Context, status *RunStatus, zipPath string) {
	// locating_source
	if zipPath == "" {
		latest, err := j.storage.LatestArchive()
		if err != nil {
			j.fail(ctx, status, err)
			return
		}
		if latest == "" {
			j.fail(ctx, status, eris.Wrap(extractor.ErrSourceNotFound, "ingest: no archive in incoming directory"))
			return
		}
		zipPath = latest
	}
	status.SourcePath = zipPath

	// checking_duplicate
	j.advance(status, StageCheckingDup)
	hash, err := extractor.HashArchive(zipPath)
	if err != nil {
		j.fail(ctx, status, err)
		return
	}
	status.SourceHash = hash

	ingested, err := j.repo.ZipAlreadyIngested(ctx, hash)
	if err != nil {
		j.fail(ctx, status, err)
		return
	}
	if ingested {
		status.Outcome = OutcomeSkipped
		zap.L().Info("ingest: duplicate archive, skipping",
			zap.String("source", zipPath),
			zap.String("hash", hash),
		)
		j.notify(ctx, status, notifier.KindSkipped)
		return
	}

	// initializing_run. The run row commits immediately and is never rolled
	// back; failures mark it failed instead.
	j.advance(status, StageInitializingRun)
	run, err := j.repo.CreateIngestionRun(ctx, zipPath, hash)
	if err != nil {
		j.fail(ctx, status, err)
		return
	}
	status.RunID = run.ID

	// parsing
	j.advance(status, StageParsing)
	raw, err := j.extractor.Extract(ctx, zipPath)
	if err != nil {
		j.fail(ctx, status, err)
		return
	}
	status.Stats.RawCounts = rawCounts(raw)

	// normalizing
	j.advance(status, StageNormalizing)
	normalized := j.normalizer.Normalize(raw)
	status.Stats.NormalizedCounts = normalized.Counts()

	// inserting_db
	j.advance(status, StageInsertingDB)
	counters, err := j.insert(ctx, run.ID, normalized)
	if err != nil {
		j.fail(ctx, status, err)
		return
	}
	status.Stats.Counters = counters

	// reconciling
	j.advance(status, StageReconciling)
	report := j.reconciler.Reconcile(normalized, counters)
	status.Stats.Reconciliation = report

	// finalizing_run. Messages are the primary payload: a message-count
	// mismatch fails the run even though the data that did insert stays.
	j.advance(status, StageFinalizingRun)
	runStatus := model.RunStatusSuccess
	errText := ""
	if !report.MessagesMatched {
		runStatus = model.RunStatusFailed
		errText = "reconciliation: message counts mismatched"
	}
	if err := j.repo.UpdateIngestionRun(ctx, run.ID, runStatus, errText, counters); err != nil {
		j.fail(ctx, status, err)
		return
	}
	if runStatus == model.RunStatusFailed {
		status.Outcome = OutcomeFailed
		status.Error = errText
		j.notify(ctx, status, notifier.KindFailure)
		return
	}

	// packaging and archiving come after the database is finalized; their
	// failures degrade the run output but do not undo committed data.
	j.advance(status, StagePackaging)
	built, err := j.packager.Build(normalized, run.ID, j.storage.OutputDir())
	if err != nil {
		zap.L().Error("ingest: packaging failed", zap.String("run_id", run.ID), zap.Error(err))
	} else if placed, err := j.storage.PlaceOutput(built, run.ID); err != nil {
		zap.L().Error("ingest: placing output failed", zap.String("run_id", run.ID), zap.Error(err))
	} else {
		status.PackagePath = placed
	}

	j.advance(status, StageArchiving)
	if _, err := j.storage.Archive(zipPath); err != nil {
		zap.L().Error("ingest: archiving source failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	j.advance(status, StageEmailing)
	status.Outcome = OutcomeSuccess
	j.notify(ctx, status, notifier.KindSuccess)

	j.advance(status, StageCompleted)
}

// insert persists the normalized tables inside one transaction and returns
// the found/inserted counters. The transaction rolls back wholesale on error.
func (j *Job) insert(ctx context.Context, runID string, tables *model.NormalizedTables) (model.RunCounters, error) {
	counters := model.RunCounters{
		ParticipantsFound:  len(tables.Participants),
		ConversationsFound: len(tables.Conversations),
		MessagesFound:      len(tables.Messages),
	}

	tx, err := j.repo.Begin(ctx)
	if err != nil {
		return counters, err
	}

	err = func() error {
		for _, p := range tables.Participants {
			if _, inserted, err := tx.UpsertParticipant(ctx, p); err != nil {
				return err
			} else if inserted {
				counters.ParticipantsInserted++
			}
		}
		for _, c := range tables.Conversations {
			if _, inserted, err := tx.UpsertConversation(ctx, c); err != nil {
				return err
			} else if inserted {
				counters.ConversationsInserted++
			}
		}
		for _, junction := range tables.Junctions {
			if _, err := tx.UpsertConversationParticipant(ctx, junction); err != nil {
				return err
			}
		}
		for _, m := range tables.Messages {
			_, inserted, err := tx.UpsertMessage(ctx, m)
			if err != nil {
				return err
			}
			if inserted {
				counters.MessagesInserted++
			}
			if _, err := tx.TrackMessageIngestion(ctx, m.MessageID, runID, contentHash(m)); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.L().Error("ingest: rollback failed", zap.Error(rbErr))
		}
		return counters, err
	}
	if err := tx.Commit(); err != nil {
		return counters, err
	}
	return counters, nil
}

// fail marks the run row failed when one exists, records the error on the
// status, and fires a best-effort failure notification.
func (j *Job) fail(ctx context.Context, status *RunStatus, err error) {
	status.Outcome = OutcomeFailed
	status.Error = err.Error()

	zap.L().Error("ingest: run failed",
		zap.String("run_id", status.RunID),
		zap.String("stage", string(status.Stage)),
		zap.Error(err),
	)

	if status.RunID != "" {
		if updErr := j.repo.UpdateIngestionRun(ctx, status.RunID, model.RunStatusFailed, status.Error, status.Stats.Counters); updErr != nil {
			zap.L().Error("ingest: marking run failed", zap.String("run_id", status.RunID), zap.Error(updErr))
		}
	}
	j.notify(ctx, status, notifier.KindFailure)
}

// notify is best-effort: delivery problems are logged, never propagated.
func (j *Job) notify(ctx context.Context, status *RunStatus, kind string) {
	event := notifier.Event{
		Kind:        kind,
		RunID:       status.RunID,
		SourcePath:  status.SourcePath,
		Error:       status.Error,
		Counters:    status.Stats.Counters,
		PackagePath: status.PackagePath,
		Timestamp:   time.Now().UTC(),
	}
	switch kind {
	case notifier.KindSuccess:
		event.Status = model.RunStatusSuccess
	case notifier.KindFailure:
		event.Status = model.RunStatusFailed
	default:
		event.Status = model.RunStatusRunning
	}
	if status.Stats.Reconciliation != nil {
		event.ReportText = status.Stats.Reconciliation.Format()
	}
	if err := j.notifier.Notify(ctx, event); err != nil {
		zap.L().Error("ingest: notification failed", zap.String("run_id", status.RunID), zap.Error(err))
	}
}

func (j *Job) advance(status *RunStatus, stage Stage) {
	status.Stage = stage
	zap.L().Debug("ingest: stage", zap.String("stage", string(stage)), zap.String("run_id", status.RunID))
}

func rawCounts(raw model.RawTables) map[string]int {
	counts := make(map[string]int, len(raw))
	for table, records := range raw {
		counts[table] = len(records)
	}
	return counts
}

// contentHash fingerprints a message's content at ingestion time for
// provenance queries.
func contentHash(m model.Message) string {
	sum := sha256.Sum256([]byte(m.MessageID + "|" + m.Content))
	return hex.EncodeToString(sum[:])
}
