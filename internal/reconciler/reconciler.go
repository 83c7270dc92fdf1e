// Package reconciler compares normalized source counts against what a run
// actually persisted and produces a per-table report with drift checksums.
package reconciler

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Status is the run-level reconciliation outcome.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// TableReport holds the source-vs-inserted comparison for one table.
type TableReport struct {
	Table         string   `json:"table"`
	SourceCount   int      `json:"source_count"`
	InsertedCount int      `json:"inserted_count"`
	Matched       bool     `json:"matched"`
	Difference    int      `json:"difference"`
	Issues        []string `json:"issues,omitempty"`
	Checksum      string   `json:"checksum"`
}

// Report aggregates per-table results into a run-level status.
//
// MessagesMatched is reported separately because messages are the primary
// payload: the orchestrator fails a run on a message mismatch even when the
// table-level aggregation only degrades to PARTIAL.
type Report struct {
	Status          Status        `json:"status"`
	Tables          []TableReport `json:"tables"`
	MessagesMatched bool          `json:"messages_matched"`
	CheckedAt       time.Time     `json:"checked_at"`
}

type Reconciler struct{}

func New() *Reconciler {
	return &Reconciler{}
}

// Reconcile builds the report from normalized tables and the run's inserted
// counters. Zero source records against zero inserted records is a match,
// not an issue.
func (r *Reconciler) Reconcile(tables *model.NormalizedTables, counters model.RunCounters) *Report {
	report := &Report{
		CheckedAt: time.Now().UTC(),
		Tables: []TableReport{
			compare(model.TableParticipants, len(tables.Participants), counters.ParticipantsInserted, participantChecksum(tables.Participants)),
			compare(model.TableConversations, len(tables.Conversations), counters.ConversationsInserted, conversationChecksum(tables.Conversations)),
			compare(model.TableMessages, len(tables.Messages), counters.MessagesInserted, messageChecksum(tables.Messages)),
		},
	}

	matched := 0
	for _, tr := range report.Tables {
		if tr.Matched {
			matched++
		}
		if tr.Table == model.TableMessages {
			report.MessagesMatched = tr.Matched
		}
	}

	switch matched {
	case len(report.Tables):
		report.Status = StatusSuccess
	case 0:
		report.Status = StatusFailed
	default:
		report.Status = StatusPartial
	}

	if report.Status != StatusSuccess {
		zap.L().Warn("reconciliation mismatch",
			zap.String("status", string(report.Status)),
			zap.Bool("messages_matched", report.MessagesMatched))
	}
	return report
}

func compare(table string, source, inserted int, checksum string) TableReport {
	tr := TableReport{
		Table:         table,
		SourceCount:   source,
		InsertedCount: inserted,
		Matched:       source == inserted,
		Difference:    inserted - source,
		Checksum:      checksum,
	}
	if !tr.Matched {
		tr.Issues = append(tr.Issues, fmt.Sprintf("inserted %d of %d source records", inserted, source))
	}
	return tr
}

// Format renders the report as a fixed-width text block for logs and email.
func (rep *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reconciliation: %s\n", rep.Status)
	for _, tr := range rep.Tables {
		mark := "OK"
		if !tr.Matched {
			mark = "MISMATCH"
		}
		fmt.Fprintf(&b, "  %-15s source=%-6d inserted=%-6d diff=%+d  %s\n",
			tr.Table, tr.SourceCount, tr.InsertedCount, tr.Difference, mark)
		for _, issue := range tr.Issues {
			fmt.Fprintf(&b, "    - %s\n", issue)
		}
	}
	return b.String()
}

// Checksums hash a stable serialization of each record, sorted so the result
// does not depend on record order. MD5 is used for drift detection only.

func participantChecksum(participants []model.Participant) string {
	rows := make([]string, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, strings.Join([]string{p.LinkedInID, p.Name, p.ProfileURL, p.Email, p.Headline}, "|"))
	}
	return checksumRows(rows)
}

func conversationChecksum(conversations []model.Conversation) string {
	rows := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids := append([]string(nil), c.ParticipantIDs...)
		sort.Strings(ids)
		rows = append(rows, strings.Join([]string{c.ConversationID, c.Title, fmt.Sprintf("%t", c.IsGroupChat), strings.Join(ids, ",")}, "|"))
	}
	return checksumRows(rows)
}

func messageChecksum(messages []model.Message) string {
	rows := make([]string, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, strings.Join([]string{m.MessageID, m.ConversationID, m.SenderLinkedInID, m.Content, m.SentAt.UTC().Format(time.RFC3339)}, "|"))
	}
	return checksumRows(rows)
}

func checksumRows(rows []string) string {
	sort.Strings(rows)
	sum := md5.Sum([]byte(strings.Join(rows, "\n"))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
