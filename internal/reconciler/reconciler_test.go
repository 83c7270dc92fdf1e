package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func tablesWith(participants, messages int) *model.NormalizedTables {
	t := &model.NormalizedTables{}
	for i := 0; i < participants; i++ {
		t.Participants = append(t.Participants, model.Participant{LinkedInID: string(rune('a' + i))})
	}
	for i := 0; i < messages; i++ {
		t.Messages = append(t.Messages, model.Message{
			MessageID: string(rune('a' + i)), ConversationID: "c1", SenderLinkedInID: "a",
			SentAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return t
}

func findTable(t *testing.T, rep *Report, name string) TableReport {
	t.Helper()
	for _, tr := range rep.Tables {
		if tr.Table == name {
			return tr
		}
	}
	t.Fatalf("no table report for %s", name)
	return TableReport{}
}

func TestReconcile_PartialOnMessageShortfall(t *testing.T) {
	tables := tablesWith(5, 12)
	counters := model.RunCounters{ParticipantsInserted: 5, ConversationsInserted: 0, MessagesInserted: 10}

	rep := New().Reconcile(tables, counters)

	participants := findTable(t, rep, model.TableParticipants)
	assert.True(t, participants.Matched)
	assert.Equal(t, 0, participants.Difference)

	messages := findTable(t, rep, model.TableMessages)
	assert.False(t, messages.Matched)
	assert.Equal(t, -2, messages.Difference)
	assert.NotEmpty(t, messages.Issues)

	assert.Equal(t, StatusPartial, rep.Status)
	assert.False(t, rep.MessagesMatched)
}

func TestReconcile_AllMatchedIsSuccess(t *testing.T) {
	tables := tablesWith(2, 3)
	tables.Conversations = append(tables.Conversations, model.Conversation{ConversationID: "c1"})
	counters := model.RunCounters{ParticipantsInserted: 2, ConversationsInserted: 1, MessagesInserted: 3}

	rep := New().Reconcile(tables, counters)
	assert.Equal(t, StatusSuccess, rep.Status)
	assert.True(t, rep.MessagesMatched)
	for _, tr := range rep.Tables {
		assert.True(t, tr.Matched)
		assert.Empty(t, tr.Issues)
	}
}

func TestReconcile_NoneMatchedIsFailed(t *testing.T) {
	tables := tablesWith(5, 12)
	tables.Conversations = append(tables.Conversations, model.Conversation{ConversationID: "c1"})
	rep := New().Reconcile(tables, model.RunCounters{})
	assert.Equal(t, StatusFailed, rep.Status)
}

func TestReconcile_EmptyTablesMatch(t *testing.T) {
	rep := New().Reconcile(&model.NormalizedTables{}, model.RunCounters{})
	assert.Equal(t, StatusSuccess, rep.Status)
	for _, tr := range rep.Tables {
		assert.True(t, tr.Matched)
		assert.Empty(t, tr.Issues)
	}
}

func TestChecksum_OrderIndependent(t *testing.T) {
	a := []model.Participant{{LinkedInID: "p1", Name: "Alice"}, {LinkedInID: "p2", Name: "Bob"}}
	b := []model.Participant{{LinkedInID: "p2", Name: "Bob"}, {LinkedInID: "p1", Name: "Alice"}}
	assert.Equal(t, participantChecksum(a), participantChecksum(b))

	c := []model.Participant{{LinkedInID: "p1", Name: "Alicia"}, {LinkedInID: "p2", Name: "Bob"}}
	assert.NotEqual(t, participantChecksum(a), participantChecksum(c))
}

func TestFormat(t *testing.T) {
	rep := New().Reconcile(tablesWith(1, 2), model.RunCounters{ParticipantsInserted: 1, MessagesInserted: 1})
	out := rep.Format()
	assert.Contains(t, out, "Reconciliation: PARTIAL")
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "inserted 1 of 2 source records")
}
