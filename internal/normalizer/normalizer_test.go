package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func rawExport() model.RawTables {
	return model.RawTables{
		model.TableParticipants: {
			{"linkedin_id": "1", "name": "alice smith", "email": "Alice@Example.COM"},
			{"linkedin_id": "2", "name": "bob jones"},
		},
		model.TableConversations: {
			{"conversation_id": "c1", "participant_ids": "1,2"},
		},
		model.TableMessages: {
			{"message_id": "m1", "conversation_id": "c1", "sender_id": "1", "content": "hello", "sent_at": "2024-01-02 10:00:00"},
			{"message_id": "m2", "conversation_id": "c1", "sender_id": "2", "content": "hi", "sent_at": "2024-01-02 10:05:00"},
			{"message_id": "m3", "conversation_id": "c1", "sender_id": "1", "content": "bye", "sent_at": "2024-01-02 11:00:00"},
		},
	}
}

func TestNormalize_RoundTripCounts(t *testing.T) {
	out := New().Normalize(rawExport())

	assert.Len(t, out.Participants, 2)
	assert.Len(t, out.Conversations, 1)
	assert.Len(t, out.Messages, 3)
	assert.Len(t, out.Junctions, 2)

	assert.Equal(t, 2, out.Stats.ParticipantsProcessed)
	assert.Equal(t, 1, out.Stats.ConversationsProcessed)
	assert.Equal(t, 3, out.Stats.MessagesProcessed)
	assert.Zero(t, out.Stats.ValidationErrors)

	assert.Equal(t, "Alice Smith", out.Participants[0].Name)
	assert.Equal(t, "alice@example.com", out.Participants[0].Email)
	assert.False(t, out.Conversations[0].IsGroupChat)
}

func TestNormalize_GroupChatDerivation(t *testing.T) {
	raw := model.RawTables{
		model.TableConversations: {
			{"conversation_id": "two", "participant_ids": "1,2"},
			{"conversation_id": "three", "participant_ids": "1,2,3"},
			{"conversation_id": "dupes", "participant_ids": "1,1,2"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Conversations, 3)
	assert.False(t, out.Conversations[0].IsGroupChat)
	assert.True(t, out.Conversations[1].IsGroupChat)
	// Duplicate ids count once.
	assert.False(t, out.Conversations[2].IsGroupChat)
}

func TestNormalize_ParticipantIDsFromJSONList(t *testing.T) {
	// JSON member files carry participant lists as arrays; the flattened
	// value must parse to the same ids as a comma-joined string.
	raw := model.RawTables{
		model.TableConversations: {
			{"conversation_id": "strings", "participant_ids": `["1","2"]`},
			{"conversation_id": "numbers", "participant_ids": `[1, 2, 3]`},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Conversations, 2)
	assert.ElementsMatch(t, []string{"1", "2"}, out.Conversations[0].ParticipantIDs)
	assert.False(t, out.Conversations[0].IsGroupChat)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, out.Conversations[1].ParticipantIDs)
	assert.True(t, out.Conversations[1].IsGroupChat)
}

func TestNormalize_ReferentialSafety(t *testing.T) {
	raw := rawExport()
	raw[model.TableMessages] = append(raw[model.TableMessages],
		model.RawRecord{"message_id": "m4", "conversation_id": "ghost", "sender_id": "1", "sent_at": "2024-01-02 12:00:00"},
		model.RawRecord{"message_id": "m5", "conversation_id": "c1", "sender_id": "99", "sent_at": "2024-01-02 12:00:00"},
	)

	out := New().Normalize(raw)
	assert.Len(t, out.Messages, 3)
	assert.Equal(t, 2, out.Stats.MessagesSkipped)
	assert.Equal(t, 2, out.Stats.ValidationErrors)

	for _, m := range out.Messages {
		assert.Equal(t, "c1", m.ConversationID)
	}
}

func TestNormalize_RequiredFieldSkips(t *testing.T) {
	raw := model.RawTables{
		model.TableParticipants: {
			{"linkedin_id": "", "name": "No Id"},
			{"linkedin_id": "1"},
			{"linkedin_id": "2", "name": "Kept Person"},
		},
		model.TableMessages: {
			{"message_id": "m1", "conversation_id": "c1", "sender_id": "2", "sent_at": "not a date"},
		},
		model.TableConversations: {
			{"conversation_id": "c1", "participant_ids": "2"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Participants, 1)
	assert.Equal(t, "Kept Person", out.Participants[0].Name)
	assert.Equal(t, 2, out.Stats.ParticipantsSkipped)
	assert.Empty(t, out.Messages)
	assert.Equal(t, 1, out.Stats.MessagesSkipped)
}

func TestNormalize_ParticipantMerge(t *testing.T) {
	raw := model.RawTables{
		model.TableParticipants: {
			{"linkedin_id": "1", "name": "alice smith", "created_at": "2024-01-01", "headline": "Engineer"},
			{"linkedin_id": "1", "name": "alice smith", "created_at": "2024-03-01", "email": "alice@example.com"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Participants, 1)
	p := out.Participants[0]
	// Newest non-empty value wins per field, earliest created_at is kept.
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "Engineer", p.Headline)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.CreatedAt)
	assert.Equal(t, 2, out.Stats.ParticipantsProcessed)
}

func TestNormalize_ConversationMerge(t *testing.T) {
	raw := model.RawTables{
		model.TableConversations: {
			{"conversation_id": "c1", "participant_ids": "1,2"},
			{"conversation_id": "c1", "participant_ids": "2,3", "title": "merged thread"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Conversations, 1)
	c := out.Conversations[0]
	assert.ElementsMatch(t, []string{"1", "2", "3"}, c.ParticipantIDs)
	assert.True(t, c.IsGroupChat)
	assert.Equal(t, "merged thread", c.Title)
}

func TestNormalize_DuplicateMessageKeepsFirst(t *testing.T) {
	raw := rawExport()
	raw[model.TableMessages] = append(raw[model.TableMessages],
		model.RawRecord{"message_id": "m1", "conversation_id": "c1", "sender_id": "2", "content": "imposter", "sent_at": "2024-01-05 10:00:00"},
	)

	out := New().Normalize(raw)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "hello", out.Messages[0].Content)
	assert.Equal(t, "1", out.Messages[0].SenderLinkedInID)
}

func TestNormalize_TimestampBackfill(t *testing.T) {
	out := New().Normalize(rawExport())

	require.Len(t, out.Conversations, 1)
	c := out.Conversations[0]
	require.NotNil(t, c.FirstMessageAt)
	require.NotNil(t, c.LastMessageAt)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), *c.FirstMessageAt)
	assert.Equal(t, time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), *c.LastMessageAt)
}

func TestNormalize_JunctionDropsDangling(t *testing.T) {
	raw := model.RawTables{
		model.TableParticipants: {
			{"linkedin_id": "1", "name": "Only Survivor"},
		},
		model.TableConversations: {
			{"conversation_id": "c1", "participant_ids": "1,404"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Junctions, 1)
	assert.Equal(t, "c1", out.Junctions[0].ConversationID)
	assert.Equal(t, "1", out.Junctions[0].ParticipantID)
}

func TestNormalize_Connections(t *testing.T) {
	raw := model.RawTables{
		model.TableConnections: {
			{"first name": "jane", "last name": "doe", "email address": "Jane@Example.com", "company": "Acme  Inc", "connected on": "02 Jan 2024"},
			{"first name": "jane", "last name": "doe", "email address": "jane@example.com"},
			{"first name": "", "last name": ""},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Connections, 1)
	c := out.Connections[0]
	assert.Equal(t, "Jane Doe", c.Name)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, "Acme Inc", c.Company)
	require.NotNil(t, c.ConnectedOn)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *c.ConnectedOn)
	assert.Equal(t, 1, out.Stats.ConnectionsProcessed)
	assert.Equal(t, 2, out.Stats.ConnectionsSkipped)
}

func TestNormalize_EmptyInput(t *testing.T) {
	out := New().Normalize(model.RawTables{})
	assert.Empty(t, out.Participants)
	assert.Empty(t, out.Messages)
	assert.Zero(t, out.Stats.ValidationErrors)
}

func TestNormalize_ExtrasGenericCleaning(t *testing.T) {
	raw := model.RawTables{
		model.TableProfile: {
			{"headline": "Engineer\x00 at  Example", "summary": "line\n\n\n\nbreaks"},
		},
		model.TableReactions: {
			{"type": "LIKE"},
		},
	}
	out := New().Normalize(raw)

	require.Len(t, out.Extras[model.TableProfile], 1)
	profile := out.Extras[model.TableProfile][0]
	assert.Equal(t, "Engineer at Example", profile["headline"])
	assert.NotContains(t, profile["summary"], "\n\n\n")

	require.Len(t, out.Extras[model.TableReactions], 1)
	assert.NotContains(t, out.Extras, model.TableContacts)
}
