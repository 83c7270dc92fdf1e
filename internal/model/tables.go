package model

// Table names used throughout extraction, normalization, and reconciliation.
const (
	TableParticipants  = "participants"
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableConnections   = "connections"
	TableProfile       = "profile"
	TableReactions     = "reactions"
	TableInvitations   = "invitations"
	TableContacts      = "contacts"
	TableRegistration  = "registration"
)

// RawRecord is one flat key/value record extracted from an archive member.
type RawRecord map[string]string

// RawTables maps a table name to its extracted records.
type RawTables map[string][]RawRecord

// NormalizationStats counts what survived normalization and what was skipped.
type NormalizationStats struct {
	ParticipantsProcessed  int `json:"participants_processed"`
	ParticipantsSkipped    int `json:"participants_skipped"`
	ConversationsProcessed int `json:"conversations_processed"`
	ConversationsSkipped   int `json:"conversations_skipped"`
	MessagesProcessed      int `json:"messages_processed"`
	MessagesSkipped        int `json:"messages_skipped"`
	ConnectionsProcessed   int `json:"connections_processed"`
	ConnectionsSkipped     int `json:"connections_skipped"`
	ValidationErrors       int `json:"validation_errors"`
}

// NormalizedTables is the canonical output of normalization and the exact
// structure the repository persists and the packager re-exports.
type NormalizedTables struct {
	Participants  []Participant             `json:"participants"`
	Conversations []Conversation            `json:"conversations"`
	Messages      []Message                 `json:"messages"`
	Junctions     []ConversationParticipant `json:"junctions"`
	Connections   []Connection              `json:"connections"`

	// Extras holds tables that get generic cleaning only (profile, reactions,
	// invitations, contacts, registration) and ride along into the output
	// package without being persisted.
	Extras map[string][]RawRecord `json:"extras,omitempty"`

	Stats NormalizationStats `json:"stats"`
}

// Counts returns per-table record counts keyed by table name.
func (n *NormalizedTables) Counts() map[string]int {
	return map[string]int{
		TableParticipants:  len(n.Participants),
		TableConversations: len(n.Conversations),
		TableMessages:      len(n.Messages),
		TableConnections:   len(n.Connections),
	}
}
