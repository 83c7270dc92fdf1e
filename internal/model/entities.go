// Package model defines the entities shared across the ingestion pipeline.
package model

import "time"

// Participant is one person seen in the export. Identified by their
// LinkedIn ID; created on first sighting and enriched in place after that.
type Participant struct {
	ID         string    `json:"id"`
	LinkedInID string    `json:"linkedin_id"`
	Name       string    `json:"name"`
	ProfileURL string    `json:"profile_url,omitempty"`
	Email      string    `json:"email,omitempty"`
	Headline   string    `json:"headline,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Conversation is a message thread. First/last message timestamps only
// widen across upserts, never narrow.
type Conversation struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Title          string     `json:"title,omitempty"`
	IsGroupChat    bool       `json:"is_group_chat"`
	FirstMessageAt *time.Time `json:"first_message_at,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	// ParticipantIDs is carried through normalization to build the junction
	// table. It is not persisted on the conversation row itself.
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is a single message within a conversation.
type Message struct {
	ID               string    `json:"id"`
	MessageID        string    `json:"message_id"`
	ConversationID   string    `json:"conversation_id"`
	SenderLinkedInID string    `json:"sender_linkedin_id"`
	Content          string    `json:"content,omitempty"`
	SentAt           time.Time `json:"sent_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ConversationParticipant links a participant to a conversation. The
// (conversation, participant) pair is unique.
type ConversationParticipant struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	ParticipantID  string     `json:"participant_id"`
	JoinedAt       *time.Time `json:"joined_at,omitempty"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
}

// Connection is a first-degree connection record from the export.
type Connection struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Company     string     `json:"company,omitempty"`
	Position    string     `json:"position,omitempty"`
	Email       string     `json:"email,omitempty"`
	ConnectedOn *time.Time `json:"connected_on,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunStatus is the lifecycle state of an ingestion run row.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunCounters holds the found/inserted counts recorded on a finished run.
type RunCounters struct {
	ParticipantsFound     int `json:"participants_found"`
	ParticipantsInserted  int `json:"participants_inserted"`
	ConversationsFound    int `json:"conversations_found"`
	ConversationsInserted int `json:"conversations_inserted"`
	MessagesFound         int `json:"messages_found"`
	MessagesInserted      int `json:"messages_inserted"`
}

// IngestionRun is the audit row for one pipeline execution.
type IngestionRun struct {
	ID          string      `json:"id"`
	SourcePath  string      `json:"source_path"`
	SourceHash  string      `json:"source_hash"`
	Status      RunStatus   `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Counters    RunCounters `json:"counters"`
	Error       string      `json:"error,omitempty"`
}

// MessageIngestionTracking links a message to the run that inserted it.
type MessageIngestionTracking struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	RunID      string    `json:"run_id"`
	RawHash    string    `json:"raw_hash,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// StoreSummary is the aggregate snapshot used by health checks and the
// stats command.
type StoreSummary struct {
	Participants    int        `json:"participants"`
	Conversations   int        `json:"conversations"`
	Messages        int        `json:"messages"`
	Junctions       int        `json:"junctions"`
	EarliestMessage *time.Time `json:"earliest_message,omitempty"`
	LatestMessage   *time.Time `json:"latest_message,omitempty"`
	TotalRuns       int        `json:"total_runs"`
	SuccessfulRuns  int        `json:"successful_runs"`
}
