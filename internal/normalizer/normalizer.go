// Package normalizer turns raw extracted tables into canonical entities.
// It is pure with respect to storage: bad records are skipped and counted,
// never fatal.
package normalizer

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Normalizer cleans, validates, deduplicates, and cross-references raw
// records.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize produces the canonical table set from raw extracted data.
// Messages referencing unknown conversations or senders are dropped, and
// conversation first/last timestamps are recomputed from the surviving
// messages.
func (n *Normalizer) Normalize(raw model.RawTables) *model.NormalizedTables {
	out := &model.NormalizedTables{}
	stats := &out.Stats

	out.Participants = normalizeParticipants(raw[model.TableParticipants], stats)
	out.Conversations = normalizeConversations(raw[model.TableConversations], stats)

	participantIDs := make(map[string]bool, len(out.Participants))
	for _, p := range out.Participants {
		participantIDs[p.LinkedInID] = true
	}
	conversationIDs := make(map[string]bool, len(out.Conversations))
	for _, c := range out.Conversations {
		conversationIDs[c.ConversationID] = true
	}

	out.Messages = normalizeMessages(raw[model.TableMessages], conversationIDs, participantIDs, stats)
	backfillConversationTimestamps(out.Conversations, out.Messages)
	out.Junctions = buildJunctions(out.Conversations, participantIDs)
	out.Connections = normalizeConnections(raw[model.TableConnections], stats)
	out.Extras = normalizeExtras(raw)

	zap.L().Info("normalizer: done",
		zap.Int("participants", len(out.Participants)),
		zap.Int("conversations", len(out.Conversations)),
		zap.Int("messages", len(out.Messages)),
		zap.Int("junctions", len(out.Junctions)),
		zap.Int("connections", len(out.Connections)),
		zap.Int("validation_errors", stats.ValidationErrors),
	)
	return out
}

func normalizeParticipants(records []model.RawRecord, stats *model.NormalizationStats) []model.Participant {
	byID := make(map[string]int)
	var out []model.Participant
	now := time.Now().UTC()

	skip := func(reason string, record model.RawRecord) {
		zap.L().Warn("normalizer: skipping participant", zap.String("reason", reason), zap.Any("record", record))
		stats.ValidationErrors++
		stats.ParticipantsSkipped++
	}

	for _, record := range records {
		id := getField(record, participantIDKeys)
		if id == "" {
			skip("missing id", record)
			continue
		}
		name := CleanName(getField(record, participantNameKeys))
		if name == "" {
			skip("missing name", record)
			continue
		}

		p := model.Participant{
			LinkedInID: id,
			Name:       name,
			ProfileURL: CleanURL(getField(record, participantURLKeys)),
			Email:      CleanEmail(getField(record, participantEmailKeys)),
			Headline:   CleanText(getField(record, participantHeadKeys)),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if seen, ok := ParseTimestamp(getField(record, participantSeenKeys)); ok {
			p.CreatedAt = seen
		}

		// Merge duplicates: newest non-empty value wins per field, the
		// earliest created_at is kept.
		if idx, ok := byID[id]; ok {
			existing := &out[idx]
			existing.Name = firstNonEmpty(p.Name, existing.Name)
			existing.ProfileURL = firstNonEmpty(p.ProfileURL, existing.ProfileURL)
			existing.Email = firstNonEmpty(p.Email, existing.Email)
			existing.Headline = firstNonEmpty(p.Headline, existing.Headline)
			if p.CreatedAt.Before(existing.CreatedAt) {
				existing.CreatedAt = p.CreatedAt
			}
			stats.ParticipantsProcessed++
			continue
		}

		byID[id] = len(out)
		out = append(out, p)
		stats.ParticipantsProcessed++
	}
	return out
}

func normalizeConversations(records []model.RawRecord, stats *model.NormalizationStats) []model.Conversation {
	byID := make(map[string]int)
	var out []model.Conversation
	now := time.Now().UTC()

	skip := func(reason, id string) {
		zap.L().Warn("normalizer: skipping conversation", zap.String("reason", reason), zap.String("conversation_id", id))
		stats.ValidationErrors++
		stats.ConversationsSkipped++
	}

	for _, record := range records {
		id := getField(record, conversationIDKeys)
		if id == "" {
			skip("missing id", "")
			continue
		}

		participants := uniqueStrings(splitIDs(getField(record, conversationMemberKeys)))
		if len(participants) == 0 {
			skip("no participants", id)
			continue
		}

		c := model.Conversation{
			ConversationID: id,
			Title:          CleanText(getField(record, conversationTitleKeys)),
			IsGroupChat:    len(participants) > 2,
			ParticipantIDs: participants,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if created, ok := ParseTimestamp(getField(record, conversationDateKeys)); ok {
			c.CreatedAt = created
			c.FirstMessageAt = &created
		}
		if last, ok := ParseTimestamp(record["last_message_at"]); ok {
			c.LastMessageAt = &last
		}

		// Merge duplicates: union the participant sets, recompute the group
		// flag, prefer a non-empty title, keep the original created_at.
		if idx, ok := byID[id]; ok {
			existing := &out[idx]
			existing.ParticipantIDs = uniqueStrings(append(existing.ParticipantIDs, participants...))
			existing.IsGroupChat = len(existing.ParticipantIDs) > 2
			existing.Title = firstNonEmpty(c.Title, existing.Title)
			stats.ConversationsProcessed++
			continue
		}

		byID[id] = len(out)
		out = append(out, c)
		stats.ConversationsProcessed++
	}
	return out
}

func normalizeMessages(records []model.RawRecord, conversationIDs, participantIDs map[string]bool, stats *model.NormalizationStats) []model.Message {
	seen := make(map[string]bool)
	var out []model.Message
	now := time.Now().UTC()

	skip := func(reason, id string) {
		zap.L().Warn("normalizer: skipping message", zap.String("reason", reason), zap.String("message_id", id))
		stats.ValidationErrors++
		stats.MessagesSkipped++
	}

	for _, record := range records {
		id := getField(record, messageIDKeys)
		if id == "" {
			skip("missing id", "")
			continue
		}
		convID := getField(record, messageConvKeys)
		if convID == "" {
			skip("missing conversation_id", id)
			continue
		}
		if !conversationIDs[convID] {
			skip("unknown conversation", id)
			continue
		}
		senderID := getField(record, messageSenderKeys)
		if senderID == "" {
			skip("missing sender", id)
			continue
		}
		if !participantIDs[senderID] {
			skip("unknown sender", id)
			continue
		}
		sentAt, ok := ParseTimestamp(getField(record, messageSentKeys))
		if !ok {
			skip("unparseable sent_at", id)
			continue
		}

		// Duplicate ids keep the first occurrence.
		if seen[id] {
			zap.L().Debug("normalizer: duplicate message", zap.String("message_id", id))
			continue
		}
		seen[id] = true

		out = append(out, model.Message{
			MessageID:        id,
			ConversationID:   convID,
			SenderLinkedInID: senderID,
			Content:          CleanContent(getField(record, messageContentKeys)),
			SentAt:           sentAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		stats.MessagesProcessed++
	}
	return out
}

func normalizeConnections(records []model.RawRecord, stats *model.NormalizationStats) []model.Connection {
	seen := make(map[string]bool)
	var out []model.Connection
	now := time.Now().UTC()

	for i, record := range records {
		first := getField(record, connFirstNameKeys)
		last := getField(record, connLastNameKeys)
		name := CleanName(CleanString(first + " " + last))
		if name == "" {
			stats.ConnectionsSkipped++
			stats.ValidationErrors++
			continue
		}
		email := CleanEmail(getField(record, connEmailKeys))

		key := name + ":" + email
		if seen[key] {
			stats.ConnectionsSkipped++
			continue
		}
		seen[key] = true

		c := model.Connection{
			ID:        strconv.Itoa(i + 1),
			Name:      name,
			Company:   CleanString(getField(record, connCompanyKeys)),
			Position:  CleanString(getField(record, connPositionKeys)),
			Email:     email,
			CreatedAt: now,
		}
		if on, ok := ParseTimestamp(getField(record, connDateKeys)); ok {
			c.ConnectedOn = &on
		}
		out = append(out, c)
		stats.ConnectionsProcessed++
	}
	return out
}

// normalizeExtras applies generic cleaning to the tables that are packaged
// but not persisted: profile, reactions, invitations, contacts, registration.
func normalizeExtras(raw model.RawTables) map[string][]model.RawRecord {
	extras := make(map[string][]model.RawRecord)
	for _, table := range []string{
		model.TableProfile,
		model.TableReactions,
		model.TableInvitations,
		model.TableContacts,
		model.TableRegistration,
	} {
		records := raw[table]
		if len(records) == 0 {
			continue
		}
		cleaned := make([]model.RawRecord, 0, len(records))
		for _, record := range records {
			out := make(model.RawRecord, len(record))
			for k, v := range record {
				out[k] = CleanText(v)
			}
			cleaned = append(cleaned, out)
		}
		extras[table] = cleaned
	}
	return extras
}

// buildJunctions emits one row per (conversation, participant) pair whose
// participant survived normalization. Dangling references are dropped.
func buildJunctions(conversations []model.Conversation, participantIDs map[string]bool) []model.ConversationParticipant {
	var out []model.ConversationParticipant
	for _, c := range conversations {
		for _, pid := range c.ParticipantIDs {
			if !participantIDs[pid] {
				zap.L().Warn("normalizer: dropping dangling junction",
					zap.String("conversation_id", c.ConversationID),
					zap.String("participant_id", pid),
				)
				continue
			}
			out = append(out, model.ConversationParticipant{
				ConversationID: c.ConversationID,
				ParticipantID:  pid,
				JoinedAt:       c.FirstMessageAt,
			})
		}
	}
	return out
}

// backfillConversationTimestamps recomputes first/last message bounds from
// the surviving messages, overwriting anything extracted from source.
func backfillConversationTimestamps(conversations []model.Conversation, messages []model.Message) {
	firsts := make(map[string]time.Time)
	lasts := make(map[string]time.Time)
	for _, m := range messages {
		if t, ok := firsts[m.ConversationID]; !ok || m.SentAt.Before(t) {
			firsts[m.ConversationID] = m.SentAt
		}
		if t, ok := lasts[m.ConversationID]; !ok || m.SentAt.After(t) {
			lasts[m.ConversationID] = m.SentAt
		}
	}
	for i := range conversations {
		if first, ok := firsts[conversations[i].ConversationID]; ok {
			last := lasts[conversations[i].ConversationID]
			conversations[i].FirstMessageAt = &first
			conversations[i].LastMessageAt = &last
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
