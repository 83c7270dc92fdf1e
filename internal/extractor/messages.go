package extractor

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// foldMessages derives participant, conversation, and message tables from
// the flat message log, in file order. Participants and conversations get
// increasing integer surrogate ids; a conversation is keyed by
// subject + ":" + the sorted participant names joined by ":". Conversations
// sharing subject and participant set are conflated by construction.
func foldMessages(rows []model.RawRecord) (participants, conversations, messages []model.RawRecord) {
	participantIDs := make(map[string]int)
	participantRecords := make(map[string]model.RawRecord)
	conversationIDs := make(map[string]int)
	conversationRecords := make(map[string]model.RawRecord)
	messageCounts := make(map[string]int)

	seeParticipant := func(name, email string) int {
		id, ok := participantIDs[name]
		if !ok {
			id = len(participantIDs) + 1
			participantIDs[name] = id
			participantRecords[name] = model.RawRecord{
				"linkedin_id": strconv.Itoa(id),
				"name":        name,
			}
			participants = append(participants, participantRecords[name])
		}
		if email != "" && participantRecords[name]["email"] == "" {
			participantRecords[name]["email"] = email
		}
		return id
	}

	for i, row := range rows {
		fromName, fromEmail := parseAddress(row["from"])
		if fromName == "" {
			continue
		}
		senderID := seeParticipant(fromName, fromEmail)

		names := []string{fromName}
		ids := []int{senderID}
		for _, recipient := range splitRecipients(row["to"]) {
			name, email := parseAddress(recipient)
			if name == "" || name == fromName {
				continue
			}
			ids = append(ids, seeParticipant(name, email))
			names = append(names, name)
		}

		subject := firstOf(row, "subject", "conversation title")
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		key := subject + ":" + strings.Join(sorted, ":")

		convID, ok := conversationIDs[key]
		if !ok {
			convID = len(conversationIDs) + 1
			conversationIDs[key] = convID

			idStrs := make([]string, len(ids))
			for j, id := range ids {
				idStrs[j] = strconv.Itoa(id)
			}
			title := subject
			if title == "" {
				title = "(No Subject)"
			}
			conversationRecords[key] = model.RawRecord{
				"conversation_id": strconv.Itoa(convID),
				"title":           title,
				"participant_ids": strings.Join(idStrs, ","),
			}
			conversations = append(conversations, conversationRecords[key])
		}
		messageCounts[key]++

		messages = append(messages, model.RawRecord{
			"message_id":      strconv.Itoa(i + 1),
			"conversation_id": strconv.Itoa(convID),
			"sender_id":       strconv.Itoa(senderID),
			"content":         row["content"],
			"sent_at":         firstOf(row, "date", "sent_at"),
		})
	}

	for key, record := range conversationRecords {
		record["message_count"] = strconv.Itoa(messageCounts[key])
	}
	return participants, conversations, messages
}

// parseAddress splits a "Display Name <email>" field into its parts. The
// bracketed annotation is optional.
func parseAddress(field string) (name, email string) {
	field = strings.TrimSpace(field)
	if open := strings.Index(field, "<"); open >= 0 {
		if end := strings.Index(field[open:], ">"); end > 0 {
			email = strings.TrimSpace(field[open+1 : open+end])
		}
		field = strings.TrimSpace(field[:open])
	}
	return field, email
}

// splitRecipients splits a "to" field on comma or semicolon.
func splitRecipients(field string) []string {
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstOf(record model.RawRecord, keys ...string) string {
	for _, k := range keys {
		if v := record[k]; v != "" {
			return v
		}
	}
	return ""
}
