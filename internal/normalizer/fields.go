package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Accepted synonym keys per logical field, tried in order. Raw record keys
// are lower-cased by the extractor.
var (
	participantIDKeys      = []string{"linkedin_id", "participant_id", "id"}
	participantNameKeys    = []string{"full_name", "name", "display_name"}
	participantURLKeys     = []string{"profile_url", "url"}
	participantEmailKeys   = []string{"email", "email_address", "email address"}
	participantHeadKeys    = []string{"headline", "position", "title"}
	participantSeenKeys    = []string{"first_seen", "created_at"}
	conversationIDKeys     = []string{"conversation_id", "id"}
	conversationTitleKeys  = []string{"conversation_title", "subject", "title"}
	conversationMemberKeys = []string{"participant_linkedin_ids", "participant_ids", "participants"}
	conversationDateKeys   = []string{"created_at", "first_message_at", "date", "start_date"}
	messageIDKeys          = []string{"message_id", "id"}
	messageConvKeys        = []string{"conversation_id", "thread_id"}
	messageSenderKeys      = []string{"sender_linkedin_id", "sender_id", "from_id"}
	messageContentKeys     = []string{"content", "message", "body", "text"}
	messageSentKeys        = []string{"sent_at", "date"}
	connFirstNameKeys      = []string{"first name", "first_name", "firstname"}
	connLastNameKeys       = []string{"last name", "last_name", "lastname"}
	connEmailKeys          = []string{"email address", "email"}
	connCompanyKeys        = []string{"company", "organization"}
	connPositionKeys       = []string{"position", "title"}
	connDateKeys           = []string{"connected on", "connected_on", "connection_date"}
)

// getField returns the first non-empty value among the candidate keys.
func getField(record model.RawRecord, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(record[k]); v != "" {
			return v
		}
	}
	return ""
}

// splitIDs splits an id list and drops empties. The value is either a
// comma-joined string or a JSON array, which is how a native list arrives
// from a JSON member file.
func splitIDs(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var list []any
		if err := json.Unmarshal([]byte(value), &list); err == nil {
			var out []string
			for _, item := range list {
				var s string
				switch t := item.(type) {
				case string:
					s = strings.TrimSpace(t)
				case float64:
					s = strconv.FormatFloat(t, 'f', -1, 64)
				}
				if s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
