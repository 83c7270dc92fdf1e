package packager

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func sampleTables() *model.NormalizedTables {
	sentAt := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return &model.NormalizedTables{
		Participants: []model.Participant{
			{LinkedInID: "p1", Name: "Alice", Email: "alice@example.com"},
			{LinkedInID: "p2", Name: "Bob"},
		},
		Conversations: []model.Conversation{
			{ConversationID: "c1", Title: "Catch up", FirstMessageAt: &sentAt, LastMessageAt: &sentAt},
		},
		Messages: []model.Message{
			{MessageID: "m1", ConversationID: "c1", SenderLinkedInID: "p1", Content: "hi, Bob", SentAt: sentAt},
		},
		Junctions: []model.ConversationParticipant{
			{ConversationID: "c1", ParticipantID: "p1"},
			{ConversationID: "c1", ParticipantID: "p2"},
		},
		Extras: map[string][]model.RawRecord{
			model.TableProfile: {{"first name": "Alice", "headline": "Engineer"}},
		},
	}
}

func TestBuildAndValidateRoundTrip(t *testing.T) {
	path, err := New().Build(sampleTables(), "run-1", t.TempDir())
	require.NoError(t, err)

	manifest, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, 2, manifest.Tables[model.TableParticipants].Count)
	assert.Equal(t, 1, manifest.Tables[model.TableMessages].Count)
	assert.Equal(t, 1, manifest.Tables[model.TableProfile].Count)

	require.NoError(t, ValidatePackage(path))
}

func TestBuildMembers(t *testing.T) {
	path, err := New().Build(sampleTables(), "run-1", t.TempDir())
	require.NoError(t, err)

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	names := make(map[string]bool, len(r.File))
	for _, member := range r.File {
		names[member.Name] = true
	}
	for _, want := range []string{
		"participants.csv", "participants.json",
		"conversations.csv", "conversations.json",
		"messages.csv", "messages.json",
		"conversation_participants.csv",
		"profile.csv", "profile.json",
		"tables.xlsx", "manifest.json",
	} {
		assert.True(t, names[want], "missing member %s", want)
	}
}

func TestReadManifest_MissingManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nothing here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadManifest(path)
	assert.Error(t, err)
}

func TestManifestJunctionCount(t *testing.T) {
	tables := sampleTables()
	path, err := New().Build(tables, "run-1", t.TempDir())
	require.NoError(t, err)

	manifest, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, len(tables.Junctions), manifest.Tables["conversation_participants"].Count)
}
