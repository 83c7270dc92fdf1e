package extractor

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func writeTestZip(t *testing.T, members map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range members {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

const messagesCSV = `CONVERSATION ID,FROM,TO,DATE,SUBJECT,CONTENT
c1,Alice Smith <alice@example.com>,Bob Jones <bob@example.com>,2024-01-02 10:00:00,,hello bob
c1,Bob Jones <bob@example.com>,Alice Smith <alice@example.com>,2024-01-02 10:05:00,,hi alice
c2,Alice Smith <alice@example.com>,"Bob Jones <bob@example.com>; Carol White <carol@example.com>",2024-01-03 09:00:00,planning,meeting at 3
`

func TestExtract_MissingArchive(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), "/nonexistent/export.zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestExtract_BadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notazip.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	e := New(nil)
	_, err := e.Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadFormat))
}

func TestExtract_NoData(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{
		"readme.txt": []byte("nothing useful"),
	})

	e := New(nil)
	_, err := e.Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestExtract_CaseInsensitiveNestedMember(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{
		"Export/Subdir/CONNECTIONS.CSV": []byte("First Name,Last Name,Email Address,Connected On\nJane,Doe,jane@example.com,02 Jan 2024\n"),
	})

	e := New(nil)
	tables, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables[model.TableConnections], 1)
	assert.Equal(t, "Jane", tables[model.TableConnections][0]["first name"])
}

func TestExtract_MessagesFold(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{
		"messages.csv": []byte(messagesCSV),
	})

	e := New(nil)
	tables, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	// Three distinct senders/recipients across both threads.
	require.Len(t, tables[model.TableParticipants], 3)
	assert.Equal(t, "1", tables[model.TableParticipants][0]["linkedin_id"])
	assert.Equal(t, "Alice Smith", tables[model.TableParticipants][0]["name"])
	assert.Equal(t, "alice@example.com", tables[model.TableParticipants][0]["email"])

	// Rows 1+2 share subject and participant set; row 3 opens a new thread.
	require.Len(t, tables[model.TableConversations], 2)
	first := tables[model.TableConversations][0]
	assert.Equal(t, "1", first["conversation_id"])
	assert.Equal(t, "(No Subject)", first["title"])
	assert.Equal(t, "2", first["message_count"])
	second := tables[model.TableConversations][1]
	assert.Equal(t, "planning", second["title"])
	assert.Equal(t, "1", second["message_count"])

	require.Len(t, tables[model.TableMessages], 3)
	msg := tables[model.TableMessages][0]
	assert.Equal(t, "1", msg["message_id"])
	assert.Equal(t, "1", msg["conversation_id"])
	assert.Equal(t, "1", msg["sender_id"])
	assert.Equal(t, "hello bob", msg["content"])
	assert.Equal(t, "2024-01-02 10:00:00", msg["sent_at"])
}

func TestExtract_MessagesFold_ConversationTitleAlias(t *testing.T) {
	csv := "CONVERSATION ID,FROM,TO,DATE,CONVERSATION TITLE,CONTENT\n" +
		"c1,Alice Smith <alice@example.com>,Bob Jones <bob@example.com>,2024-01-02 10:00:00,catch-up,hello\n"
	path := writeTestZip(t, map[string][]byte{
		"messages.csv": []byte(csv),
	})

	e := New(nil)
	tables, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables[model.TableConversations], 1)
	assert.Equal(t, "catch-up", tables[model.TableConversations][0]["title"])
}

func TestExtract_Latin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as standalone UTF-8.
	csv := append([]byte("First Name,Last Name\nRen"), 0xE9)
	csv = append(csv, []byte(",Martin\n")...)

	path := writeTestZip(t, map[string][]byte{
		"Connections.csv": csv,
	})

	e := New(nil)
	tables, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables[model.TableConnections], 1)
	assert.Equal(t, "René", tables[model.TableConnections][0]["first name"])
}

func TestMetadata(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{
		"Connections.csv": []byte("First Name\nJane\n"),
	})

	e := New(nil)
	meta, err := e.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, path, meta.Path)
	assert.Len(t, meta.SHA256, 64)
	assert.Equal(t, []string{"Connections.csv"}, meta.Members)
	assert.Positive(t, meta.Size)

	// Same content hashes the same.
	again, err := HashArchive(path)
	require.NoError(t, err)
	assert.Equal(t, meta.SHA256, again)
}

func TestParseJSON_Shapes(t *testing.T) {
	// Top-level array.
	records, err := parseJSON([]byte(`[{"Name":"A","Count":2},{"Name":"B"}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0]["name"])
	assert.Equal(t, "2", records[0]["count"])

	// Single object wraps into a one-element list.
	records, err = parseJSON([]byte(`{"Name":"solo"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "solo", records[0]["name"])

	// Object with exactly one array member picks that array.
	records, err = parseJSON([]byte(`{"elements":[{"Name":"X"}],"paging":{"total":1}}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "X", records[0]["name"])
}

func TestParseAddress(t *testing.T) {
	name, email := parseAddress("John Doe <john@example.com>")
	assert.Equal(t, "John Doe", name)
	assert.Equal(t, "john@example.com", email)

	name, email = parseAddress("Plain Name")
	assert.Equal(t, "Plain Name", name)
	assert.Empty(t, email)
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients("A <a@x.com>; B <b@x.com>, C")
	assert.Equal(t, []string{"A <a@x.com>", "B <b@x.com>", "C"}, got)
}

func TestLoadMapping_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("messages: Inbox.csv\nextra: Extra.csv\n"), 0o644))

	mapping, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, "Inbox.csv", mapping[model.TableMessages])
	assert.Equal(t, "Extra.csv", mapping["extra"])
	assert.Equal(t, "Connections.csv", mapping[model.TableConnections])
}
