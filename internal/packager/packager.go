// Package packager renders normalized tables into a distributable ZIP:
// per-table CSV and JSON, a combined XLSX workbook, and a manifest.
package packager

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

const manifestName = "manifest.json"

// TableInfo describes one table inside the package.
type TableInfo struct {
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
}

// Manifest is the package-level metadata written as manifest.json.
type Manifest struct {
	PackageVersion string                   `json:"package_version"`
	RunID          string                   `json:"run_id"`
	CreatedAt      time.Time                `json:"created_at"`
	Tables         map[string]TableInfo     `json:"tables"`
	Stats          model.NormalizationStats `json:"stats"`
}

// table is an in-memory tabular rendering shared by the CSV, JSON, and XLSX
// writers.
type table struct {
	name    string
	headers []string
	rows    [][]string
}

type Packager struct{}

func New() *Packager {
	return &Packager{}
}

// Build writes the package ZIP into dir and returns its path.
func (p *Packager) Build(tables *model.NormalizedTables, runID, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "packager: create dir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("package_%s.zip", runID))

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "packager: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	zw := zip.NewWriter(f)
	rendered := render(tables)

	manifest := Manifest{
		PackageVersion: "1.0",
		RunID:          runID,
		CreatedAt:      time.Now().UTC(),
		Tables:         make(map[string]TableInfo, len(rendered)),
		Stats:          tables.Stats,
	}

	for _, t := range rendered {
		manifest.Tables[t.name] = TableInfo{Count: len(t.rows), Fields: t.headers}
		if err := writeCSV(zw, t); err != nil {
			return "", err
		}
		if err := writeJSON(zw, t); err != nil {
			return "", err
		}
	}
	if err := writeWorkbook(zw, rendered); err != nil {
		return "", err
	}
	if err := writeManifest(zw, manifest); err != nil {
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", eris.Wrap(err, "packager: close zip")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "packager: close file")
	}

	zap.L().Info("packager: package built", zap.String("path", path), zap.Int("tables", len(rendered)))
	return path, nil
}

// ReadManifest extracts and decodes manifest.json from a package ZIP.
func ReadManifest(path string) (*Manifest, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrapf(err, "packager: open %s", path)
	}
	defer r.Close() //nolint:errcheck

	for _, member := range r.File {
		if member.Name != manifestName {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, eris.Wrap(err, "packager: open manifest")
		}
		defer rc.Close() //nolint:errcheck

		var m Manifest
		if err := json.NewDecoder(rc).Decode(&m); err != nil {
			return nil, eris.Wrap(err, "packager: decode manifest")
		}
		return &m, nil
	}
	return nil, eris.Errorf("packager: no manifest in %s", path)
}

// ValidatePackage checks that every table listed in the manifest has its CSV
// and JSON members and that CSV row counts match the manifest counts.
func ValidatePackage(path string) error {
	manifest, err := ReadManifest(path)
	if err != nil {
		return err
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return eris.Wrapf(err, "packager: open %s", path)
	}
	defer r.Close() //nolint:errcheck

	members := make(map[string]*zip.File, len(r.File))
	for _, member := range r.File {
		members[member.Name] = member
	}

	for name, info := range manifest.Tables {
		csvMember, ok := members[name+".csv"]
		if !ok {
			return eris.Errorf("packager: missing member %s.csv", name)
		}
		if _, ok := members[name+".json"]; !ok {
			return eris.Errorf("packager: missing member %s.json", name)
		}

		rc, err := csvMember.Open()
		if err != nil {
			return eris.Wrapf(err, "packager: open %s.csv", name)
		}
		records, err := csv.NewReader(rc).ReadAll()
		rc.Close() //nolint:errcheck
		if err != nil {
			return eris.Wrapf(err, "packager: read %s.csv", name)
		}
		// One header row plus data rows.
		if len(records)-1 != info.Count {
			return eris.Errorf("packager: %s has %d rows, manifest says %d", name, len(records)-1, info.Count)
		}
	}
	return nil
}

func render(tables *model.NormalizedTables) []table {
	out := []table{
		renderParticipants(tables.Participants),
		renderConversations(tables.Conversations),
		renderMessages(tables.Messages),
		renderJunctions(tables.Junctions),
		renderConnections(tables.Connections),
	}
	extraNames := make([]string, 0, len(tables.Extras))
	for name := range tables.Extras {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)
	for _, name := range extraNames {
		out = append(out, renderRaw(name, tables.Extras[name]))
	}
	return out
}

func renderParticipants(participants []model.Participant) table {
	t := table{name: model.TableParticipants, headers: []string{"linkedin_id", "name", "profile_url", "email", "headline", "created_at"}}
	for _, p := range participants {
		t.rows = append(t.rows, []string{p.LinkedInID, p.Name, p.ProfileURL, p.Email, p.Headline, formatTime(&p.CreatedAt)})
	}
	return t
}

func renderConversations(conversations []model.Conversation) table {
	t := table{name: model.TableConversations, headers: []string{"conversation_id", "title", "is_group_chat", "first_message_at", "last_message_at"}}
	for _, c := range conversations {
		t.rows = append(t.rows, []string{
			c.ConversationID, c.Title, fmt.Sprintf("%t", c.IsGroupChat),
			formatTime(c.FirstMessageAt), formatTime(c.LastMessageAt),
		})
	}
	return t
}

func renderMessages(messages []model.Message) table {
	t := table{name: model.TableMessages, headers: []string{"message_id", "conversation_id", "sender_linkedin_id", "content", "sent_at"}}
	for _, m := range messages {
		t.rows = append(t.rows, []string{m.MessageID, m.ConversationID, m.SenderLinkedInID, m.Content, formatTime(&m.SentAt)})
	}
	return t
}

func renderJunctions(junctions []model.ConversationParticipant) table {
	t := table{name: "conversation_participants", headers: []string{"conversation_id", "participant_id", "joined_at", "left_at"}}
	for _, j := range junctions {
		t.rows = append(t.rows, []string{j.ConversationID, j.ParticipantID, formatTime(j.JoinedAt), formatTime(j.LeftAt)})
	}
	return t
}

func renderConnections(connections []model.Connection) table {
	t := table{name: model.TableConnections, headers: []string{"name", "company", "position", "email", "connected_on"}}
	for _, c := range connections {
		t.rows = append(t.rows, []string{c.Name, c.Company, c.Position, c.Email, formatTime(c.ConnectedOn)})
	}
	return t
}

// renderRaw tabulates map records over the sorted union of their keys.
func renderRaw(name string, records []model.RawRecord) table {
	keySet := make(map[string]bool)
	for _, record := range records {
		for k := range record {
			keySet[k] = true
		}
	}
	headers := make([]string, 0, len(keySet))
	for k := range keySet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	t := table{name: name, headers: headers}
	for _, record := range records {
		row := make([]string, len(headers))
		for i, k := range headers {
			row[i] = record[k]
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func writeCSV(zw *zip.Writer, t table) error {
	w, err := zw.Create(t.name + ".csv")
	if err != nil {
		return eris.Wrapf(err, "packager: create %s.csv", t.name)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.headers); err != nil {
		return eris.Wrapf(err, "packager: write %s.csv header", t.name)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return eris.Wrapf(err, "packager: write %s.csv", t.name)
	}
	cw.Flush()
	return eris.Wrapf(cw.Error(), "packager: flush %s.csv", t.name)
}

func writeJSON(zw *zip.Writer, t table) error {
	w, err := zw.Create(t.name + ".json")
	if err != nil {
		return eris.Wrapf(err, "packager: create %s.json", t.name)
	}
	records := make([]map[string]string, 0, len(t.rows))
	for _, row := range t.rows {
		record := make(map[string]string, len(t.headers))
		for i, h := range t.headers {
			record[h] = row[i]
		}
		records = append(records, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrapf(enc.Encode(records), "packager: write %s.json", t.name)
}

func writeWorkbook(zw *zip.Writer, tables []table) error {
	file := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := file.AddSheet(t.name)
		if err != nil {
			return eris.Wrapf(err, "packager: add sheet %s", t.name)
		}
		header := sheet.AddRow()
		for _, h := range t.headers {
			header.AddCell().SetString(h)
		}
		for _, row := range t.rows {
			r := sheet.AddRow()
			for _, v := range row {
				r.AddCell().SetString(v)
			}
		}
	}

	w, err := zw.Create("tables.xlsx")
	if err != nil {
		return eris.Wrap(err, "packager: create tables.xlsx")
	}
	return eris.Wrap(file.Write(w), "packager: write tables.xlsx")
}

func writeManifest(zw *zip.Writer, m Manifest) error {
	w, err := zw.Create(manifestName)
	if err != nil {
		return eris.Wrap(err, "packager: create manifest")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(m), "packager: write manifest")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
