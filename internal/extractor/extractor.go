// Package extractor opens a LinkedIn export archive and turns its member
// files into raw tables of flat key/value records.
package extractor

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Extractor parses export archives into raw tables.
type Extractor struct {
	mapping MemberMapping
}

// New creates an Extractor with the given member mapping.
func New(mapping MemberMapping) *Extractor {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Extractor{mapping: mapping}
}

// ArchiveMetadata describes a source archive before extraction.
type ArchiveMetadata struct {
	Path    string   `json:"path"`
	Size    int64    `json:"size"`
	SHA256  string   `json:"sha256"`
	Members []string `json:"members"`
}

// Extract opens the archive at zipPath and returns a raw table per
// recognized member file. Returns ErrSourceNotFound, ErrBadFormat, or
// ErrNoData on the corresponding failure.
func (e *Extractor) Extract(ctx context.Context, zipPath string) (model.RawTables, error) {
	if _, err := os.Stat(zipPath); os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrSourceNotFound, "path %s", zipPath)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(ErrBadFormat, "open %s: %v", zipPath, err)
	}
	defer r.Close() //nolint:errcheck

	tables := make(model.RawTables)

	// Stable iteration order keeps logs reproducible.
	names := make([]string, 0, len(e.mapping))
	for table := range e.mapping {
		names = append(names, table)
	}
	sort.Strings(names)

	for _, table := range names {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "extractor: cancelled")
		}

		entry := findMember(r.File, e.mapping[table])
		if entry == nil {
			continue
		}

		records, err := parseMember(entry)
		if err != nil {
			zap.L().Warn("extractor: skipping unreadable member",
				zap.String("table", table),
				zap.String("member", entry.Name),
				zap.Error(err),
			)
			continue
		}
		if len(records) > 0 {
			tables[table] = records
		}
	}

	// Derive participants/conversations/messages from the flat message log.
	if rows, ok := tables[model.TableMessages]; ok {
		participants, conversations, messages := foldMessages(rows)
		tables[model.TableParticipants] = participants
		tables[model.TableConversations] = conversations
		tables[model.TableMessages] = messages
	}

	if totalRecords(tables) == 0 {
		return nil, eris.Wrapf(ErrNoData, "archive %s", zipPath)
	}

	zap.L().Info("extractor: archive parsed",
		zap.String("path", zipPath),
		zap.Int("tables", len(tables)),
	)
	return tables, nil
}

// Metadata hashes and inventories the archive without extracting data.
func (e *Extractor) Metadata(zipPath string) (*ArchiveMetadata, error) {
	info, err := os.Stat(zipPath)
	if os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrSourceNotFound, "path %s", zipPath)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: stat %s", zipPath)
	}

	hash, err := HashArchive(zipPath)
	if err != nil {
		return nil, err
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(ErrBadFormat, "open %s: %v", zipPath, err)
	}
	defer r.Close() //nolint:errcheck

	var members []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			members = append(members, f.Name)
		}
	}

	return &ArchiveMetadata{
		Path:    zipPath,
		Size:    info.Size(),
		SHA256:  hash,
		Members: members,
	}, nil
}

// HashArchive returns the hex SHA-256 of the archive contents. Used for
// duplicate-run detection.
func HashArchive(zipPath string) (string, error) {
	f, err := os.Open(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "extractor: open %s", zipPath)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrap(err, "extractor: hash archive")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// findMember locates an archive entry by base name, case-insensitively,
// ignoring directory nesting. First match wins.
func findMember(files []*zip.File, member string) *zip.File {
	want := strings.ToLower(member)
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.ToLower(path.Base(f.Name)) == want {
			return f
		}
	}
	return nil
}

// parseMember dispatches on file extension.
func parseMember(f *zip.File) ([]model.RawRecord, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: open member %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: read member %s", f.Name)
	}

	switch strings.ToLower(path.Ext(f.Name)) {
	case ".json":
		return parseJSON(data)
	default:
		return parseCSV(data)
	}
}

func totalRecords(tables model.RawTables) int {
	n := 0
	for _, records := range tables {
		n += len(records)
	}
	return n
}
