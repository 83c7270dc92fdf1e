// Package storage owns the three working directories of the pipeline:
// incoming export archives, packaged output, and the long-term archive of
// already-processed source ZIPs.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Manager resolves and maintains the pipeline directories.
type Manager struct {
	incoming string
	output   string
	archive  string
}

// Stats reports per-directory file counts and total sizes.
type Stats struct {
	IncomingFiles int   `json:"incoming_files"`
	IncomingBytes int64 `json:"incoming_bytes"`
	OutputFiles   int   `json:"output_files"`
	OutputBytes   int64 `json:"output_bytes"`
	ArchivedFiles int   `json:"archived_files"`
	ArchivedBytes int64 `json:"archived_bytes"`
}

func NewManager(incoming, output, archive string) *Manager {
	return &Manager{incoming: incoming, output: output, archive: archive}
}

func (m *Manager) IncomingDir() string { return m.incoming }
func (m *Manager) OutputDir() string   { return m.output }
func (m *Manager) ArchiveDir() string  { return m.archive }

// EnsureDirs creates the three directories if missing.
func (m *Manager) EnsureDirs() error {
	for _, dir := range []string{m.incoming, m.output, m.archive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "storage: create dir %s", dir)
		}
	}
	return nil
}

// LatestArchive returns the newest *.zip in the incoming directory by
// modification time, or "" when none is present.
func (m *Manager) LatestArchive() (string, error) {
	entries, err := os.ReadDir(m.incoming)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", eris.Wrapf(err, "storage: read incoming dir %s", m.incoming)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", eris.Wrapf(err, "storage: stat %s", entry.Name())
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(m.incoming, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	return candidates[0].path, nil
}

// Archive moves a processed source ZIP into the archive directory under a
// timestamped name and returns the new path.
func (m *Manager) Archive(srcPath string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	dest := filepath.Join(m.archive, fmt.Sprintf("%s_%s.zip", base, time.Now().UTC().Format("20060102T150405")))

	if err := moveFile(srcPath, dest); err != nil {
		return "", eris.Wrapf(err, "storage: archive %s", srcPath)
	}
	zap.L().Info("storage: archived source", zap.String("from", srcPath), zap.String("to", dest))
	return dest, nil
}

// PlaceOutput moves a built package into the output directory named after the
// run and returns the new path.
func (m *Manager) PlaceOutput(srcPath, runID string) (string, error) {
	dest := filepath.Join(m.output, fmt.Sprintf("linkedin_export_%s_%s.zip", runID, time.Now().UTC().Format("20060102T150405")))
	if err := moveFile(srcPath, dest); err != nil {
		return "", eris.Wrapf(err, "storage: place output %s", srcPath)
	}
	return dest, nil
}

// Stats walks the three directories and totals file counts and sizes.
func (m *Manager) Stats() (*Stats, error) {
	stats := &Stats{}
	for _, d := range []struct {
		dir   string
		count *int
		bytes *int64
	}{
		{m.incoming, &stats.IncomingFiles, &stats.IncomingBytes},
		{m.output, &stats.OutputFiles, &stats.OutputBytes},
		{m.archive, &stats.ArchivedFiles, &stats.ArchivedBytes},
	} {
		entries, err := os.ReadDir(d.dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "storage: read dir %s", d.dir)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, eris.Wrapf(err, "storage: stat %s", entry.Name())
			}
			*d.count++
			*d.bytes += info.Size()
		}
	}
	return stats, nil
}

// moveFile renames when possible and falls back to copy-and-remove for
// cross-device moves.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "open source")
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrap(err, "copy")
	}
	if err := out.Close(); err != nil {
		return eris.Wrap(err, "close destination")
	}
	return eris.Wrap(os.Remove(src), "remove source")
}
