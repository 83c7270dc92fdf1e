package extractor

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// parseCSV decodes a member file into records keyed by header column.
// Content is tried as UTF-8 first, then re-decoded as Latin-1; LinkedIn
// exports mix both.
func parseCSV(data []byte) ([]model.RawRecord, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "extractor: decode latin-1")
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "extractor: read csv header")
	}
	for i, col := range header {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	var records []model.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "extractor: read csv row")
		}

		record := make(model.RawRecord, len(header))
		for i, field := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			record[header[i]] = strings.TrimSpace(field)
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}
