package extractor

import "github.com/rotisserie/eris"

// Sentinel errors callers can match with eris.Is.
var (
	// ErrSourceNotFound means the archive path does not exist.
	ErrSourceNotFound = eris.New("extractor: source archive not found")
	// ErrBadFormat means the file exists but is not a readable ZIP archive.
	ErrBadFormat = eris.New("extractor: source is not a valid archive")
	// ErrNoData means the archive was readable but no expected member file
	// produced any records.
	ErrNoData = eris.New("extractor: no recognized data in archive")
)
