package extractor

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// MemberMapping maps a logical table name to the archive member file that
// carries it. Matching against archive entries is by base name,
// case-insensitive.
type MemberMapping map[string]string

// DefaultMapping returns the member files a LinkedIn export is expected to
// contain.
func DefaultMapping() MemberMapping {
	return MemberMapping{
		model.TableMessages:     "messages.csv",
		model.TableConnections:  "Connections.csv",
		model.TableProfile:      "Profile.csv",
		model.TableReactions:    "Reactions.csv",
		model.TableInvitations:  "Invitations.csv",
		model.TableContacts:     "Contacts.csv",
		model.TableRegistration: "Registration.csv",
	}
}

// LoadMapping reads a YAML mapping file and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func LoadMapping(path string) (MemberMapping, error) {
	mapping := DefaultMapping()
	if path == "" {
		return mapping, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: read mapping file %s", path)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, eris.Wrap(err, "extractor: parse mapping file")
	}
	for table, member := range overrides {
		mapping[table] = member
	}
	return mapping, nil
}
