package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// parseJSON accepts a top-level array, a single object (wrapped into a
// one-element list), or an object containing exactly one array-valued
// member (that array is taken).
func parseJSON(data []byte) ([]model.RawRecord, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "extractor: parse json")
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		if arr, ok := singleArrayMember(v); ok {
			items = arr
		} else {
			items = []any{v}
		}
	default:
		return nil, eris.New("extractor: unexpected json document shape")
	}

	var records []model.RawRecord
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		record := make(model.RawRecord, len(obj))
		for k, v := range obj {
			record[strings.ToLower(strings.TrimSpace(k))] = flattenJSONValue(v)
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

// singleArrayMember returns the array if the object has exactly one
// array-valued member.
func singleArrayMember(obj map[string]any) ([]any, bool) {
	var found []any
	count := 0
	for _, v := range obj {
		if arr, ok := v.([]any); ok {
			found = arr
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return nil, false
}

func flattenJSONValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		// Nested structures are kept as compact JSON.
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
