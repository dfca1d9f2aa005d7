// Package docref resolves document references that arrive as untyped wire
// data: a bare string ID, or an object carrying the ID in one of a few
// well-known fields.
package docref

import (
	"encoding/json"
	"strings"

	"github.com/starford/folio/internal/models"
)

// Fields are checked in this order on object input.
var Fields = []string{"id", "_id", "documentId", "uuid"}

// Parse resolves raw JSON to a document ID. Anything that is neither a
// non-empty string nor an object with a non-empty string ID field is a miss.
func Parse(raw json.RawMessage) (models.DocumentID, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fromString(s)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return "", false
	}
	for _, f := range Fields {
		v, ok := obj[f]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		if id, ok := fromString(s); ok {
			return id, true
		}
	}
	return "", false
}

// FromValue does the same for an already decoded value, as handed over by
// MCP tool arguments.
func FromValue(v any) (models.DocumentID, bool) {
	switch t := v.(type) {
	case string:
		return fromString(t)
	case map[string]any:
		for _, f := range Fields {
			if s, ok := t[f].(string); ok {
				if id, ok := fromString(s); ok {
					return id, true
				}
			}
		}
	}
	return "", false
}

// FromArgs reads the reference stored under key in args.
func FromArgs(args map[string]any, key string) (models.DocumentID, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	return FromValue(v)
}

func fromString(s string) (models.DocumentID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return models.DocumentID(s), true
}
