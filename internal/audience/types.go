package audience

import (
	"encoding/json"
	"strings"
)

// StringList is a list of strings that tolerates the two encodings the
// institution catalog has historically used: a real JSON array, or a
// JSON-encoded string containing an array. Malformed input decodes to an
// empty list; a bad catalog record must never abort a whole response.
type StringList []string

// UnmarshalJSON resolves the representation once at ingestion time.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = nil
		return nil
	}

	// Direct array form
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}

	// Double-encoded form: "[\"Science\",\"Arts\"]"
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		var nested []string
		if err := json.Unmarshal([]byte(raw), &nested); err == nil {
			*l = nested
			return nil
		}
	}

	*l = nil
	return nil
}

// Institution is a read-only catalog entry. Departments and Levels may
// arrive in either encoding; StringList normalizes both.
type Institution struct {
	ID          string     `json:"institution_id"`
	Name        string     `json:"name"`
	Departments StringList `json:"departments"`
	Levels      StringList `json:"levels"`
}

// Selection is the audience portion of a campaign form. When TargetAll is
// set the remaining fields are ignored. Departments and Levels are only
// meaningful while InstitutionIDs is non-empty.
type Selection struct {
	TargetAll      bool     `json:"target_all"`
	InstitutionIDs []string `json:"institution_ids"`
	Departments    []string `json:"departments"`
	Levels         []string `json:"levels"`
}

// Options are the derived choices available for the dependent
// department/level inputs given the current institution selection.
type Options struct {
	Departments []string `json:"departments"`
	Levels      []string `json:"levels"`
}
