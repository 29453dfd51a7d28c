package ocdsmerge

import (
	"encoding/json"
)

// Field names of a versioned value record.
const (
	VersionedReleaseID   = "releaseID"
	VersionedReleaseDate = "releaseDate"
	VersionedReleaseTag  = "releaseTag"
	VersionedValueKey    = "value"
)

// VersionedValue is one entry in a field's history: the value a release set
// and the release that contributed it.
type VersionedValue struct {
	ReleaseID   any `json:"releaseID"`
	ReleaseDate any `json:"releaseDate"`
	ReleaseTag  any `json:"releaseTag"`
	Value       any `json:"value"`
}

// Map returns the record in its document form.
func (v VersionedValue) Map() map[string]any {
	return map[string]any{
		VersionedReleaseID:   v.ReleaseID,
		VersionedReleaseDate: v.ReleaseDate,
		VersionedReleaseTag:  v.ReleaseTag,
		VersionedValueKey:    v.Value,
	}
}

// ToJSON serialises the record.
func (v VersionedValue) ToJSON() ([]byte, error) {
	type alias VersionedValue
	return json.Marshal(alias(v))
}

// VersionedValueFromMap reads a record from its document form. ok is false when
// record does not have exactly the four record fields.
func VersionedValueFromMap(record any) (VersionedValue, bool) {
	if !IsVersionedValue(record) {
		return VersionedValue{}, false
	}
	m := record.(map[string]any)
	return VersionedValue{
		ReleaseID:   m[VersionedReleaseID],
		ReleaseDate: m[VersionedReleaseDate],
		ReleaseTag:  m[VersionedReleaseTag],
		Value:       m[VersionedValueKey],
	}, true
}

// IsVersionedValue reports whether value carries exactly the four versioned
// value fields.
func IsVersionedValue(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 4 {
		return false
	}
	for _, key := range []string{VersionedReleaseID, VersionedReleaseDate, VersionedReleaseTag, VersionedValueKey} {
		if _, ok := m[key]; !ok {
			return false
		}
	}
	return true
}

// IsHistory reports whether value is a non-empty list of versioned values.
func IsHistory(value any) bool {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !IsVersionedValue(item) {
			return false
		}
	}
	return true
}

// latestValue returns the most recent value of a history list.
func latestValue(history []any) any {
	if len(history) == 0 {
		return nil
	}
	record, _ := history[len(history)-1].(map[string]any)
	return record[VersionedValueKey]
}
