package activity

import (
	"strings"
	"time"
)

// Event verbs and object types emitted by the merge pipeline.
const (
	VerbReleaseMerged = "release.merged"
	VerbRecordSaved   = "record.saved"
	VerbDuplicateID   = "merge.duplicate_id"

	ObjectRecord = "ocds.record"
)

// MergeEventInput describes the common fields for merge lifecycle events.
type MergeEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	Channel  string
	// ObjectID identifies the merged record, e.g. "compiled/ocds-213czf-1".
	ObjectID string
	OCID     string
	// Kind is "compiled" or "versioned".
	Kind       string
	Releases   int
	SnapshotID string
	ETag       string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildReleaseMergedEvent describes releases folded into a record.
func BuildReleaseMergedEvent(input MergeEventInput) Event {
	event := buildMergeEvent(VerbReleaseMerged, input)
	event.Metadata["releases"] = input.Releases
	return event
}

// BuildRecordSavedEvent describes a merged record persisted to a store.
func BuildRecordSavedEvent(input MergeEventInput) Event {
	event := buildMergeEvent(VerbRecordSaved, input)
	if input.SnapshotID != "" {
		event.Metadata["snapshot_id"] = input.SnapshotID
	}
	if input.ETag != "" {
		event.Metadata["etag"] = input.ETag
	}
	return event
}

// BuildDuplicateIDEvent describes an array whose objects share an id. path is
// the dotted rule path of the array.
func BuildDuplicateIDEvent(input MergeEventInput, path string, id any) Event {
	event := buildMergeEvent(VerbDuplicateID, input)
	event.Metadata["path"] = path
	event.Metadata["id"] = id
	return event
}

func buildMergeEvent(verb string, input MergeEventInput) Event {
	metadata := CloneMetadata(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	ocid := strings.TrimSpace(input.OCID)
	if ocid != "" {
		metadata["ocid"] = ocid
	}
	kind := strings.TrimSpace(input.Kind)
	if kind != "" {
		metadata["kind"] = kind
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" && ocid != "" {
		objectID = ocid
		if kind != "" {
			objectID = kind + "/" + ocid
		}
	}
	if objectID == "" {
		objectID = ObjectRecord
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectRecord,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
