package state

import (
	"context"
	"fmt"
	"time"

	ocdsmerge "github.com/goliatone/go-ocdsmerge"
	"github.com/goliatone/go-ocdsmerge/internal/digest"
	"github.com/goliatone/go-ocdsmerge/pkg/activity"
	"github.com/google/uuid"
)

// Updater extends stored merged records with new releases.
type Updater struct {
	Store  Store
	Merger *ocdsmerge.Merger
	// Emitter receives release.merged, merge.duplicate_id and record.saved
	// events. Nil disables emission.
	Emitter *activity.Emitter
	// ActorID is recorded on emitted events.
	ActorID string
	// Now overrides the clock used for Meta.UpdatedAt.
	Now func() time.Time
}

// Append folds releases into the record at ref and saves it. meta.ETag, when
// set, must match the stored ETag. meta.SnapshotID and meta.Extra override the
// stored values; a new SnapshotID is minted when neither is set. The merged
// document and the saved metadata are returned.
func (u Updater) Append(ctx context.Context, ref Ref, meta Meta, releases []any) (map[string]any, Meta, error) {
	if u.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if u.Merger == nil {
		return nil, Meta{}, fmt.Errorf("state: merger is required")
	}
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}

	prior, loadedMeta, ok, err := u.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %s: %w", key, err)
	}
	if !ok {
		prior = nil
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	var duplicates []ocdsmerge.DuplicateIDWarning
	merger := u.Merger.WithWarnings(ocdsmerge.WarningHandlerFunc(func(w ocdsmerge.Warning) {
		if duplicate, ok := w.(ocdsmerge.DuplicateIDWarning); ok {
			duplicates = append(duplicates, duplicate)
		}
	}))

	var session *ocdsmerge.MergedRelease
	if ref.Kind == KindVersioned {
		session, err = merger.NewVersionedRelease(prior)
	} else {
		session, err = merger.NewCompiledRelease(prior)
	}
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: restore %s: %w", key, err)
	}
	if err := session.Extend(releases); err != nil {
		return nil, loadedMeta, fmt.Errorf("state: merge %s: %w", key, err)
	}
	doc, err := session.AsDocument()
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: merge %s: %w", key, err)
	}

	etag, err := digest.Document(doc)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: etag %s: %w", key, err)
	}
	saveMeta := mergeMeta(loadedMeta, Meta{SnapshotID: meta.SnapshotID, Extra: meta.Extra})
	if meta.SnapshotID == "" {
		saveMeta.SnapshotID = uuid.NewString()
	}
	saveMeta.ETag = etag
	saveMeta.UpdatedAt = u.now()
	saveMeta.Releases = loadedMeta.Releases + len(releases)

	savedMeta, err := u.Store.Save(ctx, ref, doc, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %s: %w", key, err)
	}

	if err := u.emit(ctx, ref, key, len(releases), savedMeta, duplicates); err != nil {
		return doc, savedMeta, err
	}
	return doc, savedMeta, nil
}

func (u Updater) emit(ctx context.Context, ref Ref, key string, count int, meta Meta, duplicates []ocdsmerge.DuplicateIDWarning) error {
	if !u.Emitter.Enabled() {
		return nil
	}
	input := activity.MergeEventInput{
		ActorID:    u.ActorID,
		ObjectID:   key,
		OCID:       ref.OCID,
		Kind:       string(ref.Kind),
		Releases:   count,
		SnapshotID: meta.SnapshotID,
		ETag:       meta.ETag,
		OccurredAt: meta.UpdatedAt,
	}
	events := []activity.Event{activity.BuildReleaseMergedEvent(input)}
	for _, duplicate := range duplicates {
		events = append(events, activity.BuildDuplicateIDEvent(input, duplicate.RulePath.String(), duplicate.ID))
	}
	events = append(events, activity.BuildRecordSavedEvent(input))
	if err := u.Emitter.EmitAll(ctx, events...); err != nil {
		return fmt.Errorf("state: emit %s: %w", key, err)
	}
	return nil
}

func (u Updater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now().UTC()
}
