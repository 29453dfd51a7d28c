package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ocdsmerge "github.com/goliatone/go-ocdsmerge"
	"github.com/goliatone/go-ocdsmerge/pkg/activity"
	"github.com/goliatone/go-ocdsmerge/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	firstRelease = map[string]any{
		"ocid": "A", "id": "1", "date": "2014-01-01", "tag": []any{"tender"},
		"tender": map[string]any{"id": "A", "procurementMethod": "Selective"},
	}
	secondRelease = map[string]any{
		"ocid": "A", "id": "2", "date": "2014-01-02", "tag": []any{"tender"},
		"tender": map[string]any{"id": "A", "procurementMethod": "Open"},
	}
)

func newUpdater(t *testing.T, store state.Store, hooks ...activity.ActivityHook) state.Updater {
	t.Helper()
	merger, err := ocdsmerge.New()
	require.NoError(t, err)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return state.Updater{
		Store:   store,
		Merger:  merger,
		Emitter: activity.NewEmitter(hooks, activity.Config{Enabled: true}),
		ActorID: "cli",
		Now:     func() time.Time { return clock },
	}
}

func TestUpdaterAppendMatchesFullMerge(t *testing.T) {
	for _, kind := range []state.Kind{state.KindCompiled, state.KindVersioned} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			store := state.NewMemoryStore()
			updater := newUpdater(t, store)
			ref := state.Ref{OCID: "A", Kind: kind}

			_, first, err := updater.Append(ctx, ref, state.Meta{}, []any{firstRelease})
			require.NoError(t, err)
			assert.Equal(t, 1, first.Releases)
			assert.NotEmpty(t, first.ETag)
			assert.NotEmpty(t, first.SnapshotID)

			doc, second, err := updater.Append(ctx, ref, state.Meta{ETag: first.ETag}, []any{secondRelease})
			require.NoError(t, err)
			assert.Equal(t, 2, second.Releases)
			assert.NotEqual(t, first.ETag, second.ETag)
			assert.NotEqual(t, first.SnapshotID, second.SnapshotID)

			full, err := updater.Merger.CreateCompiledRelease([]any{firstRelease, secondRelease})
			if kind == state.KindVersioned {
				full, err = updater.Merger.CreateVersionedRelease([]any{firstRelease, secondRelease})
			}
			require.NoError(t, err)
			assert.Equal(t, full, doc)

			stored, _, ok, err := store.Load(ctx, ref)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, full, stored)
		})
	}
}

func TestUpdaterETagMismatch(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	updater := newUpdater(t, store)
	ref := state.Ref{OCID: "A", Kind: state.KindCompiled}

	_, meta, err := updater.Append(ctx, ref, state.Meta{}, []any{firstRelease})
	require.NoError(t, err)

	_, loaded, err := updater.Append(ctx, ref, state.Meta{ETag: "stale"}, []any{secondRelease})
	require.Error(t, err)
	assert.True(t, errors.Is(err, state.ErrETagMismatch))
	assert.Equal(t, meta.ETag, loaded.ETag)

	stored, storedMeta, _, err := store.Load(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "2014-01-01", stored["date"], "failed appends must not save")
	assert.Equal(t, meta.ETag, storedMeta.ETag)
}

func TestUpdaterKeepsCallerSnapshotAndExtra(t *testing.T) {
	ctx := context.Background()
	updater := newUpdater(t, state.NewMemoryStore())
	ref := state.Ref{OCID: "A", Kind: state.KindCompiled}

	_, meta, err := updater.Append(ctx, ref, state.Meta{SnapshotID: "import-7", Extra: map[string]string{"source": "bulk"}}, []any{firstRelease})
	require.NoError(t, err)
	assert.Equal(t, "import-7", meta.SnapshotID)
	assert.Equal(t, map[string]string{"source": "bulk"}, meta.Extra)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), meta.UpdatedAt)

	_, meta, err = updater.Append(ctx, ref, state.Meta{}, []any{secondRelease})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "bulk"}, meta.Extra, "extra survives appends that do not set it")
}

func TestUpdaterEmitsActivity(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	updater := newUpdater(t, state.NewMemoryStore(), capture)
	ref := state.Ref{OCID: "A", Kind: state.KindCompiled}

	release := map[string]any{"ocid": "A", "date": "1", "parties": []any{
		map[string]any{"id": "1", "name": "x"},
		map[string]any{"id": "1", "name": "y"},
	}}
	_, meta, err := updater.Append(ctx, ref, state.Meta{}, []any{release})
	require.NoError(t, err)

	assert.Equal(t, []string{activity.VerbReleaseMerged, activity.VerbDuplicateID, activity.VerbRecordSaved}, capture.Verbs())
	duplicate := capture.Events[1]
	assert.Equal(t, "compiled/A", duplicate.ObjectID)
	assert.Equal(t, "parties", duplicate.Metadata["path"])
	assert.Equal(t, "1", duplicate.Metadata["id"])
	saved := capture.Events[2]
	assert.Equal(t, meta.ETag, saved.Metadata["etag"])
	assert.Equal(t, "cli", saved.ActorID)
	assert.Equal(t, activity.DefaultChannel, saved.Channel)
}

func TestUpdaterMergeErrorsDoNotSave(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	updater := newUpdater(t, store)
	ref := state.Ref{OCID: "A", Kind: state.KindCompiled}

	_, _, err := updater.Append(ctx, ref, state.Meta{}, []any{firstRelease, map[string]any{"ocid": "A"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ocdsmerge.ErrMissingDate))
	assert.Equal(t, 0, store.Len())
}

func TestUpdaterRequiresCollaborators(t *testing.T) {
	ctx := context.Background()
	ref := state.Ref{OCID: "A", Kind: state.KindCompiled}

	_, _, err := state.Updater{}.Append(ctx, ref, state.Meta{}, nil)
	assert.EqualError(t, err, "state: store is required")

	_, _, err = state.Updater{Store: state.NewMemoryStore()}.Append(ctx, ref, state.Meta{}, nil)
	assert.EqualError(t, err, "state: merger is required")

	_, _, err = newUpdater(t, state.NewMemoryStore()).Append(ctx, state.Ref{OCID: "A"}, state.Meta{}, nil)
	assert.ErrorIs(t, err, state.ErrInvalidRef)
}
