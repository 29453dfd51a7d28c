package ocdsmerge

import (
	"strings"

	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

var (
	idPath   = FieldPath("id")
	datePath = FieldPath("date")
	ocidPath = FieldPath("ocid")
	tagPath  = FieldPath("tag")
)

// MergedRelease is an incremental merge session. Releases are folded into its
// flattened state one at a time; AsDocument reconstructs the current result.
// A MergedRelease is not safe for concurrent use.
type MergedRelease struct {
	merger    *Merger
	versioned bool
	state     *Flattened
	// decomposed holds keys of array paths whose elements are merged by
	// identity in compiled state.
	decomposed map[string]struct{}
	appended   int
}

// NewCompiledRelease starts a compiled merge session. prior, when not nil, is
// an earlier compiled release to extend; its ocid, id and date are kept until a
// release replaces them.
func (m *Merger) NewCompiledRelease(prior map[string]any) (*MergedRelease, error) {
	r := &MergedRelease{
		merger:     m,
		state:      NewFlattened(),
		decomposed: map[string]struct{}{},
	}
	if prior != nil {
		flat, err := m.flatten(prior, false)
		if err != nil {
			return nil, err
		}
		r.foldCompiled(flat)
		for _, path := range []Path{idPath, datePath, ocidPath} {
			if value, ok := prior[path.Segment(0).Name()]; ok {
				r.state.Set(path, value)
			}
		}
	}
	r.state.Set(tagPath, []any{"compiled"})
	return r, nil
}

// NewVersionedRelease starts a versioned merge session. prior, when not nil,
// is an earlier versioned release to extend.
func (m *Merger) NewVersionedRelease(prior map[string]any) (*MergedRelease, error) {
	r := &MergedRelease{
		merger:    m,
		versioned: true,
		state:     NewFlattened(),
	}
	if prior != nil {
		flat, err := m.flatten(prior, true)
		if err != nil {
			return nil, err
		}
		r.state.Update(flat)
		if ocid, ok := prior["ocid"]; ok {
			r.state.Set(ocidPath, ocid)
		}
	}
	return r, nil
}

// Versioned reports whether the session keeps field histories.
func (r *MergedRelease) Versioned() bool {
	return r.versioned
}

// Extend sorts releases and appends them in order.
func (r *MergedRelease) Extend(releases []any) error {
	sorted, err := r.merger.SortReleases(releases)
	if err != nil {
		return err
	}
	for _, release := range sorted {
		if err := r.Append(release); err != nil {
			return err
		}
	}
	return nil
}

// Append folds one release into the session. Releases are not sorted; callers
// appending individually are responsible for date order.
func (r *MergedRelease) Append(release any) error {
	doc, ok := release.(map[string]any)
	if !ok {
		return nonObjectReleaseError(r.appended, release)
	}
	body := make(map[string]any, len(doc))
	for key, value := range doc {
		body[key] = value
	}
	ocid := doc["ocid"]
	releaseID := doc["id"]
	date := doc["date"]
	tag := doc["tag"]
	delete(body, "tag")

	flat, err := r.merger.flatten(body, false)
	if err != nil {
		return err
	}
	if r.versioned {
		r.foldVersioned(flat, ocid, releaseID, date, tag)
	} else {
		r.state.Set(idPath, jsonvalue.String(ocid)+"-"+jsonvalue.String(date))
		r.state.Set(datePath, date)
		r.state.Set(ocidPath, ocid)
		r.foldCompiled(flat)
	}
	r.appended++
	return nil
}

// AsDocument reconstructs the merged release.
func (r *MergedRelease) AsDocument() (map[string]any, error) {
	return Unflatten(r.state)
}

// foldCompiled overwrites state with flat. An array stored whole replaces the
// elements merged beneath it, and elements merged by identity replace an
// array stored whole, so the latest release decides the array's shape.
func (r *MergedRelease) foldCompiled(flat *Flattened) {
	flat.Range(func(path Path, value any) bool {
		var key strings.Builder
		for i := 0; i < path.Len(); i++ {
			segment := path.Segment(i)
			if segment.IsElement() {
				r.decompose(key.String())
			}
			key.WriteString(segment.key())
		}
		if items, ok := value.([]any); ok && len(items) > 0 {
			r.recompose(key.String())
		}
		r.state.Set(path, value)
		return true
	})
}

func (r *MergedRelease) decompose(arrayKey string) {
	if _, ok := r.decomposed[arrayKey]; ok {
		return
	}
	if existing, ok := r.state.getKey(arrayKey); ok {
		if items, ok := existing.([]any); ok && len(items) > 0 {
			r.state.deleteKey(arrayKey)
		}
	}
	r.decomposed[arrayKey] = struct{}{}
}

func (r *MergedRelease) recompose(arrayKey string) {
	if _, ok := r.decomposed[arrayKey]; !ok {
		return
	}
	prefix := arrayKey + "["
	r.state.DeleteFunc(func(path Path, _ any) bool {
		return strings.HasPrefix(path.Key(), prefix)
	})
	for key := range r.decomposed {
		if key == arrayKey || strings.HasPrefix(key, prefix) {
			delete(r.decomposed, key)
		}
	}
}

// foldVersioned appends a history record for every value that changed. ocid
// is stored as a plain value. Entries whose state is not a history, such as
// element ids re-read from a prior versioned release, are left alone. Empty
// containers are stored as plain values until a release sets a real value.
func (r *MergedRelease) foldVersioned(flat *Flattened, ocid, releaseID, date, tag any) {
	flat.Delete(ocidPath)
	r.state.Set(ocidPath, ocid)

	flat.Range(func(path Path, value any) bool {
		existing, exists := r.state.Get(path)
		if !exists {
			if jsonvalue.IsEmptyContainer(value) {
				r.state.Set(path, value)
			} else {
				r.state.Set(path, []any{r.record(value, releaseID, date, tag)})
			}
			return true
		}
		var history []any
		switch {
		case IsHistory(existing):
			history = existing.([]any)
			if jsonvalue.Equal(latestValue(history), value) {
				return true
			}
		case jsonvalue.IsEmptyContainer(existing) && !jsonvalue.IsEmptyContainer(value):
		default:
			return true
		}
		next := make([]any, len(history), len(history)+1)
		copy(next, history)
		r.state.Set(path, append(next, r.record(value, releaseID, date, tag)))
		return true
	})
}

func (r *MergedRelease) record(value, releaseID, date, tag any) map[string]any {
	return VersionedValue{
		ReleaseID:   releaseID,
		ReleaseDate: date,
		ReleaseTag:  tag,
		Value:       value,
	}.Map()
}
