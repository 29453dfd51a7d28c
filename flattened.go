package ocdsmerge

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Flattened is an insertion-ordered mapping from Path to leaf value. Updating
// an existing path keeps its position; deleting and setting it again moves it
// to the end. Array reconstruction order follows this iteration order.
type Flattened struct {
	entries *orderedmap.OrderedMap[string, flatEntry]
}

// flatEntry keeps the structured path next to its value; the map is keyed by
// Path.Key.
type flatEntry struct {
	path  Path
	value any
}

// NewFlattened returns an empty map.
func NewFlattened() *Flattened {
	return &Flattened{entries: orderedmap.New[string, flatEntry]()}
}

// Set stores value at path.
func (f *Flattened) Set(path Path, value any) {
	if f.entries == nil {
		f.entries = orderedmap.New[string, flatEntry]()
	}
	key := path.Key()
	if pair := f.entries.GetPair(key); pair != nil {
		pair.Value.value = value
		return
	}
	f.entries.Set(key, flatEntry{path: path, value: value})
}

// Get returns the value at path.
func (f *Flattened) Get(path Path) (any, bool) {
	return f.getKey(path.Key())
}

func (f *Flattened) getKey(key string) (any, bool) {
	if f.entries == nil {
		return nil, false
	}
	entry, ok := f.entries.Get(key)
	return entry.value, ok
}

// Delete removes path.
func (f *Flattened) Delete(path Path) {
	f.deleteKey(path.Key())
}

func (f *Flattened) deleteKey(key string) {
	if f.entries != nil {
		f.entries.Delete(key)
	}
}

// DeleteFunc removes every entry for which fn returns true.
func (f *Flattened) DeleteFunc(fn func(Path, any) bool) {
	if f.entries == nil {
		return
	}
	for pair := f.entries.Oldest(); pair != nil; {
		next := pair.Next()
		if fn(pair.Value.path, pair.Value.value) {
			f.entries.Delete(pair.Key)
		}
		pair = next
	}
}

// Len returns the number of entries.
func (f *Flattened) Len() int {
	return f.entries.Len()
}

// Range visits entries in insertion order until fn returns false.
func (f *Flattened) Range(fn func(Path, any) bool) {
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Value.path, pair.Value.value) {
			return
		}
	}
}

// Paths returns the paths in insertion order.
func (f *Flattened) Paths() []Path {
	out := make([]Path, 0, f.Len())
	f.Range(func(path Path, _ any) bool {
		out = append(out, path)
		return true
	})
	return out
}

// Update sets every entry of other, in other's order.
func (f *Flattened) Update(other *Flattened) {
	other.Range(func(path Path, value any) bool {
		f.Set(path, value)
		return true
	})
}
