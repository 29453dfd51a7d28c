// Package schema loads release schemas from local paths or URLs and resolves
// their JSON references.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Loader fetches schema documents through afs, so any scheme afs supports
// (file, mem, http, https, ...) can be used as a source. Fetched documents are
// cached by URL for the lifetime of the Loader.
type Loader struct {
	fs afs.Service

	mu   sync.Mutex
	docs map[string]map[string]any
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithService replaces the afs service, e.g. with a memory file system in tests.
func WithService(fs afs.Service) LoaderOption {
	return func(l *Loader) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{fs: afs.New(), docs: map[string]map[string]any{}}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

var defaultLoader = NewLoader()

// Load fetches and dereferences the schema at source with a shared Loader.
func Load(ctx context.Context, source string) (map[string]any, error) {
	return defaultLoader.Load(ctx, source)
}

// Load fetches the schema at source and resolves every $ref, including refs to
// other documents relative to source.
func (l *Loader) Load(ctx context.Context, source string) (map[string]any, error) {
	doc, err := l.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	r := newResolver(doc, source, func(location string) (map[string]any, error) {
		return l.Fetch(ctx, location)
	})
	out, err := r.resolve(doc, source)
	if err != nil {
		return nil, err
	}
	object, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: %s is not a JSON object", source)
	}
	return object, nil
}

// Fetch downloads and decodes the document at location without resolving
// references.
func (l *Loader) Fetch(ctx context.Context, location string) (map[string]any, error) {
	l.mu.Lock()
	if doc, ok := l.docs[location]; ok {
		l.mu.Unlock()
		return doc, nil
	}
	l.mu.Unlock()

	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("schema: download %s: %w", location, err)
	}
	var doc map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode %s: %w", location, err)
	}

	l.mu.Lock()
	l.docs[location] = doc
	l.mu.Unlock()
	return doc, nil
}

// resolveLocation returns the absolute location of ref relative to base.
func resolveLocation(base, ref string) string {
	if ref == "" {
		return base
	}
	if !url.IsRelative(ref) || base == "" {
		return ref
	}
	parent, _ := url.Split(base, file.Scheme)
	return url.Join(parent, strings.TrimPrefix(ref, "./"))
}
