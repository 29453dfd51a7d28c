package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrInvalidRef = errors.New("state: invalid ref")

// Kind selects the merged form stored for an ocid.
type Kind string

const (
	KindCompiled  Kind = "compiled"
	KindVersioned Kind = "versioned"
)

// ParseKind converts "compiled" or "versioned".
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindCompiled:
		return KindCompiled, nil
	case KindVersioned:
		return KindVersioned, nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidRef, value)
	}
}

// Ref identifies one persisted merged record.
type Ref struct {
	OCID string
	Kind Kind
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	ocid := strings.TrimSpace(r.OCID)
	if ocid == "" {
		return "", fmt.Errorf("%w: ocid is required", ErrInvalidRef)
	}
	switch r.Kind {
	case KindCompiled, KindVersioned:
		return fmt.Sprintf("%s/%s", r.Kind, ocid), nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidRef, r.Kind)
	}
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Releases   int               `json:"releases,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one merged document per Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (doc map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, doc map[string]any, meta Meta) (Meta, error)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Releases != 0 {
		out.Releases = override.Releases
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
