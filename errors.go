package ocdsmerge

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

// Sentinel errors for errors.Is checks. Use errors.As with the typed errors
// below for the offending path, value or release position.
var (
	ErrMissingDate      = errors.New("ocdsmerge: missing date")
	ErrNullDate         = errors.New("ocdsmerge: null date")
	ErrNonStringDate    = errors.New("ocdsmerge: non-string date")
	ErrNonObjectRelease = errors.New("ocdsmerge: non-object release")
	ErrInconsistentType = errors.New("ocdsmerge: inconsistent type")
	ErrDuplicateID      = errors.New("ocdsmerge: duplicate id")
	ErrOrderKey         = errors.New("ocdsmerge: invalid order key")
)

// ReleaseErrorKind classifies defects of individual input releases.
type ReleaseErrorKind int

const (
	MissingDate ReleaseErrorKind = iota
	NullDate
	NonStringDate
	NonObjectRelease
)

func (k ReleaseErrorKind) sentinel() error {
	switch k {
	case MissingDate:
		return ErrMissingDate
	case NullDate:
		return ErrNullDate
	case NonStringDate:
		return ErrNonStringDate
	default:
		return ErrNonObjectRelease
	}
}

// ReleaseError reports a release that cannot be sorted or merged.
type ReleaseError struct {
	Kind    ReleaseErrorKind
	Index   int
	Message string
}

func (e *ReleaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "ocdsmerge: " + e.Message
}

// Is matches the sentinel error for the kind.
func (e *ReleaseError) Is(target error) bool {
	return e != nil && target == e.Kind.sentinel()
}

func newReleaseError(kind ReleaseErrorKind, index int, message string) *ReleaseError {
	return &ReleaseError{Kind: kind, Index: index, Message: message}
}

func nonObjectReleaseError(index int, release any) *ReleaseError {
	var message string
	switch release.(type) {
	case string:
		message = "At least one release is a string, not an object. Use json.Unmarshal to parse the string as JSON."
	case []byte:
		message = "At least one release is a byte-string, not an object. Use json.Unmarshal to parse the byte-string as JSON."
	case []any, []map[string]any:
		message = "At least one release is a list, not an object."
	case nil:
		message = "At least one release is null, not an object."
	default:
		message = fmt.Sprintf("At least one release is a %T, not an object.", release)
	}
	return newReleaseError(NonObjectRelease, index, message)
}

// InconsistentTypeError reports a path whose shape differs between releases,
// e.g. a literal in an earlier release and an object in a later one.
type InconsistentTypeError struct {
	// Path is the slash separated location of the earlier value.
	Path string
	// Key is the member or element the later release descends into, if any.
	Key string
	// Value is the earlier value (the latest recorded value for histories).
	Value any
	// Earlier is the shape of the earlier value.
	Earlier jsonvalue.Shape
	// Current is the shape required by the later release.
	Current jsonvalue.Shape
}

func (e *InconsistentTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var earlier string
	switch e.Earlier {
	case jsonvalue.ShapeObject:
		earlier = fmt.Sprintf("An earlier release had the object %s for %s", jsonvalue.Render(e.Value), e.Path)
	case jsonvalue.ShapeArray:
		earlier = fmt.Sprintf("An earlier release had the array %s for %s", jsonvalue.Render(e.Value), e.Path)
	default:
		earlier = fmt.Sprintf("An earlier release had the value %s for %s", jsonvalue.Render(e.Value), e.Path)
	}
	var current string
	switch e.Current {
	case jsonvalue.ShapeArray:
		current = "but the current release has an array"
	case jsonvalue.ShapeObject:
		current = fmt.Sprintf("but the current release has an object with a %q key", e.Key)
	default:
		current = "but the current release has a literal value"
	}
	return "ocdsmerge: " + earlier + ", " + current
}

// Is matches ErrInconsistentType.
func (e *InconsistentTypeError) Is(target error) bool {
	return target == ErrInconsistentType
}

// DuplicateIDError is returned instead of a warning when the collision policy
// is CollisionRaise.
type DuplicateIDError struct {
	RulePath RulePath
	ID       any
}

func (e *DuplicateIDError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "ocdsmerge: " + duplicateIDMessage(e.RulePath, e.ID)
}

// Is matches ErrDuplicateID.
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

func duplicateIDMessage(path RulePath, id any) string {
	return fmt.Sprintf("Multiple objects have the `id` value %s in the `%s` array", jsonvalue.Render(id), path.String())
}
