package ocdsmerge

import "strings"

// Warning is an advisory condition that never aborts a merge.
type Warning interface {
	Message() string
}

// DuplicateIDWarning reports that at least two objects in one array share an
// `id`, so identifier merge may conflate logically distinct elements.
type DuplicateIDWarning struct {
	RulePath RulePath
	ID       any
}

// Message implements Warning.
func (w DuplicateIDWarning) Message() string {
	return duplicateIDMessage(w.RulePath, w.ID)
}

// WarningHandler receives advisory warnings.
type WarningHandler interface {
	HandleWarning(Warning)
}

// WarningHandlerFunc adapts a function to WarningHandler.
type WarningHandlerFunc func(Warning)

// HandleWarning implements WarningHandler.
func (f WarningHandlerFunc) HandleWarning(w Warning) {
	if f != nil {
		f(w)
	}
}

type noopWarningHandler struct{}

func (noopWarningHandler) HandleWarning(Warning) {}

// CollisionPolicy controls what happens when array elements share an `id`.
type CollisionPolicy int

const (
	// CollisionWarn reports a DuplicateIDWarning (default).
	CollisionWarn CollisionPolicy = iota
	// CollisionIgnore drops the diagnostic.
	CollisionIgnore
	// CollisionRaise aborts the merge with a DuplicateIDError.
	CollisionRaise
)

func (p CollisionPolicy) String() string {
	switch p {
	case CollisionIgnore:
		return "ignore"
	case CollisionRaise:
		return "raise"
	default:
		return "warn"
	}
}

// ParseCollisionPolicy converts "warn", "ignore" or "raise".
func ParseCollisionPolicy(value string) (CollisionPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "warn":
		return CollisionWarn, true
	case "ignore":
		return CollisionIgnore, true
	case "raise":
		return CollisionRaise, true
	default:
		return CollisionWarn, false
	}
}
