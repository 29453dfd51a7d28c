package ocdsmerge

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

// IdentityKind distinguishes how an array element identity was produced.
// Identities of different kinds never match each other.
type IdentityKind uint8

const (
	// IdentityDeclared identities come from the element's own `id` field.
	IdentityDeclared IdentityKind = iota
	// IdentityMinted identities are process-unique tokens for elements that
	// must never be matched across releases.
	IdentityMinted
	// IdentityPosition identities are the element's index in its array.
	IdentityPosition
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityDeclared:
		return "declared"
	case IdentityMinted:
		return "minted"
	case IdentityPosition:
		return "position"
	default:
		return "unknown"
	}
}

func (k IdentityKind) marker() byte {
	switch k {
	case IdentityMinted:
		return '~'
	case IdentityPosition:
		return '#'
	default:
		return '='
	}
}

// Identity is the value used to match array elements across releases.
type Identity struct {
	Kind  IdentityKind
	Value any
}

// DeclaredIdentity wraps an element's `id` value.
func DeclaredIdentity(value any) Identity {
	return Identity{Kind: IdentityDeclared, Value: value}
}

// PositionIdentity wraps an element index.
func PositionIdentity(index int) Identity {
	return Identity{Kind: IdentityPosition, Value: index}
}

// MintIdentity returns a fresh identity that matches nothing else.
func MintIdentity() Identity {
	return Identity{Kind: IdentityMinted, Value: uuid.NewString()}
}

// Key encodes the identity so that equal identities produce equal keys.
// Declared values are compared through their JSON encoding.
func (id Identity) Key() string {
	var payload string
	switch id.Kind {
	case IdentityPosition:
		if index, ok := id.Value.(int); ok {
			payload = strconv.Itoa(index)
		} else {
			payload = jsonvalue.String(id.Value)
		}
	case IdentityMinted:
		payload = jsonvalue.String(id.Value)
	default:
		payload = canonicalIdentity(id.Value)
	}
	return string(id.Kind.marker()) + strconv.Itoa(len(payload)) + ":" + payload
}

// String renders the identity the way it appears in diagnostics.
func (id Identity) String() string {
	return jsonvalue.String(id.Value)
}

func canonicalIdentity(value any) string {
	if key, ok := jsonvalue.NumberKey(value); ok {
		return key
	}
	data, err := json.Marshal(value)
	if err != nil {
		return jsonvalue.Render(value)
	}
	return string(data)
}

// Segment is one step of a Path: either an object field or an array element.
type Segment struct {
	name     string
	element  bool
	identity Identity
	original any
	declared bool
}

// Field returns a segment addressing the named object member.
func Field(name string) Segment {
	return Segment{name: name}
}

// Element returns a segment addressing the array element with identity. When
// declared is true, original holds the element's literal `id` value so that it
// can be restored without coercion.
func Element(identity Identity, original any, declared bool) Segment {
	return Segment{
		element:  true,
		identity: identity,
		original: original,
		declared: declared,
	}
}

// IsElement reports whether the segment addresses an array element.
func (s Segment) IsElement() bool {
	return s.element
}

// Name returns the field name of a field segment.
func (s Segment) Name() string {
	return s.name
}

// Identity returns the element identity of an element segment.
func (s Segment) Identity() Identity {
	return s.identity
}

// Original returns the literal `id` value an element segment was built from.
func (s Segment) Original() (any, bool) {
	return s.original, s.declared
}

func (s Segment) key() string {
	if s.element {
		return "[" + s.identity.Key() + "]"
	}
	return "." + strconv.Quote(s.name)
}

func (s Segment) String() string {
	if s.element {
		return s.identity.String()
	}
	return s.name
}

// Path addresses a value inside a release. Paths are immutable; Append returns
// a new path.
type Path struct {
	segments []Segment
	key      string
}

// NewPath builds a path from segments.
func NewPath(segments ...Segment) Path {
	var path Path
	for _, segment := range segments {
		path = path.Append(segment)
	}
	return path
}

// FieldPath builds a path made only of field segments.
func FieldPath(names ...string) Path {
	segments := make([]Segment, len(names))
	for i, name := range names {
		segments[i] = Field(name)
	}
	return NewPath(segments...)
}

// Append returns a new path extended by segment.
func (p Path) Append(segment Segment) Path {
	segments := make([]Segment, len(p.segments), len(p.segments)+1)
	copy(segments, p.segments)
	return Path{
		segments: append(segments, segment),
		key:      p.key + segment.key(),
	}
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// Segment returns the i-th segment.
func (p Path) Segment(i int) Segment {
	return p.segments[i]
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Key returns an injective string encoding of the path, usable as a map key.
// The key of a prefix is a string prefix of the key.
func (p Path) Key() string {
	return p.key
}

// Equal reports whether both paths hold the same segments.
func (p Path) Equal(other Path) bool {
	return p.key == other.key
}

// Prefix returns the first n segments.
func (p Path) Prefix(n int) Path {
	return NewPath(p.segments[:n]...)
}

// RulePath strips element segments.
func (p Path) RulePath() RulePath {
	out := make(RulePath, 0, len(p.segments))
	for _, segment := range p.segments {
		if !segment.element {
			out = append(out, segment.name)
		}
	}
	return out
}

// String renders the path as a slash separated pointer, e.g. /tender/items/1.
func (p Path) String() string {
	parts := make([]string, len(p.segments))
	for i, segment := range p.segments {
		parts[i] = segment.String()
	}
	return "/" + strings.Join(parts, "/")
}

// RulePath is a field path without array identities, used to key merge
// directives and overrides.
type RulePath []string

// ParseRulePath splits a dotted path such as "tender.items".
func ParseRulePath(value string) RulePath {
	value = strings.TrimSpace(value)
	if value == "" {
		return RulePath{}
	}
	return RulePath(strings.Split(value, "."))
}

// Append returns a new rule path extended by name.
func (r RulePath) Append(name string) RulePath {
	out := make(RulePath, len(r), len(r)+1)
	copy(out, r)
	return append(out, name)
}

func (r RulePath) key() string {
	var b strings.Builder
	for _, name := range r {
		b.WriteString(strconv.Quote(name))
	}
	return b.String()
}

func (r RulePath) String() string {
	return strings.Join(r, ".")
}
