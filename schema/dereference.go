package schema

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

var (
	// ErrCircularRef is returned when a $ref chain refers back to itself.
	ErrCircularRef = errors.New("schema: circular $ref")
	// ErrUnresolvedRef is returned for refs that cannot be followed.
	ErrUnresolvedRef = errors.New("schema: unresolved $ref")
)

// Dereference replaces every local $ref ("#/definitions/...") in doc with the
// referenced value. Sibling keywords of a $ref are ignored. doc is not
// modified; resolved definitions may be shared within the result.
func Dereference(doc map[string]any) (map[string]any, error) {
	r := newResolver(doc, "", nil)
	out, err := r.resolve(doc, "")
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

type fetchFunc func(location string) (map[string]any, error)

type resolver struct {
	roots    map[string]map[string]any
	fetch    fetchFunc
	resolved map[string]any
	visiting map[string]bool
}

func newResolver(root map[string]any, location string, fetch fetchFunc) *resolver {
	return &resolver{
		roots:    map[string]map[string]any{location: root},
		fetch:    fetch,
		resolved: map[string]any{},
		visiting: map[string]bool{},
	}
}

// resolve copies value, following refs relative to the document at base.
func (r *resolver) resolve(value any, base string) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		if ref, ok := typed["$ref"].(string); ok {
			return r.follow(ref, base)
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			resolved, err := r.resolve(item, base)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			resolved, err := r.resolve(item, base)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *resolver) follow(ref, base string) (any, error) {
	location, fragment, _ := strings.Cut(ref, "#")
	if location != "" {
		location = resolveLocation(base, location)
	} else {
		location = base
	}
	key := location + "#" + fragment
	if value, ok := r.resolved[key]; ok {
		return value, nil
	}
	if r.visiting[key] {
		return nil, fmt.Errorf("%w: %s", ErrCircularRef, ref)
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	root, err := r.root(location)
	if err != nil {
		return nil, err
	}
	target, err := pointer(root, fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedRef, ref, err)
	}
	value, err := r.resolve(target, location)
	if err != nil {
		return nil, err
	}
	r.resolved[key] = value
	return value, nil
}

func (r *resolver) root(location string) (map[string]any, error) {
	if root, ok := r.roots[location]; ok {
		return root, nil
	}
	if r.fetch == nil {
		return nil, fmt.Errorf("%w: external document %s", ErrUnresolvedRef, location)
	}
	root, err := r.fetch(location)
	if err != nil {
		return nil, err
	}
	r.roots[location] = root
	return root, nil
}

// pointer evaluates a URI fragment such as "/definitions/Award" against root.
// An empty fragment selects the whole document.
func pointer(root map[string]any, fragment string) (any, error) {
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		return nil, err
	}
	ptr, err := jsonpointer.New(decoded)
	if err != nil {
		return nil, err
	}
	target, _, err := ptr.Get(root)
	if err != nil {
		return nil, err
	}
	return target, nil
}
