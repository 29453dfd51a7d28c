package ocdsmerge

import (
	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

// arrayNode is an array under reconstruction. index maps identity keys to
// positions in items so elements can be found again by later paths.
type arrayNode struct {
	items []any
	index map[string]int
}

func newArrayNode() *arrayNode {
	return &arrayNode{index: map[string]int{}}
}

func (a *arrayNode) element(segment Segment) map[string]any {
	key := segment.Identity().Key()
	if i, ok := a.index[key]; ok {
		return a.items[i].(map[string]any)
	}
	element := map[string]any{}
	if original, ok := segment.Original(); ok && original != nil {
		element["id"] = jsonvalue.Clone(original)
	}
	a.index[key] = len(a.items)
	a.items = append(a.items, element)
	return element
}

// Unflatten rebuilds a nested document from flat. Paths are visited in
// insertion order, so array elements appear in the order their identities were
// first seen. Null leaves are omitted. A path whose shape contradicts an
// earlier path fails with an *InconsistentTypeError.
func Unflatten(flat *Flattened) (map[string]any, error) {
	root := map[string]any{}
	if flat == nil {
		return root, nil
	}
	var err error
	flat.Range(func(path Path, value any) bool {
		err = place(root, path, value)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return materialize(root).(map[string]any), nil
}

func place(root map[string]any, path Path, value any) error {
	var node any = root
	inElement := false
	last := path.Len() - 1
	for i := 0; i <= last; i++ {
		segment := path.Segment(i)

		if array, ok := node.(*arrayNode); ok {
			element := array.element(segment)
			if i == last {
				return nil
			}
			node = element
			inElement = true
			continue
		}

		object := node.(map[string]any)
		name := segment.Name()
		child, exists := object[name]

		if i == last {
			if exists {
				if inElement && name == "id" {
					if id, ok := elementID(value); ok {
						object[name] = id
					}
					return nil
				}
				if value != nil && jsonvalue.ShapeOf(value) == jsonvalue.ShapeLiteral && isNode(child) {
					return inconsistent(path.Prefix(i+1), child, "", jsonvalue.ShapeLiteral)
				}
				return nil
			}
			if value != nil {
				object[name] = jsonvalue.Clone(value)
			}
			return nil
		}

		next := path.Segment(i + 1)
		if !exists {
			child = newNode(next)
			object[name] = child
		} else {
			coerced, err := descend(child, next, path.Prefix(i+1))
			if err != nil {
				return err
			}
			child = coerced
			object[name] = child
		}
		node = child
		inElement = false
	}
	return nil
}

// elementID returns the latest literal value of an element's id entry. The
// element was seeded with the id of the path that created it, which a later
// release may have changed when elements are matched by position.
func elementID(value any) (any, bool) {
	if history, ok := value.([]any); ok && IsHistory(history) {
		value = latestValue(history)
	}
	if value == nil || jsonvalue.ShapeOf(value) != jsonvalue.ShapeLiteral {
		return nil, false
	}
	return jsonvalue.Clone(value), true
}

func newNode(next Segment) any {
	if next.IsElement() {
		return newArrayNode()
	}
	return map[string]any{}
}

// descend checks that child can hold next, promoting an empty array leaf to
// an array under reconstruction.
func descend(child any, next Segment, at Path) (any, error) {
	if next.IsElement() {
		switch typed := child.(type) {
		case *arrayNode:
			return typed, nil
		case []any:
			if len(typed) == 0 {
				return newArrayNode(), nil
			}
		}
		return nil, inconsistent(at, child, next.String(), jsonvalue.ShapeArray)
	}
	if object, ok := child.(map[string]any); ok {
		return object, nil
	}
	return nil, inconsistent(at, child, next.Name(), jsonvalue.ShapeObject)
}

func isNode(value any) bool {
	switch value.(type) {
	case map[string]any, *arrayNode:
		return true
	default:
		return false
	}
}

func inconsistent(at Path, existing any, key string, current jsonvalue.Shape) error {
	value := materialize(existing)
	if history, ok := value.([]any); ok && IsHistory(history) {
		value = latestValue(history)
	}
	return &InconsistentTypeError{
		Path:    at.String(),
		Key:     key,
		Value:   value,
		Earlier: jsonvalue.ShapeOf(value),
		Current: current,
	}
}

// materialize converts arrays under reconstruction into plain slices.
func materialize(node any) any {
	switch typed := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = materialize(value)
		}
		return out
	case *arrayNode:
		out := make([]any, len(typed.items))
		for i, item := range typed.items {
			out[i] = materialize(item)
		}
		return out
	default:
		return node
	}
}
