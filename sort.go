package ocdsmerge

import (
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

// SortReleases returns releases ordered ascending by their `date` string. The
// sort is stable. A single object is returned without inspecting its date so
// that a compiled release can be merged on its own.
func SortReleases(releases []any) ([]any, error) {
	if len(releases) == 1 {
		if _, ok := releases[0].(map[string]any); ok {
			return releases, nil
		}
	}
	dates := make([]string, len(releases))
	if err := checkReleases(releases, dates); err != nil {
		return nil, err
	}
	order := make([]int, len(releases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]] < dates[order[b]]
	})
	return reorder(releases, order), nil
}

// checkReleases classifies defects in three passes so the reported error does
// not depend on input order: structural defects first, then null dates, then
// non-string dates.
func checkReleases(releases []any, dates []string) error {
	for i, release := range releases {
		doc, ok := release.(map[string]any)
		if !ok {
			return nonObjectReleaseError(i, release)
		}
		if _, ok := doc["date"]; !ok {
			return newReleaseError(MissingDate, i, "The `date` field of at least one release is missing.")
		}
	}
	for i, release := range releases {
		if release.(map[string]any)["date"] == nil {
			return newReleaseError(NullDate, i, "The `date` field of at least one release is null.")
		}
	}
	for i, release := range releases {
		date, ok := release.(map[string]any)["date"].(string)
		if !ok {
			return newReleaseError(NonStringDate, i, "The `date` field of at least one release is not a string.")
		}
		dates[i] = date
	}
	return nil
}

func reorder(releases []any, order []int) []any {
	out := make([]any, len(order))
	for i, index := range order {
		out[i] = releases[index]
	}
	return out
}

type orderKind int

const (
	orderString orderKind = iota
	orderNumber
	orderTime
)

type orderKey struct {
	kind   orderKind
	text   string
	number float64
	time   time.Time
}

func (k orderKey) less(other orderKey) bool {
	switch k.kind {
	case orderNumber:
		return k.number < other.number
	case orderTime:
		return k.time.Before(other.time)
	default:
		return k.text < other.text
	}
}

func newOrderKey(value any) (orderKey, bool) {
	switch typed := value.(type) {
	case string:
		return orderKey{kind: orderString, text: typed}, true
	case time.Time:
		return orderKey{kind: orderTime, time: typed}, true
	}
	if number, ok := jsonvalue.Number(value); ok {
		return orderKey{kind: orderNumber, number: number}, true
	}
	return orderKey{}, false
}

// sortByRule orders releases by the key rule yields for each of them. Keys
// must all be strings, all numbers or all times.
func sortByRule(rule CompiledRule, releases []any) ([]any, error) {
	if len(releases) == 1 {
		if _, ok := releases[0].(map[string]any); ok {
			return releases, nil
		}
	}
	for i, release := range releases {
		if _, ok := release.(map[string]any); !ok {
			return nil, nonObjectReleaseError(i, release)
		}
	}
	now := time.Now()
	keys := make([]orderKey, len(releases))
	for i, release := range releases {
		value, err := rule.Evaluate(OrderContext{Release: release.(map[string]any), Index: i, Now: &now})
		if err != nil {
			return nil, err
		}
		key, ok := newOrderKey(value)
		if !ok {
			return nil, fmt.Errorf("%w: release %d yielded %T", ErrOrderKey, i, value)
		}
		if i > 0 && key.kind != keys[0].kind {
			return nil, fmt.Errorf("%w: release %d yielded %T, release 0 a different kind", ErrOrderKey, i, value)
		}
		keys[i] = key
	}
	order := make([]int, len(releases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]].less(keys[order[b]])
	})
	return reorder(releases, order), nil
}
