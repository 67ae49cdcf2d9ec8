// Package ranking orders scored records into dense, 1-based leaderboards.
//
// The engine is generic over the caller's record type. Callers supply selector
// functions for the fields the engine needs (id, score, ratio numerator and
// denominator); every other field travels through untouched. All functions
// are pure: they never mutate the input slice or the records in it and keep
// no state between calls.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
)

// minDenominator is the floor applied to ratio denominators.
const minDenominator = 1.0

// KeyFunc extracts a numeric ranking key from a record.
type KeyFunc[T any] func(T) float64

// IDFunc extracts the stable identifier of a record.
type IDFunc[T any] func(T) string

// Ranked is a record placed in a leaderboard.
type Ranked[T any] struct {
	// Rank is the 1-based position after ordering.
	Rank int
	// Score is the key the record was ordered by. In ratio mode this is the
	// computed ratio.
	Score float64
	// Item is the caller's record, unchanged.
	Item T
}

// Result is an ordered leaderboard.
type Result[T any] struct {
	Entries []Ranked[T]
	// Total is the population size before any limit was applied.
	Total int
}

// Position locates one record inside a ranked population.
type Position struct {
	Rank  int
	Total int
}

// Direct ranks items by key, highest first. Items with equal keys keep their
// relative input order.
func Direct[T any](items []T, key KeyFunc[T], opts ...Option) (Result[T], error) {
	if key == nil {
		return Result[T]{}, fmt.Errorf("direct: nil key selector: %w", ErrInvalidInput)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return Result[T]{}, fmt.Errorf("direct: %w", err)
	}
	return build(items, order(items, key), cfg.limit), nil
}

// ByRatio ranks items by num/max(den, 1), highest first. A zero denominator
// is treated as one, so 0/0 ranks as 0 and 5/0 ranks as 5.
func ByRatio[T any](items []T, num, den KeyFunc[T], opts ...Option) (Result[T], error) {
	if num == nil || den == nil {
		return Result[T]{}, fmt.Errorf("by ratio: nil selector: %w", ErrInvalidInput)
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return Result[T]{}, fmt.Errorf("by ratio: %w", err)
	}
	ratio := func(item T) float64 {
		return Ratio(num(item), den(item))
	}
	return build(items, order(items, ratio), cfg.limit), nil
}

// FindPosition ranks items exactly like Direct and reports where the item
// with the given id landed. It returns ErrNotFound when no item has that id.
func FindPosition[T any](items []T, id string, idOf IDFunc[T], key KeyFunc[T]) (Position, error) {
	if idOf == nil || key == nil {
		return Position{}, fmt.Errorf("find position: nil selector: %w", ErrInvalidInput)
	}
	for i, k := range order(items, key) {
		if idOf(items[k.index]) == id {
			return Position{Rank: i + 1, Total: len(items)}, nil
		}
	}
	return Position{}, fmt.Errorf("find position %q: %w", id, ErrNotFound)
}

// Ratio returns num/max(den, 1).
func Ratio(num, den float64) float64 {
	return num / max(den, minDenominator)
}

// keyed pairs an input index with its precomputed key so selectors run once
// per item.
type keyed struct {
	index int
	key   float64
}

// order returns the input positions sorted by key descending. The sort is
// stable; NaN keys sort after every number.
func order[T any](items []T, key KeyFunc[T]) []keyed {
	keys := make([]keyed, len(items))
	for i, item := range items {
		keys[i] = keyed{index: i, key: key(item)}
	}
	slices.SortStableFunc(keys, func(a, b keyed) int {
		return cmp.Compare(b.key, a.key)
	})
	return keys
}

func build[T any](items []T, keys []keyed, limit int) Result[T] {
	n := len(keys)
	if limit > 0 && limit < n {
		n = limit
	}
	entries := make([]Ranked[T], n)
	for i := range n {
		entries[i] = Ranked[T]{
			Rank:  i + 1,
			Score: keys[i].key,
			Item:  items[keys[i].index],
		}
	}
	return Result[T]{Entries: entries, Total: len(items)}
}
