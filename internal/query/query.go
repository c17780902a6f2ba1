// Package query narrows and orders record collections for display.
//
// Filtering is conjunctive and sorting is stable and single-field, so
// filtering then sorting yields the same sequence as sorting then filtering.
// Neither operation mutates its input.
package query

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps anything but "desc" to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort selects a single field and direction. An empty Field means input order.
type Sort struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction"`
}

// Predicate reports whether a record passes one filter.
type Predicate[T any] func(T) bool

// Filter returns the records satisfying every non-nil predicate, in input
// order. The result is always a fresh slice.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range active {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindTime
)

// Field extracts a sortable value from a record.
type Field[T any] struct {
	kind fieldKind
	str  func(T) string
	num  func(T) decimal.Decimal
	tm   func(T) time.Time
}

func StringField[T any](get func(T) string) Field[T] {
	return Field[T]{kind: kindString, str: get}
}

func NumberField[T any](get func(T) decimal.Decimal) Field[T] {
	return Field[T]{kind: kindNumber, num: get}
}

func IntField[T any](get func(T) int64) Field[T] {
	return Field[T]{kind: kindNumber, num: func(v T) decimal.Decimal { return decimal.NewFromInt(get(v)) }}
}

func TimeField[T any](get func(T) time.Time) Field[T] {
	return Field[T]{kind: kindTime, tm: get}
}

// Fields is the dispatch table of sortable fields of a record type.
type Fields[T any] map[string]Field[T]

// Names lists the sortable field names in lexical order.
func (fs Fields[T]) Names() []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// SortBy returns a stably sorted copy of items. String fields compare with
// the collation rules of tag. A field absent from fields leaves the copy in
// input order.
func SortBy[T any](items []T, s Sort, fields Fields[T], tag language.Tag) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	f, ok := fields[s.Field]
	if !ok {
		return out
	}
	cmp := comparator(f, tag)
	if s.Direction == Desc {
		asc := cmp
		cmp = func(a, b T) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func comparator[T any](f Field[T], tag language.Tag) func(a, b T) int {
	switch f.kind {
	case kindString:
		// Collators keep internal buffers; one per sort call.
		col := collate.New(tag)
		return func(a, b T) int { return col.CompareString(f.str(a), f.str(b)) }
	case kindNumber:
		return func(a, b T) int { return f.num(a).Cmp(f.num(b)) }
	case kindTime:
		return func(a, b T) int { return f.tm(a).Compare(f.tm(b)) }
	}
	return func(a, b T) int { return 0 }
}

// Equals passes records whose extracted value equals want.
func Equals[T any, V comparable](get func(T) V, want V) Predicate[T] {
	return func(v T) bool { return get(v) == want }
}

// DateBetween passes records whose date lies within [from, to]. A zero
// bound imposes no constraint on its side; a zero record date fails any
// bounded range.
func DateBetween[T any](get func(T) time.Time, from, to time.Time) Predicate[T] {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	return func(v T) bool {
		t := get(v)
		if t.IsZero() {
			return false
		}
		if !from.IsZero() && t.Before(from) {
			return false
		}
		if !to.IsZero() && t.After(to) {
			return false
		}
		return true
	}
}

// ContainsFold passes records where any of the text fields contains q,
// ignoring case. An empty q is no constraint.
func ContainsFold[T any](q string, fields ...func(T) string) Predicate[T] {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	return func(v T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(v)), q) {
				return true
			}
		}
		return false
	}
}

// TagsIntersect passes records sharing at least one tag with want.
func TagsIntersect[T any](get func(T) []string, want []string) Predicate[T] {
	if len(want) == 0 {
		return nil
	}
	return func(v T) bool {
		for _, t := range get(v) {
			if slices.Contains(want, t) {
				return true
			}
		}
		return false
	}
}

// Between passes records whose amount lies within [lo, hi]; nil bounds
// are open.
func Between[T any](get func(T) decimal.Decimal, lo, hi *decimal.Decimal) Predicate[T] {
	if lo == nil && hi == nil {
		return nil
	}
	return func(v T) bool {
		x := get(v)
		if lo != nil && x.LessThan(*lo) {
			return false
		}
		if hi != nil && x.GreaterThan(*hi) {
			return false
		}
		return true
	}
}

// EndOfDay widens a date-only upper bound to cover the whole day.
func EndOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
