package store

import (
	"slices"

	"billdesk/internal/query"
)

// Entity is a record with a backend-assigned identity.
type Entity interface {
	EntityID() string
}

// EntityState is the state of one entity container.
type EntityState[T Entity, F any] struct {
	Items    []T        `json:"items"`
	Selected *T         `json:"selected"`
	Loading  bool       `json:"loading"`
	Error    string     `json:"error,omitempty"`
	Filters  F          `json:"filters"`
	Sort     query.Sort `json:"sort"`
}

// Reduce implements the pending / fulfilled / rejected transitions shared by
// all entity containers. Unknown events return the state unchanged.
func Reduce[T Entity, F any](s EntityState[T, F], ev Event) EntityState[T, F] {
	switch e := ev.(type) {
	case Started:
		s.Loading = true
		s.Error = ""
	case Failed:
		s.Loading = false
		s.Error = e.Message
	case Settled:
		s.Loading = false
	case Loaded[T]:
		s.Items = slices.Clone(e.Items)
		if s.Items == nil {
			s.Items = []T{}
		}
		s.Loading = false
	case Selected[T]:
		item := e.Item
		s.Selected = &item
		s.Loading = false
	case Created[T]:
		items := make([]T, 0, len(s.Items)+1)
		s.Items = append(append(items, s.Items...), e.Item)
		s.Loading = false
	case Updated[T]:
		s.Items = replaceByID(s.Items, e.Item)
		if s.Selected != nil && (*s.Selected).EntityID() == e.Item.EntityID() {
			item := e.Item
			s.Selected = &item
		}
		s.Loading = false
	case Deleted:
		s.Items = removeByID(s.Items, e.ID)
		if s.Selected != nil && (*s.Selected).EntityID() == e.ID {
			s.Selected = nil
		}
		s.Loading = false
	case FiltersSet[F]:
		s.Filters = e.Filters
	case FiltersCleared:
		var zero F
		s.Filters = zero
	case SortSet:
		s.Sort = e.Sort
	case SelectionCleared:
		s.Selected = nil
	case ErrorCleared:
		s.Error = ""
	}
	return s
}

// replaceByID returns a copy of items with the record matching item's id
// replaced. A missing id yields an unchanged copy.
func replaceByID[T Entity](items []T, item T) []T {
	idx := slices.IndexFunc(items, func(v T) bool { return v.EntityID() == item.EntityID() })
	if idx < 0 {
		return items
	}
	out := slices.Clone(items)
	out[idx] = item
	return out
}

func removeByID[T Entity](items []T, id string) []T {
	if !slices.ContainsFunc(items, func(v T) bool { return v.EntityID() == id }) {
		return items
	}
	out := make([]T, 0, len(items)-1)
	for _, v := range items {
		if v.EntityID() != id {
			out = append(out, v)
		}
	}
	return out
}
