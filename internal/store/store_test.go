package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"billdesk/internal/core"
	"billdesk/internal/query"

	"golang.org/x/text/language"
)

func clientIDs(cs []core.Client) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func seeded(ids ...string) *Store[ClientsState] {
	st := NewClients()
	items := make([]core.Client, len(ids))
	for i, id := range ids {
		items[i] = core.Client{ID: id, Name: "Client " + id, Status: core.ClientActive}
	}
	st.Dispatch(Loaded[core.Client]{Items: items})
	return st
}

func TestPendingSetsLoadingAndClearsError(t *testing.T) {
	st := seeded("a")
	st.Dispatch(Failed{Op: OpFetchAll, Message: "boom"})
	s := st.Dispatch(Started{Op: OpFetchAll})
	if !s.Loading || s.Error != "" {
		t.Fatalf("pending state = loading %v error %q", s.Loading, s.Error)
	}
}

func TestRejectedLeavesItemsAndSelection(t *testing.T) {
	st := seeded("A", "B")
	st.Dispatch(Selected[core.Client]{Item: core.Client{ID: "A", Name: "Client A"}})
	before := st.State()

	st.Dispatch(Started{Op: OpUpdate})
	s := st.Dispatch(Failed{Op: OpUpdate, Message: "Failed to update client"})

	if !reflect.DeepEqual(clientIDs(s.Items), []string{"A", "B"}) {
		t.Errorf("items = %v, want [A B]", clientIDs(s.Items))
	}
	if s.Selected == nil || !reflect.DeepEqual(*s.Selected, *before.Selected) {
		t.Errorf("selected changed: %+v", s.Selected)
	}
	if s.Loading || s.Error != "Failed to update client" {
		t.Errorf("loading %v error %q", s.Loading, s.Error)
	}
}

func TestCreateAppendsExactlyOne(t *testing.T) {
	st := seeded("A", "B")
	s := st.Dispatch(Created[core.Client]{Item: core.Client{ID: "C"}})
	if !reflect.DeepEqual(clientIDs(s.Items), []string{"A", "B", "C"}) {
		t.Errorf("items = %v", clientIDs(s.Items))
	}
}

func TestUpdateReplacesItemAndSelection(t *testing.T) {
	st := seeded("A", "B")
	st.Dispatch(Selected[core.Client]{Item: core.Client{ID: "B", Name: "old"}})
	s := st.Dispatch(Updated[core.Client]{Item: core.Client{ID: "B", Name: "new"}})

	if s.Items[1].Name != "new" || s.Selected.Name != "new" {
		t.Errorf("update not applied: items[1]=%q selected=%q", s.Items[1].Name, s.Selected.Name)
	}

	before := st.State()
	s = st.Dispatch(Updated[core.Client]{Item: core.Client{ID: "Z", Name: "ghost"}})
	if !reflect.DeepEqual(s.Items, before.Items) {
		t.Errorf("update of missing id changed items: %v", clientIDs(s.Items))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	st := seeded("A", "B")
	st.Dispatch(Selected[core.Client]{Item: core.Client{ID: "A"}})

	s := st.Dispatch(Deleted{ID: "missing"})
	if !reflect.DeepEqual(clientIDs(s.Items), []string{"A", "B"}) || s.Selected == nil {
		t.Fatalf("delete of missing id changed state: %v", clientIDs(s.Items))
	}

	s = st.Dispatch(Deleted{ID: "A"})
	if !reflect.DeepEqual(clientIDs(s.Items), []string{"B"}) {
		t.Errorf("items = %v, want [B]", clientIDs(s.Items))
	}
	if s.Selected != nil {
		t.Errorf("selected should be cleared, got %+v", s.Selected)
	}
}

func TestSnapshotsAreNotMutated(t *testing.T) {
	st := seeded("A", "B")
	snap := st.State()
	st.Dispatch(Updated[core.Client]{Item: core.Client{ID: "A", Name: "changed"}})
	st.Dispatch(Deleted{ID: "B"})
	st.Dispatch(Created[core.Client]{Item: core.Client{ID: "C"}})

	if snap.Items[0].Name != "Client A" || len(snap.Items) != 2 {
		t.Errorf("earlier snapshot mutated: %+v", snap.Items)
	}
}

func TestClientSelectedReplacesSelectionAndSubCollections(t *testing.T) {
	st := seeded("A", "B")
	st.Dispatch(ClientSelected{Client: core.Client{ID: "A"}, Invoices: []core.Invoice{{ID: "i1"}, {ID: "i2"}}})
	st.Dispatch(Started{Op: OpFetchByID})

	s := st.Dispatch(ClientSelected{Client: core.Client{ID: "B"}, Payments: []core.Payment{{ID: "p9"}}})
	if s.Selected == nil || s.Selected.ID != "B" {
		t.Fatalf("Selected = %+v, want B", s.Selected)
	}
	if s.Invoices == nil || len(s.Invoices) != 0 {
		t.Errorf("Invoices = %#v, want empty", s.Invoices)
	}
	if len(s.Payments) != 1 || s.Payments[0].ID != "p9" {
		t.Errorf("Payments = %+v", s.Payments)
	}
	if s.Loading || s.Error != "" {
		t.Errorf("loading = %v, error = %q", s.Loading, s.Error)
	}
}

func TestClientSubSelectionsAndTags(t *testing.T) {
	st := seeded("A")
	st.Dispatch(Selected[core.Client]{Item: core.Client{ID: "A"}})
	st.Dispatch(ClientInvoicesLoaded{Items: []core.Invoice{{ID: "i1"}}})
	st.Dispatch(ClientPaymentsLoaded{Items: []core.Payment{{ID: "p1"}}})
	st.Dispatch(FilterTagAdded{Tag: "vip"})
	s := st.Dispatch(FilterTagAdded{Tag: "vip"})
	if len(s.Invoices) != 1 || len(s.Payments) != 1 {
		t.Fatalf("sub-selections = %d invoices, %d payments", len(s.Invoices), len(s.Payments))
	}
	if !reflect.DeepEqual(s.Filters.Tags, []string{"vip"}) {
		t.Errorf("tags = %v, want [vip]", s.Filters.Tags)
	}

	s = st.Dispatch(FilterTagRemoved{Tag: "vip"})
	if len(s.Filters.Tags) != 0 {
		t.Errorf("tags = %v, want empty", s.Filters.Tags)
	}

	s = st.Dispatch(SelectionCleared{})
	if s.Selected != nil || len(s.Invoices) != 0 || len(s.Payments) != 0 {
		t.Errorf("SelectionCleared left %+v / %d / %d", s.Selected, len(s.Invoices), len(s.Payments))
	}
}

func TestDefaultSortsKeepInputOrder(t *testing.T) {
	tests := []struct {
		name string
		got  query.Sort
		want query.Direction
	}{
		{"invoices", NewInvoices().State().Sort, query.Desc},
		{"payments", NewPayments().State().Sort, query.Asc},
		{"clients", NewClients().State().Sort, query.Asc},
		{"products", NewProducts().State().Sort, query.Asc},
	}
	for _, tt := range tests {
		if tt.got.Field != "" || tt.got.Direction != tt.want {
			t.Errorf("%s default sort = %+v, want no field, %s", tt.name, tt.got, tt.want)
		}
	}

	pays := NewPayments()
	pays.Dispatch(Loaded[core.Payment]{Items: []core.Payment{
		{ID: "b", Date: core.NewDate(2024, 1, 1)},
		{ID: "a", Date: core.NewDate(2024, 3, 1)},
	}})
	got := VisiblePayments(pays.State(), language.English)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("VisiblePayments = %+v, want input order", got)
	}
}

func TestFiltersAndSort(t *testing.T) {
	st := NewInvoices()
	if s := st.State(); s.Sort.Field != "" || s.Sort.Direction != query.Desc {
		t.Fatalf("default sort = %+v, want no field, desc", s.Sort)
	}
	st.Dispatch(Loaded[core.Invoice]{Items: []core.Invoice{
		{ID: "1", Status: core.InvoicePaid, CreatedAt: core.NewDate(2024, 1, 1)},
		{ID: "2", Status: core.InvoicePending, CreatedAt: core.NewDate(2024, 2, 1)},
		{ID: "3", Status: core.InvoicePaid, CreatedAt: core.NewDate(2024, 3, 1)},
	}})
	st.Dispatch(FiltersSet[query.InvoiceFilters]{Filters: query.InvoiceFilters{Status: core.InvoicePaid}})

	// No sort field: backend order is kept.
	visible := VisibleInvoices(st.State(), language.English)
	if len(visible) != 2 || visible[0].ID != "1" || visible[1].ID != "3" {
		t.Fatalf("visible = %+v", visible)
	}
	st.Dispatch(SortSet{Sort: query.Sort{Field: "createdAt", Direction: query.Desc}})
	if got := VisibleInvoices(st.State(), language.English); got[0].ID != "3" {
		t.Errorf("desc first = %s, want 3", got[0].ID)
	}

	s := st.Dispatch(FiltersCleared{})
	if s.Filters.Status != "" {
		t.Errorf("filters not cleared: %+v", s.Filters)
	}
	s = st.Dispatch(SortSet{Sort: query.Sort{Field: "createdAt", Direction: query.Asc}})
	if got := VisibleInvoices(s, language.English); got[0].ID != "1" {
		t.Errorf("asc first = %s", got[0].ID)
	}
}

type friendlyErr struct{ msg string }

func (e friendlyErr) Error() string       { return "status 400: " + e.msg }
func (e friendlyErr) UserMessage() string { return e.msg }

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("fulfilled", func(t *testing.T) {
		st := NewPayments()
		err := Run(ctx, st, OpFetchAll, "Failed to fetch payments", func(ctx context.Context) (Event, error) {
			if !st.State().Loading {
				t.Errorf("task ran without pending state")
			}
			return Loaded[core.Payment]{Items: []core.Payment{{ID: "p"}}}, nil
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if s := st.State(); s.Loading || len(s.Items) != 1 {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("rejected with user message", func(t *testing.T) {
		st := NewPayments()
		wrapped := fmt.Errorf("create payment: %w", friendlyErr{msg: "Amount exceeds balance"})
		err := Run(ctx, st, OpCreate, "Failed to create payment", func(ctx context.Context) (Event, error) {
			return nil, wrapped
		})
		if !errors.Is(err, wrapped) {
			t.Fatalf("Run error = %v", err)
		}
		if s := st.State(); s.Error != "Amount exceeds balance" || s.Loading {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("rejected falls back", func(t *testing.T) {
		st := NewPayments()
		_ = Run(ctx, st, OpDelete, "Failed to delete payment", func(ctx context.Context) (Event, error) {
			return nil, errors.New("dial tcp: refused")
		})
		if s := st.State(); s.Error != "Failed to delete payment" {
			t.Errorf("error = %q", s.Error)
		}
	})

	t.Run("nil event settles", func(t *testing.T) {
		st := NewProducts()
		_ = Run(ctx, st, OpFetchByID, "", func(ctx context.Context) (Event, error) { return nil, nil })
		if st.State().Loading {
			t.Errorf("loading not cleared")
		}
	})
}

func TestSubscribeAndVersion(t *testing.T) {
	st := NewProducts()
	var mu sync.Mutex
	var seen int
	cancel := st.Subscribe(func(ProductsState) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	st.Dispatch(Started{Op: OpFetchAll})
	st.Dispatch(Settled{Op: OpFetchAll})
	cancel()
	st.Dispatch(ErrorCleared{})

	if seen != 2 {
		t.Errorf("subscriber saw %d states, want 2", seen)
	}
	if st.Version() != 3 {
		t.Errorf("Version() = %d, want 3", st.Version())
	}
}

func TestConcurrentDispatchLastResolutionWins(t *testing.T) {
	st := NewInvoices()
	st.Dispatch(Loaded[core.Invoice]{Items: []core.Invoice{{ID: "x", Notes: "v0"}}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st.Dispatch(Updated[core.Invoice]{Item: core.Invoice{ID: "x", Notes: fmt.Sprintf("v%d", i)}})
		}(i)
	}
	wg.Wait()
	st.Dispatch(Updated[core.Invoice]{Item: core.Invoice{ID: "x", Notes: "final"}})

	s := st.State()
	if len(s.Items) != 1 || s.Items[0].Notes != "final" {
		t.Errorf("items = %+v", s.Items)
	}
	if st.Version() != 52 {
		t.Errorf("Version() = %d, want 52", st.Version())
	}
}
