package query

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"billdesk/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

type row struct {
	ID    string
	Name  string
	Score int64
	When  time.Time
}

var rowFields = Fields[row]{
	"name":  StringField(func(r row) string { return r.Name }),
	"score": IntField(func(r row) int64 { return r.Score }),
	"when":  TimeField(func(r row) time.Time { return r.When }),
}

func ids(rs []row) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestSortByStable(t *testing.T) {
	rows := []row{
		{ID: "a", Score: 2},
		{ID: "b", Score: 1},
		{ID: "c", Score: 2},
		{ID: "d", Score: 1},
		{ID: "e", Score: 3},
	}
	tests := []struct {
		dir  Direction
		want []string
	}{
		{Asc, []string{"b", "d", "a", "c", "e"}},
		{Desc, []string{"e", "a", "c", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			got := ids(SortBy(rows, Sort{Field: "score", Direction: tt.dir}, rowFields, language.English))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortBy() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := ids(rows); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("input mutated: %v", got)
	}
}

func TestSortByUnknownFieldKeepsOrder(t *testing.T) {
	rows := []row{{ID: "z"}, {ID: "a"}, {ID: "m"}}
	for _, field := range []string{"", "nope"} {
		got := ids(SortBy(rows, Sort{Field: field, Direction: Desc}, rowFields, language.English))
		if !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
			t.Errorf("field %q: SortBy() = %v", field, got)
		}
	}
	if got := SortBy[row](nil, Sort{Field: "name"}, rowFields, language.English); got == nil || len(got) != 0 {
		t.Errorf("SortBy(nil) = %#v, want empty slice", got)
	}
}

func TestSortByLocaleAware(t *testing.T) {
	rows := []row{{ID: "1", Name: "Zoe"}, {ID: "2", Name: "émile"}, {ID: "3", Name: "Adam"}, {ID: "4", Name: "bob"}}
	got := ids(SortBy(rows, Sort{Field: "name", Direction: Asc}, rowFields, language.English))
	want := []string{"3", "4", "2", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortBy(name) = %v, want %v", got, want)
	}
}

func TestSortByTime(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{ID: "mid", When: base.AddDate(0, 1, 0)}, {ID: "old", When: base}, {ID: "new", When: base.AddDate(1, 0, 0)}}
	got := ids(SortBy(rows, Sort{Field: "when", Direction: Desc}, rowFields, language.English))
	if !reflect.DeepEqual(got, []string{"new", "mid", "old"}) {
		t.Errorf("SortBy(when desc) = %v", got)
	}
}

func TestFilterConjunctive(t *testing.T) {
	rows := []row{{ID: "a", Name: "Alpha", Score: 5}, {ID: "b", Name: "Beta", Score: 5}, {ID: "c", Name: "alpine", Score: 1}}
	byName := ContainsFold(" ALP ", func(r row) string { return r.Name })
	byScore := Equals(func(r row) int64 { return r.Score }, 5)

	got := ids(Filter(rows, byName, byScore))
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Filter() = %v, want [a]", got)
	}
	if rev := ids(Filter(rows, byScore, byName)); !reflect.DeepEqual(rev, got) {
		t.Errorf("predicate order changed result: %v vs %v", rev, got)
	}
	if all := Filter(rows, nil, ContainsFold("", func(r row) string { return r.Name })); len(all) != 3 {
		t.Errorf("inactive predicates filtered rows: %v", ids(all))
	}
}

func TestDateBetweenInclusive(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	rows := []row{{ID: "1", When: day(1)}, {ID: "5", When: day(5)}, {ID: "10", When: day(10)}, {ID: "zero"}}
	get := func(r row) time.Time { return r.When }

	tests := []struct {
		name     string
		from, to time.Time
		want     []string
	}{
		{"both bounds inclusive", day(1), day(5), []string{"1", "5"}},
		{"open start", time.Time{}, day(5), []string{"1", "5"}},
		{"open end", day(5), time.Time{}, []string{"5", "10"}},
		{"no bounds", time.Time{}, time.Time{}, []string{"1", "5", "10", "zero"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(rows, DateBetween(get, tt.from, tt.to)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterThenSortCommutes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"Ann", "bob", "Cy", "dee", "Éva"}
	rows := make([]row, 60)
	for i := range rows {
		rows[i] = row{
			ID:    string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Name:  names[rng.Intn(len(names))],
			Score: int64(rng.Intn(4)),
		}
	}
	preds := []Predicate[row]{
		Equals(func(r row) int64 { return r.Score % 2 }, 0),
		ContainsFold("e", func(r row) string { return r.Name }),
	}
	for _, field := range []string{"name", "score", "missing"} {
		for _, dir := range []Direction{Asc, Desc} {
			s := Sort{Field: field, Direction: dir}
			a := ids(SortBy(Filter(rows, preds...), s, rowFields, language.English))
			b := ids(Filter(SortBy(rows, s, rowFields, language.English), preds...))
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("%s %s: sort(filter) = %v, filter(sort) = %v", field, dir, a, b)
			}
		}
	}
}

func TestInvoiceFilters(t *testing.T) {
	mk := func(id, client string, status core.InvoiceStatus, created core.Date) core.Invoice {
		return core.Invoice{ID: id, Client: core.ClientRef{ID: client}, Status: status, CreatedAt: created}
	}
	jan31Evening := core.Date{Time: time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)}
	items := []core.Invoice{
		mk("1", "a", core.InvoicePaid, core.NewDate(2024, 1, 1)),
		mk("2", "a", core.InvoicePending, jan31Evening),
		mk("3", "b", core.InvoicePending, core.NewDate(2024, 2, 1)),
	}

	got := Filter(items, InvoiceFilters{StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31)}.Predicates()...)
	if len(got) != 2 {
		t.Fatalf("date range matched %d invoices, want 2", len(got))
	}
	got = Filter(items, InvoiceFilters{Status: core.InvoicePending, ClientID: "a"}.Predicates()...)
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("status+client = %+v", got)
	}

	sorted := Invoices(items, InvoiceFilters{}, Sort{Field: "createdAt", Direction: Desc}, language.English)
	if sorted[0].ID != "3" || sorted[2].ID != "1" {
		t.Errorf("createdAt desc = %v", []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	}
}

func TestClientFilters(t *testing.T) {
	items := []core.Client{
		{ID: "1", Name: "Acme", Email: "x@acme.test", Status: core.ClientActive, Tags: []string{"vip"}},
		{ID: "2", Name: "Bolt", Email: "hi@bolt.test", Status: core.ClientActive, Company: &core.Company{Name: "Acme Holdings"}},
		{ID: "3", Name: "Cog", Email: "c@cog.test", Status: core.ClientBlocked, Tags: []string{"late", "vip"}},
	}
	tests := []struct {
		name string
		f    ClientFilters
		want []string
	}{
		{"search covers company", ClientFilters{Search: "acme"}, []string{"1", "2"}},
		{"search email", ClientFilters{Search: "BOLT.TEST"}, []string{"2"}},
		{"tags any", ClientFilters{Tags: []string{"late", "nope"}}, []string{"3"}},
		{"status and tags", ClientFilters{Status: core.ClientActive, Tags: []string{"vip"}}, []string{"1"}},
		{"empty", ClientFilters{}, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.f.Predicates()...)
			var gotIDs []string
			for _, c := range got {
				gotIDs = append(gotIDs, c.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.want) {
				t.Errorf("Filter() = %v, want %v", gotIDs, tt.want)
			}
		})
	}
}

func TestPaymentAndProductFilters(t *testing.T) {
	payments := []core.Payment{
		{ID: "1", Method: core.MethodCash, Status: core.PaymentCompleted, Date: core.NewDate(2024, 1, 2)},
		{ID: "2", Method: core.MethodCash, Status: core.PaymentFailed, Date: core.NewDate(2024, 1, 3)},
		{ID: "3", Method: core.MethodCheck, Date: core.NewDate(2024, 1, 4)},
	}
	got := Payments(payments, PaymentFilters{Method: core.MethodCash, Status: core.PaymentCompleted}, Sort{}, language.English)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("payment filter = %+v", got)
	}

	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(50)
	products := []core.Product{
		{ID: "a", Name: "Widget", Type: "product", Status: "active", Price: core.Price{Amount: decimal.NewFromInt(10)}, Inventory: &core.Inventory{Quantity: 3}},
		{ID: "b", Name: "Gadget", Type: "product", Status: "active", Price: core.Price{Amount: decimal.NewFromInt(60)}, Inventory: &core.Inventory{Quantity: 1}},
		{ID: "c", Name: "Setup", Type: "service", Status: "active", Price: core.Price{Amount: decimal.NewFromInt(40)}},
		{ID: "d", Name: "Widget XL", Type: "PRODUCT", Status: "ACTIVE", Price: core.Price{Amount: decimal.NewFromInt(20)}, Inventory: &core.Inventory{Quantity: 2}},
	}
	pg := Products(products, ProductFilters{Type: "product", MinPrice: &lo, MaxPrice: &hi, InStock: true}, Sort{Field: "price", Direction: Desc}, language.English)
	if len(pg) != 1 || pg[0].ID != "a" {
		t.Errorf("product filter = %+v", pg)
	}
	search := Products(products, ProductFilters{Search: "widget"}, Sort{Field: "price", Direction: Desc}, language.English)
	if len(search) != 2 || search[0].ID != "d" {
		t.Errorf("product search = %+v", search)
	}
}
