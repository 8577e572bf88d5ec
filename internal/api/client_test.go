package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"granabox/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.UTC
	}
	c, err := New(Config{BaseURL: srv.URL, Location: loc, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %s, want %s", c.BaseURL(), DefaultBaseURL)
	}
}

func TestCreateLabel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/label" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("name") != "Viagem" || r.PostForm.Get("is_default") != "false" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 12, "name": "Viagem", "is_default": false}`)
	})

	label, err := c.CreateLabel(context.Background(), "Viagem", false)
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	if label.ID != 12 || label.Name != "Viagem" {
		t.Errorf("CreateLabel() = %+v", label)
	}
}

func TestEnsureDefaultLabels(t *testing.T) {
	var created []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/labels":
			fmt.Fprint(w, `[{"id":1,"name":"Habitação","is_default":true},{"id":2,"name":"Saúde","is_default":true}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/label":
			_ = r.ParseForm()
			if r.PostForm.Get("is_default") != "true" {
				t.Errorf("default label posted with is_default=%q", r.PostForm.Get("is_default"))
			}
			created = append(created, r.PostForm.Get("name"))
			fmt.Fprintf(w, `{"id":%d,"name":%q,"is_default":true}`, len(created)+2, r.PostForm.Get("name"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	n, err := c.EnsureDefaultLabels(context.Background())
	if err != nil {
		t.Fatalf("EnsureDefaultLabels() error = %v", err)
	}
	if n != len(core.DefaultLabels)-2 || len(created) != n {
		t.Errorf("created %d labels (%v), want %d", n, created, len(core.DefaultLabels)-2)
	}
}

func TestItemsByDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/date" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("year") != "2025" || q.Get("month") != "03" || q.Get("type") != "Pago" {
			t.Errorf("query = %v", q)
		}
		if tz := r.Header.Get("TimeZone"); tz == "" {
			t.Error("missing TimeZone header")
		}
		fmt.Fprint(w, `[{"id":5,"recurrence_id":3,"recurrence":"Mensal","months":12,"type":"Pago",
			"description":"Aluguel","amount":1500.5,"due_date":"2025-03-05","due_status":"PAGO",
			"transaction_date":"2025-03-04T13:00:00Z","label":"Habitação","label_id":1}]`)
	})

	status := core.StatusPaid
	got, err := c.ItemsByDate(context.Background(), core.Period{Year: 2025, Month: 3}, &status)
	if err != nil {
		t.Fatalf("ItemsByDate() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	it := got[0]
	if it.ID != 5 || it.Amount.Cents != 150050 || it.DueDate.String() != "2025-03-05" {
		t.Errorf("unexpected item %+v", it)
	}
	if it.RecurrenceID == nil || *it.RecurrenceID != 3 || it.Recurrence != core.RecurrenceMonthly {
		t.Errorf("unexpected recurrence fields %+v", it)
	}
	if it.TransactionDate == nil || it.TransactionDate.Hour() != 13 {
		t.Errorf("unexpected transaction date %+v", it.TransactionDate)
	}
}

func TestCreateRecurringItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/item/recurring" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = r.ParseForm()
		want := map[string]string{
			"label_id": "3", "type": "A Pagar", "description": "Internet",
			"amount": "99.90", "due_date": "2025-01-15", "months": "12", "recurrence": "Mensal",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form %s = %q, want %q", k, got, v)
			}
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `[{"id":1,"type":"A Pagar","due_date":"2025-01-15"},{"id":2,"type":"A Pagar","due_date":"2025-02-15"}]`)
	})

	in := core.ItemInput{
		LabelID: 3, Type: core.StatusToPay, Description: "Internet",
		Amount: core.Money{Cents: 9990}, DueDate: core.NewDate(2025, 1, 15),
	}
	got, err := c.CreateRecurringItem(context.Background(), in, 0)
	if err != nil {
		t.Fatalf("CreateRecurringItem() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 items, got %d", len(got))
	}
}

func TestCreateItem_SingleObjectOrArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":9,"type":"Rendimentos","amount":"3000,00"}`)
	})
	item, err := c.CreateItem(context.Background(), core.ItemInput{Type: core.StatusIncome})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if item.ID != 9 || item.Amount.Cents != 300000 {
		t.Errorf("CreateItem() = %+v", item)
	}
}

func TestMutations(t *testing.T) {
	type call struct{ method, path, query, form string }
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery, r.PostForm.Encode()})
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	in := core.ItemInput{LabelID: 1, Type: core.StatusPaid, Description: "Luz", Amount: core.Money{Cents: 12000}, DueDate: core.NewDate(2025, 2, 1)}

	steps := []func() error{
		func() error { return c.UpdateItemStatus(ctx, 4, core.StatusPaid) },
		func() error { return c.UpdateItem(ctx, 4, in) },
		func() error { return c.UpdateRecurringItem(ctx, 4, in) },
		func() error { return c.DeleteItem(ctx, 4) },
		func() error { return c.DeleteRecurringItem(ctx, 4) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	want := []struct{ method, path string }{
		{http.MethodPut, "/item/status"},
		{http.MethodPut, "/item"},
		{http.MethodPut, "/item/recurring"},
		{http.MethodDelete, "/item"},
		{http.MethodDelete, "/item/recurring"},
	}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(calls))
	}
	for i, w := range want {
		if calls[i].method != w.method || calls[i].path != w.path {
			t.Errorf("call %d = %s %s, want %s %s", i, calls[i].method, calls[i].path, w.method, w.path)
		}
	}
	if !strings.Contains(calls[0].form, "type=Pago") || !strings.Contains(calls[0].form, "id=4") {
		t.Errorf("status form = %s", calls[0].form)
	}
	if calls[3].query != "id=4" || calls[4].query != "id=4" {
		t.Errorf("delete queries = %q, %q", calls[3].query, calls[4].query)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "item not found", http.StatusNotFound)
	})

	_, err := c.GetItem(context.Background(), 77)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T %v", err, err)
	}
	if se.Status != http.StatusNotFound || se.Op != "get item" {
		t.Errorf("unexpected StatusError %+v", se)
	}
	if !errors.Is(err, core.ErrNotFound) {
		t.Error("404 should match core.ErrNotFound")
	}
}

func TestYearRange(t *testing.T) {
	t.Run("backend range", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"min_year": 2022, "max_year": 2025}`)
		})
		if got := c.YearRange(context.Background()); got != (core.YearRange{Min: 2022, Max: 2025}) {
			t.Errorf("YearRange() = %+v", got)
		}
	})

	t.Run("empty backend falls back to current year", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"min_year": null, "max_year": null}`)
		})
		c.now = func() time.Time { return time.Date(2031, 5, 1, 12, 0, 0, 0, time.UTC) }
		if got := c.YearRange(context.Background()); got != (core.YearRange{Min: 2031, Max: 2031}) {
			t.Errorf("YearRange() = %+v", got)
		}
	})

	t.Run("error falls back to current year", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		c.now = func() time.Time { return time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC) }
		if got := c.YearRange(context.Background()); got != (core.YearRange{Min: 2030, Max: 2030}) {
			t.Errorf("YearRange() = %+v", got)
		}
	})
}

func TestOverview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("month") != "11" {
			t.Errorf("month = %s", r.URL.Query().Get("month"))
		}
		fmt.Fprint(w, `{"total_income": 5000, "total_expenses": 3200.75, "savings": 1799.25}`)
	})
	o, err := c.Overview(context.Background(), core.Period{Year: 2024, Month: 11})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.TotalIncome.Cents != 500000 || o.TotalExpenses.Cents != 320075 || o.Savings.Cents != 179925 {
		t.Errorf("Overview() = %+v", o)
	}
}
