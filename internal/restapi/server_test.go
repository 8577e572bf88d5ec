package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"granabox/internal/api"
	"granabox/internal/core"
	"granabox/internal/services"
	"granabox/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	items := services.NewItemService(repo, nil, nil)
	t.Cleanup(func() { items.Close() })

	srv, err := NewServer(Options{}, items, services.NewRecurrenceExpander(items, 12), nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server) *api.Client {
	t.Helper()
	c, err := api.New(api.Config{BaseURL: ts.URL, Location: time.UTC, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	return c
}

func TestLabelsRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)
	ctx := context.Background()

	created, err := c.EnsureDefaultLabels(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultLabels() error = %v", err)
	}
	if created != len(core.DefaultLabels) {
		t.Errorf("created = %d, want %d", created, len(core.DefaultLabels))
	}
	again, err := c.EnsureDefaultLabels(ctx)
	if err != nil || again != 0 {
		t.Errorf("second EnsureDefaultLabels() = %d, %v; want 0, nil", again, err)
	}

	label, err := c.CreateLabel(ctx, "Viagem", false)
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	labels, err := c.ListLabels(ctx)
	if err != nil {
		t.Fatalf("ListLabels() error = %v", err)
	}
	if got, ok := core.FindLabel(labels, "viagem"); !ok || got.ID != label.ID || got.IsDefault {
		t.Errorf("FindLabel(viagem) = %+v, %v", got, ok)
	}
}

func TestItemsRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)
	ctx := context.Background()

	label, err := c.CreateLabel(ctx, "Habitação", true)
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	in := core.ItemInput{
		LabelID:     label.ID,
		Type:        core.StatusToPay,
		Description: "Aluguel",
		Amount:      core.Money{Cents: 180050},
		DueDate:     core.NewDate(2025, 3, 10),
	}

	item, err := c.CreateItem(ctx, in)
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if item.ID == 0 || item.Label != "Habitação" || item.Amount.Cents != 180050 || item.DueStatus == "" {
		t.Errorf("CreateItem() = %+v", item)
	}

	if err := c.UpdateItemStatus(ctx, item.ID, core.StatusPaid); err != nil {
		t.Fatalf("UpdateItemStatus() error = %v", err)
	}
	got, err := c.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got.Type != core.StatusPaid || got.DueStatus != core.DuePaid || got.TransactionDate == nil {
		t.Errorf("GetItem() after paying = %+v", got)
	}

	in.Description = "Aluguel e condomínio"
	in.Type = core.StatusPaid
	if err := c.UpdateItem(ctx, item.ID, in); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}

	march := core.Period{Year: 2025, Month: 3}
	paid := core.StatusPaid
	list, err := c.ItemsByDate(ctx, march, &paid)
	if err != nil {
		t.Fatalf("ItemsByDate() error = %v", err)
	}
	if len(list) != 1 || list[0].Description != "Aluguel e condomínio" {
		t.Errorf("ItemsByDate() = %+v", list)
	}

	o, err := c.Overview(ctx, march)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.TotalExpenses.Cents != 180050 || o.Savings.Cents != -180050 {
		t.Errorf("Overview() = %+v", o)
	}

	yr := c.YearRange(ctx)
	if yr.Min != 2025 || yr.Max != 2025 {
		t.Errorf("YearRange() = %+v", yr)
	}

	if err := c.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if _, err := c.GetItem(ctx, item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetItem(deleted) error = %v, want ErrNotFound", err)
	}
	all, err := c.ListItems(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("ListItems() = %v, %v", all, err)
	}
}

func TestRecurringRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)
	ctx := context.Background()

	label, err := c.CreateLabel(ctx, "Saúde", true)
	if err != nil {
		t.Fatalf("CreateLabel() error = %v", err)
	}
	in := core.ItemInput{
		LabelID:     label.ID,
		Type:        core.StatusToPay,
		Description: "Plano de saúde",
		Amount:      core.Money{Cents: 45000},
		DueDate:     core.NewDate(2025, 1, 31),
		Recurrence:  core.RecurrenceMonthly,
	}

	series, err := c.CreateRecurringItem(ctx, in, 3)
	if err != nil {
		t.Fatalf("CreateRecurringItem() error = %v", err)
	}
	if len(series) != 3 || series[1].DueDate.String() != "2025-02-28" {
		t.Fatalf("CreateRecurringItem() = %+v", series)
	}

	in.Amount = core.Money{Cents: 47000}
	if err := c.UpdateRecurringItem(ctx, series[1].ID, in); err != nil {
		t.Fatalf("UpdateRecurringItem() error = %v", err)
	}
	last, err := c.GetItem(ctx, series[2].ID)
	if err != nil || last.Amount.Cents != 47000 {
		t.Errorf("last item = %+v, %v", last, err)
	}

	if err := c.DeleteRecurringItem(ctx, series[0].ID); err != nil {
		t.Fatalf("DeleteRecurringItem() error = %v", err)
	}
	all, err := c.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(all) != 1 || all[0].Recurrence != core.RecurrenceOnce {
		t.Errorf("ListItems() after ending the series = %+v", all)
	}
}

func TestYearRangeEmpty(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/items/years")
	if err != nil {
		t.Fatalf("GET /items/years error = %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["min_year"] != nil || body["max_year"] != nil {
		t.Errorf("body = %v, want null years", body)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		form   url.Values
		want   int
	}{
		{name: "missing id", method: http.MethodGet, path: "/item", want: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/item?id=abc", want: http.StatusBadRequest},
		{name: "unknown item", method: http.MethodGet, path: "/item?id=42", want: http.StatusNotFound},
		{name: "delete unknown", method: http.MethodDelete, path: "/item?id=42", want: http.StatusNotFound},
		{name: "bad month", method: http.MethodGet, path: "/items/date?year=2025&month=13", want: http.StatusBadRequest},
		{name: "bad type filter", method: http.MethodGet, path: "/items/date?year=2025&month=3&type=Outro", want: http.StatusBadRequest},
		{name: "overview without year", method: http.MethodGet, path: "/items/overview?month=3", want: http.StatusBadRequest},
		{name: "blank label", method: http.MethodPost, path: "/label", form: url.Values{"name": {" "}}, want: http.StatusBadRequest},
		{
			name:   "missing fields",
			method: http.MethodPost,
			path:   "/item",
			form:   url.Values{"type": {"A Pagar"}, "description": {"x"}},
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown label",
			method: http.MethodPost,
			path:   "/item",
			form: url.Values{
				"label_id":    {"99"},
				"type":        {"A Pagar"},
				"description": {"Luz"},
				"amount":      {"10.00"},
				"due_date":    {"2025-03-01"},
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "bad amount",
			method: http.MethodPost,
			path:   "/item",
			form: url.Values{
				"label_id":    {"1"},
				"type":        {"A Pagar"},
				"description": {"Luz"},
				"amount":      {"dez"},
				"due_date":    {"2025-03-01"},
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "overflowing amount",
			method: http.MethodPost,
			path:   "/item",
			form: url.Values{
				"label_id":    {"1"},
				"type":        {"A Pagar"},
				"description": {"Luz"},
				"amount":      {"100000000000000000"},
				"due_date":    {"2025-03-01"},
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "zero amount",
			method: http.MethodPost,
			path:   "/item",
			form: url.Values{
				"label_id":    {"1"},
				"type":        {"A Pagar"},
				"description": {"Luz"},
				"amount":      {"0.00"},
				"due_date":    {"2025-03-01"},
			},
			want: http.StatusBadRequest,
		},
		{name: "status of unknown item", method: http.MethodPut, path: "/item/status", form: url.Values{"id": {"5"}, "type": {"Pago"}}, want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPatch, path: "/item", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.form != nil {
				body = strings.NewReader(tt.form.Encode())
			} else {
				body = strings.NewReader("")
			}
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, body)
			if err != nil {
				t.Fatal(err)
			}
			if tt.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestTimeZoneHeader(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	s := &Server{loc: time.UTC}

	r := httptest.NewRequest(http.MethodGet, "/items/date", nil)
	r.Header.Set("TimeZone", "America/Sao_Paulo")
	if got := s.location(r); got.String() != loc.String() {
		t.Errorf("location() = %v, want %v", got, loc)
	}

	r.Header.Set("TimeZone", "Mars/Olympus")
	if got := s.location(r); got != time.UTC {
		t.Errorf("location(unknown) = %v, want UTC", got)
	}
}

func TestNewServerRequiresServices(t *testing.T) {
	if _, err := NewServer(Options{}, nil, nil, nil); err == nil {
		t.Error("NewServer() without services should fail")
	}
}
