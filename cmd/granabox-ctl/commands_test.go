package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"granabox/internal/core"
	"granabox/internal/restapi"
	"granabox/internal/services"
	"granabox/internal/storage"
)

func newBackend(t *testing.T) string {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ctl.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	items := services.NewItemService(repo, nil, nil)
	t.Cleanup(func() { items.Close() })
	srv, err := restapi.NewServer(restapi.Options{}, items, services.NewRecurrenceExpander(items, 3), nil)
	if err != nil {
		t.Fatalf("restapi.NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, backendURL string, args ...string) (string, error) {
	t.Helper()
	var c CLI
	var out bytes.Buffer
	parser, err := kong.New(&c,
		kong.Name("granabox-ctl"),
		kong.Writers(&out, &out),
		kong.Exit(func(int) {}),
		kong.Bind(&c.Globals),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}
	kctx, err := parser.Parse(append([]string{"--backend-url", backendURL, "--timezone", "UTC"}, args...))
	if err != nil {
		return out.String(), err
	}
	err = kctx.Run()
	return out.String(), err
}

func TestCommandsAgainstBackend(t *testing.T) {
	url := newBackend(t)

	steps := []struct {
		args []string
		want string
	}{
		{args: []string{"labels", "ensure-defaults"}, want: "default categories"},
		{args: []string{"labels", "ensure-defaults"}, want: "already present"},
		{args: []string{"labels", "list"}, want: core.DefaultLabels[0]},
		{args: []string{"items", "add", "Aluguel", "1800,50", "--label", core.DefaultLabels[0], "--due", "2025-03-10"}, want: "Created item 1"},
		{args: []string{"items", "list", "--year", "2025", "--month", "3"}, want: "Aluguel"},
		{args: []string{"items", "move", "1", "paid-expenses"}, want: "is now Pago"},
		{args: []string{"items", "list", "--year", "2025", "--month", "3", "--type", "Pago"}, want: "Aluguel"},
		{args: []string{"overview", "--year", "2025", "--month", "3"}, want: "2025-03"},
		{args: []string{"items", "add", "Academia", "99.90", "--label", "Esporte", "--new-label", "--due", "2025-04-05", "--monthly", "--months", "3"}, want: "Created 3 monthly items"},
		{args: []string{"items", "delete", "1"}, want: "Deleted item 1"},
		{args: []string{"items", "list", "--year", "2025", "--month", "3"}, want: "No items in 2025-03"},
	}
	for _, s := range steps {
		out, err := run(t, url, s.args...)
		if err != nil {
			t.Fatalf("%v: error = %v (output %q)", s.args, err, out)
		}
		if !strings.Contains(out, s.want) {
			t.Errorf("%v: output %q does not contain %q", s.args, out, s.want)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	url := newBackend(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown column", args: []string{"items", "move", "1", "savings"}},
		{name: "unknown item", args: []string{"items", "delete", "42"}},
		{name: "bad month", args: []string{"overview", "--year", "2025", "--month", "13"}},
		{name: "bad type", args: []string{"items", "list", "--type", "Outro"}},
		{name: "unknown label", args: []string{"items", "add", "Luz", "10", "--label", "Nada", "--due", "2025-03-01"}},
		{name: "missing label flag", args: []string{"items", "add", "Luz", "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out, err := run(t, url, tt.args...); err == nil {
				t.Errorf("%v should fail, output %q", tt.args, out)
			}
		})
	}
}

func TestInvalidTimezone(t *testing.T) {
	url := newBackend(t)

	for _, args := range [][]string{
		{"--timezone", "Mars/Olympus", "overview"},
		{"--timezone", "Mars/Olympus", "items", "list"},
		{"--timezone", "Mars/Olympus", "labels", "list"},
	} {
		_, err := run(t, url, args...)
		if err == nil || !strings.Contains(err.Error(), "invalid display timezone 'Mars/Olympus'") {
			t.Errorf("%v error = %v, want invalid display timezone", args, err)
		}
	}
}

func TestItemsAddDraft(t *testing.T) {
	today := core.NewDate(2025, 3, 10)
	tests := []struct {
		name string
		cmd  ItemsAddCmd
		want core.Draft
	}{
		{
			name: "defaults",
			cmd:  ItemsAddCmd{Description: "Luz", Amount: "120", Label: "Habitação", Type: "A Pagar"},
			want: core.Draft{Type: core.StatusToPay, Label: "Habitação", Description: "Luz", Amount: "120", DueDate: "2025-03-10", Recurrence: core.RecurrenceOnce},
		},
		{
			name: "new monthly label",
			cmd:  ItemsAddCmd{Description: "Academia", Amount: "99", Label: "Esporte", NewLabel: true, Type: "Pago", Due: "2025-04-01", Monthly: true},
			want: core.Draft{Type: core.StatusPaid, Label: core.NewLabelOption, NewLabel: "Esporte", Description: "Academia", Amount: "99", DueDate: "2025-04-01", Recurrence: core.RecurrenceMonthly},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.draft(today); got != tt.want {
				t.Errorf("draft() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
