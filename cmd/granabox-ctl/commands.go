package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"granabox/internal/api"
	"granabox/internal/core"
	"granabox/internal/lifecycle"
	applog "granabox/internal/log"
)

// CLI is the command tree.
type CLI struct {
	Globals
	Commands
}

// Globals are the flags shared by every command.
type Globals struct {
	BackendURL string        `help:"REST backend base URL." env:"BACKEND_URL" default:"http://127.0.0.1:5000"`
	Timeout    time.Duration `help:"Backend request timeout." env:"BACKEND_TIMEOUT" default:"10s"`
	Timezone   string        `help:"Time zone used for due statuses and the current month." env:"DISPLAY_TIMEZONE" default:"America/Sao_Paulo"`
	LogLevel   string        `help:"Log level." env:"LOG_LEVEL" default:"warn" enum:"debug,info,warn,error"`
}

func (g *Globals) location() (*time.Location, error) {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone '%s': %w", g.Timezone, err)
	}
	return loc, nil
}

func (g *Globals) logger() *applog.Logger {
	return applog.New(applog.Config{
		Level:     applog.ParseLevel(g.LogLevel),
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
}

func (g *Globals) client() (*api.Client, error) {
	loc, err := g.location()
	if err != nil {
		return nil, err
	}
	return api.New(api.Config{
		BaseURL:  g.BackendURL,
		Timeout:  g.Timeout,
		Location: loc,
		Logger:   g.logger(),
	})
}

func (g *Globals) controller(opts ...lifecycle.Option) (*lifecycle.Controller, error) {
	c, err := g.client()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(c, append([]lifecycle.Option{lifecycle.WithLogger(g.logger())}, opts...)...), nil
}

// period returns the month named by the flags, the current month by default.
func (g *Globals) period(year, month int) (core.Period, error) {
	loc, err := g.location()
	if err != nil {
		return core.Period{}, err
	}
	p := core.CurrentPeriod(loc)
	if year != 0 {
		p.Year = year
	}
	if month != 0 {
		p.Month = month
	}
	return p, p.Validate()
}

type Commands struct {
	Labels   LabelsCmd   `cmd:"" help:"Manage categories."`
	Items    ItemsCmd    `cmd:"" help:"Manage dashboard items."`
	Overview OverviewCmd `cmd:"" help:"Show the totals of a month."`
}

type LabelsCmd struct {
	List           LabelsListCmd           `cmd:"" help:"List categories."`
	EnsureDefaults LabelsEnsureDefaultsCmd `cmd:"" name:"ensure-defaults" help:"Create the default categories that are missing."`
}

type LabelsListCmd struct{}

func (cmd *LabelsListCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	c, err := g.client()
	if err != nil {
		return err
	}
	labels, err := c.ListLabels(ctx)
	if err != nil {
		return err
	}
	printLabels(kctx.Stdout, labels)
	return nil
}

type LabelsEnsureDefaultsCmd struct{}

func (cmd *LabelsEnsureDefaultsCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	c, err := g.client()
	if err != nil {
		return err
	}
	created, err := c.EnsureDefaultLabels(ctx)
	if err != nil {
		return err
	}
	if created == 0 {
		printInfo(kctx.Stdout, "Default categories already present")
		return nil
	}
	printSuccess(kctx.Stdout, "Created %d default categories", created)
	return nil
}

type ItemsCmd struct {
	List   ItemsListCmd   `cmd:"" help:"List the items due in a month."`
	Add    ItemsAddCmd    `cmd:"" help:"Add an item or a monthly series."`
	Move   ItemsMoveCmd   `cmd:"" help:"Move an item to another column."`
	Delete ItemsDeleteCmd `cmd:"" help:"Delete an item. Items of a series end the series."`
}

type ItemsListCmd struct {
	Year  int    `help:"Year, the current one by default."`
	Month int    `help:"Month 1-12, the current one by default."`
	Type  string `help:"Only items of this type (A Pagar, Pago, Rendimentos)."`
}

func (cmd *ItemsListCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	p, err := g.period(cmd.Year, cmd.Month)
	if err != nil {
		return err
	}
	var status *core.Status
	if cmd.Type != "" {
		s, err := core.ParseStatus(cmd.Type)
		if err != nil {
			return err
		}
		status = &s
	}
	c, err := g.client()
	if err != nil {
		return err
	}
	items, err := c.ItemsByDate(ctx, p, status)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		printInfo(kctx.Stdout, "No items in %s", p.Key())
		return nil
	}
	printItems(kctx.Stdout, items)
	return nil
}

type ItemsAddCmd struct {
	Description string `arg:"" help:"Item description."`
	Amount      string `arg:"" help:"Amount, e.g. 1800,50 or 1800.50."`
	Label       string `required:"" short:"l" help:"Category name."`
	NewLabel    bool   `help:"Create the category when it does not exist."`
	Type        string `short:"t" default:"A Pagar" help:"A Pagar, Pago or Rendimentos."`
	Due         string `short:"d" help:"Due date YYYY-MM-DD, today by default."`
	Monthly     bool   `short:"m" help:"Create a monthly series."`
	Months      int    `default:"12" help:"Number of months of a series."`
}

// draft maps the flags onto the dashboard form.
func (cmd *ItemsAddCmd) draft(today core.Date) core.Draft {
	d := core.Draft{
		Type:        core.Status(cmd.Type),
		Label:       cmd.Label,
		Description: cmd.Description,
		Amount:      cmd.Amount,
		DueDate:     strings.TrimSpace(cmd.Due),
		Recurrence:  core.RecurrenceOnce,
	}
	if d.DueDate == "" {
		d.DueDate = today.String()
	}
	if cmd.NewLabel {
		d.Label = core.NewLabelOption
		d.NewLabel = cmd.Label
	}
	if cmd.Monthly {
		d.Recurrence = core.RecurrenceMonthly
	}
	return d
}

func (cmd *ItemsAddCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	ctrl, err := g.controller(lifecycle.WithRecurringMonths(cmd.Months))
	if err != nil {
		return err
	}
	loc, err := g.location()
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	created, err := ctrl.Create(ctx, cmd.draft(core.NewDate(now.Year(), int(now.Month()), now.Day())))
	if err != nil {
		return err
	}
	if len(created) == 1 {
		printSuccess(kctx.Stdout, "Created item %d", created[0].ID)
		return nil
	}
	printSuccess(kctx.Stdout, "Created %d monthly items", len(created))
	return nil
}

type ItemsMoveCmd struct {
	ID     int64  `arg:"" help:"Item id."`
	Column string `arg:"" enum:"expenses-to-pay,paid-expenses,income" help:"Target column: expenses-to-pay, paid-expenses or income."`
}

func (cmd *ItemsMoveCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	target, err := core.ParseColumn(cmd.Column)
	if err != nil {
		return err
	}
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	status, err := ctrl.Move(ctx, cmd.ID, target)
	if err != nil {
		return err
	}
	printSuccess(kctx.Stdout, "Item %d is now %s", cmd.ID, status)
	return nil
}

type ItemsDeleteCmd struct {
	ID int64 `arg:"" help:"Item id."`
}

func (cmd *ItemsDeleteCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	if err := ctrl.Delete(ctx, cmd.ID); err != nil {
		return fmt.Errorf("delete item %d: %w", cmd.ID, err)
	}
	printSuccess(kctx.Stdout, "Deleted item %d", cmd.ID)
	return nil
}

type OverviewCmd struct {
	Year  int `help:"Year, the current one by default."`
	Month int `help:"Month 1-12, the current one by default."`
}

func (cmd *OverviewCmd) Run(ctx context.Context, kctx *kong.Context, g *Globals) error {
	p, err := g.period(cmd.Year, cmd.Month)
	if err != nil {
		return err
	}
	c, err := g.client()
	if err != nil {
		return err
	}
	o, err := c.Overview(ctx, p)
	if err != nil {
		return err
	}
	printOverview(kctx.Stdout, p, o)
	return nil
}
