package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"granabox/internal/core"
	applog "granabox/internal/log"
)

func itemForm(in core.ItemInput) url.Values {
	form := url.Values{}
	form.Set("label_id", strconv.FormatInt(in.LabelID, 10))
	form.Set("type", string(in.Type))
	form.Set("description", in.Description)
	form.Set("amount", in.Amount.FormValue())
	form.Set("due_date", in.DueDate.String())
	if in.Recurrence != "" {
		form.Set("recurrence", string(in.Recurrence))
	}
	return form
}

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

// items accepts either a JSON array of items or a single item object.
type items []core.Item

func (s *items) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var one core.Item
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = items{one}
		return nil
	}
	var many []core.Item
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// CreateItem creates a one-off item.
func (c *Client) CreateItem(ctx context.Context, in core.ItemInput) (core.Item, error) {
	var item core.Item
	err := c.do(ctx, request{op: "create item", method: http.MethodPost, path: "/item", form: itemForm(in)}, &item)
	return item, err
}

// CreateRecurringItem creates a monthly series of months items starting at
// the input's due date. months <= 0 uses the default of 12.
func (c *Client) CreateRecurringItem(ctx context.Context, in core.ItemInput, months int) ([]core.Item, error) {
	if months <= 0 {
		months = core.DefaultRecurringMonths
	}
	form := itemForm(in)
	form.Set("recurrence", string(core.RecurrenceMonthly))
	form.Set("months", strconv.Itoa(months))

	var created items
	err := c.do(ctx, request{op: "create recurring item", method: http.MethodPost, path: "/item/recurring", form: form}, &created)
	return created, err
}

// ListItems returns every item.
func (c *Client) ListItems(ctx context.Context) ([]core.Item, error) {
	var out items
	err := c.do(ctx, request{op: "list items", method: http.MethodGet, path: "/items"}, &out)
	return out, err
}

// GetItem fetches one item. A missing item matches core.ErrNotFound.
func (c *Client) GetItem(ctx context.Context, id int64) (core.Item, error) {
	var item core.Item
	err := c.do(ctx, request{op: "get item", method: http.MethodGet, path: "/item", query: idQuery(id)}, &item)
	return item, err
}

// ItemsByDate returns the items due in the period, optionally only one type.
// Due statuses are computed in the client's time zone.
func (c *Client) ItemsByDate(ctx context.Context, p core.Period, status *core.Status) ([]core.Item, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(p.Year))
	query.Set("month", p.MonthValue())
	if status != nil {
		query.Set("type", string(*status))
	}
	header := http.Header{}
	header.Set("TimeZone", c.loc.String())

	var out items
	err := c.do(ctx, request{op: "items by date", method: http.MethodGet, path: "/items/date", query: query, header: header}, &out)
	return out, err
}

type yearRangeResponse struct {
	Min *int `json:"min_year"`
	Max *int `json:"max_year"`
}

// YearRange returns the span of years with items. When the backend has no
// items or cannot be reached it falls back to the current year.
func (c *Client) YearRange(ctx context.Context) core.YearRange {
	now := c.now().In(c.loc)
	var resp yearRangeResponse
	if err := c.do(ctx, request{op: "year range", method: http.MethodGet, path: "/items/years"}, &resp); err != nil {
		c.logger.WarnContext(ctx, "Falling back to current year", applog.FieldError, err)
		return core.YearRange{}.Normalize(now)
	}
	var r core.YearRange
	if resp.Min != nil {
		r.Min = *resp.Min
	}
	if resp.Max != nil {
		r.Max = *resp.Max
	}
	return r.Normalize(now)
}

// Overview returns the month totals.
func (c *Client) Overview(ctx context.Context, p core.Period) (core.Overview, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(p.Year))
	query.Set("month", p.MonthValue())

	var o core.Overview
	err := c.do(ctx, request{op: "overview", method: http.MethodGet, path: "/items/overview", query: query}, &o)
	return o, err
}

// UpdateItemStatus moves an item to another status.
func (c *Client) UpdateItemStatus(ctx context.Context, id int64, status core.Status) error {
	form := idQuery(id)
	form.Set("type", string(status))
	return c.do(ctx, request{op: "update item status", method: http.MethodPut, path: "/item/status", form: form}, nil)
}

// UpdateItem saves the editable fields of one item.
func (c *Client) UpdateItem(ctx context.Context, id int64, in core.ItemInput) error {
	form := itemForm(in)
	form.Set("id", strconv.FormatInt(id, 10))
	return c.do(ctx, request{op: "update item", method: http.MethodPut, path: "/item", form: form}, nil)
}

// UpdateRecurringItem applies the fields to the item and the rest of its series.
func (c *Client) UpdateRecurringItem(ctx context.Context, id int64, in core.ItemInput) error {
	form := itemForm(in)
	form.Set("id", strconv.FormatInt(id, 10))
	return c.do(ctx, request{op: "update recurring item", method: http.MethodPut, path: "/item/recurring", form: form}, nil)
}

// DeleteItem deletes one item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, request{op: "delete item", method: http.MethodDelete, path: "/item", query: idQuery(id)}, nil)
}

// DeleteRecurringItem ends the series the item belongs to.
func (c *Client) DeleteRecurringItem(ctx context.Context, id int64) error {
	return c.do(ctx, request{op: "delete recurring item", method: http.MethodDelete, path: "/item/recurring", query: idQuery(id)}, nil)
}
