package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"granabox/internal/core"
	applog "granabox/internal/log"
)

// CreateLabel creates a category.
func (c *Client) CreateLabel(ctx context.Context, name string, isDefault bool) (core.Label, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("is_default", strconv.FormatBool(isDefault))

	var label core.Label
	err := c.do(ctx, request{op: "create label", method: http.MethodPost, path: "/label", form: form}, &label)
	if err != nil {
		return core.Label{}, err
	}
	if label.Name == "" {
		label.Name = name
		label.IsDefault = isDefault
	}
	return label, nil
}

// ListLabels returns every category.
func (c *Client) ListLabels(ctx context.Context) ([]core.Label, error) {
	var labels []core.Label
	if err := c.do(ctx, request{op: "list labels", method: http.MethodGet, path: "/labels"}, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// EnsureDefaultLabels creates the default categories the backend lacks and
// returns how many were created.
func (c *Client) EnsureDefaultLabels(ctx context.Context) (int, error) {
	labels, err := c.ListLabels(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure default labels: %w", err)
	}
	created := 0
	for _, name := range core.MissingDefaultLabels(labels) {
		if _, err := c.CreateLabel(ctx, name, true); err != nil {
			return created, fmt.Errorf("ensure default label %q: %w", name, err)
		}
		created++
	}
	if created > 0 {
		c.logger.InfoContext(ctx, "Default labels created", "count", created, applog.FieldOperation, applog.OpCreate)
	}
	return created, nil
}
