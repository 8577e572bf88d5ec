package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"granabox/internal/core"
)

var errBadRequest = errors.New("bad request")

// parseID reads the id parameter from the query or the form body.
func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.FormValue("id"))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing id", errBadRequest)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// parseItemInput reads the item fields of a form body.
func parseItemInput(r *http.Request) (core.ItemInput, error) {
	if err := r.ParseForm(); err != nil {
		return core.ItemInput{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	var in core.ItemInput

	labelID := strings.TrimSpace(r.PostFormValue("label_id"))
	description := strings.TrimSpace(r.PostFormValue("description"))
	amount := strings.TrimSpace(r.PostFormValue("amount"))
	dueDate := strings.TrimSpace(r.PostFormValue("due_date"))
	if labelID == "" || description == "" || amount == "" || dueDate == "" {
		return in, core.ErrMissingFields
	}

	id, err := strconv.ParseInt(labelID, 10, 64)
	if err != nil {
		return in, fmt.Errorf("%w: label_id %q", core.ErrLabelNotFound, labelID)
	}
	status, err := core.ParseStatus(r.PostFormValue("type"))
	if err != nil {
		return in, err
	}
	money, err := core.ParseMoney(amount)
	if err != nil {
		return in, err
	}
	due, err := core.ParseDate(dueDate)
	if err != nil {
		return in, err
	}
	recurrence, err := core.ParseRecurrence(r.PostFormValue("recurrence"))
	if err != nil {
		return in, err
	}

	return core.ItemInput{
		LabelID:     id,
		Type:        status,
		Description: description,
		Amount:      money,
		DueDate:     due,
		Recurrence:  recurrence,
	}, nil
}

// parsePeriod reads year and month query parameters.
func parsePeriod(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: invalid year", errBadRequest)
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: invalid month", errBadRequest)
	}
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return core.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

// parseStatusFilter reads the optional type query parameter.
func parseStatusFilter(r *http.Request) (*core.Status, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		return nil, nil
	}
	st, err := core.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// parseMonths reads the series length; zero means the default.
func parseMonths(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue("months"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 120 {
		return 0, fmt.Errorf("%w: invalid months %q", errBadRequest, raw)
	}
	return n, nil
}
