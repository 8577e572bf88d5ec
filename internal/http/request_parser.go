// Package http serves the GranaBox dashboard.
//
// This file holds the helpers that turn requests into domain values.

package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"granabox/internal/core"
)

// Cookies remembered per browser.
const (
	CookieYear             = "selectedYear"
	CookieMonth            = "selectedMonth"
	CookieSkipDeleteDialog = "dontShowDeleteConfirmation"
	CookieHideWelcome      = "dontShowWelcome"
)

const cookieMaxAge = 365 * 24 * 60 * 60

const maxFormBody = 64 << 10

var errInvalidID = errors.New("invalid item id")

// ParsePeriod picks the month to show: query first, then the remembered
// selection, then the current month in loc. Each of year and month falls
// back on its own.
func ParsePeriod(r *http.Request, loc *time.Location) core.Period {
	p := core.CurrentPeriod(loc)
	q := r.URL.Query()

	if y, ok := intParam(q.Get("year")); ok && y >= 1900 && y <= 9999 {
		p.Year = y
	} else if y, ok := intParam(cookieValue(r, CookieYear)); ok && y >= 1900 && y <= 9999 {
		p.Year = y
	}
	if m, ok := intParam(q.Get("month")); ok && m >= 1 && m <= 12 {
		p.Month = m
	} else if m, ok := intParam(cookieValue(r, CookieMonth)); ok && m >= 1 && m <= 12 {
		p.Month = m
	}
	return p
}

func intParam(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// ParseDraft reads the item form.
func ParseDraft(form url.Values) core.Draft {
	return core.Draft{
		Type:        core.Status(sanitizeInput(form.Get("type"))),
		Label:       sanitizeInput(form.Get("label")),
		NewLabel:    sanitizeInput(form.Get("new_label")),
		Description: sanitizeInput(form.Get("description")),
		Amount:      sanitizeInput(form.Get("amount")),
		DueDate:     sanitizeInput(form.Get("due_date")),
		Recurrence:  core.Recurrence(sanitizeInput(form.Get("recurrence"))),
	}
}

// ParseForm is r.ParseForm plus the urlencoded body of DELETE requests,
// which net/http leaves unread and htmx uses for hx-delete form values.
func ParseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	if r.Method != http.MethodDelete || r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/x-www-form-urlencoded" {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody+1))
	if err != nil {
		return err
	}
	if len(b) > maxFormBody {
		return errors.New("form body too large")
	}
	vals, err := url.ParseQuery(string(b))
	if err != nil {
		return err
	}
	for k, vs := range vals {
		r.Form[k] = append(r.Form[k], vs...)
	}
	return nil
}

// ParseItemID reads the {id} path value.
func ParseItemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

func cookieFlag(r *http.Request, name string) bool {
	return cookieValue(r, name) == "true"
}

func setCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// rememberPeriod stores the selection so reloads show the same month.
func rememberPeriod(w http.ResponseWriter, r *http.Request, p core.Period) {
	setCookie(w, r, CookieYear, strconv.Itoa(p.Year))
	setCookie(w, r, CookieMonth, p.MonthValue())
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
