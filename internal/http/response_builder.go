// This file implements the builder for HTMX responses: HX-Trigger events
// and consistent HTML bodies.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"granabox/internal/core"
)

// Events the dashboard script listens for.
const (
	EventNotification     = "show-notification"
	EventDashboardRefresh = "dashboard:refresh"
	EventModalClose       = "modal:close"
	EventSkipConfirm      = "delete:skip-confirm"
)

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerDashboardRefresh asks the page to reload the dashboard body. The
// month is informative; the page reloads whatever month it shows.
func (b *HTMXResponseBuilder) TriggerDashboardRefresh(p core.Period) *HTMXResponseBuilder {
	return b.Trigger(EventDashboardRefresh, map[string]int{"year": p.Year, "month": p.Month})
}

func (b *HTMXResponseBuilder) TriggerModalClose() *HTMXResponseBuilder {
	return b.Trigger(EventModalClose, struct{}{})
}

// TriggerSkipConfirm tells the page to delete id without asking.
func (b *HTMXResponseBuilder) TriggerSkipConfirm(id int64) *HTMXResponseBuilder {
	return b.Trigger(EventSkipConfirm, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyHTML sets an HTML body.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = html
	return b
}

// Write sends the built response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an escaped error fragment with a matching notification.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		TriggerErrorNotification(message).
		BodyHTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func BadGatewayError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
