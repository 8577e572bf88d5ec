package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"granabox/internal/core"
)

// Item event actions. The routing key of an event is "item.<action>".
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionDeleted       = "deleted"
	ActionSeriesCreated = "series_created"
	ActionSeriesUpdated = "series_updated"
	ActionSeriesEnded   = "series_ended"
)

// RoutingPrefix matches every item event when bound as RoutingPrefix + "#".
const RoutingPrefix = "item."

// ItemEvent describes one change made by the backend. Item holds the item as
// it was after the change, or just before it for deletions.
type ItemEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Item      core.Item `json:"item"`
	Count     int       `json:"count"`
	Periods   []string  `json:"periods"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent stamps an event with a fresh id. The item's own month is
// always among the affected periods.
func NewItemEvent(action string, item core.Item, count int, periods ...core.Period) *ItemEvent {
	if count < 1 {
		count = 1
	}
	seen := map[string]bool{}
	var keys []string
	for _, p := range append([]core.Period{item.Period()}, periods...) {
		if k := p.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return &ItemEvent{
		ID:        uuid.NewString(),
		Action:    action,
		Item:      item,
		Count:     count,
		Periods:   keys,
		Timestamp: time.Now().UTC(),
	}
}

func (e *ItemEvent) RoutingKey() string {
	return RoutingPrefix + e.Action
}

func (e *ItemEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ItemEventFromJSON(data []byte) (*ItemEvent, error) {
	var e ItemEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
