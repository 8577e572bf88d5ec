package restapi

import (
	"net/http"
	"strconv"
	"strings"

	"granabox/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()
	if err := s.items.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeMessage(w, "ok")
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	isDefault, _ := strconv.ParseBool(strings.TrimSpace(r.PostFormValue("is_default")))
	label, err := s.items.CreateLabel(ctx, r.PostFormValue("name"), isDefault)
	if err != nil {
		s.fail(w, r, "create label", err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	labels, err := s.items.ListLabels(ctx)
	if err != nil {
		s.fail(w, r, "list labels", err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	in, err := parseItemInput(r)
	if err != nil {
		s.fail(w, r, "create item", err)
		return
	}
	item, err := s.items.CreateItem(ctx, in)
	if err != nil {
		s.fail(w, r, "create item", err)
		return
	}
	if full, err := s.items.GetItem(ctx, item.ID, s.location(r)); err == nil {
		item = full
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "get item", err)
		return
	}
	item, err := s.items.GetItem(ctx, id, s.location(r))
	if err != nil {
		s.fail(w, r, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	in, err := parseItemInput(r)
	if err != nil {
		s.fail(w, r, "update item", err)
		return
	}
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "update item", err)
		return
	}
	if err := s.items.UpdateItem(ctx, id, in); err != nil {
		s.fail(w, r, "update item", err)
		return
	}
	writeMessage(w, "Item atualizado.")
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "delete item", err)
		return
	}
	if err := s.items.DeleteItem(ctx, id); err != nil {
		s.fail(w, r, "delete item", err)
		return
	}
	writeMessage(w, "Item removido.")
}

func (s *Server) handleUpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "update item status", err)
		return
	}
	status, err := core.ParseStatus(r.PostFormValue("type"))
	if err != nil {
		s.fail(w, r, "update item status", err)
		return
	}
	if err := s.items.UpdateItemStatus(ctx, id, status); err != nil {
		s.fail(w, r, "update item status", err)
		return
	}
	writeMessage(w, "Status atualizado.")
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	in, err := parseItemInput(r)
	if err != nil {
		s.fail(w, r, "create recurring item", err)
		return
	}
	months, err := parseMonths(r)
	if err != nil {
		s.fail(w, r, "create recurring item", err)
		return
	}
	items, err := s.recurrences.Create(ctx, in, months)
	if err != nil {
		s.fail(w, r, "create recurring item", err)
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	in, err := parseItemInput(r)
	if err != nil {
		s.fail(w, r, "update recurring item", err)
		return
	}
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "update recurring item", err)
		return
	}
	if err := s.recurrences.Update(ctx, id, in); err != nil {
		s.fail(w, r, "update recurring item", err)
		return
	}
	writeMessage(w, "Série atualizada.")
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, "delete recurring item", err)
		return
	}
	if err := s.recurrences.End(ctx, id); err != nil {
		s.fail(w, r, "delete recurring item", err)
		return
	}
	writeMessage(w, "Série encerrada.")
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	items, err := s.items.ListItems(ctx, s.location(r))
	if err != nil {
		s.fail(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleItemsByDate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	p, err := parsePeriod(r)
	if err != nil {
		s.fail(w, r, "items by date", err)
		return
	}
	status, err := parseStatusFilter(r)
	if err != nil {
		s.fail(w, r, "items by date", err)
		return
	}
	items, err := s.items.ItemsByPeriod(ctx, p, status, s.location(r))
	if err != nil {
		s.fail(w, r, "items by date", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

type yearRangeBody struct {
	Min *int `json:"min_year"`
	Max *int `json:"max_year"`
}

// handleYearRange answers nulls when there are no items.
func (s *Server) handleYearRange(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	yr, err := s.items.YearRange(ctx)
	if err != nil {
		s.fail(w, r, "year range", err)
		return
	}
	var body yearRangeBody
	if yr.Min != 0 {
		body.Min = &yr.Min
	}
	if yr.Max != 0 {
		body.Max = &yr.Max
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	p, err := parsePeriod(r)
	if err != nil {
		s.fail(w, r, "overview", err)
		return
	}
	o, err := s.items.Overview(ctx, p)
	if err != nil {
		s.fail(w, r, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func nonNil(items []core.Item) []core.Item {
	if items == nil {
		return []core.Item{}
	}
	return items
}
