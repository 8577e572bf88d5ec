package http

import (
	"context"
	"errors"
	"net/http"

	"granabox/internal/core"
	"granabox/internal/lifecycle"
	applog "granabox/internal/log"
	"granabox/internal/render"
)

func (s *Server) handleNewItemForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	column, err := core.ParseColumn(r.URL.Query().Get("column"))
	if err != nil {
		column = core.ColumnToPay
	}
	labels, err := s.backend.ListLabels(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.writeForm(w, r, http.StatusOK, render.NewItemForm(column, labels, ParsePeriod(r, s.loc)))
}

func (s *Server) handleEditItemForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	id, err := ParseItemID(r)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	item, err := s.backend.GetItem(ctx, id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	labels, err := s.backend.ListLabels(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.writeForm(w, r, http.StatusOK, render.EditItemForm(item, labels))
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, status int, form render.ItemForm) {
	body, err := s.render("item_form", form)
	if err != nil {
		applog.LogError(r.Context(), "Form template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Erro ao montar o formulário.").Write(w)
		return
	}
	b := NewHTMXResponse().Status(status).BodyHTML(body)
	if form.Error != "" {
		b.TriggerErrorNotification(form.Error)
	}
	b.Write(w)
}

// refill answers a rejected submission with the form as the user left it.
func (s *Server) refill(ctx context.Context, w http.ResponseWriter, r *http.Request, form render.ItemForm, d core.Draft, err error) {
	labels, lerr := s.backend.ListLabels(ctx)
	if lerr != nil {
		labels = nil
	}
	s.writeForm(w, r, http.StatusUnprocessableEntity, form.Refill(d, labels, err))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		BadRequestError("Requisição inválida.").Write(w)
		return
	}
	draft := ParseDraft(r.PostForm)

	items, err := s.controller.Create(ctx, draft)
	if err != nil {
		if core.IsValidation(err) {
			column, cerr := core.ParseColumn(r.PostForm.Get("column"))
			if cerr != nil {
				column = core.ColumnToPay
			}
			s.refill(ctx, w, r, render.NewItemForm(column, nil, ParsePeriod(r, s.loc)), draft, err)
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	p := ParsePeriod(r, s.loc)
	if len(items) > 0 {
		p = items[0].Period()
	}
	applog.FromContext(ctx).InfoContext(ctx, "Item created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldItemType, string(draft.Type),
		applog.FieldRecurrence, string(draft.Recurrence),
		"count", len(items))
	NewHTMXResponse().
		TriggerModalClose().
		TriggerDashboardRefresh(p).
		TriggerSuccessNotification("Item adicionado.").
		Write(w)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	id, err := ParseItemID(r)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Requisição inválida.").Write(w)
		return
	}
	draft := ParseDraft(r.PostForm)

	if err := s.controller.Edit(ctx, id, draft); err != nil {
		if core.IsValidation(err) && !errors.Is(err, lifecycle.ErrItemRemoved) {
			item, gerr := s.backend.GetItem(ctx, id)
			if gerr != nil {
				s.fail(w, r, applog.OpRead, gerr)
				return
			}
			s.refill(ctx, w, r, render.EditItemForm(item, nil), draft, err)
			return
		}
		s.fail(w, r, applog.OpUpdate, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Item updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldItemID, id)
	NewHTMXResponse().
		TriggerModalClose().
		TriggerDashboardRefresh(ParsePeriod(r, s.loc)).
		TriggerSuccessNotification("Item atualizado.").
		Write(w)
}

// handleConfirmDelete shows the confirmation, or asks the page to delete
// right away when the user chose not to be asked again.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	id, err := ParseItemID(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if cookieFlag(r, CookieSkipDeleteDialog) {
		NewHTMXResponse().Status(http.StatusOK).TriggerSkipConfirm(id).Write(w)
		return
	}
	item, err := s.backend.GetItem(ctx, id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	body, err := s.render("confirm_delete", render.NewDeleteConfirm(item))
	if err != nil {
		applog.LogError(ctx, "Delete dialog template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Erro ao montar a confirmação.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	id, err := ParseItemID(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if err := ParseForm(r); err != nil {
		BadRequestError("Requisição inválida.").Write(w)
		return
	}
	if r.Form.Get("remember") == "1" {
		setCookie(w, r, CookieSkipDeleteDialog, "true")
	}

	if err := s.controller.Delete(ctx, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Item deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldItemID, id)
	NewHTMXResponse().
		TriggerModalClose().
		TriggerDashboardRefresh(ParsePeriod(r, s.loc)).
		TriggerSuccessNotification("Item excluído.").
		Write(w)
}

// handleMoveItem applies a drop. A drop across income and expenses is
// refused with 409 and the unchanged dashboard so the card snaps back.
func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	id, err := ParseItemID(r)
	if err != nil {
		s.fail(w, r, applog.OpMove, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Requisição inválida.").Write(w)
		return
	}
	column, err := core.ParseColumn(r.PostForm.Get("column"))
	if err != nil {
		s.fail(w, r, applog.OpMove, err)
		return
	}

	p := ParsePeriod(r, s.loc)
	status, err := s.controller.Move(ctx, id, column)
	switch {
	case errors.Is(err, core.ErrCrossColumnMove):
		applog.FromContext(ctx).WarnContext(ctx, "Cross column move refused",
			applog.FieldItemID, id,
			applog.FieldColumn, string(column),
			applog.FieldErrorType, applog.ErrorTypeConflict)
		b := NewHTMXResponse().TriggerErrorNotification("Rendimentos e despesas não podem trocar de coluna.")
		s.writeDashboard(ctx, w, p, http.StatusConflict, b)
		return
	case err != nil:
		s.fail(w, r, applog.OpMove, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Item moved",
		applog.FieldOperation, applog.OpMove,
		applog.FieldItemID, id,
		applog.FieldItemType, string(status))
	s.writeDashboard(ctx, w, p, http.StatusOK, nil)
}
