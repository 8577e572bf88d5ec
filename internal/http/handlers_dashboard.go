package http

import (
	"context"
	"net/http"

	"granabox/internal/core"
	"granabox/internal/dashboard"
	applog "granabox/internal/log"
	"granabox/internal/render"
)

func (s *Server) dashboardView(snap dashboard.Snapshot) render.Dashboard {
	return render.BuildDashboard(snap.Period, snap.Overview, snap.Items, snap.Years, s.loc)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	s.ensureLabels(ctx)

	p := ParsePeriod(r, s.loc)
	page := render.Page{ShowWelcome: !cookieFlag(r, CookieHideWelcome)}

	snap, err := s.dashboard.Snapshot(ctx, p)
	if err != nil {
		applog.LogError(ctx, "Dashboard snapshot failed", err, applog.ComponentHTTP, applog.OpRead,
			applog.NewFields().WithPeriod(p.Year, p.Month))
		snap = dashboard.Snapshot{Period: p, Years: core.YearRange{}.Normalize(s.started)}
		page.Notice = render.Failure("Não foi possível carregar os dados do mês.")
	}
	page.Dashboard = s.dashboardView(snap)

	body, err := s.render("index.html", page)
	if err != nil {
		applog.LogError(ctx, "Index template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	rememberPeriod(w, r, p)
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleDashboard serves the dashboard body for the selected month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	p := ParsePeriod(r, s.loc)
	rememberPeriod(w, r, p)
	s.writeDashboard(ctx, w, p, http.StatusOK, nil)
}

// writeDashboard renders the dashboard partial with an optional extra
// builder for triggers.
func (s *Server) writeDashboard(ctx context.Context, w http.ResponseWriter, p core.Period, status int, b *HTMXResponseBuilder) {
	snap, err := s.dashboard.Snapshot(ctx, p)
	if err != nil {
		applog.LogError(ctx, "Dashboard snapshot failed", err, applog.ComponentHTTP, applog.OpRead,
			applog.NewFields().WithPeriod(p.Year, p.Month))
		BadGatewayError("Não foi possível carregar os dados do mês.").Write(w)
		return
	}
	body, err := s.render("dashboard", s.dashboardView(snap))
	if err != nil {
		applog.LogError(ctx, "Dashboard template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Erro ao montar o painel.").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Status(status).BodyHTML(body).Write(w)
}

func (s *Server) handleDismissWelcome(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Requisição inválida.").Write(w)
		return
	}
	if r.FormValue("remember") == "1" {
		setCookie(w, r, CookieHideWelcome, "true")
	}
	w.WriteHeader(http.StatusOK)
}
