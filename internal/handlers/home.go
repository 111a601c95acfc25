package handlers

import (
	"net/http"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/services"
	"github.com/diewo77/go-inventario/internal/session"
	"github.com/diewo77/go-inventario/internal/table"
	"github.com/diewo77/go-inventario/view"
	"go.uber.org/zap"
)

// recentSales is how many sales the home page lists.
const recentSales = 5

// HomeHandler serves /inicio.
type HomeHandler struct {
	accounting *services.Accounting
	log        *zap.Logger
}

func NewHomeHandler(a *services.Accounting, log *zap.Logger) *HomeHandler {
	return &HomeHandler{accounting: a, log: log}
}

func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, _ := auth.UserIDFromContext(ctx)
	data := map[string]any{"Title": "title.home"}
	if u, ok := session.IdentityFrom(ctx); ok {
		data["Identity"] = u.DisplayName()
	}

	o, err := h.accounting.Overview(ctx, owner, recentSales)
	if err != nil {
		h.log.Error("overview failed", zap.Uint("owner", owner), zap.Error(err))
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusInternalServerError, "accounting.fetch_failed", nil)
			return
		}
		data["Error"] = i18n.T(i18n.LangFromContext(ctx), "accounting.fetch_failed")
		o = &services.Overview{}
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, o)
		return
	}

	recent := table.Table[models.Sale]{
		Columns: saleColumns(),
		ID:      func(s models.Sale) uint { return s.ID },
	}
	data["Overview"] = o
	data["Recent"] = recent.Render(o.Recent)
	if err := view.Render(w, r, "inicio.html", data); err != nil {
		h.log.Error("render failed", zap.String("template", "inicio.html"), zap.Error(err))
	}
}
