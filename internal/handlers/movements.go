package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/gate"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/policy"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/diewo77/go-inventario/internal/table"
	"go.uber.org/zap"
)

// movementsShown is how many ledger rows the inventory page lists.
const movementsShown = 10

// recentMovements renders the newest stock movements, naming products from
// the rows already loaded for the page.
func (d Deps) recentMovements(ctx context.Context, owner uint, products []models.Product) (table.View, error) {
	moves, err := d.Sales.Movements(ctx, owner, 0)
	if err != nil {
		return table.View{}, err
	}
	names := make(map[uint]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	lang := i18n.LangFromContext(ctx)

	newest := make([]models.StockMovement, 0, movementsShown)
	for i := len(moves) - 1; i >= 0 && len(newest) < movementsShown; i-- {
		newest = append(newest, moves[i])
	}
	t := table.Table[models.StockMovement]{
		Columns: []table.Column[models.StockMovement]{
			{Label: "field.fecha", Value: func(m models.StockMovement) string { return m.CreatedAt.Format(dateLayout) }},
			{Label: "field.producto", Value: func(m models.StockMovement) string {
				if n, ok := names[m.ProductID]; ok {
					return n
				}
				return "#" + strconv.FormatUint(uint64(m.ProductID), 10)
			}},
			{Label: "field.tipo", Value: func(m models.StockMovement) string { return i18n.T(lang, "movement."+string(m.Kind)) }},
			{Label: "field.variacion", Value: func(m models.StockMovement) string { return strconv.Itoa(m.Delta) }},
			{Label: "field.antes", Value: func(m models.StockMovement) string { return strconv.Itoa(m.Before) }},
			{Label: "field.despues", Value: func(m models.StockMovement) string { return strconv.Itoa(m.After) }},
		},
		ID: func(m models.StockMovement) uint { return m.ID },
	}
	return t.Render(newest), nil
}

// ProductMovements serves GET /inventario/{id}/movimientos: the stock ledger
// of one product as JSON.
func (d Deps) ProductMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, _ := auth.UserIDFromContext(ctx)
	p, err := d.lookupProduct(ctx, owner, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "sale.product_missing", nil)
		return
	}
	if err != nil {
		d.Log.Error("product lookup failed", zap.Uint("owner", owner), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "product.fetch_failed", nil)
		return
	}
	if err := d.Gate.Authorize(ctx, gate.ActionView, policy.ResourceProduct, p); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	moves, err := d.Sales.Movements(ctx, owner, p.ID)
	if err != nil {
		d.Log.Error("movements failed", zap.Uint("owner", owner), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "product.fetch_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": moves})
}
