package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/gate"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/internal/policy"
	"github.com/diewo77/go-inventario/internal/store"
	"go.uber.org/zap"
)

// ProductPrice is the derived part of a sale entry.
type ProductPrice struct {
	ID        uint    `json:"id"`
	Name      string  `json:"producto"`
	Code      string  `json:"codigo"`
	SalePrice float64 `json:"precio_venta"`
	Quantity  int     `json:"cantidad"`
}

// ProductLookup serves GET /nuevaFactura/producto/{id} for scripts that
// fill the price without a page reload.
func (d Deps) ProductLookup(w http.ResponseWriter, r *http.Request) {
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
	httpx.JSON(w, http.StatusOK, ProductPrice{ID: p.ID, Name: p.Name, Code: p.Code, SalePrice: p.SalePrice, Quantity: p.Quantity})
}
