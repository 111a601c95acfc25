package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-inventario/internal/entity"
	"github.com/diewo77/go-inventario/internal/form"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/policy"
	"github.com/diewo77/go-inventario/internal/services"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/diewo77/go-inventario/internal/table"
	"github.com/diewo77/go-inventario/validation"
	"go.uber.org/zap"
)

// Deps is what the pages are built from.
type Deps struct {
	Store      *store.Store
	Sales      *services.SalesService
	Accounting *services.Accounting
	Gate       *policy.AuthGate
	Log        *zap.Logger
}

// Route is anything that registers its own handlers.
type Route interface {
	Routes(mux *http.ServeMux, wrap func(pattern string, h http.Handler) http.Handler)
}

const dateLayout = "2006-01-02"

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func staticForm(fields ...form.Field) func(context.Context, uint) (*form.Form, error) {
	return func(context.Context, uint) (*form.Form, error) {
		return form.New(fields...), nil
	}
}

// ClientPage serves /cliente.
func ClientPage(d Deps) *entity.Page[models.Client, *models.Client] {
	return entity.New(entity.Config[models.Client, *models.Client]{
		Resource: policy.ResourceClient,
		Path:     "/cliente",
		Title:    "title.clients",
		Table:    d.Store.Clients,
		Columns: []table.Column[models.Client]{
			{Label: "field.nombre", Value: func(c models.Client) string { return c.Name }},
			{Label: "field.email", Value: func(c models.Client) string { return c.Email }},
			{Label: "field.telefono", Value: func(c models.Client) string { return c.Phone }},
			{Label: "field.direccion", Value: func(c models.Client) string { return c.Address }},
		},
		Search: func(c models.Client) []string { return []string{c.Name, c.Email, c.Phone, c.Address} },
		Form: staticForm(
			form.Field{Name: "nombre", Label: "field.nombre", Kind: form.Text, Required: true},
			form.Field{Name: "email", Label: "field.email", Kind: form.Email, Required: true},
			form.Field{Name: "telefono", Label: "field.telefono", Kind: form.Text, Required: true},
			form.Field{Name: "direccion", Label: "field.direccion", Kind: form.Text, Required: true},
		),
		Required: []string{"nombre", "email", "telefono", "direccion"},
		Decode: func(v form.Values, errs validation.Violations) *models.Client {
			validation.Email("email", v["email"], errs)
			return &models.Client{Name: v["nombre"], Email: v["email"], Phone: v["telefono"], Address: v["direccion"]}
		},
	}, d.Gate, d.Log)
}

// SupplierPage serves /proveedor.
func SupplierPage(d Deps) *entity.Page[models.Supplier, *models.Supplier] {
	return entity.New(entity.Config[models.Supplier, *models.Supplier]{
		Resource: policy.ResourceSupplier,
		Path:     "/proveedor",
		Title:    "title.suppliers",
		Table:    d.Store.Suppliers,
		Columns: []table.Column[models.Supplier]{
			{Label: "field.nombre", Value: func(s models.Supplier) string { return s.Name }},
			{Label: "field.correo", Value: func(s models.Supplier) string { return s.Email }},
			{Label: "field.telefono", Value: func(s models.Supplier) string { return s.Phone }},
			{Label: "field.direccion", Value: func(s models.Supplier) string { return s.Address }},
		},
		Search: func(s models.Supplier) []string { return []string{s.Name, s.Email} },
		Form: staticForm(
			form.Field{Name: "nombre", Label: "field.nombre", Kind: form.Text, Required: true},
			form.Field{Name: "email", Label: "field.correo", Kind: form.Email},
			form.Field{Name: "telefono", Label: "field.telefono", Kind: form.Text},
			form.Field{Name: "direccion", Label: "field.direccion", Kind: form.Text},
		),
		Required: []string{"nombre"},
		Decode: func(v form.Values, errs validation.Violations) *models.Supplier {
			validation.Email("email", v["email"], errs)
			return &models.Supplier{Name: v["nombre"], Email: v["email"], Phone: v["telefono"], Address: v["direccion"]}
		},
	}, d.Gate, d.Log)
}

// ProductPage serves /inventario.
func ProductPage(d Deps) *entity.Page[models.Product, *models.Product] {
	return entity.New(entity.Config[models.Product, *models.Product]{
		Resource: policy.ResourceProduct,
		Path:     "/inventario",
		Title:    "title.inventory",
		Table:    d.Store.Products,
		Columns: []table.Column[models.Product]{
			{Label: "field.producto", Value: func(p models.Product) string { return p.Name }},
			{Label: "field.codigo", Value: func(p models.Product) string { return p.Code }},
			{Label: "field.cantidad", Value: func(p models.Product) string { return strconv.Itoa(p.Quantity) }},
			{Label: "field.precio_compra", Value: func(p models.Product) string { return money(p.PurchasePrice) }},
			{Label: "field.precio_venta", Value: func(p models.Product) string { return money(p.SalePrice) }},
			{Label: "field.margen", Value: func(p models.Product) string { return money(p.Margin()) }},
			{Label: "field.proveedor", Value: func(p models.Product) string { return p.Supplier }},
		},
		Search: func(p models.Product) []string { return []string{p.Name, p.Code} },
		Form: func(ctx context.Context, owner uint) (*form.Form, error) {
			suppliers, err := d.Store.Suppliers.Select(ctx, owner)
			if err != nil {
				return nil, err
			}
			opts := make([]form.Option, 0, len(suppliers))
			for _, s := range suppliers {
				opts = append(opts, form.Option{Value: s.Name, Label: s.Name})
			}
			supplier := form.Field{Name: "proveedor", Label: "field.proveedor", Kind: form.Text}
			if len(opts) > 0 {
				supplier.Kind = form.Select
				supplier.Options = opts
			}
			return form.New(
				form.Field{Name: "producto", Label: "field.producto", Kind: form.Text, Required: true},
				form.Field{Name: "codigo", Label: "field.codigo", Kind: form.Text, Required: true},
				form.Field{Name: "cantidad", Label: "field.cantidad", Kind: form.Number, Required: true, Step: "1"},
				form.Field{Name: "precio_compra", Label: "field.precio_compra", Kind: form.Number, Required: true, Step: "0.01"},
				form.Field{Name: "precio_venta", Label: "field.precio_venta", Kind: form.Number, Required: true, Step: "0.01"},
				supplier,
			), nil
		},
		Required: []string{"producto", "codigo", "cantidad", "precio_compra", "precio_venta"},
		Decode: func(v form.Values, errs validation.Violations) *models.Product {
			p := &models.Product{Name: v["producto"], Code: v["codigo"], Supplier: v["proveedor"]}
			p.Quantity = validation.Int("cantidad", v["cantidad"], errs)
			p.PurchasePrice = validation.Float("precio_compra", v["precio_compra"], errs)
			p.SalePrice = validation.Float("precio_venta", v["precio_venta"], errs)
			validation.NonNegativeFloat("cantidad", float64(p.Quantity), errs)
			validation.NonNegativeFloat("precio_compra", p.PurchasePrice, errs)
			validation.NonNegativeFloat("precio_venta", p.SalePrice, errs)
			return p
		},
		Explain: func(err error) string {
			if errors.Is(err, store.ErrDuplicate) {
				return "code_already_exists"
			}
			return ""
		},
		Extra: func(ctx context.Context, owner uint, rows []models.Product, data map[string]any) error {
			var total float64
			for i := range rows {
				total += rows[i].StockValue()
			}
			data["StockValue"] = total
			moves, err := d.recentMovements(ctx, owner, rows)
			if err != nil {
				return err
			}
			data["Movements"] = moves
			return nil
		},
	}, d.Gate, d.Log)
}

func saleColumns() []table.Column[models.Sale] {
	return []table.Column[models.Sale]{
		{Label: "field.cliente", Value: func(s models.Sale) string { return s.Client }},
		{Label: "field.producto", Value: func(s models.Sale) string { return s.Product }},
		{Label: "field.codigo", Value: func(s models.Sale) string { return s.Code }},
		{Label: "field.cantidad", Value: func(s models.Sale) string { return strconv.Itoa(s.Quantity) }},
		{Label: "field.precio_total", Value: func(s models.Sale) string { return money(s.TotalPrice) }},
		{Label: "field.fecha", Value: func(s models.Sale) string { return s.Date.Format(dateLayout) }},
		{Label: "field.metodo_pago", Value: func(s models.Sale) string { return string(s.PaymentMethod) }},
	}
}

func saleSearch(s models.Sale) []string { return []string{s.Client, s.Product, s.Code} }

// SalesPage serves /factura, the sale listing.
func SalesPage(d Deps) *entity.Page[models.Sale, *models.Sale] {
	return entity.New(entity.Config[models.Sale, *models.Sale]{
		Resource: policy.ResourceSale,
		Path:     "/factura",
		Title:    "title.sales",
		Table:    d.Store.Sales,
		Columns:  saleColumns(),
		Search:   saleSearch,
		Delete:   d.Sales.Delete,
		Extra: func(_ context.Context, _ uint, _ []models.Sale, data map[string]any) error {
			data["Hint"] = "sale.restock_" + string(d.Sales.Restock())
			return nil
		},
	}, d.Gate, d.Log)
}

// AccountingPage serves /contabilidad: the sale listing with its summary.
func AccountingPage(d Deps) *entity.Page[models.Sale, *models.Sale] {
	return entity.New(entity.Config[models.Sale, *models.Sale]{
		Resource: policy.ResourceSale,
		Messages: "accounting",
		Path:     "/contabilidad",
		Title:    "title.accounting",
		Table:    d.Store.Sales,
		Columns:  saleColumns(),
		Search:   saleSearch,
		Delete:   d.Sales.Delete,
		Extra: func(_ context.Context, _ uint, rows []models.Sale, data map[string]any) error {
			data["Summary"] = services.Summarize(rows)
			return nil
		},
	}, d.Gate, d.Log)
}

// Fields of the sale entry form.
const (
	saleClient  = "cliente"
	saleProduct = "producto"
	saleCode    = "codigo"
	saleQty     = "cantidad"
	salePrice   = "precio"
	saleDate    = "fecha"
	saleMethod  = "metodo_pago"
)

func (d Deps) saleForm(ctx context.Context, owner uint) (*form.Form, error) {
	clients, err := d.Store.Clients.Select(ctx, owner)
	if err != nil {
		return nil, err
	}
	products, err := d.Store.Products.Select(ctx, owner, store.Gt("quantity", 0))
	if err != nil {
		return nil, err
	}
	clientOpts := make([]form.Option, 0, len(clients))
	for _, c := range clients {
		clientOpts = append(clientOpts, form.Option{Value: strconv.FormatUint(uint64(c.ID), 10), Label: c.Name})
	}
	productOpts := make([]form.Option, 0, len(products))
	for _, p := range products {
		productOpts = append(productOpts, form.Option{
			Value: strconv.FormatUint(uint64(p.ID), 10),
			Label: fmt.Sprintf("%s (%s)", p.Name, p.Code),
		})
	}
	methodOpts := make([]form.Option, 0, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		methodOpts = append(methodOpts, form.Option{Value: string(m), Label: string(m)})
	}
	return form.New(
		form.Field{Name: saleClient, Label: "field.cliente", Kind: form.Select, Options: clientOpts, Placeholder: "placeholder.cliente", Required: true},
		form.Field{Name: saleProduct, Label: "field.producto", Kind: form.Select, Options: productOpts, Placeholder: "placeholder.producto", Required: true},
		form.Field{Name: saleCode, Label: "field.codigo", Kind: form.Text, ReadOnly: true},
		form.Field{Name: saleQty, Label: "field.cantidad", Kind: form.Number, Required: true, Step: "1"},
		form.Field{Name: salePrice, Label: "field.precio", Kind: form.Number, Required: true, Step: "0.01"},
		form.Field{Name: saleDate, Label: "field.fecha", Kind: form.Date, Required: true},
		form.Field{Name: saleMethod, Label: "field.metodo_pago", Kind: form.Select, Options: methodOpts, Placeholder: "placeholder.metodo_pago", Required: true},
	), nil
}

// prefillSale copies the query into the form and, when a product is
// chosen, merges in its code and sale price.
func (d Deps) prefillSale(ctx context.Context, owner uint, r *http.Request, f *form.Form) error {
	q := r.URL.Query()
	v := f.Values()
	for name := range v {
		if s := q.Get(name); s != "" {
			v[name] = s
		}
	}
	f.WithValues(v)
	if f.Get(saleDate) == "" {
		f.Set(saleDate, time.Now().Format(dateLayout))
	}
	f.Set(saleCode, "")
	f.Set(salePrice, "")
	raw := f.Get(saleProduct)
	if raw == "" {
		return nil
	}
	p, err := d.lookupProduct(ctx, owner, raw)
	if err != nil {
		return err
	}
	f.Set(saleCode, p.Code)
	f.Set(salePrice, strconv.FormatFloat(p.SalePrice, 'f', -1, 64))
	return nil
}

func (d Deps) lookupProduct(ctx context.Context, owner uint, raw string) (*models.Product, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, store.ErrNotFound
	}
	return d.Store.Products.Get(ctx, owner, uint(id))
}

func decodeSale(v form.Values, errs validation.Violations) *models.Sale {
	s := &models.Sale{Code: v[saleCode], PaymentMethod: models.PaymentMethod(v[saleMethod])}
	s.ClientID = uint(validation.Int(saleClient, v[saleClient], errs))
	s.ProductID = uint(validation.Int(saleProduct, v[saleProduct], errs))
	s.Quantity = validation.Int(saleQty, v[saleQty], errs)
	s.UnitPrice = validation.Float(salePrice, v[salePrice], errs)
	validation.PositiveFloat(saleQty, float64(s.Quantity), errs)
	validation.PositiveFloat(salePrice, s.UnitPrice, errs)
	if !s.PaymentMethod.Valid() {
		errs.Add(saleMethod, "invalid_choice")
	}
	date, err := time.Parse(dateLayout, v[saleDate])
	if err != nil {
		errs.Add(saleDate, "invalid_date")
	}
	s.Date = date
	return s
}

func explainSale(err error) string {
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		return "sale.insufficient_stock"
	case errors.Is(err, services.ErrProductNotFound):
		return "sale.product_missing"
	case errors.Is(err, services.ErrClientNotFound):
		return "sale.client_missing"
	case errors.Is(err, services.ErrInvalidSale):
		return "page.fill_all"
	}
	return ""
}

// NewSalePage serves /nuevaFactura, the sale entry form.
func NewSalePage(d Deps) *entity.Page[models.Sale, *models.Sale] {
	return entity.New(entity.Config[models.Sale, *models.Sale]{
		Resource: policy.ResourceSale,
		Path:     "/nuevaFactura",
		Title:    "title.new_sale",
		Template: "nueva_factura.html",
		Table:    d.Store.Sales,
		Columns:  saleColumns(),
		Form:     d.saleForm,
		Required: []string{saleClient, saleProduct, saleQty, salePrice, saleDate, saleMethod},
		Decode:   decodeSale,
		Prefill:  d.prefillSale,
		Create: func(ctx context.Context, owner uint, rec *models.Sale) error {
			sale, err := d.Sales.Create(ctx, owner, services.SaleInput{
				ClientID:      rec.ClientID,
				ProductID:     rec.ProductID,
				Quantity:      rec.Quantity,
				UnitPrice:     rec.UnitPrice,
				Date:          rec.Date,
				PaymentMethod: rec.PaymentMethod,
			})
			if err != nil {
				return err
			}
			*rec = *sale
			return nil
		},
		Delete:  d.Sales.Delete,
		Explain: explainSale,
	}, d.Gate, d.Log)
}
