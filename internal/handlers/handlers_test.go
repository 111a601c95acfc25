package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/internal/config"
	"github.com/diewo77/go-inventario/internal/db"
	"github.com/diewo77/go-inventario/internal/metrics"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/services"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/diewo77/go-inventario/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	store   *store.Store
	handler http.Handler
	user    *models.User
	cookie  *http.Cookie
}

func newEnv(t *testing.T) *env {
	t.Helper()
	view.ResetForTests()
	view.SetBaseDir("../../templates")

	cfg := config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        "file:" + t.Name() + "?mode=memory&cache=shared",
		ConnRetries: 1,
	}
	gdb, err := db.Connect(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, cfg))

	st := store.New(gdb, zap.NewNop())
	rc := NewRouterConfig(st, metrics.New(), services.RestockRestore, zap.NewNop())

	mux := http.NewServeMux()
	wrap := func(_ string, h http.Handler) http.Handler { return rc.Session.Gate(h) }
	mux.HandleFunc("GET /{$}", rc.Auth.Login)
	mux.HandleFunc("POST /{$}", rc.Auth.Login)
	mux.HandleFunc("GET /registro", rc.Auth.Register)
	mux.HandleFunc("POST /registro", rc.Auth.Register)
	mux.HandleFunc("POST /salir", rc.Auth.Logout)
	mux.Handle("GET /inicio", wrap("", http.HandlerFunc(rc.Home.Home)))
	for _, p := range rc.Pages {
		p.Routes(mux, wrap)
	}
	mux.Handle("GET /nuevaFactura/producto/{id}", wrap("", http.HandlerFunc(rc.Deps.ProductLookup)))
	mux.Handle("GET /inventario/{id}/movimientos", wrap("", http.HandlerFunc(rc.Deps.ProductMovements)))

	u, err := st.Accounts.SignUp(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	token, err := auth.IssueToken(u.ID, u.Email, time.Now())
	require.NoError(t, err)

	return &env{
		store:   st,
		handler: auth.Middleware(mux),
		user:    u,
		cookie:  &http.Cookie{Name: auth.CookieName, Value: token},
	}
}

func (e *env) do(method, target string, form url.Values, jsonOut bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if jsonOut {
		req.Header.Set("Accept", "application/json")
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func clientForm(name string) url.Values {
	return url.Values{
		"nombre":    {name},
		"email":     {strings.ToLower(name) + "@example.com"},
		"telefono":  {"555-0101"},
		"direccion": {"Calle 1"},
	}
}

func TestProtectedRouteRedirectsWithoutSession(t *testing.T) {
	e := newEnv(t)
	e.cookie = nil

	rec := e.do(http.MethodGet, "/inventario", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/cliente", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientCreateListSearchDelete(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/cliente", clientForm("Lucia"), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/cliente?ok=created", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/cliente?ok=created", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro agregado.")
	assert.Contains(t, rec.Body.String(), "Lucia")

	rec = e.do(http.MethodPost, "/cliente", clientForm("Mateo"), true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, e.user.ID, created.UserID)

	rec = e.do(http.MethodGet, "/cliente?buscar=1&q=luc", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lucia")
	assert.NotContains(t, rec.Body.String(), "Mateo")

	rec = e.do(http.MethodPost, fmt.Sprintf("/cliente/%d/eliminar", created.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro eliminado.")
	assert.NotContains(t, rec.Body.String(), "Mateo")

	rec = e.do(http.MethodGet, "/cliente", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []models.Client `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Lucia", list.Items[0].Name)
}

func TestClientCreateMissingFields(t *testing.T) {
	e := newEnv(t)
	f := clientForm("Lucia")
	f.Set("telefono", "  ")

	rec := e.do(http.MethodPost, "/cliente", f, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Por favor, completa todos los campos.")

	n, err := e.store.Clients.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteForeignClientIsNoop(t *testing.T) {
	e := newEnv(t)
	other := &models.Client{Name: "Ajeno"}
	require.NoError(t, e.store.Clients.Insert(context.Background(), e.user.ID+100, other))

	rec := e.do(http.MethodPost, fmt.Sprintf("/cliente/%d/eliminar", other.ID), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":0}`, rec.Body.String())

	_, err := e.store.Clients.Get(context.Background(), e.user.ID+100, other.ID)
	assert.NoError(t, err)
}

func productForm(code string) url.Values {
	return url.Values{
		"producto":      {"Cuaderno"},
		"codigo":        {code},
		"cantidad":      {"4"},
		"precio_compra": {"1.5"},
		"precio_venta":  {"3"},
	}
}

func TestProductDuplicateCode(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/inventario", productForm("CU-1"), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.do(http.MethodPost, "/inventario", productForm("CU-1"), false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "El código del producto ya existe.")

	n, err := e.store.Products.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func seedSale(t *testing.T, e *env, qty int) (*models.Client, *models.Product) {
	t.Helper()
	ctx := context.Background()
	c := &models.Client{Name: "Comercial Sur"}
	p := &models.Product{Name: "Cuaderno", Code: "CU-1", Quantity: qty, SalePrice: 2.5}
	require.NoError(t, e.store.Clients.Insert(ctx, e.user.ID, c))
	require.NoError(t, e.store.Products.Insert(ctx, e.user.ID, p))
	return c, p
}

func saleForm(c *models.Client, p *models.Product, qty int) url.Values {
	return url.Values{
		"cliente":     {fmt.Sprint(c.ID)},
		"producto":    {fmt.Sprint(p.ID)},
		"cantidad":    {fmt.Sprint(qty)},
		"precio":      {"2.5"},
		"fecha":       {"2026-03-01"},
		"metodo_pago": {string(models.PaymentCash)},
	}
}

func TestNewSaleDecrementsStock(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)

	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 3), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/nuevaFactura?ok=created", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/nuevaFactura?ok=created", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro agregado.")
	assert.Contains(t, rec.Body.String(), "7.50")

	got, err := e.store.Products.Get(context.Background(), e.user.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
}

func TestNewSaleInsufficientStock(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 2)

	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 3), false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cantidad insuficiente en inventario.")

	rec = e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 3), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "sale.insufficient_stock")

	n, err := e.store.Sales.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewSalePrefillsPrice(t *testing.T) {
	e := newEnv(t)
	_, p := seedSale(t, e, 5)

	rec := e.do(http.MethodGet, fmt.Sprintf("/nuevaFactura?producto=%d&cantidad=2", p.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="CU-1"`)
	assert.Contains(t, body, `value="2.5"`)
	assert.Contains(t, body, time.Now().Format(dateLayout))
}

func TestProductLookup(t *testing.T) {
	e := newEnv(t)
	_, p := seedSale(t, e, 5)

	rec := e.do(http.MethodGet, fmt.Sprintf("/nuevaFactura/producto/%d", p.ID), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got ProductPrice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "CU-1", got.Code)
	assert.Equal(t, 2.5, got.SalePrice)

	rec = e.do(http.MethodGet, "/nuevaFactura/producto/999", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaleDeleteRestocks(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)

	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 2), true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale models.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))

	rec = e.do(http.MethodPost, fmt.Sprintf("/factura/%d/eliminar", sale.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro eliminado.")
	assert.Contains(t, rec.Body.String(), "Eliminar una factura devuelve la cantidad vendida al inventario.")

	got, err := e.store.Products.Get(context.Background(), e.user.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
}

func TestAccountingShowsSummary(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)
	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 2), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodGet, "/contabilidad", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "$5.00")
	assert.Contains(t, rec.Body.String(), string(models.PaymentCash))
}

func TestHome(t *testing.T) {
	e := newEnv(t)
	seedSale(t, e, 5)

	rec := e.do(http.MethodGet, "/inicio", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var o services.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, int64(1), o.Clients)
	assert.Equal(t, int64(1), o.Products)

	rec = e.do(http.MethodGet, "/inicio", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/salir")
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t)
	e.cookie = nil

	rec := e.do(http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/salir")

	rec = e.do(http.MethodPost, "/", url.Values{"email": {"ana@example.com"}, "password": {"wrong"}}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Credenciales incorrectas")

	rec = e.do(http.MethodPost, "/", url.Values{"email": {"ana@example.com"}, "password": {"secret123"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/inicio", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	e.cookie = session
	rec = e.do(http.MethodGet, "/", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/inicio", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	e.cookie = nil

	rec := e.do(http.MethodPost, "/registro", url.Values{
		"email": {"nuevo@example.com"}, "password": {"abc12345"}, "confirmpassword": {"otra"},
	}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Las contraseñas no coinciden")

	rec = e.do(http.MethodPost, "/registro", url.Values{
		"email": {"nuevo@example.com"}, "password": {"abc12345"}, "confirmpassword": {"abc12345"},
	}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?registrado=1", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/?registrado=1", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro exitoso.")
}

func TestReloadAfterSaleDoesNotRepeatIt(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)

	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 1), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	// A reload replays the redirect target, which is a GET.
	rec = e.do(http.MethodGet, rec.Header().Get("Location"), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	n, err := e.store.Sales.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNonFinitePricesRejected(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)

	for _, raw := range []string{"NaN", "Inf", "+Inf", "-Inf"} {
		f := saleForm(c, p, 1)
		f.Set("precio", raw)
		rec := e.do(http.MethodPost, "/nuevaFactura", f, false)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, raw)

		rec = e.do(http.MethodPost, "/nuevaFactura", f, true)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, raw)
		assert.Contains(t, rec.Body.String(), "not_a_number", raw)

		for _, field := range []string{"precio_compra", "precio_venta"} {
			pf := productForm("X-" + field + raw)
			pf.Set(field, raw)
			rec = e.do(http.MethodPost, "/inventario", pf, false)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, field+"="+raw)
		}
	}

	sales, err := e.store.Sales.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Zero(t, sales)
	products, err := e.store.Products.Count(context.Background(), e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), products)

	for _, path := range []string{"/factura", "/inventario"} {
		rec := e.do(http.MethodGet, path, nil, true)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, 5, e.stockOf(t, p.ID))
}

func (e *env) stockOf(t *testing.T, id uint) int {
	t.Helper()
	got, err := e.store.Products.Get(context.Background(), e.user.ID, id)
	require.NoError(t, err)
	return got.Quantity
}

func TestInventoryShowsMovements(t *testing.T) {
	e := newEnv(t)
	c, p := seedSale(t, e, 5)
	rec := e.do(http.MethodPost, "/nuevaFactura", saleForm(c, p, 2), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodGet, "/inventario", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Movimientos de inventario")
	assert.Contains(t, body, "<td>Venta</td>")
	assert.Contains(t, body, "<td>-2</td>")
	assert.Contains(t, body, "Margen")

	rec = e.do(http.MethodGet, fmt.Sprintf("/inventario/%d/movimientos", p.ID), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Items []models.StockMovement `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, -2, got.Items[0].Delta)
	assert.Equal(t, 3, got.Items[0].After)

	rec = e.do(http.MethodGet, "/inventario/999/movimientos", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
