package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_CountsByRoute(t *testing.T) {
	m := New()
	h := m.Instrument("POST /cliente/{id}/eliminar", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cliente/"+id+"/eliminar", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues("POST /cliente/{id}/eliminar", http.MethodPost, "303"))
	assert.Equal(t, float64(3), count)
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.SalesCreated.Inc()
	m.StockRejections.Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "inventario_sales_created_total 1"))
	assert.True(t, strings.Contains(body, "inventario_sales_stock_rejections_total 2"))
}
