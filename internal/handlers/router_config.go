package handlers

import (
	"github.com/diewo77/go-inventario/internal/metrics"
	"github.com/diewo77/go-inventario/internal/policy"
	"github.com/diewo77/go-inventario/internal/services"
	"github.com/diewo77/go-inventario/internal/session"
	"github.com/diewo77/go-inventario/internal/store"
	"go.uber.org/zap"
)

// RouterConfig holds every handler the router mounts.
type RouterConfig struct {
	AuthGate *policy.AuthGate
	Session  *session.Context
	Deps     Deps

	Auth  *AuthHandler
	Home  *HomeHandler
	Pages []Route
}

// NewRouterConfig builds the gate, the session context and the pages over st.
func NewRouterConfig(st *store.Store, m *metrics.Metrics, restock services.RestockPolicy, log *zap.Logger) *RouterConfig {
	authGate := policy.NewAuthGate(policy.DefaultPermissions)
	sess := session.New(st.Accounts, log.Named("session"))

	d := Deps{
		Store:      st,
		Sales:      services.NewSalesService(st, log.Named("sales"), m, restock),
		Accounting: services.NewAccounting(st),
		Gate:       authGate,
		Log:        log,
	}
	return &RouterConfig{
		AuthGate: authGate,
		Session:  sess,
		Deps:     d,
		Auth:     NewAuthHandler(sess, log),
		Home:     NewHomeHandler(d.Accounting, log),
		Pages: []Route{
			ClientPage(d),
			SupplierPage(d),
			ProductPage(d),
			SalesPage(d),
			NewSalePage(d),
			AccountingPage(d),
		},
	}
}
