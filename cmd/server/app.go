package main

import (
	"net/http"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/handlers"
	"github.com/diewo77/go-inventario/internal/logging"
	"github.com/diewo77/go-inventario/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the root handler with every route mounted.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	log       *zap.Logger
	metrics   *metrics.Metrics
	routerCfg *handlers.RouterConfig
	handler   http.Handler
}

// NewApp mounts the routes of routerCfg.
func NewApp(db *gorm.DB, routerCfg *handlers.RouterConfig, m *metrics.Metrics, log *zap.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		log:       log,
		metrics:   m,
		routerCfg: routerCfg,
	}
	app.setupRoutes()
	app.handler = logging.Recover(log, logging.Middleware(log, withPreferences(auth.Middleware(app.mux))))
	return app
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// public instruments a route reachable without a session.
func (a *App) public(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.metrics.Instrument(pattern, h))
}

// protected instruments a route behind the session gate.
func (a *App) protected(pattern string, h http.Handler) http.Handler {
	return a.metrics.Instrument(pattern, a.routerCfg.Session.Gate(h))
}

func (a *App) setupRoutes() {
	ah := a.routerCfg.Auth

	a.public("GET /{$}", ah.Login)
	a.public("POST /{$}", ah.Login)
	a.public("GET /registro", ah.Register)
	a.public("POST /registro", ah.Register)
	a.public("POST /salir", ah.Logout)

	a.mux.Handle("GET /inicio", a.protected("GET /inicio", http.HandlerFunc(a.routerCfg.Home.Home)))
	for _, p := range a.routerCfg.Pages {
		p.Routes(a.mux, a.protected)
	}
	lookup := "GET /nuevaFactura/producto/{id}"
	a.mux.Handle(lookup, a.protected(lookup, http.HandlerFunc(a.routerCfg.Deps.ProductLookup)))
	moves := "GET /inventario/{id}/movimientos"
	a.mux.Handle(moves, a.protected(moves, http.HandlerFunc(a.routerCfg.Deps.ProductMovements)))

	a.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", a.metrics.Handler())
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
}

// healthz checks the database with SELECT 1.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withPreferences picks the language from the lang query (remembered in a
// cookie), then the cookie, then Accept-Language.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = i18n.Normalize(c.Value)
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.Normalize(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
