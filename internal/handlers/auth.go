package handlers

import (
	"net/http"

	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/form"
	"github.com/diewo77/go-inventario/internal/session"
	"github.com/diewo77/go-inventario/view"
	"go.uber.org/zap"
)

// AuthHandler serves the sign-in, registration and sign-out routes.
type AuthHandler struct {
	sess *session.Context
	log  *zap.Logger
}

func NewAuthHandler(sess *session.Context, log *zap.Logger) *AuthHandler {
	return &AuthHandler{sess: sess, log: log}
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, f *form.Form, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["Form"] = f.Inputs(nil)
	data["IsLoggedIn"] = false
	if err := view.RenderStatus(w, r, status, name, data); err != nil {
		h.log.Error("render failed", zap.String("template", name), zap.Error(err))
	}
}

// Login serves GET and POST /. A signed-in visitor goes straight home.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := h.sess.Credentials(false)
	if r.Method == http.MethodGet {
		if _, ok := h.sess.CheckSession(w, r); ok {
			http.Redirect(w, r, h.sess.Home, http.StatusSeeOther)
			return
		}
		data := map[string]any{}
		if r.URL.Query().Get(session.RegisteredFlag) != "" {
			data["Flash"] = i18n.T(i18n.LangFromContext(r.Context()), "auth.registered")
		}
		h.render(w, r, http.StatusOK, "login.html", f, data)
		return
	}

	values, err := f.Decode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, ok := h.sess.Login(w, r, values[session.FieldEmail], values[session.FieldPass])
	if ok {
		return
	}
	h.render(w, r, http.StatusUnauthorized, "login.html", f, map[string]any{"Error": msg})
}

// Register serves GET and POST /registro.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	f := h.sess.Credentials(true)
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, "registro.html", f, nil)
		return
	}

	values, err := f.Decode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, ok := h.sess.Register(w, r, values[session.FieldEmail], values[session.FieldPass], values[session.FieldConfirm])
	if ok {
		return
	}
	h.render(w, r, http.StatusUnprocessableEntity, "registro.html", f, map[string]any{"Error": msg})
}

// Logout serves POST /salir.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sess.Logout(w, r)
}
