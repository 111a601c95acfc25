// Package session holds the identity context shared by every page: session
// checks, the gate in front of protected routes, sign-in, registration and
// sign-out.
package session

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/form"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/store"
	"go.uber.org/zap"
)

// State is the outcome of a session check.
type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

type identityKey struct{}

// WithIdentity stores the signed-in identity in ctx.
func WithIdentity(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

// IdentityFrom returns the identity stored by the gate.
func IdentityFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey{}).(*models.User)
	return u, ok && u != nil
}

// Credential field names, shared by the sign-in and registration forms.
const (
	FieldEmail   = "email"
	FieldPass    = "password"
	FieldConfirm = "confirmpassword"
)

// Query flag set on the sign-in redirect after a registration.
const RegisteredFlag = "registrado"

// Context is built once at startup and handed to every page.
type Context struct {
	Accounts     store.Accounts
	Log          *zap.Logger
	PublicRoutes []string
	Root         string
	Home         string
}

// New returns a Context with the application routes.
func New(accounts store.Accounts, log *zap.Logger) *Context {
	return &Context{
		Accounts:     accounts,
		Log:          log,
		PublicRoutes: []string{"/", "/registro"},
		Root:         "/",
		Home:         "/inicio",
	}
}

// IsPublic reports whether path is reachable without a session.
func (c *Context) IsPublic(path string) bool {
	return slices.Contains(c.PublicRoutes, path)
}

// Credentials returns the credential form. register adds the confirmation.
func (c *Context) Credentials(register bool) *form.Form {
	fields := []form.Field{
		{Name: FieldEmail, Label: "field.email", Placeholder: "field.email", Kind: form.Email, Required: true},
		{Name: FieldPass, Label: "field.password", Placeholder: "field.password", Kind: form.Password, Required: true},
	}
	if register {
		fields = append(fields, form.Field{Name: FieldConfirm, Label: "field.confirm_password", Placeholder: "field.confirm_password", Kind: form.Password, Required: true})
	}
	return form.New(fields...)
}

// Resolve derives the identity from the session cookie. A token whose
// identity no longer exists is unauthenticated.
func (c *Context) Resolve(r *http.Request) (*models.User, State) {
	uid, ok := auth.ParseSession(r)
	if !ok {
		return nil, Unauthenticated
	}
	u, err := c.Accounts.Lookup(r.Context(), uid)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.Log.Error("session lookup failed", zap.Uint("user_id", uid), zap.Error(err))
		}
		return nil, Unauthenticated
	}
	return u, Authenticated
}

// CheckSession resolves the identity. Without one, and outside the public
// routes, the cookie is cleared and the client sent back to the root.
func (c *Context) CheckSession(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, state := c.Resolve(r)
	if state == Authenticated {
		return u, true
	}
	if !c.IsPublic(r.URL.Path) {
		c.reject(w, r)
	}
	return nil, false
}

func (c *Context) reject(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	http.Redirect(w, r, c.Root, http.StatusSeeOther)
}

// Gate runs next only for an authenticated request, with the identity
// attached to the context.
func (c *Context) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, state := c.Resolve(r)
		if state != Authenticated {
			c.Log.Debug("session rejected", zap.String("path", r.URL.Path))
			c.reject(w, r)
			return
		}
		ctx := auth.WithUserID(r.Context(), u.ID)
		ctx = WithIdentity(ctx, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func msg(r *http.Request, code string) string {
	return i18n.T(i18n.LangFromContext(r.Context()), code)
}

// Login signs in and, on success, sets the cookie and redirects home. On
// failure it returns the message to show; the cause is only logged.
func (c *Context) Login(w http.ResponseWriter, r *http.Request, email, password string) (string, bool) {
	if email == "" || password == "" {
		return msg(r, "auth.fill_all"), false
	}
	u, err := c.Accounts.SignIn(r.Context(), email, password)
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return msg(r, "auth.invalid_credentials"), false
	case err != nil:
		c.Log.Error("sign in failed", zap.Error(err))
		return msg(r, "auth.unexpected"), false
	case u == nil:
		return msg(r, "auth.no_identity"), false
	}
	if err := auth.CreateSession(w, u.ID, u.Email); err != nil {
		c.Log.Error("issue session failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return msg(r, "auth.unexpected"), false
	}
	c.Log.Info("signed in", zap.Uint("user_id", u.ID))
	http.Redirect(w, r, c.Home, http.StatusSeeOther)
	return "", true
}

// Register creates an identity. Mismatched passwords never reach the
// accounts service. Success redirects to the sign-in page.
func (c *Context) Register(w http.ResponseWriter, r *http.Request, email, password, confirm string) (string, bool) {
	if email == "" || password == "" || confirm == "" {
		return msg(r, "auth.fill_all"), false
	}
	if password != confirm {
		return msg(r, "auth.password_mismatch"), false
	}
	if _, err := c.Accounts.SignUp(r.Context(), email, password); err != nil {
		reason := err.Error()
		if errors.Is(err, store.ErrEmailTaken) {
			reason = msg(r, "auth.email_taken")
		}
		lang := i18n.LangFromContext(r.Context())
		return i18n.Tf(lang, "auth.signup_failed", map[string]any{"Reason": reason}), false
	}
	http.Redirect(w, r, c.Root+"?"+RegisteredFlag+"=1", http.StatusSeeOther)
	return "", true
}

// Logout clears the session and returns to the root.
func (c *Context) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, c.Root, http.StatusSeeOther)
}
