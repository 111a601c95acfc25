package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	users   map[uint]*models.User
	signIn  func(email, password string) (*models.User, error)
	signUps int
	signUp  error
}

func (f *fakeAccounts) SignIn(_ context.Context, email, password string) (*models.User, error) {
	return f.signIn(email, password)
}

func (f *fakeAccounts) SignUp(_ context.Context, email, _ string) (*models.User, error) {
	f.signUps++
	if f.signUp != nil {
		return nil, f.signUp
	}
	return &models.User{ID: 9, Email: email}, nil
}

func (f *fakeAccounts) Lookup(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func newContext() (*Context, *fakeAccounts) {
	acc := &fakeAccounts{users: map[uint]*models.User{1: {ID: 1, Email: "ana@example.com"}}}
	return New(acc, zap.NewNop()), acc
}

func sessionCookie(t *testing.T, uid uint) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, auth.CreateSession(rec, uid, "ana@example.com"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestGateWithoutSessionRedirects(t *testing.T) {
	c, _ := newContext()
	called := false
	h := c.Gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventario", nil))

	assert.False(t, called, "protected handler must not run")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGateRejectsInvalidTokens(t *testing.T) {
	c, _ := newContext()
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"garbage", &http.Cookie{Name: auth.CookieName, Value: "not-a-jwt"}},
		{"unknown identity", sessionCookie(t, 42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := c.Gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			req := httptest.NewRequest(http.MethodGet, "/cliente", nil)
			req.AddCookie(tt.cookie)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			cleared := false
			for _, ck := range rec.Result().Cookies() {
				if ck.Name == auth.CookieName && ck.MaxAge < 0 {
					cleared = true
				}
			}
			assert.True(t, cleared, "cookie is cleared")
		})
	}
}

func TestGateJSONClientGets401(t *testing.T) {
	c, _ := newContext()
	h := c.Gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("must not run") }))
	req := httptest.NewRequest(http.MethodGet, "/cliente", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestGateAttachesIdentity(t *testing.T) {
	c, _ := newContext()
	var (
		gotUID  uint
		gotUser *models.User
	)
	h := c.Gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, _ = auth.UserIDFromContext(r.Context())
		gotUser, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/inicio", nil)
	req.AddCookie(sessionCookie(t, 1))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(1), gotUID)
	require.NotNil(t, gotUser)
	assert.Equal(t, "ana@example.com", gotUser.Email)
}

func TestCheckSessionPublicRoute(t *testing.T) {
	c, _ := newContext()

	rec := httptest.NewRecorder()
	u, ok := c.CheckSession(rec, httptest.NewRequest(http.MethodGet, "/registro", nil))
	assert.False(t, ok)
	assert.Nil(t, u)
	assert.Equal(t, http.StatusOK, rec.Code, "public routes are not redirected")

	rec = httptest.NewRecorder()
	_, ok = c.CheckSession(rec, httptest.NewRequest(http.MethodGet, "/factura", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginMessages(t *testing.T) {
	tests := []struct {
		name   string
		signIn func(string, string) (*models.User, error)
		want   string
	}{
		{"bad credentials", func(string, string) (*models.User, error) { return nil, store.ErrInvalidCredentials }, "Credenciales incorrectas"},
		{"no identity", func(string, string) (*models.User, error) { return nil, nil }, "No se pudo iniciar sesión. Verifique sus credenciales."},
		{"unexpected", func(string, string) (*models.User, error) { return nil, errors.New("db down") }, "Ocurrió un error inesperado. Intente nuevamente."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, acc := newContext()
			acc.signIn = tt.signIn
			rec := httptest.NewRecorder()
			got, ok := c.Login(rec, httptest.NewRequest(http.MethodPost, "/", nil), "ana@example.com", "pw")
			assert.False(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	c, acc := newContext()
	acc.signIn = func(string, string) (*models.User, error) { return acc.users[1], nil }

	rec := httptest.NewRecorder()
	got, ok := c.Login(rec, httptest.NewRequest(http.MethodPost, "/", nil), "ana@example.com", "pw")
	require.True(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, "/inicio", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, auth.CookieName, rec.Result().Cookies()[0].Name)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name            string
		email, pw, conf string
		signUp          error
		want            string
		wantCalls       int
	}{
		{"missing field", "a@b.c", "pw", "", nil, "Por favor, rellene todos los campos", 0},
		{"mismatch", "a@b.c", "pw1", "pw2", nil, "Las contraseñas no coinciden", 0},
		{"taken", "a@b.c", "pw", "pw", store.ErrEmailTaken, "Error al registrar: el correo ya está registrado", 1},
		{"other failure", "a@b.c", "pw", "pw", errors.New("boom"), "Error al registrar: boom", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, acc := newContext()
			acc.signUp = tt.signUp
			rec := httptest.NewRecorder()
			got, ok := c.Register(rec, httptest.NewRequest(http.MethodPost, "/registro", nil), tt.email, tt.pw, tt.conf)
			assert.False(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, acc.signUps)
		})
	}
}

func TestRegisterSuccessRedirects(t *testing.T) {
	c, acc := newContext()
	rec := httptest.NewRecorder()
	_, ok := c.Register(rec, httptest.NewRequest(http.MethodPost, "/registro", nil), "a@b.c", "pw", "pw")
	require.True(t, ok)
	assert.Equal(t, 1, acc.signUps)
	assert.Equal(t, "/?registrado=1", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	c, _ := newContext()
	rec := httptest.NewRecorder()
	c.Logout(rec, httptest.NewRequest(http.MethodPost, "/salir", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}

func TestCredentialsForm(t *testing.T) {
	c, _ := newContext()
	login := c.Credentials(false)
	require.Len(t, login.Fields, 2)
	assert.Equal(t, FieldEmail, login.Fields[0].Name)
	assert.Equal(t, FieldPass, login.Fields[1].Name)

	register := c.Credentials(true)
	require.Len(t, register.Fields, 3)
	assert.Equal(t, FieldConfirm, register.Fields[2].Name)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking", Checking.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
}
