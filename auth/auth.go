// Package auth issues and reads the session cookie. The cookie carries an
// HS256 JWT whose subject is the identity id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	CookieName   = "session"
	userIDCtxKey = ctxKey("userID")
)

// ErrInvalidToken wraps every reason a token is rejected.
var ErrInvalidToken = errors.New("invalid session token")

// Options tunes token issuance. Zero fields keep their defaults.
type Options struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

var (
	mu   sync.RWMutex
	opts = Options{TTL: 14 * 24 * time.Hour}
)

// Configure replaces the package options; call it once during bootstrap.
func Configure(o Options) {
	mu.Lock()
	defer mu.Unlock()
	if o.Secret != "" {
		opts.Secret = o.Secret
	}
	if o.TTL > 0 {
		opts.TTL = o.TTL
	}
	opts.SecureCookie = o.SecureCookie
}

func current() Options {
	mu.RLock()
	defer mu.RUnlock()
	return opts
}

// Secret returns the configured secret, then SESSION_SECRET, then a dev value.
func Secret() string {
	if s := current().Secret; s != "" {
		return s
	}
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

// Claims is the token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID decodes the subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return uint(id), nil
}

// IssueToken signs a token for the identity.
func IssueToken(userID uint, email string, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(current().TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret()))
}

// ParseToken verifies signature and expiry.
func ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(Secret()), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// CreateSession sets the session cookie for the identity.
func CreateSession(w http.ResponseWriter, userID uint, email string) error {
	now := time.Now()
	token, err := IssueToken(userID, email, now)
	if err != nil {
		return err
	}
	o := current()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(o.TTL),
	})
	return nil
}

// ClearSession expires the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseSession returns the identity id of a valid session cookie.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	claims, err := ParseToken(c.Value)
	if err != nil {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

// WithUserID stores the identity id in ctx.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the identity id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// Middleware attaches the session's identity id to the request context.
// It does not reject anything; the session gate does.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := ParseSession(r); ok {
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		next.ServeHTTP(w, r)
	})
}
