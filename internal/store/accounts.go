package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-inventario/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// Accounts is the authentication side of the data service.
type Accounts interface {
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	Lookup(ctx context.Context, id uint) (*models.User, error)
}

// UserAccounts stores identities in the users table with bcrypt hashes.
type UserAccounts struct {
	db   *gorm.DB
	log  *zap.Logger
	cost int
}

func NewUserAccounts(db *gorm.DB, log *zap.Logger) *UserAccounts {
	return &UserAccounts{db: db, log: log, cost: bcrypt.DefaultCost}
}

// WithCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (a *UserAccounts) WithCost(cost int) *UserAccounts {
	a.cost = cost
	return a
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *UserAccounts) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := a.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (a *UserAccounts) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{Email: email, Password: string(hash)}
	if err := a.db.WithContext(ctx).Create(&u).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		a.log.Error("sign up failed", zap.Error(err))
		return nil, err
	}
	a.log.Info("identity registered", zap.Uint("user_id", u.ID))
	return &u, nil
}

func (a *UserAccounts) Lookup(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := a.db.WithContext(ctx).Take(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &u, err
}
