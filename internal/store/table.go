// Package store is the data-access boundary. Every read and mutation takes
// the owning identity id as a mandatory argument and is scoped by it; there
// is no unscoped path to owned rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
	ErrNoOwner   = errors.New("store: owner is required")
)

// Owned is implemented by pointers to every owned model.
type Owned interface {
	GetUserID() uint
	SetUserID(uint)
	GetID() uint
}

// Filter narrows a select. Build them with Eq and Gt.
type Filter = clause.Expression

func Eq(column string, v any) Filter { return clause.Eq{Column: clause.Column{Name: column}, Value: v} }
func Gt(column string, v any) Filter { return clause.Gt{Column: clause.Column{Name: column}, Value: v} }

// Table exposes select/insert/update/delete for one owned model.
type Table[T any, PT interface {
	*T
	Owned
}] struct {
	db    *gorm.DB
	log   *zap.Logger
	order string
}

// NewTable binds a table for T. order is the ORDER BY used by Select.
func NewTable[T any, PT interface {
	*T
	Owned
}](db *gorm.DB, log *zap.Logger, order string) *Table[T, PT] {
	if order == "" {
		order = "id"
	}
	return &Table[T, PT]{db: db, log: log, order: order}
}

// WithTx returns a copy of the table running on tx.
func (t *Table[T, PT]) WithTx(tx *gorm.DB) *Table[T, PT] {
	c := *t
	c.db = tx
	return &c
}

func (t *Table[T, PT]) scoped(ctx context.Context, owner uint) (*gorm.DB, error) {
	if owner == 0 {
		return nil, ErrNoOwner
	}
	return t.db.WithContext(ctx).Model(PT(new(T))).Where("user_id = ?", owner), nil
}

// Select returns the owner's rows matching every filter.
func (t *Table[T, PT]) Select(ctx context.Context, owner uint, filters ...Filter) ([]T, error) {
	q, err := t.scoped(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		q = q.Clauses(clause.Where{Exprs: filters})
	}
	rows := []T{}
	if err := q.Order(t.order).Find(&rows).Error; err != nil {
		t.log.Error("select failed", zap.Uint("owner", owner), zap.String("model", fmt.Sprintf("%T", PT(nil))), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// Get returns one of the owner's rows.
func (t *Table[T, PT]) Get(ctx context.Context, owner, id uint) (*T, error) {
	q, err := t.scoped(ctx, owner)
	if err != nil {
		return nil, err
	}
	var row T
	if err := q.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Count returns how many rows the owner has.
func (t *Table[T, PT]) Count(ctx context.Context, owner uint) (int64, error) {
	q, err := t.scoped(ctx, owner)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.Count(&n).Error
	return n, err
}

// Insert stamps owner on every row and creates them in one statement.
// The rows are updated in place with their generated ids.
func (t *Table[T, PT]) Insert(ctx context.Context, owner uint, rows ...PT) error {
	if owner == 0 {
		return ErrNoOwner
	}
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		r.SetUserID(owner)
	}
	if err := t.db.WithContext(ctx).Create(rows).Error; err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		t.log.Error("insert failed", zap.Uint("owner", owner), zap.String("model", fmt.Sprintf("%T", PT(nil))), zap.Error(err))
		return err
	}
	return nil
}

// Update applies patch to one of the owner's rows and returns the number of
// rows changed.
func (t *Table[T, PT]) Update(ctx context.Context, owner, id uint, patch map[string]any) (int64, error) {
	q, err := t.scoped(ctx, owner)
	if err != nil {
		return 0, err
	}
	delete(patch, "user_id")
	res := q.Where("id = ?", id).Updates(patch)
	return res.RowsAffected, res.Error
}

// Delete removes one of the owner's rows. Deleting an id the owner does not
// have is not an error; the returned count is zero.
func (t *Table[T, PT]) Delete(ctx context.Context, owner, id uint) (int64, error) {
	if owner == 0 {
		return 0, ErrNoOwner
	}
	res := t.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).Delete(PT(new(T)))
	if res.Error != nil {
		t.log.Error("delete failed", zap.Uint("owner", owner), zap.Uint("id", id), zap.Error(res.Error))
	}
	return res.RowsAffected, res.Error
}

// IsDuplicate recognises unique constraint violations from postgres and sqlite.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
