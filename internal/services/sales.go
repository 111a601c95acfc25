// Package services holds the operations that span more than one table.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/diewo77/go-inventario/internal/metrics"
	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrInvalidSale       = errors.New("invalid sale")
)

// RestockPolicy decides what deleting a sale does to the product stock.
type RestockPolicy string

const (
	RestockKeep    RestockPolicy = "keep"
	RestockRestore RestockPolicy = "restore"
)

// SaleInput is a decoded sale entry.
type SaleInput struct {
	ClientID      uint
	ProductID     uint
	Quantity      int
	UnitPrice     float64
	Date          time.Time
	PaymentMethod models.PaymentMethod
}

// SalesService records sales and keeps product stock in step with them.
type SalesService struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	restock RestockPolicy
	now     func() time.Time
}

func NewSalesService(s *store.Store, log *zap.Logger, m *metrics.Metrics, restock RestockPolicy) *SalesService {
	if restock != RestockRestore {
		restock = RestockKeep
	}
	return &SalesService{store: s, log: log, metrics: m, restock: restock, now: time.Now}
}

// Restock returns the policy applied on delete.
func (s *SalesService) Restock() RestockPolicy { return s.restock }

// Create reserves stock and records the sale in one transaction. Stock is
// checked before anything is written; the decrement is guarded so a
// concurrent sale cannot take the quantity below zero.
func (s *SalesService) Create(ctx context.Context, owner uint, in SaleInput) (*models.Sale, error) {
	if in.Quantity <= 0 || !validPrice(in.UnitPrice) || !in.PaymentMethod.Valid() {
		return nil, ErrInvalidSale
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	var sale *models.Sale
	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.store.Products.WithTx(tx)
		product, err := products.Get(ctx, owner, in.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}
		if !product.InStock(in.Quantity) {
			return ErrInsufficientStock
		}

		client, err := s.store.Clients.WithTx(tx).Get(ctx, owner, in.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		if err != nil {
			return fmt.Errorf("load client: %w", err)
		}

		sale = &models.Sale{
			ClientID:      client.ID,
			Client:        client.Name,
			ProductID:     product.ID,
			Product:       product.Name,
			Code:          product.Code,
			Quantity:      in.Quantity,
			UnitPrice:     in.UnitPrice,
			Date:          in.Date,
			PaymentMethod: in.PaymentMethod,
		}
		sale.ComputeTotal()
		if err := s.store.Sales.WithTx(tx).Insert(ctx, owner, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND user_id = ? AND quantity >= ?", product.ID, owner, in.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", in.Quantity))
		if res.Error != nil {
			return fmt.Errorf("decrement stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStock
		}

		return s.record(ctx, tx, owner, product, sale.ID, models.MovementSale, -in.Quantity)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.StockRejections.Inc()
			s.log.Info("sale rejected, insufficient stock",
				zap.Uint("owner", owner), zap.Uint("product_id", in.ProductID), zap.Int("quantity", in.Quantity))
		} else if !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrClientNotFound) {
			s.log.Error("sale create failed", zap.Uint("owner", owner), zap.Error(err))
		}
		return nil, err
	}
	s.metrics.SalesCreated.Inc()
	s.log.Info("sale recorded",
		zap.Uint("owner", owner), zap.Uint("sale_id", sale.ID), zap.Float64("total", sale.TotalPrice))
	return sale, nil
}

// Delete removes one of the owner's sales. Under RestockRestore the sold
// quantity goes back to the product when it still exists. Deleting an
// unknown id is a no-op and reports zero rows.
func (s *SalesService) Delete(ctx context.Context, owner, id uint) (int64, error) {
	var deleted int64
	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sales := s.store.Sales.WithTx(tx)
		sale, err := sales.Get(ctx, owner, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if deleted, err = sales.Delete(ctx, owner, id); err != nil {
			return err
		}
		if s.restock != RestockRestore {
			return nil
		}

		product, err := s.store.Products.WithTx(tx).Get(ctx, owner, sale.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = s.store.Products.WithTx(tx).Update(ctx, owner, product.ID, map[string]any{
			"quantity": gorm.Expr("quantity + ?", sale.Quantity),
		})
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		return s.record(ctx, tx, owner, product, sale.ID, models.MovementSaleReversal, sale.Quantity)
	})
	if err != nil {
		s.log.Error("sale delete failed", zap.Uint("owner", owner), zap.Uint("sale_id", id), zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.metrics.SalesDeleted.Inc()
	}
	return deleted, nil
}

func (s *SalesService) record(ctx context.Context, tx *gorm.DB, owner uint, p *models.Product, saleID uint, kind models.MovementKind, delta int) error {
	m := &models.StockMovement{
		ProductID: p.ID,
		Kind:      kind,
		Delta:     delta,
		Before:    p.Quantity,
		After:     p.Quantity + delta,
		SaleID:    &saleID,
		Reference: uuid.NewString(),
	}
	if err := s.store.Movements.WithTx(tx).Insert(ctx, owner, m); err != nil {
		return fmt.Errorf("record movement: %w", err)
	}
	return nil
}

// Movements lists the owner's stock movements, oldest first. A productID of
// zero lists every product.
func (s *SalesService) Movements(ctx context.Context, owner, productID uint) ([]models.StockMovement, error) {
	if productID == 0 {
		return s.store.Movements.Select(ctx, owner)
	}
	return s.store.Movements.Select(ctx, owner, store.Eq("product_id", productID))
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
