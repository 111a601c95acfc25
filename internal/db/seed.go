package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-inventario/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Demo identity created by Seed.
const (
	DemoEmail    = "demo@inventario.local"
	DemoPassword = "demo1234"
)

// Seed creates the demo identity with a few records. It is idempotent: an
// existing demo identity is left untouched.
func Seed(gdb *gorm.DB, log *zap.Logger) error {
	var existing models.User
	err := gdb.Where("email = ?", DemoEmail).First(&existing).Error
	if err == nil {
		log.Debug("seed skipped, demo identity exists", zap.Uint("user_id", existing.ID))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: DemoEmail, Name: "Demo", Password: string(hash)}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		supplier := models.Supplier{UserID: user.ID, Name: "Distribuidora Norte", Email: "ventas@norte.example", Phone: "555-0100", Address: "Av. Central 100"}
		client := models.Client{UserID: user.ID, Name: "Comercial Sur", Email: "compras@sur.example", Phone: "555-0200", Address: "Calle 9 #45"}
		products := []models.Product{
			{UserID: user.ID, Name: "Cuaderno", Code: "CUA-01", Quantity: 40, PurchasePrice: 1.2, SalePrice: 2.5, Supplier: supplier.Name},
			{UserID: user.ID, Name: "Bolígrafo", Code: "BOL-01", Quantity: 120, PurchasePrice: 0.3, SalePrice: 0.8, Supplier: supplier.Name},
		}
		if err := tx.Create(&supplier).Error; err != nil {
			return err
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		if err := tx.Create(&products).Error; err != nil {
			return err
		}
		sale := models.Sale{
			UserID: user.ID, ClientID: client.ID, Client: client.Name,
			ProductID: products[0].ID, Product: products[0].Name, Code: products[0].Code,
			Quantity: 2, UnitPrice: products[0].SalePrice, Date: time.Now().UTC().Truncate(24 * time.Hour),
			PaymentMethod: models.PaymentCash,
		}
		sale.ComputeTotal()
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		log.Info("seeded demo identity", zap.String("email", DemoEmail), zap.Uint("user_id", user.ID))
		return nil
	})
}
