package store

import (
	"github.com/diewo77/go-inventario/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store bundles the tables of the application.
type Store struct {
	DB        *gorm.DB
	Accounts  Accounts
	Clients   *Table[models.Client, *models.Client]
	Suppliers *Table[models.Supplier, *models.Supplier]
	Products  *Table[models.Product, *models.Product]
	Sales     *Table[models.Sale, *models.Sale]
	Movements *Table[models.StockMovement, *models.StockMovement]
}

func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{
		DB:        db,
		Accounts:  NewUserAccounts(db, log),
		Clients:   NewTable[models.Client](db, log, "name"),
		Suppliers: NewTable[models.Supplier](db, log, "name"),
		Products:  NewTable[models.Product](db, log, "name"),
		Sales:     NewTable[models.Sale](db, log, "date desc, id desc"),
		Movements: NewTable[models.StockMovement](db, log, "id"),
	}
}
