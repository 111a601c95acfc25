package models

import "time"

// MovementKind tells why a product's stock changed.
type MovementKind string

const (
	MovementSale         MovementKind = "sale"
	MovementSaleReversal MovementKind = "sale_reversal"
)

// StockMovement is an append-only ledger entry for every stock change made
// by a sale. Delta is negative when stock leaves.
type StockMovement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UserID    uint         `gorm:"index;not null" json:"user_id"`
	ProductID uint         `gorm:"index;not null" json:"product_id"`
	SaleID    *uint        `gorm:"index" json:"sale_id,omitempty"`
	Kind      MovementKind `gorm:"size:20;not null" json:"kind"`
	Delta     int          `gorm:"not null" json:"delta"`
	Before    int          `gorm:"column:stock_before;not null" json:"before"`
	After     int          `gorm:"column:stock_after;not null" json:"after"`
	Reference string       `gorm:"size:36;index" json:"reference"`
}

func (m *StockMovement) GetUserID() uint   { return m.UserID }
func (m *StockMovement) SetUserID(id uint) { m.UserID = id }
func (m *StockMovement) GetID() uint       { return m.ID }
