package models

import (
	"math"
	"time"
)

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentTransfer PaymentMethod = "Transferencia"
	PaymentCard     PaymentMethod = "Tarjeta"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentTransfer, PaymentCard}

// Valid reports whether m is one of the accepted methods.
func (m PaymentMethod) Valid() bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

// Sale records a product sold to a client. Client and product names are
// snapshotted so the listing survives later edits or deletions.
type Sale struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	ClientID  uint   `gorm:"index" json:"cliente_id"`
	Client    string `gorm:"size:255" json:"cliente"`
	ProductID uint   `gorm:"index;not null" json:"producto_id"`
	Product   string `gorm:"size:255" json:"producto"`
	Code      string `gorm:"size:50" json:"codigo"`

	Quantity      int           `gorm:"not null" json:"cantidad"`
	UnitPrice     float64       `gorm:"not null" json:"precio_unitario"`
	TotalPrice    float64       `gorm:"not null" json:"precio_total"`
	Date          time.Time     `gorm:"not null" json:"fecha"`
	PaymentMethod PaymentMethod `gorm:"size:20;not null" json:"metodo_pago"`
}

// GetUserID implements the Ownable interface for authorization.
func (s *Sale) GetUserID() uint { return s.UserID }

// SetUserID assigns the owner before insertion.
func (s *Sale) SetUserID(id uint) { s.UserID = id }

// GetID returns the primary key.
func (s *Sale) GetID() uint { return s.ID }

// ComputeTotal fixes TotalPrice from quantity and unit price, rounded to cents.
// It is called once at creation; stored totals are never recomputed.
func (s *Sale) ComputeTotal() float64 {
	s.TotalPrice = math.Round(float64(s.Quantity)*s.UnitPrice*100) / 100
	return s.TotalPrice
}
