package models

import "time"

// Product is an inventory item. Code is unique per owner.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"not null;uniqueIndex:idx_product_user_code" json:"user_id"`

	Name          string  `gorm:"size:255;not null" json:"producto"`
	Code          string  `gorm:"size:50;not null;uniqueIndex:idx_product_user_code" json:"codigo"`
	Quantity      int     `gorm:"not null;default:0" json:"cantidad"`
	PurchasePrice float64 `gorm:"not null;default:0" json:"precio_compra"`
	SalePrice     float64 `gorm:"not null;default:0" json:"precio_venta"`
	Supplier      string  `gorm:"size:255" json:"proveedor"`
}

// GetUserID implements the Ownable interface for authorization.
func (p *Product) GetUserID() uint { return p.UserID }

// SetUserID assigns the owner before insertion.
func (p *Product) SetUserID(id uint) { p.UserID = id }

// GetID returns the primary key.
func (p *Product) GetID() uint { return p.ID }

// InStock reports whether qty units can be taken from the product.
func (p *Product) InStock(qty int) bool {
	return qty > 0 && p.Quantity >= qty
}

// Margin returns the unit margin between sale and purchase price.
func (p *Product) Margin() float64 {
	return p.SalePrice - p.PurchasePrice
}

// StockValue returns the inventory value at purchase price.
func (p *Product) StockValue() float64 {
	return float64(p.Quantity) * p.PurchasePrice
}
