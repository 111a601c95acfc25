package models

import "time"

// Supplier provides products to the owner's inventory.
type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	Name    string `gorm:"size:255;not null" json:"nombre"`
	Email   string `gorm:"size:255" json:"email"`
	Phone   string `gorm:"size:50" json:"telefono"`
	Address string `gorm:"size:500" json:"direccion"`
}

func (s *Supplier) GetUserID() uint   { return s.UserID }
func (s *Supplier) SetUserID(id uint) { s.UserID = id }
func (s *Supplier) GetID() uint       { return s.ID }
