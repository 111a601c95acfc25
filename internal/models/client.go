package models

import "time"

// Client is a customer a sale can be issued to.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this client
	UserID uint `gorm:"index;not null" json:"user_id"`

	Name    string `gorm:"size:255;not null" json:"nombre"`
	Email   string `gorm:"size:255" json:"email"`
	Phone   string `gorm:"size:50" json:"telefono"`
	Address string `gorm:"size:500" json:"direccion"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uint { return c.UserID }

// SetUserID assigns the owner before insertion.
func (c *Client) SetUserID(id uint) { c.UserID = id }

// GetID returns the primary key.
func (c *Client) GetID() uint { return c.ID }
