// Package models holds the gorm models of the application.
package models

// All returns every model managed by the application, in migration order.
func All() []any {
	return []any{
		&User{},
		&Client{},
		&Supplier{},
		&Product{},
		&Sale{},
		&StockMovement{},
	}
}
