package models

import (
	"time"

	"github.com/google/uuid"
)

// StockEntry tracks the available quantity for one (product, size) variant.
// The quantity column is only ever mutated through conditional updates inside
// a transaction so it can never go negative.
type StockEntry struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	SizeID    uuid.UUID `gorm:"column:size_id;type:uuid;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
