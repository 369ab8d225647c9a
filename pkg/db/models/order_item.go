package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem captures the purchase-time snapshot of each line item. PriceYen,
// ProductName and StoreID are copied at creation and never re-read the live
// catalog, so historical orders stay price-immutable.
type OrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SizeID      uuid.UUID `gorm:"column:size_id;type:uuid;not null"`
	StoreID     uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	ProductName string    `gorm:"column:product_name;not null"`
	PriceYen    int64     `gorm:"column:price_yen;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	IsReviewed  bool      `gorm:"column:is_reviewed;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
