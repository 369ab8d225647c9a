package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the immutable order header created at checkout. Subtotal and
// quantity are derived once at creation; only the cancellation path reverses
// their effects, never the record itself.
type Order struct {
	ID              uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID   `gorm:"column:buyer_id;type:uuid;not null;index"`
	ShippingName    string      `gorm:"column:shipping_name;not null"`
	ShippingPhone   string      `gorm:"column:shipping_phone;not null"`
	ShippingAddress string      `gorm:"column:shipping_address;not null"`
	SubtotalYen     int64       `gorm:"column:subtotal_yen;not null"`
	TotalQuantity   int         `gorm:"column:total_quantity;not null"`
	UsePoint        int64       `gorm:"column:use_point;not null;default:0"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
