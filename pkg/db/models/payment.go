package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/moritahiro/wearmarket-backend/pkg/enums"
)

// Payment is the one-to-one payment record for an order, created in the same
// transaction as the order itself.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	AmountYen int64               `gorm:"column:amount_yen;not null"`
	Status    enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'completed_payment'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
