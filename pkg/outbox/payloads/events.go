package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderPlacedEvent signals a committed checkout.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	SubtotalYen   int64     `json:"subtotal_yen"`
	TotalQuantity int       `json:"total_quantity"`
	PlacedAt      time.Time `json:"placed_at"`
}

// OrderCanceledEvent is emitted when a buyer cancels an order and its stock
// has been restored.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	CanceledAt time.Time `json:"canceled_at"`
}

// StockSoldOutEvent carries the (product, size) keys whose quantity hit zero
// during a single checkout. Recipient fan-out happens downstream.
type StockSoldOutEvent struct {
	OrderID uuid.UUID        `json:"order_id"`
	Keys    []SoldOutKeyData `json:"keys"`
}

// SoldOutKeyData is one exhausted stock variant.
type SoldOutKeyData struct {
	ProductID uuid.UUID `json:"product_id"`
	SizeID    uuid.UUID `json:"size_id"`
}

// GradeChangedEvent reports a loyalty tier transition caused by an order.
type GradeChangedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	OldGradeID uuid.UUID `json:"old_grade_id"`
	NewGradeID uuid.UUID `json:"new_grade_id"`
	OrderID    uuid.UUID `json:"order_id"`
}
