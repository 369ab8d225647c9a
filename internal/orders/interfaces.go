package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	"github.com/moritahiro/wearmarket-backend/pkg/enums"
	"github.com/moritahiro/wearmarket-backend/pkg/pagination"
)

// ShippingInput is the destination captured on an order.
type ShippingInput struct {
	Name    string
	Phone   string
	Address string
}

// LineInput is one requested variant and quantity.
type LineInput struct {
	ProductID uuid.UUID
	SizeID    uuid.UUID
	Quantity  int
}

// PlaceInput carries everything a buyer submits at checkout.
type PlaceInput struct {
	Shipping ShippingInput
	Lines    []LineInput
	UsePoint int64
}

// PlacedOrder is the result of a committed placement.
type PlacedOrder struct {
	Order        *models.Order
	PointsEarned int64
	SoldOutKeys  []stock.Key
}

// Service exposes order placement and lifecycle operations.
type Service interface {
	Place(ctx context.Context, buyerID uuid.UUID, input PlaceInput) (*PlacedOrder, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID) error
	Update(ctx context.Context, orderID, actorID uuid.UUID, shipping ShippingInput) (*models.Order, error)
	List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
}

// Repository persists orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	UpdateShipping(ctx context.Context, id uuid.UUID, shipping ShippingInput) error
	// TransitionPayment flips the payment status only when it currently holds
	// the expected value; zero rows affected reports a state conflict.
	TransitionPayment(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) error
	StoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
}
