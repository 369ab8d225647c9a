package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

// Repository reads and reconciles buyer carts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	RemoveItems(ctx context.Context, buyerID uuid.UUID, keys []stock.Key) error
	BuyersHolding(ctx context.Context, key stock.Key) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

// RemoveItems deletes the purchased (product, size) pairs from the buyer's
// cart. Missing rows are not an error: the buyer may have ordered a variant
// they never carted.
func (r *repository) RemoveItems(ctx context.Context, buyerID uuid.UUID, keys []stock.Key) error {
	if len(keys) == 0 {
		return nil
	}
	var cart models.Cart
	err := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	for _, key := range keys {
		err := r.db.WithContext(ctx).
			Where("cart_id = ? AND product_id = ? AND size_id = ?", cart.ID, key.ProductID, key.SizeID).
			Delete(&models.CartItem{}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
	}
	return nil
}

// BuyersHolding returns every buyer whose cart still contains the variant.
func (r *repository) BuyersHolding(ctx context.Context, key stock.Key) ([]uuid.UUID, error) {
	var buyerIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("carts.buyer_id").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.product_id = ? AND cart_items.size_id = ?", key.ProductID, key.SizeID).
		Scan(&buyerIDs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart holders")
	}
	return buyerIDs, nil
}
