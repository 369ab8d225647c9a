package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

// ProductSnapshot captures the catalog fields an order item freezes at
// placement time.
type ProductSnapshot struct {
	Name     string
	PriceYen int64
	StoreID  uuid.UUID
}

// Snapshots resolves the current catalog row for every requested variant.
// It runs on the caller's transaction so prices and stock decrements observe
// the same instant. A variant without a product row or stock entry is
// reported as NOT_FOUND with the offending key in details.
func Snapshots(ctx context.Context, tx *gorm.DB, keys []stock.Key) (map[stock.Key]ProductSnapshot, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}

	out := make(map[stock.Key]ProductSnapshot, len(keys))
	for _, key := range keys {
		if _, ok := out[key]; ok {
			continue
		}
		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", key.ProductID).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound(key)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		var count int64
		err = tx.WithContext(ctx).Model(&models.StockEntry{}).
			Where("product_id = ? AND size_id = ?", key.ProductID, key.SizeID).
			Count(&count).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock entry")
		}
		if count == 0 {
			return nil, notFound(key)
		}

		out[key] = ProductSnapshot{
			Name:     product.Name,
			PriceYen: product.PriceYen,
			StoreID:  product.StoreID,
		}
	}
	return out, nil
}

// OwnerOf returns the user that owns the store selling the product.
func OwnerOf(ctx context.Context, db *gorm.DB, productID uuid.UUID) (uuid.UUID, error) {
	var product models.Product
	err := db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	var store models.Store
	err = db.WithContext(ctx).Where("id = ?", product.StoreID).First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store.OwnerUserID, nil
}

func notFound(key stock.Key) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
		WithDetails(map[string]any{
			"product_id": key.ProductID.String(),
			"size_id":    key.SizeID.String(),
		})
}
