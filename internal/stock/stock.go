package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

// Key identifies one stock variant.
type Key struct {
	ProductID uuid.UUID
	SizeID    uuid.UUID
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.ProductID, k.SizeID)
}

// Line is one decrement request against a variant.
type Line struct {
	Key Key
	Qty int
}

// DecrementResult reports the outcome of a single decrement.
type DecrementResult struct {
	Key       Key
	Remaining int
	SoldOut   bool
}

// Decrement atomically subtracts qty from the variant's quantity. The update
// only applies when enough stock remains; zero rows affected means the
// purchase loses the race and the caller must abort.
//
// SoldOut is true whenever this decrement moved the quantity to zero. A
// restocked variant that sells out again reports the transition again.
func Decrement(ctx context.Context, tx *gorm.DB, key Key, qty int) (DecrementResult, error) {
	if tx == nil {
		return DecrementResult{}, errors.New("transaction required")
	}
	if qty <= 0 {
		return DecrementResult{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("product_id = ? AND size_id = ? AND quantity >= ?", key.ProductID, key.SizeID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return DecrementResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return DecrementResult{}, insufficientStock(key)
	}

	var entry models.StockEntry
	err := tx.WithContext(ctx).
		Where("product_id = ? AND size_id = ?", key.ProductID, key.SizeID).
		First(&entry).Error
	if err != nil {
		return DecrementResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock entry")
	}

	return DecrementResult{
		Key:       key,
		Remaining: entry.Quantity,
		SoldOut:   entry.Quantity == 0,
	}, nil
}

// Increment adds qty back to the variant. Used by the cancellation path, so
// it does not require a prior row state.
func Increment(ctx context.Context, tx *gorm.DB, key Key, qty int) (int, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).
		Model(&models.StockEntry{}).
		Where("product_id = ? AND size_id = ?", key.ProductID, key.SizeID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "stock entry not found").
			WithDetails(keyDetails(key))
	}

	var entry models.StockEntry
	err := tx.WithContext(ctx).
		Where("product_id = ? AND size_id = ?", key.ProductID, key.SizeID).
		First(&entry).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock entry")
	}
	return entry.Quantity, nil
}

// DecrementAll decrements every line in a deterministic (productID, sizeID)
// order so concurrent checkouts touch rows in the same sequence. The first
// insufficient line aborts; keys that hit zero are collected for the caller.
func DecrementAll(ctx context.Context, tx *gorm.DB, lines []Line) ([]Key, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}

	ordered := make([]Line, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].Key, ordered[j].Key
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		return a.SizeID.String() < b.SizeID.String()
	})

	var soldOut []Key
	for _, line := range ordered {
		result, err := Decrement(ctx, tx, line.Key, line.Qty)
		if err != nil {
			return nil, err
		}
		if result.SoldOut {
			soldOut = append(soldOut, line.Key)
		}
	}
	return soldOut, nil
}

func insufficientStock(key Key) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(keyDetails(key))
}

func keyDetails(key Key) map[string]any {
	return map[string]any{
		"product_id": key.ProductID.String(),
		"size_id":    key.SizeID.String(),
	}
}
