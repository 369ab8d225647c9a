package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
)

func TestRemoveItemsDeletesOrderedKeys(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	buyerID := uuid.New()
	cartID := seedCart(t, db, buyerID)
	keyA := stock.Key{ProductID: uuid.New(), SizeID: uuid.New()}
	keyB := stock.Key{ProductID: uuid.New(), SizeID: uuid.New()}
	seedCartItem(t, db, cartID, keyA, 2)
	seedCartItem(t, db, cartID, keyB, 1)

	if err := repo.RemoveItems(ctx, buyerID, []stock.Key{keyA}); err != nil {
		t.Fatalf("remove items: %v", err)
	}

	var remaining []models.CartItem
	if err := db.Where("cart_id = ?", cartID).Find(&remaining).Error; err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ProductID != keyB.ProductID {
		t.Fatalf("unexpected remaining items: %+v", remaining)
	}
}

func TestRemoveItemsToleratesMissingRows(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	// No cart at all.
	err := repo.RemoveItems(ctx, uuid.New(), []stock.Key{{ProductID: uuid.New(), SizeID: uuid.New()}})
	if err != nil {
		t.Fatalf("remove from missing cart: %v", err)
	}

	// Cart exists but never held the key.
	buyerID := uuid.New()
	seedCart(t, db, buyerID)
	err = repo.RemoveItems(ctx, buyerID, []stock.Key{{ProductID: uuid.New(), SizeID: uuid.New()}})
	if err != nil {
		t.Fatalf("remove missing key: %v", err)
	}
}

func TestBuyersHolding(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	key := stock.Key{ProductID: uuid.New(), SizeID: uuid.New()}
	holderA := uuid.New()
	holderB := uuid.New()
	bystander := uuid.New()
	seedCartItem(t, db, seedCart(t, db, holderA), key, 1)
	seedCartItem(t, db, seedCart(t, db, holderB), key, 3)
	seedCartItem(t, db, seedCart(t, db, bystander), stock.Key{ProductID: uuid.New(), SizeID: key.SizeID}, 1)

	holders, err := repo.BuyersHolding(ctx, key)
	if err != nil {
		t.Fatalf("buyers holding: %v", err)
	}
	if len(holders) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(holders))
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range holders {
		seen[id] = true
	}
	if !seen[holderA] || !seen[holderB] || seen[bystander] {
		t.Fatalf("unexpected holders: %v", holders)
	}
}

func seedCart(t *testing.T, db *gorm.DB, buyerID uuid.UUID) uuid.UUID {
	t.Helper()
	cart := models.Cart{ID: uuid.New(), BuyerID: buyerID}
	if err := db.Create(&cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return cart.ID
}

func seedCartItem(t *testing.T, db *gorm.DB, cartID uuid.UUID, key stock.Key, qty int) {
	t.Helper()
	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: key.ProductID,
		SizeID:    key.SizeID,
		Quantity:  qty,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  size_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id, size_id)
);`
	for _, ddl := range []string{carts, cartItems} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}
