package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

func TestSnapshotsResolvesVariants(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	owner := uuid.New()
	store := models.Store{ID: uuid.New(), OwnerUserID: owner, Name: "tokyo vintage"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	product := models.Product{ID: uuid.New(), StoreID: store.ID, Name: "denim jacket", PriceYen: 12800}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	size := uuid.New()
	entry := models.StockEntry{ProductID: product.ID, SizeID: size, Quantity: 4}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	key := stock.Key{ProductID: product.ID, SizeID: size}
	snaps, err := Snapshots(ctx, db, []stock.Key{key, key})
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	snap, ok := snaps[key]
	if !ok {
		t.Fatalf("missing snapshot for %s", key)
	}
	if snap.Name != "denim jacket" || snap.PriceYen != 12800 || snap.StoreID != store.ID {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	got, err := OwnerOf(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if got != owner {
		t.Fatalf("owner = %s, want %s", got, owner)
	}
}

func TestSnapshotsMissingVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	store := models.Store{ID: uuid.New(), OwnerUserID: uuid.New(), Name: "store"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	product := models.Product{ID: uuid.New(), StoreID: store.ID, Name: "tee", PriceYen: 3000}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	// Product exists but the size has no stock entry.
	key := stock.Key{ProductID: product.ID, SizeID: uuid.New()}
	_, err := Snapshots(ctx, db, []stock.Key{key})
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unknown product.
	_, err = Snapshots(ctx, db, []stock.Key{{ProductID: uuid.New(), SizeID: uuid.New()}})
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	stores := `
CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_yen INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, ddl := range []string{stores, products} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	if err := db.AutoMigrate(&models.StockEntry{}); err != nil {
		t.Fatalf("migrate stock entries: %v", err)
	}
	return db
}
