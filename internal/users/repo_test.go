package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

func TestApplyPointDelta(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	userID := seedUser(t, db, 500)

	if err := repo.ApplyPointDelta(ctx, userID, 300, 120); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Points != 320 {
		t.Fatalf("points = %d, want 320", user.Points)
	}
}

func TestApplyPointDeltaInsufficientBalance(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	userID := seedUser(t, db, 100)

	err := repo.ApplyPointDelta(ctx, userID, 200, 50)
	if err == nil {
		t.Fatal("expected insufficient points")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("unexpected error: %v", err)
	}

	// The guarded update cannot partially apply.
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Points != 100 {
		t.Fatalf("points mutated to %d", user.Points)
	}
}

func TestAddTotalAmountAndSetGrade(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	userID := seedUser(t, db, 0)
	gradeID := uuid.New()

	if err := repo.AddTotalAmount(ctx, userID, 25000); err != nil {
		t.Fatalf("add total: %v", err)
	}
	if err := repo.AddTotalAmount(ctx, userID, 5000); err != nil {
		t.Fatalf("add total: %v", err)
	}
	if err := repo.SetGrade(ctx, userID, gradeID); err != nil {
		t.Fatalf("set grade: %v", err)
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.TotalAmountYen != 30000 {
		t.Fatalf("total = %d, want 30000", user.TotalAmountYen)
	}
	if user.GradeID != gradeID {
		t.Fatalf("grade = %s, want %s", user.GradeID, gradeID)
	}

	if err := repo.AddTotalAmount(ctx, uuid.New(), 100); err == nil {
		t.Fatal("expected not found for unknown user")
	}
}

func seedUser(t *testing.T, db *gorm.DB, points int64) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:      uuid.New(),
		Email:   uuid.NewString() + "@example.com",
		Name:    "test buyer",
		Points:  points,
		GradeID: uuid.New(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  points INTEGER NOT NULL DEFAULT 0,
  total_amount_yen INTEGER NOT NULL DEFAULT 0,
  grade_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(usersDDL).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}
