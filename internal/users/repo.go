package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

// Repository mutates buyer balances and grades.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ApplyPointDelta spends usePoint and credits earned in one conditional
	// update. Zero rows affected means the balance no longer covers usePoint.
	ApplyPointDelta(ctx context.Context, id uuid.UUID, usePoint, earned int64) error
	AddTotalAmount(ctx context.Context, id uuid.UUID, amountYen int64) error
	SetGrade(ctx context.Context, id uuid.UUID, gradeID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &user, nil
}

func (r *repository) ApplyPointDelta(ctx context.Context, id uuid.UUID, usePoint, earned int64) error {
	if usePoint < 0 || earned < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "point amounts must be non-negative")
	}
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points >= ?", id, usePoint).
		Update("points", gorm.Expr("points - ? + ?", usePoint, earned))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update points")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient point balance")
	}
	return nil
}

func (r *repository) AddTotalAmount(ctx context.Context, id uuid.UUID, amountYen int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("total_amount_yen", gorm.Expr("total_amount_yen + ?", amountYen))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update total amount")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (r *repository) SetGrade(ctx context.Context, id uuid.UUID, gradeID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("grade_id", gradeID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update grade")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}
