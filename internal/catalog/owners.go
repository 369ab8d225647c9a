package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owners resolves product ownership outside a checkout transaction.
type Owners struct {
	db *gorm.DB
}

func NewOwners(db *gorm.DB) *Owners {
	return &Owners{db: db}
}

func (o *Owners) OwnerOf(ctx context.Context, productID uuid.UUID) (uuid.UUID, error) {
	return OwnerOf(ctx, o.db, productID)
}
