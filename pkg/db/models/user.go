package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the accrual-relevant account fields. Points is a mutable
// balance, TotalAmountYen only ever increases, and GradeID transitions
// monotonically upward as spend thresholds are crossed.
type User struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string    `gorm:"column:email;not null;uniqueIndex"`
	Name           string    `gorm:"column:name;not null"`
	Points         int64     `gorm:"column:points;not null;default:0"`
	TotalAmountYen int64     `gorm:"column:total_amount_yen;not null;default:0"`
	GradeID        uuid.UUID `gorm:"column:grade_id;type:uuid;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
