package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Grade is immutable reference data describing one loyalty tier: the point
// accrual rate (percent) and the cumulative spend threshold that unlocks it.
type Grade struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string          `gorm:"column:name;not null;uniqueIndex"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(5,2);not null"`
	ThresholdYen int64           `gorm:"column:threshold_yen;not null;uniqueIndex"`
}
