package grades

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
)

// Table holds the loyalty grade ladder sorted by threshold descending. It is
// loaded once at startup and treated as immutable afterwards.
type Table struct {
	grades []models.Grade
}

// Load reads every grade row and builds the classification table.
func Load(ctx context.Context, db *gorm.DB) (*Table, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	var rows []models.Grade
	if err := db.WithContext(ctx).Order("threshold_yen DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load grades")
	}
	return NewTable(rows)
}

// NewTable builds a table from the given rows, sorted threshold-descending.
func NewTable(rows []models.Grade) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("at least one grade is required")
	}
	grades := make([]models.Grade, len(rows))
	copy(grades, rows)
	sort.Slice(grades, func(i, j int) bool {
		return grades[i].ThresholdYen > grades[j].ThresholdYen
	})
	return &Table{grades: grades}, nil
}

// Classify returns the highest grade whose threshold does not exceed the
// cumulative spend. Amounts below every threshold land on the floor grade.
func (t *Table) Classify(totalYen int64) models.Grade {
	for _, g := range t.grades {
		if totalYen >= g.ThresholdYen {
			return g
		}
	}
	return t.floor()
}

// AccrualRate returns the point accrual percentage for the grade. Unknown
// ids fall back to the floor grade's rate rather than failing the order.
func (t *Table) AccrualRate(gradeID uuid.UUID) decimal.Decimal {
	if g := t.byID(gradeID); g != nil {
		return g.Rate
	}
	return t.floor().Rate
}

// SyncGrade reports the grade the new cumulative spend classifies to and
// whether it differs from the current one. Grades only move upward: a
// classification below the current grade's threshold reports no change.
func (t *Table) SyncGrade(currentGradeID uuid.UUID, newTotalYen int64) (models.Grade, bool) {
	current := t.byID(currentGradeID)
	next := t.Classify(newTotalYen)
	if current != nil {
		if next.ID == current.ID || next.ThresholdYen < current.ThresholdYen {
			return *current, false
		}
	}
	return next, true
}

func (t *Table) byID(gradeID uuid.UUID) *models.Grade {
	if gradeID == uuid.Nil {
		return nil
	}
	for i := range t.grades {
		if t.grades[i].ID == gradeID {
			return &t.grades[i]
		}
	}
	return nil
}

func (t *Table) floor() models.Grade {
	return t.grades[len(t.grades)-1]
}

// PointsEarned computes floor(chargedSubtotal * rate / 100) with decimal
// arithmetic so fractional rates never drift.
func PointsEarned(chargedSubtotalYen int64, rate decimal.Decimal) int64 {
	if chargedSubtotalYen <= 0 {
		return 0
	}
	earned := decimal.NewFromInt(chargedSubtotalYen).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Floor()
	return earned.IntPart()
}
