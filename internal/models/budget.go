package models

import "time"

// BudgetPeriod represents the recurrence period of a budget.
type BudgetPeriod string

const (
	BudgetPeriodDaily     BudgetPeriod = "daily"
	BudgetPeriodWeekly    BudgetPeriod = "weekly"
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// DefaultWarningThreshold is the warning percentage applied when a budget
// is created without an explicit threshold.
const DefaultWarningThreshold = 80

// Budget represents a spending ceiling for a category over a date window.
// The window is derived from Period at creation time and stored; it is not
// recomputed when the period is later edited. SpentAmount is a cache of the
// expense-transaction sum for the window, kept consistent by recomputation
// on every relevant ledger write. A nil CategoryID means the budget covers
// all of the owner's expense categories.
type Budget struct {
	Base
	UserID           uint         `gorm:"not null;index" json:"user_id"`
	CategoryID       *uint        `gorm:"index" json:"category_id,omitempty"`
	Name             string       `gorm:"not null" json:"name"`
	Amount           int64        `gorm:"type:bigint;not null" json:"amount"`
	SpentAmount      int64        `gorm:"type:bigint;not null;default:0" json:"spent_amount"`
	Period           BudgetPeriod `gorm:"not null" json:"period"`
	StartDate        time.Time    `gorm:"not null" json:"start_date"`
	EndDate          time.Time    `gorm:"not null" json:"end_date"`
	WarningThreshold int          `gorm:"not null;default:80" json:"warning_threshold"`
	IsActive         bool         `gorm:"default:true" json:"is_active"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// ContainsTime reports whether t falls within the budget's stored window.
func (b *Budget) ContainsTime(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}
