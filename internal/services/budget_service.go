package services

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
	"fiscus/internal/period"
)

// budgetService handles budget-related business logic. It owns the cached
// spent_amount column: every recomputation takes a per-budget mutex around
// the aggregate-then-write so that two concurrent ledger writes to the same
// category cannot lose an update.
type budgetService struct {
	db    *gorm.DB
	locks sync.Map // budget ID -> *sync.Mutex
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new budget. The date window is derived from the
// period and the creation instant, and stored for the budget's lifetime.
// A nil categoryID creates a budget covering all expense categories.
func (s *budgetService) CreateBudget(
	userID uint,
	categoryID *uint,
	name string,
	amount int64,
	budgetPeriod models.BudgetPeriod,
	warningThreshold int,
) (*models.Budget, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !period.Valid(budgetPeriod) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be one of daily, weekly, monthly, quarterly, yearly")
	}
	if warningThreshold == 0 {
		warningThreshold = models.DefaultWarningThreshold
	}
	if warningThreshold < 1 || warningThreshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "warning_threshold must be between 1 and 100")
	}

	// Verify the category exists, belongs to the user, and is an expense
	// category. Budgets without a category skip the check.
	if categoryID != nil {
		var category models.Category
		err := s.db.Where("id = ? AND user_id = ? AND type = ?",
			*categoryID, userID, models.CategoryTypeExpense).First(&category).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	startDate, endDate, err := period.Window(budgetPeriod, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidPeriod, err)
	}

	budget := &models.Budget{
		UserID:           userID,
		CategoryID:       categoryID,
		Name:             name,
		Amount:           amount,
		SpentAmount:      0,
		Period:           budgetPeriod,
		StartDate:        startDate,
		EndDate:          endDate,
		WarningThreshold: warningThreshold,
		IsActive:         true,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(
	userID uint,
	page pagination.PageRequest,
	isActive *bool,
	budgetPeriod *models.BudgetPeriod,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if budgetPeriod != nil {
		base = base.Where("period = ?", *budgetPeriod)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. The stored date window
// is never recomputed here: editing the period only changes which window
// a future explicit edit would derive, matching the historical behavior.
func (s *budgetService) UpdateBudget(
	userID, budgetID uint,
	name string,
	amount *int64,
	budgetPeriod *models.BudgetPeriod,
	warningThreshold *int,
) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *amount
	}
	if budgetPeriod != nil {
		if !period.Valid(*budgetPeriod) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be one of daily, weekly, monthly, quarterly, yearly")
		}
		updates["period"] = *budgetPeriod
	}
	if warningThreshold != nil {
		if *warningThreshold < 1 || *warningThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "warning_threshold must be between 1 and 100")
		}
		updates["warning_threshold"] = *warningThreshold
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// DeleteBudget deactivates a budget. The row is kept; deleting an already
// inactive budget is a no-op.
func (s *budgetService) DeleteBudget(userID, budgetID uint) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if !budget.IsActive {
		return nil
	}

	if err := s.db.Model(budget).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecomputeSpending refreshes spent_amount for every active budget of the
// user that covers the given category and whose window contains now.
// Budgets without a category match any expense category; a nil categoryID
// (an uncategorized expense) only touches those. The refreshed budgets are
// returned so the caller can run threshold evaluation on them.
func (s *budgetService) RecomputeSpending(userID uint, categoryID *uint) ([]models.Budget, error) {
	now := time.Now()

	q := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Where("start_date <= ? AND end_date >= ?", now, now)
	if categoryID != nil {
		q = q.Where("category_id IS NULL OR category_id = ?", *categoryID)
	} else {
		q = q.Where("category_id IS NULL")
	}

	var budgets []models.Budget
	if err := q.Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecomputeFailed, err)
	}

	for i := range budgets {
		if err := s.recomputeOne(&budgets[i]); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// Reconcile recomputes every active budget for the user regardless of
// window containment. It repairs any drift between spent_amount and the
// ledger and is safe to call repeatedly.
func (s *budgetService) Reconcile(userID uint) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecomputeFailed, err)
	}

	for i := range budgets {
		if err := s.recomputeOne(&budgets[i]); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// recomputeOne re-derives one budget's spent_amount from the ledger under
// the budget's mutex, so concurrent recomputations serialize per budget.
func (s *budgetService) recomputeOne(budget *models.Budget) error {
	mu := s.budgetLock(budget.ID)
	mu.Lock()
	defer mu.Unlock()

	spent, err := s.sumExpenses(budget.UserID, budget.CategoryID, budget.StartDate, budget.EndDate)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRecomputeFailed, err)
	}

	if err := s.db.Model(&models.Budget{}).Where("id = ?", budget.ID).
		Update("spent_amount", spent).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrRecomputeFailed, err)
	}

	budget.SpentAmount = spent
	return nil
}

// sumExpenses totals expense transactions for the owner within the window,
// optionally restricted to one category. No matching rows sums to zero.
func (s *budgetService) sumExpenses(userID uint, categoryID *uint, startDate, endDate time.Time) (int64, error) {
	q := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND date BETWEEN ? AND ?",
			userID, models.TransactionTypeExpense, startDate, endDate)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var spent int64
	if err := q.Scan(&spent).Error; err != nil {
		return 0, err
	}
	return spent, nil
}

// budgetLock returns the mutex guarding one budget's read-modify-write.
func (s *budgetService) budgetLock(budgetID uint) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(budgetID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// GetBudgetProgress calculates live spending vs ceiling over the budget's
// stored window.
func (s *budgetService) GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	spent, err := s.sumExpenses(userID, budget.CategoryID, budget.StartDate, budget.EndDate)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var percentage float64
	if budget.Amount > 0 {
		percentage = float64(spent) / float64(budget.Amount) * 100
	}

	return &BudgetProgress{
		BudgetID:   budget.ID,
		Budgeted:   budget.Amount,
		Spent:      spent,
		Remaining:  budget.Amount - spent,
		Percentage: percentage,
	}, nil
}

// GetBudgetSummary aggregates all of the user's active budgets.
// Usage percentages guard per-budget divide-by-zero; budgets at or past
// their warning threshold count as near the limit.
func (s *budgetService) GetBudgetSummary(userID uint) (*BudgetSummary, error) {
	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &BudgetSummary{TotalBudgets: len(budgets)}
	var usageSum float64
	for i := range budgets {
		b := &budgets[i]
		summary.TotalBudgetAmount += b.Amount
		summary.TotalSpentAmount += b.SpentAmount
		if b.Amount > 0 {
			usageSum += float64(b.SpentAmount) / float64(b.Amount) * 100
		}
		if EvaluateThreshold(b.SpentAmount, b.Amount, b.WarningThreshold) != SeverityNone {
			summary.BudgetsNearLimit++
		}
	}
	if len(budgets) > 0 {
		summary.AverageUsagePercentage = usageSum / float64(len(budgets))
	}

	return summary, nil
}
