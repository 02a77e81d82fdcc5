package services

import (
	"time"

	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, description string) (*models.Category, error)
	GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
	MinAmount  *int64
	MaxAmount  *int64
}

// TransactionServicer defines the contract for ledger writes and reads.
// Create and delete synchronously re-trigger budget recomputation and
// threshold evaluation for the affected category.
type TransactionServicer interface {
	CreateTransaction(userID uint, categoryID *uint, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// BudgetProgress contains spending vs budget data for a budget's window.
type BudgetProgress struct {
	BudgetID   uint    `json:"budget_id"`
	Budgeted   int64   `json:"budgeted"`
	Spent      int64   `json:"spent"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// BudgetSummary aggregates a user's active budgets.
type BudgetSummary struct {
	TotalBudgets           int     `json:"total_budgets"`
	TotalBudgetAmount      int64   `json:"total_budget_amount"`
	TotalSpentAmount       int64   `json:"total_spent_amount"`
	AverageUsagePercentage float64 `json:"average_usage_percentage"`
	BudgetsNearLimit       int     `json:"budgets_near_limit"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID uint, categoryID *uint, name string, amount int64, budgetPeriod models.BudgetPeriod, warningThreshold int) (*models.Budget, error)
	GetUserBudgets(userID uint, page pagination.PageRequest, isActive *bool, budgetPeriod *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(userID, budgetID uint, name string, amount *int64, budgetPeriod *models.BudgetPeriod, warningThreshold *int) (*models.Budget, error)
	DeleteBudget(userID, budgetID uint) error
	GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error)
	GetBudgetSummary(userID uint) (*BudgetSummary, error)
	RecomputeSpending(userID uint, categoryID *uint) ([]models.Budget, error)
	Reconcile(userID uint) ([]models.Budget, error)
}

// NotificationServicer defines the contract for emitting and managing
// notifications.
type NotificationServicer interface {
	NotifyBudget(budget *models.Budget, severity Severity) (*models.Notification, error)
	GetUserNotifications(userID uint, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Notification], error)
	UnreadCount(userID uint) (int64, error)
	MarkRead(userID, notificationID uint) (*models.Notification, error)
	MarkAllRead(userID uint) error
	DeleteNotification(userID, notificationID uint) error
}

// AlertServicer is the integration point invoked after every ledger write.
type AlertServicer interface {
	NotifyOnTransaction(userID uint, categoryID *uint, transactionType models.TransactionType) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
