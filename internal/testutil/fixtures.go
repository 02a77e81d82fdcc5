package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fiscus/internal/models"
	"fiscus/internal/period"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount
// (in cents), dated now.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, categoryID *uint, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
		Date:       time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active monthly budget of $100 for the given
// category with the default warning threshold and the current month as its
// window. A nil categoryID creates an all-categories budget.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID uint, categoryID *uint) *models.Budget {
	t.Helper()
	return CreateTestBudgetWithAmount(t, db, userID, categoryID, 10000)
}

// CreateTestBudgetWithAmount creates an active monthly budget with the
// given ceiling (in cents).
func CreateTestBudgetWithAmount(t *testing.T, db *gorm.DB, userID uint, categoryID *uint, amount int64) *models.Budget {
	t.Helper()

	start, end, err := period.Window(models.BudgetPeriodMonthly, time.Now())
	if err != nil {
		t.Fatalf("failed to compute budget window: %v", err)
	}

	budget := &models.Budget{
		UserID:           userID,
		CategoryID:       categoryID,
		Name:             fmt.Sprintf("Test Budget %d", nextID()),
		Amount:           amount,
		Period:           models.BudgetPeriodMonthly,
		StartDate:        start,
		EndDate:          end,
		WarningThreshold: models.DefaultWarningThreshold,
		IsActive:         true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestNotification creates an unread notification for the user.
func CreateTestNotification(t *testing.T, db *gorm.DB, userID uint, notificationType models.NotificationType) *models.Notification {
	t.Helper()

	n := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    fmt.Sprintf("Test Notification %d", nextID()),
		Message:  "test message",
		Priority: models.NotificationPriorityMedium,
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}
