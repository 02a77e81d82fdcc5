package services

import (
	"testing"
	"time"

	"fiscus/internal/models"
	"fiscus/internal/pagination"
	"fiscus/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.CreateBudget(user.ID, &cat.ID, "Groceries", 50000, models.BudgetPeriodMonthly, 0)
		testutil.AssertNoError(t, err)

		if budget.ID == 0 {
			t.Fatal("expected non-zero budget ID")
		}
		if budget.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", budget.Name)
		}
		if budget.SpentAmount != 0 {
			t.Errorf("expected zero spent amount, got %d", budget.SpentAmount)
		}
		if budget.WarningThreshold != models.DefaultWarningThreshold {
			t.Errorf("expected default threshold 80, got %d", budget.WarningThreshold)
		}
		if !budget.IsActive {
			t.Error("expected budget to be active")
		}
	})

	t.Run("window_derived_from_creation_instant", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		budget, err := svc.CreateBudget(user.ID, nil, "All Spending", 100000, models.BudgetPeriodMonthly, 0)
		testutil.AssertNoError(t, err)

		now := time.Now()
		if budget.StartDate.Day() != 1 || budget.StartDate.Month() != now.Month() {
			t.Errorf("expected window to start on the 1st of the current month, got %v", budget.StartDate)
		}
		if !budget.ContainsTime(now) {
			t.Errorf("expected window [%v, %v] to contain now", budget.StartDate, budget.EndDate)
		}
	})

	t.Run("nil_category_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		budget, err := svc.CreateBudget(user.ID, nil, "Everything", 200000, models.BudgetPeriodWeekly, 90)
		testutil.AssertNoError(t, err)

		if budget.CategoryID != nil {
			t.Errorf("expected nil category, got %v", *budget.CategoryID)
		}
		if budget.WarningThreshold != 90 {
			t.Errorf("expected threshold 90, got %d", budget.WarningThreshold)
		}
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, nil, "Zero", 0, models.BudgetPeriodMonthly, 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateBudget(user.ID, nil, "Negative", -100, models.BudgetPeriodMonthly, 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects_unknown_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, nil, "Bad", 50000, models.BudgetPeriod("fortnightly"), 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects_threshold_out_of_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBudget(user.ID, nil, "Too High", 50000, models.BudgetPeriodMonthly, 101)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.CreateBudget(user.ID, nil, "Negative", 50000, models.BudgetPeriodMonthly, -5)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		missing := uint(9999)
		_, err := svc.CreateBudget(user.ID, &missing, "Bad", 50000, models.BudgetPeriodMonthly, 0)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("wrong_user_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(user1.ID, &cat.ID, "Not Mine", 50000, models.BudgetPeriodMonthly, 0)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("income_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

		_, err := svc.CreateBudget(user.ID, &cat.ID, "Salary", 50000, models.BudgetPeriodMonthly, 0)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetUserBudgets(t *testing.T) {
	t.Run("returns_user_budgets_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		testutil.CreateTestBudget(t, db, user1.ID, nil)
		testutil.CreateTestBudget(t, db, user1.ID, nil)
		testutil.CreateTestBudget(t, db, user2.ID, nil)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetUserBudgets(user1.ID, page, nil, nil)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 2 {
			t.Errorf("expected 2 budgets, got %d", result.TotalItems)
		}
	})

	t.Run("filter_by_is_active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestBudget(t, db, user.ID, nil)
		inactive := testutil.CreateTestBudget(t, db, user.ID, nil)
		if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate budget: %v", err)
		}

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		active := true
		result, err := svc.GetUserBudgets(user.ID, page, &active, nil)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 active budget, got %d", result.TotalItems)
		}
	})

	t.Run("filter_by_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestBudget(t, db, user.ID, nil) // monthly fixture
		_, err := svc.CreateBudget(user.ID, nil, "Yearly", 120000, models.BudgetPeriodYearly, 0)
		testutil.AssertNoError(t, err)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		yearly := models.BudgetPeriodYearly
		result, err := svc.GetUserBudgets(user.ID, page, nil, &yearly)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 yearly budget, got %d", result.TotalItems)
		}
		if len(result.Data) > 0 && result.Data[0].Period != models.BudgetPeriodYearly {
			t.Errorf("expected yearly period, got %s", result.Data[0].Period)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < 5; i++ {
			testutil.CreateTestBudget(t, db, user.ID, nil)
		}

		page := pagination.PageRequest{Page: 1, PageSize: 2}
		result, err := svc.GetUserBudgets(user.ID, page, nil, nil)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 5 {
			t.Errorf("expected 5 total items, got %d", result.TotalItems)
		}
		if result.TotalPages != 3 {
			t.Errorf("expected 3 total pages, got %d", result.TotalPages)
		}
		if len(result.Data) != 2 {
			t.Errorf("expected 2 items on page, got %d", len(result.Data))
		}
	})
}

func TestGetBudgetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		found, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if found.ID != budget.ID {
			t.Errorf("expected budget ID %d, got %d", budget.ID, found.ID)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetBudgetByID(user.ID, 9999)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user1.ID, nil)

		_, err := svc.GetBudgetByID(user2.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestUpdateBudget(t *testing.T) {
	t.Run("update_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		updated, err := svc.UpdateBudget(user.ID, budget.ID, "New Name", nil, nil, nil)
		testutil.AssertNoError(t, err)

		if updated.Name != "New Name" {
			t.Errorf("expected name 'New Name', got %s", updated.Name)
		}
	})

	t.Run("update_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		newAmount := int64(75000)
		updated, err := svc.UpdateBudget(user.ID, budget.ID, "", &newAmount, nil, nil)
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetBudgetByID(user.ID, updated.ID)
		testutil.AssertNoError(t, err)
		if fetched.Amount != 75000 {
			t.Errorf("expected amount 75000, got %d", fetched.Amount)
		}
	})

	t.Run("update_threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		threshold := 95
		_, err := svc.UpdateBudget(user.ID, budget.ID, "", nil, nil, &threshold)
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if fetched.WarningThreshold != 95 {
			t.Errorf("expected threshold 95, got %d", fetched.WarningThreshold)
		}
	})

	t.Run("rejects_invalid_threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		threshold := 0
		_, err := svc.UpdateBudget(user.ID, budget.ID, "", nil, nil, &threshold)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("period_edit_keeps_stored_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil) // monthly

		yearly := models.BudgetPeriodYearly
		_, err := svc.UpdateBudget(user.ID, budget.ID, "", nil, &yearly, nil)
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if fetched.Period != models.BudgetPeriodYearly {
			t.Errorf("expected period yearly, got %s", fetched.Period)
		}
		// The window derived at creation time stays as-is.
		if !fetched.StartDate.Equal(budget.StartDate) || !fetched.EndDate.Equal(budget.EndDate) {
			t.Errorf("expected window [%v, %v] unchanged, got [%v, %v]",
				budget.StartDate, budget.EndDate, fetched.StartDate, fetched.EndDate)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateBudget(user.ID, 9999, "Nope", nil, nil, nil)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestDeleteBudget(t *testing.T) {
	t.Run("deactivates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		err := svc.DeleteBudget(user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if fetched.IsActive {
			t.Error("expected budget to be inactive after delete")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil)

		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))
		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		err := svc.DeleteBudget(user.ID, 9999)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user1.ID, nil)

		err := svc.DeleteBudget(user2.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestRecomputeSpending(t *testing.T) {
	t.Run("updates_matching_category_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 3000)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 2000)

		budgets, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected 1 recomputed budget, got %d", len(budgets))
		}
		if budgets[0].SpentAmount != 5000 {
			t.Errorf("expected spent 5000, got %d", budgets[0].SpentAmount)
		}

		fetched, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if fetched.SpentAmount != 5000 {
			t.Errorf("expected persisted spent 5000, got %d", fetched.SpentAmount)
		}
	})

	t.Run("all_category_budget_matches_any_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, nil)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 4000)

		budgets, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected the all-category budget to be recomputed, got %d budgets", len(budgets))
		}
		if budgets[0].SpentAmount != 4000 {
			t.Errorf("expected spent 4000, got %d", budgets[0].SpentAmount)
		}
	})

	t.Run("other_category_budget_untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat1 := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		cat2 := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, &cat2.ID)

		testutil.CreateTestTransaction(t, db, user.ID, &cat1.ID, models.TransactionTypeExpense, 4000)

		budgets, err := svc.RecomputeSpending(user.ID, &cat1.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 0 {
			t.Errorf("expected no budgets for an unrelated category, got %d", len(budgets))
		}
	})

	t.Run("uncategorized_write_only_touches_all_category_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		allCats := testutil.CreateTestBudget(t, db, user.ID, nil)

		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, 2500)

		budgets, err := svc.RecomputeSpending(user.ID, nil)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 || budgets[0].ID != allCats.ID {
			t.Fatalf("expected only the all-category budget, got %d budgets", len(budgets))
		}
		if budgets[0].SpentAmount != 2500 {
			t.Errorf("expected spent 2500, got %d", budgets[0].SpentAmount)
		}
	})

	t.Run("ignores_income_and_out_of_window_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeIncome, 9000)
		outside := &models.Transaction{
			UserID:     user.ID,
			CategoryID: &cat.ID,
			Type:       models.TransactionTypeExpense,
			Amount:     7000,
			Date:       budget.StartDate.AddDate(0, 0, -1),
		}
		if err := db.Create(outside).Error; err != nil {
			t.Fatalf("failed to create out-of-window transaction: %v", err)
		}

		budgets, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(budgets))
		}
		if budgets[0].SpentAmount != 0 {
			t.Errorf("expected spent 0, got %d", budgets[0].SpentAmount)
		}
	})

	t.Run("skips_inactive_and_expired_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		inactive := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate budget: %v", err)
		}

		// A budget whose stored window ended last month.
		expired := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		if err := db.Model(expired).Updates(map[string]interface{}{
			"start_date": time.Now().AddDate(0, -2, 0),
			"end_date":   time.Now().AddDate(0, -1, 0),
		}).Error; err != nil {
			t.Fatalf("failed to backdate budget: %v", err)
		}

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000)

		budgets, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 0 {
			t.Errorf("expected no recomputed budgets, got %d", len(budgets))
		}
	})

	t.Run("spend_never_negative_after_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)

		tx := testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 3000)
		_, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if err := db.Delete(tx).Error; err != nil {
			t.Fatalf("failed to delete transaction: %v", err)
		}
		budgets, err := svc.RecomputeSpending(user.ID, &cat.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(budgets))
		}
		if budgets[0].SpentAmount != 0 {
			t.Errorf("expected spent back to 0, got %d", budgets[0].SpentAmount)
		}

		fetched, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if fetched.SpentAmount < 0 {
			t.Errorf("spent amount must never be negative, got %d", fetched.SpentAmount)
		}
	})
}

func TestReconcile(t *testing.T) {
	t.Run("repairs_drift_for_all_active_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 6000)

		// Simulate drift: the cached value disagrees with the ledger.
		if err := db.Model(budget).Update("spent_amount", 99999).Error; err != nil {
			t.Fatalf("failed to inject drift: %v", err)
		}

		budgets, err := svc.Reconcile(user.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(budgets))
		}
		if budgets[0].SpentAmount != 6000 {
			t.Errorf("expected spent 6000 after reconcile, got %d", budgets[0].SpentAmount)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 4500)

		first, err := svc.Reconcile(user.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.Reconcile(user.ID)
		testutil.AssertNoError(t, err)

		if len(first) != 1 || len(second) != 1 {
			t.Fatalf("expected 1 budget each run, got %d and %d", len(first), len(second))
		}
		if first[0].SpentAmount != second[0].SpentAmount {
			t.Errorf("expected identical spent amounts, got %d then %d",
				first[0].SpentAmount, second[0].SpentAmount)
		}
	})

	t.Run("covers_expired_windows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		expired := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		if err := db.Model(expired).Updates(map[string]interface{}{
			"start_date":   time.Now().AddDate(0, -2, 0),
			"end_date":     time.Now().AddDate(0, -1, 0),
			"spent_amount": 12345,
		}).Error; err != nil {
			t.Fatalf("failed to backdate budget: %v", err)
		}

		budgets, err := svc.Reconcile(user.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 1 {
			t.Fatalf("expected the expired budget to be reconciled, got %d budgets", len(budgets))
		}
		if budgets[0].SpentAmount != 0 {
			t.Errorf("expected spent 0 for empty expired window, got %d", budgets[0].SpentAmount)
		}
	})
}

func TestGetBudgetProgress(t *testing.T) {
	t.Run("no_spending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		budget := testutil.CreateTestBudget(t, db, user.ID, nil) // $100

		progress, err := svc.GetBudgetProgress(user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if progress.Budgeted != 10000 {
			t.Errorf("expected budgeted 10000, got %d", progress.Budgeted)
		}
		if progress.Spent != 0 {
			t.Errorf("expected spent 0, got %d", progress.Spent)
		}
		if progress.Remaining != 10000 {
			t.Errorf("expected remaining 10000, got %d", progress.Remaining)
		}
		if progress.Percentage != 0 {
			t.Errorf("expected percentage 0, got %f", progress.Percentage)
		}
	})

	t.Run("partial_and_over_spending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, &cat.ID) // $100

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 5000)

		progress, err := svc.GetBudgetProgress(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if progress.Spent != 5000 || progress.Percentage != 50.0 {
			t.Errorf("expected spent 5000 at 50%%, got %d at %f", progress.Spent, progress.Percentage)
		}

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 10000)

		progress, err = svc.GetBudgetProgress(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if progress.Remaining != -5000 {
			t.Errorf("expected remaining -5000, got %d", progress.Remaining)
		}
		if progress.Percentage != 150.0 {
			t.Errorf("expected percentage 150.0, got %f", progress.Percentage)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetBudgetProgress(user.ID, 9999)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestGetBudgetSummary(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		summary, err := svc.GetBudgetSummary(user.ID)
		testutil.AssertNoError(t, err)

		if summary.TotalBudgets != 0 {
			t.Errorf("expected 0 budgets, got %d", summary.TotalBudgets)
		}
		if summary.AverageUsagePercentage != 0 {
			t.Errorf("expected 0 average usage, got %f", summary.AverageUsagePercentage)
		}
	})

	t.Run("aggregates_active_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		b1 := testutil.CreateTestBudget(t, db, user.ID, &cat.ID) // 10000 ceiling
		if err := db.Model(b1).Update("spent_amount", 9000).Error; err != nil {
			t.Fatalf("failed to set spent: %v", err) // 90% -> near limit
		}
		b2 := testutil.CreateTestBudgetWithAmount(t, db, user.ID, nil, 20000)
		if err := db.Model(b2).Update("spent_amount", 2000).Error; err != nil {
			t.Fatalf("failed to set spent: %v", err) // 10%
		}

		// An inactive budget must not count.
		b3 := testutil.CreateTestBudget(t, db, user.ID, &cat.ID)
		if err := db.Model(b3).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate: %v", err)
		}

		summary, err := svc.GetBudgetSummary(user.ID)
		testutil.AssertNoError(t, err)

		if summary.TotalBudgets != 2 {
			t.Errorf("expected 2 budgets, got %d", summary.TotalBudgets)
		}
		if summary.TotalBudgetAmount != 30000 {
			t.Errorf("expected total amount 30000, got %d", summary.TotalBudgetAmount)
		}
		if summary.TotalSpentAmount != 11000 {
			t.Errorf("expected total spent 11000, got %d", summary.TotalSpentAmount)
		}
		if summary.AverageUsagePercentage != 50.0 {
			t.Errorf("expected average usage 50.0, got %f", summary.AverageUsagePercentage)
		}
		if summary.BudgetsNearLimit != 1 {
			t.Errorf("expected 1 budget near limit, got %d", summary.BudgetsNearLimit)
		}
	})
}
