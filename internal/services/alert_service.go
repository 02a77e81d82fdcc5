package services

import (
	"fiscus/internal/logger"
	"fiscus/internal/models"
)

// alertService is the hook between the transaction ledger and the budget
// engine. Every expense write flows through here: recompute the affected
// budgets, evaluate each against its threshold, and emit notifications.
type alertService struct {
	budgets       BudgetServicer
	notifications NotificationServicer
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(budgets BudgetServicer, notifications NotificationServicer) AlertServicer {
	return &alertService{budgets: budgets, notifications: notifications}
}

// NotifyOnTransaction recomputes and re-evaluates the budgets covering the
// written category. Non-expense writes are ignored. A failed notification
// write is logged and skipped; the recompute result stands either way.
// Spending drops (after a transaction delete) evaluate like any other
// change, but SeverityNone emits nothing, so only escalations surface.
func (s *alertService) NotifyOnTransaction(userID uint, categoryID *uint, transactionType models.TransactionType) error {
	if transactionType != models.TransactionTypeExpense {
		return nil
	}

	budgets, err := s.budgets.RecomputeSpending(userID, categoryID)
	if err != nil {
		return err
	}

	for i := range budgets {
		budget := &budgets[i]
		severity := EvaluateThreshold(budget.SpentAmount, budget.Amount, budget.WarningThreshold)
		if _, err := s.notifications.NotifyBudget(budget, severity); err != nil {
			logger.Get().Errorw("failed to emit budget notification",
				"user_id", userID,
				"budget_id", budget.ID,
				"severity", severity.String(),
				"error", err,
			)
		}
	}
	return nil
}
