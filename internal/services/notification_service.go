package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/logger"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// notificationService persists threshold notifications and handles the
// user-facing read/delete lifecycle. Notifications are never recomputed:
// once written, only is_read/read_at change.
type notificationService struct {
	db    *gorm.DB
	dedup bool
}

// NewNotificationService creates a new NotificationServicer. With dedup
// enabled, repeated crossings of the same threshold tier within the same
// budget window emit a single notification instead of one per ledger write.
func NewNotificationService(db *gorm.DB, dedup bool) NotificationServicer {
	return &notificationService{db: db, dedup: dedup}
}

// NotifyBudget turns a severity decision into a persisted notification.
// SeverityNone emits nothing. Only escalations are surfaced: a spend drop
// back below a threshold never generates a de-escalation message.
func (s *notificationService) NotifyBudget(budget *models.Budget, severity Severity) (*models.Notification, error) {
	if severity == SeverityNone {
		return nil, nil
	}

	if s.dedup {
		skip, err := s.alreadyNotified(budget, severity)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if skip {
			logger.Get().Debugw("suppressing duplicate budget notification",
				"budget_id", budget.ID, "severity", severity.String())
			return nil, nil
		}
	}

	percentage := usagePercentage(budget.SpentAmount, budget.Amount)
	title, message := buildBudgetMessage(budget, severity, percentage)

	payload := map[string]interface{}{
		"budget_id":    budget.ID,
		"budget_name":  budget.Name,
		"percentage":   percentage,
		"spent_amount": budget.SpentAmount,
		"total_amount": budget.Amount,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budgetID := budget.ID
	notification := &models.Notification{
		UserID:     budget.UserID,
		BudgetID:   &budgetID,
		Type:       severity.NotificationType(),
		Title:      title,
		Message:    message,
		Priority:   severityPriority(severity),
		Actionable: true,
		Data:       string(data),
	}

	if err := s.db.Create(notification).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return notification, nil
}

// alreadyNotified reports whether a notification for the same budget,
// severity tier, and window already exists.
func (s *notificationService) alreadyNotified(budget *models.Budget, severity Severity) (bool, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND budget_id = ? AND type = ? AND created_at >= ?",
			budget.UserID, budget.ID, severity.NotificationType(), budget.StartDate).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// usagePercentage returns spent/total as a percentage rounded to 1 decimal.
func usagePercentage(spent, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(spent)/float64(total)*1000) / 10
}

// formatAmount renders a minor-unit amount with two decimals for messages.
func formatAmount(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func buildBudgetMessage(budget *models.Budget, severity Severity, percentage float64) (title, message string) {
	switch severity {
	case SeverityCritical:
		title = fmt.Sprintf("Budget far exceeded: %s", budget.Name)
		message = fmt.Sprintf("Spending on %q has reached %.1f%% of its limit (%s of %s, %s over). Review this budget now.",
			budget.Name, percentage, formatAmount(budget.SpentAmount), formatAmount(budget.Amount),
			formatAmount(budget.SpentAmount-budget.Amount))
	case SeverityExceeded:
		title = fmt.Sprintf("Budget exceeded: %s", budget.Name)
		message = fmt.Sprintf("You have spent %.1f%% of your %q budget (%s of %s). You are %s over the limit.",
			percentage, budget.Name, formatAmount(budget.SpentAmount), formatAmount(budget.Amount),
			formatAmount(budget.SpentAmount-budget.Amount))
	default:
		title = fmt.Sprintf("Budget warning: %s", budget.Name)
		message = fmt.Sprintf("You have used %.1f%% of your %q budget (%s of %s). %s remaining.",
			percentage, budget.Name, formatAmount(budget.SpentAmount), formatAmount(budget.Amount),
			formatAmount(budget.Amount-budget.SpentAmount))
	}
	return title, message
}

func severityPriority(severity Severity) models.NotificationPriority {
	if severity >= SeverityExceeded {
		return models.NotificationPriorityHigh
	}
	return models.NotificationPriorityMedium
}

// GetUserNotifications returns a paginated list of the user's notifications,
// newest first, optionally restricted to unread ones.
func (s *notificationService) GetUserNotifications(
	userID uint,
	page pagination.PageRequest,
	unreadOnly bool,
) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *notificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// MarkRead marks one notification as read. Reading an already-read
// notification keeps its original read_at.
func (s *notificationService) MarkRead(userID, notificationID uint) (*models.Notification, error) {
	notification, err := s.getByID(userID, notificationID)
	if err != nil {
		return nil, err
	}

	if notification.IsRead {
		return notification, nil
	}

	now := time.Now()
	updates := map[string]interface{}{"is_read": true, "read_at": &now}
	if err := s.db.Model(notification).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return notification, nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *notificationService) MarkAllRead(userID uint) error {
	now := time.Now()
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteNotification removes a notification.
func (s *notificationService) DeleteNotification(userID, notificationID uint) error {
	notification, err := s.getByID(userID, notificationID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(notification).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *notificationService) getByID(userID, notificationID uint) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &notification, nil
}
