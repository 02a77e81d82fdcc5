package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTypeWarning     NotificationType = "warning"
	NotificationTypeExceeded    NotificationType = "exceeded"
	NotificationTypeCritical    NotificationType = "critical"
	NotificationTypeSuggestion  NotificationType = "suggestion"
	NotificationTypeAchievement NotificationType = "achievement"
	NotificationTypeReminder    NotificationType = "reminder"
	NotificationTypeAnalysis    NotificationType = "analysis"
)

// NotificationPriority ranks how urgently a notification should surface.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// Notification is an alert persisted for a user. Budget threshold
// notifications carry the originating budget ID and a JSON data payload
// with the numbers behind the message. Notifications are write-once: the
// only mutations are the read flag and deletion.
type Notification struct {
	Base
	UserID     uint                 `gorm:"not null;index" json:"user_id"`
	BudgetID   *uint                `gorm:"index" json:"budget_id,omitempty"`
	Type       NotificationType     `gorm:"not null" json:"type"`
	Title      string               `gorm:"not null" json:"title"`
	Message    string               `gorm:"not null" json:"message"`
	Priority   NotificationPriority `gorm:"not null;default:medium" json:"priority"`
	IsRead     bool                 `gorm:"default:false" json:"is_read"`
	ReadAt     *time.Time           `json:"read_at,omitempty"`
	Actionable bool                 `gorm:"default:false" json:"actionable"`
	Data       string               `json:"data,omitempty"`
}
