package services

import "fiscus/internal/models"

// Severity ranks how far spending has progressed against a budget ceiling.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityExceeded
	SeverityCritical
)

// String returns a human-readable name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityExceeded:
		return "exceeded"
	case SeverityCritical:
		return "critical"
	}
	return "none"
}

// NotificationType maps a severity to the notification type it emits.
func (s Severity) NotificationType() models.NotificationType {
	switch s {
	case SeverityWarning:
		return models.NotificationTypeWarning
	case SeverityExceeded:
		return models.NotificationTypeExceeded
	case SeverityCritical:
		return models.NotificationTypeCritical
	}
	return ""
}

// EvaluateThreshold decides the severity for the given spend ratio.
// A zero or negative total yields SeverityNone rather than dividing by
// zero. Warning thresholds above 100 leave the warning tier unreachable:
// such budgets only ever report exceeded or critical.
func EvaluateThreshold(spentAmount, totalAmount int64, warningThreshold int) Severity {
	if totalAmount <= 0 {
		return SeverityNone
	}

	ratio := float64(spentAmount) / float64(totalAmount)
	switch {
	case ratio >= 1.5:
		return SeverityCritical
	case ratio >= 1.0:
		return SeverityExceeded
	case ratio >= float64(warningThreshold)/100:
		return SeverityWarning
	}
	return SeverityNone
}
