package wellness

import (
	"context"
	"time"
)

// Store describes persistence operations required by the wellness features.
type Store interface {
	// Goals returns the daily targets configured for the account.
	Goals(ctx context.Context, accountID string) (Goals, error)
	// LogForDay returns the patient's log for the given day, or ErrNotFound.
	LogForDay(ctx context.Context, patientID string, day time.Time) (*DailyLog, error)
	// UpsertLog inserts or updates the log for (patient, day) atomically and
	// returns the stored row.
	UpsertLog(ctx context.Context, log *DailyLog) (*DailyLog, error)
	// LatestActiveTip returns the most recent active health tip, or ErrNotFound.
	LatestActiveTip(ctx context.Context) (*HealthTip, error)
	// ActiveTips lists all active tips, newest first.
	ActiveTips(ctx context.Context) ([]HealthTip, error)
	// CreateNotification appends a notification.
	CreateNotification(ctx context.Context, n *Notification) error
	// UnreadNotifications lists the account's unread notifications.
	UnreadNotifications(ctx context.Context, accountID string) ([]Notification, error)
	// MarkNotificationRead flags one notification as read. Scoped to the
	// account so one patient cannot touch another's notifications.
	MarkNotificationRead(ctx context.Context, accountID, notificationID string) error
	// PatientCompliance lists every patient with a flag for whether a log
	// exists for the given day.
	PatientCompliance(ctx context.Context, day time.Time) ([]PatientCompliance, error)
}
