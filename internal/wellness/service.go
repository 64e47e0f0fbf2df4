package wellness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocredo.org/internal/ids"
	"gocredo.org/internal/obs"
)

const fallbackTip = "Stay hydrated and get enough sleep."

// Static for now; a scheduling table replaces this once preventive care
// tracking lands.
var preventiveReminders = []string{
	"Annual health checkup due in 30 days",
	"Blood test due in 10 days",
}

// LogInput carries one daily habit submission. Nil fields keep the stored
// value when the day's log already exists.
type LogInput struct {
	Steps       *int     `json:"steps"`
	WaterIntake *int     `json:"waterIntake"`
	SleepHours  *float64 `json:"sleepHours"`
	YogaMinutes *int     `json:"yogaMinutes"`
}

// Service implements habit logging, dashboards, and the provider overview.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the wellness service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("wellness: store is required")
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Dashboard aggregates today's log, the latest tip, goals, and reminders.
func (s *Service) Dashboard(ctx context.Context, patientID string) (Dashboard, error) {
	goals, err := s.store.Goals(ctx, patientID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load goals: %w", err)
	}

	day := s.today()
	log, err := s.store.LogForDay(ctx, patientID, day)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Dashboard{}, fmt.Errorf("load today's log: %w", err)
	}

	tipText := fallbackTip
	if tip, err := s.store.LatestActiveTip(ctx); err == nil {
		tipText = tip.Text
	} else if !errors.Is(err, ErrNotFound) {
		return Dashboard{}, fmt.Errorf("load health tip: %w", err)
	}

	return Dashboard{
		Goals:               goals,
		TodayLog:            log,
		HealthTip:           tipText,
		PreventiveReminders: preventiveReminders,
	}, nil
}

// SubmitDailyLog upserts today's log for the patient and reports whether the
// daily targets were met. A missed target produces a GOAL_WARNING
// notification; failure to write it never fails the submission.
func (s *Service) SubmitDailyLog(ctx context.Context, patientID string, in LogInput) (*DailyLog, bool, error) {
	if in.Steps == nil && in.WaterIntake == nil && in.SleepHours == nil && in.YogaMinutes == nil {
		return nil, false, fmt.Errorf("%w: at least one field is required", ErrInvalidInput)
	}
	if err := validateLogInput(in); err != nil {
		return nil, false, err
	}

	day := s.today()
	log := &DailyLog{
		ID:        ids.New(),
		PatientID: patientID,
		Date:      day,
	}
	existing, err := s.store.LogForDay(ctx, patientID, day)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("load today's log: %w", err)
	}
	if existing != nil {
		*log = *existing
	}
	applyLogInput(log, in)

	stored, err := s.store.UpsertLog(ctx, log)
	if err != nil {
		return nil, false, fmt.Errorf("store log: %w", err)
	}

	goals, err := s.store.Goals(ctx, patientID)
	if err != nil {
		return nil, false, fmt.Errorf("load goals: %w", err)
	}
	met := targetMet(stored, goals)
	if !met {
		n := &Notification{
			ID:        ids.New(),
			AccountID: patientID,
			Type:      NotificationGoalWarning,
			Message:   "Daily wellness targets not fully completed.",
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.CreateNotification(ctx, n); err != nil {
			obs.LogRequest(map[string]any{
				"ts":    s.now().UTC().Format(time.RFC3339Nano),
				"level": "error",
				"msg":   "goal_warning_notification_failed",
				"error": err.Error(),
			})
		}
	}
	return stored, met, nil
}

// Goals returns the account's configured daily targets.
func (s *Service) Goals(ctx context.Context, accountID string) (Goals, error) {
	return s.store.Goals(ctx, accountID)
}

// ActiveTips lists the active health tips for the public endpoint.
func (s *Service) ActiveTips(ctx context.Context) ([]HealthTip, error) {
	return s.store.ActiveTips(ctx)
}

// UnreadNotifications lists the account's unread notifications.
func (s *Service) UnreadNotifications(ctx context.Context, accountID string) ([]Notification, error) {
	return s.store.UnreadNotifications(ctx, accountID)
}

// MarkNotificationRead flags one of the account's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, accountID, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("%w: notification id is required", ErrInvalidInput)
	}
	return s.store.MarkNotificationRead(ctx, accountID, notificationID)
}

// ProviderOverview lists every patient's compliance for today.
func (s *Service) ProviderOverview(ctx context.Context) ([]PatientCompliance, error) {
	return s.store.PatientCompliance(ctx, s.today())
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func validateLogInput(in LogInput) error {
	if in.Steps != nil && *in.Steps < 0 {
		return fmt.Errorf("%w: steps must be >= 0", ErrInvalidInput)
	}
	if in.WaterIntake != nil && *in.WaterIntake < 0 {
		return fmt.Errorf("%w: waterIntake must be >= 0", ErrInvalidInput)
	}
	if in.SleepHours != nil && (*in.SleepHours < 0 || *in.SleepHours > 24) {
		return fmt.Errorf("%w: sleepHours must be between 0 and 24", ErrInvalidInput)
	}
	if in.YogaMinutes != nil && *in.YogaMinutes < 0 {
		return fmt.Errorf("%w: yogaMinutes must be >= 0", ErrInvalidInput)
	}
	return nil
}

func applyLogInput(log *DailyLog, in LogInput) {
	if in.Steps != nil {
		log.Steps = *in.Steps
	}
	if in.WaterIntake != nil {
		log.WaterIntake = *in.WaterIntake
	}
	if in.SleepHours != nil {
		log.SleepHours = *in.SleepHours
	}
	if in.YogaMinutes != nil {
		log.YogaMinutes = *in.YogaMinutes
	}
}

func targetMet(log *DailyLog, goals Goals) bool {
	return log.Steps >= goals.Steps &&
		log.WaterIntake >= goals.WaterIntake &&
		log.SleepHours >= goals.SleepHours
}
