package wellness

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("wellness: not found")
	ErrInvalidInput = errors.New("wellness: invalid input")
)

// NotificationGoalWarning marks a day where the patient missed their targets.
const NotificationGoalWarning = "GOAL_WARNING"

// Goals are the per-account daily wellness targets.
type Goals struct {
	Steps       int     `json:"steps"`
	WaterIntake int     `json:"waterIntake"`
	SleepHours  float64 `json:"sleepHours"`
}

// DailyLog is one patient's habit log for one calendar day. There is at most
// one log per patient per day; submissions after the first update it in place.
type DailyLog struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	Date        time.Time `json:"date"`
	Steps       int       `json:"steps"`
	WaterIntake int       `json:"waterIntake"`
	SleepHours  float64   `json:"sleepHours"`
	YogaMinutes int       `json:"yogaMinutes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HealthTip is static wellness content surfaced on dashboards.
type HealthTip struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is a per-account message, e.g. a missed-goal warning.
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// PatientCompliance is one row of the provider overview: whether the patient
// has logged anything today.
type PatientCompliance struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	CompliantToday bool   `json:"compliantToday"`
}

// Dashboard aggregates what a patient sees after login.
type Dashboard struct {
	Goals               Goals     `json:"goals"`
	TodayLog            *DailyLog `json:"todayLog"`
	HealthTip           string    `json:"healthTip"`
	PreventiveReminders []string  `json:"preventiveReminders"`
}
