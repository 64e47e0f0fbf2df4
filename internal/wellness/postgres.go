package wellness

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Daily logs ride on a unique
// (patient_id, log_date) index so a day's submissions collapse into one row.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Goals(ctx context.Context, accountID string) (Goals, error) {
	row := s.db.QueryRowContext(ctx, `
		select goal_steps, goal_water_intake, goal_sleep_hours
		from accounts
		where id = $1
	`, accountID)
	var g Goals
	if err := row.Scan(&g.Steps, &g.WaterIntake, &g.SleepHours); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Goals{}, ErrNotFound
		}
		return Goals{}, err
	}
	return g, nil
}

func (s *PGStore) LogForDay(ctx context.Context, patientID string, day time.Time) (*DailyLog, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, patient_id, log_date, steps, water_intake, sleep_hours, yoga_minutes,
		       created_at, updated_at
		from daily_logs
		where patient_id = $1 and log_date = $2
	`, patientID, day)
	var l DailyLog
	if err := row.Scan(
		&l.ID, &l.PatientID, &l.Date, &l.Steps, &l.WaterIntake, &l.SleepHours,
		&l.YogaMinutes, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *PGStore) UpsertLog(ctx context.Context, log *DailyLog) (*DailyLog, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into daily_logs(id, patient_id, log_date, steps, water_intake, sleep_hours, yoga_minutes)
		values($1,$2,$3,$4,$5,$6,$7)
		on conflict (patient_id, log_date) do update
		set steps = excluded.steps,
		    water_intake = excluded.water_intake,
		    sleep_hours = excluded.sleep_hours,
		    yoga_minutes = excluded.yoga_minutes,
		    updated_at = now()
		returning id, patient_id, log_date, steps, water_intake, sleep_hours, yoga_minutes,
		          created_at, updated_at
	`, log.ID, log.PatientID, log.Date, log.Steps, log.WaterIntake, log.SleepHours, log.YogaMinutes)
	var stored DailyLog
	if err := row.Scan(
		&stored.ID, &stored.PatientID, &stored.Date, &stored.Steps, &stored.WaterIntake,
		&stored.SleepHours, &stored.YogaMinutes, &stored.CreatedAt, &stored.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *PGStore) LatestActiveTip(ctx context.Context) (*HealthTip, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, text, category, active, created_at
		from health_tips
		where active
		order by created_at desc
		limit 1
	`)
	var t HealthTip
	if err := row.Scan(&t.ID, &t.Text, &t.Category, &t.Active, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) ActiveTips(ctx context.Context) ([]HealthTip, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, text, category, active, created_at
		from health_tips
		where active
		order by created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tips []HealthTip
	for rows.Next() {
		var t HealthTip
		if err := rows.Scan(&t.ID, &t.Text, &t.Category, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

func (s *PGStore) CreateNotification(ctx context.Context, n *Notification) error {
	_, err := s.db.ExecContext(ctx, `
		insert into notifications(id, account_id, type, message, read, created_at)
		values($1,$2,$3,$4,$5,$6)
	`, n.ID, n.AccountID, n.Type, n.Message, n.Read, n.CreatedAt)
	return err
}

func (s *PGStore) UnreadNotifications(ctx context.Context, accountID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, type, message, read, created_at
		from notifications
		where account_id = $1 and not read
		order by created_at desc
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PGStore) MarkNotificationRead(ctx context.Context, accountID, notificationID string) error {
	res, err := s.db.ExecContext(ctx, `
		update notifications set read = true
		where id = $1 and account_id = $2
	`, notificationID, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) PatientCompliance(ctx context.Context, day time.Time) ([]PatientCompliance, error) {
	rows, err := s.db.QueryContext(ctx, `
		select a.id, a.name, a.email, (l.id is not null) as compliant
		from accounts a
		left join daily_logs l on l.patient_id = a.id and l.log_date = $1
		where a.role = 'patient'
		order by a.name
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PatientCompliance
	for rows.Next() {
		var p PatientCompliance
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.CompliantToday); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
