package schedule

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*Schedule, error) {
	query := `
		SELECT id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time,
		       to_char(end_time, 'HH24:MI') AS end_time, discipline, coach_name,
		       max_capacity, is_active, created_at
		FROM schedules
		WHERE id = $1
	`

	var s Schedule
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Schedule, error) {
	query := `
		SELECT id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time,
		       to_char(end_time, 'HH24:MI') AS end_time, discipline, coach_name,
		       max_capacity, is_active, created_at
		FROM schedules
		WHERE is_active = true
		ORDER BY day_of_week ASC, start_time ASC
	`

	schedules := []Schedule{}
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, err
	}
	return schedules, nil
}
