package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const withScheduleColumns = `
	b.id, b.member_id, b.schedule_id, b.booking_date, b.status, b.created_at,
	s.discipline, s.coach_name,
	to_char(s.start_time, 'HH24:MI') AS start_time,
	to_char(s.end_time, 'HH24:MI') AS end_time
`

// CreateBooking locks the class row so concurrent bookings for it are
// serialized, then inserts if the class still has room. A second active
// booking for the same member, class and date violates
// uniq_bookings_member_class_date and maps to ErrAlreadyBooked.
func (r *repository) CreateBooking(ctx context.Context, memberID string, scheduleID int, date time.Time, capacity int) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM schedules WHERE id = $1 FOR UPDATE`, scheduleID); err != nil {
		return nil, err
	}

	var count int
	if err := tx.GetContext(ctx, &count, countActiveQuery, scheduleID, date); err != nil {
		return nil, err
	}
	if count >= capacity {
		return nil, ErrClassFull
	}

	query := `
		INSERT INTO bookings (member_id, schedule_id, booking_date, status)
		VALUES ($1, $2, $3, 'booked')
		RETURNING id, member_id, schedule_id, booking_date, status, created_at
	`

	var booking Booking
	if err := tx.GetContext(ctx, &booking, query, memberID, scheduleID, date); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrAlreadyBooked
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &booking, nil
}

const countActiveQuery = `
	SELECT COUNT(*)
	FROM bookings
	WHERE schedule_id = $1 AND booking_date = $2 AND status = 'booked'
`

func (r *repository) CountActiveForDate(ctx context.Context, scheduleID int, date time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, countActiveQuery, scheduleID, date)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) MemberHasBooking(ctx context.Context, memberID string, scheduleID int, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE member_id = $1 AND schedule_id = $2 AND booking_date = $3 AND status = 'booked'
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, memberID, scheduleID, date)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) ListForMember(ctx context.Context, memberID string) ([]BookingWithSchedule, error) {
	query := `
		SELECT` + withScheduleColumns + `
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		WHERE b.member_id = $1
		ORDER BY b.booking_date ASC
	`

	bookings := []BookingWithSchedule{}
	if err := r.db.SelectContext(ctx, &bookings, query, memberID); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) Upcoming(ctx context.Context, memberID string, from time.Time, limit int) ([]BookingWithSchedule, error) {
	query := `
		SELECT` + withScheduleColumns + `
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		WHERE b.member_id = $1 AND b.booking_date >= $2
		ORDER BY b.booking_date ASC
		LIMIT $3
	`

	bookings := []BookingWithSchedule{}
	if err := r.db.SelectContext(ctx, &bookings, query, memberID, from, limit); err != nil {
		return nil, err
	}

	return bookings, nil
}
