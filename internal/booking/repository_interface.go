package booking

import (
	"context"
	"time"
)

type Repository interface {
	CreateBooking(ctx context.Context, memberID string, scheduleID int, date time.Time, capacity int) (*Booking, error)
	CountActiveForDate(ctx context.Context, scheduleID int, date time.Time) (int, error)
	MemberHasBooking(ctx context.Context, memberID string, scheduleID int, date time.Time) (bool, error)
	ListForMember(ctx context.Context, memberID string) ([]BookingWithSchedule, error)
	Upcoming(ctx context.Context, memberID string, from time.Time, limit int) ([]BookingWithSchedule, error)
}
