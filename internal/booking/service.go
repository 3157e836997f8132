package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"keystone/internal/metrics"
	"keystone/internal/schedule"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrScheduleNotFound = errors.New("class not found")
	ErrScheduleInactive = errors.New("class is not running")
	ErrWrongWeekday     = errors.New("class does not run on that day")
	ErrDateInPast       = errors.New("cannot book a class in the past")
	ErrClassFull        = errors.New("class is full")
	ErrAlreadyBooked    = errors.New("member already booked this class")
)

// MemberResolver maps a session email to the member id.
type MemberResolver interface {
	IDByEmail(ctx context.Context, email string) (string, error)
}

type Service interface {
	BookClass(ctx context.Context, email string, scheduleID int, date time.Time) (*Booking, error)
	ListForMember(ctx context.Context, email string) (*ListBookingsResponse, error)
	Upcoming(ctx context.Context, memberID string, limit int) ([]BookingWithSchedule, error)
}

type service struct {
	bookingRepo  Repository
	scheduleRepo schedule.Repository
	members      MemberResolver
	loc          *time.Location
	now          func() time.Time
}

// NewService decides "today" in loc, the gym's timezone. A nil loc means UTC.
func NewService(bookingRepo Repository, scheduleRepo schedule.Repository, members MemberResolver, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		bookingRepo:  bookingRepo,
		scheduleRepo: scheduleRepo,
		members:      members,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *service) memberID(ctx context.Context, email string) (string, error) {
	id, err := s.members.IDByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrMemberNotFound
	}
	return id, nil
}

// today is the calendar date at the gym, labelled as UTC midnight like
// booking dates.
func (s *service) today() time.Time {
	return truncateDay(s.now().In(s.loc))
}

func (s *service) BookClass(ctx context.Context, email string, scheduleID int, date time.Time) (*Booking, error) {
	memberID, err := s.memberID(ctx, email)
	if err != nil {
		return nil, err
	}

	slot, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if !slot.IsActive {
		return nil, ErrScheduleInactive
	}

	date = truncateDay(date)
	if date.Before(s.today()) {
		return nil, ErrDateInPast
	}

	if !slot.RunsOn(date) {
		return nil, ErrWrongWeekday
	}

	bookedCount, err := s.bookingRepo.CountActiveForDate(ctx, scheduleID, date)
	if err != nil {
		return nil, err
	}

	if bookedCount >= slot.MaxCapacity {
		return nil, ErrClassFull
	}

	hasBooking, err := s.bookingRepo.MemberHasBooking(ctx, memberID, scheduleID, date)
	if err != nil {
		return nil, err
	}

	if hasBooking {
		return nil, ErrAlreadyBooked
	}

	booking, err := s.bookingRepo.CreateBooking(ctx, memberID, scheduleID, date, slot.MaxCapacity)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(StatusBooked)
	return booking, nil
}

// ListForMember splits the member's bookings around today. A booking dated
// today counts as upcoming.
func (s *service) ListForMember(ctx context.Context, email string) (*ListBookingsResponse, error) {
	memberID, err := s.memberID(ctx, email)
	if err != nil {
		return nil, err
	}

	all, err := s.bookingRepo.ListForMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	resp := &ListBookingsResponse{
		Upcoming: []BookingWithSchedule{},
		Past:     []BookingWithSchedule{},
	}
	for _, b := range all {
		if truncateDay(b.BookingDate).Before(today) {
			resp.Past = append(resp.Past, b)
		} else {
			resp.Upcoming = append(resp.Upcoming, b)
		}
	}

	return resp, nil
}

func (s *service) Upcoming(ctx context.Context, memberID string, limit int) ([]BookingWithSchedule, error) {
	return s.bookingRepo.Upcoming(ctx, memberID, s.today(), limit)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
