package booking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"keystone/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepo struct{ mock.Mock }
type MockScheduleRepo struct{ mock.Mock }
type MockMembers struct{ mock.Mock }

func (m *MockBookingRepo) CreateBooking(ctx context.Context, memberID string, scheduleID int, date time.Time, capacity int) (*Booking, error) {
	args := m.Called(ctx, memberID, scheduleID, date, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockBookingRepo) CountActiveForDate(ctx context.Context, scheduleID int, date time.Time) (int, error) {
	args := m.Called(ctx, scheduleID, date)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepo) MemberHasBooking(ctx context.Context, memberID string, scheduleID int, date time.Time) (bool, error) {
	args := m.Called(ctx, memberID, scheduleID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) ListForMember(ctx context.Context, memberID string) ([]BookingWithSchedule, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithSchedule), args.Error(1)
}

func (m *MockBookingRepo) Upcoming(ctx context.Context, memberID string, from time.Time, limit int) ([]BookingWithSchedule, error) {
	args := m.Called(ctx, memberID, from, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithSchedule), args.Error(1)
}

func (m *MockScheduleRepo) GetByID(ctx context.Context, id int) (*schedule.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) ListActive(ctx context.Context) ([]schedule.Schedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schedule.Schedule), args.Error(1)
}

func (m *MockMembers) IDByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

// Monday 2026-10-19; the next Saturday is 2026-10-24.
var (
	fixedNow   = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	saturday   = time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	sunday     = time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	lastSat    = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	saturdayAM = &schedule.Schedule{ID: 1, DayOfWeek: int(time.Saturday), MaxCapacity: 20, IsActive: true}
)

func newTestService(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) *service {
	return &service{bookingRepo: br, scheduleRepo: sr, members: mr, loc: time.UTC, now: func() time.Time { return fixedNow }}
}

func TestService_BookClass(t *testing.T) {
	tests := []struct {
		name        string
		scheduleID  int
		date        time.Time
		setupMocks  func(*MockBookingRepo, *MockScheduleRepo, *MockMembers)
		expectedErr error
	}{
		{
			name:       "successful booking",
			scheduleID: 1,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
				br.On("CountActiveForDate", mock.Anything, 1, saturday).Return(5, nil)
				br.On("MemberHasBooking", mock.Anything, "m1", 1, saturday).Return(false, nil)
				br.On("CreateBooking", mock.Anything, "m1", 1, saturday, 20).Return(&Booking{
					ID: 7, MemberID: "m1", ScheduleID: 1, BookingDate: saturday, Status: StatusBooked,
				}, nil)
			},
		},
		{
			name:       "member row missing",
			scheduleID: 1,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("", nil)
			},
			expectedErr: ErrMemberNotFound,
		},
		{
			name:       "class not found",
			scheduleID: 99,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 99).Return(nil, sql.ErrNoRows)
			},
			expectedErr: ErrScheduleNotFound,
		},
		{
			name:       "inactive class",
			scheduleID: 2,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 2).Return(&schedule.Schedule{ID: 2, DayOfWeek: 6, MaxCapacity: 20}, nil)
			},
			expectedErr: ErrScheduleInactive,
		},
		{
			name:       "date in past",
			scheduleID: 1,
			date:       lastSat,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
			},
			expectedErr: ErrDateInPast,
		},
		{
			name:       "wrong weekday",
			scheduleID: 1,
			date:       sunday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
			},
			expectedErr: ErrWrongWeekday,
		},
		{
			name:       "class full",
			scheduleID: 1,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
				br.On("CountActiveForDate", mock.Anything, 1, saturday).Return(20, nil)
			},
			expectedErr: ErrClassFull,
		},
		{
			name:       "already booked",
			scheduleID: 1,
			date:       saturday,
			setupMocks: func(br *MockBookingRepo, sr *MockScheduleRepo, mr *MockMembers) {
				mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
				sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
				br.On("CountActiveForDate", mock.Anything, 1, saturday).Return(3, nil)
				br.On("MemberHasBooking", mock.Anything, "m1", 1, saturday).Return(true, nil)
			},
			expectedErr: ErrAlreadyBooked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := new(MockBookingRepo)
			sr := new(MockScheduleRepo)
			mr := new(MockMembers)
			tt.setupMocks(br, sr, mr)

			booking, err := newTestService(br, sr, mr).BookClass(context.Background(), "jo@example.com", tt.scheduleID, tt.date)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, booking)
				br.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 7, booking.ID)
			}
			br.AssertExpectations(t)
			sr.AssertExpectations(t)
		})
	}
}

func TestService_BookClass_PropagatesRepositoryErrors(t *testing.T) {
	br := new(MockBookingRepo)
	sr := new(MockScheduleRepo)
	mr := new(MockMembers)
	mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("", errors.New("db down"))

	_, err := newTestService(br, sr, mr).BookClass(context.Background(), "jo@example.com", 1, saturday)
	assert.EqualError(t, err, "db down")
	sr.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_BookClass_LosesRaceAtInsert(t *testing.T) {
	for _, raceErr := range []error{ErrAlreadyBooked, ErrClassFull} {
		t.Run(raceErr.Error(), func(t *testing.T) {
			br := new(MockBookingRepo)
			sr := new(MockScheduleRepo)
			mr := new(MockMembers)
			mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
			sr.On("GetByID", mock.Anything, 1).Return(saturdayAM, nil)
			br.On("CountActiveForDate", mock.Anything, 1, saturday).Return(19, nil)
			br.On("MemberHasBooking", mock.Anything, "m1", 1, saturday).Return(false, nil)
			br.On("CreateBooking", mock.Anything, "m1", 1, saturday, 20).Return(nil, raceErr)

			b, err := newTestService(br, sr, mr).BookClass(context.Background(), "jo@example.com", 1, saturday)
			assert.ErrorIs(t, err, raceErr)
			assert.Nil(t, b)
		})
	}
}

func TestService_TodayFollowsGymTimezone(t *testing.T) {
	toronto, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	// 02:00 UTC on Tuesday is still Monday evening in Toronto.
	lateMonday := time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mondayPM := &schedule.Schedule{ID: 4, DayOfWeek: int(time.Monday), MaxCapacity: 20, IsActive: true}

	newService := func(br *MockBookingRepo, loc *time.Location) Service {
		sr := new(MockScheduleRepo)
		sr.On("GetByID", mock.Anything, 4).Return(mondayPM, nil)
		mr := new(MockMembers)
		mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
		svc := NewService(br, sr, mr, loc).(*service)
		svc.now = func() time.Time { return lateMonday }
		return svc
	}

	t.Run("gym timezone keeps the evening class bookable", func(t *testing.T) {
		br := new(MockBookingRepo)
		br.On("CountActiveForDate", mock.Anything, 4, monday).Return(0, nil)
		br.On("MemberHasBooking", mock.Anything, "m1", 4, monday).Return(false, nil)
		br.On("CreateBooking", mock.Anything, "m1", 4, monday, 20).Return(&Booking{ID: 11, BookingDate: monday}, nil)

		b, err := newService(br, toronto).BookClass(context.Background(), "jo@example.com", 4, monday)
		require.NoError(t, err)
		assert.Equal(t, 11, b.ID)
	})

	t.Run("utc already moved to the next day", func(t *testing.T) {
		_, err := newService(new(MockBookingRepo), nil).BookClass(context.Background(), "jo@example.com", 4, monday)
		assert.ErrorIs(t, err, ErrDateInPast)
	})
}

func TestService_ListForMember_SplitsAroundToday(t *testing.T) {
	br := new(MockBookingRepo)
	sr := new(MockScheduleRepo)
	mr := new(MockMembers)

	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mr.On("IDByEmail", mock.Anything, "jo@example.com").Return("m1", nil)
	br.On("ListForMember", mock.Anything, "m1").Return([]BookingWithSchedule{
		{Booking: Booking{ID: 1, BookingDate: lastSat}},
		{Booking: Booking{ID: 2, BookingDate: today}},
		{Booking: Booking{ID: 3, BookingDate: saturday}},
	}, nil)

	resp, err := newTestService(br, sr, mr).ListForMember(context.Background(), "jo@example.com")
	require.NoError(t, err)

	require.Len(t, resp.Past, 1)
	assert.Equal(t, 1, resp.Past[0].ID)
	require.Len(t, resp.Upcoming, 2)
	assert.Equal(t, 2, resp.Upcoming[0].ID)
	assert.Equal(t, 3, resp.Upcoming[1].ID)
}

func TestService_Upcoming_UsesToday(t *testing.T) {
	br := new(MockBookingRepo)
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	br.On("Upcoming", mock.Anything, "m1", today, 3).Return([]BookingWithSchedule{}, nil)

	list, err := newTestService(br, new(MockScheduleRepo), new(MockMembers)).Upcoming(context.Background(), "m1", 3)
	require.NoError(t, err)
	assert.Empty(t, list)
	br.AssertExpectations(t)
}
