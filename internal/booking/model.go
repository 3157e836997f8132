package booking

import "time"

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"

	DateLayout = "2006-01-02"
)

type Booking struct {
	ID          int       `db:"id" json:"id"`
	MemberID    string    `db:"member_id" json:"memberId"`
	ScheduleID  int       `db:"schedule_id" json:"scheduleId"`
	BookingDate time.Time `db:"booking_date" json:"bookingDate"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// BookingWithSchedule is a booking joined with the class it reserves.
type BookingWithSchedule struct {
	Booking
	Discipline string `db:"discipline" json:"discipline"`
	CoachName  string `db:"coach_name" json:"coachName"`
	StartTime  string `db:"start_time" json:"startTime"`
	EndTime    string `db:"end_time" json:"endTime"`
}

type CreateBookingRequest struct {
	ScheduleID  int    `json:"scheduleId" validate:"required,gt=0"`
	BookingDate string `json:"bookingDate" validate:"required"`
}

type ListBookingsResponse struct {
	Upcoming []BookingWithSchedule `json:"upcoming"`
	Past     []BookingWithSchedule `json:"past"`
}
