package schedule

import "time"

// Schedule is a recurring weekly class slot. DayOfWeek follows time.Weekday
// (0 = Sunday).
type Schedule struct {
	ID          int       `db:"id" json:"id"`
	DayOfWeek   int       `db:"day_of_week" json:"dayOfWeek"`
	StartTime   string    `db:"start_time" json:"startTime"`
	EndTime     string    `db:"end_time" json:"endTime"`
	Discipline  string    `db:"discipline" json:"discipline"`
	CoachName   string    `db:"coach_name" json:"coachName"`
	MaxCapacity int       `db:"max_capacity" json:"maxCapacity"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// RunsOn reports whether the slot takes place on the weekday of date.
func (s Schedule) RunsOn(date time.Time) bool {
	return int(date.Weekday()) == s.DayOfWeek
}
