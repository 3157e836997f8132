package member

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Member struct {
	ID                 string    `db:"id" json:"id"`
	FullName           string    `db:"full_name" json:"fullName"`
	Email              string    `db:"email" json:"email"`
	Phone              string    `db:"phone" json:"phone"`
	Role               string    `db:"role" json:"role"`
	SubscriptionStatus string    `db:"subscription_status" json:"subscriptionStatus"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	Phone    string `json:"phone" validate:"required,min=10"`
}
