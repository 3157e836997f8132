package trial

import (
	"strings"
	"time"
)

const StatusPending = "pending"

type Request struct {
	ID        int       `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"fullName"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	Message   *string   `db:"message" json:"message,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=255" example:"Jordan Tremblay"`
	Phone    string `json:"phone" validate:"required,min=10,max=32" example:"5145550199"`
	Email    string `json:"email" validate:"required,max=255,email" example:"jordan@example.com"`
	Message  string `json:"message" example:"Evenings work best"`
}

// Normalize trims every field so padding cannot satisfy the length rules.
func (r *CreateRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)
}
