package trial

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

func (r *repository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO trial_requests (full_name, phone, email, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query, req.FullName, req.Phone, req.Email, req.Message, req.Status).
		Scan(&req.ID, &req.CreatedAt)
}
