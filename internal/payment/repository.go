package payment

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

func (r *repository) ListForMember(ctx context.Context, memberID string, limit, offset int) ([]Payment, error) {
	payments := []Payment{}
	err := r.db.SelectContext(ctx, &payments, `
		SELECT id, member_id, amount, description, payment_method, status,
		       payment_provider, transaction_id, payment_date
		FROM payment_history
		WHERE member_id = $1
		ORDER BY payment_date DESC
		LIMIT $2 OFFSET $3
	`, memberID, limit, offset)
	if err != nil {
		return nil, err
	}
	return payments, nil
}
