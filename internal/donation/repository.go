package donation

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

func (r *repository) Insert(ctx context.Context, d *Donation) (bool, error) {
	query := `
		INSERT INTO donations (amount, payment_provider, payment_id, status, email)
		VALUES (:amount, :payment_provider, :payment_id, :status, :email)
		ON CONFLICT (payment_id) DO NOTHING
	`

	res, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
