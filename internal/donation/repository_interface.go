package donation

import "context"

type Repository interface {
	// Insert reports false when a row with the same payment id already exists.
	Insert(ctx context.Context, d *Donation) (bool, error)
}
