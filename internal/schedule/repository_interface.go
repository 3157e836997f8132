package schedule

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int) (*Schedule, error)
	ListActive(ctx context.Context) ([]Schedule, error)
}
