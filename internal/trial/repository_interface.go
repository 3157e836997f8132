package trial

import "context"

type Repository interface {
	Create(ctx context.Context, r *Request) error
}
