package payment

import "context"

type Repository interface {
	ListForMember(ctx context.Context, memberID string, limit, offset int) ([]Payment, error)
}
