package member

import "context"

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByEmail(ctx context.Context, email string) (*Member, error)
	IDByEmail(ctx context.Context, email string) (string, error)
	UpdateProfile(ctx context.Context, email, fullName, phone string) error
	SetSubscriptionStatus(ctx context.Context, email, status string) error
	List(ctx context.Context) ([]Member, error)
	RoleOf(ctx context.Context, email string) (string, error)
}
