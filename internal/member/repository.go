package member

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrMemberNotFound = errors.New("member not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts the member row for a freshly registered credential. A row
// that already exists for the id or email is left as it is.
func (r *repository) Create(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (id, full_name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.FullName, strings.ToLower(m.Email), m.Phone)
	return err
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	query := `
		SELECT id, full_name, email, phone, role, subscription_status, created_at
		FROM members
		WHERE email = $1
	`

	var m Member
	if err := r.db.GetContext(ctx, &m, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// IDByEmail returns "" without error when no member has the address.
func (r *repository) IDByEmail(ctx context.Context, email string) (string, error) {
	query := `SELECT id FROM members WHERE email = $1`

	var id string
	err := r.db.GetContext(ctx, &id, query, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (r *repository) UpdateProfile(ctx context.Context, email, fullName, phone string) error {
	query := `
		UPDATE members
		SET full_name = $2, phone = $3
		WHERE email = $1
	`

	_, err := r.db.ExecContext(ctx, query, strings.ToLower(email), fullName, phone)
	return err
}

// SetSubscriptionStatus is a no-op when no member has the address.
func (r *repository) SetSubscriptionStatus(ctx context.Context, email, status string) error {
	query := `
		UPDATE members
		SET subscription_status = $2
		WHERE email = $1
	`

	_, err := r.db.ExecContext(ctx, query, strings.ToLower(email), status)
	return err
}

func (r *repository) List(ctx context.Context) ([]Member, error) {
	query := `
		SELECT id, full_name, email, phone, role, subscription_status, created_at
		FROM members
		ORDER BY created_at DESC
	`

	members := []Member{}
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) RoleOf(ctx context.Context, email string) (string, error) {
	m, err := r.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
