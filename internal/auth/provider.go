package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidSession     = errors.New("session is invalid or expired")
	ErrInvalidCode        = errors.New("auth code is invalid or expired")
	ErrNotConfigured      = errors.New("auth provider is not configured")
)

// User is the identity the credential store knows about. ID doubles as the
// members primary key.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         User
}

type SignUpParams struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	RedirectTo string
}

// UserUpdate carries the fields to change; nil fields are left alone.
type UserUpdate struct {
	Password *string
	FullName *string
	Phone    *string
}

// Provider is the credential and session collaborator. Implementations hold
// no per-user state in process.
type Provider interface {
	// SignUp returns a nil Session when the store requires email confirmation.
	SignUp(ctx context.Context, p SignUpParams) (*User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	SendPasswordReset(ctx context.Context, email, redirectTo, codeChallenge string) error
	UpdateUser(ctx context.Context, accessToken string, u UserUpdate) (*User, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
}

// NewCodeVerifier returns a PKCE verifier and its S256 challenge.
func NewCodeVerifier() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}
