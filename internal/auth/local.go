package auth

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ResetSender delivers a password reset link to the given address.
type ResetSender func(ctx context.Context, email, link string) error

type credential struct {
	UserID       string `db:"user_id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	Phone        string `db:"phone"`
}

func (c credential) user() *User {
	return &User{ID: c.UserID, Email: c.Email, FullName: c.FullName, Phone: c.Phone}
}

// LocalProvider keeps credentials in the credentials table and issues HS256
// session tokens signed with the configured secret.
type LocalProvider struct {
	db        *sqlx.DB
	secret    string
	sendReset ResetSender
}

func NewLocalProvider(db *sqlx.DB, secret string, sendReset ResetSender) (*LocalProvider, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}
	return &LocalProvider{db: db, secret: secret, sendReset: sendReset}, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, params SignUpParams) (*User, *Session, error) {
	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, nil, err
	}

	query := `
		INSERT INTO credentials (user_id, email, password_hash, full_name, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, email, password_hash, full_name, phone
	`

	var c credential
	err = p.db.GetContext(ctx, &c, query,
		uuid.NewString(), strings.ToLower(params.Email), hash, params.FullName, params.Phone)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	sess, err := p.session(c.user())
	if err != nil {
		return nil, nil, err
	}
	return c.user(), sess, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	c, err := p.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(c.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return p.session(c.user())
}

func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := ValidateTokenOfType(accessToken, p.secret, TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidSession
	}

	c, err := p.findByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return c.user(), nil
}

func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := ValidateTokenOfType(refreshToken, p.secret, TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidSession
	}

	c, err := p.findByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return p.session(c.user())
}

// SignOut is a no-op: local tokens are stateless and the caller clears cookies.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// SendPasswordReset mails a link carrying a signed recovery code. Unknown
// addresses succeed silently so the endpoint cannot reveal which accounts exist.
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email, redirectTo, _ string) error {
	if p.sendReset == nil {
		return ErrNotConfigured
	}

	c, err := p.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	code, err := GenerateRecoveryToken(c.UserID, c.Email, CredentialStamp(p.secret, c.PasswordHash), p.secret)
	if err != nil {
		return err
	}

	return p.sendReset(ctx, c.Email, withQuery(redirectTo, "code", code))
}

func (p *LocalProvider) UpdateUser(ctx context.Context, accessToken string, u UserUpdate) (*User, error) {
	claims, err := ValidateTokenOfType(accessToken, p.secret, TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var hash *string
	if u.Password != nil {
		h, err := HashPassword(*u.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}

	query := `
		UPDATE credentials
		SET password_hash = COALESCE($2, password_hash),
		    full_name = COALESCE($3, full_name),
		    phone = COALESCE($4, phone),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, email, password_hash, full_name, phone
	`

	var c credential
	if err := p.db.GetContext(ctx, &c, query, claims.UserID, hash, u.FullName, u.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return c.user(), nil
}

// ExchangeCode trades a recovery code for a session. The verifier is not
// needed because the code itself is signed. A code is rejected once the
// password has changed since it was issued.
func (p *LocalProvider) ExchangeCode(ctx context.Context, code, _ string) (*Session, error) {
	claims, err := ValidateTokenOfType(code, p.secret, TokenTypeRecovery)
	if err != nil {
		return nil, ErrInvalidCode
	}

	c, err := p.findByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	stamp := CredentialStamp(p.secret, c.PasswordHash)
	if claims.Stamp == "" || !hmac.Equal([]byte(claims.Stamp), []byte(stamp)) {
		return nil, ErrInvalidCode
	}
	return p.session(c.user())
}

func (p *LocalProvider) session(u *User) (*Session, error) {
	access, refresh, err := GenerateTokens(u.ID, u.Email, p.secret)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		User:         *u,
	}, nil
}

func (p *LocalProvider) findByEmail(ctx context.Context, email string) (*credential, error) {
	query := `
		SELECT user_id, email, password_hash, full_name, phone
		FROM credentials
		WHERE email = $1
	`
	var c credential
	if err := p.db.GetContext(ctx, &c, query, strings.ToLower(email)); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *LocalProvider) findByID(ctx context.Context, id string) (*credential, error) {
	query := `
		SELECT user_id, email, password_hash, full_name, phone
		FROM credentials
		WHERE user_id = $1
	`
	var c credential
	if err := p.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
