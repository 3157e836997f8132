package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GoTrueProvider talks to a hosted GoTrue (Supabase Auth) instance over its
// REST API. The members table shares its user ids.
type GoTrueProvider struct {
	baseURL string
	anonKey string
	client  *http.Client
	now     func() time.Time
}

func NewGoTrueProvider(baseURL, anonKey string, timeout time.Duration) (*GoTrueProvider, error) {
	if baseURL == "" || anonKey == "" {
		return nil, ErrNotConfigured
	}
	return &GoTrueProvider{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}, nil
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	} `json:"user_metadata"`
}

func (u gotrueUser) toUser() *User {
	return &User{ID: u.ID, Email: u.Email, FullName: u.UserMetadata.FullName, Phone: u.UserMetadata.Phone}
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	User         gotrueUser `json:"user"`
}

func (s gotrueSession) toSession() *Session {
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		User:         *s.User.toUser(),
	}
}

// apiError is returned for any non-2xx answer.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s", e.Status, e.Message)
}

func (p *GoTrueProvider) SignUp(ctx context.Context, params SignUpParams) (*User, *Session, error) {
	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data": map[string]string{
			"full_name": params.FullName,
			"phone":     params.Phone,
		},
	}

	path := "/auth/v1/signup"
	if params.RedirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(params.RedirectTo)
	}

	// The response is a session when autoconfirm is on, otherwise a bare user.
	var raw struct {
		gotrueSession
		gotrueUser
	}
	if err := p.do(ctx, http.MethodPost, path, "", body, &raw); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnprocessableEntity || apiErr.Status == http.StatusBadRequest) {
			return nil, nil, fmt.Errorf("%w: %s", ErrEmailTaken, apiErr.Message)
		}
		return nil, nil, err
	}

	if raw.AccessToken != "" {
		sess := raw.gotrueSession.toSession()
		return &sess.User, sess, nil
	}
	return raw.gotrueUser.toUser(), nil, nil
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.token(ctx, "password", map[string]string{"email": email, "password": password}, ErrInvalidCredentials)
}

func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if tokenExpired(accessToken, p.now()) {
		return nil, ErrInvalidSession
	}

	var u gotrueUser
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return nil, mapSessionErr(err)
	}
	return u.toUser(), nil
}

func (p *GoTrueProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	return p.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken}, ErrInvalidSession)
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (p *GoTrueProvider) SendPasswordReset(ctx context.Context, email, redirectTo, codeChallenge string) error {
	body := map[string]string{"email": email}
	if codeChallenge != "" {
		body["code_challenge"] = codeChallenge
		body["code_challenge_method"] = "s256"
	}

	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return p.do(ctx, http.MethodPost, path, "", body, nil)
}

func (p *GoTrueProvider) UpdateUser(ctx context.Context, accessToken string, u UserUpdate) (*User, error) {
	body := map[string]any{}
	if u.Password != nil {
		body["password"] = *u.Password
	}
	data := map[string]string{}
	if u.FullName != nil {
		data["full_name"] = *u.FullName
	}
	if u.Phone != nil {
		data["phone"] = *u.Phone
	}
	if len(data) > 0 {
		body["data"] = data
	}

	var out gotrueUser
	if err := p.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, body, &out); err != nil {
		return nil, mapSessionErr(err)
	}
	return out.toUser(), nil
}

func (p *GoTrueProvider) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	return p.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier}, ErrInvalidCode)
}

func (p *GoTrueProvider) token(ctx context.Context, grant string, body any, rejected error) (*Session, error) {
	var s gotrueSession
	err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grant, "", body, &s)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return nil, rejected
		}
		return nil, err
	}
	return s.toSession(), nil
}

func mapSessionErr(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return ErrInvalidSession
	}
	return err
}

func (p *GoTrueProvider) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", p.anonKey)
	if bearer == "" {
		bearer = p.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Message: errorMessage(payload)}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func errorMessage(payload []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	_ = json.Unmarshal(payload, &e)
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return string(payload)
}
