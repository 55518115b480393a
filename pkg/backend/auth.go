package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"tandem/pkg/models"
)

const authPath = "/auth/v1"

type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
	ExpiresAt    int64            `json:"expires_at"`
	User         *models.AuthUser `json:"user"`
}

// SignUpResult carries the created identity. Session is nil when the backend requires
// email confirmation before the user can sign in.
type SignUpResult struct {
	User    *models.AuthUser
	Session *models.Session
}

// Confirmed reports whether the identity can be used right away.
func (r *SignUpResult) Confirmed() bool {
	return r != nil && r.Session != nil && r.Session.AccessToken != ""
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*SignUpResult, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var raw json.RawMessage
	err := c.do(ctx, request{
		op:     "auth.signup",
		method: http.MethodPost,
		path:   authPath + "/signup",
		body:   body,
	}, &raw)
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, errors.Wrap(err, "decode signup response")
	}
	if tr.AccessToken != "" {
		if tr.User == nil || tr.User.ID == "" {
			return nil, &Error{Status: http.StatusOK, Message: "Signup failed"}
		}
		s := c.toSession(tr)
		return &SignUpResult{User: s.User, Session: s}, nil
	}

	var user models.AuthUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, errors.Wrap(err, "decode signup user")
	}
	if user.ID == "" {
		return nil, &Error{Status: http.StatusOK, Message: "Signup failed"}
	}
	return &SignUpResult{User: &user}, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		op:     "auth.signin",
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &tr)
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" || tr.User == nil {
		return nil, &Error{Status: http.StatusOK, Message: "Login failed"}
	}
	return c.toSession(tr), nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}
	var tr tokenResponse
	err := c.do(ctx, request{
		op:     "auth.refresh",
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &tr)
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, ErrNoSession
	}
	return c.toSession(tr), nil
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.do(ctx, request{
		op:     "auth.signout",
		method: http.MethodPost,
		path:   authPath + "/logout",
		token:  token,
	}, nil)
}

// GetUser asks the backend who owns token. It is how a cached session is confirmed.
func (c *Client) GetUser(ctx context.Context, token string) (*models.AuthUser, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	var user models.AuthUser
	err := c.do(ctx, request{
		op:     "auth.user",
		method: http.MethodGet,
		path:   authPath + "/user",
		token:  token,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrNoSession
	}
	return &user, nil
}

func (c *Client) toSession(tr tokenResponse) *models.Session {
	s := &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	default:
		if exp, err := TokenExpiry(tr.AccessToken); err == nil {
			s.ExpiresAt = exp
		}
	}
	return s
}
