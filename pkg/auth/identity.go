package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/allysonai/allyson/pkg/client"
)

// HTTPIdentity implements Identity against the web app's CLI auth endpoints.
type HTTPIdentity struct {
	api *client.Client
}

// NewHTTPIdentity creates an identity client for the web app at baseURL.
func NewHTTPIdentity(baseURL string, opts ...client.Option) *HTTPIdentity {
	return &HTTPIdentity{api: client.New(baseURL, nil, opts...)}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// SignUp implements Identity.
func (h *HTTPIdentity) SignUp(ctx context.Context, email string) error {
	err := h.api.Do(ctx, http.MethodPost, "/api/cli/auth/sign-up", map[string]string{"email": email}, nil)
	if client.IsStatus(err, http.StatusConflict) {
		return ErrIdentifierExists
	}
	return err
}

// SignIn implements Identity.
func (h *HTTPIdentity) SignIn(ctx context.Context, email string) error {
	return h.api.Do(ctx, http.MethodPost, "/api/cli/auth/sign-in", map[string]string{"email": email}, nil)
}

// VerifySignUp implements Identity.
func (h *HTTPIdentity) VerifySignUp(ctx context.Context, email, code string) (string, error) {
	return h.verify(ctx, "/api/cli/auth/sign-up/verify", email, code)
}

// VerifySignIn implements Identity.
func (h *HTTPIdentity) VerifySignIn(ctx context.Context, email, code string) (string, error) {
	return h.verify(ctx, "/api/cli/auth/sign-in/verify", email, code)
}

func (h *HTTPIdentity) verify(ctx context.Context, path, email, code string) (string, error) {
	var resp tokenResponse
	if err := h.api.Do(ctx, http.MethodPost, path, map[string]string{"email": email, "code": code}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("response missing token")
	}
	return resp.Token, nil
}
