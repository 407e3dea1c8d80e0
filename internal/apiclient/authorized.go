package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

// Authenticator supplies the bearer token for a browser session and is told when the
// backend rejects it.
type Authenticator interface {
	Token() string
	// Expire logs the session out if token is still current and reports whether it did.
	Expire(ctx context.Context, token string) bool
}

// AuthorizedClient attaches the session's bearer token to every call.
type AuthorizedClient struct {
	client *Client
	auth   Authenticator
}

// As binds the client to a session.
func (c *Client) As(auth Authenticator) *AuthorizedClient {
	return &AuthorizedClient{client: c, auth: auth}
}

// call carries per-request interceptor state. A request whose token was replaced
// by a concurrent login while it was in flight is resent once with the new token.
type call struct {
	retried bool
}

// Get decodes the JSON response of GET path?query into out.
func (a *AuthorizedClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return a.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (a *AuthorizedClient) Post(ctx context.Context, path string, body, out any) error {
	return a.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (a *AuthorizedClient) Put(ctx context.Context, path string, body, out any) error {
	return a.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (a *AuthorizedClient) Delete(ctx context.Context, path string) error {
	return a.do(ctx, http.MethodDelete, path, nil, nil)
}

func (a *AuthorizedClient) do(ctx context.Context, method, path string, body, out any) error {
	token := a.auth.Token()
	if token == "" {
		return ErrSessionExpired
	}
	c := &call{}
	for {
		_, err := a.client.send(ctx, method, path, token, body, out)
		if !errors.Is(err, ErrUnauthorized) {
			return err
		}
		next, retry := a.unauthorized(ctx, c, token, method, path)
		if !retry {
			return ErrSessionExpired
		}
		token = next
	}
}

// unauthorized handles a 401 for token. It returns the token to retry with when the
// session moved on to a fresh one; otherwise it expires token.
func (a *AuthorizedClient) unauthorized(ctx context.Context, c *call, token, method, path string) (string, bool) {
	if current := a.auth.Token(); !c.retried && current != "" && current != token {
		c.retried = true
		return current, true
	}
	if a.auth.Expire(ctx, token) {
		a.client.logger.Info("backend rejected session token", slog.String("method", method), slog.String("path", path))
	}
	return "", false
}
