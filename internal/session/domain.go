// Package session holds the per-browser-session authentication state: who is logged
// in, with which bearer token, and whether that is still being resolved.
package session

import (
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// User is the canonical profile of the logged-in user.
type User struct {
	ID          string
	Username    string
	Name        string
	Email       string
	Role        rbac.Role
	Permissions rbac.PermissionSet
	StoreID     string
}

// DisplayName prefers the full name over the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Permissions = u.Permissions.Clone()
	return &out
}

// Credentials is what the login form submits.
type Credentials struct {
	Username string
	Password string
}

// LoginResult reports the outcome of a login attempt.
type LoginResult struct {
	Success bool
	User    *User
	Error   string
}

// State is an immutable snapshot of a browser session's authentication.
type State struct {
	Token     string
	User      *User
	IsLoading bool
	Error     string
}

// IsAuthenticated holds only when both a token and a user are present.
func (s State) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// CurrentRole returns the user's role or "" when logged out.
func (s State) CurrentRole() rbac.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Permissions returns the user's permissions or an empty set.
func (s State) Permissions() rbac.PermissionSet {
	if s.User == nil {
		return rbac.PermissionSet{}
	}
	return s.User.Permissions
}

// Loading reports whether a restore, login or profile refresh is in flight.
func (s State) Loading() bool {
	return s.IsLoading
}

var _ rbac.Subject = State{}

// User-facing messages recorded in State.Error or shown on the login screen.
const (
	MsgInvalidCredentials = "Invalid username or password."
	MsgUnavailable        = "Unable to reach the server. Please try again."
	MsgProfileFailed      = "Your session could not be verified. Please log in again."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgLoggedOut          = "You have been logged out."
)
