package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// ErrNotAuthenticated is returned by operations that need a logged-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Backend is the slice of the REST API the store depends on.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, token string) (json.RawMessage, error)
}

// EventKind names a session lifecycle event.
type EventKind string

// Session lifecycle events.
const (
	EventRestored      EventKind = "restored"
	EventRestoreFailed EventKind = "restore_failed"
	EventLoginSuccess  EventKind = "login_success"
	EventLoginFailure  EventKind = "login_failure"
	EventProfileFailed EventKind = "profile_failed"
	EventLogout        EventKind = "logout"
	EventExpired       EventKind = "expired"
)

// Event describes a lifecycle change of one browser session.
type Event struct {
	Kind     EventKind
	Key      string
	UserID   string
	Username string
	Reason   string
}

// Config wires a Store.
type Config struct {
	// Key identifies the browser session in Storage.
	Key     string
	Backend Backend
	Storage Storage
	Logger  *slog.Logger
	// OnEvent is called outside the store lock for every lifecycle event.
	OnEvent func(Event)
	// Now is used for token expiry checks.
	Now func() time.Time
}

// Store is the single source of truth for who is logged in to one browser session.
// It starts in the loading state; Restore settles it.
type Store struct {
	key     string
	backend Backend
	storage Storage
	logger  *slog.Logger
	onEvent func(Event)
	now     func() time.Time

	mu     sync.RWMutex
	state  State
	notice string
	// pending counts in-flight operations; unrestored holds the store in the loading
	// state until the first Restore finished.
	pending    int
	unrestored bool
	// epoch increments on every logout so that in-flight logins and restores
	// started before it cannot commit afterwards.
	epoch uint64
	// persistMu orders snapshot writes and clears so that each one sees the epoch
	// it was checked against.
	persistMu sync.Mutex

	restores singleflight.Group
}

// NewStore constructs a Store in the loading state.
func NewStore(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		key:        cfg.Key,
		backend:    cfg.Backend,
		storage:    storage,
		logger:     logger,
		onEvent:    cfg.OnEvent,
		now:        now,
		state:      State{IsLoading: true},
		unrestored: true,
	}
}

// Key returns the browser session identifier.
func (s *Store) Key() string { return s.key }

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.User = st.User.clone()
	return st
}

// IsAuthenticated reports whether both token and user are present.
func (s *Store) IsAuthenticated() bool {
	return rbac.IsAuthenticated(s.State())
}

// HasRole reports whether the user's role is one of roles.
func (s *Store) HasRole(roles ...rbac.Role) bool {
	return rbac.RoleAllowed(s.State(), roles...)
}

// HasPermission reports whether the user holds every given permission.
func (s *Store) HasPermission(perms ...rbac.Permission) bool {
	return rbac.PermissionAllowed(s.State(), perms...)
}

// Token returns the current bearer token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// TakeNotice returns and clears the reason of the last logout.
func (s *Store) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notice := s.notice
	s.notice = ""
	return notice
}

// Restore settles the store from the persisted snapshot. Concurrent calls share one
// restore; calling it again after it finished yields the same state.
func (s *Store) Restore(ctx context.Context) State {
	_, _, _ = s.restores.Do("restore", func() (any, error) {
		s.restore(ctx)
		return nil, nil
	})
	return s.State()
}

func (s *Store) restore(ctx context.Context) {
	epoch := s.begin(false)
	defer func() {
		s.mu.Lock()
		s.unrestored = false
		s.mu.Unlock()
		s.finish()
	}()

	snap, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			s.logger.Warn("load session snapshot", slog.String("session", s.key), slog.Any("error", err))
		}
		s.settleLoggedOut(epoch, "")
		return
	}
	if snap.Token == "" {
		s.settleLoggedOut(epoch, "")
		return
	}
	if s.tokenExpired(snap.Token) {
		s.clearIfCurrent(ctx, epoch)
		s.settleLoggedOut(epoch, MsgSessionExpired)
		s.emit(Event{Kind: EventRestoreFailed, Reason: "token expired"})
		return
	}

	user, err := s.fetchProfile(ctx, snap.Token)
	if err != nil {
		s.logger.Info("restore session failed", slog.String("session", s.key), slog.Any("error", err))
		s.clearIfCurrent(ctx, epoch)
		s.settleLoggedOut(epoch, errorMessage(err))
		s.emit(Event{Kind: EventRestoreFailed, Reason: err.Error()})
		return
	}
	if !s.commit(ctx, epoch, snap.Token, user) {
		return
	}
	s.emit(Event{Kind: EventRestored, UserID: user.ID, Username: user.Username})
}

// Login exchanges credentials for a token, then loads the profile with that token.
// The session only becomes authenticated, and the snapshot is only written, once
// both succeeded.
func (s *Store) Login(ctx context.Context, creds Credentials) LoginResult {
	epoch := s.begin(true)
	defer s.finish()

	token, err := s.backend.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		msg := errorMessage(err)
		s.clearIfCurrent(ctx, epoch)
		s.settleLoggedOut(epoch, msg)
		s.emit(Event{Kind: EventLoginFailure, Username: creds.Username, Reason: err.Error()})
		return LoginResult{Error: msg}
	}
	user, err := s.fetchProfile(ctx, token)
	if err != nil {
		msg := MsgProfileFailed
		if errors.Is(err, apiclient.ErrUnavailable) {
			msg = MsgUnavailable
		}
		s.clearIfCurrent(ctx, epoch)
		s.settleLoggedOut(epoch, msg)
		s.emit(Event{Kind: EventLoginFailure, Username: creds.Username, Reason: err.Error()})
		return LoginResult{Error: msg}
	}
	if !s.commit(ctx, epoch, token, user) {
		return LoginResult{Error: MsgLoginFailed}
	}
	s.emit(Event{Kind: EventLoginSuccess, UserID: user.ID, Username: user.Username})
	return LoginResult{Success: true, User: user.clone()}
}

// RefreshProfile reloads the user for the current token, replacing only the user.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	token := s.state.Token
	if token == "" {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.pending++
	s.state.IsLoading = true
	epoch := s.epoch
	s.mu.Unlock()
	defer s.finish()

	user, err := s.fetchProfile(ctx, token)
	if err != nil {
		s.mu.Lock()
		if s.epoch != epoch || s.state.Token != token {
			s.mu.Unlock()
			return err
		}
		user, epoch := s.drop(MsgProfileFailed, MsgProfileFailed)
		s.mu.Unlock()
		s.ended(ctx, EventLogout, MsgProfileFailed, user, epoch)
		s.emit(Event{Kind: EventProfileFailed, Reason: err.Error()})
		return err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.Lock()
	if s.epoch != epoch || s.state.Token != token {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.state.User = user
	s.state.Error = ""
	s.mu.Unlock()

	if err := s.storage.Save(ctx, s.key, Snapshot{Token: token, User: user}); err != nil {
		s.logger.Warn("persist refreshed profile", slog.String("session", s.key), slog.Any("error", err))
	}
	return nil
}

// Logout clears the session and its persisted snapshot. reason is shown on the login
// screen.
func (s *Store) Logout(ctx context.Context, reason string) {
	s.mu.Lock()
	user, epoch := s.drop(reason, "")
	s.mu.Unlock()
	s.ended(ctx, EventLogout, reason, user, epoch)
}

// drop forgets the identity and starts a new epoch. errMsg stays on the state for
// the shell to show. It must be called with mu held.
func (s *Store) drop(reason, errMsg string) (*User, uint64) {
	user := s.state.User
	s.epoch++
	s.state = State{IsLoading: s.loading(), Error: errMsg}
	s.notice = reason
	return user, s.epoch
}

// ended clears the snapshot unless a newer login already owns it and reports kind.
func (s *Store) ended(ctx context.Context, kind EventKind, reason string, user *User, epoch uint64) {
	s.clearIfCurrent(ctx, epoch)
	ev := Event{Kind: kind, Reason: reason}
	if user != nil {
		ev.UserID, ev.Username = user.ID, user.Username
	}
	s.emit(ev)
}

// Expire logs out because the backend rejected token. It does nothing unless token
// is still the current one, so parallel failures log out once.
func (s *Store) Expire(ctx context.Context, token string) bool {
	s.mu.Lock()
	if token == "" || s.state.Token != token {
		s.mu.Unlock()
		return false
	}
	user, epoch := s.drop(MsgSessionExpired, "")
	s.mu.Unlock()
	s.ended(ctx, EventExpired, MsgSessionExpired, user, epoch)
	return true
}

var _ apiclient.Authenticator = (*Store)(nil)

// begin marks the store loading. Logins drop any previous identity up front.
func (s *Store) begin(reset bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reset {
		s.epoch++
		s.state = State{}
	}
	s.pending++
	s.state.IsLoading = true
	s.state.Error = ""
	return s.epoch
}

func (s *Store) finish() {
	s.mu.Lock()
	s.pending--
	s.state.IsLoading = s.loading()
	s.mu.Unlock()
}

// loading must be called with mu held.
func (s *Store) loading() bool {
	return s.pending > 0 || s.unrestored
}

func (s *Store) settleLoggedOut(epoch uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.state = State{IsLoading: s.loading(), Error: msg}
}

func (s *Store) commit(ctx context.Context, epoch uint64, token string, user *User) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.state = State{Token: token, User: user, IsLoading: s.loading()}
	s.mu.Unlock()

	if err := s.storage.Save(ctx, s.key, Snapshot{Token: token, User: user}); err != nil {
		s.logger.Warn("persist session", slog.String("session", s.key), slog.Any("error", err))
	}
	return true
}

func (s *Store) fetchProfile(ctx context.Context, token string) (*User, error) {
	raw, err := s.backend.Profile(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := NormalizeProfile(raw)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// clearIfCurrent clears the snapshot unless the epoch moved on, which means a newer
// login or logout owns the slot.
func (s *Store) clearIfCurrent(ctx context.Context, epoch uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.RLock()
	current := s.epoch == epoch
	s.mu.RUnlock()
	if !current {
		return
	}
	if err := s.storage.Clear(ctx, s.key); err != nil {
		s.logger.Warn("clear session snapshot", slog.String("session", s.key), slog.Any("error", err))
	}
}

func (s *Store) emit(ev Event) {
	if s.onEvent == nil {
		return
	}
	ev.Key = s.key
	s.onEvent(ev)
}

// tokenExpired inspects the exp claim of JWT shaped tokens. Opaque tokens are never
// considered expired here; the backend decides.
func (s *Store) tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

// errorMessage maps lower-level failures to user-facing text.
func errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apiclient.ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, apiclient.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return MsgUnavailable
	case errors.Is(err, apiclient.ErrUnauthorized):
		return MsgSessionExpired
	case errors.Is(err, ErrMalformedProfile), errors.Is(err, apiclient.ErrMalformedResponse):
		return MsgProfileFailed
	default:
		return MsgLoginFailed
	}
}
