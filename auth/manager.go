package auth

import (
	"context"
	"fmt"

	"github.com/lemussistemas/salsa-hn-frontend/api"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/lemussistemas/salsa-hn-frontend/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// State is the externally observable session state.
type State string

const (
	LoggedOut State = "logged_out"
	LoggedIn  State = "logged_in"
)

const refreshKey = "refresh"

// Manager owns the authentication lifecycle and is the only writer of the
// token store.
type Manager struct {
	client  *api.Client
	store   token.Store
	logger  zerolog.Logger
	refresh singleflight.Group
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager validates its required dependencies. The client must read its
// access token from the same store.
func NewManager(client *api.Client, store token.Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] api client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}
	m := &Manager{
		client: client,
		store:  store,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Register checks the registration locally, creates the account and
// persists the returned token pair.
func (m *Manager) Register(ctx context.Context, r users.Registration) (*users.User, error) {
	if err := users.ValidateRegistration(r); err != nil {
		return nil, err
	}

	var resp registerResponse
	if err := m.client.Post(ctx, api.RouteAuthRegister, r, &resp, api.WithoutAuth()); err != nil {
		return nil, errors.Wrap(api.AsValidationError(err), "[Manager.Register]")
	}
	if resp.Tokens.Access == "" || resp.Tokens.Refresh == "" {
		return nil, errors.New("[Manager.Register] response has no token pair")
	}
	if err := m.store.SetTokens(resp.Tokens.Access, resp.Tokens.Refresh); err != nil {
		return nil, errors.Wrap(err, "[Manager.Register] store tokens")
	}
	m.logger.Info().Str("username", resp.User.Username).Msg("registered")
	return &resp.User, nil
}

// Login exchanges credentials for a token pair.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	err := m.client.Post(ctx, api.RouteAuthLogin, loginRequest{Username: username, Password: password}, &pair, api.WithoutAuth())
	if err != nil {
		if ierrors.Is(err, ierrors.ErrValidation) && len(api.FieldErrors(err)) > 0 {
			return errors.Wrap(api.AsValidationError(err), "[Manager.Login]")
		}
		if ierrors.Is(err, ierrors.ErrUnauthenticated) || ierrors.Is(err, ierrors.ErrValidation) {
			return fmt.Errorf("[Manager.Login] %w: %w", ierrors.ErrInvalidCredentials, err)
		}
		return errors.Wrap(err, "[Manager.Login]")
	}
	if pair.Access == "" || pair.Refresh == "" {
		return errors.New("[Manager.Login] response has no token pair")
	}
	if err := m.store.SetTokens(pair.Access, pair.Refresh); err != nil {
		return errors.Wrap(err, "[Manager.Login] store tokens")
	}
	m.logger.Info().Str("username", username).Msg("logged in")
	return nil
}

// Logout tells the backend (best effort) and always clears the tokens.
// Only a failure to clear the store is returned.
func (m *Manager) Logout(ctx context.Context) error {
	refresh, err := m.store.RefreshToken()
	if err != nil {
		m.logger.Warn().Err(err).Msg("logout: could not read refresh token")
	}
	if refresh != "" {
		if err := m.client.Post(ctx, api.RouteAuthLogout, logoutRequest{RefreshToken: refresh}, nil); err != nil {
			m.logger.Warn().Err(err).Msg("logout: backend call failed, clearing tokens anyway")
		}
	}
	if err := m.store.Clear(); err != nil {
		return errors.Wrap(err, "[Manager.Logout] clear tokens")
	}
	m.logger.Info().Msg("logged out")
	return nil
}

// Refresh replaces the token pair using the held refresh token. Concurrent
// calls share one in-flight backend request, which runs detached from the
// caller's cancellation so one caller giving up does not fail the others.
// Callers must treat ErrSessionExpired as "login required" and not retry.
func (m *Manager) Refresh(ctx context.Context) error {
	shared := context.WithoutCancel(ctx)
	_, err, joined := m.refresh.Do(refreshKey, func() (any, error) {
		return nil, m.doRefresh(shared)
	})
	if joined {
		m.logger.Debug().Msg("refresh: joined in-flight request")
	}
	return err
}

func (m *Manager) doRefresh(ctx context.Context) error {
	refresh, err := m.store.RefreshToken()
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh] read refresh token")
	}
	if refresh == "" {
		return errors.Wrap(ierrors.ErrSessionExpired, "[Manager.Refresh] no refresh token")
	}

	var pair tokenPair
	err = m.client.Post(ctx, api.RouteAuthRefresh, refreshRequest{Refresh: refresh}, &pair, api.WithoutAuth())
	if ierrors.Is(err, ierrors.ErrNetwork) {
		return errors.Wrap(err, "[Manager.Refresh]")
	}
	if err != nil || pair.Access == "" {
		m.clearAfterFailure("refresh rejected")
		if err == nil {
			err = errors.New("response has no access token")
		}
		return fmt.Errorf("[Manager.Refresh] %w: %w", ierrors.ErrSessionExpired, err)
	}

	// Non-rotating backends omit the refresh token; keep the one we have.
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	if err := m.store.SetTokens(pair.Access, pair.Refresh); err != nil {
		return errors.Wrap(err, "[Manager.Refresh] store tokens")
	}
	m.logger.Debug().Msg("tokens refreshed")
	return nil
}

// CurrentUser fetches the profile of the held access token. A 401 ends the
// session.
func (m *Manager) CurrentUser(ctx context.Context) (*users.User, error) {
	access, err := m.store.AccessToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.CurrentUser] read access token")
	}
	if access == "" {
		return nil, errors.Wrap(ierrors.ErrUnauthenticated, "[Manager.CurrentUser] no access token")
	}

	var user users.User
	if err := m.client.Get(ctx, api.RouteAuthMe, &user); err != nil {
		if ierrors.Is(err, ierrors.ErrUnauthenticated) {
			m.clearAfterFailure("current user rejected")
		}
		return nil, errors.Wrap(err, "[Manager.CurrentUser]")
	}
	return &user, nil
}

func (m *Manager) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.User, error) {
	if err := users.ValidateProfileUpdate(update); err != nil {
		return nil, err
	}
	var resp profileResponse
	if err := m.client.Patch(ctx, api.RouteAuthMeUpdate, update, &resp); err != nil {
		return nil, errors.Wrap(api.AsValidationError(err), "[Manager.UpdateProfile]")
	}
	return &resp.User, nil
}

func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	change := users.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword}
	if err := users.ValidatePasswordChange(change); err != nil {
		return err
	}
	body := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword, NewPassword2: newPassword}
	if err := m.client.Post(ctx, api.RouteAuthChangePassword, body, nil); err != nil {
		return errors.Wrap(api.AsValidationError(err), "[Manager.ChangePassword]")
	}
	return nil
}

// State reports LoggedIn while an access token is held.
func (m *Manager) State() State {
	access, err := m.store.AccessToken()
	if err != nil || access == "" {
		return LoggedOut
	}
	return LoggedIn
}

// WithRefreshRetry runs op and, when it fails as unauthenticated, refreshes
// once and runs it one more time. A failed refresh is returned as is
// (ErrSessionExpired means the user must log in again).
func (m *Manager) WithRefreshRetry(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !ierrors.Is(err, ierrors.ErrUnauthenticated) {
		return err
	}
	m.logger.Debug().Err(err).Msg("unauthenticated, refreshing once")
	if rerr := m.Refresh(ctx); rerr != nil {
		return rerr
	}
	return op(ctx)
}

func (m *Manager) clearAfterFailure(reason string) {
	if err := m.store.Clear(); err != nil {
		m.logger.Error().Err(err).Str("reason", reason).Msg("could not clear tokens")
		return
	}
	m.logger.Info().Str("reason", reason).Msg("session ended")
}
