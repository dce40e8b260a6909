// Package session implements the authentication lifecycle: first-factor
// login, OTP verification and logout, with every transition persisted to the
// client-state store before the in-memory state advances.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/ratelimit"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

var (
	// ErrInvalidCredentials is the sanitized failure returned for any
	// rejected login. The upstream's own error text is never echoed.
	ErrInvalidCredentials = errors.New("invalid email/phone or password")

	// ErrInvalidOTPFormat rejects codes that are not exactly 4 digits,
	// before any network call
	ErrInvalidOTPFormat = errors.New("code must be exactly 4 digits")

	// ErrIncorrectOTP means the upstream reported the code does not exist
	ErrIncorrectOTP = errors.New("incorrect code")

	// ErrVerificationFailed covers any other upstream verification outcome
	ErrVerificationFailed = errors.New("verification failed, try again")

	// ErrRoleNotAllowed rejects valid OTPs for roles outside the allow-list
	ErrRoleNotAllowed = errors.New("this account is not permitted to use the dashboard")

	// ErrNoPendingLogin means VerifyOTP was called with no login in flight
	ErrNoPendingLogin = errors.New("no login awaiting verification")

	// ErrTransitionInFlight means another auth transition has not finished.
	// Transitions for a session are serialized; callers should disable the
	// triggering control until the outstanding call resolves.
	ErrTransitionInFlight = errors.New("another authentication step is in progress")
)

// LockoutError reports an active rate-limit lockout with its remaining wait
type LockoutError struct {
	WaitMinutes int
}

func (e *LockoutError) Error() string {
	return "too many failed attempts, try again in " + strconv.Itoa(e.WaitMinutes) + " minutes"
}

var otpPattern = regexp.MustCompile(`^\d{4}$`)

// Upstream is the slice of the operations API the session manager needs
type Upstream interface {
	Login(ctx context.Context, req api.LoginRequest) (string, error)
	SendEmailOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, identifier, code string) (api.OTPValidation, error)
	FetchProfile(ctx context.Context) (*models.UserProfile, error)
	SetToken(token string)
	ClearToken()
}

// State names the session's position in the auth lifecycle
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePendingOTP      State = "pending_2fa"
	StateAuthenticated   State = "authenticated"
)

// Manager drives the session state machine
type Manager struct {
	store    storage.Store
	upstream Upstream
	limiter  *ratelimit.Limiter

	mu         chan struct{} // acquired for the full span of a transition, network call included
	stateMu    sync.RWMutex  // guards session and identifier against concurrent readers
	session    models.Session
	identifier string // pending login identifier, consumed by VerifyOTP
}

// NewManager creates a manager and hydrates any persisted session state
func NewManager(store storage.Store, upstream Upstream, limiter *ratelimit.Limiter) *Manager {
	m := &Manager{
		store:    store,
		upstream: upstream,
		limiter:  limiter,
		mu:       make(chan struct{}, 1),
	}
	m.hydrate()
	return m
}

// acquire serializes auth transitions without blocking: a second transition
// started while one is outstanding fails fast instead of interleaving writes.
func (m *Manager) acquire() error {
	select {
	case m.mu <- struct{}{}:
		return nil
	default:
		return ErrTransitionInFlight
	}
}

func (m *Manager) release() {
	<-m.mu
}

// hydrate restores persisted session state from the store. Corrupt values
// are discarded rather than crashing startup.
func (m *Manager) hydrate() {
	if raw, ok, err := m.store.Get(storage.KeyAuthToken); err == nil && ok {
		m.session.AuthToken = string(raw)
		m.upstream.SetToken(m.session.AuthToken)
	}
	if raw, ok, err := m.store.Get(storage.KeyTwoFactor); err == nil && ok {
		m.session.TwoFactorVerified = string(raw) == "true"
	}
	if raw, ok, err := m.store.Get(storage.KeyUserProfile); err == nil && ok {
		var profile models.UserProfile
		if json.Unmarshal(raw, &profile) == nil {
			m.session.Profile = &profile
		}
	}
	if raw, ok, err := m.store.Get(storage.KeyLoginPhoneNumber); err == nil && ok {
		m.session.Channel = models.ChannelPhone
		m.identifier = string(raw)
	}
}

// State reports the current lifecycle state
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	switch {
	case m.session.IsAuthenticated():
		return StateAuthenticated
	case m.session.IsPendingSecondFactor():
		return StatePendingOTP
	default:
		return StateUnauthenticated
	}
}

// IsAuthenticated reports whether the session is fully authenticated
func (m *Manager) IsAuthenticated() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.session.IsAuthenticated()
}

// Profile returns the authenticated profile, or nil
func (m *Manager) Profile() *models.UserProfile {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.session.Profile
}

// Login performs the first authentication factor. On success the session
// moves to pending-2FA and, on the email channel, an OTP dispatch is
// requested; on the phone channel the upstream issues the code itself.
func (m *Manager) Login(ctx context.Context, identifier, secret string, channel models.LoginChannel) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	if st := m.limiter.IsLimited(identifier); st.Limited {
		return &LockoutError{WaitMinutes: st.WaitMinutes}
	}

	token, err := m.upstream.Login(ctx, api.LoginRequest{
		Identifier: identifier,
		Secret:     secret,
		Channel:    channel,
	})
	if err != nil {
		attempts := m.limiter.RecordFailure(identifier)
		if attempts >= ratelimit.MaxAttempts {
			if st := m.limiter.IsLimited(identifier); st.Limited {
				return &LockoutError{WaitMinutes: st.WaitMinutes}
			}
		}
		return ErrInvalidCredentials
	}

	m.limiter.Reset(identifier)

	// Persist the new token and drop any leftover second-factor state
	// before the in-memory session advances.
	if err := m.store.Set(storage.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	_ = m.store.Delete(storage.KeyTwoFactor)
	_ = m.store.Delete(storage.KeyUserProfile)
	if channel == models.ChannelPhone {
		_ = m.store.Set(storage.KeyLoginPhoneNumber, []byte(identifier))
	} else {
		_ = m.store.Delete(storage.KeyLoginPhoneNumber)
	}

	m.stateMu.Lock()
	m.session = models.Session{AuthToken: token, Channel: channel}
	m.identifier = identifier
	m.stateMu.Unlock()
	m.upstream.SetToken(token)

	if channel == models.ChannelEmail {
		if err := m.upstream.SendEmailOTP(ctx, identifier); err != nil {
			return fmt.Errorf("failed to send verification code: %w", err)
		}
	}
	return nil
}

// VerifyOTP performs the second authentication factor. A malformed code is
// rejected without a network call; an unknown role fails verification even
// with a valid code; a profile-fetch failure after a valid code is fatal and
// forces a full logout.
func (m *Manager) VerifyOTP(ctx context.Context, code string) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	if !m.session.IsPendingSecondFactor() {
		return ErrNoPendingLogin
	}
	if !otpPattern.MatchString(code) {
		return ErrInvalidOTPFormat
	}

	validation, err := m.upstream.VerifyOTP(ctx, m.identifier, code)
	if err != nil {
		return ErrVerificationFailed
	}
	switch validation {
	case api.OTPFound:
		// fall through to profile fetch
	case api.OTPNotExist:
		return ErrIncorrectOTP
	default:
		return ErrVerificationFailed
	}

	profile, err := m.upstream.FetchProfile(ctx)
	if err != nil {
		m.clearSession()
		return fmt.Errorf("session could not be established: %w", err)
	}

	if !models.RoleAllowed(profile.Role) {
		m.clearSession()
		return ErrRoleNotAllowed
	}
	bt, err := models.DeriveBusinessType(profile.Role)
	if err != nil {
		m.clearSession()
		return ErrRoleNotAllowed
	}
	profile.BusinessType = bt

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := m.store.Set(storage.KeyUserProfile, raw); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	if err := m.store.Set(storage.KeyTwoFactor, []byte("true")); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.stateMu.Lock()
	m.session.Profile = profile
	m.session.TwoFactorVerified = true
	m.stateMu.Unlock()
	return nil
}

// RefreshProfile re-fetches the authenticated profile. A failure is fatal to
// the session: it forces a full logout rather than leaving a half
// authenticated state.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	if !m.session.IsAuthenticated() {
		return ErrNoPendingLogin
	}
	profile, err := m.upstream.FetchProfile(ctx)
	if err != nil {
		m.clearSession()
		return fmt.Errorf("session expired: %w", err)
	}
	bt, err := models.DeriveBusinessType(profile.Role)
	if err != nil {
		m.clearSession()
		return ErrRoleNotAllowed
	}
	profile.BusinessType = bt
	if raw, err := json.Marshal(profile); err == nil {
		_ = m.store.Set(storage.KeyUserProfile, raw)
	}
	m.stateMu.Lock()
	m.session.Profile = profile
	m.stateMu.Unlock()
	return nil
}

// Logout clears all session-derived persisted state. It fails fast while
// another transition is mid-flight so a caller never reports a logout that
// did not happen.
func (m *Manager) Logout() error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()
	m.clearSession()
	return nil
}

func (m *Manager) clearSession() {
	_ = m.store.Delete(storage.KeyAuthToken)
	_ = m.store.Delete(storage.KeyTwoFactor)
	_ = m.store.Delete(storage.KeyUserProfile)
	_ = m.store.Delete(storage.KeyLoginPhoneNumber)
	_ = m.store.Delete(storage.KeySelectedBranch)
	m.stateMu.Lock()
	m.session = models.Session{}
	m.identifier = ""
	m.stateMu.Unlock()
	m.upstream.ClearToken()
}
