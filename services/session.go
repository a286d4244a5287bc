package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
)

// SessionState owns the token, user profile, server-reported balance,
// and the publish/subscribe channel the view layer hangs off. All
// mutation goes through the operations below; collaborators never
// touch the fields directly.
type SessionState struct {
	store     core.KeyValueStore
	ledger    *CreditLedger
	presenter core.Presenter
	log       *zap.Logger
	gateway   *Gateway

	mu        sync.Mutex
	token     string
	user      *core.User
	balance   *core.Balance
	mode      core.SessionMode
	listeners map[int]core.Listener
	nextID    int
}

func NewSessionState(store core.KeyValueStore, ledger *CreditLedger, presenter core.Presenter, log *zap.Logger) *SessionState {
	if presenter == nil {
		presenter = core.NopPresenter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionState{
		store:     store,
		ledger:    ledger,
		presenter: presenter,
		log:       log,
		mode:      core.ModeAnonymous,
		listeners: make(map[int]core.Listener),
	}
}

// AttachGateway wires the gateway used for network calls. Called once
// during assembly.
func (s *SessionState) AttachGateway(g *Gateway) {
	s.gateway = g
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *SessionState) Subscribe(fn core.Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Notify fans the current snapshot out to every listener. A panicking
// listener is logged and skipped so one misbehaving observer cannot
// break the others.
func (s *SessionState) Notify() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	listeners := make([]core.Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("session: listener panicked", zap.Any("panic", r))
				}
			}()
			fn(snapshot)
		}()
	}
}

func (s *SessionState) snapshotLocked() core.Snapshot {
	snap := core.Snapshot{
		Authenticated: s.token != "",
		Mode:          s.mode,
		User:          s.user,
		Balance:       s.balance,
	}
	// Guest credits are only meaningful while anonymous; reading the
	// ledger during an authenticated session would re-seed it.
	if s.token == "" {
		snap.GuestCredits = s.ledger.Read(context.Background())
	}
	return snap
}

func (s *SessionState) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionState) Mode() core.SessionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *SessionState) User() *core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *SessionState) Balance() *core.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *SessionState) IsLoggedIn() bool {
	return s.Token() != ""
}

func (s *SessionState) IsPremium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil && s.user.IsPremium {
		return true
	}
	return s.balance != nil && s.balance.IsPremium
}

func (s *SessionState) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.IsAdmin
}

// Login authenticates with email and password. On success the token is
// persisted, the balance refreshed, and the guest ledger cleared. On
// failure the classified message is pushed to the login surface and the
// error returned.
func (s *SessionState) Login(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.presenter.ShowAuthError("Please enter email and password.")
		return core.ErrEmailRequired
	}
	if password == "" {
		s.presenter.ShowAuthError("Please enter email and password.")
		return core.ErrPasswordRequired
	}

	s.setMode(core.ModeAuthenticating)
	result, err := s.gateway.SignIn(ctx, email, password)
	if err != nil {
		s.setMode(core.ModeAnonymous)
		s.presenter.ShowAuthError(ResolveAuthMessage(err, "login"))
		return err
	}

	s.mu.Lock()
	s.token = result.Token
	s.user = result.User
	s.mode = core.ModeAuthenticated
	if err := s.store.Set(ctx, tokenStorageKey, result.Token); err != nil {
		s.log.Warn("session: could not persist token", zap.Error(err))
	}
	s.mu.Unlock()

	s.FetchBalance(ctx, true)
	s.ledger.Clear(ctx)
	s.log.Info("session: logged in", zap.String("email", email))
	return nil
}

// Register creates an account and, on success, chains into Login with
// the same credentials.
func (s *SessionState) Register(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.presenter.ShowAuthError("Please enter email and password.")
		return core.ErrEmailRequired
	}
	if len(password) < 8 {
		s.presenter.ShowAuthError("Password must be at least 8 characters.")
		return core.ErrPasswordTooShort
	}

	if err := s.gateway.RegisterAccount(ctx, email, password); err != nil {
		s.presenter.ShowAuthError(ResolveAuthMessage(err, "register"))
		return err
	}
	return s.Login(ctx, email, password)
}

// FetchProfile loads the user profile. Best-effort: failures are
// swallowed and leave the session untouched.
func (s *SessionState) FetchProfile(ctx context.Context) *core.User {
	if !s.IsLoggedIn() {
		return nil
	}
	user, err := s.gateway.Profile(ctx)
	if err != nil {
		s.log.Debug("session: profile fetch failed", zap.Error(err))
		return nil
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.Notify()
	return user
}

// FetchBalance loads the server-reported balance and mirrors the
// premium flag onto the cached user. Best-effort like FetchProfile.
func (s *SessionState) FetchBalance(ctx context.Context, notify bool) *core.Balance {
	if !s.IsLoggedIn() {
		return nil
	}
	balance, err := s.gateway.Balance(ctx)
	if err != nil {
		s.log.Debug("session: balance fetch failed", zap.Error(err))
		return nil
	}
	s.mu.Lock()
	s.balance = balance
	if s.user != nil {
		s.user.IsPremium = balance.IsPremium
	}
	s.mu.Unlock()
	if notify {
		s.Notify()
	}
	return balance
}

// Bootstrap runs once at startup. Without a token it seeds the guest
// ledger and notifies; with one it restores the session and refreshes
// profile then balance, in that order.
func (s *SessionState) Bootstrap(ctx context.Context) {
	token, err := s.store.Get(ctx, tokenStorageKey)
	if err != nil || token == "" {
		s.ledger.Read(ctx)
		s.Notify()
		return
	}

	s.mu.Lock()
	s.token = token
	s.mode = core.ModeAuthenticated
	s.mu.Unlock()

	s.FetchProfile(ctx)
	s.FetchBalance(ctx, true)
}

// Logout drops the session and restores the default guest ledger. A
// non-empty reason additionally opens the login surface with it.
func (s *SessionState) Logout(ctx context.Context, reason string) {
	s.clearLocked(ctx)
	s.ledger.Reset(ctx)
	if reason != "" {
		s.presenter.OpenLogin(reason)
	}
	s.log.Info("session: logged out")
}

// expire is the centralized reaction to a 401 received while a token
// was set. The token check under the lock makes the logout fire exactly
// once even when several concurrent calls all come back 401.
func (s *SessionState) expire(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.dropSession(ctx)
	s.mu.Unlock()

	s.ledger.Reset(ctx)
	s.presenter.OpenLogin(reason)
	s.log.Info("session: expired")
}

func (s *SessionState) clearLocked(ctx context.Context) {
	s.mu.Lock()
	s.dropSession(ctx)
	s.mu.Unlock()
}

// dropSession must be called with the mutex held.
func (s *SessionState) dropSession(ctx context.Context) {
	s.token = ""
	s.user = nil
	s.balance = nil
	s.mode = core.ModeAnonymous
	if err := s.store.Delete(ctx, tokenStorageKey); err != nil {
		s.log.Warn("session: could not remove persisted token", zap.Error(err))
	}
}

// RequireSession reports whether a session exists, prompting for login
// when it does not. Guard for every session-requiring action.
func (s *SessionState) RequireSession() bool {
	if s.IsLoggedIn() {
		return true
	}
	s.presenter.OpenLogin("Please log in first.")
	return false
}

func (s *SessionState) setMode(mode core.SessionMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// setBalanceCredits adopts a server-reported remaining credit count
// after a paid action and notifies once.
func (s *SessionState) setBalanceCredits(credits int) {
	s.mu.Lock()
	if s.balance == nil {
		s.balance = &core.Balance{}
	}
	c := credits
	s.balance.Credits = &c
	s.balance.IsPremium = false
	s.mu.Unlock()
	s.Notify()
}

// markUnlimited switches the balance to the premium sentinel.
func (s *SessionState) markUnlimited() {
	s.mu.Lock()
	if s.balance == nil {
		s.balance = &core.Balance{}
	}
	s.balance.Credits = nil
	s.balance.IsPremium = true
	s.mu.Unlock()
	s.Notify()
}

// forceNoCredits resyncs the balance to zero/non-premium after a 402,
// keeping only the previous reset timestamp.
func (s *SessionState) forceNoCredits() {
	s.mu.Lock()
	var resetAt *time.Time
	if s.balance != nil {
		resetAt = s.balance.ResetAt
	}
	zero := 0
	s.balance = &core.Balance{Credits: &zero, IsPremium: false, ResetAt: resetAt}
	s.mu.Unlock()
	s.Notify()
}

// ResolveAuthMessage maps a login/register failure to the user-facing
// message shown in the login surface. mode is "login" or "register".
func ResolveAuthMessage(err error, mode string) string {
	var reqErr *core.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code {
		case "email_exists":
			return "This email is already registered."
		case "invalid_credentials":
			return "Email or password is incorrect."
		case "invalid_input":
			return "Please fill in all fields correctly."
		case "auth_required":
			return "Please sign in first."
		}
		if reqErr.Status >= 500 {
			return "Server error. Please try again later."
		}
	}
	if mode == "register" {
		return "Registration failed."
	}
	return "Login failed."
}
