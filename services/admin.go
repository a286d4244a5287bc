package services

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
)

// AdminFlow lets privileged users inspect and mutate other accounts.
// It keeps the fetched user list and the selected detail record
// coherent: successful mutations patch both in place, no re-fetch.
type AdminFlow struct {
	session   *SessionState
	gateway   *Gateway
	presenter core.Presenter
	log       *zap.Logger

	mu         sync.Mutex
	users      []*core.User
	selectedID int
	selected   *core.User
}

func NewAdminFlow(session *SessionState, gateway *Gateway, presenter core.Presenter, log *zap.Logger) *AdminFlow {
	if presenter == nil {
		presenter = core.NopPresenter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminFlow{session: session, gateway: gateway, presenter: presenter, log: log}
}

// guard blocks non-admins before any network call.
func (a *AdminFlow) guard() error {
	if !a.session.RequireSession() {
		return core.ErrAuthRequired
	}
	if !a.session.IsAdmin() {
		return core.ErrForbidden
	}
	return nil
}

// Open enters the admin surface, loading the user list on first use.
func (a *AdminFlow) Open(ctx context.Context) error {
	if err := a.guard(); err != nil {
		return err
	}
	a.mu.Lock()
	loaded := len(a.users) > 0
	a.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := a.LoadUsers(ctx)
	return err
}

// LoadUsers refreshes the account list. The current selection is
// re-merged against the fresh list, or cleared when the user vanished.
func (a *AdminFlow) LoadUsers(ctx context.Context) ([]*core.User, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	users, err := a.gateway.AdminUsers(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.users = users
	if a.selectedID != 0 {
		var match *core.User
		for _, u := range users {
			if u.ID == a.selectedID {
				match = u
				break
			}
		}
		if match != nil {
			a.selected = match
		} else {
			a.selectedID = 0
			a.selected = nil
		}
	}
	a.mu.Unlock()
	return users, nil
}

// SelectUser makes the given account the detail record. The cached
// list row is shown immediately; the fresh detail fetch replaces it.
func (a *AdminFlow) SelectUser(ctx context.Context, id int) (*core.User, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.selectedID = id
	for _, u := range a.users {
		if u.ID == id {
			a.selected = u
			break
		}
	}
	cached := a.selected
	a.mu.Unlock()

	user, err := a.gateway.AdminUser(ctx, id)
	if err != nil {
		// Keep the cached row visible; the caller surfaces the error.
		return cached, err
	}

	a.mu.Lock()
	a.selected = user
	a.mu.Unlock()
	return user, nil
}

// ResetPassword sets a new password on the selected account.
func (a *AdminFlow) ResetPassword(ctx context.Context, newPassword string) error {
	if err := a.guard(); err != nil {
		return err
	}
	a.mu.Lock()
	selected := a.selected
	a.mu.Unlock()
	if selected == nil {
		return core.ErrNoUserSelected
	}
	if len(newPassword) < 8 {
		return core.ErrPasswordTooShort
	}
	return a.gateway.AdminResetPassword(ctx, selected.ID, newPassword)
}

// UpdateCredits sets the selected account's credit balance. The raw
// form input must parse as an integer before anything is sent.
func (a *AdminFlow) UpdateCredits(ctx context.Context, input string) (int, error) {
	if err := a.guard(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	selected := a.selected
	a.mu.Unlock()
	if selected == nil {
		return 0, core.ErrNoUserSelected
	}
	credits, err := strconv.Atoi(input)
	if err != nil {
		return 0, core.ErrCreditsNotInt
	}

	settled, err := a.gateway.AdminUpdateCredits(ctx, selected.ID, credits)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	selected.Credits = settled
	for _, u := range a.users {
		if u.ID == selected.ID {
			u.Credits = settled
			break
		}
	}
	a.mu.Unlock()
	return settled, nil
}

// SetPlan switches the selected account between free and premium.
func (a *AdminFlow) SetPlan(ctx context.Context, plan string) (bool, error) {
	if err := a.guard(); err != nil {
		return false, err
	}
	a.mu.Lock()
	selected := a.selected
	a.mu.Unlock()
	if selected == nil {
		return false, core.ErrNoUserSelected
	}
	if plan != "free" && plan != "premium" {
		return false, core.ErrInvalidPlan
	}

	isPremium, err := a.gateway.AdminSetPlan(ctx, selected.ID, plan)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	selected.IsPremium = isPremium
	for _, u := range a.users {
		if u.ID == selected.ID {
			u.IsPremium = isPremium
			break
		}
	}
	a.mu.Unlock()
	return isPremium, nil
}

// Users returns the cached account list.
func (a *AdminFlow) Users() []*core.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*core.User, len(a.users))
	copy(out, a.users)
	return out
}

// Selected returns the current detail record, nil when none.
func (a *AdminFlow) Selected() *core.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}
