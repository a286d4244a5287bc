package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/airealcheck/realcheck/core"
)

const adminUsersBody = `{"ok":true,"users":[
	{"id":1,"email":"admin@b.com","is_admin":true,"credits":0,"is_premium":true},
	{"id":2,"email":"u2@b.com","credits":40,"is_premium":false},
	{"id":3,"email":"u3@b.com","credits":100,"is_premium":false}
]}`

func newAdminHarness(t *testing.T) (*harness, *AdminFlow) {
	t.Helper()
	h := newHarness()
	h.routeLogin(`{"id":1,"email":"admin@b.com","is_admin":true}`, 0)
	h.mustLogin(t)
	h.transport.Route(http.MethodGet, "/admin/users", http.StatusOK, adminUsersBody)
	return h, NewAdminFlow(h.session, h.gateway, h.presenter, nil)
}

// Requirement: the admin surface is guarded locally. Without a session
// it prompts for login; with a non-admin session it refuses. Neither
// case issues a network call.
func TestAdminFlow_Guard(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		h := newHarness()
		admin := NewAdminFlow(h.session, h.gateway, h.presenter, nil)

		err := admin.Open(context.Background())

		if !errors.Is(err, core.ErrAuthRequired) {
			t.Errorf("Open() = %v, want ErrAuthRequired", err)
		}
		if h.transport.RequestCount() != 0 {
			t.Errorf("request count = %d, want 0", h.transport.RequestCount())
		}
		if got := h.presenter.LoginOpens(); len(got) != 1 || got[0] != "Please log in first." {
			t.Errorf("login opens = %v", got)
		}
	})

	t.Run("non-admin", func(t *testing.T) {
		h := newHarness()
		h.routeLogin(`{"id":2,"email":"u2@b.com"}`, 40)
		h.mustLogin(t)
		admin := NewAdminFlow(h.session, h.gateway, h.presenter, nil)
		before := h.transport.RequestCount()

		err := admin.Open(context.Background())

		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("Open() = %v, want ErrForbidden", err)
		}
		if got := h.transport.RequestCount(); got != before {
			t.Errorf("request count = %d, want %d (no admin call)", got, before)
		}
	})
}

// Requirement: Open loads the list on first use only.
func TestAdminFlow_Open_LoadsOnce(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	before := h.transport.RequestCount()

	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("second Open() = %v", err)
	}

	if got := h.transport.RequestCount() - before; got != 1 {
		t.Errorf("admin list fetched %d times, want 1", got)
	}
	if got := len(admin.Users()); got != 3 {
		t.Errorf("Users() = %d entries, want 3", got)
	}
}

// Requirement: selecting shows the cached list row immediately, then
// the fresh detail record replaces it.
func TestAdminFlow_SelectUser(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	t.Run("detail replaces cached row", func(t *testing.T) {
		h.transport.Route(http.MethodGet, "/admin/users/2", http.StatusOK,
			`{"ok":true,"user":{"id":2,"email":"u2@b.com","credits":35,"is_premium":false}}`)

		user, err := admin.SelectUser(ctx, 2)

		if err != nil {
			t.Fatalf("SelectUser() = %v", err)
		}
		if user.Credits != 35 {
			t.Errorf("detail credits = %d, want fresh value 35", user.Credits)
		}
		if selected := admin.Selected(); selected == nil || selected.ID != 2 {
			t.Errorf("Selected() = %+v, want user 2", selected)
		}
	})

	t.Run("fetch failure keeps the cached row", func(t *testing.T) {
		h.transport.Route(http.MethodGet, "/admin/users/3", http.StatusInternalServerError,
			`{"ok":false,"error":"server_error"}`)

		user, err := admin.SelectUser(ctx, 3)

		if !errors.Is(err, core.ErrRequestFailed) {
			t.Errorf("SelectUser() = %v, want ErrRequestFailed", err)
		}
		if user == nil || user.ID != 3 || user.Credits != 100 {
			t.Errorf("cached row = %+v, want list entry for user 3", user)
		}
	})
}

// Requirement: refreshing the list re-merges the current selection by
// id, or clears it when the account vanished.
func TestAdminFlow_LoadUsers_RemergesSelection(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	h.transport.Route(http.MethodGet, "/admin/users/2", http.StatusOK,
		`{"ok":true,"user":{"id":2,"email":"u2@b.com","credits":40}}`)
	if _, err := admin.SelectUser(ctx, 2); err != nil {
		t.Fatalf("SelectUser() = %v", err)
	}

	// The fresh list carries new data for the selected account.
	h.transport.Route(http.MethodGet, "/admin/users", http.StatusOK,
		`{"ok":true,"users":[{"id":2,"email":"u2@b.com","credits":15}]}`)
	if _, err := admin.LoadUsers(ctx); err != nil {
		t.Fatalf("LoadUsers() = %v", err)
	}
	if selected := admin.Selected(); selected == nil || selected.Credits != 15 {
		t.Errorf("Selected() = %+v, want re-merged row with credits 15", selected)
	}

	// The account disappears from the next refresh.
	h.transport.Route(http.MethodGet, "/admin/users", http.StatusOK, `{"ok":true,"users":[]}`)
	if _, err := admin.LoadUsers(ctx); err != nil {
		t.Fatalf("LoadUsers() = %v", err)
	}
	if selected := admin.Selected(); selected != nil {
		t.Errorf("Selected() = %+v, want nil after the account vanished", selected)
	}
}

// Requirement: credit updates validate the raw input locally, send the
// parsed integer, and patch both the detail record and the list row
// with the value the server settled on.
func TestAdminFlow_UpdateCredits(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	h.transport.Route(http.MethodGet, "/admin/users/2", http.StatusOK,
		`{"ok":true,"user":{"id":2,"email":"u2@b.com","credits":40}}`)
	if _, err := admin.SelectUser(ctx, 2); err != nil {
		t.Fatalf("SelectUser() = %v", err)
	}

	t.Run("non-integer input fails locally", func(t *testing.T) {
		before := h.transport.RequestCount()

		_, err := admin.UpdateCredits(ctx, "lots")

		if !errors.Is(err, core.ErrCreditsNotInt) {
			t.Errorf("UpdateCredits() = %v, want ErrCreditsNotInt", err)
		}
		if got := h.transport.RequestCount(); got != before {
			t.Errorf("request count = %d, want %d", got, before)
		}
	})

	t.Run("patches detail and list row", func(t *testing.T) {
		h.transport.Route(http.MethodPost, "/admin/users/2/update_credits", http.StatusOK,
			`{"ok":true,"credits":250}`)

		settled, err := admin.UpdateCredits(ctx, "250")

		if err != nil {
			t.Fatalf("UpdateCredits() = %v", err)
		}
		if settled != 250 {
			t.Errorf("settled = %d, want 250", settled)
		}
		if selected := admin.Selected(); selected.Credits != 250 {
			t.Errorf("Selected().Credits = %d, want 250", selected.Credits)
		}
		for _, u := range admin.Users() {
			if u.ID == 2 && u.Credits != 250 {
				t.Errorf("list row credits = %d, want 250", u.Credits)
			}
		}

		requests := h.transport.Requests()
		if body := string(requests[len(requests)-1].Body); body != `{"credits":250}` {
			t.Errorf("request body = %s", body)
		}
	})

	t.Run("negative values are sent as-is", func(t *testing.T) {
		h.transport.Route(http.MethodPost, "/admin/users/2/update_credits", http.StatusOK,
			`{"ok":true,"credits":-5}`)

		settled, err := admin.UpdateCredits(ctx, "-5")

		if err != nil {
			t.Fatalf("UpdateCredits() = %v", err)
		}
		if settled != -5 {
			t.Errorf("settled = %d, want -5", settled)
		}
	})
}

// Requirement: plan changes accept only "free" and "premium", and patch
// the premium flag into both cached records.
func TestAdminFlow_SetPlan(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	h.transport.Route(http.MethodGet, "/admin/users/2", http.StatusOK,
		`{"ok":true,"user":{"id":2,"email":"u2@b.com","credits":40}}`)
	if _, err := admin.SelectUser(ctx, 2); err != nil {
		t.Fatalf("SelectUser() = %v", err)
	}

	t.Run("unknown plan fails locally", func(t *testing.T) {
		before := h.transport.RequestCount()

		_, err := admin.SetPlan(ctx, "gold")

		if !errors.Is(err, core.ErrInvalidPlan) {
			t.Errorf("SetPlan() = %v, want ErrInvalidPlan", err)
		}
		if got := h.transport.RequestCount(); got != before {
			t.Errorf("request count = %d, want %d", got, before)
		}
	})

	t.Run("premium patches both records", func(t *testing.T) {
		h.transport.Route(http.MethodPost, "/admin/users/2/set_plan", http.StatusOK,
			`{"ok":true,"is_premium":true}`)

		isPremium, err := admin.SetPlan(ctx, "premium")

		if err != nil {
			t.Fatalf("SetPlan() = %v", err)
		}
		if !isPremium {
			t.Error("isPremium = false, want true")
		}
		if selected := admin.Selected(); !selected.IsPremium {
			t.Error("Selected().IsPremium = false, want true")
		}
		for _, u := range admin.Users() {
			if u.ID == 2 && !u.IsPremium {
				t.Error("list row IsPremium = false, want true")
			}
		}
	})
}

// Requirement: password resets need a selection and at least 8
// characters before anything is sent.
func TestAdminFlow_ResetPassword(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	if err := admin.Open(ctx); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	t.Run("no selection", func(t *testing.T) {
		err := admin.ResetPassword(ctx, "password1")
		if !errors.Is(err, core.ErrNoUserSelected) {
			t.Errorf("ResetPassword() = %v, want ErrNoUserSelected", err)
		}
	})

	h.transport.Route(http.MethodGet, "/admin/users/2", http.StatusOK,
		`{"ok":true,"user":{"id":2,"email":"u2@b.com"}}`)
	if _, err := admin.SelectUser(ctx, 2); err != nil {
		t.Fatalf("SelectUser() = %v", err)
	}

	t.Run("short password", func(t *testing.T) {
		before := h.transport.RequestCount()
		err := admin.ResetPassword(ctx, "short")
		if !errors.Is(err, core.ErrPasswordTooShort) {
			t.Errorf("ResetPassword() = %v, want ErrPasswordTooShort", err)
		}
		if got := h.transport.RequestCount(); got != before {
			t.Errorf("request count = %d, want %d", got, before)
		}
	})

	t.Run("sends the new password", func(t *testing.T) {
		h.transport.Route(http.MethodPost, "/admin/users/2/reset_password", http.StatusOK, `{"ok":true}`)

		if err := admin.ResetPassword(ctx, "password1"); err != nil {
			t.Fatalf("ResetPassword() = %v", err)
		}

		requests := h.transport.Requests()
		last := requests[len(requests)-1]
		if last.Path != "/admin/users/2/reset_password" {
			t.Errorf("path = %q", last.Path)
		}
		if !strings.Contains(string(last.Body), `"new_password":"password1"`) {
			t.Errorf("body = %s", last.Body)
		}
	})
}

// Requirement: a server-side 403 (privileges revoked mid-session) is
// surfaced as forbidden; the session itself stays intact.
func TestAdminFlow_ForbiddenMidSession(t *testing.T) {
	h, admin := newAdminHarness(t)
	ctx := context.Background()
	h.transport.Route(http.MethodGet, "/admin/users", http.StatusForbidden,
		`{"ok":false,"error":"forbidden"}`)
	opensBefore := len(h.presenter.LoginOpens())

	_, err := admin.LoadUsers(ctx)

	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("LoadUsers() = %v, want ErrForbidden", err)
	}
	if !h.session.IsLoggedIn() {
		t.Error("session dropped by a 403")
	}
	if got := len(h.presenter.LoginOpens()); got != opensBefore {
		t.Error("403 opened the login surface")
	}
}
