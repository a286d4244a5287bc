package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/airealcheck/realcheck/core"
)

// Typed endpoint wrappers. Each backend endpoint gets an explicit
// response schema; a payload that fails to decode is a request
// failure, never silently tolerated.

// LoginResult is the payload of POST /auth/login.
type LoginResult struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

type userPayload struct {
	User *core.User `json:"user"`
}

type usersPayload struct {
	Users []*core.User `json:"users"`
}

type creditsPayload struct {
	Credits int `json:"credits"`
}

type planPayload struct {
	IsPremium bool `json:"is_premium"`
}

func decodePayload(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return core.NewRequestError(0, "", "Unexpected server response.", core.ErrRequestFailed)
	}
	return nil
}

// SignIn obtains a bearer token for the given credentials.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*LoginResult, error) {
	raw, err := g.DoJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := decodePayload(raw, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, core.NewRequestError(0, "login_failed", "Login failed.", core.ErrRequestFailed)
	}
	return &result, nil
}

// RegisterAccount creates a new account. The backend returns no data
// beyond the envelope.
func (g *Gateway) RegisterAccount(ctx context.Context, email, password string) error {
	_, err := g.DoJSON(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
	}, false)
	return err
}

// Profile fetches the authenticated user's profile.
func (g *Gateway) Profile(ctx context.Context) (*core.User, error) {
	raw, err := g.DoJSON(ctx, http.MethodGet, "/auth/me", nil, true)
	if err != nil {
		return nil, err
	}
	var payload userPayload
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, core.NewRequestError(0, "", "Unexpected server response.", core.ErrRequestFailed)
	}
	return payload.User, nil
}

// Balance fetches the authenticated user's credit balance.
func (g *Gateway) Balance(ctx context.Context) (*core.Balance, error) {
	raw, err := g.DoJSON(ctx, http.MethodGet, "/credits/balance", nil, true)
	if err != nil {
		return nil, err
	}
	var balance core.Balance
	if err := decodePayload(raw, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// Analyze uploads a file for authenticity analysis. Guests use the
// unauthenticated endpoint; logged-in users the metered one.
func (g *Gateway) Analyze(ctx context.Context, file core.UploadFile, kind core.MediaKind, authenticated bool) (*core.AnalysisOutcome, error) {
	path := "/analyze/guest"
	if authenticated {
		path = "/analyze"
	}
	raw, err := g.Upload(ctx, path, file, kind, authenticated)
	if err != nil {
		return nil, err
	}
	var outcome core.AnalysisOutcome
	if err := decodePayload(raw, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// AdminUsers lists every account.
func (g *Gateway) AdminUsers(ctx context.Context) ([]*core.User, error) {
	raw, err := g.DoJSON(ctx, http.MethodGet, "/admin/users", nil, true)
	if err != nil {
		return nil, err
	}
	var payload usersPayload
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return payload.Users, nil
}

// AdminUser fetches one account's detail record.
func (g *Gateway) AdminUser(ctx context.Context, id int) (*core.User, error) {
	raw, err := g.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/admin/users/%d", id), nil, true)
	if err != nil {
		return nil, err
	}
	var payload userPayload
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, core.NewRequestError(0, "", "Unexpected server response.", core.ErrRequestFailed)
	}
	return payload.User, nil
}

// AdminResetPassword sets a new password on the given account.
func (g *Gateway) AdminResetPassword(ctx context.Context, id int, newPassword string) error {
	_, err := g.DoJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/reset_password", id), map[string]string{
		"new_password": newPassword,
	}, true)
	return err
}

// AdminUpdateCredits sets the credit balance of the given account and
// returns the value the server settled on.
func (g *Gateway) AdminUpdateCredits(ctx context.Context, id, credits int) (int, error) {
	raw, err := g.DoJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/update_credits", id), map[string]int{
		"credits": credits,
	}, true)
	if err != nil {
		return 0, err
	}
	var payload creditsPayload
	if err := decodePayload(raw, &payload); err != nil {
		return 0, err
	}
	return payload.Credits, nil
}

// AdminSetPlan switches the given account between free and premium and
// returns the resulting premium flag.
func (g *Gateway) AdminSetPlan(ctx context.Context, id int, plan string) (bool, error) {
	raw, err := g.DoJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/set_plan", id), map[string]string{
		"plan": plan,
	}, true)
	if err != nil {
		return false, err
	}
	var payload planPayload
	if err := decodePayload(raw, &payload); err != nil {
		return false, err
	}
	return payload.IsPremium, nil
}
