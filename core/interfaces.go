package core

import (
	"context"
	"net/http"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORT (durable client state)
// ============================================

// KeyValueStore holds durable string key/value pairs that outlive a
// single process run. Only the bearer token and the guest credit
// counter are kept here.
//
// Get returns ErrKeyNotFound when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ============================================
// TRANSPORT PORT
// ============================================

// Doer issues HTTP requests. *http.Client satisfies it; tests inject
// scripted transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ============================================
// VIEW PORT
// ============================================

// Presenter is the only surface through which the core talks to a
// view layer. Implementations render however they like; the core never
// inspects the result.
type Presenter interface {
	// OpenLogin opens the login surface, optionally with an
	// informational message (e.g. "session expired").
	OpenLogin(message string)

	// ShowAuthError displays a login/register failure inside the
	// already-open login surface.
	ShowAuthError(message string)

	// ShowOutcome renders a completed analysis result.
	ShowOutcome(outcome *AnalysisOutcome)

	// ShowNotice replaces any pending indicator with a static
	// message card.
	ShowNotice(title, detail string)

	// SetBusy disables or re-enables the triggering control while an
	// analysis is in flight.
	SetBusy(busy bool)
}

// NopPresenter discards every presentation call. Used as the default
// when no view layer is attached (e.g. headless tests).
type NopPresenter struct{}

var _ Presenter = NopPresenter{}

func (NopPresenter) OpenLogin(string)             {}
func (NopPresenter) ShowAuthError(string)         {}
func (NopPresenter) ShowOutcome(*AnalysisOutcome) {}
func (NopPresenter) ShowNotice(string, string)    {}
func (NopPresenter) SetBusy(bool)                 {}
