package core

import "time"

// User is the account profile as reported by the backend.
//
// The admin endpoints return the full shape; /auth/me omits is_admin
// and created_at, which then stay at their zero values.
type User struct {
	ID             int        `json:"id"`
	Email          string     `json:"email"`
	IsPremium      bool       `json:"is_premium"`
	IsAdmin        bool       `json:"is_admin"`
	Credits        int        `json:"credits"`
	CreditsResetAt *time.Time `json:"credits_reset_at"`
	CreatedAt      *time.Time `json:"created_at"`
}

// Balance is the server-reported credit balance.
//
// Credits == nil means unlimited (premium accounts). The balance is
// authoritative only for authenticated users; guests are tracked by
// the local ledger instead.
type Balance struct {
	Credits   *int       `json:"credits"`
	IsPremium bool       `json:"is_premium"`
	ResetAt   *time.Time `json:"reset_at"`
}

// SessionMode tracks where the session lifecycle currently stands.
type SessionMode string

const (
	ModeAnonymous      SessionMode = "anonymous"
	ModeAuthenticating SessionMode = "authenticating"
	ModeAuthenticated  SessionMode = "authenticated"
)

// Snapshot is the read-only view of session state handed to listeners.
type Snapshot struct {
	Authenticated bool
	Mode          SessionMode
	User          *User
	Balance       *Balance
	GuestCredits  int
}

// Listener receives a snapshot on every state change.
type Listener func(Snapshot)

// Usage reports how an analysis was billed.
// CreditsLeft == nil means unlimited.
type Usage struct {
	Source      string `json:"source"`
	CreditsLeft *int   `json:"credits_left"`
}

// AnalysisOutcome is the parsed result of a completed analysis.
type AnalysisOutcome struct {
	RealPercent float64  `json:"real"`
	FakePercent float64  `json:"fake"`
	Message     string   `json:"message"`
	Details     []string `json:"details"`
	Usage       *Usage   `json:"usage,omitempty"`
}

// UploadFile is a file submitted to the analysis flow.
type UploadFile struct {
	Name    string
	Content []byte
}
