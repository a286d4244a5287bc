package services

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
)

// Storage keys. These are the only two keys the client persists.
const (
	tokenStorageKey = "aireal_token"
	guestCreditsKey = "guest_credits"
)

// DefaultGuestCredits seeds the ledger when no valid value is stored.
const DefaultGuestCredits = 100

// CreditLedger owns the guest credit counter. It is meaningful only
// while no token is set; guest credits never carry over into an
// authenticated session.
type CreditLedger struct {
	store    core.KeyValueStore
	log      *zap.Logger
	seed     int
	onChange func()

	mu      sync.Mutex
	credits int
	loaded  bool
}

func NewCreditLedger(store core.KeyValueStore, seed int, log *zap.Logger) *CreditLedger {
	if seed <= 0 {
		seed = DefaultGuestCredits
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CreditLedger{store: store, log: log, seed: seed}
}

// SetOnChange registers the hook fired after every persisted write.
// Guest credits are part of the observable state surface, so the
// session wires its notification fan-out here.
func (l *CreditLedger) SetOnChange(fn func()) {
	l.onChange = fn
}

// Read returns the current guest credit count, seeding the default
// when nothing valid is stored.
func (l *CreditLedger) Read(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.credits
	}

	raw, err := l.store.Get(ctx, guestCreditsKey)
	if err == nil {
		if parsed, perr := strconv.Atoi(raw); perr == nil && parsed >= 0 {
			l.credits = parsed
			l.loaded = true
			return l.credits
		}
	}

	// Absent or malformed: seed the default and persist it.
	l.credits = l.seed
	l.loaded = true
	if err := l.store.Set(ctx, guestCreditsKey, strconv.Itoa(l.seed)); err != nil {
		l.log.Warn("ledger: could not persist seeded guest credits", zap.Error(err))
	}
	return l.credits
}

// Write clamps to a non-negative value, persists it, and fires the
// change hook. Callers pass pre-computed deltas (current - cost),
// never raw server data.
func (l *CreditLedger) Write(ctx context.Context, value int) {
	if value < 0 {
		value = 0
	}

	l.mu.Lock()
	l.credits = value
	l.loaded = true
	if err := l.store.Set(ctx, guestCreditsKey, strconv.Itoa(value)); err != nil {
		l.log.Warn("ledger: could not persist guest credits", zap.Error(err))
	}
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange()
	}
}

// Reset restores the default value. Used on logout.
func (l *CreditLedger) Reset(ctx context.Context) {
	l.Write(ctx, l.seed)
}

// Clear removes the persisted value and drops the in-memory one.
// Used after login so guest credits cannot leak into an authenticated
// session. A later anonymous Read re-seeds the default.
func (l *CreditLedger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credits = 0
	l.loaded = false
	if err := l.store.Delete(ctx, guestCreditsKey); err != nil {
		l.log.Warn("ledger: could not clear guest credits", zap.Error(err))
	}
}
