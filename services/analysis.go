package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
)

// AnalysisFlow runs one analysis attempt end to end: eligibility
// pre-check, upload, staleness guard, balance reconciliation. One
// attempt at a time; a second call while one is in flight is a no-op.
type AnalysisFlow struct {
	session     *SessionState
	ledger      *CreditLedger
	gateway     *Gateway
	coordinator *Coordinator
	presenter   core.Presenter
	log         *zap.Logger
	supported   map[core.MediaKind]bool

	mu        sync.Mutex
	analyzing bool
}

func NewAnalysisFlow(session *SessionState, ledger *CreditLedger, gateway *Gateway, coordinator *Coordinator, presenter core.Presenter, supported []core.MediaKind, log *zap.Logger) *AnalysisFlow {
	if presenter == nil {
		presenter = core.NopPresenter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	kinds := make(map[core.MediaKind]bool, len(supported))
	for _, k := range supported {
		kinds[k] = true
	}
	if len(kinds) == 0 {
		kinds[core.MediaImage] = true
	}
	return &AnalysisFlow{
		session:     session,
		ledger:      ledger,
		gateway:     gateway,
		coordinator: coordinator,
		presenter:   presenter,
		log:         log,
		supported:   kinds,
	}
}

// Analyze validates, submits, and settles one analysis request.
// Validation failures are terminal for the attempt and issue no
// network call. A response superseded by a newer request is discarded
// without any observable effect.
func (f *AnalysisFlow) Analyze(ctx context.Context, kind core.MediaKind, file *core.UploadFile) error {
	f.mu.Lock()
	if f.analyzing {
		f.mu.Unlock()
		f.log.Debug("analysis: already in flight, ignoring")
		return nil
	}
	f.analyzing = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.analyzing = false
		f.mu.Unlock()
	}()

	// Validating
	if file == nil || len(file.Content) == 0 {
		f.presenter.ShowNotice("No file", "Please choose a file first.")
		return core.ErrNoFile
	}
	if !f.supported[kind] {
		f.presenter.ShowNotice("Not supported", "Only image uploads are currently supported.")
		return core.ErrUnsupportedKind
	}

	cost := kind.Cost()
	loggedIn := f.session.IsLoggedIn()
	if !loggedIn {
		if f.ledger.Read(ctx) < cost {
			f.presenter.ShowNotice("Out of credits", "Please register or log in.")
			return core.ErrNoCredits
		}
	} else if !f.session.IsPremium() {
		// Client-side pre-check on the last known balance; the
		// authoritative check happens server-side.
		credits := 0
		if balance := f.session.Balance(); balance != nil && balance.Credits != nil {
			credits = *balance.Credits
		}
		if credits < cost {
			f.presenter.ShowNotice("No credits available", "Please try again later.")
			return core.ErrNoCredits
		}
	}

	// Submitting
	f.presenter.SetBusy(true)
	defer f.presenter.SetBusy(false)

	id, opCtx, cancel := f.coordinator.Begin(ctx)
	defer cancel()

	outcome, err := f.gateway.Analyze(opCtx, *file, kind, loggedIn)

	if !f.coordinator.IsCurrent(id) {
		// Superseded by a newer request; no observable effect.
		f.log.Debug("analysis: discarding superseded response", zap.Uint64("id", id))
		return nil
	}

	if err != nil {
		return f.settleFailure(err)
	}

	f.reconcile(ctx, outcome, cost, loggedIn)
	f.presenter.ShowOutcome(outcome)
	return nil
}

func (f *AnalysisFlow) settleFailure(err error) error {
	switch {
	case errors.Is(err, core.ErrAuthRequired):
		// The gateway already cleared the session.
		f.presenter.ShowNotice("Login required", "Your session has ended.")
	case errors.Is(err, core.ErrNoCredits):
		// The server said no credits; the cached balance must agree.
		f.session.forceNoCredits()
		f.presenter.ShowNotice("Out of credits", "Please wait for the next reset or upgrade.")
	case errors.Is(err, core.ErrTimeout):
		f.presenter.ShowNotice("Error", "The connection timed out.")
	case errors.Is(err, core.ErrNetwork):
		f.presenter.ShowNotice("Error", "Could not reach the server.")
	default:
		message := "Analysis failed"
		var reqErr *core.RequestError
		if errors.As(err, &reqErr) {
			if reqErr.Raw != "" {
				message = reqErr.Raw
			} else {
				message = reqErr.Message
			}
		}
		f.presenter.ShowNotice("Error", message)
	}
	return err
}

// reconcile applies the billing side effects of a successful analysis.
// The server is authoritative for authenticated users; guests are
// decremented locally since the server keeps no guest state.
func (f *AnalysisFlow) reconcile(ctx context.Context, outcome *core.AnalysisOutcome, cost int, loggedIn bool) {
	if loggedIn {
		if outcome.Usage == nil {
			return
		}
		if f.session.IsPremium() {
			f.session.markUnlimited()
		} else if outcome.Usage.CreditsLeft != nil {
			f.session.setBalanceCredits(*outcome.Usage.CreditsLeft)
		}
		return
	}
	f.ledger.Write(ctx, f.ledger.Read(ctx)-cost)
}
