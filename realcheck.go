package realcheck

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
	"github.com/airealcheck/realcheck/pkg/store"
	"github.com/airealcheck/realcheck/services"
)

// interfaces
type (
	KeyValueStore = core.KeyValueStore
	Doer          = core.Doer
	Presenter     = core.Presenter
)

// structs
type (
	Config       = core.Config
	RequestError = core.RequestError
)

type (
	User            = core.User
	Balance         = core.Balance
	Snapshot        = core.Snapshot
	Listener        = core.Listener
	AnalysisOutcome = core.AnalysisOutcome
	Usage           = core.Usage
	UploadFile      = core.UploadFile
	MediaKind       = core.MediaKind
	SessionMode     = core.SessionMode
)

const (
	MediaImage = core.MediaImage
	MediaVideo = core.MediaVideo
	MediaAudio = core.MediaAudio
)

const (
	ModeAnonymous      = core.ModeAnonymous
	ModeAuthenticating = core.ModeAuthenticating
	ModeAuthenticated  = core.ModeAuthenticated
)

// Constructors & helpers (convenience re-exports)
var (
	NewMemoryStore = store.NewMemory
	NormalizeBase  = services.NormalizeBase
)

const DefaultGuestCredits = services.DefaultGuestCredits

var (
	ErrEmailRequired    = core.ErrEmailRequired
	ErrPasswordRequired = core.ErrPasswordRequired
	ErrPasswordTooShort = core.ErrPasswordTooShort
	ErrNoFile           = core.ErrNoFile
	ErrUnsupportedKind  = core.ErrUnsupportedKind
	ErrCreditsNotInt    = core.ErrCreditsNotInt
	ErrInvalidPlan      = core.ErrInvalidPlan
	ErrNoUserSelected   = core.ErrNoUserSelected
)

var (
	ErrAuthRequired  = core.ErrAuthRequired
	ErrForbidden     = core.ErrForbidden
	ErrNoCredits     = core.ErrNoCredits
	ErrRequestFailed = core.ErrRequestFailed
	ErrTimeout       = core.ErrTimeout
	ErrNetwork       = core.ErrNetwork
)

var (
	ErrKeyNotFound     = core.ErrKeyNotFound
	ErrAPIBaseRequired = core.ErrAPIBaseRequired
)

// Client bundles the assembled session machinery. Everything shares
// one SessionState and one guest ledger; there are no ambient
// singletons.
type Client struct {
	Session  *services.SessionState
	Ledger   *services.CreditLedger
	Gateway  *services.Gateway
	Analysis *services.AnalysisFlow
	Admin    *services.AdminFlow
}

func New(config Config) (*Client, error) {
	if config.APIBase == "" {
		return nil, ErrAPIBaseRequired
	}

	// Set Defaults

	kvStore := config.Store
	if kvStore == nil {
		kvStore = store.NewMemory()
	}

	transport := config.Transport
	if transport == nil {
		transport = &http.Client{}
	}

	presenter := config.Presenter
	if presenter == nil {
		presenter = core.NopPresenter{}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ledger := services.NewCreditLedger(kvStore, config.GuestCredits, logger)
	session := services.NewSessionState(kvStore, ledger, presenter, logger)
	ledger.SetOnChange(session.Notify)

	gateway := services.NewGateway(config.APIBase, transport, logger)
	gateway.AttachSession(session)
	session.AttachGateway(gateway)

	coordinator := services.NewCoordinator(config.AnalysisTimeout)

	return &Client{
		Session:  session,
		Ledger:   ledger,
		Gateway:  gateway,
		Analysis: services.NewAnalysisFlow(session, ledger, gateway, coordinator, presenter, config.SupportedKinds, logger),
		Admin:    services.NewAdminFlow(session, gateway, presenter, logger),
	}, nil
}
