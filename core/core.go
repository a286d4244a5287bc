package core

import (
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// APIBase is the backend base URL, e.g. "http://127.0.0.1:5001".
	// Trailing slashes are trimmed.
	APIBase string

	// Optional config
	Store           KeyValueStore // defaults to an in-memory store
	Transport       Doer          // defaults to a plain *http.Client
	Presenter       Presenter     // defaults to NopPresenter
	Logger          *zap.Logger   // defaults to zap.NewNop()
	AnalysisTimeout time.Duration // defaults to 60s
	GuestCredits    int           // default seed for the guest ledger, 100
	SupportedKinds  []MediaKind   // defaults to image only
}
