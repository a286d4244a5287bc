package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/airealcheck/realcheck/core"
)

// FakeStore is a test-only fake implementing core.KeyValueStore.
// It stores values in a map and exposes error fields for behavior
// injection.
type FakeStore struct {
	mu     sync.RWMutex
	data   map[string]string
	getErr error
	setErr error
	delErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: make(map[string]string)}
}

func (f *FakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.data[key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	return value, nil
}

func (f *FakeStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *FakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.data, key)
	return nil
}

// Test helper methods
func (f *FakeStore) Seed(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *FakeStore) Has(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.data[key]
	return ok
}

func (f *FakeStore) Value(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data[key]
}

func (f *FakeStore) SetGetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// recordedRequest keeps a request together with its fully read body,
// since the transport consumes the body during Do.
type recordedRequest struct {
	Method      string
	Path        string
	Header      http.Header
	Body        []byte
	ContentType string
}

// FakeTransport is a test-only fake implementing core.Doer. Responses
// are scripted per METHOD PATH; a handler func overrides everything
// for fine-grained control.
type FakeTransport struct {
	mu       sync.Mutex
	routes   map[string]fakeResponse
	handler  func(*http.Request) (*http.Response, error)
	err      error
	requests []recordedRequest
}

type fakeResponse struct {
	status int
	body   string
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{routes: make(map[string]fakeResponse)}
}

// Route scripts the response for one METHOD PATH pair.
func (t *FakeTransport) Route(method, path string, status int, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[method+" "+path] = fakeResponse{status: status, body: body}
}

// SetHandler overrides routing entirely.
func (t *FakeTransport) SetHandler(fn func(*http.Request) (*http.Response, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// SetError makes every call fail at the transport level.
func (t *FakeTransport) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

func (t *FakeTransport) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	t.mu.Lock()
	t.requests = append(t.requests, recordedRequest{
		Method:      req.Method,
		Path:        req.URL.Path,
		Header:      req.Header.Clone(),
		Body:        body,
		ContentType: req.Header.Get("Content-Type"),
	})
	handler := t.handler
	err := t.err
	route, scripted := t.routes[req.Method+" "+req.URL.Path]
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(req)
	}
	if scripted {
		return JSONResponse(route.status, route.body), nil
	}
	return JSONResponse(http.StatusNotFound, `{"ok":false,"error":"not_found"}`), nil
}

func (t *FakeTransport) Requests() []recordedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]recordedRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

func (t *FakeTransport) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// JSONResponse builds an *http.Response with the given body.
func JSONResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// FakePresenter is a test-only fake implementing core.Presenter.
// It records every call for assertion.
type FakePresenter struct {
	mu         sync.Mutex
	loginOpens []string
	authErrors []string
	notices    [][2]string
	outcomes   []*core.AnalysisOutcome
	busy       []bool
}

var _ core.Presenter = (*FakePresenter)(nil)

func NewFakePresenter() *FakePresenter {
	return &FakePresenter{}
}

func (p *FakePresenter) OpenLogin(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginOpens = append(p.loginOpens, message)
}

func (p *FakePresenter) ShowAuthError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authErrors = append(p.authErrors, message)
}

func (p *FakePresenter) ShowOutcome(outcome *core.AnalysisOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
}

func (p *FakePresenter) ShowNotice(title, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, [2]string{title, detail})
}

func (p *FakePresenter) SetBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = append(p.busy, busy)
}

// Test helper methods
func (p *FakePresenter) LoginOpens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loginOpens...)
}

func (p *FakePresenter) AuthErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.authErrors...)
}

func (p *FakePresenter) Notices() [][2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]string(nil), p.notices...)
}

func (p *FakePresenter) Outcomes() []*core.AnalysisOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*core.AnalysisOutcome(nil), p.outcomes...)
}

func (p *FakePresenter) BusyStates() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.busy...)
}
