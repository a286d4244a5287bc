package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airealcheck/realcheck/core"
)

const sessionExpiredMessage = "Your session has expired. Please log in again."

// envelope is the part of every backend payload the gateway itself
// understands. Endpoint-specific fields are decoded by the typed
// wrappers in endpoints.go.
type envelope struct {
	OK      *bool  `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Gateway is the single choke point for every backend call. It builds
// requests, attaches headers, parses payloads tolerantly, and
// classifies failures into the sentinel taxonomy. A 401 received while
// a token was set at call time clears the session before the error is
// returned.
type Gateway struct {
	base      string
	transport core.Doer
	session   *SessionState
	log       *zap.Logger
}

func NewGateway(base string, transport core.Doer, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{base: NormalizeBase(base), transport: transport, log: log}
}

// AttachSession wires the session used for bearer tokens and expiry
// handling. Called once during assembly; the session and gateway
// reference each other.
func (g *Gateway) AttachSession(s *SessionState) {
	g.session = s
}

// NormalizeBase trims trailing slashes from a base URL.
func NormalizeBase(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// DoJSON performs a structured call with an optional JSON body.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, body any, authenticated bool) (json.RawMessage, error) {
	var payload []byte
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
		contentType = "application/json"
	}
	return g.call(ctx, method, path, payload, contentType, authenticated)
}

// Upload performs a multipart upload with fields "file" and "type".
// The multipart writer supplies the content type (with boundary); the
// gateway does not set one itself.
func (g *Gateway) Upload(ctx context.Context, path string, file core.UploadFile, kind core.MediaKind, authenticated bool) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.WriteField("type", string(kind)); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	return g.call(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType(), authenticated)
}

func (g *Gateway) call(ctx context.Context, method, path string, body []byte, contentType string, authenticated bool) (json.RawMessage, error) {
	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// The token is captured before the call so a concurrent logout
	// does not change how this response is classified.
	tokenAtCall := ""
	if authenticated && g.session != nil {
		tokenAtCall = g.session.Token()
	}
	if tokenAtCall != "" {
		req.Header.Set("Authorization", "Bearer "+tokenAtCall)
	}

	resp, err := g.transport.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.log.Debug("gateway: request deadline exceeded", zap.String("path", path))
			return nil, core.NewRequestError(0, "", "The connection timed out.", core.ErrTimeout)
		}
		g.log.Debug("gateway: transport failure", zap.String("path", path), zap.Error(err))
		return nil, core.NewRequestError(0, "", "Could not reach the server.", core.ErrNetwork)
	}
	defer resp.Body.Close()

	// Read once, parse tolerantly. A parse failure keeps the raw text
	// available for diagnostics instead of discarding the body.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewRequestError(resp.StatusCode, "", "Could not read the server response.", core.ErrNetwork)
	}
	var env envelope
	parsed := json.Unmarshal(raw, &env) == nil

	status := resp.StatusCode

	// Expired session handling comes before any other classification.
	if status == http.StatusUnauthorized && tokenAtCall != "" {
		g.session.expire(ctx, sessionExpiredMessage)
		return nil, g.failure(status, env, raw, parsed, core.ErrAuthRequired)
	}
	if status == http.StatusForbidden {
		return nil, g.failure(status, env, raw, parsed, core.ErrForbidden)
	}
	if status == http.StatusPaymentRequired && env.Error == "no_credits" {
		return nil, g.failure(status, env, raw, parsed, core.ErrNoCredits)
	}
	if status < 200 || status >= 300 {
		return nil, g.failure(status, env, raw, parsed, core.ErrRequestFailed)
	}
	if !parsed {
		reqErr := core.NewRequestError(status, "", "Unexpected server response.", core.ErrRequestFailed)
		reqErr.Raw = string(raw)
		return nil, reqErr
	}
	if env.OK != nil && !*env.OK {
		return nil, g.failure(status, env, raw, parsed, core.ErrRequestFailed)
	}

	return json.RawMessage(raw), nil
}

func (g *Gateway) failure(status int, env envelope, raw []byte, parsed bool, kind error) error {
	message := env.Error
	if message == "" {
		message = env.Message
	}
	reqErr := core.NewRequestError(status, env.Error, message, kind)
	if !parsed {
		reqErr.Raw = string(raw)
	}
	g.log.Debug("gateway: request failed",
		zap.Int("status", status),
		zap.String("code", env.Error),
	)
	return reqErr
}
