package turingos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ultrawealth-client/internal/domain"
)

// defaultBaseURL is the local development address used when no endpoint is
// configured.
const defaultBaseURL = "http://localhost:8085"

// ErrMalformedDecision is returned when an intent submission response does
// not contain exactly one of outcome or exception.
var ErrMalformedDecision = errors.New("turingos: response must contain exactly one of outcome or exception")

// createSessionRequest is the wire shape for POST /interaction/sessions.
type createSessionRequest struct {
	TenantID  string           `json:"tenant_id"`
	ActorType domain.ActorType `json:"actor_type"`
	ActorID   string           `json:"actor_id"`
	Channel   domain.Channel   `json:"channel"`
}

// submitIntentResponse is the wire envelope for POST /interaction/intents.
// The two branches are optional on the wire only; SubmitIntent converts the
// envelope into a SubmissionResult and rejects anything that is not exactly
// one branch.
type submitIntentResponse struct {
	Outcome   *domain.DecisionOutcomeView      `json:"outcome"`
	Exception *domain.DecisionExceptionContext `json:"exception"`
}

// SubmissionResult is the discriminated result of an intent submission:
// either an outcome or an exception, never both, never neither.
type SubmissionResult struct {
	outcome   *domain.DecisionOutcomeView
	exception *domain.DecisionExceptionContext
}

// OutcomeResult wraps an outcome branch. Exposed so callers can fake the
// client in tests.
func OutcomeResult(outcome *domain.DecisionOutcomeView) *SubmissionResult {
	return &SubmissionResult{outcome: outcome}
}

// ExceptionResult wraps an exception branch.
func ExceptionResult(exception *domain.DecisionExceptionContext) *SubmissionResult {
	return &SubmissionResult{exception: exception}
}

// Outcome returns the outcome branch, if this result carries one.
func (r *SubmissionResult) Outcome() (*domain.DecisionOutcomeView, bool) {
	return r.outcome, r.outcome != nil
}

// Exception returns the exception branch, if this result carries one.
func (r *SubmissionResult) Exception() (*domain.DecisionExceptionContext, bool) {
	return r.exception, r.exception != nil
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("turingos: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a typed client for the TuringOS decision service. It performs one
// network call per invocation: no retries, no caching, no deduplication.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Client backed by the given paramstore.Getter for
// API token retrieval. The token is fetched from SSM on the first request and
// reused for the lifetime of the process.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("turingos: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("turingos: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveAPIKey fetches the API token from SSM on the first call and returns
// the cached result on every subsequent call within the same process lifetime.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchAPIKeyFromParamStore(ctx, c.getter, c.tokenParameterName())
	})
	return c.apiKey, c.keyErr
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/turingos-token"
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 10s timeout if none was set (e.g. in tests that nil out the field).
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

// CreateSession asks the decision service to open a session for an actor on a
// channel. The tenant id is fixed for this product. The caller must keep the
// returned session for subsequent intents; no local copy is cached here.
func (c *Client) CreateSession(ctx context.Context, actorType domain.ActorType, actorID string, channel domain.Channel) (*domain.InteractionSession, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, errors.New("turingos: actor id must not be empty")
	}

	var session domain.InteractionSession
	err := c.post(ctx, "/interaction/sessions", createSessionRequest{
		TenantID:  domain.TenantID,
		ActorType: actorType,
		ActorID:   actorID,
		Channel:   channel,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitIntent sends an intent for evaluation and returns the discriminated
// result. No idempotency key is attached, so a duplicate submission on retry
// can create a duplicate intent server-side.
func (c *Client) SubmitIntent(ctx context.Context, intent domain.Intent) (*SubmissionResult, error) {
	if strings.TrimSpace(intent.SessionID) == "" {
		return nil, errors.New("turingos: intent session id must not be empty")
	}

	var envelope submitIntentResponse
	if err := c.post(ctx, "/interaction/intents", intent, &envelope); err != nil {
		return nil, err
	}

	if (envelope.Outcome == nil) == (envelope.Exception == nil) {
		return nil, ErrMalformedDecision
	}
	if envelope.Outcome != nil {
		return OutcomeResult(envelope.Outcome), nil
	}
	return ExceptionResult(envelope.Exception), nil
}

// post sends a JSON-encoded POST to the configured base URL plus path and
// decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("turingos: marshal request: %w", err)
	}

	url := endpointURL(c.baseURL, path)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if reqErr != nil {
		return fmt.Errorf("turingos: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return fmt.Errorf("turingos: request failed: %w", err)
	}

	if decErr := json.Unmarshal(raw, out); decErr != nil {
		return fmt.Errorf("turingos: decode response: %w", decErr)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("turingos: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("turingos: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("turingos: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("turingos: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("turingos: API token is empty")
	}
	return tp.Token, nil
}
