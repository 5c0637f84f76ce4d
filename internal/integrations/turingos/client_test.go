package turingos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ultrawealth-client/internal/domain"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func() // optional; called on each GetParameter invocation
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func tokenGetter() *fakeGetter {
	return &fakeGetter{val: `{"token":"tos-from-ssm"}`}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(tokenGetter(), "/ultrawealth", WithBaseURL(baseURL))
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// endpointURL helper
// ---------------------------------------------------------------------------

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8085", "http://localhost:8085/interaction/intents"},
		{"http://localhost:8085/", "http://localhost:8085/interaction/intents"},
		{"https://turingos.internal", "https://turingos.internal/interaction/intents"},
		{"", "http://localhost:8085/interaction/intents"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, endpointURL(tc.base, "/interaction/intents"), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilGetter(t *testing.T) {
	_, err := NewClient(nil, "/ultrawealth")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	_, err := NewClient(tokenGetter(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "prefix")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(tokenGetter(), "/ultrawealth")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.Equal(t, "/ultrawealth/turingos-token", c.tokenParameterName())
}

// ---------------------------------------------------------------------------
// resolveAPIKey SSM caching behaviour
// ---------------------------------------------------------------------------

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	calls := 0
	g := tokenGetter()
	g.onCall = func() { calls++ }
	c, err := NewClient(g, "/ultrawealth")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tos-from-ssm", key)

	_, _ = c.resolveAPIKey(context.Background())
	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}

func TestResolveAPIKey_EmptyToken(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":""}`}, "/ultrawealth")
	require.NoError(t, err)
	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "token is empty")
}

func TestResolveAPIKey_GetterError(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm unavailable")}, "/ultrawealth")
	require.NoError(t, err)
	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

// ---------------------------------------------------------------------------
// CreateSession
// ---------------------------------------------------------------------------

func TestCreateSession_HappyPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{
			"session_id": "sess-1",
			"tenant_id": "ultrawealth",
			"actor_type": "OPERATOR",
			"actor_id": "op-7",
			"channel": "OPERATOR_CONSOLE",
			"started_at": "2026-08-01T09:00:00Z",
			"last_activity_at": "2026-08-01T09:00:00Z",
			"decision_ids": []
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	session, err := c.CreateSession(context.Background(), domain.ActorOperator, "op-7", domain.ChannelOperatorConsole)
	require.NoError(t, err)

	require.Equal(t, "/interaction/sessions", gotPath)
	require.Equal(t, "Bearer tos-from-ssm", gotAuth)
	require.Equal(t, "ultrawealth", gotBody["tenant_id"])
	require.Equal(t, "OPERATOR", gotBody["actor_type"])
	require.Equal(t, "op-7", gotBody["actor_id"])
	require.Equal(t, "OPERATOR_CONSOLE", gotBody["channel"])

	require.Equal(t, "sess-1", session.SessionID)
	require.Empty(t, session.DecisionIDs)
}

func TestCreateSession_EmptyActorID(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	_, err := c.CreateSession(context.Background(), domain.ActorOperator, " ", domain.ChannelWeb)
	require.Error(t, err)
	require.Contains(t, err.Error(), "actor id")
}

func TestCreateSession_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`service down`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.CreateSession(context.Background(), domain.ActorClient, "cl-1", domain.ChannelWeb)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.URL, "/interaction/sessions")
}

// ---------------------------------------------------------------------------
// SubmitIntent outcome XOR exception
// ---------------------------------------------------------------------------

func submitBody(t *testing.T, c *Client, responseBody string) (*SubmissionResult, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(responseBody))
	}))
	defer srv.Close()

	c.baseURL = srv.URL
	intent := domain.NewIntent("intent-1", "sess-1", "", &domain.PortfolioViewPayload{}, time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	return c.SubmitIntent(context.Background(), intent)
}

func TestSubmitIntent_OutcomeBranch(t *testing.T) {
	c := newTestClient(t, "")
	result, err := submitBody(t, c, `{"outcome":{"decision_id":"dec-1","decision_state":"EVALUATED","automation_level":"ASSISTED","outcome":"APPROVED","message":"ok"}}`)
	require.NoError(t, err)

	outcome, ok := result.Outcome()
	require.True(t, ok)
	require.Equal(t, "dec-1", outcome.DecisionID)
	require.Equal(t, domain.OutcomeApproved, outcome.Outcome)

	_, ok = result.Exception()
	require.False(t, ok)
}

func TestSubmitIntent_ExceptionBranch(t *testing.T) {
	c := newTestClient(t, "")
	result, err := submitBody(t, c, `{"exception":{"decision_id":"dec-2","failed_invariant":"EVIDENCE","failure_code":"KYC_STALE","failure_message":"evidence expired","escalation_options":[{"option_type":"REQUEST_EVIDENCE","permitted":true}]}}`)
	require.NoError(t, err)

	exc, ok := result.Exception()
	require.True(t, ok)
	require.Equal(t, domain.InvariantEvidence, exc.FailedInvariant)
	require.Len(t, exc.EscalationOptions, 1)

	_, ok = result.Outcome()
	require.False(t, ok)
}

func TestSubmitIntent_BothBranches(t *testing.T) {
	c := newTestClient(t, "")
	_, err := submitBody(t, c, `{"outcome":{"decision_id":"dec-1"},"exception":{"decision_id":"dec-1"}}`)
	require.ErrorIs(t, err, ErrMalformedDecision)
}

func TestSubmitIntent_NeitherBranch(t *testing.T) {
	c := newTestClient(t, "")
	_, err := submitBody(t, c, `{}`)
	require.ErrorIs(t, err, ErrMalformedDecision)
}

func TestSubmitIntent_EmptySessionID(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	intent := domain.Intent{IntentID: "intent-1"}
	_, err := c.SubmitIntent(context.Background(), intent)
	require.Error(t, err)
	require.Contains(t, err.Error(), "session id")
}
