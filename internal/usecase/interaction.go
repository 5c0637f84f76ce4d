package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ultrawealth-client/internal/domain"
	"ultrawealth-client/internal/integrations/turingos"
)

// DecisionClient is the slice of the TuringOS client consumed by the
// interaction service.
type DecisionClient interface {
	CreateSession(ctx context.Context, actorType domain.ActorType, actorID string, channel domain.Channel) (*domain.InteractionSession, error)
	SubmitIntent(ctx context.Context, intent domain.Intent) (*turingos.SubmissionResult, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// InteractionService creates sessions and submits intents against the
// decision service. It holds no session cache: every call is a fresh round
// trip, and the caller owns the session object between calls.
type InteractionService struct {
	client DecisionClient
	clock  func() time.Time
	newID  func() string
}

func NewInteractionService(client DecisionClient) (*InteractionService, error) {
	if client == nil {
		return nil, errors.New("usecase: decision client must not be nil")
	}
	return &InteractionService{
		client: client,
		clock:  time.Now,
		newID:  uuid.NewString,
	}, nil
}

// StartSession opens a session for an actor on a channel.
func (s *InteractionService) StartSession(ctx context.Context, actorType domain.ActorType, actorID string, channel domain.Channel) (*domain.InteractionSession, error) {
	if _, ok := domain.ParseActorType(string(actorType)); !ok {
		return nil, newError(ErrorInvalidInput, "invalid_actor_type", nil)
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, newError(ErrorInvalidInput, "empty_actor_id", nil)
	}
	if _, ok := domain.ParseChannel(string(channel)); !ok {
		return nil, newError(ErrorInvalidInput, "invalid_channel", nil)
	}

	session, err := s.client.CreateSession(ctx, actorType, actorID, channel)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return nil, newError(ErrorRateLimited, "session_rate_limited", err)
		}
		return nil, newError(ErrorUpstream, "session_create_error", err)
	}
	return session, nil
}

// SubmitInput carries one intent submission. The session must come from a
// prior StartSession call; the payload determines the intent/target pairing.
type SubmitInput struct {
	Session  *domain.InteractionSession
	Payload  domain.Payload
	TargetID string
}

// SubmitOutput is the discriminated result of a submission: exactly one of
// Outcome or Exception is set. A populated Exception is not a failure; it is
// a structured "no" from a successful round trip.
type SubmitOutput struct {
	Intent    domain.Intent
	Outcome   *domain.DecisionOutcomeView
	Exception *ExceptionView
}

// Submit builds an immutable intent around the payload, sends it, and records
// the produced decision id on the session. Intent ids are fresh UUIDs, which
// keeps them unique within the session; no idempotency key is attached, so a
// retried submission can create a duplicate intent server-side.
func (s *InteractionService) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	if in.Session == nil || strings.TrimSpace(in.Session.SessionID) == "" {
		return SubmitOutput{}, newError(ErrorInvalidInput, "missing_session", nil)
	}
	if in.Payload == nil {
		return SubmitOutput{}, newError(ErrorInvalidInput, "missing_payload", nil)
	}

	now := s.clock().UTC()
	intent := domain.NewIntent(s.newID(), in.Session.SessionID, in.TargetID, in.Payload, now)

	result, err := s.client.SubmitIntent(ctx, intent)
	if err != nil {
		if errors.Is(err, turingos.ErrMalformedDecision) {
			return SubmitOutput{}, newError(ErrorUpstream, "intent_malformed_response", err)
		}
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return SubmitOutput{}, newError(ErrorRateLimited, "intent_rate_limited", err)
		}
		return SubmitOutput{}, newError(ErrorUpstream, "intent_submit_error", err)
	}

	out := SubmitOutput{Intent: intent}
	if outcome, ok := result.Outcome(); ok {
		in.Session.AppendDecision(outcome.DecisionID, now)
		out.Outcome = outcome
		return out, nil
	}

	exc, _ := result.Exception()
	view, err := InterpretException(exc)
	if err != nil {
		return SubmitOutput{}, err
	}
	// An exception still identifies a decision produced under this session.
	in.Session.AppendDecision(exc.DecisionID, now)
	out.Exception = view
	return out, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
