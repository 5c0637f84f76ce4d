package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"ultrawealth-client/internal/domain"
	"ultrawealth-client/internal/usecase"
)

// interactionService is the interaction surface consumed by the handler.
type interactionService interface {
	StartSession(ctx context.Context, actorType domain.ActorType, actorID string, channel domain.Channel) (*domain.InteractionSession, error)
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitOutput, error)
}

// approvalService is the dual-control surface consumed by the handler.
type approvalService interface {
	Request(ctx context.Context, requesterID, action string, required domain.Authority) (domain.DualControlRequest, error)
	Approve(ctx context.Context, in usecase.ResolveInput) (domain.DualControlRequest, error)
	Reject(ctx context.Context, in usecase.ResolveInput) (domain.DualControlRequest, error)
	Activity(ctx context.Context, requestID string) ([]domain.ActivityEntry, error)
}

// Handler routes API Gateway requests to the interaction and dual-control
// services.
type Handler struct {
	interactions interactionService
	approvals    approvalService
}

func NewHandler(interactions interactionService, approvals approvalService) (*Handler, error) {
	if interactions == nil {
		return nil, errors.New("handler: interaction service must not be nil")
	}
	if approvals == nil {
		return nil, errors.New("handler: approval service must not be nil")
	}
	return &Handler{interactions: interactions, approvals: approvals}, nil
}

type startSessionRequest struct {
	ActorType string `json:"actorType"`
	ActorID   string `json:"actorId"`
	Channel   string `json:"channel"`
}

type submitIntentRequest struct {
	Session    *domain.InteractionSession `json:"session"`
	IntentType string                     `json:"intentType"`
	TargetType string                     `json:"targetType"`
	TargetID   string                     `json:"targetId,omitempty"`
	Payload    json.RawMessage            `json:"payload"`
}

// submitIntentResponse carries the updated session back to the UI alongside
// exactly one of outcome or exception.
type submitIntentResponse struct {
	Session   *domain.InteractionSession  `json:"session"`
	IntentID  string                      `json:"intentId"`
	Outcome   *domain.DecisionOutcomeView `json:"outcome,omitempty"`
	Exception *usecase.ExceptionView      `json:"exception,omitempty"`
}

type createApprovalRequest struct {
	RequesterID       string `json:"requesterId"`
	Action            string `json:"action"`
	RequiredAuthority string `json:"requiredAuthority"`
}

type resolveApprovalRequest struct {
	RequestID   string   `json:"requestId"`
	ApproverID  string   `json:"approverId"`
	Authorities []string `json:"authorities"`
	Decision    string   `json:"decision"`
	Comment     string   `json:"comment,omitempty"`
}

type listActivityRequest struct {
	RequestID string `json:"requestId"`
}

type listActivityResponse struct {
	Entries []domain.ActivityEntry `json:"entries"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// upstreamUnavailableMessage is the only text shown for transport failures;
// internal error detail never reaches the UI.
const upstreamUnavailableMessage = "The decision service is temporarily unavailable. Please try again."

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)

	if event.HTTPMethod != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "method_not_allowed"}), nil
	}

	switch event.Path {
	case "/sessions":
		return h.startSession(ctx, correlationID, event.Body), nil
	case "/intents":
		return h.submitIntent(ctx, correlationID, event.Body), nil
	case "/approvals":
		return h.createApproval(ctx, correlationID, event.Body), nil
	case "/approvals/resolve":
		return h.resolveApproval(ctx, correlationID, event.Body), nil
	case "/approvals/activity":
		return h.listActivity(ctx, correlationID, event.Body), nil
	}
	return respond(http.StatusNotFound, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "unknown_path"}), nil
}

func (h *Handler) startSession(ctx context.Context, correlationID, body string) events.APIGatewayProxyResponse {
	var req startSessionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return badRequest(correlationID)
	}

	actorType, ok := domain.ParseActorType(req.ActorType)
	if !ok {
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_actor_type"})
	}
	channel, ok := domain.ParseChannel(req.Channel)
	if !ok {
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_channel"})
	}

	session, err := h.interactions.StartSession(ctx, actorType, req.ActorID, channel)
	if err != nil {
		return errorToResponse(correlationID, err)
	}
	return respond(http.StatusOK, correlationID, session)
}

func (h *Handler) submitIntent(ctx context.Context, correlationID, body string) events.APIGatewayProxyResponse {
	var req submitIntentRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return badRequest(correlationID)
	}

	payload, err := domain.DecodePayload(domain.IntentType(req.IntentType), domain.TargetType(req.TargetType), req.Payload)
	if err != nil {
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_payload"})
	}

	out, err := h.interactions.Submit(ctx, usecase.SubmitInput{
		Session:  req.Session,
		Payload:  payload,
		TargetID: req.TargetID,
	})
	if err != nil {
		return errorToResponse(correlationID, err)
	}

	return respond(http.StatusOK, correlationID, submitIntentResponse{
		Session:   req.Session,
		IntentID:  out.Intent.IntentID,
		Outcome:   out.Outcome,
		Exception: out.Exception,
	})
}

func (h *Handler) createApproval(ctx context.Context, correlationID, body string) events.APIGatewayProxyResponse {
	var req createApprovalRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return badRequest(correlationID)
	}

	required, ok := domain.ParseAuthority(req.RequiredAuthority)
	if !ok {
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_authority"})
	}

	created, err := h.approvals.Request(ctx, req.RequesterID, req.Action, required)
	if err != nil {
		return errorToResponse(correlationID, err)
	}
	return respond(http.StatusOK, correlationID, created)
}

func (h *Handler) resolveApproval(ctx context.Context, correlationID, body string) events.APIGatewayProxyResponse {
	var req resolveApprovalRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return badRequest(correlationID)
	}

	authorities := make([]domain.Authority, 0, len(req.Authorities))
	for _, raw := range req.Authorities {
		authority, ok := domain.ParseAuthority(raw)
		if !ok {
			return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_authority"})
		}
		authorities = append(authorities, authority)
	}

	in := usecase.ResolveInput{
		RequestID:   req.RequestID,
		ApproverID:  req.ApproverID,
		Authorities: authorities,
		Comment:     req.Comment,
	}

	var resolved domain.DualControlRequest
	var err error
	switch strings.ToLower(req.Decision) {
	case "approve":
		resolved, err = h.approvals.Approve(ctx, in)
	case "reject":
		resolved, err = h.approvals.Reject(ctx, in)
	default:
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_decision"})
	}
	if err != nil {
		return errorToResponse(correlationID, err)
	}
	return respond(http.StatusOK, correlationID, resolved)
}

func (h *Handler) listActivity(ctx context.Context, correlationID, body string) events.APIGatewayProxyResponse {
	var req listActivityRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return badRequest(correlationID)
	}

	entries, err := h.approvals.Activity(ctx, req.RequestID)
	if err != nil {
		return errorToResponse(correlationID, err)
	}
	return respond(http.StatusOK, correlationID, listActivityResponse{Entries: entries})
}

// errorToResponse maps the usecase error taxonomy onto HTTP statuses. Guard
// failures keep their specific reason so the UI can render it inline;
// upstream failures are replaced with a generic retry prompt.
func errorToResponse(correlationID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return respond(http.StatusInternalServerError, correlationID, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
	case usecase.ErrorAuthorization:
		return respond(http.StatusForbidden, correlationID, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
	case usecase.ErrorState:
		return respond(http.StatusConflict, correlationID, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
	case usecase.ErrorRateLimited:
		return respond(http.StatusTooManyRequests, correlationID, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
	case usecase.ErrorUpstream:
		return respond(http.StatusBadGateway, correlationID, errorResponse{Error: string(ucErr.Code), Message: upstreamUnavailableMessage})
	}
	return respond(http.StatusInternalServerError, correlationID, errorResponse{Error: string(usecase.ErrorInternal)})
}

func badRequest(correlationID string) events.APIGatewayProxyResponse {
	return respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"})
}

func respond(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		encoded = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(encoded),
	}
}

// resolveCorrelationID reuses the caller's correlation id when present
// (header lookup is case-insensitive) and mints one otherwise.
func resolveCorrelationID(headers map[string]string) string {
	for key, value := range headers {
		if strings.EqualFold(key, "X-Correlation-Id") && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return uuid.NewString()
}
