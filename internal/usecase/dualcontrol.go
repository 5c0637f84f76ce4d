package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ultrawealth-client/internal/domain"
	"ultrawealth-client/internal/repository"
)

// DualControlService enforces the two-person rule for sensitive actions: a
// pending request may only be resolved by an actor distinct from its
// requester who holds the required authority, and only once.
type DualControlService struct {
	store repository.Store
	clock func() time.Time
	newID func() string
}

func NewDualControlService(store repository.Store) (*DualControlService, error) {
	if store == nil {
		return nil, errors.New("usecase: approval store must not be nil")
	}
	return &DualControlService{
		store: store,
		clock: time.Now,
		newID: uuid.NewString,
	}, nil
}

// Request opens a PENDING dual-control request for an action.
func (s *DualControlService) Request(ctx context.Context, requesterID, action string, required domain.Authority) (domain.DualControlRequest, error) {
	if strings.TrimSpace(requesterID) == "" {
		return domain.DualControlRequest{}, newError(ErrorInvalidInput, "empty_requester", nil)
	}
	if strings.TrimSpace(action) == "" {
		return domain.DualControlRequest{}, newError(ErrorInvalidInput, "empty_action", nil)
	}
	if _, ok := domain.ParseAuthority(string(required)); !ok {
		return domain.DualControlRequest{}, newError(ErrorInvalidInput, "invalid_authority", nil)
	}

	req := domain.DualControlRequest{
		RequestID:         s.newID(),
		RequesterID:       requesterID,
		Action:            action,
		RequiredAuthority: required,
		Status:            domain.DualControlPending,
		CreatedAt:         s.clock().UTC(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return domain.DualControlRequest{}, newError(ErrorInternal, "dualcontrol_create_error", err)
	}
	return req, nil
}

// ResolveInput identifies the approver attempting to resolve a request.
type ResolveInput struct {
	RequestID   string
	ApproverID  string
	Authorities []domain.Authority
	Comment     string
}

// Approve transitions a PENDING request to APPROVED.
func (s *DualControlService) Approve(ctx context.Context, in ResolveInput) (domain.DualControlRequest, error) {
	return s.resolve(ctx, in, domain.DualControlApproved)
}

// Reject transitions a PENDING request to REJECTED. Rejection runs the same
// guard sequence as approval: the requester cannot reject their own request
// either, and the rejection is logged the same way.
func (s *DualControlService) Reject(ctx context.Context, in ResolveInput) (domain.DualControlRequest, error) {
	return s.resolve(ctx, in, domain.DualControlRejected)
}

// resolve evaluates the guards in order, short-circuiting on the first
// failure: actor identity, then authority, then state. A failed guard leaves
// the request PENDING and writes nothing. The store re-validates the state
// guard inside the resolution transaction, so a status change between the
// read and the write surfaces as already_resolved rather than a double
// resolution.
func (s *DualControlService) resolve(ctx context.Context, in ResolveInput, target domain.DualControlStatus) (domain.DualControlRequest, error) {
	if strings.TrimSpace(in.RequestID) == "" {
		return domain.DualControlRequest{}, newError(ErrorInvalidInput, "empty_request_id", nil)
	}
	if strings.TrimSpace(in.ApproverID) == "" {
		return domain.DualControlRequest{}, newError(ErrorInvalidInput, "empty_approver", nil)
	}

	req, err := s.store.GetRequest(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DualControlRequest{}, newError(ErrorInvalidInput, "request_not_found", err)
		}
		return domain.DualControlRequest{}, newError(ErrorInternal, "dualcontrol_read_error", err)
	}

	if in.ApproverID == req.RequesterID {
		return domain.DualControlRequest{}, newError(ErrorAuthorization, ReasonSelfApproval, nil)
	}
	if !holdsAuthority(in.Authorities, req.RequiredAuthority) {
		return domain.DualControlRequest{}, newError(ErrorAuthorization, ReasonInsufficientAuthority, nil)
	}
	if req.Status != domain.DualControlPending {
		return domain.DualControlRequest{}, newError(ErrorState, ReasonAlreadyResolved, nil)
	}

	now := s.clock().UTC()
	resolved := req
	resolved.Status = target
	resolved.ApproverID = in.ApproverID
	resolved.ResolvedAt = &now
	resolved.Comment = in.Comment

	entry := domain.ActivityEntry{
		RequestID:  req.RequestID,
		Status:     target,
		ActorID:    in.ApproverID,
		Comment:    in.Comment,
		RecordedAt: now,
	}

	if err := s.store.ResolveRequest(ctx, resolved, entry); err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return domain.DualControlRequest{}, newError(ErrorState, ReasonAlreadyResolved, err)
		}
		return domain.DualControlRequest{}, newError(ErrorInternal, "dualcontrol_write_error", err)
	}
	return resolved, nil
}

// Activity returns the immutable activity log for a request, ordered by
// resolution time.
func (s *DualControlService) Activity(ctx context.Context, requestID string) ([]domain.ActivityEntry, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, newError(ErrorInvalidInput, "empty_request_id", nil)
	}
	entries, err := s.store.ListActivity(ctx, requestID)
	if err != nil {
		return nil, newError(ErrorInternal, "dualcontrol_activity_error", err)
	}
	return entries, nil
}

func holdsAuthority(held []domain.Authority, required domain.Authority) bool {
	for _, a := range held {
		if a == required {
			return true
		}
	}
	return false
}
