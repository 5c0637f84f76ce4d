package domain

import "time"

// Authority is a named authority level an actor can hold. Actors hold a set
// of authorities; an action names the single authority it requires.
type Authority string

const (
	AuthorityOperator          Authority = "OPERATOR"
	AuthoritySupervisor        Authority = "SUPERVISOR"
	AuthorityComplianceOfficer Authority = "COMPLIANCE_OFFICER"
)

// ParseAuthority validates a raw authority value from an API request.
func ParseAuthority(raw string) (Authority, bool) {
	switch Authority(raw) {
	case AuthorityOperator, AuthoritySupervisor, AuthorityComplianceOfficer:
		return Authority(raw), true
	}
	return "", false
}

// DualControlStatus is the lifecycle state of a dual-control request. The
// only legal transitions are PENDING -> APPROVED and PENDING -> REJECTED,
// each exactly once.
type DualControlStatus string

const (
	DualControlPending  DualControlStatus = "PENDING"
	DualControlApproved DualControlStatus = "APPROVED"
	DualControlRejected DualControlStatus = "REJECTED"
)

// DualControlRequest is a pending action that requires a second,
// differently-authorized actor to approve or reject it. The requester may
// never be the approver.
type DualControlRequest struct {
	RequestID         string            `json:"request_id"`
	RequesterID       string            `json:"requester_id"`
	Action            string            `json:"action"`
	RequiredAuthority Authority         `json:"required_authority"`
	Status            DualControlStatus `json:"status"`
	ApproverID        string            `json:"approver_id,omitempty"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	Comment           string            `json:"comment,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Resolved reports whether the request has reached a terminal state.
func (r DualControlRequest) Resolved() bool {
	return r.Status == DualControlApproved || r.Status == DualControlRejected
}

// ActivityEntry is one immutable activity-log record. Exactly one entry is
// written per resolved dual-control request; entries are never edited or
// deleted and are ordered by resolution time.
type ActivityEntry struct {
	RequestID  string            `json:"request_id"`
	Status     DualControlStatus `json:"status"`
	ActorID    string            `json:"actor_id"`
	Comment    string            `json:"comment,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}
