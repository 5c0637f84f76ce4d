package domain

import "time"

// TenantID is the fixed tenant identifier for the UltraWealth product. Every
// session created by this client belongs to this tenant.
const TenantID = "ultrawealth"

// ActorType identifies the kind of actor driving a session.
type ActorType string

const (
	ActorClient   ActorType = "CLIENT"
	ActorOperator ActorType = "OPERATOR"
	ActorAdviser  ActorType = "ADVISER"
	ActorSystem   ActorType = "SYSTEM"
)

// ParseActorType validates a raw actor type value from an API request.
func ParseActorType(raw string) (ActorType, bool) {
	switch ActorType(raw) {
	case ActorClient, ActorOperator, ActorAdviser, ActorSystem:
		return ActorType(raw), true
	}
	return "", false
}

// Channel identifies the surface a session was started from.
type Channel string

const (
	ChannelWeb             Channel = "WEB"
	ChannelMobile          Channel = "MOBILE"
	ChannelOperatorConsole Channel = "OPERATOR_CONSOLE"
	ChannelAPI             Channel = "API"
	ChannelAgent           Channel = "AGENT"
)

// ParseChannel validates a raw channel value from an API request.
func ParseChannel(raw string) (Channel, bool) {
	switch Channel(raw) {
	case ChannelWeb, ChannelMobile, ChannelOperatorConsole, ChannelAPI, ChannelAgent:
		return Channel(raw), true
	}
	return "", false
}

// InteractionSession identifies a continuous period of interaction by one
// actor on one channel. The session id is assigned by the decision service
// and is immutable; DecisionIDs is append-only and never reordered or
// deduplicated. Expiry is external policy, not tracked here.
type InteractionSession struct {
	SessionID      string    `json:"session_id"`
	TenantID       string    `json:"tenant_id"`
	ActorType      ActorType `json:"actor_type"`
	ActorID        string    `json:"actor_id"`
	Channel        Channel   `json:"channel"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	DecisionIDs    []string  `json:"decision_ids"`
}

// AppendDecision records a decision id produced under this session and bumps
// the last-activity timestamp. This is the only mutation a session supports.
func (s *InteractionSession) AppendDecision(decisionID string, at time.Time) {
	s.DecisionIDs = append(s.DecisionIDs, decisionID)
	s.LastActivityAt = at
}
