package domain

import "time"

// IntentType classifies what a user intent asks for.
type IntentType string

const (
	IntentView     IntentType = "VIEW"
	IntentModify   IntentType = "MODIFY"
	IntentExecute  IntentType = "EXECUTE"
	IntentRequest  IntentType = "REQUEST"
	IntentConfirm  IntentType = "CONFIRM"
	IntentOverride IntentType = "OVERRIDE"
)

// TargetType classifies what a user intent acts on.
type TargetType string

const (
	TargetPortfolio TargetType = "PORTFOLIO"
	TargetAccount   TargetType = "ACCOUNT"
	TargetOrder     TargetType = "ORDER"
	TargetWorkflow  TargetType = "WORKFLOW"
	TargetDocument  TargetType = "DOCUMENT"
)

// Intent is a single user-initiated action request. It is immutable once
// built and is answered by exactly one decision response (outcome or
// exception). The payload is forwarded opaquely; the decision service owns
// its semantic validation.
type Intent struct {
	IntentID    string     `json:"intent_id"`
	SessionID   string     `json:"session_id"`
	IntentType  IntentType `json:"intent_type"`
	TargetType  TargetType `json:"target_type"`
	TargetID    string     `json:"target_id,omitempty"`
	Payload     Payload    `json:"payload"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// NewIntent builds an Intent around a payload. The intent and target types
// are derived from the payload variant, so a mismatched pairing cannot be
// constructed.
func NewIntent(intentID, sessionID, targetID string, payload Payload, submittedAt time.Time) Intent {
	intentType, targetType := payload.PayloadKey()
	return Intent{
		IntentID:    intentID,
		SessionID:   sessionID,
		IntentType:  intentType,
		TargetType:  targetType,
		TargetID:    targetID,
		Payload:     payload,
		SubmittedAt: submittedAt,
	}
}
