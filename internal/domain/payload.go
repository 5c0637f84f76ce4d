package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the action-specific body of an Intent. Each variant declares the
// (intent type, target type) pairing it is valid for, so the pairing and the
// body shape cannot drift apart. New pairings are added as new variants.
type Payload interface {
	PayloadKey() (IntentType, TargetType)
}

// PortfolioViewPayload requests a read of portfolio data.
type PortfolioViewPayload struct {
	AsOf     string   `json:"as_of,omitempty"`
	Sections []string `json:"sections,omitempty"`
}

func (PortfolioViewPayload) PayloadKey() (IntentType, TargetType) {
	return IntentView, TargetPortfolio
}

// OrderExecutePayload requests execution of a trade order.
type OrderExecutePayload struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
}

func (OrderExecutePayload) PayloadKey() (IntentType, TargetType) {
	return IntentExecute, TargetOrder
}

// AccountModifyPayload requests a change to a single account field.
type AccountModifyPayload struct {
	Field    string `json:"field"`
	NewValue string `json:"new_value"`
}

func (AccountModifyPayload) PayloadKey() (IntentType, TargetType) {
	return IntentModify, TargetAccount
}

// WorkflowRequestPayload asks the decision service to start a workflow.
type WorkflowRequestPayload struct {
	WorkflowType string            `json:"workflow_type"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

func (WorkflowRequestPayload) PayloadKey() (IntentType, TargetType) {
	return IntentRequest, TargetWorkflow
}

// DocumentConfirmPayload acknowledges a document version.
type DocumentConfirmPayload struct {
	Version      string `json:"version"`
	Acknowledged bool   `json:"acknowledged"`
}

func (DocumentConfirmPayload) PayloadKey() (IntentType, TargetType) {
	return IntentConfirm, TargetDocument
}

// OrderOverridePayload asks for a blocked order decision to be overridden.
type OrderOverridePayload struct {
	Justification string `json:"justification"`
}

func (OrderOverridePayload) PayloadKey() (IntentType, TargetType) {
	return IntentOverride, TargetOrder
}

// DecodePayload dispatches raw JSON to the payload variant registered for the
// (intent type, target type) pairing. Unsupported pairings are rejected.
func DecodePayload(intentType IntentType, targetType TargetType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	decode := func(p Payload) (Payload, error) {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("domain: decode %s/%s payload: %w", intentType, targetType, err)
		}
		return p, nil
	}

	switch {
	case intentType == IntentView && targetType == TargetPortfolio:
		p := &PortfolioViewPayload{}
		return decode(p)
	case intentType == IntentExecute && targetType == TargetOrder:
		p := &OrderExecutePayload{}
		return decode(p)
	case intentType == IntentModify && targetType == TargetAccount:
		p := &AccountModifyPayload{}
		return decode(p)
	case intentType == IntentRequest && targetType == TargetWorkflow:
		p := &WorkflowRequestPayload{}
		return decode(p)
	case intentType == IntentConfirm && targetType == TargetDocument:
		p := &DocumentConfirmPayload{}
		return decode(p)
	case intentType == IntentOverride && targetType == TargetOrder:
		p := &OrderOverridePayload{}
		return decode(p)
	}
	return nil, fmt.Errorf("domain: unsupported intent pairing %s/%s", intentType, targetType)
}
