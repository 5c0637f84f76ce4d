package domain

import "fmt"

// DecisionState is the lifecycle stage of a decision. The stage set is owned
// by the decision service and treated as an open enumeration here: the named
// constants below are the known stages, and unknown values are passed through
// untouched so upstream contract changes do not break rendering.
type DecisionState string

const (
	DecisionStateReceived         DecisionState = "RECEIVED"
	DecisionStateEvaluated        DecisionState = "EVALUATED"
	DecisionStateAwaitingApproval DecisionState = "AWAITING_APPROVAL"
	DecisionStateExecuted         DecisionState = "EXECUTED"
	DecisionStateClosed           DecisionState = "CLOSED"
)

// AutomationLevel is the degree of automatic execution permitted for a
// decision's action.
type AutomationLevel string

const (
	AutomationHuman      AutomationLevel = "HUMAN"
	AutomationAssisted   AutomationLevel = "ASSISTED"
	AutomationAutonomous AutomationLevel = "AUTONOMOUS"
)

// DecisionOutcome is the overall result of a successfully evaluated decision.
type DecisionOutcome string

const (
	OutcomeApproved  DecisionOutcome = "APPROVED"
	OutcomeBlocked   DecisionOutcome = "BLOCKED"
	OutcomeEscalated DecisionOutcome = "ESCALATED"
	OutcomePending   DecisionOutcome = "PENDING"
)

// DecisionOutcomeView is the result of a successfully evaluated decision.
// Outcome/automation consistency (e.g. AUTONOMOUS never pairs with PENDING)
// is enforced by the decision service at generation time; the client renders
// what it is given.
type DecisionOutcomeView struct {
	DecisionID      string          `json:"decision_id"`
	DecisionState   DecisionState   `json:"decision_state"`
	AutomationLevel AutomationLevel `json:"automation_level"`
	Outcome         DecisionOutcome `json:"outcome"`
	Message         string          `json:"message"`
	ReasonCodes     []string        `json:"reason_codes,omitempty"`
}

// FailedInvariant names which guarantee could not be satisfied when a
// decision cannot proceed.
type FailedInvariant string

const (
	InvariantPolicy       FailedInvariant = "POLICY"
	InvariantAuthority    FailedInvariant = "AUTHORITY"
	InvariantEvidence     FailedInvariant = "EVIDENCE"
	InvariantState        FailedInvariant = "STATE"
	InvariantIntervention FailedInvariant = "INTERVENTION"
)

// EscalationOptionType is a possible next step offered for a blocked decision.
type EscalationOptionType string

const (
	OptionRequestEvidence     EscalationOptionType = "REQUEST_EVIDENCE"
	OptionRequestAuthority    EscalationOptionType = "REQUEST_AUTHORITY"
	OptionEscalateToHuman     EscalationOptionType = "ESCALATE_TO_HUMAN"
	OptionDowngradeAutomation EscalationOptionType = "DOWNGRADE_AUTOMATION"
	OptionAbandon             EscalationOptionType = "ABANDON"
)

// EscalationOption is one offered next step. ReasonIfBlocked must be present
// if and only if the option is not permitted.
type EscalationOption struct {
	OptionType      EscalationOptionType `json:"option_type"`
	Permitted       bool                 `json:"permitted"`
	ReasonIfBlocked string               `json:"reason_if_blocked,omitempty"`
}

// Validate enforces the reason-iff-blocked invariant on a single option.
func (o EscalationOption) Validate() error {
	if o.Permitted && o.ReasonIfBlocked != "" {
		return fmt.Errorf("domain: escalation option %s is permitted but carries a blocked reason", o.OptionType)
	}
	if !o.Permitted && o.ReasonIfBlocked == "" {
		return fmt.Errorf("domain: escalation option %s is blocked without a reason", o.OptionType)
	}
	return nil
}

// DecisionExceptionContext is the result when a decision cannot proceed. It
// is a structured "no", delivered over a successful round trip, never a
// transport failure. EscalationOptions keeps server order: the first option
// is the recommended path.
type DecisionExceptionContext struct {
	DecisionID        string             `json:"decision_id"`
	FailedInvariant   FailedInvariant    `json:"failed_invariant"`
	FailureCode       string             `json:"failure_code"`
	FailureMessage    string             `json:"failure_message"`
	RequiredState     string             `json:"required_state,omitempty"`
	MissingItems      []string           `json:"missing_items,omitempty"`
	EscalationOptions []EscalationOption `json:"escalation_options"`
}
