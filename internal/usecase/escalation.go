package usecase

import (
	"ultrawealth-client/internal/domain"
)

// EscalationAction is one next step the UI can offer for a blocked decision.
// Reason carries the server's blocked reason verbatim and is empty for
// enabled actions.
type EscalationAction struct {
	Type    domain.EscalationOptionType `json:"type"`
	Enabled bool                        `json:"enabled"`
	Reason  string                      `json:"reason,omitempty"`
}

// ExceptionView is the rendered form of a DecisionExceptionContext: which
// actions are available, which are blocked and why, and whether the exception
// is a dead end (no permitted option at all). Actions preserve server order;
// the first action is the recommended path.
type ExceptionView struct {
	DecisionID      string                 `json:"decision_id"`
	FailedInvariant domain.FailedInvariant `json:"failed_invariant"`
	FailureCode     string                 `json:"failure_code"`
	Message         string                 `json:"message"`
	RequiredState   string                 `json:"required_state,omitempty"`
	MissingItems    []string               `json:"missing_items,omitempty"`
	Actions         []EscalationAction     `json:"actions"`
	DeadEnd         bool                   `json:"dead_end"`
}

// InterpretException maps a decision exception to the action set the UI may
// render. Options are taken in the order provided, a blocked option's reason
// is copied verbatim, and no reason is ever synthesized. An option violating
// the reason-iff-blocked contract is an upstream protocol error.
func InterpretException(exc *domain.DecisionExceptionContext) (*ExceptionView, error) {
	view := &ExceptionView{
		DecisionID:      exc.DecisionID,
		FailedInvariant: exc.FailedInvariant,
		FailureCode:     exc.FailureCode,
		Message:         exc.FailureMessage,
		RequiredState:   exc.RequiredState,
		MissingItems:    exc.MissingItems,
		Actions:         make([]EscalationAction, 0, len(exc.EscalationOptions)),
		DeadEnd:         true,
	}

	for _, opt := range exc.EscalationOptions {
		if err := opt.Validate(); err != nil {
			return nil, newError(ErrorUpstream, "exception_malformed_option", err)
		}
		view.Actions = append(view.Actions, EscalationAction{
			Type:    opt.OptionType,
			Enabled: opt.Permitted,
			Reason:  opt.ReasonIfBlocked,
		})
		if opt.Permitted {
			view.DeadEnd = false
		}
	}
	return view, nil
}

// ActionEnabled reports whether an option type may be acted on. An option
// type absent from the list is not actionable, exactly like a blocked one,
// but carries no reason because the server never offered it.
func (v *ExceptionView) ActionEnabled(t domain.EscalationOptionType) bool {
	for _, a := range v.Actions {
		if a.Type == t {
			return a.Enabled
		}
	}
	return false
}
