package exec

import (
	"fmt"

	"github.com/tkarvo/pulsedeck/internal/validate"
)

// StateError reports an illegal run lifecycle transition.
type StateError struct {
	From State
	To   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal run state transition %s -> %s", e.From, e.To)
}

// BudgetExceededError reports a run that would render more samples than
// the configured budget. Needed is the running total including the
// schedule that broke the budget.
type BudgetExceededError struct {
	Budget   int64
	Needed   int64
	Schedule int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("sample budget exceeded at schedule %d: %d samples needed, %d budgeted",
		e.Schedule, e.Needed, e.Budget)
}

// ReferenceError reports a reference the executor could not resolve.
// Execute validates before walking, so reaching one means the playlist
// was mutated after validation or a resolution helper was handed a
// foreign descriptor.
type ReferenceError struct {
	Code    validate.Code
	Channel string
	Detail  string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: channel %q: %s", e.Code, e.Channel, e.Detail)
}
