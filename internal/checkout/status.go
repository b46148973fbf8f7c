package checkout

// State is where the checkout attempt currently is.
type State string

const (
	StateNone            State = "none"
	StateSubmitting      State = "draft_submitting"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirming      State = "confirming"
	StateConfirmed       State = "confirmed"
	StateFailed          State = "failed"
	StateCancelled       State = "cancelled"
)

// idle states accept a new Submit.
func (s State) idle() bool {
	switch s {
	case StateNone, StateFailed, StateConfirmed, StateCancelled:
		return true
	default:
		return false
	}
}

// InFlight reports whether a network call is pending for this state.
func (s State) InFlight() bool {
	return s == StateSubmitting || s == StateConfirming
}
