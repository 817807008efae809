package attestinfo

import "github.com/stark-validator/attestor/pkg/felt"

// Phase tags which variant of State is active. State is a single struct
// carrying this tag plus the fields of every variant; callers dispatch with
// a switch on Phase rather than through an open class hierarchy.
type Phase int

const (
	PhaseBeforeBlockToAttest Phase = iota
	PhaseAttesting
	PhaseAttestationSubmitted
	PhaseWaitingForNextEpoch
)

func (p Phase) String() string {
	switch p {
	case PhaseBeforeBlockToAttest:
		return "BeforeBlockToAttest"
	case PhaseAttesting:
		return "Attesting"
	case PhaseAttestationSubmitted:
		return "AttestationSubmitted"
	case PhaseWaitingForNextEpoch:
		return "WaitingForNextEpoch"
	default:
		return "Unknown"
	}
}

// State is immutable: every transition in pkg/statemachine produces a new
// State value rather than mutating one in place (spec.md §3 "Lifecycles").
type State struct {
	Info  Info
	Phase Phase

	// Valid only when Phase == PhaseBeforeBlockToAttest.
	BlockToAttest uint64

	// Valid when Phase is Attesting or AttestationSubmitted.
	Params Params

	// Valid only when Phase == PhaseAttestationSubmitted.
	TransactionHash felt.Felt
}

// FromInfo builds the initial State for a freshly (re)fetched Info, per
// spec.md §3 "Lifecycles": created at startup, on epoch rollover, and after
// a reorg.
func FromInfo(info Info) State {
	return State{
		Info:          info,
		Phase:         PhaseBeforeBlockToAttest,
		BlockToAttest: ComputeBlockToAttest(info),
	}
}

// WithAttesting returns a copy of s transitioned into Attesting with the
// given params.
func (s State) WithAttesting(params Params) State {
	s.Phase = PhaseAttesting
	s.Params = params
	s.TransactionHash = felt.Zero()
	return s
}

// WithSubmitted returns a copy of s transitioned into AttestationSubmitted,
// keeping the same Params.
func (s State) WithSubmitted(txHash felt.Felt) State {
	s.Phase = PhaseAttestationSubmitted
	s.TransactionHash = txHash
	return s
}

// WithWaiting returns a copy of s transitioned into WaitingForNextEpoch; per
// spec.md §3 "Lifecycles", AttestationParams is destroyed on entry to this
// phase.
func (s State) WithWaiting() State {
	s.Phase = PhaseWaitingForNextEpoch
	s.Params = Params{}
	s.TransactionHash = felt.Zero()
	return s
}
