package rpcclient

import (
	"math/big"

	"github.com/stark-validator/attestor/pkg/felt"
)

// Balance is a u128 native-token balance.
type Balance struct {
	Value *big.Int
}

// ExecutionStatus is the outcome of a transaction accepted onto L1 or L2.
type ExecutionStatus int

const (
	ExecutionSucceeded ExecutionStatus = iota
	ExecutionReverted
)

// TxStatus is the tagged status returned by AttestationStatus, per
// spec.md §4.2.
type TxStatus struct {
	Tag            TxStatusTag
	ExecutionState ExecutionStatus
	RevertReason   string
}

type TxStatusTag int

const (
	TxReceived TxStatusTag = iota
	TxRejected
	TxAcceptedOnL2
	TxAcceptedOnL1
)

// IsAccepted reports whether the status is AcceptedOnL1 or AcceptedOnL2 with
// a Succeeded execution outcome.
func (s TxStatus) IsAccepted() bool {
	return (s.Tag == TxAcceptedOnL1 || s.Tag == TxAcceptedOnL2) && s.ExecutionState == ExecutionSucceeded
}

// IsTerminalFailure reports whether the status represents Rejected or a
// Reverted execution — the two outcomes that drive an immediate retry from
// AttestationSubmitted per spec.md §9.
func (s TxStatus) IsTerminalFailure() bool {
	if s.Tag == TxRejected {
		return true
	}
	return (s.Tag == TxAcceptedOnL1 || s.Tag == TxAcceptedOnL2) && s.ExecutionState == ExecutionReverted
}

// ResourceBounds mirrors the tri-resource fee bounds of a v3 invoke
// transaction (spec.md §4.4).
type ResourceBounds struct {
	MaxAmount       uint64
	MaxPricePerUnit uint64 // u128 on the wire, held here truncated to 64 bits
}

// TxTemplate is the v3 invoke transaction template passed to a Signer
// (spec.md §4.4).
type TxTemplate struct {
	SenderAddress         felt.Felt
	Calldata              []felt.Felt
	Nonce                 uint64
	L1Gas                 ResourceBounds
	L2Gas                 ResourceBounds
	L1DataGas             ResourceBounds
	Tip                   uint64
	PaymasterData         []felt.Felt
	AccountDeploymentData []felt.Felt
	IsQuery               bool
}
