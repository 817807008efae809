package rpcclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	af := AttestationFailed("reverted: insufficient balance")
	require.True(t, IsAttestationFailed(af))

	other := Other("starknet_call", errors.New("dial tcp: timeout"))
	require.False(t, IsAttestationFailed(other))

	require.ErrorIs(t, other, errors.Unwrap(other))
}

func TestTxStatusClassification(t *testing.T) {
	require.True(t, TxStatus{Tag: TxAcceptedOnL1, ExecutionState: ExecutionSucceeded}.IsAccepted())
	require.True(t, TxStatus{Tag: TxAcceptedOnL2, ExecutionState: ExecutionSucceeded}.IsAccepted())
	require.False(t, TxStatus{Tag: TxAcceptedOnL1, ExecutionState: ExecutionReverted}.IsAccepted())

	require.True(t, TxStatus{Tag: TxRejected}.IsTerminalFailure())
	require.True(t, TxStatus{Tag: TxAcceptedOnL2, ExecutionState: ExecutionReverted}.IsTerminalFailure())
	require.False(t, TxStatus{Tag: TxReceived}.IsTerminalFailure())
	require.False(t, TxStatus{Tag: TxAcceptedOnL1, ExecutionState: ExecutionSucceeded}.IsTerminalFailure())
}

func TestSelectorDeterministic(t *testing.T) {
	require.True(t, selector("attest").Equal(selector("attest")))
	require.False(t, selector("attest").Equal(selector("get_nonce")))
}
