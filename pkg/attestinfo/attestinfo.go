// Package attestinfo holds the per-epoch snapshot fetched from the staking
// contract, the derived attestation window, and the attestation lifecycle
// state, plus the pure oracle (C4) that computes which block a staker must
// attest to.
package attestinfo

import (
	"math/big"

	"github.com/stark-validator/attestor/pkg/felt"
)

// MinAttestationWindow is the chain-wide constant: block N's hash is only
// retrievable starting at block N+10.
const MinAttestationWindow = 10

// Info is the snapshot fetched from the staking contract for the staker
// this agent operates, valid for the current (or most recently seen) epoch.
type Info struct {
	StakerAddress             felt.Felt
	OperationalAddress        felt.Felt
	Stake                     *big.Int // u128
	EpochID                   uint64
	CurrentEpochStartingBlock uint64
	EpochLen                  uint64
	AttestationWindow         uint16
}

// BlockInCurrentEpoch reports whether block n falls within [start, start+len).
func (i Info) BlockInCurrentEpoch(n uint64) bool {
	return n >= i.CurrentEpochStartingBlock && n < i.CurrentEpochStartingBlock+i.EpochLen
}

// ComputeBlockToAttest is the C4 oracle: a pure function computing the exact
// block this staker must attest in the current epoch.
//
// m = epoch_len - attestation_window must be > 0; a violation is a
// configuration bug, so this function panics on it rather than returning
// a runtime error surfaced to the operator.
func ComputeBlockToAttest(i Info) uint64 {
	if i.EpochLen <= uint64(i.AttestationWindow) {
		panic("attestinfo: epoch_len must exceed attestation_window")
	}
	m := i.EpochLen - uint64(i.AttestationWindow)
	h := felt.Hash(felt.FromBigInt(i.Stake), felt.FromUint64(i.EpochID), i.StakerAddress)
	_, r := h.DivMod(felt.FromUint64(m))
	return i.CurrentEpochStartingBlock + r.Uint64()
}

// Params is the per-epoch attestation window derived once a State enters
// Attesting: half-open [Start, End) in block numbers, bound to the hash of
// BlockToAttest.
type Params struct {
	BlockHash felt.Felt
	Start     uint64
	End       uint64
}

// WindowCmp orders a block number n against the half-open window [Start, End).
type WindowCmp int

const (
	WindowLess WindowCmp = iota
	WindowEqual
	WindowGreater
)

// InWindow classifies n relative to the window: Less before Start, Equal for
// [Start, End), Greater once n >= End.
func (p Params) InWindow(n uint64) WindowCmp {
	switch {
	case n < p.Start:
		return WindowLess
	case n < p.End:
		return WindowEqual
	default:
		return WindowGreater
	}
}

// NewParams builds the AttestationParams for a given block_to_attest, its
// hash, and the window bound carried on Info.
func NewParams(blockToAttest uint64, blockHash felt.Felt, window uint16) Params {
	return Params{
		BlockHash: blockHash,
		Start:     blockToAttest + MinAttestationWindow,
		End:       blockToAttest + uint64(window),
	}
}
