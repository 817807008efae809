package felt

import (
	"math/big"

	"github.com/consensys/gnark-crypto/hash"
)

// Hash computes the chain's standard domain hash H(inputs...) -> F.
//
// The real chain hash (Poseidon/Pedersen over the Starknet curve) is an
// external collaborator excluded from this agent's scope (see spec.md §1).
// This implementation stands in for it using gnark-crypto's MiMC hash over
// BN254, already a direct dependency of the teacher this codebase is
// descended from. It is deterministic and bit-exact for a fixed input
// sequence, which is all §3's "Derived" block_to_attest formula requires.
func Hash(inputs ...Felt) Felt {
	h := hash.MIMC_BN254.New()
	for _, in := range inputs {
		b := in.Bytes()
		padded := make([]byte, 32)
		copy(padded[32-len(b):], b)
		h.Write(padded)
	}
	sum := h.Sum(nil)
	var v big.Int
	v.SetBytes(sum)
	return FromBigInt(&v)
}
