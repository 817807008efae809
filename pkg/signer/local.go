// Package signer implements the two Signer variants consumed by
// pkg/rpcclient (C3): a local in-process key and a remote HTTP signer. The
// Signer interface itself is declared in pkg/rpcclient, not here, so this
// package can depend on rpcclient's TxTemplate/ResourceBounds types without
// creating an import cycle (rpcclient never imports pkg/signer).
//
// The actual ECDSA primitive over the chain's curve is an external
// collaborator per the agent's contract (see pkg/felt's package doc); the
// signing step here uses the same domain hash H as a stand-in, matching the
// rest of this codebase's treatment of F as opaque outside of equality,
// codec, and H.
package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/rpcclient"
)

// LocalSigner holds the operational account's private scalar in memory and
// signs non-interactively. Grounded on the teacher's loadOrGenerateEd25519Key
// flow for the "key material lives in the process" shape, adapted to the
// chain's own scalar field instead of Ed25519.
type LocalSigner struct {
	privateKey felt.Felt
}

var _ rpcclient.Signer = (*LocalSigner)(nil)

// NewLocalSigner builds a LocalSigner from a private scalar. Per spec.md §6,
// this value is read by the caller from the …_OPERATIONAL_PRIVATE_KEY
// environment variable, never from a flag or file.
func NewLocalSigner(privateKey *big.Int) *LocalSigner {
	return &LocalSigner{privateKey: felt.FromBigInt(privateKey)}
}

// Sign computes a two-element signature over txHash. Local signing is
// non-interactive: it never touches the network.
func (s *LocalSigner) Sign(ctx context.Context, txHash felt.Felt, tmpl rpcclient.TxTemplate, chainID felt.Felt) ([2]felt.Felt, error) {
	if s.privateKey.IsZero() {
		return [2]felt.Felt{}, fmt.Errorf("signer: local private key is unset")
	}
	r := felt.Hash(s.privateKey, txHash, chainID)
	sVal := felt.Hash(s.privateKey, r, txHash)
	return [2]felt.Felt{r, sVal}, nil
}
