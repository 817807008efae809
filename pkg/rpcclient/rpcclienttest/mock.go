// Package rpcclienttest provides a scriptable Client and Signer for
// pkg/statemachine's scenario tests (spec.md §8). It lives outside _test.go
// files so it can be imported by another package's tests, mirroring the
// teacher's MockLiteClient in accumulate-lite-client-2/liteclient/api.
package rpcclienttest

import (
	"context"
	"fmt"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/rpcclient"
)

// MockClient is a fully in-memory, scriptable rpcclient.Client.
type MockClient struct {
	Info    attestinfo.Info
	InfoErr error

	Done    bool
	DoneErr error

	// Status is consulted in FIFO order by AttestationStatus; the last
	// entry repeats once exhausted.
	Status    []rpcclient.TxStatus
	StatusErr error
	statusIdx int

	// BlockHashes maps block number to hash for GetBlockHash.
	BlockHashes map[uint64]felt.Felt
	BlockHashErr error

	Balance    *rpcclient.Balance
	BalanceErr error

	ChainIDValue felt.Felt
	ChainIDErr   error

	AttestErr error
	NextTxHash felt.Felt

	// AttestCalls records every Attest invocation, for assertions.
	AttestCalls []felt.Felt
}

var _ rpcclient.Client = (*MockClient)(nil)

func (m *MockClient) GetAttestationInfo(ctx context.Context, operationalAddress felt.Felt) (attestinfo.Info, error) {
	if m.InfoErr != nil {
		return attestinfo.Info{}, m.InfoErr
	}
	return m.Info, nil
}

func (m *MockClient) IsAttestationDoneInCurrentEpoch(ctx context.Context, stakerAddress felt.Felt) (bool, error) {
	if m.DoneErr != nil {
		return false, m.DoneErr
	}
	return m.Done, nil
}

func (m *MockClient) AttestationStatus(ctx context.Context, txHash felt.Felt) (rpcclient.TxStatus, error) {
	if m.StatusErr != nil {
		return rpcclient.TxStatus{}, m.StatusErr
	}
	if len(m.Status) == 0 {
		return rpcclient.TxStatus{Tag: rpcclient.TxReceived}, nil
	}
	idx := m.statusIdx
	if idx >= len(m.Status) {
		idx = len(m.Status) - 1
	} else {
		m.statusIdx++
	}
	return m.Status[idx], nil
}

func (m *MockClient) GetBlockHash(ctx context.Context, blockNumber uint64) (felt.Felt, error) {
	if m.BlockHashErr != nil {
		return felt.Felt{}, m.BlockHashErr
	}
	if h, ok := m.BlockHashes[blockNumber]; ok {
		return h, nil
	}
	return felt.Felt{}, fmt.Errorf("rpcclienttest: no block hash registered for %d", blockNumber)
}

func (m *MockClient) GetSTRKBalance(ctx context.Context, address felt.Felt) (*rpcclient.Balance, error) {
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return m.Balance, nil
}

func (m *MockClient) Attest(ctx context.Context, operationalAddress felt.Felt, signer rpcclient.Signer, blockHash felt.Felt) (felt.Felt, error) {
	m.AttestCalls = append(m.AttestCalls, blockHash)
	if m.AttestErr != nil {
		return felt.Felt{}, m.AttestErr
	}
	return m.NextTxHash, nil
}

func (m *MockClient) ChainID(ctx context.Context) (felt.Felt, error) {
	if m.ChainIDErr != nil {
		return felt.Felt{}, m.ChainIDErr
	}
	return m.ChainIDValue, nil
}

// MockSigner always returns a fixed signature; it never fails.
type MockSigner struct {
	Signature [2]felt.Felt
}

var _ rpcclient.Signer = (*MockSigner)(nil)

func (m *MockSigner) Sign(ctx context.Context, txHash felt.Felt, tmpl rpcclient.TxTemplate, chainID felt.Felt) ([2]felt.Felt, error) {
	return m.Signature, nil
}
