// Package statemachine implements C5: reducing the live header/event/reorg
// stream into per-epoch attestation lifecycle transitions (spec.md §4.5).
// It is the core of the agent; pkg/supervisor drives it but holds none of
// this transition logic itself.
package statemachine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/metrics"
	"github.com/stark-validator/attestor/pkg/rpcclient"
	"github.com/stark-validator/attestor/pkg/streams"
)

// Machine reduces chain events into State transitions, calling out to a
// Client for reads/writes and a Metrics sink for observability. It carries
// no mutable state of its own — every method takes the current State and
// returns the next one, per spec.md §3 "State values are immutable".
type Machine struct {
	client  rpcclient.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds a Machine.
func New(client rpcclient.Client, m *metrics.Metrics, logger *zap.Logger) *Machine {
	return &Machine{client: client, metrics: m, logger: logger}
}

// FromAttestationInfo builds the initial State for a freshly fetched Info,
// refreshing the epoch gauges as a side effect. Called at startup, on epoch
// rollover, and after a reorg (spec.md §3 "Lifecycles").
func (m *Machine) FromAttestationInfo(info attestinfo.Info) attestinfo.State {
	s := attestinfo.FromInfo(info)
	m.updateEpochMetrics(s)
	return s
}

// HandleHeader is the fallible per-header transition (spec.md §4.5.1).
// operationalAddress/signer are threaded through for the epoch-rollover
// balance refresh and for check_and_submit's attest call.
func (m *Machine) HandleHeader(ctx context.Context, s attestinfo.State, operationalAddress felt.Felt, signer rpcclient.Signer, blockNumber uint64, blockHash felt.Felt) (attestinfo.State, error) {
	m.metrics.LatestBlockNumber.Set(float64(blockNumber))

	if !s.Info.BlockInCurrentEpoch(blockNumber) {
		info, err := m.client.GetAttestationInfo(ctx, operationalAddress)
		if err != nil {
			return attestinfo.State{}, fmt.Errorf("handle_header: epoch rollover: %w", err)
		}
		m.logger.Info("new epoch",
			zap.Uint64("epoch_id", info.EpochID),
			zap.Uint64("starting_block", info.CurrentEpochStartingBlock),
			zap.Uint64("epoch_len", info.EpochLen),
		)
		s = m.FromAttestationInfo(info)
		m.refreshBalance(ctx, operationalAddress)
	}

	switch s.Phase {
	case attestinfo.PhaseBeforeBlockToAttest:
		return m.dispatchBeforeBlockToAttest(ctx, s, blockNumber, blockHash)
	case attestinfo.PhaseAttesting:
		return m.dispatchAttesting(ctx, s, signer, blockNumber)
	case attestinfo.PhaseAttestationSubmitted:
		return m.dispatchSubmitted(ctx, s, signer, blockNumber)
	default: // PhaseWaitingForNextEpoch
		return s, nil
	}
}

func (m *Machine) dispatchBeforeBlockToAttest(ctx context.Context, s attestinfo.State, n uint64, h felt.Felt) (attestinfo.State, error) {
	switch {
	case n < s.BlockToAttest:
		return s, nil
	case n == s.BlockToAttest:
		params := attestinfo.NewParams(s.BlockToAttest, h, s.Info.AttestationWindow)
		return s.WithAttesting(params), nil
	default:
		h2, err := m.client.GetBlockHash(ctx, s.BlockToAttest)
		if err != nil {
			return attestinfo.State{}, fmt.Errorf("handle_header: late start get_block_hash: %w", err)
		}
		params := attestinfo.NewParams(s.BlockToAttest, h2, s.Info.AttestationWindow)
		return s.WithAttesting(params), nil
	}
}

func (m *Machine) dispatchAttesting(ctx context.Context, s attestinfo.State, signer rpcclient.Signer, n uint64) (attestinfo.State, error) {
	switch s.Params.InWindow(n) {
	case attestinfo.WindowLess:
		return s, nil
	case attestinfo.WindowEqual:
		return m.checkAndSubmit(ctx, s.Info, s.Params, signer)
	default: // WindowGreater
		m.checkAndMarkMissed(ctx, s.Info.StakerAddress)
		return s.WithWaiting(), nil
	}
}

func (m *Machine) dispatchSubmitted(ctx context.Context, s attestinfo.State, signer rpcclient.Signer, n uint64) (attestinfo.State, error) {
	if s.Params.InWindow(n) == attestinfo.WindowGreater {
		m.checkAndMarkMissed(ctx, s.Info.StakerAddress)
		return s.WithWaiting(), nil
	}

	status, err := m.client.AttestationStatus(ctx, s.TransactionHash)
	if err != nil {
		m.logger.Warn("attestation_status query failed, retrying next block", zap.Error(err))
		return s, nil
	}

	switch {
	case status.Tag == rpcclient.TxReceived:
		return s, nil
	case status.IsAccepted():
		m.metrics.AttestationConfirmedCount.Inc()
		return s.WithWaiting(), nil
	case status.IsTerminalFailure():
		m.metrics.AttestationFailureCount.Inc()
		m.logger.Warn("attestation rejected or reverted, retrying", zap.String("revert_reason", status.RevertReason))
		return m.checkAndSubmit(ctx, s.Info, s.Params, signer)
	default:
		return s, nil
	}
}

// checkAndSubmit is the transactional core (spec.md §4.5.1
// "check_and_submit"). A failure at the is-already-done check propagates to
// the caller (the header is rejected and the previous state restored); a
// failure to submit the attest transaction itself stays in Attesting.
func (m *Machine) checkAndSubmit(ctx context.Context, info attestinfo.Info, params attestinfo.Params, signer rpcclient.Signer) (attestinfo.State, error) {
	base := attestinfo.State{Info: info, Phase: attestinfo.PhaseAttesting, Params: params}

	done, err := m.client.IsAttestationDoneInCurrentEpoch(ctx, info.StakerAddress)
	if err != nil {
		return attestinfo.State{}, fmt.Errorf("check_and_submit: %w", err)
	}
	if done {
		return base.WithWaiting(), nil
	}

	txHash, err := m.client.Attest(ctx, info.OperationalAddress, signer, params.BlockHash)
	if err != nil {
		m.metrics.AttestationFailureCount.Inc()
		m.logger.Warn("attest failed", zap.Error(err))
		return base, nil
	}

	m.metrics.LastAttestationTimestampSeconds.SetToCurrentTime()
	m.metrics.AttestationSubmittedCount.Inc()
	return base.WithSubmitted(txHash), nil
}

// checkAndMarkMissed queries whether the epoch was attested by another path
// once the window has closed, incrementing the missed counter pessimistically
// on query failure (spec.md §4.5.1 "check_and_mark_missed").
func (m *Machine) checkAndMarkMissed(ctx context.Context, stakerAddress felt.Felt) {
	done, err := m.client.IsAttestationDoneInCurrentEpoch(ctx, stakerAddress)
	switch {
	case err != nil:
		m.logger.Error("check_and_mark_missed: query failed, assuming missed", zap.Error(err))
		m.metrics.MissedEpochsCount.Inc()
	case !done:
		m.logger.Warn("epoch window closed without attestation")
		m.metrics.MissedEpochsCount.Inc()
	default:
		m.logger.Info("epoch already attested by another path")
	}
}

// HandleEvent is the infallible event-driven confirmation path (spec.md
// §4.5.2). It is an alternate path to the status poll in dispatchSubmitted;
// whichever confirms first wins, and double counting across both is
// acceptable but minimised by transitioning on first confirmation.
func (m *Machine) HandleEvent(s attestinfo.State, evt streams.Event) attestinfo.State {
	inFlight := s.Phase == attestinfo.PhaseAttesting || s.Phase == attestinfo.PhaseAttestationSubmitted
	if inFlight && s.Info.StakerAddress.Equal(evt.StakerAddress) && s.Info.EpochID == evt.EpochID {
		m.metrics.AttestationConfirmedCount.Inc()
		return s.WithWaiting()
	}
	m.logger.Debug("event ignored", zap.Uint64("event_epoch", evt.EpochID))
	return s
}

// HandleReorg reinitialises State from a fresh AttestationInfo fetch
// (spec.md §4.5.3). On error, the supervisor is responsible for sleeping
// TASK_RESTART_DELAY and requeuing the reorg.
func (m *Machine) HandleReorg(ctx context.Context, operationalAddress felt.Felt) (attestinfo.State, error) {
	info, err := m.client.GetAttestationInfo(ctx, operationalAddress)
	if err != nil {
		return attestinfo.State{}, fmt.Errorf("handle_reorg: %w", err)
	}
	m.logger.Info("reorg: rebuilt state from fresh attestation info", zap.Uint64("epoch_id", info.EpochID))
	return m.FromAttestationInfo(info), nil
}

func (m *Machine) updateEpochMetrics(s attestinfo.State) {
	m.metrics.CurrentEpochID.Set(float64(s.Info.EpochID))
	m.metrics.CurrentEpochStartingBlockNumber.Set(float64(s.Info.CurrentEpochStartingBlock))
	m.metrics.CurrentEpochLength.Set(float64(s.Info.EpochLen))
	m.metrics.CurrentEpochAssignedBlockNumber.Set(float64(s.BlockToAttest))
}

func (m *Machine) refreshBalance(ctx context.Context, operationalAddress felt.Felt) {
	bal, err := m.client.GetSTRKBalance(ctx, operationalAddress)
	if err != nil {
		m.logger.Warn("refresh operational balance failed", zap.Error(err))
		return
	}
	m.metrics.OperationalAccountBalanceSTRK.Set(bal.AsSTRK())
}
