// Package supervisor is C6: owns the three subscription streams, the
// mutable State, and the single cooperative select loop that drives the
// state machine and handles shutdown (spec.md §4.6).
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/metrics"
	"github.com/stark-validator/attestor/pkg/rpcclient"
	"github.com/stark-validator/attestor/pkg/statemachine"
	"github.com/stark-validator/attestor/pkg/streams"
)

// TaskRestartDelay is the fixed backoff applied to a failed stream task and
// to a failed reorg re-query. There is no exponential backoff (spec.md
// §4.6).
const TaskRestartDelay = 5 * time.Second

// Supervisor drives the agent's single event loop, grounded on the
// teacher's signal.Notify/select shutdown pattern in main.go, generalised
// from one HTTP server to two supervised stream tasks (headers and events,
// both of which also feed the reorg channel) plus the state machine.
type Supervisor struct {
	client  rpcclient.Client
	signer  rpcclient.Signer
	machine *statemachine.Machine
	metrics *metrics.Metrics
	logger  *zap.Logger

	nodeWebsocketURL     string
	attestationContract  felt.Felt
	eventSelector        felt.Felt
	operationalAddress   felt.Felt

	headersCh chan streams.Header
	eventsCh  chan streams.Event
	reorgCh   chan streams.Reorg

	// transactionsCh is the reserved "transactions" subscription channel:
	// its output is consumed but never acted upon (spec.md §9 open
	// question). It is never wired to a running stream task.
	transactionsCh chan struct{}
}

// New builds a Supervisor. operationalAddress is the agent's own signer
// address; attestationContract/eventSelector parameterise the events
// subscription filter.
func New(
	client rpcclient.Client,
	signer rpcclient.Signer,
	machine *statemachine.Machine,
	m *metrics.Metrics,
	logger *zap.Logger,
	nodeWebsocketURL string,
	attestationContract felt.Felt,
	eventSelector felt.Felt,
	operationalAddress felt.Felt,
) *Supervisor {
	return &Supervisor{
		client:              client,
		signer:              signer,
		machine:             machine,
		metrics:             m,
		logger:              logger,
		nodeWebsocketURL:    nodeWebsocketURL,
		attestationContract: attestationContract,
		eventSelector:       eventSelector,
		operationalAddress:  operationalAddress,
		headersCh:           make(chan streams.Header, streams.QueueCapacity),
		eventsCh:            make(chan streams.Event, streams.QueueCapacity),
		reorgCh:             make(chan streams.Reorg, streams.QueueCapacity),
		transactionsCh:      make(chan struct{}, streams.QueueCapacity),
	}
}

// Run executes the cooperative select loop until a shutdown signal arrives
// or ctx is cancelled, returning nil on clean shutdown (spec.md §6 "Exit
// codes").
func (sv *Supervisor) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	state, err := sv.waitForRegistration(ctx)
	if err != nil {
		return err
	}

	headerErrCh := sv.startHeaders(ctx)
	eventErrCh := sv.startEvents(ctx)

	for {
		select {
		case <-ctx.Done():
			sv.logger.Info("supervisor: context cancelled, shutting down")
			return nil

		case sig := <-sigCh:
			sv.logger.Info("supervisor: shutdown signal received", zap.String("signal", sig.String()))
			return nil

		case err := <-headerErrCh:
			sv.logger.Error("supervisor: headers stream terminated, restarting", zap.Error(err), zap.Duration("delay", TaskRestartDelay))
			headerErrCh = sv.restartAfterDelay(ctx, sv.startHeaders)

		case err := <-eventErrCh:
			sv.logger.Error("supervisor: events stream terminated, restarting", zap.Error(err), zap.Duration("delay", TaskRestartDelay))
			eventErrCh = sv.restartAfterDelay(ctx, sv.startEvents)

		case h := <-sv.headersCh:
			snapshot := state
			next, err := sv.machine.HandleHeader(ctx, state, sv.operationalAddress, sv.signer, h.BlockNumber, h.BlockHash)
			if err != nil {
				sv.logger.Error("supervisor: handle_header failed, restoring previous state", zap.Error(err))
				state = snapshot
				continue
			}
			state = next

		case e := <-sv.eventsCh:
			state = sv.machine.HandleEvent(state, e)

		case r := <-sv.reorgCh:
			state = sv.handleReorg(ctx, r, state)

		case <-sv.transactionsCh:
			// Reserved extension point; acknowledged but does not drive
			// state (spec.md §4.6 item 5).
			sv.logger.Debug("supervisor: transaction notification received (reserved, ignored)")
		}
	}
}

func (sv *Supervisor) waitForRegistration(ctx context.Context) (attestinfo.State, error) {
	for {
		info, err := sv.client.GetAttestationInfo(ctx, sv.operationalAddress)
		if err == nil {
			return sv.machine.FromAttestationInfo(info), nil
		}
		sv.logger.Warn("supervisor: staker not yet registered, retrying", zap.Error(err), zap.Duration("delay", TaskRestartDelay))
		select {
		case <-time.After(TaskRestartDelay):
		case <-ctx.Done():
			return attestinfo.State{}, ctx.Err()
		}
	}
}

func (sv *Supervisor) startHeaders(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- streams.RunHeaders(ctx, sv.nodeWebsocketURL, sv.headersCh, sv.reorgCh, sv.logger)
	}()
	return errCh
}

func (sv *Supervisor) startEvents(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- streams.RunEvents(ctx, sv.nodeWebsocketURL, sv.attestationContract, sv.eventSelector, sv.eventsCh, sv.reorgCh, sv.logger)
	}()
	return errCh
}

// restartAfterDelay reschedules start after TaskRestartDelay, reusing the
// same bounded channels; it never blocks the caller's select loop.
func (sv *Supervisor) restartAfterDelay(ctx context.Context, start func(context.Context) <-chan error) <-chan error {
	out := make(chan error, 1)
	go func() {
		select {
		case <-time.After(TaskRestartDelay):
		case <-ctx.Done():
			out <- ctx.Err()
			return
		}
		out <- <-start(ctx)
	}()
	return out
}

// handleReorg re-queries attestation info and rebuilds state; on failure it
// requeues the same reorg notification after TaskRestartDelay without
// blocking the caller (spec.md §4.5.3).
func (sv *Supervisor) handleReorg(ctx context.Context, r streams.Reorg, state attestinfo.State) attestinfo.State {
	sv.logger.Warn("supervisor: reorg received",
		zap.Uint64("starting_block_number", r.StartingBlockNumber),
		zap.Uint64("ending_block_number", r.EndingBlockNumber))

	next, err := sv.machine.HandleReorg(ctx, sv.operationalAddress)
	if err != nil {
		sv.logger.Error("supervisor: handle_reorg failed, requeueing", zap.Error(err))
		go func() {
			select {
			case <-time.After(TaskRestartDelay):
			case <-ctx.Done():
				return
			}
			select {
			case sv.reorgCh <- r:
			case <-ctx.Done():
			}
		}()
		return state
	}
	return next
}
