package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stark-validator/attestor/pkg/attestinfo"
	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stark-validator/attestor/pkg/metrics"
	"github.com/stark-validator/attestor/pkg/rpcclient/rpcclienttest"
	"github.com/stark-validator/attestor/pkg/statemachine"
)

func TestRunShutsDownCleanlyOnContextCancellation(t *testing.T) {
	client := &rpcclienttest.MockClient{Info: attestinfo.ScenarioInfo()}
	logger := zaptest.NewLogger(t)
	machine := statemachine.New(client, metrics.New("supervisor-test-machine"), logger)

	sv := New(
		client,
		&rpcclienttest.MockSigner{},
		machine,
		metrics.New("supervisor-test-sv"),
		logger,
		"ws://127.0.0.1:1",
		felt.FromUint64(1),
		felt.FromUint64(2),
		attestinfo.ScenarioOp,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sv.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestWaitForRegistrationAbortsOnContextCancellation(t *testing.T) {
	client := &rpcclienttest.MockClient{
		InfoErr: errNotRegisteredOnce{},
	}
	logger := zaptest.NewLogger(t)
	machine := statemachine.New(client, metrics.New("wait-for-registration"), logger)
	sv := New(client, &rpcclienttest.MockSigner{}, machine, metrics.New("wait-for-registration-sv"), logger,
		"", felt.Zero(), felt.Zero(), attestinfo.ScenarioOp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sv.waitForRegistration(ctx)
	require.Error(t, err)
}

type errNotRegisteredOnce struct{}

func (errNotRegisteredOnce) Error() string { return "staker not registered" }
