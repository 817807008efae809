package attestinfo

import (
	"math/big"
	"testing"

	"github.com/stark-validator/attestor/pkg/felt"
	"github.com/stretchr/testify/require"
)

// Scenario constants shared across this package and pkg/statemachine tests
// (spec.md §8 "Concrete end-to-end scenarios").
var (
	ScenarioStaker = felt.FromUint64(0xdeadbeef)
	ScenarioOp     = felt.FromUint64(0xfeedbeef)
)

const (
	ScenarioStake       = 1000
	ScenarioEpochID     = 1
	ScenarioEpochStart  = 0
	ScenarioEpochLen    = 40
	ScenarioWindow      = 20
)

func ScenarioInfo() Info {
	return Info{
		StakerAddress:             ScenarioStaker,
		OperationalAddress:        ScenarioOp,
		Stake:                     big.NewInt(ScenarioStake),
		EpochID:                   ScenarioEpochID,
		CurrentEpochStartingBlock: ScenarioEpochStart,
		EpochLen:                  ScenarioEpochLen,
		AttestationWindow:         ScenarioWindow,
	}
}

func TestComputeBlockToAttestInRange(t *testing.T) {
	info := ScenarioInfo()
	b := ComputeBlockToAttest(info)

	m := info.EpochLen - uint64(info.AttestationWindow)
	require.GreaterOrEqual(t, b, info.CurrentEpochStartingBlock)
	require.Less(t, b, info.CurrentEpochStartingBlock+m)
}

func TestComputeBlockToAttestDeterministic(t *testing.T) {
	info := ScenarioInfo()
	require.Equal(t, ComputeBlockToAttest(info), ComputeBlockToAttest(info))
}

func TestComputeBlockToAttestPanicsOnBadConfig(t *testing.T) {
	info := ScenarioInfo()
	info.AttestationWindow = uint16(info.EpochLen) // m == 0
	require.Panics(t, func() { ComputeBlockToAttest(info) })
}

func TestBlockInCurrentEpoch(t *testing.T) {
	info := ScenarioInfo()
	require.True(t, info.BlockInCurrentEpoch(0))
	require.True(t, info.BlockInCurrentEpoch(39))
	require.False(t, info.BlockInCurrentEpoch(40))
}

func TestParamsInWindow(t *testing.T) {
	p := NewParams(10, felt.FromUint64(0x123456789abcdef), ScenarioWindow)
	require.Equal(t, uint64(20), p.Start)
	require.Equal(t, uint64(30), p.End)

	require.Equal(t, WindowLess, p.InWindow(19))
	require.Equal(t, WindowEqual, p.InWindow(20))
	require.Equal(t, WindowEqual, p.InWindow(29))
	require.Equal(t, WindowGreater, p.InWindow(30))
}
