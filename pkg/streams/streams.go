// Package streams implements the three supervised WebSocket subscriptions
// (C2): new block headers, attestation events, and reorg notifications.
// Headers and events each run as one long-lived function (RunHeaders,
// RunEvents) that owns its own connection and exits with an error on any
// protocol or transport failure; the supervisor (pkg/supervisor) is
// responsible for restarting it. Reorg notifications have no connection of
// their own: both functions forward them to the shared reorg channel.
package streams

import "github.com/stark-validator/attestor/pkg/felt"

// Header is delivered for every accepted block on the tip.
type Header struct {
	BlockHash   felt.Felt
	BlockNumber uint64
}

// Event is a StakerAttestationSuccessful log filtered by the attestation
// contract address and event selector.
type Event struct {
	StakerAddress felt.Felt
	EpochID       uint64
}

// Reorg is delivered when blocks in [StartingBlockNumber,
// EndingBlockNumber] are no longer canonical. It may arrive on either the
// headers or the events subscription; both streams route it to the same
// channel.
type Reorg struct {
	StartingBlockNumber uint64
	EndingBlockNumber   uint64
}

// QueueCapacity is the bounded channel size between each stream task and the
// supervisor (spec.md §4.3): backpressure is the desired behaviour if the
// supervisor falls behind.
const QueueCapacity = 10
