package streams

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/felt"
)

type eventsSubscribeParams struct {
	FromAddress string     `json:"from_address,omitempty"`
	Keys        [][]string `json:"keys,omitempty"`
	BlockID     any        `json:"block_id,omitempty"`
}

type eventResult struct {
	Keys []string `json:"keys"`
	Data []string `json:"data"`
}

// RunEvents subscribes to starknet_subscribeEvents filtered by
// attestationContract and eventSelector, and pushes every matching
// StakerAttestationSuccessful event into eventsCh. keys[0] is the selector,
// keys[1] the staker address; data[0] the epoch id (spec.md §4.3). A reorg
// notification delivered on this subscription is routed to reorgCh.
func RunEvents(ctx context.Context, wsURL string, attestationContract, eventSelector felt.Felt, eventsCh chan<- Event, reorgCh chan<- Reorg, logger *zap.Logger) error {
	conn, err := dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer conn.close()

	subID, err := conn.subscribe("starknet_subscribeEvents", eventsSubscribeParams{
		FromAddress: attestationContract.Hex(),
		Keys:        [][]string{{eventSelector.Hex()}},
		BlockID:     "pending",
	})
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := conn.next()
		if err != nil {
			return err
		}

		if n.Params.SubscriptionID != subID {
			logger.Warn("streams: unexpected subscription id on events stream",
				zap.String("got", n.Params.SubscriptionID), zap.String("want", subID))
			continue
		}

		switch {
		case strings.HasSuffix(n.Method, "subscriptionEvents"):
			var r eventResult
			if err := json.Unmarshal(n.Params.Result, &r); err != nil {
				logger.Warn("streams: malformed event notification", zap.Error(err))
				continue
			}
			if len(r.Keys) < 2 || len(r.Data) < 1 {
				logger.Warn("streams: event notification missing keys/data", zap.Any("raw", r))
				continue
			}
			staker, err := felt.FromHex(r.Keys[1])
			if err != nil {
				logger.Warn("streams: malformed staker key", zap.Error(err))
				continue
			}
			epoch, err := felt.FromHex(r.Data[0])
			if err != nil {
				logger.Warn("streams: malformed epoch data", zap.Error(err))
				continue
			}
			select {
			case eventsCh <- Event{StakerAddress: staker, EpochID: epoch.Uint64()}:
			case <-ctx.Done():
				return nil
			}

		case strings.HasSuffix(n.Method, "subscriptionReorg"):
			var r reorgResult
			if err := json.Unmarshal(n.Params.Result, &r); err != nil {
				logger.Warn("streams: malformed reorg notification", zap.Error(err))
				continue
			}
			select {
			case reorgCh <- Reorg{StartingBlockNumber: r.StartingBlockNumber, EndingBlockNumber: r.EndingBlockNumber}:
			case <-ctx.Done():
				return nil
			}

		default:
			logger.Warn("streams: unknown notification on events stream", zap.String("method", n.Method))
		}
	}
}
