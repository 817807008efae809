package streams

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/stark-validator/attestor/pkg/felt"
)

type newHeadsResult struct {
	BlockHash   string `json:"block_hash"`
	BlockNumber uint64 `json:"block_number"`
}

type reorgResult struct {
	StartingBlockNumber uint64 `json:"starting_block_number"`
	EndingBlockNumber   uint64 `json:"ending_block_number"`
}

// RunHeaders subscribes to starknet_subscribeNewHeads and pushes every
// accepted head into headersCh. A reorg notification delivered on this
// subscription is routed to reorgCh instead. It blocks until ctx is
// cancelled or a protocol/transport error occurs, in which case it returns
// that error for the supervisor to act on (spec.md §4.3, §4.6).
func RunHeaders(ctx context.Context, wsURL string, headersCh chan<- Header, reorgCh chan<- Reorg, logger *zap.Logger) error {
	conn, err := dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer conn.close()

	subID, err := conn.subscribe("starknet_subscribeNewHeads", nil)
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
			logger.Warn("streams: unexpected subscription id on headers stream",
				zap.String("got", n.Params.SubscriptionID), zap.String("want", subID))
			continue
		}

		switch {
		case strings.HasSuffix(n.Method, "subscriptionNewHeads"):
			var r newHeadsResult
			if err := json.Unmarshal(n.Params.Result, &r); err != nil {
				logger.Warn("streams: malformed head notification", zap.Error(err))
				continue
			}
			hash, err := felt.FromHex(r.BlockHash)
			if err != nil {
				logger.Warn("streams: malformed block hash", zap.Error(err))
				continue
			}
			select {
			case headersCh <- Header{BlockHash: hash, BlockNumber: r.BlockNumber}:
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
			logger.Warn("streams: unknown notification on headers stream", zap.String("method", n.Method))
		}
	}
}
