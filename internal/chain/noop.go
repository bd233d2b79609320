package chain

import (
	"context"

	"github.com/google/uuid"
)

// Noop is the dev/test chain: every bribe verifies, balances are flat.
type Noop struct {
	Balance int64
}

var _ Chain = (*Noop)(nil)

func (n *Noop) SubmitBribe(ctx context.Context, b Bribe) (string, error) {
	return "bribe_" + uuid.NewString()[:8], nil
}

func (n *Noop) VerifyBribeTransaction(ctx context.Context, txHash string) (bool, error) {
	return true, nil
}

func (n *Noop) AcknowledgeBribe(ctx context.Context, bribeID string) error { return nil }

func (n *Noop) CheckPendingBribes(ctx context.Context) ([]Bribe, error) { return nil, nil }

func (n *Noop) GetBalance(ctx context.Context, playerID string) (int64, error) {
	if n.Balance == 0 {
		return 100, nil
	}
	return n.Balance, nil
}

func (n *Noop) GetHonoredBribes(ctx context.Context) ([]BribeResult, error) { return nil, nil }

func (n *Noop) RecordResult(ctx context.Context, res BribeResult) error { return nil }
