// Package chain is the bribe/economy collaborator boundary. The engine only
// reads balances and records results when a bribe maps onto a world mutation;
// bribe economics live entirely outside the core.
package chain

import "context"

type Bribe struct {
	ID       string
	PlayerID string
	Action   string // e.g. "spawn_obstacles", "flip_gravity", "speed_burst"
	Amount   int64
	TxHash   string
}

type BribeResult struct {
	BribeID string
	Honored bool
	Detail  string
}

type Chain interface {
	SubmitBribe(ctx context.Context, b Bribe) (string, error)
	VerifyBribeTransaction(ctx context.Context, txHash string) (bool, error)
	AcknowledgeBribe(ctx context.Context, bribeID string) error
	CheckPendingBribes(ctx context.Context) ([]Bribe, error)
	GetBalance(ctx context.Context, playerID string) (int64, error)
	GetHonoredBribes(ctx context.Context) ([]BribeResult, error)
	RecordResult(ctx context.Context, res BribeResult) error
}
