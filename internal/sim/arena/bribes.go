package arena

import (
	"context"
	"time"

	"arenacraft.gg/internal/chain"
	"arenacraft.gg/internal/protocol"
)

// Bribe actions the engine is willing to map onto world mutations. Everything
// else about bribes (verification, settlement) happens outside the core.
var bribeActions = map[string]map[string]any{
	"spawn_obstacles": {"count": 2},
	"flip_gravity":    {"duration_sec": 6.0, "message": "A bribe flipped gravity!"},
	"speed_burst":     {"duration_sec": 5.0},
	"announce":        nil,
}

// SubmitBribe verifies funding on the caller's goroutine, then queues the
// bribe for application at the next tick boundary. Chain failures are logged
// and swallowed: a broken collaborator never reaches the tick path.
func (a *Arena) SubmitBribe(ctx context.Context, b chain.Bribe) bool {
	if a.chainIf == nil || a.disposed.Load() {
		return false
	}
	if _, ok := bribeActions[b.Action]; !ok {
		a.log.Printf("arena %s: bribe %s: unknown action %q", a.cfg.ID, b.ID, b.Action)
		return false
	}
	bal, err := a.chainIf.GetBalance(ctx, b.PlayerID)
	if err != nil {
		a.log.Printf("arena %s: bribe %s: balance: %v", a.cfg.ID, b.ID, err)
		return false
	}
	if bal < b.Amount {
		return false
	}
	select {
	case a.bribes <- b:
		return true
	default:
		return false
	}
}

// drainBribes applies queued bribes on the loop goroutine.
func (a *Arena) drainBribes() {
	for {
		select {
		case b := <-a.bribes:
			a.applyBribe(b)
		default:
			return
		}
	}
}

func (a *Arena) applyBribe(b chain.Bribe) {
	honored := false
	if a.round != nil && a.round.IsActive() {
		params := bribeActions[b.Action]
		if b.Action == "announce" {
			params = map[string]any{"text": "The crowd paid for chaos!", "kind": "bribe"}
		}
		honored = a.round.RunTrickAction(b.Action, params)
	}
	if honored {
		a.Broadcast(protocol.EvAnnouncement, protocol.Event{
			"text": "A bribe has been honored...",
			"kind": "bribe",
		})
	}

	res := chain.BribeResult{BribeID: b.ID, Honored: honored}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.chainIf.RecordResult(ctx, res); err != nil {
			a.log.Printf("arena %s: bribe %s: record result: %v", a.cfg.ID, b.ID, err)
		}
	}()
}
