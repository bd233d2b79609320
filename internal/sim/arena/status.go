package arena

import (
	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

// Status is a point-in-time arena snapshot safe to read from any goroutine.
type Status struct {
	ID          string                    `json:"id"`
	Phase       string                    `json:"phase"`
	Players     int                       `json:"players"`
	Entities    int                       `json:"entities"`
	Game        *protocol.GameStatus      `json:"game,omitempty"`
	Leaderboard []world.LeaderboardEntry  `json:"leaderboard"`
}

func (a *Arena) buildStatus() Status {
	st := Status{
		ID:          a.cfg.ID,
		Phase:       string(a.world.Phase()),
		Players:     a.world.PlayerCount(),
		Entities:    a.world.EntityCount(),
		Leaderboard: a.world.Leaderboard(),
	}
	if a.round != nil {
		gs := a.round.Status()
		st.Game = &gs
	}
	return st
}

// Status returns the snapshot captured at the end of the last tick.
func (a *Arena) Status() Status {
	if v, ok := a.lastStatus.Load().(Status); ok {
		return v
	}
	return Status{ID: a.cfg.ID}
}
