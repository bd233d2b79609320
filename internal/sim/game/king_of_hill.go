package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

const (
	hillColorNeutral   = "#cccccc"
	hillColorOwned     = "#ffd700"
	hillColorContested = "#cc4444"
)

// kingOfHill: one point per second of sole hill occupancy, first to the
// target score wins. Two or more occupants contest the hill and nobody
// accrues.
type kingOfHill struct {
	hillID string

	occupant string        // sole occupant, "" when empty or contested
	accrued  time.Duration // continuous sole-occupancy time not yet scored
	state    string        // neutral|owned|contested
	owner    string        // owner carried by the last hill_update
}

func (v *kingOfHill) Type() GameType { return TypeKingOfHill }

func (v *kingOfHill) target(r *Round) int {
	if t := r.Config().TargetScore; t > 0 {
		return t
	}
	return 20
}

func (v *kingOfHill) Init(r *Round) {
	spawn := r.World().RespawnPoint()
	r.SpawnOwned(world.Entity{
		Type:     world.EntityPlatform,
		Position: spawn.Add(world.Vec3{Z: 12, Y: 1}),
		Size:     world.Vec3{X: 8, Y: 2, Z: 8},
		Props:    world.EntityProps{Color: "#556b2f"},
	})
	hill := r.SpawnOwned(world.Entity{
		Type:     world.EntityTrigger,
		Position: spawn.Add(world.Vec3{Z: 12, Y: 3.5}),
		Size:     world.Vec3{X: 6, Y: 3, Z: 6},
		Props:    world.EntityProps{IsHill: true, Color: hillColorNeutral},
	})
	v.hillID = hill.ID
	v.state = "neutral"
}

func (v *kingOfHill) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 30 * time.Second},
		Action:  "flip_gravity",
		Params:  map[string]any{"duration_sec": 6.0, "message": "Low gravity on the hill!"},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerScore, Value: 10},
		Action:  "announce",
		Params:  map[string]any{"text": "Halfway to the crown!"},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 15 * time.Second},
		Action:  "speed_burst",
		Params:  map[string]any{"duration_sec": 4.0},
	})
}

func (v *kingOfHill) Tick(r *Round, delta time.Duration) {
	hill := r.World().Entity(v.hillID)
	if hill == nil {
		return
	}

	var occupants []*Participant
	for _, p := range r.AliveParticipants() {
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		if world.InAABB(pos, hill.Position, hill.Size) {
			occupants = append(occupants, p)
		}
	}

	switch {
	case len(occupants) == 1:
		p := occupants[0]
		if v.occupant != p.ID {
			// New sole occupant: continuous time starts over.
			v.occupant = p.ID
			v.accrued = 0
		}
		v.accrued += delta
		for v.accrued >= time.Second {
			v.accrued -= time.Second
			r.AddScore(p.ID, 1)
		}
		v.setState(r, "owned", p.ID)
	case len(occupants) >= 2:
		// Contested: no accrual for anyone.
		v.occupant = ""
		v.accrued = 0
		v.setState(r, "contested", "")
	default:
		v.occupant = ""
		v.accrued = 0
		v.setState(r, "neutral", "")
	}
}

// setState broadcasts a hill_update whenever the state or the owner changes.
// A direct handoff keeps state == "owned" but must still announce the new
// owner.
func (v *kingOfHill) setState(r *Round, state, owner string) {
	if v.state == state && v.owner == owner {
		return
	}
	v.state = state
	v.owner = owner
	color := hillColorNeutral
	switch state {
	case "owned":
		color = hillColorOwned
	case "contested":
		color = hillColorContested
	}
	r.World().SetEntityColor(v.hillID, color)
	r.broadcast(protocol.EvHillUpdate, protocol.Event{
		"id":    v.hillID,
		"state": state,
		"owner": owner,
		"color": color,
	})
}

func (v *kingOfHill) CheckWinCondition(r *Round) *Result {
	target := v.target(r)
	for _, p := range r.Participants() {
		if p.Score >= target {
			return &Result{Type: ResultWin, WinnerID: p.ID}
		}
	}
	return nil
}

func (v *kingOfHill) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	return false
}

func (v *kingOfHill) ResolveTimeout(r *Round) *Result {
	if top := r.TopScorer(); top != nil && top.Score > 0 {
		return &Result{Type: ResultWin, WinnerID: top.ID}
	}
	return nil
}

func (v *kingOfHill) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		return fmt.Sprintf("%s rules the hill!", winnerName(r, res.WinnerID))
	case ResultDraw:
		return "The hill stands unclaimed. Draw!"
	default:
		return "Time's up! The hill stays neutral."
	}
}
