package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

// survival: outlast everyone else. Hazards spawn on a cadence up to a hard
// cap and the floor shrinks as the round drags on.
type survival struct {
	floorID   string
	floorSize world.Vec3
}

func (v *survival) Type() GameType { return TypeSurvival }

func (v *survival) maxHazards(r *Round) int {
	if m := r.Config().MaxHazards; m > 0 {
		return m
	}
	return 8
}

func (v *survival) Init(r *Round) {
	spawn := r.World().RespawnPoint()
	v.floorSize = world.Vec3{X: 30, Y: 1, Z: 30}
	floor := r.SpawnOwned(world.Entity{
		Type:     world.EntityPlatform,
		Position: spawn.Add(world.Vec3{Y: -0.5}),
		Size:     v.floorSize,
		Props:    world.EntityProps{Color: "#8b7355"},
	})
	v.floorID = floor.ID
}

func (v *survival) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 8 * time.Second},
		Action:  "hazard_wave",
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 20 * time.Second},
		Action:  "shrink_floor",
		Params:  map[string]any{"factor": 0.7},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 40 * time.Second},
		Action:  "shrink_floor",
		Params:  map[string]any{"factor": 0.6},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerDeaths, Count: 1},
		Action:  "announce",
		Params:  map[string]any{"text": "First one down!"},
	})
}

// Tick eliminates anyone standing inside a hazard box.
func (v *survival) Tick(r *Round, delta time.Duration) {
	for _, p := range r.AliveParticipants() {
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		for _, e := range r.OwnedEntities() {
			if !e.Props.Deadly {
				continue
			}
			if world.InAABB(pos, e.Position, e.Size) {
				r.EliminatePlayer(p.ID)
				break
			}
		}
		if r.Ended() {
			return
		}
	}
}

func (v *survival) CheckWinCondition(r *Round) *Result {
	// Elimination cascade normally ends the round inside EliminatePlayer;
	// this is the belt-and-braces path for externally driven eliminations.
	if r.ParticipantCount() >= 2 {
		if alive := r.AliveParticipants(); len(alive) == 1 {
			return &Result{Type: ResultWin, WinnerID: alive[0].ID}
		}
	}
	return nil
}

func (v *survival) hazardCount(r *Round) int {
	n := 0
	for _, e := range r.OwnedEntities() {
		if e.Props.Deadly {
			n++
		}
	}
	return n
}

func (v *survival) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	switch action {
	case "hazard_wave":
		// The hazard count never exceeds the cap, whatever the tick rate.
		if v.hazardCount(r) >= v.maxHazards(r) {
			return true
		}
		spawn := r.World().RespawnPoint()
		half := v.floorSize.X/2 - 2
		r.SpawnOwned(world.Entity{
			Type:     world.EntityObstacle,
			Position: spawn.Add(world.Vec3{X: r.Rand().Float64()*2*half - half, Y: 1, Z: r.Rand().Float64()*2*half - half}),
			Size:     world.Vec3{X: 2.5, Y: 2.5, Z: 2.5},
			Props:    world.EntityProps{Deadly: true, Color: "#cc2222"},
		})
		r.Announce("Hazard incoming!", "trick")
		return true
	case "shrink_floor":
		factor := paramFloat(params, "factor", 0.7)
		v.floorSize = world.Vec3{X: v.floorSize.X * factor, Y: v.floorSize.Y, Z: v.floorSize.Z * factor}
		size := v.floorSize
		if r.World().ModifyEntity(v.floorID, nil, &size, nil) {
			r.broadcast(protocol.EvEntityModified, protocol.Event{
				"id":   v.floorID,
				"size": size.ToArray(),
			})
			r.Announce("The floor is shrinking!", "trick")
		}
		return true
	}
	return false
}

func (v *survival) ResolveTimeout(r *Round) *Result { return nil }

func (v *survival) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		return fmt.Sprintf("%s is the last one standing!", winnerName(r, res.WinnerID))
	case ResultDraw:
		return "Nobody survived. Draw!"
	default:
		return "Time's up! The survivors share the glory."
	}
}
