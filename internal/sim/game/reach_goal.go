package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

// reachGoal: first participant inside the goal box wins. The goal can
// relocate mid-round and tricks drop obstacles and shortcuts on the course.
type reachGoal struct {
	goalID    string
	goalSpots []world.Vec3
	spotIdx   int
}

func (v *reachGoal) Type() GameType { return TypeReachGoal }

func (v *reachGoal) Init(r *Round) {
	spawn := r.World().RespawnPoint()
	v.goalSpots = []world.Vec3{
		spawn.Add(world.Vec3{Z: 34, Y: 1}),
		spawn.Add(world.Vec3{X: 24, Z: 24, Y: 4}),
		spawn.Add(world.Vec3{X: -24, Z: 28, Y: 1}),
	}

	// Course: a run of platforms from spawn toward the goal.
	for i := 1; i <= 4; i++ {
		r.SpawnOwned(world.Entity{
			Type:     world.EntityPlatform,
			Position: spawn.Add(world.Vec3{Z: float64(i * 7), Y: float64(i % 2)}),
			Size:     world.Vec3{X: 6, Y: 1, Z: 5},
			Props:    world.EntityProps{Color: "#7a9cc6"},
		})
	}

	goal := r.SpawnOwned(world.Entity{
		Type:     world.EntityTrigger,
		Position: v.goalSpots[0],
		Size:     world.Vec3{X: 4, Y: 3, Z: 4},
		Props:    world.EntityProps{IsGoal: true, Color: "#ffd700"},
	})
	v.goalID = goal.ID
}

func (v *reachGoal) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 15 * time.Second},
		Action:  "spawn_obstacles",
		Params:  map[string]any{"count": 3},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 30 * time.Second},
		Action:  "move_goal",
		Params:  map[string]any{"message": "The goal has moved!"},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerDeaths, Count: 1},
		Action:  "spawn_shortcut",
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 20 * time.Second},
		Action:  "announce",
		Params:  map[string]any{"text": "The goal is waiting..."},
	})
}

func (v *reachGoal) Tick(r *Round, delta time.Duration) {}

func (v *reachGoal) CheckWinCondition(r *Round) *Result {
	goal := r.World().Entity(v.goalID)
	if goal == nil {
		return nil
	}
	for _, p := range r.AliveParticipants() {
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		if world.InAABB(pos, goal.Position, goal.Size) {
			return &Result{Type: ResultWin, WinnerID: p.ID}
		}
	}
	return nil
}

func (v *reachGoal) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	switch action {
	case "move_goal":
		v.spotIdx = (v.spotIdx + 1) % len(v.goalSpots)
		pos := v.goalSpots[v.spotIdx]
		if r.World().ModifyEntity(v.goalID, &pos, nil, nil) {
			r.broadcast(protocol.EvEntityModified, protocol.Event{
				"id":  v.goalID,
				"pos": pos.ToArray(),
			})
			r.Announce(paramString(params, "message", "The goal has moved!"), "trick")
		}
		return true
	case "spawn_obstacles":
		count := paramInt(params, "count", 3)
		spawn := r.World().RespawnPoint()
		for i := 0; i < count; i++ {
			r.SpawnOwned(world.Entity{
				Type:     world.EntityObstacle,
				Position: spawn.Add(world.Vec3{X: r.Rand().Float64()*16 - 8, Z: 8 + r.Rand().Float64()*20, Y: 1}),
				Size:     world.Vec3{X: 2, Y: 2, Z: 2},
				Props:    world.EntityProps{Color: "#aa3333"},
			})
		}
		r.Announce("Obstacles ahead!", "trick")
		return true
	case "spawn_shortcut":
		spawn := r.World().RespawnPoint()
		r.SpawnOwned(world.Entity{
			Type:     world.EntityRamp,
			Position: spawn.Add(world.Vec3{X: 10, Z: 16, Y: 0.5}),
			Size:     world.Vec3{X: 3, Y: 1, Z: 10},
			Props:    world.EntityProps{Color: "#66dd66"},
		})
		r.Announce("A shortcut appeared!", "trick")
		return true
	}
	return false
}

func (v *reachGoal) ResolveTimeout(r *Round) *Result { return nil }

func (v *reachGoal) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		return fmt.Sprintf("%s reached the goal!", winnerName(r, res.WinnerID))
	case ResultDraw:
		return "Nobody made it. Draw!"
	default:
		return "Time's up! Nobody reached the goal."
	}
}
