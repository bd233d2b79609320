package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

const (
	checkpointColorIdle = "#4477aa"
	checkpointColorNext = "#44ddff"
	checkpointColorDone = "#44aa44"
)

// race: hit every checkpoint strictly in index order. Out-of-order touches
// are ignored without any state change or broadcast.
type race struct {
	checkpointIDs []string
	progress      map[string]int
	touched       []bool
}

func (v *race) Type() GameType { return TypeRace }

func (v *race) count(r *Round) int {
	if c := r.Config().Checkpoints; c > 0 {
		return c
	}
	return 4
}

func (v *race) Init(r *Round) {
	v.progress = map[string]int{}
	n := v.count(r)
	v.touched = make([]bool, n)
	spawn := r.World().RespawnPoint()

	for i := 0; i < n; i++ {
		color := checkpointColorIdle
		if i == 0 {
			// The next checkpoint is highlighted only while untouched.
			color = checkpointColorNext
		}
		e := r.SpawnOwned(world.Entity{
			Type:     world.EntityTrigger,
			Position: spawn.Add(world.Vec3{X: float64((i%2)*12 - 6), Z: float64((i + 1) * 10), Y: 1}),
			Size:     world.Vec3{X: 4, Y: 3, Z: 4},
			Props:    world.EntityProps{IsCheckpoint: true, CheckpointIndex: i, Color: color},
		})
		v.checkpointIDs = append(v.checkpointIDs, e.ID)

		r.SpawnOwned(world.Entity{
			Type:     world.EntityPlatform,
			Position: spawn.Add(world.Vec3{X: float64((i%2)*12 - 6), Z: float64((i+1)*10) - 5, Y: 0}),
			Size:     world.Vec3{X: 5, Y: 1, Z: 8},
			Props:    world.EntityProps{Color: "#708090"},
		})
	}
}

func (v *race) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 20 * time.Second},
		Action:  "spawn_obstacles",
		Params:  map[string]any{"count": 2},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 15 * time.Second},
		Action:  "announce",
		Params:  map[string]any{"text": "Keep moving!"},
	})
}

func (v *race) Tick(r *Round, delta time.Duration) {
	n := len(v.checkpointIDs)
	for _, p := range r.AliveParticipants() {
		i := v.progress[p.ID]
		if i >= n {
			continue
		}
		cp := r.World().Entity(v.checkpointIDs[i])
		if cp == nil {
			continue
		}
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		// Only the player's own next checkpoint counts; touching any other
		// one is silently ignored.
		if !world.InAABB(pos, cp.Position, cp.Size) {
			continue
		}
		v.progress[p.ID] = i + 1
		if !v.touched[i] {
			v.touched[i] = true
			r.World().SetEntityColor(cp.ID, checkpointColorDone)
			if i+1 < n && !v.touched[i+1] {
				r.World().SetEntityColor(v.checkpointIDs[i+1], checkpointColorNext)
			}
		}
		r.AddScore(p.ID, 1)
		r.broadcast(protocol.EvCheckpointUpdate, protocol.Event{
			"player":     p.ID,
			"checkpoint": i,
			"progress":   i + 1,
			"total":      n,
		})
	}
}

func (v *race) CheckWinCondition(r *Round) *Result {
	n := len(v.checkpointIDs)
	for _, p := range r.Participants() {
		if v.progress[p.ID] >= n && n > 0 {
			return &Result{Type: ResultWin, WinnerID: p.ID}
		}
	}
	return nil
}

func (v *race) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	switch action {
	case "spawn_obstacles":
		count := paramInt(params, "count", 2)
		spawn := r.World().RespawnPoint()
		for i := 0; i < count; i++ {
			r.SpawnOwned(world.Entity{
				Type:     world.EntityObstacle,
				Position: spawn.Add(world.Vec3{X: r.Rand().Float64()*12 - 6, Z: 10 + r.Rand().Float64()*25, Y: 1}),
				Size:     world.Vec3{X: 2, Y: 2, Z: 2},
				Props:    world.EntityProps{Color: "#aa3333"},
			})
		}
		r.Announce("Obstacles on the track!", "trick")
		return true
	}
	return false
}

// ResolveTimeout: the most progressed racer wins, ties to the earliest
// joiner, but only when someone actually progressed.
func (v *race) ResolveTimeout(r *Round) *Result {
	best := ""
	bestProgress := 0
	for _, p := range r.Participants() {
		if v.progress[p.ID] > bestProgress {
			bestProgress = v.progress[p.ID]
			best = p.ID
		}
	}
	if bestProgress > 0 {
		return &Result{Type: ResultWin, WinnerID: best}
	}
	return nil
}

func (v *race) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		return fmt.Sprintf("%s finished the race!", winnerName(r, res.WinnerID))
	case ResultDraw:
		return "Nobody finished. Draw!"
	default:
		return "Time's up! Nobody left the start."
	}
}

// Progress exposes a player's checkpoint progress for tests and status.
func (v *race) Progress(playerID string) int { return v.progress[playerID] }
