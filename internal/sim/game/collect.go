package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/sim/world"
)

const pickupRadius = 1.5

// collectGame: the round ends when every tracked collectible is gone, or at
// timeout with the highest score winning. Bonus items pay triple and count
// toward the tracked set; decoys pay -1 and never do.
type collectGame struct {
	tracked      map[string]bool // collectible id -> still in the world
	trackedLeft  int
	totalTracked int
}

func (v *collectGame) Type() GameType { return TypeCollect }

func (v *collectGame) Init(r *Round) {
	v.tracked = map[string]bool{}
	count := r.Config().Collectibles
	if count == 0 {
		count = 10
	}
	decoys := r.Config().Decoys
	if decoys == 0 {
		decoys = 3
	}
	spawn := r.World().RespawnPoint()

	r.SpawnOwned(world.Entity{
		Type:     world.EntityPlatform,
		Position: spawn.Add(world.Vec3{Y: -0.5}),
		Size:     world.Vec3{X: 36, Y: 1, Z: 36},
		Props:    world.EntityProps{Color: "#6b8e23"},
	})

	for i := 0; i < count; i++ {
		e := r.SpawnOwned(world.Entity{
			Type:     world.EntityCollectible,
			Position: spawn.Add(v.scatter(r, 14)),
			Size:     world.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
			Props:    world.EntityProps{Value: 1, Color: "#ffcc00"},
		})
		v.tracked[e.ID] = true
	}
	for i := 0; i < decoys; i++ {
		r.SpawnOwned(world.Entity{
			Type:     world.EntityCollectible,
			Position: spawn.Add(v.scatter(r, 14)),
			Size:     world.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
			Props:    world.EntityProps{Value: -1, Color: "#9933cc"},
		})
	}
	v.trackedLeft = count
	v.totalTracked = count
}

func (v *collectGame) scatter(r *Round, radius float64) world.Vec3 {
	return world.Vec3{
		X: r.Rand().Float64()*2*radius - radius,
		Y: 0.5,
		Z: r.Rand().Float64()*2*radius - radius,
	}
}

func (v *collectGame) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 20 * time.Second},
		Action:  "spawn_bonus",
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerScore, Value: 5},
		Action:  "announce",
		Params:  map[string]any{"text": "Someone is pulling ahead!"},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerTime, At: 25 * time.Second},
		Action:  "spawn_decoys",
		Params:  map[string]any{"count": 2},
	})
}

// Tick performs proximity pickups. The collected entity is removed before the
// score lands so a double-pickup on one tick is impossible.
func (v *collectGame) Tick(r *Round, delta time.Duration) {
	for _, p := range r.AliveParticipants() {
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		for _, e := range r.OwnedEntities() {
			if e.Type != world.EntityCollectible {
				continue
			}
			if world.Distance(pos, e.Position) > pickupRadius {
				continue
			}
			value := e.Props.Value
			wasTracked := v.tracked[e.ID]
			delete(v.tracked, e.ID)
			r.DestroyOwned(e.ID)
			if wasTracked {
				v.trackedLeft--
			}
			r.AddScore(p.ID, value)
			if wasTracked && v.trackedLeft == 1 {
				r.Announce("One item left!", "progress")
			}
		}
	}
}

// CheckWinCondition: all tracked collectibles gone ends the round for the top
// scorer, not necessarily whoever grabbed the last one.
func (v *collectGame) CheckWinCondition(r *Round) *Result {
	if v.totalTracked == 0 || v.trackedLeft > 0 {
		return nil
	}
	if top := r.TopScorer(); top != nil {
		return &Result{Type: ResultWin, WinnerID: top.ID}
	}
	return &Result{Type: ResultDraw}
}

func (v *collectGame) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	spawn := r.World().RespawnPoint()
	switch action {
	case "spawn_bonus":
		e := r.SpawnOwned(world.Entity{
			Type:     world.EntityCollectible,
			Position: spawn.Add(v.scatter(r, 14)),
			Size:     world.Vec3{X: 1, Y: 1, Z: 1},
			Props:    world.EntityProps{Value: 3, Color: "#ff6600"},
		})
		v.tracked[e.ID] = true
		v.trackedLeft++
		v.totalTracked++
		r.Announce("Bonus item worth 3 points!", "trick")
		return true
	case "spawn_decoys":
		count := paramInt(params, "count", 2)
		for i := 0; i < count; i++ {
			r.SpawnOwned(world.Entity{
				Type:     world.EntityCollectible,
				Position: spawn.Add(v.scatter(r, 14)),
				Size:     world.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
				Props:    world.EntityProps{Value: -1, Color: "#9933cc"},
			})
		}
		r.Announce("Watch out for decoys!", "trick")
		return true
	}
	return false
}

// ResolveTimeout hands the win to the current top scorer when they actually
// scored; zero-score timeouts remain timeouts.
func (v *collectGame) ResolveTimeout(r *Round) *Result {
	if top := r.TopScorer(); top != nil && top.Score > 0 {
		return &Result{Type: ResultWin, WinnerID: top.ID}
	}
	return nil
}

func (v *collectGame) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		p := r.Participant(res.WinnerID)
		score := 0
		if p != nil {
			score = p.Score
		}
		return fmt.Sprintf("%s wins with %d points!", winnerName(r, res.WinnerID), score)
	case ResultDraw:
		return "Nothing collected. Draw!"
	default:
		return "Time's up! Nobody scored."
	}
}
