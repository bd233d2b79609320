package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

// hotPotato: one cursed player per sub-round. The curse jumps to any other
// alive player in range, rate-limited by a transfer cooldown; when the curse
// timer runs out the holder is eliminated and the next sub-round starts.
type hotPotato struct {
	cursed       string
	curseTimer   time.Duration
	lastTransfer time.Duration
	subRound     int
	pendingNext  bool
}

func (v *hotPotato) Type() GameType { return TypeHotPotato }

func (v *hotPotato) curseTime(r *Round) time.Duration {
	if d := r.Config().CurseTime; d > 0 {
		return d
	}
	return 15 * time.Second
}

func (v *hotPotato) radius(r *Round) float64 {
	if rad := r.Config().TransferRadius; rad > 0 {
		return rad
	}
	return 2.5
}

func (v *hotPotato) cooldown(r *Round) time.Duration {
	if d := r.Config().TransferCooldown; d > 0 {
		return d
	}
	return 2 * time.Second
}

func (v *hotPotato) subRoundDelay(r *Round) time.Duration {
	if d := r.Config().SubRoundDelay; d > 0 {
		return d
	}
	return 2 * time.Second
}

func (v *hotPotato) Init(r *Round) {
	spawn := r.World().RespawnPoint()
	r.SpawnOwned(world.Entity{
		Type:     world.EntityPlatform,
		Position: spawn.Add(world.Vec3{Y: -0.5}),
		Size:     world.Vec3{X: 20, Y: 1, Z: 20},
		Props:    world.EntityProps{Color: "#b8860b"},
	})
	v.subRound = 0
}

func (v *hotPotato) SetupDefaultTricks(r *Round) {
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerInterval, Every: 10 * time.Second},
		Action:  "announce",
		Params:  map[string]any{"text": "Pass the curse!"},
	})
	r.AddTrick(Trick{
		Trigger: Trigger{Kind: TriggerDeaths, Count: 2},
		Action:  "speed_burst",
		Params:  map[string]any{"duration_sec": 5.0},
	})
}

func (v *hotPotato) beginSubRound(r *Round) {
	alive := r.AliveParticipants()
	if len(alive) < 2 {
		return
	}
	v.subRound++
	v.cursed = alive[v.subRound%len(alive)].ID
	v.curseTimer = v.curseTime(r)
	v.lastTransfer = r.Elapsed()
	r.Announce(fmt.Sprintf("%s holds the curse!", winnerName(r, v.cursed)), "curse")
	r.broadcast(protocol.EvCurseUpdate, protocol.Event{
		"cursed":    v.cursed,
		"sub_round": v.subRound,
		"timer_sec": v.curseTimer.Seconds(),
	})
}

func (v *hotPotato) Tick(r *Round, delta time.Duration) {
	if v.cursed == "" {
		if !v.pendingNext {
			// First playing tick of the match.
			v.beginSubRound(r)
		}
		return
	}

	cursed := r.Participant(v.cursed)
	if cursed == nil || !cursed.Alive {
		// Holder vanished (disconnect): restart the sub-round clock.
		v.cursed = ""
		if !v.pendingNext {
			v.beginSubRound(r)
		}
		return
	}

	v.curseTimer -= delta

	// A large tick delta may push the timer negative; eliminate immediately
	// rather than clamping.
	if v.curseTimer <= 0 {
		v.expireCurse(r)
		return
	}

	// Proximity transfer, gated by the cooldown.
	if r.Elapsed()-v.lastTransfer < v.cooldown(r) {
		return
	}
	cursedPos, ok := r.PlayerPosition(v.cursed)
	if !ok {
		return
	}
	for _, p := range r.AliveParticipants() {
		if p.ID == v.cursed {
			continue
		}
		pos, ok := r.PlayerPosition(p.ID)
		if !ok {
			continue
		}
		if world.Distance(cursedPos, pos) <= v.radius(r) {
			v.cursed = p.ID
			v.lastTransfer = r.Elapsed()
			r.Announce(fmt.Sprintf("%s caught the curse!", winnerName(r, p.ID)), "curse")
			r.broadcast(protocol.EvCurseUpdate, protocol.Event{
				"cursed":    p.ID,
				"sub_round": v.subRound,
				"timer_sec": v.curseTimer.Seconds(),
			})
			return
		}
	}
}

// expireCurse eliminates the holder and schedules exactly one new sub-round
// when two or more players remain.
func (v *hotPotato) expireCurse(r *Round) {
	holder := v.cursed
	v.cursed = ""
	r.Announce(fmt.Sprintf("The curse consumed %s!", winnerName(r, holder)), "curse")
	r.EliminatePlayer(holder)
	if r.Ended() {
		return
	}
	if len(r.AliveParticipants()) < 2 {
		return
	}
	if v.pendingNext {
		return
	}
	v.pendingNext = true
	r.after(v.subRoundDelay(r), func() {
		v.pendingNext = false
		if !r.IsActive() {
			return
		}
		v.beginSubRound(r)
	})
}

func (v *hotPotato) CheckWinCondition(r *Round) *Result {
	// Last alive of >=2 starters wins; the elimination cascade usually fires
	// first, this covers eliminations from outside the curse path.
	if r.ParticipantCount() >= 2 {
		if alive := r.AliveParticipants(); len(alive) == 1 {
			return &Result{Type: ResultWin, WinnerID: alive[0].ID}
		}
	}
	return nil
}

func (v *hotPotato) ExecuteTrickAction(r *Round, action string, params map[string]any) bool {
	return false
}

// ResolveTimeout: hot potato never reclassifies a timeout.
func (v *hotPotato) ResolveTimeout(r *Round) *Result { return nil }

func (v *hotPotato) ResultMessage(r *Round, res Result) string {
	switch res.Type {
	case ResultWin:
		return fmt.Sprintf("%s dodged the curse to the end!", winnerName(r, res.WinnerID))
	case ResultDraw:
		return "The curse took everyone. Draw!"
	default:
		return "Time's up! The curse rests."
	}
}

// Cursed exposes the current holder for tests and status payloads.
func (v *hotPotato) Cursed() string { return v.cursed }
