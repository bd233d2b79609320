package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
)

type TriggerKind string

const (
	TriggerTime     TriggerKind = "time"     // elapsed >= At, once
	TriggerScore    TriggerKind = "score"    // any/specific score >= Value, once
	TriggerDeaths   TriggerKind = "deaths"   // eliminated count >= Count, once
	TriggerInterval TriggerKind = "interval" // every Every of elapsed time, re-arming
)

type Trigger struct {
	Kind     TriggerKind
	At       time.Duration // time
	Every    time.Duration // interval
	Value    int           // score
	PlayerID string        // score: empty means "any participant"
	Count    int           // deaths
}

// Trick is a scheduled trigger->action pair evaluated once per tick in
// declaration order. Non-interval tricks fire at most once.
type Trick struct {
	ID      string
	Trigger Trigger
	Action  string
	Params  map[string]any

	fired     bool
	lastFired time.Duration
}

// AddTrick appends a trick to the round's evaluation list.
func (r *Round) AddTrick(t Trick) {
	if t.ID == "" {
		t.ID = fmt.Sprintf("trick_%d", len(r.tricks)+1)
	}
	tt := t
	r.tricks = append(r.tricks, &tt)
}

func (r *Round) TrickCount() int { return len(r.tricks) }

func (r *Round) TricksFired() int { return r.tricksFired }

func (r *Round) evalTricks() {
	for _, t := range r.tricks {
		if r.Ended() {
			return
		}
		if !r.trickDue(t) {
			continue
		}
		t.fired = true
		t.lastFired = r.elapsed
		r.tricksFired++
		if !r.executeTrick(t.Action, t.Params) {
			r.logf("round %s: trick %s action %q unhandled, dropped", r.id, t.ID, t.Action)
		}
	}
}

// RunTrickAction executes a named trick action immediately, outside any
// trigger. Bribe-driven mutations come through here.
func (r *Round) RunTrickAction(action string, params map[string]any) bool {
	if !r.IsActive() {
		return false
	}
	return r.executeTrick(action, params)
}

func (r *Round) trickDue(t *Trick) bool {
	switch t.Trigger.Kind {
	case TriggerTime:
		return !t.fired && r.elapsed >= t.Trigger.At
	case TriggerScore:
		if t.fired {
			return false
		}
		if t.Trigger.PlayerID != "" {
			p := r.participants[t.Trigger.PlayerID]
			return p != nil && p.Score >= t.Trigger.Value
		}
		for _, p := range r.Participants() {
			if p.Score >= t.Trigger.Value {
				return true
			}
		}
		return false
	case TriggerDeaths:
		return !t.fired && r.eliminated >= t.Trigger.Count
	case TriggerInterval:
		return t.Trigger.Every > 0 && r.elapsed-t.lastFired >= t.Trigger.Every
	default:
		return false
	}
}

// executeTrick runs built-in actions first, then delegates to the variant.
// Returns false when nobody handles the action.
func (r *Round) executeTrick(action string, params map[string]any) bool {
	switch action {
	case "announce":
		r.Announce(paramString(params, "text", "Something is happening..."), paramString(params, "kind", "trick"))
		return true
	case "flip_gravity":
		r.flipGravity(params)
		return true
	case "speed_burst":
		r.speedBurst(params)
		return true
	default:
		return r.variant.ExecuteTrickAction(r, action, params)
	}
}

// flipGravity temporarily overrides world gravity. The restore callback is
// guarded: a round that already ended must not un-apply a stale override.
func (r *Round) flipGravity(params map[string]any) {
	w := r.deps.World
	prev := w.Gravity()
	g := paramFloat(params, "gravity", -prev)
	duration := paramDuration(params, "duration_sec", 8*time.Second)

	w.SetGravity(g)
	r.Announce(paramString(params, "message", "Gravity is acting strange..."), "trick")
	r.broadcast(protocol.EvGameStateChanged, protocol.Event{
		"phase":   string(w.Phase()),
		"gravity": g,
	})

	r.after(duration, func() {
		if !r.IsActive() {
			return
		}
		w.SetGravity(prev)
		r.broadcast(protocol.EvGameStateChanged, protocol.Event{
			"phase":   string(w.Phase()),
			"gravity": prev,
		})
	})
}

// speedBurst applies a timed move-speed boost, restored with the same
// stale-round guard as gravity.
func (r *Round) speedBurst(params map[string]any) {
	w := r.deps.World
	prev := w.MoveSpeed()
	factor := paramFloat(params, "factor", 1.8)
	duration := paramDuration(params, "duration_sec", 6*time.Second)

	w.SetMoveSpeed(prev * factor)
	r.Announce("Speed burst!", "trick")

	r.after(duration, func() {
		if !r.IsActive() {
			return
		}
		w.SetMoveSpeed(prev)
	})
}

// --- param helpers (tricks carry loose JSON-ish params) ---

func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func paramFloat(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func paramInt(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func paramDuration(params map[string]any, key string, fallback time.Duration) time.Duration {
	if v := paramFloat(params, key, -1); v >= 0 {
		return time.Duration(v * float64(time.Second))
	}
	return fallback
}
