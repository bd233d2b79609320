package game

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

type GameType string

const (
	TypeReachGoal  GameType = "reach_goal"
	TypeCollect    GameType = "collect"
	TypeSurvival   GameType = "survival"
	TypeKingOfHill GameType = "king_of_hill"
	TypeHotPotato  GameType = "hot_potato"
	TypeRace       GameType = "race"
)

// Result classifications for a finished round.
const (
	ResultWin     = "win"
	ResultTimeout = "timeout"
	ResultDraw    = "draw"
)

type Result struct {
	Type     string
	WinnerID string
}

type CancelFunc func()

// Scheduler runs deferred tasks on arena tick time. Every delayed action a
// round owns (cleanup sweep, curse sub-rounds, gravity restores) goes through
// it so dispose/end can cancel stale timers.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelFunc
}

// Deps are the collaborators a round needs, injected by the arena container.
// Broadcast and History are fire-and-forget: they must never block the tick
// path.
type Deps struct {
	World     *world.World
	Broadcast func(name string, payload any)
	History   HistorySink
	Scheduler Scheduler
	Logf      func(format string, args ...any)
	OnEnd     func(r *Round)
}

type RoundConfig struct {
	ArenaID   string
	TimeLimit time.Duration
	Countdown time.Duration
	Seed      int64

	// Variant knobs. Zero means "use the variant default".
	TargetScore      int           // king_of_hill
	Collectibles     int           // collect
	Decoys           int           // collect
	MaxHazards       int           // survival
	Checkpoints      int           // race
	CurseTime        time.Duration // hot_potato
	TransferRadius   float64       // hot_potato
	TransferCooldown time.Duration // hot_potato
	SubRoundDelay    time.Duration // hot_potato
}

// Participant is the round-local wrapper around a world player.
type Participant struct {
	ID       string
	Name     string
	Score    int
	Alive    bool
	StartPos world.Vec3
}

const (
	cleanupDelay     = 3 * time.Second
	lobbyReturnDelay = 5 * time.Second
	defaultTimeLimit = 60 * time.Second
	defaultCountdown = 3 * time.Second
)

var warningThresholds = []time.Duration{30 * time.Second, 10 * time.Second, 5 * time.Second}

// Round is one mini-game instance. At most one round is active per arena; all
// methods must be called from the arena loop goroutine, except End, which is
// guarded so late timer callbacks and concurrent termination paths collapse
// into a single effective call.
type Round struct {
	id      string
	cfg     RoundConfig
	deps    Deps
	variant Variant
	rng     *rand.Rand

	started    bool
	ended      atomic.Bool
	clockArmed bool
	elapsed    time.Duration

	participants map[string]*Participant
	order        []string
	winners      []string
	losers       []string
	entityIDs    []string

	tricks      []*Trick
	tricksFired int
	warned      map[time.Duration]bool

	eliminated int
	result     *Result

	cancels []CancelFunc
}

// NewRound builds a round of the requested type. Unknown types fail fast: no
// partial round may ever start.
func NewRound(t GameType, cfg RoundConfig, deps Deps) (*Round, error) {
	variant, err := newVariant(t)
	if err != nil {
		return nil, err
	}
	if deps.World == nil {
		return nil, fmt.Errorf("new round: nil world")
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = defaultTimeLimit
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = defaultCountdown
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	r := &Round{
		id:           "G" + uuid.NewString()[:8],
		cfg:          cfg,
		deps:         deps,
		variant:      variant,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		participants: map[string]*Participant{},
		warned:       map[time.Duration]bool{},
	}
	return r, nil
}

func (r *Round) ID() string { return r.id }

func (r *Round) Type() GameType { return r.variant.Type() }

func (r *Round) Config() RoundConfig { return r.cfg }

func (r *Round) Elapsed() time.Duration { return r.elapsed }

// IsActive reports whether the round has started and not yet ended.
func (r *Round) IsActive() bool { return r.started && !r.ended.Load() }

func (r *Round) Ended() bool { return r.ended.Load() }

func (r *Round) Result() *Result {
	if r.result == nil {
		return nil
	}
	res := *r.result
	return &res
}

func (r *Round) logf(format string, args ...any) {
	if r.deps.Logf != nil {
		r.deps.Logf(format, args...)
	}
}

func (r *Round) broadcast(name string, payload any) {
	if r.deps.Broadcast != nil {
		r.deps.Broadcast(name, payload)
	}
}

// Announce emits an announcement event and records it in the world log.
func (r *Round) Announce(text, kind string) {
	r.deps.World.AppendLog("announcement", "", text)
	r.broadcast(protocol.EvAnnouncement, protocol.Event{"text": text, "kind": kind})
}

func (r *Round) after(d time.Duration, fn func()) {
	if r.deps.Scheduler == nil {
		return
	}
	cancel := r.deps.Scheduler.After(d, fn)
	r.cancels = append(r.cancels, cancel)
}

// Start freezes round-local player state, teleports active players to the
// respawn point, spawns the variant layout, arms default tricks and moves the
// phase machine into countdown.
func (r *Round) Start() {
	if r.started {
		return
	}
	r.started = true

	w := r.deps.World
	for _, p := range w.PlayersSorted() {
		if p.Spectating() {
			continue
		}
		r.participants[p.ID] = &Participant{ID: p.ID, Name: p.Name, Alive: true, StartPos: p.Position}
		r.order = append(r.order, p.ID)
		w.SetPlayerState(p.ID, world.StateAlive)
	}

	w.SetPhase(world.PhaseBuilding)
	r.variant.Init(r)

	moved := w.TeleportAll(w.RespawnPoint())
	r.broadcast(protocol.EvPlayersTeleported, protocol.Event{
		"players": moved,
		"target":  w.RespawnPoint().ToArray(),
	})

	r.variant.SetupDefaultTricks(r)
	w.SetPhase(world.PhaseCountdown)

	r.Announce(fmt.Sprintf("%s starting! Get ready...", r.variant.Type()), "game_start")
	r.broadcast(protocol.EvGameStarted, protocol.Event{
		"game_id":        r.id,
		"game_type":      string(r.variant.Type()),
		"time_limit_sec": r.cfg.TimeLimit.Seconds(),
		"players":        append([]string(nil), r.order...),
	})
	r.emitStateChanged("")

	r.after(r.cfg.Countdown, func() {
		if !r.IsActive() || w.Phase() != world.PhaseCountdown {
			return
		}
		w.SetPhase(world.PhasePlaying)
		r.Announce("GO!", "countdown")
		r.emitStateChanged("")
	})
}

// Update advances the round by one tick. The step order is fixed: timeout,
// draw, tricks, warnings, variant tick, win check. Later steps must observe
// eliminations made by earlier ones within the same tick.
func (r *Round) Update(delta time.Duration) {
	if !r.IsActive() {
		return
	}
	phase := r.deps.World.Phase()
	if phase == world.PhaseCountdown || phase == world.PhaseBuilding {
		return
	}
	if !r.clockArmed {
		// Countdown time must not count against the round timer.
		r.clockArmed = true
		r.elapsed = 0
	} else {
		r.elapsed += delta
	}

	if r.elapsed >= r.cfg.TimeLimit {
		r.End(ResultTimeout, "")
		return
	}
	if len(r.participants) >= 1 && r.aliveCount() == 0 {
		r.End(ResultDraw, "")
		return
	}

	r.evalTricks()
	if r.Ended() {
		return
	}

	r.emitWarnings()

	r.variant.Tick(r, delta)
	if r.Ended() {
		return
	}

	if res := r.variant.CheckWinCondition(r); res != nil {
		r.End(res.Type, res.WinnerID)
	}
}

func (r *Round) emitWarnings() {
	remaining := r.cfg.TimeLimit - r.elapsed
	for _, th := range warningThresholds {
		if remaining <= th && !r.warned[th] {
			r.warned[th] = true
			r.Announce(fmt.Sprintf("%d seconds remaining!", int(th.Seconds())), "time_warning")
		}
	}
}

// AddScore is additive and only applies to tracked participants; unknown ids
// are dropped to defend against messages arriving after elimination or
// disconnect.
func (r *Round) AddScore(playerID string, points int) {
	if r.Ended() {
		return
	}
	p, ok := r.participants[playerID]
	if !ok {
		return
	}
	p.Score += points
	r.broadcast(protocol.EvScoreUpdate, protocol.Event{
		"game_id": r.id,
		"player":  playerID,
		"score":   p.Score,
		"delta":   points,
	})
}

// EliminatePlayer is idempotent. If exactly one participant of two or more
// remains alive afterwards, the round ends synchronously with that survivor
// as winner, so two eliminations in the same tick cannot both claim to be
// the last.
func (r *Round) EliminatePlayer(playerID string) {
	if r.Ended() {
		return
	}
	p, ok := r.participants[playerID]
	if !ok || !p.Alive {
		return
	}
	p.Alive = false
	r.eliminated++
	r.deps.World.SetPlayerState(playerID, world.StateDead)
	r.broadcast(protocol.EvPlayerEliminated, protocol.Event{
		"game_id": r.id,
		"player":  playerID,
		"alive":   r.aliveCount(),
	})

	if len(r.participants) >= 2 {
		if alive := r.AliveParticipants(); len(alive) == 1 {
			r.End(ResultWin, alive[0].ID)
		}
	}
}

// End resolves the round exactly once. Timeout results first pass through the
// variant's reclassification hook; the guard then ensures only the first of
// any concurrent termination paths takes effect.
func (r *Round) End(resultType, winnerID string) {
	if resultType == ResultTimeout {
		if res := r.variant.ResolveTimeout(r); res != nil {
			resultType, winnerID = res.Type, res.WinnerID
		}
	}
	if !r.ended.CompareAndSwap(false, true) {
		r.logf("round %s: end(%s) ignored, already ended", r.id, resultType)
		return
	}
	r.result = &Result{Type: resultType, WinnerID: winnerID}

	w := r.deps.World
	for _, id := range r.order {
		p := r.participants[id]
		won := id == winnerID
		if won {
			r.winners = append(r.winners, id)
		} else {
			r.losers = append(r.losers, id)
		}
		w.RecordGameResult(id, p.Name, won, p.Score)
	}

	msg := r.variant.ResultMessage(r, *r.result)
	r.Announce(msg, "game_end")

	if r.deps.History != nil {
		r.deps.History.SaveRoundHistory(r.historyRecord())
	}

	r.broadcast(protocol.EvGameEnded, protocol.Event{
		"game_id":   r.id,
		"game_type": string(r.variant.Type()),
		"result":    resultType,
		"winner":    winnerID,
		"winners":   append([]string(nil), r.winners...),
		"scores":    r.Scores(),
		"message":   msg,
	})
	w.SetPhase(world.PhaseEnded)
	r.emitStateChanged(resultType)

	// Sweep owned entities after a grace delay so in-flight collaborator
	// animations settle. Guarded: a disposed arena cancels the task.
	gameID := r.id
	r.after(cleanupDelay, func() {
		ids := w.SweepGame(gameID)
		if len(ids) > 0 {
			r.broadcast(protocol.EvEntityDestroyed, protocol.Event{"ids": ids, "game_id": gameID})
		}
	})
	r.after(lobbyReturnDelay, func() {
		if w.Phase() != world.PhaseEnded {
			return
		}
		w.SetPhase(world.PhaseLobby)
		r.Announce("Back to the lobby. Next round soon!", "lobby")
		r.emitStateChanged("")
	})

	if r.deps.OnEnd != nil {
		r.deps.OnEnd(r)
	}
}

// CancelPending cancels every deferred task the round scheduled. Called by
// the arena on dispose.
func (r *Round) CancelPending() {
	for _, c := range r.cancels {
		c()
	}
	r.cancels = nil
}

func (r *Round) emitStateChanged(result string) {
	ev := protocol.Event{
		"phase":     string(r.deps.World.Phase()),
		"game_type": string(r.variant.Type()),
	}
	if r.clockArmed && !r.Ended() {
		ev["time_remaining_sec"] = (r.cfg.TimeLimit - r.elapsed).Seconds()
	}
	if result != "" {
		ev["result"] = result
		ev["winners"] = append([]string(nil), r.winners...)
	}
	r.broadcast(protocol.EvGameStateChanged, ev)
}

// --- participant helpers ---

func (r *Round) Participant(id string) *Participant { return r.participants[id] }

func (r *Round) ParticipantCount() int { return len(r.participants) }

// Participants returns participants in join order.
func (r *Round) Participants() []*Participant {
	out := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.participants[id])
	}
	return out
}

func (r *Round) AliveParticipants() []*Participant {
	var out []*Participant
	for _, p := range r.Participants() {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (r *Round) aliveCount() int { return len(r.AliveParticipants()) }

func (r *Round) EliminatedCount() int { return r.eliminated }

// TopScorer returns the participant with the highest score, ties resolved by
// join order. Nil when the round has no participants.
func (r *Round) TopScorer() *Participant {
	var best *Participant
	for _, p := range r.Participants() {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	return best
}

func (r *Round) Scores() map[string]int {
	out := make(map[string]int, len(r.participants))
	for id, p := range r.participants {
		out[id] = p.Score
	}
	return out
}

// PlayerPosition reads the live world position for a participant.
func (r *Round) PlayerPosition(id string) (world.Vec3, bool) {
	p := r.deps.World.Player(id)
	if p == nil {
		return world.Vec3{}, false
	}
	return p.Position, true
}

// --- owned entity helpers ---

// SpawnOwned places an entity owned by this round and broadcasts it. Owned
// entities are the only ones swept on round end.
func (r *Round) SpawnOwned(e world.Entity) *world.Entity {
	e.GameID = r.id
	ent := r.deps.World.SpawnEntity(e)
	r.entityIDs = append(r.entityIDs, ent.ID)
	r.broadcast(protocol.EvEntitySpawned, protocol.Event{
		"id":      ent.ID,
		"type":    string(ent.Type),
		"pos":     ent.Position.ToArray(),
		"size":    ent.Size.ToArray(),
		"game_id": r.id,
	})
	return ent
}

// DestroyOwned removes a round entity and broadcasts the removal. Unknown ids
// are silently ignored.
func (r *Round) DestroyOwned(id string) {
	if !r.deps.World.DestroyEntity(id) {
		return
	}
	r.broadcast(protocol.EvEntityDestroyed, protocol.Event{"ids": []string{id}, "game_id": r.id})
}

// OwnedEntities returns the round's surviving entities in deterministic order.
func (r *Round) OwnedEntities() []*world.Entity {
	return r.deps.World.EntitiesOwnedBy(r.id)
}

func (r *Round) World() *world.World { return r.deps.World }

func (r *Round) Rand() *rand.Rand { return r.rng }

// Variant exposes the concrete variant, mostly for status payloads and tests.
func (r *Round) Variant() Variant { return r.variant }

// Status is the round snapshot exposed to collaborators.
func (r *Round) Status() protocol.GameStatus {
	players := append([]string(nil), r.order...)
	sort.Strings(players)
	remaining := r.cfg.TimeLimit - r.elapsed
	if remaining < 0 || r.Ended() {
		remaining = 0
	}
	return protocol.GameStatus{
		ID:            r.id,
		GameType:      string(r.variant.Type()),
		IsActive:      r.IsActive(),
		TimeRemaining: remaining.Seconds(),
		Players:       players,
		Scores:        r.Scores(),
		Winners:       append([]string(nil), r.winners...),
		TrickCount:    len(r.tricks),
		TricksFired:   r.tricksFired,
	}
}
