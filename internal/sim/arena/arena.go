package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"arenacraft.gg/internal/chain"
	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/game"
	"arenacraft.gg/internal/sim/world"
)

type Config struct {
	ID              string
	TickRateHz      int
	MinPlayers      int
	AutoStartDelay  time.Duration
	Countdown       time.Duration
	RoundTime       time.Duration
	GameRotation    []game.GameType
	RespawnPoint    world.Vec3
	MaxHazards      int
	AIBackfill      int
	Seed            int64
	StateEveryTicks int
}

type JoinRequest struct {
	Name       string
	PlayerType world.PlayerType
	Out        chan []byte
	Resp       chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

// EventLogger persists broadcast events off the tick path. May be nil.
type EventLogger interface {
	Write(v any) error
}

type clientState struct {
	Out chan []byte
}

// Arena bundles one world model, at most one active round, the outbound
// fan-out and the arena-local timers into one independently schedulable unit.
// All state is owned by the loop goroutine; tests drive it via StepOnce.
type Arena struct {
	cfg Config
	log *log.Logger

	world *world.World
	round *game.Round

	chainIf  chain.Chain
	history  game.HistorySink
	eventLog EventLogger

	clients map[string]*clientState
	ready   map[string]bool
	bots    []string

	now   time.Duration
	tick  uint64
	tasks taskQueue

	rotationIdx      int
	autoStartPending bool

	inbox  chan ActionEnvelope
	join   chan JoinRequest
	leave  chan string
	bribes chan chain.Bribe
	stop   chan struct{}
	done   chan struct{}

	stopOnce     sync.Once
	teardownOnce sync.Once
	loopStarted  atomic.Bool
	disposed     atomic.Bool

	lastStatus atomic.Value // Status
}

func New(cfg Config, logger *log.Logger) *Arena {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 10
	}
	if cfg.MinPlayers <= 0 {
		cfg.MinPlayers = 2
	}
	if cfg.AutoStartDelay <= 0 {
		cfg.AutoStartDelay = 5 * time.Second
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = 3 * time.Second
	}
	if cfg.RoundTime <= 0 {
		cfg.RoundTime = 60 * time.Second
	}
	if len(cfg.GameRotation) == 0 {
		cfg.GameRotation = game.KnownTypes()
	}
	if cfg.StateEveryTicks <= 0 {
		cfg.StateEveryTicks = cfg.TickRateHz * 2
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if logger == nil {
		logger = log.New(logDiscard{}, "", 0)
	}
	a := &Arena{
		cfg:     cfg,
		log:     logger,
		world:   world.New(world.Config{ID: cfg.ID, RespawnPoint: cfg.RespawnPoint}),
		clients: map[string]*clientState{},
		ready:   map[string]bool{},
		inbox:   make(chan ActionEnvelope, 256),
		join:    make(chan JoinRequest, 32),
		leave:   make(chan string, 32),
		bribes:  make(chan chain.Bribe, 32),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	a.world.LoadLobbyTemplate()
	a.lastStatus.Store(a.buildStatus())
	return a
}

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }

func (a *Arena) ID() string { return a.cfg.ID }

func (a *Arena) World() *world.World { return a.world }

func (a *Arena) Round() *game.Round { return a.round }

func (a *Arena) Now() time.Duration { return a.now }

func (a *Arena) SetChain(c chain.Chain) { a.chainIf = c }

func (a *Arena) SetHistory(h game.HistorySink) { a.history = h }

func (a *Arena) SetEventLogger(l EventLogger) { a.eventLog = l }

// Inbox channels for the transport layer.
func (a *Arena) Inbox() chan<- ActionEnvelope { return a.inbox }

func (a *Arena) Join() chan<- JoinRequest { return a.join }

func (a *Arena) Leave() chan<- string { return a.leave }

// After implements game.Scheduler on the arena's simulated clock.
func (a *Arena) After(d time.Duration, fn func()) game.CancelFunc {
	return a.tasks.After(a.now, d, fn)
}

// Run drives the arena at its tick rate until the context ends or the arena
// is disposed. Inputs queue between ticks and apply at the tick boundary.
// Teardown runs here on exit, so no other goroutine ever touches loop-owned
// state.
func (a *Arena) Run(ctx context.Context) error {
	a.loopStarted.Store(true)
	defer a.teardown()

	interval := time.Second / time.Duration(a.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActs []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stop:
			return nil
		case req := <-a.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-a.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-a.inbox:
			pendingActs = append(pendingActs, env)
		case <-ticker.C:
			a.step(interval, pendingJoins, pendingLeaves, pendingActs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActs = pendingActs[:0]
		}
	}
}

// StepOnce advances the arena by a single tick with the same ordering
// semantics as Run. Intended for deterministic tests.
func (a *Arena) StepOnce(delta time.Duration, joins []JoinRequest, leaves []string, acts []ActionEnvelope) {
	a.step(delta, joins, leaves, acts)
}

func (a *Arena) step(delta time.Duration, joins []JoinRequest, leaves []string, acts []ActionEnvelope) {
	if a.disposed.Load() {
		return
	}
	a.now += delta
	a.tick++

	for _, id := range leaves {
		a.handleLeave(id)
	}
	for _, req := range joins {
		a.handleJoin(req)
	}
	for _, env := range acts {
		a.applyAct(env)
	}
	a.drainBribes()

	a.tasks.RunDue(a.now)

	a.maybeAutoStart()

	if a.round != nil {
		a.round.Update(delta)
	}

	if a.tick%uint64(a.cfg.StateEveryTicks) == 0 {
		a.broadcastState()
	}
	a.lastStatus.Store(a.buildStatus())
}

func (a *Arena) handleJoin(req JoinRequest) {
	pt := req.PlayerType
	if pt == "" {
		pt = world.PlayerHuman
	}
	state := world.StateAlive
	// Mid-round joiners spectate until the next round.
	if a.round != nil && a.round.IsActive() {
		state = world.StateSpectating
	}
	p := a.world.AddPlayer(world.Player{
		Name:     req.Name,
		Type:     pt,
		Position: a.world.RespawnPoint(),
		State:    state,
	})
	if req.Out != nil {
		a.clients[p.ID] = &clientState{Out: req.Out}
	}
	a.world.AppendLog("system", p.ID, p.Name+" joined")
	a.Broadcast(protocol.EvPlayerJoined, protocol.Event{
		"player": p.ID,
		"name":   p.Name,
		"state":  string(p.State),
	})
	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			PlayerID:        p.ID,
			ArenaID:         a.cfg.ID,
			Params: protocol.ArenaParams{
				TickRateHz:   a.cfg.TickRateHz,
				Phase:        string(a.world.Phase()),
				RespawnPoint: a.world.RespawnPoint().ToArray(),
				Gravity:      a.world.Gravity(),
			},
		}}
	}
}

func (a *Arena) handleLeave(id string) {
	p := a.world.Player(id)
	if p == nil {
		return
	}
	if a.round != nil {
		a.round.EliminatePlayer(id)
	}
	delete(a.clients, id)
	delete(a.ready, id)
	a.world.RemovePlayer(id)
	a.world.AppendLog("system", id, p.Name+" left")
	a.Broadcast(protocol.EvPlayerLeft, protocol.Event{"player": id})
}

func (a *Arena) applyAct(env ActionEnvelope) {
	p := a.world.Player(env.PlayerID)
	if p == nil {
		return
	}
	if env.Act.Pos != nil {
		a.world.SetPlayerPosition(env.PlayerID, world.FromArray(*env.Act.Pos))
	}
	if env.Act.Chat != "" {
		a.world.AppendLog("chat", env.PlayerID, env.Act.Chat)
		a.Broadcast(protocol.EvChat, protocol.Event{"player": env.PlayerID, "name": p.Name, "text": env.Act.Chat})
	}
	if env.Act.Ready != nil {
		a.ready[env.PlayerID] = *env.Act.Ready
	}
}

// maybeAutoStart arms the auto-start timer once enough participants are
// ready. The deferred task re-checks the condition when it fires so drop-outs
// during the delay abort the start.
func (a *Arena) maybeAutoStart() {
	if a.round != nil || a.autoStartPending || a.world.Phase() != world.PhaseLobby {
		return
	}
	if a.readyCount() < a.cfg.MinPlayers {
		return
	}
	a.autoStartPending = true
	a.Broadcast(protocol.EvAnnouncement, protocol.Event{
		"text": fmt.Sprintf("Round starts in %d seconds!", int(a.cfg.AutoStartDelay.Seconds())),
		"kind": "auto_start",
	})
	a.After(a.cfg.AutoStartDelay, func() {
		a.autoStartPending = false
		if a.round != nil || a.readyCount() < a.cfg.MinPlayers {
			return
		}
		t := a.cfg.GameRotation[a.rotationIdx%len(a.cfg.GameRotation)]
		a.rotationIdx++
		if err := a.StartGame(t, game.RoundConfig{}); err != nil {
			a.log.Printf("arena %s: auto-start %s: %v", a.cfg.ID, t, err)
		}
	})
}

func (a *Arena) readyCount() int {
	n := 0
	for _, p := range a.world.PlayersSorted() {
		if p.Spectating() {
			continue
		}
		if p.Type != world.PlayerHuman || a.ready[p.ID] {
			n++
		}
	}
	return n
}

// StartGame creates and starts a round. A round already in flight makes this
// a logged no-op error, never a partial start.
func (a *Arena) StartGame(t game.GameType, cfg game.RoundConfig) error {
	if a.round != nil {
		a.log.Printf("arena %s: start %s rejected, round %s active", a.cfg.ID, t, a.round.ID())
		return fmt.Errorf("arena %s: round already active", a.cfg.ID)
	}
	if cfg.ArenaID == "" {
		cfg.ArenaID = a.cfg.ID
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = a.cfg.RoundTime
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = a.cfg.Countdown
	}
	if cfg.MaxHazards == 0 {
		cfg.MaxHazards = a.cfg.MaxHazards
	}
	if cfg.Seed == 0 {
		cfg.Seed = a.cfg.Seed + int64(a.tick)
	}
	r, err := game.NewRound(t, cfg, game.Deps{
		World:     a.world,
		Broadcast: a.Broadcast,
		History:   a.history,
		Scheduler: a,
		Logf:      a.log.Printf,
		OnEnd: func(ended *game.Round) {
			if a.round == ended {
				a.round = nil
			}
		},
	})
	if err != nil {
		a.log.Printf("arena %s: %v", a.cfg.ID, err)
		return err
	}
	a.round = r
	r.Start()
	return nil
}

// EndGame force-ends the active round; safe to call when none is active.
func (a *Arena) EndGame(result string) {
	if a.round == nil {
		return
	}
	a.round.End(result, "")
}

// SpawnBots adds arena-owned AI participants. Dispose removes them again.
func (a *Arena) SpawnBots(n int) {
	for i := 0; i < n; i++ {
		p := a.world.AddPlayer(world.Player{
			Name:     fmt.Sprintf("bot-%d", len(a.bots)+1),
			Type:     world.PlayerAI,
			Position: a.world.RespawnPoint(),
		})
		a.bots = append(a.bots, p.ID)
	}
}

// Broadcast fans an event out to every connected client and the event log.
// Sends never block: a slow client drops events rather than stalling the
// tick.
func (a *Arena) Broadcast(name string, payload any) {
	msg := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Name:            name,
		Payload:         payload,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		a.log.Printf("arena %s: marshal %s: %v", a.cfg.ID, name, err)
		return
	}
	for _, cl := range a.clients {
		sendLatest(cl.Out, b)
	}
	if a.eventLog != nil {
		if err := a.eventLog.Write(eventRecord{Arena: a.cfg.ID, Tick: a.tick, Name: name, Payload: payload}); err != nil {
			a.log.Printf("arena %s: event log: %v", a.cfg.ID, err)
		}
	}
}

type eventRecord struct {
	Arena   string `json:"arena"`
	Tick    uint64 `json:"tick"`
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

// sendLatest drops the oldest queued frame instead of blocking.
func sendLatest(out chan []byte, b []byte) {
	for {
		select {
		case out <- b:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

func (a *Arena) broadcastState() {
	players := make([]protocol.PlayerSnapshot, 0, a.world.PlayerCount())
	for _, p := range a.world.PlayersSorted() {
		players = append(players, protocol.PlayerSnapshot{
			ID:    p.ID,
			Name:  p.Name,
			Pos:   p.Position.ToArray(),
			State: string(p.State),
		})
	}
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		ArenaID:         a.cfg.ID,
		Phase:           string(a.world.Phase()),
		Players:         players,
		Entities:        a.world.EntityCount(),
	}
	if a.round != nil {
		st := a.round.Status()
		msg.Game = &st
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, cl := range a.clients {
		sendLatest(cl.Out, b)
	}
}

// Dispose stops the loop and tears the arena down: every pending timer is
// cancelled, outbound channels close and arena-introduced bots leave the
// world. With a running loop the teardown happens on the loop goroutine after
// it drains out of its current tick; Dispose blocks until that completes.
// Double-dispose is safe.
func (a *Arena) Dispose() {
	a.stopOnce.Do(func() { close(a.stop) })
	if !a.loopStarted.Load() {
		a.teardown()
	}
	<-a.done
}

func (a *Arena) teardown() {
	a.teardownOnce.Do(func() {
		a.disposed.Store(true)
		if a.round != nil {
			a.round.CancelPending()
			a.round = nil
		}
		a.tasks.CancelAll()
		for id, cl := range a.clients {
			close(cl.Out)
			delete(a.clients, id)
		}
		for _, id := range a.bots {
			a.world.RemovePlayer(id)
		}
		a.bots = nil
		a.log.Printf("arena %s: disposed", a.cfg.ID)
		close(a.done)
	})
}

func (a *Arena) Disposed() bool { return a.disposed.Load() }

// Done is closed once the arena has been torn down. Transport goroutines
// select on it so post-shutdown sends into the arena channels cannot block.
func (a *Arena) Done() <-chan struct{} { return a.done }
