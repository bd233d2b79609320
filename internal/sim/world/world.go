package world

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Phase is the arena round-phase state machine:
// lobby -> building -> countdown -> playing -> ended -> lobby.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseBuilding  Phase = "building"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseEnded     Phase = "ended"
)

type Config struct {
	ID           string
	RespawnPoint Vec3
	Gravity      float64
	MoveSpeed    float64
	LogCapacity  int
}

// World is the authoritative state of one arena. It is single-threaded: all
// access must happen from the owning arena's loop goroutine. Mutation methods
// broadcast nothing themselves; the caller emits the corresponding event.
type World struct {
	cfg Config

	phase    Phase
	entities map[string]*Entity
	players  map[string]*Player

	gravity   float64
	moveSpeed float64
	weather   string
	timeOfDay string

	log         []LogEntry
	leaderboard map[string]*LeaderboardEntry
}

type LogEntry struct {
	At    time.Time `json:"at"`
	Kind  string    `json:"kind"` // chat|announcement|system
	Actor string    `json:"actor,omitempty"`
	Text  string    `json:"text"`
}

func New(cfg Config) *World {
	if cfg.Gravity == 0 {
		cfg.Gravity = -20
	}
	if cfg.MoveSpeed == 0 {
		cfg.MoveSpeed = 6
	}
	if cfg.LogCapacity == 0 {
		cfg.LogCapacity = 512
	}
	return &World{
		cfg:         cfg,
		phase:       PhaseLobby,
		entities:    map[string]*Entity{},
		players:     map[string]*Player{},
		gravity:     cfg.Gravity,
		moveSpeed:   cfg.MoveSpeed,
		weather:     "CLEAR",
		timeOfDay:   "DAY",
		leaderboard: map[string]*LeaderboardEntry{},
	}
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) RespawnPoint() Vec3 { return w.cfg.RespawnPoint }

func (w *World) Phase() Phase { return w.phase }

// SetPhase transitions the phase state machine and records the transition.
func (w *World) SetPhase(p Phase) {
	if p == w.phase {
		return
	}
	w.phase = p
	w.AppendLog("system", "", "phase: "+string(p))
}

func (w *World) Gravity() float64 { return w.gravity }

func (w *World) SetGravity(g float64) { w.gravity = g }

func (w *World) MoveSpeed() float64 { return w.moveSpeed }

func (w *World) SetMoveSpeed(s float64) { w.moveSpeed = s }

func (w *World) Weather() string { return w.weather }

func (w *World) SetWeather(weather string) { w.weather = weather }

func (w *World) TimeOfDay() string { return w.timeOfDay }

func (w *World) SetTimeOfDay(t string) { w.timeOfDay = t }

// --- entity CRUD ---

func (w *World) SpawnEntity(e Entity) *Entity {
	if e.ID == "" {
		e.ID = "E" + uuid.NewString()[:8]
	}
	ent := e
	w.entities[ent.ID] = &ent
	return &ent
}

// ModifyEntity merges position/size/props into an existing entity. Returns
// false for unknown ids (missing-entity mutation attempts are no-ops).
func (w *World) ModifyEntity(id string, pos, size *Vec3, props *EntityProps) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	if pos != nil {
		e.Position = *pos
	}
	if size != nil {
		e.Size = *size
	}
	if props != nil {
		e.Props.Merge(*props)
	}
	return true
}

// SetEntityColor is a narrow modify used by variants that recolor markers.
func (w *World) SetEntityColor(id, color string) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	e.Props.Color = color
	return true
}

func (w *World) DestroyEntity(id string) bool {
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	return true
}

func (w *World) Entity(id string) *Entity { return w.entities[id] }

func (w *World) EntityCount() int { return len(w.entities) }

// EntitiesSorted returns entities in deterministic id order.
func (w *World) EntitiesSorted() []*Entity {
	ids := make([]string, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.entities[id])
	}
	return out
}

func (w *World) EntitiesOwnedBy(gameID string) []*Entity {
	var out []*Entity
	for _, e := range w.EntitiesSorted() {
		if e.GameID == gameID {
			out = append(out, e)
		}
	}
	return out
}

// SweepGame destroys every entity owned by the given round and returns the
// destroyed ids.
func (w *World) SweepGame(gameID string) []string {
	var ids []string
	for _, e := range w.EntitiesOwnedBy(gameID) {
		delete(w.entities, e.ID)
		ids = append(ids, e.ID)
	}
	return ids
}

// --- player CRUD ---

func (w *World) AddPlayer(p Player) *Player {
	if p.ID == "" {
		p.ID = "P" + uuid.NewString()[:8]
	}
	if p.State == "" {
		p.State = StateAlive
	}
	pl := p
	w.players[pl.ID] = &pl
	return &pl
}

func (w *World) RemovePlayer(id string) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

func (w *World) Player(id string) *Player { return w.players[id] }

func (w *World) PlayerCount() int { return len(w.players) }

// PlayersSorted returns players in deterministic id order.
func (w *World) PlayersSorted() []*Player {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.players[id])
	}
	return out
}

func (w *World) SetPlayerPosition(id string, pos Vec3) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.Position = pos
	return true
}

func (w *World) SetPlayerState(id string, state PlayerState) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.State = state
	return true
}

// TeleportAll moves every non-spectating player to target and returns the
// moved ids.
func (w *World) TeleportAll(target Vec3) []string {
	var ids []string
	for _, p := range w.PlayersSorted() {
		if p.Spectating() {
			continue
		}
		p.Position = target
		ids = append(ids, p.ID)
	}
	return ids
}

// --- event log ---

// AppendLog records a bounded, append-only log entry.
func (w *World) AppendLog(kind, actor, text string) {
	w.log = append(w.log, LogEntry{At: time.Now(), Kind: kind, Actor: actor, Text: text})
	if len(w.log) > w.cfg.LogCapacity {
		w.log = w.log[len(w.log)-w.cfg.LogCapacity:]
	}
}

func (w *World) Log() []LogEntry {
	out := make([]LogEntry, len(w.log))
	copy(out, w.log)
	return out
}
