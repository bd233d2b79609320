package multiarena

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"arenacraft.gg/internal/chain"
	"arenacraft.gg/internal/sim/arena"
	"arenacraft.gg/internal/sim/game"
	"arenacraft.gg/internal/sim/world"
)

const joinTimeout = 3 * time.Second

type Runtime struct {
	Spec  ArenaSpec
	Arena *arena.Arena

	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every arena runtime. Arenas share no mutable state; the
// manager only routes joins and fans out lifecycle calls.
type Manager struct {
	mu       sync.RWMutex
	runtimes map[string]*Runtime

	defaultID string
	log       *log.Logger

	closeOnce sync.Once
}

type Deps struct {
	Chain    chain.Chain
	History  game.HistorySink
	EventLog arena.EventLogger
}

func NewManager(cfg Config, deps Deps, logger *log.Logger) (*Manager, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		runtimes:  map[string]*Runtime{},
		defaultID: cfg.DefaultArenaID,
		log:       logger,
	}
	for _, spec := range cfg.Arenas {
		rotation := make([]game.GameType, 0, len(spec.GameRotation))
		for _, t := range spec.GameRotation {
			rotation = append(rotation, game.GameType(t))
		}
		a := arena.New(arena.Config{
			ID:             spec.ID,
			TickRateHz:     cfg.TickRateHz,
			MinPlayers:     spec.MinPlayers,
			AutoStartDelay: time.Duration(spec.AutoStartDelaySec * float64(time.Second)),
			Countdown:      time.Duration(spec.CountdownSec * float64(time.Second)),
			RoundTime:      time.Duration(spec.RoundTimeSec * float64(time.Second)),
			GameRotation:   rotation,
			RespawnPoint:   world.FromArray(spec.RespawnPoint),
			MaxHazards:     spec.MaxHazards,
			AIBackfill:     spec.AIBackfill,
			Seed:           spec.Seed,
		}, logger)
		if deps.Chain != nil {
			a.SetChain(deps.Chain)
		}
		if deps.History != nil {
			a.SetHistory(deps.History)
		}
		if deps.EventLog != nil {
			a.SetEventLogger(deps.EventLog)
		}
		if spec.AIBackfill > 0 {
			a.SpawnBots(spec.AIBackfill)
		}
		m.runtimes[spec.ID] = &Runtime{Spec: spec, Arena: a}
	}
	return m, nil
}

// Start launches every arena loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rt := range m.runtimes {
		if rt.cancel != nil {
			continue
		}
		actx, cancel := context.WithCancel(ctx)
		rt.cancel = cancel
		rt.done = make(chan struct{})
		go func(id string, rt *Runtime) {
			defer close(rt.done)
			if err := rt.Arena.Run(actx); err != nil && err != context.Canceled {
				m.log.Printf("arena %s: loop: %v", id, err)
			}
		}(id, rt)
	}
}

func (m *Manager) ArenaIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Runtime(id string) *Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimes[id]
}

func (m *Manager) DefaultArenaID() string { return m.defaultID }

// JoinArena routes a join to the named arena (default when empty) and waits
// for the welcome.
func (m *Manager) JoinArena(arenaID string, req arena.JoinRequest) (arena.JoinResponse, *arena.Arena, error) {
	if arenaID == "" {
		arenaID = m.defaultID
	}
	rt := m.Runtime(arenaID)
	if rt == nil {
		return arena.JoinResponse{}, nil, fmt.Errorf("arena %q not found", arenaID)
	}
	resp := make(chan arena.JoinResponse, 1)
	req.Resp = resp
	select {
	case rt.Arena.Join() <- req:
	case <-time.After(joinTimeout):
		return arena.JoinResponse{}, nil, fmt.Errorf("arena %s: join queue full", arenaID)
	}
	select {
	case jr := <-resp:
		return jr, rt.Arena, nil
	case <-time.After(joinTimeout):
		return arena.JoinResponse{}, nil, fmt.Errorf("arena %s: join timed out", arenaID)
	}
}

// Statuses returns the latest per-arena snapshots.
func (m *Manager) Statuses() []arena.Status {
	ids := m.ArenaIDs()
	out := make([]arena.Status, 0, len(ids))
	for _, id := range ids {
		if rt := m.Runtime(id); rt != nil {
			out = append(out, rt.Arena.Status())
		}
	}
	return out
}

// Shutdown disposes every arena and waits for the loops to stop. Dispose
// returns once the arena's own loop has finished its teardown, so nothing
// here touches loop-owned state.
func (m *Manager) Shutdown() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, rt := range m.runtimes {
			rt.Arena.Dispose()
			if rt.cancel != nil {
				rt.cancel()
			}
		}
		for _, rt := range m.runtimes {
			if rt.done != nil {
				<-rt.done
			}
		}
	})
}
