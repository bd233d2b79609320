package game

import (
	"sort"
	"testing"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

// testScheduler mirrors the arena's tick-time deferred task queue so round
// tests run deterministically without wall timers.
type testScheduler struct {
	now   time.Duration
	seq   uint64
	tasks []*testTask
}

type testTask struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

func (s *testScheduler) After(d time.Duration, fn func()) CancelFunc {
	s.seq++
	t := &testTask{at: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

func (s *testScheduler) advance(d time.Duration) {
	s.now += d
	var due, rest []*testTask
	for _, t := range s.tasks {
		if t.cancelled {
			continue
		}
		if t.at <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.tasks = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if !t.cancelled {
			t.fn()
		}
	}
}

type broadcastRecord struct {
	Name    string
	Payload protocol.Event
}

type recorder struct {
	events []broadcastRecord
}

func (r *recorder) broadcast(name string, payload any) {
	ev, _ := payload.(protocol.Event)
	r.events = append(r.events, broadcastRecord{Name: name, Payload: ev})
}

func (r *recorder) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

func (r *recorder) last(name string) *broadcastRecord {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Name == name {
			return &r.events[i]
		}
	}
	return nil
}

func (r *recorder) announcements() []string {
	var out []string
	for _, e := range r.events {
		if e.Name == protocol.EvAnnouncement {
			if text, ok := e.Payload["text"].(string); ok {
				out = append(out, text)
			}
		}
	}
	return out
}

func (r *recorder) announcementCount(text string) int {
	n := 0
	for _, t := range r.announcements() {
		if t == text {
			n++
		}
	}
	return n
}

type historyRecorder struct {
	records []RoundRecord
}

func (h *historyRecorder) SaveRoundHistory(rec RoundRecord) {
	h.records = append(h.records, rec)
}

type env struct {
	t     *testing.T
	w     *world.World
	r     *Round
	sched *testScheduler
	rec   *recorder
	hist  *historyRecorder
	ids   []string
}

const testDelta = 100 * time.Millisecond

// newEnv builds a started round with the given players, then steps once so
// the countdown (100ms in tests) elapses and the round clock arms at zero.
func newEnv(t *testing.T, gt GameType, cfg RoundConfig, playerNames ...string) *env {
	t.Helper()

	w := world.New(world.Config{ID: "test", RespawnPoint: world.Vec3{Y: 1}})
	e := &env{
		t:     t,
		w:     w,
		sched: &testScheduler{},
		rec:   &recorder{},
		hist:  &historyRecorder{},
	}
	for i, name := range playerNames {
		p := w.AddPlayer(world.Player{ID: "P" + string(rune('1'+i)), Name: name, Type: world.PlayerHuman})
		e.ids = append(e.ids, p.ID)
	}

	if cfg.TimeLimit == 0 {
		cfg.TimeLimit = 60 * time.Second
	}
	cfg.Countdown = testDelta

	r, err := NewRound(gt, cfg, Deps{
		World:     w,
		Broadcast: e.rec.broadcast,
		History:   e.hist,
		Scheduler: e.sched,
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatalf("NewRound(%s): %v", gt, err)
	}
	e.r = r
	r.Start()
	if got := w.Phase(); got != world.PhaseCountdown {
		t.Fatalf("phase after start: got %s want %s", got, world.PhaseCountdown)
	}
	e.park() // away from the layout; tests place players where they need them
	e.step() // countdown fires, clock arms
	if got := w.Phase(); got != world.PhasePlaying {
		t.Fatalf("phase after countdown: got %s want %s", got, world.PhasePlaying)
	}
	return e
}

// step advances scheduler tasks then the round, matching arena step order.
func (e *env) step() {
	e.stepDelta(testDelta)
}

func (e *env) stepDelta(d time.Duration) {
	e.sched.advance(d)
	e.r.Update(d)
}

// run steps until the given round-elapsed time is reached.
func (e *env) runUntilElapsed(d time.Duration) {
	for e.r.Elapsed() < d && !e.r.Ended() {
		e.step()
	}
}

func (e *env) place(playerID string, pos world.Vec3) {
	e.t.Helper()
	if !e.w.SetPlayerPosition(playerID, pos) {
		e.t.Fatalf("place %s: unknown player", playerID)
	}
}

// park moves every participant far from the round layout.
func (e *env) park() {
	for i, id := range e.ids {
		e.place(id, world.Vec3{X: 500 + float64(i)*20, Y: 1, Z: 500})
	}
}
