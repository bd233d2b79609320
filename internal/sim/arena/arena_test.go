package arena

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"arenacraft.gg/internal/chain"
	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/game"
	"arenacraft.gg/internal/sim/world"
)

const tick = 100 * time.Millisecond

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	return New(Config{
		ID:              "test-arena",
		TickRateHz:      10,
		MinPlayers:      2,
		AutoStartDelay:  300 * time.Millisecond,
		Countdown:       100 * time.Millisecond,
		RoundTime:       60 * time.Second,
		GameRotation:    []game.GameType{game.TypeSurvival, game.TypeCollect},
		RespawnPoint:    world.Vec3{Y: 1},
		Seed:            7,
		StateEveryTicks: 1 << 20, // keep periodic state dumps out of event asserts
	}, nil)
}

type testClient struct {
	id  string
	out chan []byte
}

func joinPlayer(t *testing.T, a *Arena, name string) *testClient {
	t.Helper()
	out := make(chan []byte, 64)
	resp := make(chan JoinResponse, 1)
	a.StepOnce(tick, []JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	select {
	case jr := <-resp:
		return &testClient{id: jr.Welcome.PlayerID, out: out}
	default:
		t.Fatalf("no welcome for %s", name)
		return nil
	}
}

// eventNames drains the client channel and returns the broadcast event names.
func eventNames(t *testing.T, c *testClient) []string {
	t.Helper()
	var names []string
	for {
		select {
		case b := <-c.out:
			var msg protocol.EventMsg
			if err := json.Unmarshal(b, &msg); err != nil {
				t.Fatalf("unmarshal client frame: %v", err)
			}
			if msg.Type == protocol.TypeEvent {
				names = append(names, msg.Name)
			}
		default:
			return names
		}
	}
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func ready(a *Arena, ids ...string) {
	yes := true
	var acts []ActionEnvelope
	for _, id := range ids {
		acts = append(acts, ActionEnvelope{PlayerID: id, Act: protocol.ActMsg{Ready: &yes}})
	}
	a.StepOnce(tick, nil, nil, acts)
}

func TestJoinDeliversWelcomeAndBroadcast(t *testing.T) {
	a := newTestArena(t)
	c := joinPlayer(t, a, "ada")

	if c.id == "" {
		t.Fatalf("welcome carried no player id")
	}
	st := a.Status()
	if st.Players != 1 {
		t.Fatalf("status players: got %d want 1", st.Players)
	}
	if st.Phase != string(world.PhaseLobby) {
		t.Fatalf("status phase: got %s want lobby", st.Phase)
	}
	if names := eventNames(t, c); !contains(names, protocol.EvPlayerJoined) {
		t.Fatalf("player_joined not broadcast; got %v", names)
	}
}

func TestMidRoundJoinSpectates(t *testing.T) {
	a := newTestArena(t)
	joinPlayer(t, a, "ada")
	joinPlayer(t, a, "bob")

	if err := a.StartGame(game.TypeSurvival, game.RoundConfig{}); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	a.StepOnce(tick, nil, nil, nil) // countdown elapses, round goes live

	late := joinPlayer(t, a, "cid")
	p := a.World().Player(late.id)
	if p == nil || p.State != world.StateSpectating {
		t.Fatalf("late joiner state: got %+v want spectating", p)
	}
	if a.Round().Participant(late.id) != nil {
		t.Fatalf("late joiner became a participant")
	}
	if got := a.Round().ParticipantCount(); got != 2 {
		t.Fatalf("participants: got %d want 2", got)
	}
}

func TestStartGameRejectsWhileActive(t *testing.T) {
	a := newTestArena(t)
	joinPlayer(t, a, "ada")
	joinPlayer(t, a, "bob")

	if err := a.StartGame(game.TypeSurvival, game.RoundConfig{}); err != nil {
		t.Fatalf("first StartGame: %v", err)
	}
	if err := a.StartGame(game.TypeCollect, game.RoundConfig{}); err == nil {
		t.Fatalf("second StartGame succeeded with a round active")
	}
	if got := a.Round().Type(); got != game.TypeSurvival {
		t.Fatalf("active round type: got %s want survival", got)
	}
}

func TestAutoStartWhenEnoughReady(t *testing.T) {
	a := newTestArena(t)
	ada := joinPlayer(t, a, "ada")
	bob := joinPlayer(t, a, "bob")

	// Humans are not ready yet: nothing arms.
	a.StepOnce(tick, nil, nil, nil)
	if a.Round() != nil {
		t.Fatalf("round started without ready players")
	}

	ready(a, ada.id, bob.id)
	// The announcement fires on the arming tick; rotation starts after delay.
	if names := eventNames(t, ada); !contains(names, protocol.EvAnnouncement) {
		t.Fatalf("no auto-start announcement; got %v", names)
	}
	for i := 0; i < 3; i++ {
		a.StepOnce(tick, nil, nil, nil)
	}
	if a.Round() == nil {
		t.Fatalf("round did not auto-start")
	}
	if got := a.Round().Type(); got != game.TypeSurvival {
		t.Fatalf("rotation: got %s want survival first", got)
	}
}

func TestAutoStartAbortsWhenPlayersBailOut(t *testing.T) {
	a := newTestArena(t)
	ada := joinPlayer(t, a, "ada")
	bob := joinPlayer(t, a, "bob")
	ready(a, ada.id, bob.id)

	// bob un-readies inside the delay window.
	no := false
	a.StepOnce(tick, nil, nil, []ActionEnvelope{{PlayerID: bob.id, Act: protocol.ActMsg{Ready: &no}}})
	for i := 0; i < 5; i++ {
		a.StepOnce(tick, nil, nil, nil)
	}
	if a.Round() != nil {
		t.Fatalf("round started after readiness dropped below the minimum")
	}
}

func TestBotsCountAsReady(t *testing.T) {
	a := newTestArena(t)
	a.SpawnBots(2)

	for i := 0; i < 5; i++ {
		a.StepOnce(tick, nil, nil, nil)
	}
	if a.Round() == nil {
		t.Fatalf("bot-only arena did not auto-start")
	}
}

func TestLeaveMidRoundEliminates(t *testing.T) {
	a := newTestArena(t)
	ada := joinPlayer(t, a, "ada")
	bob := joinPlayer(t, a, "bob")

	if err := a.StartGame(game.TypeSurvival, game.RoundConfig{}); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	r := a.Round()
	a.StepOnce(tick, nil, []string{bob.id}, nil)

	// The survivor wins synchronously and the arena clears its round slot.
	res := r.Result()
	if res == nil || res.Type != game.ResultWin || res.WinnerID != ada.id {
		t.Fatalf("result: got %+v want win for %s", res, ada.id)
	}
	if a.Round() != nil {
		t.Fatalf("round slot not cleared after end")
	}
	if a.World().Player(bob.id) != nil {
		t.Fatalf("leaver still present in the world")
	}
}

func TestActUpdatesPositionAndChat(t *testing.T) {
	a := newTestArena(t)
	ada := joinPlayer(t, a, "ada")

	pos := [3]float64{3, 1, 4}
	a.StepOnce(tick, nil, nil, []ActionEnvelope{
		{PlayerID: ada.id, Act: protocol.ActMsg{Pos: &pos, Chat: "hi all"}},
	})
	if got := a.World().Player(ada.id).Position; got != world.FromArray(pos) {
		t.Fatalf("position: got %+v want %+v", got, pos)
	}
	if names := eventNames(t, ada); !contains(names, protocol.EvChat) {
		t.Fatalf("chat not broadcast; got %v", names)
	}

	// Acts from unknown players are dropped.
	a.StepOnce(tick, nil, nil, []ActionEnvelope{
		{PlayerID: "P-ghost", Act: protocol.ActMsg{Chat: "boo"}},
	})
}

func TestBribeHonoredDuringRound(t *testing.T) {
	a := newTestArena(t)
	a.SetChain(&chain.Noop{})
	ada := joinPlayer(t, a, "ada")
	joinPlayer(t, a, "bob")

	if err := a.StartGame(game.TypeSurvival, game.RoundConfig{}); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	a.StepOnce(tick, nil, nil, nil) // round live

	ok := a.SubmitBribe(context.Background(), chain.Bribe{
		ID: "b1", PlayerID: ada.id, Action: "announce", Amount: 10,
	})
	if !ok {
		t.Fatalf("funded bribe rejected")
	}
	a.StepOnce(tick, nil, nil, nil)

	names := eventNames(t, ada)
	if !contains(names, protocol.EvAnnouncement) {
		t.Fatalf("honored bribe produced no announcement; got %v", names)
	}
}

func TestBribeRejections(t *testing.T) {
	a := newTestArena(t)
	a.SetChain(&chain.Noop{Balance: 5})
	ada := joinPlayer(t, a, "ada")

	if a.SubmitBribe(context.Background(), chain.Bribe{ID: "b1", PlayerID: ada.id, Action: "announce", Amount: 50}) {
		t.Fatalf("underfunded bribe accepted")
	}
	if a.SubmitBribe(context.Background(), chain.Bribe{ID: "b2", PlayerID: ada.id, Action: "delete_world", Amount: 1}) {
		t.Fatalf("unknown bribe action accepted")
	}
}

func TestBribeOutsideRoundNotHonored(t *testing.T) {
	a := newTestArena(t)
	a.SetChain(&chain.Noop{})
	ada := joinPlayer(t, a, "ada")
	eventNames(t, ada) // drain the join noise

	if !a.SubmitBribe(context.Background(), chain.Bribe{ID: "b1", PlayerID: ada.id, Action: "announce", Amount: 1}) {
		t.Fatalf("bribe rejected before queueing")
	}
	a.StepOnce(tick, nil, nil, nil)
	if names := eventNames(t, ada); contains(names, protocol.EvAnnouncement) {
		t.Fatalf("bribe honored with no active round")
	}
}

func TestDisposeIsIdempotentAndStopsTheArena(t *testing.T) {
	a := newTestArena(t)
	a.SpawnBots(1)
	ada := joinPlayer(t, a, "ada")
	joinPlayer(t, a, "bob")

	if err := a.StartGame(game.TypeSurvival, game.RoundConfig{}); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	a.Dispose()
	a.Dispose()

	if !a.Disposed() {
		t.Fatalf("arena not marked disposed")
	}
	if a.Round() != nil {
		t.Fatalf("round survived dispose")
	}
	if got := a.tasks.Pending(); got != 0 {
		t.Fatalf("pending tasks after dispose: got %d want 0", got)
	}
	// Bots are removed; humans stay in the world for the owner to clean up.
	for _, p := range a.World().PlayersSorted() {
		if p.Type == world.PlayerAI {
			t.Fatalf("bot %s survived dispose", p.ID)
		}
	}

	// Out channels are closed once drained.
	for {
		if _, open := <-ada.out; !open {
			break
		}
	}

	// Steps after dispose are no-ops.
	before := a.Now()
	a.StepOnce(tick, nil, nil, nil)
	if a.Now() != before {
		t.Fatalf("disposed arena still ticking")
	}
}

func TestDisposeWhileLoopRunning(t *testing.T) {
	a := New(Config{
		ID:             "live-arena",
		TickRateHz:     1000,
		MinPlayers:     2,
		AutoStartDelay: 5 * time.Millisecond,
		Countdown:      5 * time.Millisecond,
		GameRotation:   []game.GameType{game.TypeSurvival},
		RespawnPoint:   world.Vec3{Y: 1},
		Seed:           7,
	}, nil)
	a.SpawnBots(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = a.Run(ctx)
	}()

	out := make(chan []byte, 8)
	resp := make(chan JoinResponse, 1)
	a.Join() <- JoinRequest{Name: "ada", Out: out, Resp: resp}
	select {
	case <-resp:
	case <-time.After(3 * time.Second):
		t.Fatalf("running loop did not process the join")
	}

	// Let the loop tick and auto-start a round underneath the dispose.
	time.Sleep(20 * time.Millisecond)
	a.Dispose()

	if !a.Disposed() {
		t.Fatalf("arena not marked disposed")
	}
	if a.Round() != nil {
		t.Fatalf("round survived dispose")
	}
	select {
	case <-loopDone:
	case <-time.After(3 * time.Second):
		t.Fatalf("loop still running after dispose")
	}
	// Out channels are closed once drained.
	for {
		if _, open := <-out; !open {
			break
		}
	}
	a.Dispose() // still safe with the loop gone
}

func TestDoneUnblocksSendsAfterDispose(t *testing.T) {
	a := newTestArena(t)
	c := joinPlayer(t, a, "ada")
	a.Dispose()

	// Stranded transport goroutines would fill the leave buffer; the send
	// must still resolve via Done.
	for i := 0; i < cap(a.leave); i++ {
		a.leave <- c.id
	}
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		select {
		case a.Leave() <- c.id:
		case <-a.Done():
		}
	}()
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("leave send blocked after dispose")
	}
}

func TestSendLatestDropsOldestFrame(t *testing.T) {
	out := make(chan []byte, 1)
	sendLatest(out, []byte("first"))
	sendLatest(out, []byte("second"))

	if got := len(out); got != 1 {
		t.Fatalf("queued frames: got %d want 1", got)
	}
	if got := string(<-out); got != "second" {
		t.Fatalf("kept frame: got %q want %q", got, "second")
	}
}

func TestRoundRotationAdvances(t *testing.T) {
	a := newTestArena(t)
	ada := joinPlayer(t, a, "ada")
	bob := joinPlayer(t, a, "bob")
	ready(a, ada.id, bob.id)

	for i := 0; i < 3; i++ {
		a.StepOnce(tick, nil, nil, nil)
	}
	if a.Round() == nil || a.Round().Type() != game.TypeSurvival {
		t.Fatalf("first rotation slot: got %v", a.Round())
	}
	a.EndGame(game.ResultTimeout)
	if a.Round() != nil {
		t.Fatalf("round slot not cleared by EndGame")
	}

	// Phase walks back to lobby, then the next rotation slot starts.
	for i := 0; i < 120 && a.Round() == nil; i++ {
		a.StepOnce(tick, nil, nil, nil)
	}
	if a.Round() == nil {
		t.Fatalf("second round never started")
	}
	if got := a.Round().Type(); got != game.TypeCollect {
		t.Fatalf("second rotation slot: got %s want collect", got)
	}
}
