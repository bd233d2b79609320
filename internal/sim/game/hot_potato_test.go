package game

import (
	"testing"
	"time"

	"arenacraft.gg/internal/protocol"
	"arenacraft.gg/internal/sim/world"
)

func curseUpdatesForSubRound(rec *recorder, subRound int) int {
	n := 0
	for _, ev := range rec.events {
		if ev.Name != protocol.EvCurseUpdate {
			continue
		}
		if sr, ok := ev.Payload["sub_round"].(int); ok && sr == subRound {
			n++
		}
	}
	return n
}

func TestHotPotatoFirstSubRoundStarts(t *testing.T) {
	e := newEnv(t, TypeHotPotato, RoundConfig{CurseTime: 5 * time.Second}, "ada", "bob", "cid")

	v := e.r.Variant().(*hotPotato)
	if v.Cursed() == "" {
		t.Fatalf("no cursed player after the first playing tick")
	}
	// alive[1 % 3] holds the curse on sub-round one.
	if got := v.Cursed(); got != e.ids[1] {
		t.Fatalf("cursed: got %s want %s", got, e.ids[1])
	}
	if got := curseUpdatesForSubRound(e.rec, 1); got != 1 {
		t.Fatalf("curse_update for sub-round 1: got %d want 1", got)
	}
}

func TestHotPotatoCurseExpiryEliminatesAndRestartsOnce(t *testing.T) {
	e := newEnv(t, TypeHotPotato, RoundConfig{
		CurseTime:     time.Second,
		SubRoundDelay: 500 * time.Millisecond,
	}, "ada", "bob", "cid")
	v := e.r.Variant().(*hotPotato)
	holder := v.Cursed()

	e.runUntilElapsed(1200 * time.Millisecond)
	if p := e.r.Participant(holder); p.Alive {
		t.Fatalf("curse holder %s still alive after expiry", holder)
	}
	if e.r.Ended() {
		t.Fatalf("round ended with two players still alive")
	}

	// Exactly one new sub-round begins after the delay.
	e.runUntilElapsed(2 * time.Second)
	if got := curseUpdatesForSubRound(e.rec, 2); got != 1 {
		t.Fatalf("curse_update for sub-round 2: got %d want 1", got)
	}
	next := v.Cursed()
	if next == "" || next == holder {
		t.Fatalf("cursed after restart: got %q", next)
	}

	// The second expiry leaves one survivor; the elimination cascade ends it.
	e.runUntilElapsed(4 * time.Second)
	if !e.r.Ended() {
		t.Fatalf("round still active after the second curse expiry")
	}
	res := e.r.Result()
	if res == nil || res.Type != ResultWin {
		t.Fatalf("result: got %+v want win", res)
	}
	if p := e.r.Participant(res.WinnerID); p == nil || !p.Alive {
		t.Fatalf("winner %s is not the survivor", res.WinnerID)
	}
}

func TestHotPotatoOversizedDeltaExpiresImmediately(t *testing.T) {
	e := newEnv(t, TypeHotPotato, RoundConfig{CurseTime: time.Second, TimeLimit: time.Hour}, "ada", "bob", "cid")
	v := e.r.Variant().(*hotPotato)
	holder := v.Cursed()

	// A single oversized tick pushes the timer well below zero.
	e.stepDelta(5 * time.Second)
	if p := e.r.Participant(holder); p.Alive {
		t.Fatalf("holder survived a negative curse timer")
	}
}

func TestHotPotatoProximityTransferWithCooldown(t *testing.T) {
	e := newEnv(t, TypeHotPotato, RoundConfig{
		CurseTime:        time.Minute,
		TransferRadius:   2.5,
		TransferCooldown: 300 * time.Millisecond,
		TimeLimit:        time.Hour,
	}, "ada", "bob", "cid")
	v := e.r.Variant().(*hotPotato)
	bob := v.Cursed()

	// cid stands next to the holder; ada stays parked far away.
	cid := e.ids[2]
	holderPos, _ := e.r.PlayerPosition(bob)
	e.place(cid, holderPos.Add(world.Vec3{X: 1}))

	// Inside the cooldown window nothing moves.
	e.step()
	e.step()
	if got := v.Cursed(); got != bob {
		t.Fatalf("curse transferred inside the cooldown: holder %s", got)
	}

	// Once the cooldown lapses the curse jumps to the neighbour.
	e.step()
	if got := v.Cursed(); got != cid {
		t.Fatalf("cursed after transfer: got %s want %s", got, cid)
	}

	// The fresh cooldown blocks the immediate bounce-back.
	e.step()
	e.step()
	if got := v.Cursed(); got != cid {
		t.Fatalf("curse bounced back inside the cooldown: holder %s", got)
	}
}

func TestHotPotatoTimeoutNeverReclassified(t *testing.T) {
	e := newEnv(t, TypeHotPotato, RoundConfig{
		TimeLimit: time.Second,
		CurseTime: time.Minute,
	}, "ada", "bob", "cid")

	e.runUntilElapsed(2 * time.Second)
	res := e.r.Result()
	if res == nil || res.Type != ResultTimeout {
		t.Fatalf("result: got %+v want timeout", res)
	}
	if res.WinnerID != "" {
		t.Fatalf("timeout produced a winner: %s", res.WinnerID)
	}
}
