package game

import (
	"testing"

	"arenacraft.gg/internal/sim/world"
)

func goalEntity(e *env) *world.Entity {
	for _, ent := range e.r.OwnedEntities() {
		if ent.Props.IsGoal {
			return ent
		}
	}
	return nil
}

func TestReachGoalFirstInsideWins(t *testing.T) {
	e := newEnv(t, TypeReachGoal, RoundConfig{}, "ada", "bob")
	goal := goalEntity(e)
	if goal == nil {
		t.Fatalf("no goal entity spawned")
	}
	bob := e.ids[1]

	e.place(bob, goal.Position)
	e.step()

	if !e.r.Ended() {
		t.Fatalf("round still active with a player inside the goal")
	}
	res := e.r.Result()
	if res == nil || res.Type != ResultWin || res.WinnerID != bob {
		t.Fatalf("result: got %+v want win for %s", res, bob)
	}
	if got := e.rec.announcementCount("bob reached the goal!"); got != 1 {
		t.Fatalf("win announcement: got %d want 1", got)
	}
}

func TestReachGoalMoveGoalRelocatesTheTarget(t *testing.T) {
	e := newEnv(t, TypeReachGoal, RoundConfig{}, "ada", "bob")
	goal := goalEntity(e)
	oldPos := goal.Position
	ada := e.ids[0]

	if !e.r.RunTrickAction("move_goal", nil) {
		t.Fatalf("move_goal not handled")
	}
	newPos := e.w.Entity(goal.ID).Position
	if newPos == oldPos {
		t.Fatalf("goal did not move")
	}

	// The old location no longer wins.
	e.place(ada, oldPos)
	e.step()
	if e.r.Ended() {
		t.Fatalf("round ended at the stale goal location")
	}

	e.place(ada, newPos)
	e.step()
	if !e.r.Ended() {
		t.Fatalf("round still active at the new goal location")
	}
}

func TestReachGoalSpawnObstacles(t *testing.T) {
	e := newEnv(t, TypeReachGoal, RoundConfig{}, "ada", "bob")

	before := 0
	for _, ent := range e.r.OwnedEntities() {
		if ent.Type == world.EntityObstacle {
			before++
		}
	}
	if !e.r.RunTrickAction("spawn_obstacles", map[string]any{"count": 3}) {
		t.Fatalf("spawn_obstacles not handled")
	}
	after := 0
	for _, ent := range e.r.OwnedEntities() {
		if ent.Type == world.EntityObstacle {
			after++
		}
	}
	if after != before+3 {
		t.Fatalf("obstacles: got %d want %d", after, before+3)
	}
}
