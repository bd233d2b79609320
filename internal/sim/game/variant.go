package game

import (
	"fmt"
	"time"

	"arenacraft.gg/internal/protocol"
)

// Variant is the capability set each mini-game type supplies on top of the
// shared round skeleton.
type Variant interface {
	Type() GameType

	// Init spawns the variant's layout. Runs during the building phase.
	Init(r *Round)

	// SetupDefaultTricks arms the variant's default trick list.
	SetupDefaultTricks(r *Round)

	// Tick runs variant logic once per playing tick, after tricks and
	// warnings but before the win check, so same-tick eliminations are
	// visible to CheckWinCondition.
	Tick(r *Round, delta time.Duration)

	// CheckWinCondition returns a non-nil result when the round is decided.
	CheckWinCondition(r *Round) *Result

	// ExecuteTrickAction handles variant-specific trick actions. Returns
	// false for actions it does not recognize.
	ExecuteTrickAction(r *Round, action string, params map[string]any) bool

	// ResolveTimeout reclassifies a timeout result, e.g. into a win for the
	// current best scorer. Nil keeps the genuine timeout.
	ResolveTimeout(r *Round) *Result

	// ResultMessage renders the end-of-round announcement.
	ResultMessage(r *Round, res Result) string
}

func newVariant(t GameType) (Variant, error) {
	switch t {
	case TypeReachGoal:
		return &reachGoal{}, nil
	case TypeCollect:
		return &collectGame{}, nil
	case TypeSurvival:
		return &survival{}, nil
	case TypeKingOfHill:
		return &kingOfHill{}, nil
	case TypeHotPotato:
		return &hotPotato{}, nil
	case TypeRace:
		return &race{}, nil
	default:
		return nil, fmt.Errorf("%s: unknown game type %q", protocol.ErrUnknownGame, t)
	}
}

// KnownTypes lists the selectable game types in rotation order.
func KnownTypes() []GameType {
	return []GameType{TypeReachGoal, TypeCollect, TypeSurvival, TypeKingOfHill, TypeHotPotato, TypeRace}
}

// IsKnownType reports whether t maps to a variant.
func IsKnownType(t GameType) bool {
	_, err := newVariant(t)
	return err == nil
}

func winnerName(r *Round, id string) string {
	if p := r.Participant(id); p != nil {
		return p.Name
	}
	return id
}
