package world

import "math"

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) ToArray() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func FromArray(a [3]float64) Vec3 { return Vec3{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func Distance(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// InAABB reports whether p lies inside the axis-aligned box centered at
// center with full extents size.
func InAABB(p, center, size Vec3) bool {
	return math.Abs(p.X-center.X) <= size.X/2 &&
		math.Abs(p.Y-center.Y) <= size.Y/2 &&
		math.Abs(p.Z-center.Z) <= size.Z/2
}

type EntityType string

const (
	EntityPlatform    EntityType = "platform"
	EntityRamp        EntityType = "ramp"
	EntityCollectible EntityType = "collectible"
	EntityObstacle    EntityType = "obstacle"
	EntityTrigger     EntityType = "trigger"
	EntityDecoration  EntityType = "decoration"
)

// EntityProps is the typed replacement for the open properties bag. Each
// entity type reads the subset of fields it cares about; zero values mean
// "unset" and are skipped by Merge.
type EntityProps struct {
	Kinematic       bool
	Rotating        bool
	IsGoal          bool
	IsHill          bool
	IsCheckpoint    bool
	IsSafeZone      bool
	Deadly          bool
	CheckpointIndex int
	Value           int
	Color           string
	Speed           float64
}

// Merge overwrites dst fields that are set in src. Boolean flags only merge
// upward: variants recolor and revalue entities, they never un-flag them.
func (dst *EntityProps) Merge(src EntityProps) {
	if src.Kinematic {
		dst.Kinematic = true
	}
	if src.Rotating {
		dst.Rotating = true
	}
	if src.IsGoal {
		dst.IsGoal = true
	}
	if src.IsHill {
		dst.IsHill = true
	}
	if src.IsCheckpoint {
		dst.IsCheckpoint = true
	}
	if src.IsSafeZone {
		dst.IsSafeZone = true
	}
	if src.Deadly {
		dst.Deadly = true
	}
	if src.CheckpointIndex != 0 {
		dst.CheckpointIndex = src.CheckpointIndex
	}
	if src.Value != 0 {
		dst.Value = src.Value
	}
	if src.Color != "" {
		dst.Color = src.Color
	}
	if src.Speed != 0 {
		dst.Speed = src.Speed
	}
}

// Entity is one placed world object. Entities carrying a GameID are owned by
// that round and are the only ones swept on round cleanup.
type Entity struct {
	ID       string
	Type     EntityType
	Position Vec3
	Size     Vec3
	Props    EntityProps
	GameID   string
}

type PlayerType string

const (
	PlayerHuman     PlayerType = "human"
	PlayerAI        PlayerType = "ai"
	PlayerAgent     PlayerType = "agent"
	PlayerSpectator PlayerType = "spectator"
)

type PlayerState string

const (
	StateAlive      PlayerState = "alive"
	StateDead       PlayerState = "dead"
	StateSpectating PlayerState = "spectating"
)

// Player is a connected participant. It lives across rounds; round-local
// score/alive state is wrapped by the round engine at round start.
type Player struct {
	ID       string
	Name     string
	Type     PlayerType
	Position Vec3
	State    PlayerState
}

// Spectating reports whether the player is excluded from round participation.
func (p *Player) Spectating() bool {
	return p.Type == PlayerSpectator || p.State == StateSpectating
}
