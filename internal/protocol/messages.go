package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	ArenaID         string `json:"arena_id,omitempty"`
	PlayerType      string `json:"player_type,omitempty"` // human|ai|agent|spectator
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	ArenaID         string      `json:"arena_id"`
	Params          ArenaParams `json:"arena_params"`
}

type ArenaParams struct {
	TickRateHz   int        `json:"tick_rate_hz"`
	Phase        string     `json:"phase"`
	RespawnPoint [3]float64 `json:"respawn_point"`
	Gravity      float64    `json:"gravity"`
}

// ACT (client -> server): position report, chat, ready toggle.
// Movement itself is client-side; the server only records reported positions.
type ActMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Pos             *[3]float64 `json:"pos,omitempty"`
	Chat            string      `json:"chat,omitempty"`
	Ready           *bool       `json:"ready,omitempty"`
}

// EVENT (server -> client): one domain event.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	Payload         any    `json:"payload,omitempty"`
}

// STATE (server -> client): periodic arena snapshot.
type StateMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	ArenaID         string           `json:"arena_id"`
	Phase           string           `json:"phase"`
	Players         []PlayerSnapshot `json:"players"`
	Entities        int              `json:"entities"`
	Game            *GameStatus      `json:"game,omitempty"`
}

type PlayerSnapshot struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Pos   [3]float64 `json:"pos"`
	State string     `json:"state"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// GameStatus is the round snapshot exposed to collaborators.
type GameStatus struct {
	ID            string         `json:"id"`
	GameType      string         `json:"game_type"`
	IsActive      bool           `json:"is_active"`
	TimeRemaining float64        `json:"time_remaining_sec"`
	Players       []string       `json:"players"`
	Scores        map[string]int `json:"scores"`
	Winners       []string       `json:"winners"`
	TrickCount    int            `json:"trick_count"`
	TricksFired   int            `json:"tricks_fired"`
}
