package protocol

// Domain event names carried by EVENT messages. Payloads are loose maps so
// round variants can attach variant-specific fields without protocol churn.
const (
	EvEntitySpawned     = "entity_spawned"
	EvEntityModified    = "entity_modified"
	EvEntityDestroyed   = "entity_destroyed"
	EvPlayersTeleported = "players_teleported"
	EvGameStateChanged  = "game_state_changed"
	EvGameStarted       = "game_started"
	EvGameEnded         = "game_ended"
	EvAnnouncement      = "announcement"
	EvScoreUpdate       = "score_update"
	EvCurseUpdate       = "curse_update"
	EvCheckpointUpdate  = "checkpoint_update"
	EvHillUpdate        = "hill_update"
	EvPlayerEliminated  = "player_eliminated"
	EvPlayerJoined      = "player_joined"
	EvPlayerLeft        = "player_left"
	EvChat              = "chat"
)

// Event is a loose event payload.
type Event map[string]any
