package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Arena routing/state.
	ErrArenaNotFound = "E_ARENA_NOT_FOUND"
	ErrArenaClosed   = "E_ARENA_CLOSED"

	// Rule/action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrGameActive    = "E_GAME_ACTIVE"
	ErrUnknownGame   = "E_UNKNOWN_GAME"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrArenaNotFound:   {},
	ErrArenaClosed:     {},
	ErrBadRequest:      {},
	ErrGameActive:      {},
	ErrUnknownGame:     {},
	ErrInvalidTarget:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
