package world

// LoadLobbyTemplate places the persistent lobby layout. Template entities
// carry no GameID so round sweeps never remove them.
func (w *World) LoadLobbyTemplate() {
	w.SpawnEntity(Entity{
		ID:       "lobby_floor",
		Type:     EntityPlatform,
		Position: Vec3{Y: -0.5},
		Size:     Vec3{X: 40, Y: 1, Z: 40},
		Props:    EntityProps{Color: "#888888"},
	})
	w.SpawnEntity(Entity{
		ID:       "lobby_spawn_pad",
		Type:     EntityDecoration,
		Position: w.cfg.RespawnPoint.Add(Vec3{Y: 0.05}),
		Size:     Vec3{X: 4, Y: 0.1, Z: 4},
		Props:    EntityProps{Color: "#44cc88"},
	})
	for i, pos := range []Vec3{{X: -15, Y: 1, Z: -15}, {X: 15, Y: 1, Z: -15}, {X: -15, Y: 1, Z: 15}, {X: 15, Y: 1, Z: 15}} {
		w.SpawnEntity(Entity{
			ID:       "lobby_pillar_" + string(rune('a'+i)),
			Type:     EntityDecoration,
			Position: pos,
			Size:     Vec3{X: 1, Y: 3, Z: 1},
			Props:    EntityProps{Color: "#555555"},
		})
	}
}
