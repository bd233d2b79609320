package multiarena

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"arenacraft.gg/internal/sim/game"
)

type Config struct {
	TickRateHz     int         `yaml:"tick_rate_hz"`
	DefaultArenaID string      `yaml:"default_arena_id"`
	Arenas         []ArenaSpec `yaml:"arenas"`
}

type ArenaSpec struct {
	ID                string     `yaml:"id"`
	MinPlayers        int        `yaml:"min_players"`
	AutoStartDelaySec float64    `yaml:"auto_start_delay_sec"`
	CountdownSec      float64    `yaml:"countdown_sec"`
	RoundTimeSec      float64    `yaml:"round_time_sec"`
	GameRotation      []string   `yaml:"game_rotation,omitempty"`
	RespawnPoint      [3]float64 `yaml:"respawn_point"`
	MaxHazards        int        `yaml:"max_hazards"`
	AIBackfill        int        `yaml:"ai_backfill"`
	Seed              int64      `yaml:"seed"`
}

func defaults() Config {
	return Config{
		TickRateHz:     10,
		DefaultArenaID: "arena_1",
		Arenas: []ArenaSpec{
			{ID: "arena_1", MinPlayers: 2, AutoStartDelaySec: 5, CountdownSec: 3, RoundTimeSec: 60},
		},
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if len(c.Arenas) == 0 {
		c.Arenas = defaults().Arenas
	}
	for i := range c.Arenas {
		spec := &c.Arenas[i]
		if spec.MinPlayers <= 0 {
			spec.MinPlayers = 2
		}
		if spec.AutoStartDelaySec <= 0 {
			spec.AutoStartDelaySec = 5
		}
		if spec.CountdownSec <= 0 {
			spec.CountdownSec = 3
		}
		if spec.RoundTimeSec <= 0 {
			spec.RoundTimeSec = 60
		}
	}
	if strings.TrimSpace(c.DefaultArenaID) == "" {
		c.DefaultArenaID = c.Arenas[0].ID
	}
}

func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, spec := range c.Arenas {
		if strings.TrimSpace(spec.ID) == "" {
			return fmt.Errorf("arena with empty id")
		}
		if seen[spec.ID] {
			return fmt.Errorf("duplicate arena id %q", spec.ID)
		}
		seen[spec.ID] = true
		for _, t := range spec.GameRotation {
			if !game.IsKnownType(game.GameType(t)) {
				return fmt.Errorf("arena %s: unknown game type %q", spec.ID, t)
			}
		}
	}
	if !seen[c.DefaultArenaID] {
		return fmt.Errorf("default arena %q not configured", c.DefaultArenaID)
	}
	return nil
}
