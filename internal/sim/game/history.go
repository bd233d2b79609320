package game

import "time"

// RoundRecord is the persisted summary of one finished round.
type RoundRecord struct {
	ID        string         `json:"id"`
	ArenaID   string         `json:"arena_id"`
	GameType  string         `json:"game_type"`
	Result    string         `json:"result"`
	WinnerID  string         `json:"winner_id,omitempty"`
	Scores    map[string]int `json:"scores"`
	Players   []string       `json:"players"`
	Duration  time.Duration  `json:"duration"`
	EndedAt   time.Time      `json:"ended_at"`
}

// HistorySink persists round records. Implementations must not block: a slow
// or failing store never stalls the tick path.
type HistorySink interface {
	SaveRoundHistory(rec RoundRecord)
}

func (r *Round) historyRecord() RoundRecord {
	return RoundRecord{
		ID:       r.id,
		ArenaID:  r.cfg.ArenaID,
		GameType: string(r.variant.Type()),
		Result:   r.result.Type,
		WinnerID: r.result.WinnerID,
		Scores:   r.Scores(),
		Players:  append([]string(nil), r.order...),
		Duration: r.elapsed,
		EndedAt:  time.Now(),
	}
}
