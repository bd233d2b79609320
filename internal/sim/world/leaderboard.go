package world

import "sort"

// LeaderboardEntry accrues across rounds for the process lifetime.
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Score    int    `json:"score"`
}

// RecordGameResult upserts a leaderboard row. Scores are summed and never
// decrease; negative round scores are clamped to zero before accrual.
func (w *World) RecordGameResult(playerID, name string, won bool, score int) {
	le, ok := w.leaderboard[playerID]
	if !ok {
		le = &LeaderboardEntry{PlayerID: playerID, Name: name}
		w.leaderboard[playerID] = le
	}
	if name != "" {
		le.Name = name
	}
	if won {
		le.Wins++
	} else {
		le.Losses++
	}
	if score > 0 {
		le.Score += score
	}
}

// Leaderboard returns a copy sorted by wins, then score, then id.
func (w *World) Leaderboard() []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(w.leaderboard))
	for _, le := range w.leaderboard {
		out = append(out, *le)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
