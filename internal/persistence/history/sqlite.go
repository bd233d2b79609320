package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"arenacraft.gg/internal/sim/game"
)

// Store persists round history through a single writer goroutine, so saves
// from the tick path are non-blocking and never surface errors into gameplay.
type Store struct {
	db *sql.DB

	ch   chan game.RoundRecord
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		ch: make(chan game.RoundRecord, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		arena_id TEXT NOT NULL,
		game_type TEXT NOT NULL,
		result TEXT NOT NULL,
		winner_id TEXT,
		scores_json TEXT NOT NULL,
		players_json TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		ended_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_arena_ended ON rounds(arena_id, ended_at);`)
	return err
}

// SaveRoundHistory enqueues a record. When the writer is backed up the record
// is dropped and counted; history must never stall a tick.
func (s *Store) SaveRoundHistory(rec game.RoundRecord) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- rec:
	default:
		s.dropped.Add(1)
	}
}

func (s *Store) Dropped() uint64 { return s.dropped.Load() }

func (s *Store) loop() {
	for rec := range s.ch {
		s.write(rec)
	}
}

func (s *Store) write(rec game.RoundRecord) {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return
	}
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO rounds
		 (id, arena_id, game_type, result, winner_id, scores_json, players_json, duration_ms, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ArenaID, rec.GameType, rec.Result, rec.WinnerID,
		string(scores), string(players), rec.Duration.Milliseconds(),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
	)
}

// RecentRounds reads the newest records, optionally filtered by arena.
func (s *Store) RecentRounds(arenaID string, limit int) ([]game.RoundRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	var err error
	if arenaID == "" {
		rows, err = s.db.Query(
			`SELECT id, arena_id, game_type, result, winner_id, scores_json, players_json, duration_ms, ended_at
			 FROM rounds ORDER BY ended_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT id, arena_id, game_type, result, winner_id, scores_json, players_json, duration_ms, ended_at
			 FROM rounds WHERE arena_id = ? ORDER BY ended_at DESC LIMIT ?`, arenaID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.RoundRecord
	for rows.Next() {
		var rec game.RoundRecord
		var winner sql.NullString
		var scoresJSON, playersJSON, endedAt string
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.ArenaID, &rec.GameType, &rec.Result, &winner,
			&scoresJSON, &playersJSON, &durationMS, &endedAt); err != nil {
			return nil, err
		}
		rec.WinnerID = winner.String
		_ = json.Unmarshal([]byte(scoresJSON), &rec.Scores)
		_ = json.Unmarshal([]byte(playersJSON), &rec.Players)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, endedAt); err == nil {
			rec.EndedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Flush drains queued writes; used by tests and shutdown.
func (s *Store) Flush() {
	for len(s.ch) > 0 {
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
