package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func readJSONL(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var v map[string]any
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("parse line %q: %v", sc.Text(), err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")

	if err := w.Write(map[string]any{"name": "game_started", "tick": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(map[string]any{"name": "game_ended", "tick": 60}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("log files: got %v (err %v), want one", files, err)
	}

	lines := readJSONL(t, files[0])
	if len(lines) != 2 {
		t.Fatalf("lines: got %d want 2", len(lines))
	}
	if lines[0]["name"] != "game_started" || lines[1]["name"] != "game_ended" {
		t.Fatalf("line contents: got %v", lines)
	}
}

func TestEventLoggerWritesUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)

	if err := l.Write(map[string]any{"arena": "main", "name": "chat"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "events", "events-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("event log files: got %v (err %v), want one", files, err)
	}
	lines := readJSONL(t, files[0])
	if len(lines) != 1 || lines[0]["arena"] != "main" {
		t.Fatalf("event lines: got %v", lines)
	}
}

func TestCloseWithoutWritesIsSafe(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "events")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
