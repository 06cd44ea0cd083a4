package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/port-authority/internal/engine"
)

// TickEntry is one line of the tick log.
type TickEntry struct {
	State  engine.GameState  `json:"state"`
	Events []engine.LogEvent `json:"events,omitempty"`
}

// TickLog writes one zstd-compressed JSONL entry per tick, one file per
// simulated day.
type TickLog struct {
	dir    string
	prefix string

	mu     sync.Mutex
	curDay int
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

// NewTickLog writes under dir. Files are created lazily and a file left by
// an earlier run with the same name is replaced, so give each run its own dir.
func NewTickLog(dir string) *TickLog {
	return &TickLog{dir: dir, prefix: "ticks"}
}

// Write appends entry to the file for its day, rotating when the day changes.
func (l *TickLog) Write(entry TickEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil || entry.State.Day != l.curDay {
		if err := l.rotateLocked(entry.State.Day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

// Close flushes and closes the current file.
func (l *TickLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// PathForDay is the file holding the given simulated day.
func (l *TickLog) PathForDay(day int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-day-%04d.jsonl.zst", l.prefix, day))
}

func (l *TickLog) rotateLocked(day int) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.PathForDay(day), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	l.curDay = day
	return nil
}

func (l *TickLog) closeLocked() error {
	var err error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	return err
}

// ReadDay decodes every entry of the tick log file at path.
func ReadDay(path string) ([]TickEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []TickEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e TickEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
