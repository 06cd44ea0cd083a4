package history

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/talgya/port-authority/internal/engine"
)

// Recorder persists every tick a game publishes. Either sink may be nil.
type Recorder struct {
	db      *DB
	ticks   *TickLog
	lastSeq uint64
	failed  int
}

// NewRecorder records into db and ticks.
func NewRecorder(db *DB, ticks *TickLog) *Recorder {
	return &Recorder{db: db, ticks: ticks}
}

// Attach subscribes the recorder to g and stores the run's seed.
func (r *Recorder) Attach(g *engine.Game, seed int64) {
	if r.db != nil {
		if err := r.db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
			slog.Error("save run meta", "error", err)
		}
		if err := r.db.SaveMeta("started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Error("save run meta", "error", err)
		}
	}
	g.Subscribe(r.Record)
}

// Record stores state and the events not seen before. Failures are logged
// and counted; the game keeps running.
func (r *Recorder) Record(state engine.GameState, events []engine.LogEvent) {
	fresh := make([]engine.LogEvent, 0, len(events))
	for _, ev := range events {
		if ev.Seq > r.lastSeq {
			fresh = append(fresh, ev)
			r.lastSeq = ev.Seq
		}
	}

	if r.db != nil {
		if err := r.db.RecordTick(state, fresh); err != nil {
			r.failed++
			slog.Error("record tick failed", "tick", state.Tick, "error", err)
		}
	}
	if r.ticks != nil {
		if err := r.ticks.Write(TickEntry{State: state, Events: fresh}); err != nil {
			r.failed++
			slog.Error("tick log write failed", "tick", state.Tick, "error", err)
		}
	}
}

// Failures is the number of writes that failed so far.
func (r *Recorder) Failures() int { return r.failed }

// Close closes both sinks.
func (r *Recorder) Close() error {
	var err error
	if r.ticks != nil {
		err = r.ticks.Close()
	}
	if r.db != nil {
		if cerr := r.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
