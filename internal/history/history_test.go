package history

import (
	"path/filepath"
	"testing"

	"github.com/talgya/port-authority/internal/catalogs"
	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/engine"
	"github.com/talgya/port-authority/internal/station"
)

func newGame(seed int64) *engine.Game {
	cat := catalogs.Default()
	return engine.NewGame(cat.Build(1000, 0), station.Config{
		Facilities:   5,
		Population:   100,
		FoodResource: "food",
		FoodSchedule: map[int]economy.Quantity{7: 0.1, 12: 0.1, 18: 0.1},
		Recipes:      cat.Recipes,
	}, engine.Options{
		Seed:             seed,
		MerchantInterval: 24,
		MerchantDuration: 5,
		EventHistory:     3,
		Merchants:        cat.Merchants,
	})
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func TestRecorderWritesDB(t *testing.T) {
	db := openTestDB(t)
	rec := NewRecorder(db, nil)
	defer rec.Close()

	g := newGame(9)
	rec.Attach(g, 9)
	for i := 0; i < 30; i++ {
		g.Tick()
	}

	if rec.Failures() != 0 {
		t.Fatalf("%d failed writes", rec.Failures())
	}
	n, err := db.TickCount()
	if err != nil || n != 30 {
		t.Fatalf("TickCount = %d, %v; want 30", n, err)
	}
	seed, err := db.GetMeta("seed")
	if err != nil || seed != "9" {
		t.Errorf("seed meta = %q, %v", seed, err)
	}

	events, err := db.RecentEvents(100)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no events recorded")
	}
	seen := map[uint64]bool{}
	for i, ev := range events {
		if seen[ev.Seq] {
			t.Errorf("event %d stored twice", ev.Seq)
		}
		seen[ev.Seq] = true
		if i > 0 && ev.Seq >= events[i-1].Seq {
			t.Errorf("events not newest first: %d after %d", ev.Seq, events[i-1].Seq)
		}
	}
	hired := 0
	for _, ev := range events {
		if ev.Kind == engine.AgentAddition {
			hired++
		}
	}
	if hired == 0 {
		t.Error("hire events missing although the ring only holds three")
	}
}

func TestPriceHistory(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	g := newGame(1)
	var want []economy.Price
	g.Subscribe(func(s engine.GameState, events []engine.LogEvent) {
		if err := db.RecordTick(s, events); err != nil {
			t.Fatalf("RecordTick: %v", err)
		}
		for _, r := range s.Resources {
			if r.Resource == "food" {
				want = append(want, r.Price)
			}
		}
	})
	for i := 0; i < 20; i++ {
		g.Tick()
	}

	points, err := db.PriceHistory("food", 5)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}
	for i, p := range points {
		if p.Tick != uint64(15+i) {
			t.Errorf("point %d tick = %d, want %d", i, p.Tick, 15+i)
		}
		if p.Price != want[15+i] {
			t.Errorf("tick %d price = %v, want %v", p.Tick, p.Price, want[15+i])
		}
	}
}

func TestRecordTickIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	g := newGame(1)
	state := g.Tick()
	events := g.Events()
	for i := 0; i < 2; i++ {
		if err := db.RecordTick(state, events); err != nil {
			t.Fatalf("RecordTick #%d: %v", i, err)
		}
	}
	n, _ := db.TickCount()
	got, _ := db.RecentEvents(10)
	if n != 1 || len(got) != len(events) {
		t.Errorf("ticks %d events %d, want 1 and %d", n, len(got), len(events))
	}
}

func TestTickLogRotatesPerDay(t *testing.T) {
	dir := t.TempDir()
	log := NewTickLog(dir)
	rec := NewRecorder(nil, log)

	g := newGame(3)
	g.Subscribe(rec.Record)
	for i := 0; i < 30; i++ {
		g.Tick()
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	day1, err := ReadDay(log.PathForDay(1))
	if err != nil {
		t.Fatalf("ReadDay(1): %v", err)
	}
	day2, err := ReadDay(log.PathForDay(2))
	if err != nil {
		t.Fatalf("ReadDay(2): %v", err)
	}
	if len(day1) != 24 || len(day2) != 6 {
		t.Fatalf("entries per day = %d, %d; want 24, 6", len(day1), len(day2))
	}
	if day1[0].State.Tick != 0 || day2[0].State.Tick != 24 {
		t.Errorf("first ticks = %d, %d", day1[0].State.Tick, day2[0].State.Tick)
	}
	if len(day1[0].Events) == 0 {
		t.Error("first tick logged no events")
	}
}

func TestReopenStartsNewRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	record := func(msg string) *DB {
		t.Helper()
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		state := engine.GameState{Tick: 0, Day: 1}
		ev := engine.LogEvent{Seq: 1, Tick: 0, Kind: engine.AgentAddition, Message: msg}
		if err := db.RecordTick(state, []engine.LogEvent{ev}); err != nil {
			t.Fatalf("RecordTick: %v", err)
		}
		if err := db.SaveMeta("seed", msg); err != nil {
			t.Fatalf("SaveMeta: %v", err)
		}
		return db
	}

	first := record("run one")
	firstRun := first.RunID()
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := record("run two")
	defer db.Close()
	if db.RunID() <= firstRun {
		t.Fatalf("run id %d after %d", db.RunID(), firstRun)
	}
	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Message != "run two" {
		t.Errorf("events = %+v, want only the second run's", events)
	}
	if n, _ := db.TickCount(); n != 1 {
		t.Errorf("TickCount = %d, want 1", n)
	}
	if seed, _ := db.GetMeta("seed"); seed != "run two" {
		t.Errorf("seed meta = %q", seed)
	}
}

func TestTickLogReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{24, 25} {
		log := NewTickLog(dir)
		if err := log.Write(TickEntry{State: engine.GameState{Tick: tick, Day: 2}}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := log.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	entries, err := ReadDay(NewTickLog(dir).PathForDay(2))
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(entries) != 1 || entries[0].State.Tick != 25 {
		t.Errorf("entries = %+v, want only the latest run", entries)
	}
}
