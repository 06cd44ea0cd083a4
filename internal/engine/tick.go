// Package engine provides the tick loop and the game it drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TicksPerDay is the number of ticks in a sim-day. One tick is one hour.
const TicksPerDay = 24

// Engine drives the simulation forward on a wall-clock schedule.
type Engine struct {
	Interval time.Duration // Base tick interval (default 1 second)
	MaxTicks uint64        // Stop after this many ticks; 0 runs until cancelled

	// Callbacks, set before Run.
	OnTick func(tick uint64) // Every tick
	OnDay  func(tick uint64) // After the last tick of each sim-day

	mu      sync.Mutex
	tick    uint64  // Ticks completed
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	paused  bool
	running bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: time.Second,
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(s float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s < 0 {
		s = 0
	}
	e.speed = s
}

// Pause stops the loop from stepping without forgetting the speed.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume undoes Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether the loop is held by Pause or a zero speed.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused || e.speed <= 0
}

// Tick returns the number of ticks completed.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run steps the simulation until ctx is cancelled or MaxTicks is reached.
func (e *Engine) Run(ctx context.Context) error {
	e.setRunning(true)
	defer e.setRunning(false)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())

	for {
		if e.MaxTicks > 0 && e.Tick() >= e.MaxTicks {
			slog.Info("simulation engine reached max ticks", "tick", e.Tick())
			return nil
		}

		speed := e.Speed()
		if speed <= 0 || e.Paused() {
			// Paused: sleep briefly and check again.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			if !sleep(ctx, target-elapsed) {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
	return nil
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	tick := e.Tick()

	if e.OnTick != nil {
		e.OnTick(tick)
	}

	if (tick+1)%TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}

	e.mu.Lock()
	e.tick++
	e.mu.Unlock()
}

func (e *Engine) setRunning(r bool) {
	e.mu.Lock()
	e.running = r
	e.mu.Unlock()
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	return fmt.Sprintf("Day %d, %02d:00", tick/TicksPerDay+1, tick%TicksPerDay)
}
