// Package api provides the HTTP API for observing and steering the station.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/port-authority/internal/economy"
	"github.com/talgya/port-authority/internal/engine"
	"github.com/talgya/port-authority/internal/history"
)

const maxSpeed = 1000

// Message is the envelope for every websocket push.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type tickPayload struct {
	State  engine.GameState  `json:"state"`
	Events []engine.LogEvent `json:"events"`
}

type recipeProfit struct {
	Name      string        `json:"name"`
	Profit    economy.Price `json:"profit"`
	Formatted string        `json:"formatted"`
}

// view is everything the handlers read, captured on the game goroutine.
type view struct {
	state   engine.GameState
	events  []engine.LogEvent
	recipes []recipeProfit
}

// Server serves the station over HTTP.
type Server struct {
	Game     *engine.Game
	Eng      *engine.Engine
	DB       *history.DB // optional
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	hub     *Hub
	limiter *RateLimiter
	latest  atomic.Pointer[view]
	lastSeq uint64
}

// NewServer subscribes to g. It must be called before the engine starts
// ticking.
func NewServer(g *engine.Game, eng *engine.Engine, db *history.DB, port int, adminKey string) *Server {
	s := &Server{
		Game:     g,
		Eng:      eng,
		DB:       db,
		Port:     port,
		AdminKey: adminKey,
		hub:      NewHub(),
		limiter:  NewRateLimiter(60, time.Minute),
	}
	s.publish(g.Snapshot(), g.Events())
	g.Subscribe(s.publish)
	return s
}

// publish runs on the game goroutine after every tick.
func (s *Server) publish(state engine.GameState, events []engine.LogEvent) {
	st := s.Game.Station
	recipes := make([]recipeProfit, 0, len(st.AvailableRecipes))
	for _, r := range st.AvailableRecipes {
		p := st.Market.Profitability(r)
		recipes = append(recipes, recipeProfit{Name: r.DisplayName, Profit: p, Formatted: economy.FormatPrice(p)})
	}
	s.latest.Store(&view{state: state, events: events, recipes: recipes})

	if s.hub.Clients() == 0 {
		return
	}
	fresh := make([]engine.LogEvent, 0, len(events))
	for _, ev := range events {
		if ev.Seq > s.lastSeq {
			fresh = append(fresh, ev)
			s.lastSeq = ev.Seq
		}
	}
	b, err := json.Marshal(Message{Type: "tick", Payload: tickPayload{State: state, Events: fresh}})
	if err != nil {
		slog.Error("marshal ws message", "error", err)
		return
	}
	s.hub.Broadcast(b)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/economy", s.handleEconomy)
	mux.HandleFunc("/api/v1/facilities", s.handleFacilities)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/ws", s.hub.ServeWS)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/policy", s.adminOnly(RateLimitMiddleware(s.limiter, s.handlePolicy)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(RateLimitMiddleware(s.limiter, s.handleSpeed)))

	return corsMiddleware(mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go s.hub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("HTTP API stopped")
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// corsMiddleware adds CORS headers for allowed dashboard origins.
// PORTSIM_CORS_ORIGINS adds a comma-separated list to the localhost defaults.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("PORTSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no PORTSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.latest.Load()
	staffed := 0
	for _, f := range v.state.Facilities {
		if f.Agent != "" {
			staffed++
		}
	}
	writeJSON(w, map[string]any{
		"name":                "Port Authority",
		"tick":                v.state.Tick,
		"sim_time":            engine.SimTime(v.state.Tick),
		"speed":               s.Eng.Speed(),
		"paused":              s.Eng.Paused(),
		"running":             s.Eng.Running(),
		"population":          v.state.Population,
		"starving_population": v.state.StarvingPopulation,
		"wealth":              v.state.Wealth,
		"facilities":          len(v.state.Facilities),
		"staffed":             staffed,
		"merchants":           len(v.state.Merchants),
		"viewers":             s.hub.Clients(),
	})
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	v := s.latest.Load()
	writeJSON(w, map[string]any{
		"tick":      v.state.Tick,
		"wealth":    v.state.Wealth,
		"resources": v.state.Resources,
		"recipes":   v.recipes,
		"merchants": v.state.Merchants,
	})
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	v := s.latest.Load()
	writeJSON(w, v.state.Facilities)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)

	if s.DB != nil {
		events, err := s.DB.RecentEvents(limit)
		if err != nil {
			slog.Error("read events", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		// Oldest first, like the in-memory log.
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
		writeJSON(w, events)
		return
	}

	events := s.latest.Load().events
	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		http.Error(w, "resource is required", http.StatusBadRequest)
		return
	}
	points, err := s.DB.PriceHistory(resource, queryLimit(r, 100, 5000))
	if err != nil {
		slog.Error("read price history", "resource", resource, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"resource": resource, "points": points})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	v := s.latest.Load()
	if r.Method != http.MethodPost {
		policies := make(map[economy.ResourceID]economy.TradePolicy, len(v.state.Resources))
		for _, m := range v.state.Resources {
			policies[m.Resource] = m.TradePolicy
		}
		writeJSON(w, policies)
		return
	}

	var change engine.PolicyChange
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&change); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	known := false
	for _, m := range v.state.Resources {
		if m.Resource == change.Resource {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, fmt.Sprintf("unknown resource %q", change.Resource), http.StatusNotFound)
		return
	}
	for _, f := range []*economy.Fraction{change.ImportPriceModifier, change.ExportPriceModifier} {
		if f != nil && (math.IsNaN(*f) || math.IsInf(*f, 0)) {
			http.Error(w, "modifiers must be finite", http.StatusBadRequest)
			return
		}
	}

	s.Game.Do(engine.SetPolicy(change))
	slog.Info("policy change queued", "resource", change.Resource)
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"queued": true, "resource": change.Resource})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed  *float64 `json:"speed"`
			Action string   `json:"action"` // "pause" or "resume"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed != nil {
			if math.IsNaN(*req.Speed) || *req.Speed < 0 || *req.Speed > maxSpeed {
				http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
				return
			}
			s.Eng.SetSpeed(*req.Speed)
		}
		switch req.Action {
		case "":
		case "pause":
			s.Eng.Pause()
		case "resume":
			s.Eng.Resume()
		default:
			http.Error(w, "action must be pause or resume", http.StatusBadRequest)
			return
		}
		slog.Info("speed changed", "speed", s.Eng.Speed(), "paused", s.Eng.Paused())
	}

	writeJSON(w, map[string]any{"speed": s.Eng.Speed(), "paused": s.Eng.Paused()})
}

func queryLimit(r *http.Request, def, most int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= most {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
