// Package control exposes registered blink toggles over HTTP.
//
// Toggles are owned by a single loop goroutine, so every handler runs its
// toggle access through an Executor rather than touching the toggle from
// the HTTP goroutine.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lixenwraith/blinker/blink"
	"github.com/lixenwraith/blinker/status"
)

// maxIntervalMS is the largest interval_ms that converts to a time.Duration
const maxIntervalMS = float64(math.MaxInt64 / int64(time.Millisecond))

// Executor runs fn on the goroutine that owns the toggles and waits for it
// clock.Loop satisfies it
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Server is the registry of remotely controllable toggles
type Server struct {
	exec    Executor
	metrics *status.Registry

	mu      sync.RWMutex
	toggles map[uuid.UUID]*blink.Toggle
}

// ToggleState is the JSON view of a toggle
type ToggleState struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Running    bool    `json:"running"`
	Visible    bool    `json:"visible"`
	IntervalMS float64 `json:"interval_ms"`
	Ticks      int     `json:"ticks"`
}

type intervalRequest struct {
	IntervalMS float64 `json:"interval_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server executing toggle access through exec
// metrics may be nil, in which case /metrics reports an empty object
func NewServer(exec Executor, metrics *status.Registry) *Server {
	return &Server{
		exec:    exec,
		metrics: metrics,
		toggles: make(map[uuid.UUID]*blink.Toggle),
	}
}

// Add registers a toggle and returns its id
func (s *Server) Add(t *blink.Toggle) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.toggles[id] = t
	s.mu.Unlock()
	return id
}

// Remove unregisters a toggle, returning false if the id was unknown
func (s *Server) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.toggles[id]; !ok {
		return false
	}
	delete(s.toggles, id)
	return true
}

func (s *Server) lookup(id uuid.UUID) (*blink.Toggle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.toggles[id]
	return t, ok
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/toggles", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/toggles/{id}", s.withToggle(s.handleGet)).Methods(http.MethodGet)
	r.HandleFunc("/toggles/{id}/start", s.withToggle(s.handleStart)).Methods(http.MethodPost)
	r.HandleFunc("/toggles/{id}/stop", s.withToggle(s.handleStop)).Methods(http.MethodPost)
	r.HandleFunc("/toggles/{id}/interval", s.withToggle(s.handleInterval)).Methods(http.MethodPut)
	return r
}

type toggleHandler func(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle)

func (s *Server) withToggle(h toggleHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed toggle id")
			return
		}
		t, ok := s.lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, "toggle not found")
			return
		}
		h(w, r, id, t)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := map[string]any{}
	if s.metrics != nil {
		snap = s.metrics.Snapshot()
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.toggles))
	toggles := make([]*blink.Toggle, 0, len(s.toggles))
	for id, t := range s.toggles {
		ids = append(ids, id)
		toggles = append(toggles, t)
	}
	s.mu.RUnlock()

	states := make([]ToggleState, len(ids))
	err := s.exec.Do(r.Context(), func() {
		for i := range ids {
			states[i] = snapshot(ids[i], toggles[i])
		}
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	sort.Slice(states, func(i, j int) bool {
		if states[i].Name != states[j].Name {
			return states[i].Name < states[j].Name
		}
		return states[i].ID < states[j].ID
	})
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle) {
	s.respond(w, r, id, t, func() error { return nil })
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle) {
	s.respond(w, r, id, t, t.Start)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle) {
	s.respond(w, r, id, t, func() error {
		t.Stop()
		return nil
	})
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if req.IntervalMS > maxIntervalMS {
		writeError(w, http.StatusBadRequest, "interval out of range")
		return
	}
	d := time.Duration(req.IntervalMS * float64(time.Millisecond))
	s.respond(w, r, id, t, func() error {
		return t.SetInterval(d)
	})
}

// respond runs op on the loop, then reports the resulting toggle state
func (s *Server) respond(w http.ResponseWriter, r *http.Request, id uuid.UUID, t *blink.Toggle, op func() error) {
	var (
		opErr error
		state ToggleState
	)
	err := s.exec.Do(r.Context(), func() {
		opErr = op()
		state = snapshot(id, t)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if opErr != nil {
		writeError(w, statusFor(opErr), opErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, blink.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, blink.ErrClosed), errors.Is(err, blink.ErrStaleTarget):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func snapshot(id uuid.UUID, t *blink.Toggle) ToggleState {
	return ToggleState{
		ID:         id.String(),
		Name:       t.Name(),
		Running:    t.IsBlinking(),
		Visible:    t.Visible(),
		IntervalMS: float64(t.Interval()) / float64(time.Millisecond),
		Ticks:      t.Ticks(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
