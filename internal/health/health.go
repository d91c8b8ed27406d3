// Package health serves the liveness and readiness probes for the Twistvox
// server, alongside /metrics on the same mux.
//
// /healthz answers 200 whenever the process can serve HTTP. /readyz runs
// the registered checkers (Postgres ping, Discord gateway state, whisper
// model load) and answers 503 until all of them pass, which keeps traffic
// and scrape alerts away from a bot that is still connecting.
//
// Both endpoints respond with a JSON body: a "status" of "ok" or "fail",
// and for readiness a "checks" map with one entry per checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout caps one checker's probe. A store that hangs must not hold
// the readiness endpoint open indefinitely.
const checkTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil when the
// dependency can serve and an error describing why not otherwise.
type Checker struct {
	// Name keys the probe's entry in the readiness response, e.g.
	// "database" or "transcriber".
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// report is the JSON body of both probe responses.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the health probes. Safe for concurrent use; the checker
// set is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New builds a [Handler] over the given checkers. /readyz evaluates them in
// the order given.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz is the liveness probe. Reaching it at all is the signal, so it
// unconditionally answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz is the readiness probe: 200 when every checker passes, 503 with
// the failing checks named otherwise. Each checker runs under its own
// [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep, ready := h.runChecks(r.Context())

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	respond(w, status, rep)
}

func (h *Handler) runChecks(ctx context.Context) (report, bool) {
	rep := report{
		Status: "ok",
		Checks: make(map[string]string, len(h.checkers)),
	}
	ready := true

	for _, c := range h.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(checkCtx)
		cancel()

		if err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			ready = false
		} else {
			rep.Checks[c.Name] = "ok"
		}
	}
	return rep, ready
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// respond writes v as JSON with the given status. A body that fails to
// encode degrades to a plain 500.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
