package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/score"
)

// Default per-IP rate limit for the admin surface.
const (
	DefaultRateRPS   = 5
	DefaultRateBurst = 10

	maxStandingsLimit = 100
)

// Engine is the slice of the moderator engine the admin surface needs.
// Rotate must apply the full change side effects (announce, archive, canvas),
// so the daemon passes its own wrapper rather than the bare controller.
type Engine interface {
	DescribeActive() (controller.Description, error)
	Rotate(ctx context.Context, reason string) (*controller.Change, error)
}

// Server serves the admin endpoints. Construct with NewServer and mount
// Handler on an http.Server.
type Server struct {
	engine    Engine
	scores    score.Keeper // nil when score keeping is disabled
	channel   string       // default channel for standings queries
	validator *JWTValidator
	limiter   *GlobalRateLimiter
	logger    *slog.Logger
}

// NewServer builds the admin server. A nil validator leaves the surface fail
// closed: only /healthz answers. A nil keeper turns standings into 404s.
func NewServer(engine Engine, scores score.Keeper, channel string, validator *JWTValidator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		scores:    scores,
		channel:   channel,
		validator: validator,
		limiter:   NewGlobalRateLimiter(DefaultRateRPS, DefaultRateBurst),
		logger:    logger.With("component", "api"),
	}
}

// Handler assembles the route table behind the middleware chain:
// request-id, per-IP rate limit, JWT auth.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/v1/rules", s.handleRules)
	mux.HandleFunc("/v1/rules/rotate", s.handleRotate)
	mux.HandleFunc("/v1/standings", s.handleStandings)

	var h http.Handler = mux
	h = NewAuthMiddleware(s.validator)(h)
	h = s.limiter.Middleware(h)
	h = RequestIDMiddleware(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}

	desc, err := s.engine.DescribeActive()
	if err != nil {
		if errors.Is(err, controller.ErrNotInitialized) {
			WriteServiceUnavailable(w, "Ruleset not initialized yet")
			return
		}
		WriteInternal(w, err)
		return
	}
	writeJSON(w, desc)
}

// rotateRequest is the operator's forced-regeneration request.
type rotateRequest struct {
	Reason string `json:"reason"`
}

// rotateResponse reports the change the rotation applied.
type rotateResponse struct {
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
	Ruleset     []string  `json:"ruleset"`
	Difficulty  int       `json:"difficulty"`
	Fingerprint string    `json:"fingerprint"`
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = controller.ReasonOperator
	}

	change, err := s.engine.Rotate(r.Context(), reason)
	if err != nil {
		if errors.Is(err, controller.ErrNotInitialized) {
			WriteServiceUnavailable(w, "Ruleset not initialized yet")
			return
		}
		WriteInternal(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "operator rotation applied",
		"reason", reason,
		"fingerprint", change.Fingerprint,
		"request_id", GetRequestID(r.Context()),
	)

	writeJSON(w, rotateResponse{
		Reason:      change.Reason,
		At:          change.At,
		Ruleset:     change.Set.IDs(),
		Difficulty:  change.Difficulty,
		Fingerprint: change.Fingerprint,
	})
}

// standingsResponse wraps the leaderboard with the channel it was read for.
type standingsResponse struct {
	Channel   string           `json:"channel"`
	Standings []score.Standing `json:"standings"`
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	if s.scores == nil {
		WriteNotFound(w, "Score keeping is disabled")
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = s.channel
	}
	if channel == "" {
		WriteBadRequest(w, "Missing required query parameter: channel")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteBadRequest(w, "Invalid limit: must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxStandingsLimit {
		limit = maxStandingsLimit
	}

	standings, err := s.scores.Standings(r.Context(), channel, limit)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	if standings == nil {
		standings = []score.Standing{}
	}
	writeJSON(w, standingsResponse{Channel: channel, Standings: standings})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
