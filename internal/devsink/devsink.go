// Package devsink is a minimal Sentry-compatible store endpoint for local
// development. Accepted events are forwarded to an api.Transport, usually
// the SQLite archive.
package devsink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
)

// maxBody caps a store request body, before and after decompression.
const maxBody = 1 << 20

// ErrUnauthorized is returned when the request carries no usable key.
var ErrUnauthorized = errors.New("devsink: missing or invalid credentials")

// Config configures a Server.
type Config struct {
	// Sink receives every accepted event. Required.
	Sink api.Transport

	// Key and Secret, if set, must match the request credentials.
	Key    string
	Secret string

	Logger *slog.Logger
}

// Server handles store requests.
type Server struct {
	sink   api.Transport
	key    string
	secret string
	logger *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		sink:   cfg.Sink,
		key:    cfg.Key,
		secret: cfg.Secret,
		logger: cfg.Logger,
	}
}

// RegisterRoutes registers the store and health routes on r.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/{project}/store/", s.Store).Methods(http.MethodPost)
	r.HandleFunc("/health", s.Health).Methods(http.MethodGet)
}

// Router returns a new router with the routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return r
}

type storeResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Store accepts one event.
func (s *Server) Store(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]

	key, secret, err := s.authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}
	if len(data) > maxBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "body too large"})
		return
	}
	if r.Header.Get("Content-Encoding") == "gzip" {
		data, err = transport.DecompressLimit(bytes.NewReader(data), maxBody)
		if errors.Is(err, transport.ErrTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "body too large"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid gzip body"})
			return
		}
	}

	ev, err := transport.DecodeEvent(data)
	if err != nil || ev.EventID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event"})
		return
	}

	cred := api.Credential{
		Scheme:    "http",
		Key:       key,
		Secret:    secret,
		Host:      r.Host,
		ProjectID: project,
	}
	if err := s.sink.Send(r.Context(), cred, ev); err != nil {
		s.logger.Error("devsink: store failed",
			slog.String("event_id", ev.EventID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store failed"})
		return
	}

	s.logger.Info("devsink: event stored",
		slog.String("project", project),
		slog.String("event_id", ev.EventID),
		slog.String("level", string(ev.Level)),
		slog.String("message", ev.Message),
	)
	writeJSON(w, http.StatusOK, storeResponse{ID: ev.EventID})
}

// Health reports that the server is up.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authenticate(r *http.Request) (string, string, error) {
	key, secret, ok := ParseAuthHeader(r.Header.Get("X-Sentry-Auth"))
	if !ok {
		key, secret, ok = r.BasicAuth()
	}
	if !ok || key == "" {
		return "", "", ErrUnauthorized
	}
	if s.key != "" && key != s.key {
		return "", "", ErrUnauthorized
	}
	if s.secret != "" && secret != s.secret {
		return "", "", ErrUnauthorized
	}
	return key, secret, nil
}

// ParseAuthHeader extracts sentry_key and sentry_secret from an
// X-Sentry-Auth value.
func ParseAuthHeader(v string) (key, secret string, ok bool) {
	v, found := strings.CutPrefix(strings.TrimSpace(v), "Sentry ")
	if !found {
		return "", "", false
	}
	for _, part := range strings.Split(v, ",") {
		k, val, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "sentry_key":
			key = val
		case "sentry_secret":
			secret = val
		}
	}
	return key, secret, key != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
