// Package server provides the HTTP and WebSocket surface of the template
// matching service.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/templatehash/platform/internal/config"
	"github.com/templatehash/platform/internal/fetch"
	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/match"
	"github.com/templatehash/platform/internal/store"
	"github.com/templatehash/platform/internal/syncx"
	"github.com/templatehash/platform/internal/trace"
	"github.com/templatehash/platform/internal/upload"
)

// Matcher is the engine surface the server needs.
type Matcher interface {
	FindBestMatch(query hash.Fingerprint, threshold int) (*match.Match, []match.Skipped, error)
}

// ImageFetcher downloads remote images for the *-from-url endpoints.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// MatchEvent is broadcast to WebSocket clients after each successful match.
type MatchEvent struct {
	Type            string    `json:"type"`
	TemplateID      int       `json:"template_id"`
	Name            string    `json:"name"`
	Distance        int       `json:"distance"`
	SimilarityScore int       `json:"similarity_score"`
	MatchedAt       time.Time `json:"matched_at"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	store   *store.Store
	engine  Matcher
	fetcher ImageFetcher
	cfg     *config.Config
	uploads *upload.Store
	conns   *syncx.RWGuard[map[*websocket.Conn]struct{}]
}

// New creates a new server.
func New(st *store.Store, engine Matcher, fetcher ImageFetcher, cfg *config.Config) *Server {
	return &Server{
		store:   st,
		engine:  engine,
		fetcher: fetcher,
		cfg:     cfg,
		uploads: upload.New(cfg.UploadDir),
		conns:   syncx.NewGuard(make(map[*websocket.Conn]struct{})),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("POST /api/hash-image", s.handleHashImage)
	mux.HandleFunc("POST /api/compare-hashes", s.handleCompareHashes)
	mux.HandleFunc("POST /api/match-template", s.handleMatchTemplate)
	mux.HandleFunc("POST /api/match-template-from-url", s.handleMatchTemplateFromURL)
	mux.HandleFunc("POST /api/add-template", s.handleAddTemplate)
	mux.HandleFunc("POST /api/add-template-from-url", s.handleAddTemplateFromURL)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/templates/{id}/resolve-crop", s.handleResolveCrop)

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.conns.Write(func(m *map[*websocket.Conn]struct{}) {
		(*m)[conn] = struct{}{}
	})
	defer s.conns.Write(func(m *map[*websocket.Conn]struct{}) {
		delete(*m, conn)
	})

	log := trace.Logger(r.Context())
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Clients only listen; drain until the peer goes away.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			log.Debug("websocket closed", "error", err)
			return
		}
	}
}

// broadcastMatch fans a match event out to all connected clients. Slow or
// dead clients are skipped after the write timeout, never waited on.
func (s *Server) broadcastMatch(m *match.Match) {
	event := MatchEvent{
		Type:            "match",
		TemplateID:      m.Template.ID,
		Name:            m.Template.Name,
		Distance:        m.Distance,
		SimilarityScore: match.Score(m.Distance),
		MatchedAt:       time.Now().UTC(),
	}

	s.conns.Read(func(conns map[*websocket.Conn]struct{}) {
		for conn := range conns {
			ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
			if err := wsjson.Write(ctx, conn, event); err != nil {
				slog.Debug("websocket broadcast error", "error", err)
			}
			cancel()
		}
	})
}
