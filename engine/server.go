package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
)

var srvlog = slog.Default().With("component", "server")

// Server exposes the engine as an HTTP/WebSocket analysis service. It is
// optional: the UCI loop never touches it.
type Server struct {
	engine *Engine
	config *ConfigStore

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*analysisSession
}

type analysisSession struct {
	id  string
	fen string
	tc  *TimeControl
}

// wsMessage is the envelope for every frame an analysis session emits:
// "info" carries an InfoLine, "bestmove" the final verdict, "ping" keeps
// idle connections alive, and the client sends "stop" to cancel.
type wsMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Deep iterations can be minutes apart on quiet positions; ping before
// intermediaries give up on the idle connection.
const wsIdlePingInterval = 30 * time.Second

// pump drains the session's outbound frames into the socket. The idle
// timer rearms on every frame, so pings with the session id go out only
// when the search has produced nothing for a while. Returns on channel
// close or the first write error.
func (session *analysisSession) pump(conn *websocket.Conn, send <-chan []byte) error {
	ping := mustMarshal(wsMessage{Type: "ping", Session: session.id})
	idle := time.NewTimer(wsIdlePingInterval)
	defer idle.Stop()

	rearm := func() {
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(wsIdlePingInterval)
	}

	for {
		select {
		case frame, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
			rearm()
		case <-idle.C:
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			idle.Reset(wsIdlePingInterval)
		}
	}
}

func NewServer(engine *Engine, config *ConfigStore) *Server {
	return &Server{
		engine: engine,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*analysisSession),
	}
}

// Handler assembles the route tree: chi for routing, gorilla/handlers for
// request logging and CORS around the whole router.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/status", srv.statusHandler)
	r.Post("/api/analyze", srv.analyzeHandler)
	r.Get("/ws/analysis", srv.wsAnalysisHandler)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.CombinedLoggingHandler(os.Stdout, cors(r))
}

func (srv *Server) ListenAndServe(addr string) error {
	srvlog.Info("analysis server listening", "addr", addr)
	return http.ListenAndServe(addr, srv.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusResponse struct {
	Name      string  `json:"name"`
	Options   Options `json:"options"`
	FEN       string  `json:"fen"`
	Searching bool    `json:"searching"`
	Sessions  int     `json:"sessions"`
}

func (srv *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	srv.mu.Lock()
	sessions := len(srv.sessions)
	srv.mu.Unlock()
	writeJSON(w, http.StatusOK, statusResponse{
		Name:      engineName,
		Options:   srv.engine.Options(),
		FEN:       srv.engine.Position().FEN(),
		Searching: srv.engine.IsSearching(),
		Sessions:  sessions,
	})
}

type analyzeRequest struct {
	PGN   string `json:"pgn"`
	Depth int    `json:"depth"`
}

type analyzeResponse struct {
	ID    string         `json:"id"`
	Moves []MoveAnalysis `json:"moves"`
}

func (srv *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	cfg := srv.config.Get()
	depth := req.Depth
	if depth <= 0 || depth > maxSearchDepth {
		depth = cfg.AnalysisDepth
	}

	style := styleProfiles["Normal"]
	if profile, ok := styleProfiles[srv.engine.Options().Style]; ok {
		style = profile
	}

	start := time.Now()
	moves, err := AnalyzeGame(req.PGN, depth, cfg.AnalysisMaxPlies, style)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	srvlog.Info("analysis complete", "plies", len(moves), "elapsed", time.Since(start))
	writeJSON(w, http.StatusOK, analyzeResponse{ID: uuid.NewString(), Moves: moves})
}

// wsAnalysisHandler streams iterative-deepening info lines for one position
// until the client disconnects or sends "stop".
func (srv *Server) wsAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	fen := r.URL.Query().Get("fen")
	pos := NewPosition()
	if fen != "" {
		if err := pos.SetFEN(fen); err != nil {
			http.Error(w, "invalid fen: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srvlog.Error("websocket upgrade failed", "error", err)
		return
	}

	session := &analysisSession{
		id:  uuid.NewString(),
		fen: pos.FEN(),
		tc:  NewTimeControl(GoParams{Infinite: true}, pos.side, 0),
	}
	srv.mu.Lock()
	srv.sessions[session.id] = session
	srv.mu.Unlock()
	srvlog.Info("analysis session opened", "session", session.id, "fen", session.fen)

	defer func() {
		session.tc.Stop()
		srv.mu.Lock()
		delete(srv.sessions, session.id)
		srv.mu.Unlock()
		conn.Close()
		srvlog.Info("analysis session closed", "session", session.id)
	}()

	send := make(chan []byte, 32)

	// Reader: any "stop" message or a dead connection cancels the search.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				session.tc.Stop()
				return
			}
			var msg wsMessage
			if json.Unmarshal(data, &msg) == nil && msg.Type == "stop" {
				session.tc.Stop()
				return
			}
		}
	}()

	// Searcher: a private table per session keeps concurrent analyses and
	// the UCI hash independent.
	go func() {
		defer close(send)
		cfg := srv.config.Get()
		throttle := time.Duration(cfg.WSInfoThrottleMs) * time.Millisecond
		var lastSent time.Time

		tt := NewTranspositionTable(16)
		s := newSearcher(pos.Clone(), tt, session.tc, srv.engine.style())
		best, score := s.iterate(func(it iterationResult) {
			if throttle > 0 && !lastSent.IsZero() && time.Since(lastSent) < throttle && it.depth > 1 {
				return
			}
			lastSent = time.Now()
			info := InfoLine{
				Depth:    it.depth,
				Seldepth: max(s.stats.Seldepth, it.depth),
				MultiPV:  1,
				TimeMs:   session.tc.Elapsed().Milliseconds(),
				Nodes:    s.stats.Nodes + s.stats.QNodes,
				Hashfull: tt.Hashfull(),
			}
			if isMateScore(it.score) {
				plies := scoreMate - it.score
				if it.score < 0 {
					plies = scoreMate + it.score
				}
				mate := (plies + 1) / 2
				if it.score < 0 {
					mate = -mate
				}
				info.MateIn = mate
			} else {
				info.ScoreCP = it.score
			}
			for _, m := range it.pv {
				info.PV = append(info.PV, m.String())
			}
			payload := mustMarshal(info)
			select {
			case send <- mustMarshal(wsMessage{Type: "info", Session: session.id, Payload: payload}):
			default: // slow client: drop rather than stall the search
			}
		})

		final := mustMarshal(map[string]any{"bestmove": best.String(), "score": score})
		select {
		case send <- mustMarshal(wsMessage{Type: "bestmove", Session: session.id, Payload: final}):
		default:
		}
	}()

	if err := session.pump(conn, send); err != nil {
		srvlog.Debug("websocket write ended", "session", session.id, "error", err)
	}
}
