// Package server exposes the indicator backend over HTTP and WebSocket.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tradedash/internal/candle"
	"tradedash/internal/compute"
	"tradedash/internal/logger"
	"tradedash/internal/metrics"
	"tradedash/internal/model"
	"tradedash/internal/registry"
	redisstore "tradedash/internal/store/redis"
	"tradedash/internal/store/sqlite"
	"tradedash/pkg/smartconnect"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Server wires the compute engine, stores and broker client into HTTP
// handlers. Cache and broker are optional and may be nil.
type Server struct {
	reg    *registry.Registry
	engine *compute.Engine
	store  *sqlite.Store
	cache  *redisstore.Client
	broker *smartconnect.Client
	prom   *metrics.Metrics
	hub    *Hub
	start  time.Time

	maxCandles int
}

// New creates a Server. cache, broker and prom may be nil.
func New(reg *registry.Registry, engine *compute.Engine, store *sqlite.Store,
	cache *redisstore.Client, broker *smartconnect.Client, prom *metrics.Metrics,
	maxCandles int) *Server {
	return &Server{
		reg:        reg,
		engine:     engine,
		store:      store,
		cache:      cache,
		broker:     broker,
		prom:       prom,
		hub:        NewHub(prom),
		start:      time.Now(),
		maxCandles: maxCandles,
	}
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/indicators/compute", s.instrument("compute", s.handleCompute))
	mux.HandleFunc("/api/indicators/settings", s.instrument("settings", s.handleSettings))
	mux.HandleFunc("/api/indicators", s.instrument("indicators", s.handleList))
	mux.HandleFunc("/api/history", s.instrument("history", s.handleHistory))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
}

// instrument wraps a handler with CORS, OPTIONS preflight, request ID
// propagation, an access log line and metrics. Clients may supply their own
// X-Request-Id; otherwise one is generated, and either way it is echoed back
// and carried on the request context for downstream log lines.
func (s *Server) instrument(route string, fn func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = logger.GenerateRequestID(route, time.Now())
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(logger.WithRequestID(r.Context(), reqID))

		start := time.Now()
		status := fn(w, r)
		slog.Info("request served",
			"route", route,
			"request_id", reqID,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if s.prom != nil {
			s.prom.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			s.prom.HTTPDur.Observe(time.Since(start).Seconds())
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
	return status
}

func writeError(w http.ResponseWriter, status int, msg string) int {
	return writeJSON(w, status, map[string]any{
		"message":    msg,
		"indicators": []any{},
	})
}

// handleCompute serves POST /api/indicators/compute.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		return writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return writeError(w, http.StatusBadRequest, "failed to read request body")
	}
	var req compute.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return writeError(w, http.StatusBadRequest, "invalid JSON body")
	}
	if s.maxCandles > 0 && len(req.Candles) > s.maxCandles {
		return writeError(w, http.StatusBadRequest, "too many candles")
	}

	// Results are deterministic, so the request body is a valid cache key.
	var cacheKey string
	if s.cache != nil {
		sum := sha256.Sum256(body)
		cacheKey = hex.EncodeToString(sum[:])
		if cached, ok, err := s.cache.CachedResults(r.Context(), cacheKey); err == nil && ok {
			return writeJSON(w, http.StatusOK, compute.Response{Indicators: cached})
		}
	}

	resp, err := s.engine.Compute(r.Context(), req)
	if errors.Is(err, compute.ErrNoCandles) {
		return writeError(w, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return writeError(w, http.StatusInternalServerError, "compute failed")
	}

	if s.cache != nil {
		if err := s.cache.CacheResults(r.Context(), cacheKey, resp.Indicators); err != nil {
			log.Printf("[server] result cache write: %v", err)
		}
	}
	return writeJSON(w, http.StatusOK, resp)
}

// listedIndicator is one entry of the GET /api/indicators response: the
// definition plus its parameter and series metadata and, when a userId is
// given, that user's saved settings.
type listedIndicator struct {
	model.Definition
	Params     []model.ParamDef  `json:"params"`
	Series     []model.SeriesDef `json:"series"`
	Active     bool              `json:"is_active"`
	UserParams map[string]any    `json:"user_params,omitempty"`
}

// handleList serves GET /api/indicators?userId=N.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}

	var settings map[string]model.UserSetting
	if uidStr := r.URL.Query().Get("userId"); uidStr != "" {
		uid, err := strconv.ParseInt(uidStr, 10, 64)
		if err != nil {
			return writeError(w, http.StatusBadRequest, "invalid userId")
		}
		stored, err := s.store.UserSettings(r.Context(), uid)
		if err != nil {
			log.Printf("[server] user settings read: %v", err)
			return writeError(w, http.StatusInternalServerError, "failed to load user settings")
		}
		settings = make(map[string]model.UserSetting, len(stored))
		for _, us := range stored {
			settings[us.IndicatorCode] = us
		}
	}

	entries := s.reg.All()
	out := make([]listedIndicator, 0, len(entries))
	for _, e := range entries {
		li := listedIndicator{
			Definition: e.Definition,
			Params:     e.Params,
			Series:     e.SeriesDefs,
		}
		if us, ok := settings[e.Definition.Code]; ok {
			li.Active = us.Active
			li.UserParams = us.Params
		}
		out = append(out, li)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"indicators": out})
}

// handleSettings serves POST /api/indicators/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		return writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}

	var us model.UserSetting
	if err := json.NewDecoder(r.Body).Decode(&us); err != nil {
		return writeError(w, http.StatusBadRequest, "invalid JSON body")
	}
	if us.UserID <= 0 {
		return writeError(w, http.StatusBadRequest, "user_id is required")
	}
	if _, ok := s.reg.Get(us.IndicatorCode); !ok {
		return writeError(w, http.StatusBadRequest, "unknown indicator code: "+us.IndicatorCode)
	}

	if err := s.store.SaveUserSetting(r.Context(), us); err != nil {
		log.Printf("[server] save user setting: %v", err)
		return writeError(w, http.StatusInternalServerError, "failed to save settings")
	}

	ev := redisstore.SettingsEvent{
		UserID:        us.UserID,
		IndicatorCode: us.IndicatorCode,
		Params:        us.Params,
		Active:        us.Active,
	}
	if s.cache != nil {
		if err := s.cache.PublishSettingsChange(r.Context(), ev); err != nil {
			log.Printf("[server] settings publish: %v", err)
		}
	} else {
		// No Redis: notify this instance's clients directly.
		s.BroadcastSettings(ev)
	}

	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BroadcastSettings pushes one settings change to all WebSocket clients.
func (s *Server) BroadcastSettings(ev redisstore.SettingsEvent) {
	s.hub.Broadcast(map[string]any{
		"type":  "settings",
		"event": ev,
	})
}

// handleHistory serves GET /api/history: a thin proxy over the Angel One
// historical candle endpoint that returns normalized candles ready for a
// compute call.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		return writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
	if s.broker == nil {
		return writeError(w, http.StatusServiceUnavailable, "broker integration is not configured")
	}

	q := r.URL.Query()
	exchange := q.Get("exchange")
	token := q.Get("token")
	interval := q.Get("interval")
	if exchange == "" || token == "" || interval == "" {
		return writeError(w, http.StatusBadRequest, "exchange, token and interval are required")
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", v, time.Local)
		if err != nil {
			return writeError(w, http.StatusBadRequest, "invalid from date")
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", v, time.Local)
		if err != nil {
			return writeError(w, http.StatusBadRequest, "invalid to date")
		}
		to = t
	}

	start := time.Now()
	bars, err := s.broker.GetCandleData(r.Context(), exchange, token, interval, from, to)
	if s.prom != nil {
		s.prom.BrokerFetchDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.prom != nil {
			s.prom.BrokerFetchErrs.Inc()
		}
		slog.Error("broker fetch failed",
			"request_id", logger.RequestID(r.Context()),
			"exchange", exchange,
			"token", token,
			"err", err,
		)
		return writeError(w, http.StatusBadGateway, "broker fetch failed")
	}

	raw := make([]model.Candle, 0, len(bars))
	for _, b := range bars {
		raw = append(raw, model.Candle{
			Time:   b.Time.Unix(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	candles := candle.FromCandles(raw)
	return writeJSON(w, http.StatusOK, map[string]any{"candles": candles})
}

// handleHealth serves GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	sqliteOK := s.store.DB().PingContext(r.Context()) == nil
	redisOK := true
	if s.cache != nil {
		redisOK = s.cache.Raw().Ping(r.Context()).Err() == nil
	}

	status := http.StatusOK
	if !sqliteOK {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     map[bool]string{true: "ok", false: "degraded"}[sqliteOK && redisOK],
		"sqlite":     sqliteOK,
		"redis":      redisOK,
		"indicators": len(s.reg.All()),
		"ws_clients": s.hub.ClientCount(),
		"uptime_sec": int64(time.Since(s.start).Seconds()),
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}
