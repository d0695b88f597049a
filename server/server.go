package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"quiver/ranged"
)

const maxBots = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.Admit(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.Release(ip)
			hub.log.Warn("upgrade error", "err", err)
			return
		}

		client := NewClient(hub, conn, ip)
		hub.Register(client)
		go client.Serve()
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.sessions.ListSessions())
	})

	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionReq
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request body")
			return
		}
		if req.Mode != ranged.ModeFreeRoam && req.Mode != ranged.ModeDuel {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}
		cfg := DefaultConfig(req.Mode)
		if req.Bots != nil {
			cfg.Bots = int(Clamp(float64(*req.Bots), 0, maxBots))
		}
		if req.InfiniteAmmo != nil {
			cfg.InfiniteAmmo = *req.InfiniteAmmo
		}
		var hash string
		if req.Password != "" {
			var err error
			if hash, err = HashPassword(req.Password); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		sess, err := hub.sessions.CreateSession(req.Name, cfg, hash)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, CreatedMsg{SID: sess.ID})
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess := hub.sessions.GetSession(r.PathValue("id"))
		if sess == nil {
			writeError(w, http.StatusNotFound, ErrNoSession.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess.Detail())
	})

	mux.HandleFunc("GET /api/analytics", func(w http.ResponseWriter, r *http.Request) {
		counts, err := hub.analytics.EventCounts(7)
		if err != nil {
			hub.log.Error("analytics query", "err", err)
			writeError(w, http.StatusInternalServerError, "analytics unavailable")
			return
		}
		peers, sessions := hub.analytics.GetLiveMetrics()
		writeJSON(w, http.StatusOK, AnalyticsResp{
			Peers:    peers,
			Sessions: sessions,
			Events:   counts,
		})
	})

	return mux
}
