package main

import (
	"context"
	"log/slog"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// connLimits caps connections per address and overall
type connLimits struct {
	mu    sync.Mutex
	perIP map[string]int
	total int
}

// admit reserves a slot for ip, or reports false when a cap is reached
func (l *connLimits) admit(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total >= maxTotalConns || l.perIP[ip] >= maxConnsPerIP {
		return false
	}
	l.perIP[ip]++
	l.total++
	return true
}

func (l *connLimits) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip]--; l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
	l.total--
}

// Hub tracks every connected client and unseats it from its session when
// the connection ends.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	limits     connLimits

	sessions  *SessionManager
	auth      *Auth
	analytics *Analytics
	log       *slog.Logger
}

// NewHub creates a new Hub
func NewHub(sessions *SessionManager, auth *Auth, analytics *Analytics, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		limits:     connLimits{perIP: make(map[string]int)},
		sessions:   sessions,
		auth:       auth,
		analytics:  analytics,
		log:        log,
	}
}

// Admit reserves a connection slot for ip. Every admitted connection must
// be released once.
func (h *Hub) Admit(ip string) bool { return h.limits.admit(ip) }

// Release frees the slot taken by Admit
func (h *Hub) Release(ip string) { h.limits.release(ip) }

// Register hands a new client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister hands a finished client to the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run processes register/unregister events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.track(c, true)
		case c := <-h.unregister:
			h.track(c, false)
			if c.sessionID != "" {
				h.sessions.RemovePlayer(c.sessionID, c.peerID)
			}
		}
	}
}

func (h *Hub) track(c *Client, connected bool) {
	h.mu.Lock()
	if connected {
		h.clients[c] = struct{}{}
	} else {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.analytics.SetConcurrentPeers(n)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the number of admitted connections
func (h *Hub) TotalConns() int {
	h.limits.mu.Lock()
	defer h.limits.mu.Unlock()
	return h.limits.total
}
