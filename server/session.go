package main

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"quiver/ranged"
)

const (
	maxSessions    = 100
	maxSessionName = 30

	// sessions nobody has joined for this long are ended
	sessionIdleTimeout = 2 * time.Minute
	reapInterval       = 15 * time.Second
)

var (
	ErrTooManySessions = errors.New("too many active sessions")
	ErrNoSession       = errors.New("session not found")
)

// Session represents a game session that players can join
type Session struct {
	ID        string
	Name      string
	PassHash  string // bcrypt; empty for an open session
	Game      *Game
	CreatedAt time.Time
}

// Info summarizes the session for listings
func (s *Session) Info() SessionInfo {
	d := s.Game.Detail()
	info := d.SessionInfo
	info.ID = s.ID
	info.Name = s.Name
	info.Locked = s.PassHash != ""
	return info
}

// Detail is the live view served by GET /api/sessions/{id}
func (s *Session) Detail() SessionDetail {
	d := s.Game.Detail()
	d.ID = s.ID
	d.Name = s.Name
	d.Locked = s.PassHash != ""
	return d
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	env       Env
	quickBots int
}

// NewSessionManager creates a new SessionManager. Every game it creates
// shares env; quick-match sessions start with quickBots bots.
func NewSessionManager(env Env, quickBots int) *SessionManager {
	if env.Log == nil {
		env.Log = slog.Default()
	}
	return &SessionManager{
		sessions:  make(map[string]*Session),
		env:       env,
		quickBots: quickBots,
	}
}

// CreateSession creates and starts a game session
func (sm *SessionManager) CreateSession(name string, cfg MatchConfig, passHash string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil, ErrTooManySessions
	}

	name = truncate(name, maxSessionName)
	if name == "" {
		name = "Archery Range"
	}
	id := GenerateUUID()
	sess := &Session{
		ID:        id,
		Name:      name,
		PassHash:  passHash,
		Game:      NewGame(id, cfg, sm.env),
		CreatedAt: time.Now(),
	}
	sm.sessions[id] = sess
	go sess.Game.Run()

	sm.env.Log.Info("session created", "session", id, "name", name, "mode", cfg.Mode, "bots", cfg.Bots)
	sm.env.Analytics.Track(EvtSessionStart, id, "", eventData(map[string]any{"mode": cfg.Mode, "bots": cfg.Bots}))
	sm.env.Analytics.SetActiveSessions(len(sm.sessions))
	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// QuickMatch returns the fullest open session with a free seat, creating a
// free-roam session when none has one.
func (sm *SessionManager) QuickMatch() (*Session, error) {
	sm.mu.RLock()
	var best *Session
	bestPlayers := -1
	for _, sess := range sm.sessions {
		if sess.PassHash != "" {
			continue
		}
		n := sess.Game.HumanCount()
		if n >= sess.Game.Config().MaxPlayers {
			continue
		}
		if n > bestPlayers || (n == bestPlayers && sess.CreatedAt.Before(best.CreatedAt)) {
			best, bestPlayers = sess, n
		}
	}
	sm.mu.RUnlock()

	if best != nil {
		return best, nil
	}
	cfg := DefaultConfig(ranged.ModeFreeRoam)
	cfg.Bots = sm.quickBots
	return sm.CreateSession("Quick Match", cfg, "")
}

// RemovePlayer unseats a connection and ends the session once no human is
// left in it.
func (sm *SessionManager) RemovePlayer(sessionID string, peer ranged.PeerID) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	// Clean up empty sessions
	if sess.Game.LeaveAndCloseIfEmpty(peer) {
		sm.end(sess)
	}
}

// ReapIdle ends every session that has had no human for idle, and returns
// how many it ended.
func (sm *SessionManager) ReapIdle(now time.Time, idle time.Duration) int {
	sm.mu.RLock()
	var idleSessions []*Session
	for _, sess := range sm.sessions {
		if sess.Game.CloseIfIdle(now, idle) {
			idleSessions = append(idleSessions, sess)
		}
	}
	sm.mu.RUnlock()

	for _, sess := range idleSessions {
		sm.end(sess)
	}
	return len(idleSessions)
}

// RunReaper ends idle sessions every interval until ctx is cancelled
func (sm *SessionManager) RunReaper(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := sm.ReapIdle(now, idle); n > 0 {
				sm.env.Log.Info("reaped idle sessions", "count", n)
			}
		}
	}
}

// end delists a session whose game has already stopped accepting joins
func (sm *SessionManager) end(sess *Session) {
	sm.mu.Lock()
	if sm.sessions[sess.ID] != sess {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sess.ID)
	n := len(sm.sessions)
	sm.mu.Unlock()

	sess.Game.Stop()
	sm.env.Log.Info("session ended", "session", sess.ID, "lasted", time.Since(sess.CreatedAt).Round(time.Second))
	sm.env.Analytics.Track(EvtSessionEnd, sess.ID, "", "")
	sm.env.Analytics.SetActiveSessions(n)
}

// ListSessions returns info about all active sessions, newest first
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	all := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		all = append(all, sess)
	}
	sm.mu.RUnlock()

	slices.SortFunc(all, func(a, b *Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	list := make([]SessionInfo, 0, len(all))
	for _, sess := range all {
		list = append(list, sess.Info())
	}
	return list
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll ends every session, used at shutdown
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	all := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	for _, sess := range all {
		sess.Game.Stop()
		sm.env.Analytics.Track(EvtSessionEnd, sess.ID, "", "")
	}
	sm.env.Analytics.SetActiveSessions(0)
}
