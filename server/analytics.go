package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtSessionStart   = "session_start"
	EvtSessionEnd     = "session_end"
	EvtCombatantJoin  = "combatant_join"
	EvtCombatantLeave = "combatant_leave"
	EvtArrowSpawned   = "arrow_spawned"
	EvtArrowLaunched  = "arrow_launched"
	EvtSpawnDuplicate = "spawn_duplicate"
	EvtLaunchDropped  = "launch_dropped"
	EvtArrowHit       = "arrow_hit"
	EvtAccolade       = "accolade"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	SessionID string
	Combatant string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes. A nil
// *Analytics tracks nothing.
type Analytics struct {
	db     *DB
	log    *slog.Logger
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	// Live metrics
	mu              sync.RWMutex
	concurrentPeers int
	activeSessions  int
	dropped         int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB, log *slog.Logger) *Analytics {
	a := &Analytics{
		db:     db,
		log:    log,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, sessionID, combatant, data string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		SessionID: sessionID,
		Combatant: combatant,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than block a game tick
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// SetConcurrentPeers updates live peer count metric
func (a *Analytics) SetConcurrentPeers(n int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.concurrentPeers = n
	a.mu.Unlock()
}

// SetActiveSessions updates live session count metric
func (a *Analytics) SetActiveSessions(n int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.activeSessions = n
	a.mu.Unlock()
}

// GetLiveMetrics returns current live metrics
func (a *Analytics) GetLiveMetrics() (int, int) {
	if a == nil {
		return 0, 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.concurrentPeers, a.activeSessions
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

const (
	analyticsBatch = 50
	analyticsEvery = 2 * time.Second
)

// writer batches events and writes them on size or age. On stop it drains
// whatever is queued.
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatch)
	ticker := time.NewTicker(analyticsEvery)
	defer ticker.Stop()

	flush := func() {
		a.flush(batch)
		batch = batch[:0]
	}
	for {
		select {
		case evt := <-a.events:
			if batch = append(batch, evt); len(batch) >= analyticsBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					flush()
					return
				}
			}
		}
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// flush writes a batch in one transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error("analytics: begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, session_id, combatant, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		a.log.Error("analytics: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		_, err := stmt.Exec(evt.Type, nullable(evt.SessionID), nullable(evt.Combatant), nullable(evt.Data),
			evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			a.log.Warn("analytics: insert", "type", evt.Type, "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error("analytics: commit", "err", err, "events", len(events))
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	return a.countByType(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= strftime('%Y-%m-%dT%H:%M:%SZ', 'now', '-' || ? || ' days')
		GROUP BY event_type`, days)
}

// SessionEvents returns counts of each event type recorded for one session
func (a *Analytics) SessionEvents(sessionID string) (map[string]int, error) {
	return a.countByType(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE session_id = ? GROUP BY event_type`, sessionID)
}

// countByType runs a (type, count) query. Without a database every count is zero.
func (a *Analytics) countByType(query string, args ...any) (map[string]int, error) {
	counts := make(map[string]int)
	if a == nil || a.db == nil {
		return counts, nil
	}
	rows, err := a.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// Dropped returns how many events were lost to a full queue
func (a *Analytics) Dropped() int {
	if a == nil {
		return 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dropped
}
