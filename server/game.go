package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quiver/peerconn"
	"quiver/ranged"
)

const DefaultTickRate = 60 // simulation ticks per second

var (
	ErrSessionFull      = errors.New("session full")
	ErrAlreadyConnected = errors.New("combatant already connected")
	ErrGameStopped      = errors.New("session has ended")
	ErrUnknownPeer      = errors.New("unknown peer")
)

// Peer is the host's handle on one client connection. Sends must not block:
// the game calls them while holding its lock.
type Peer interface {
	SendFrame(frame []byte, d ranged.Delivery) error
	SendJSON(msg any) error
}

// peerSet is the host side of ranged.Transport for one session
type peerSet struct {
	mu    sync.RWMutex
	peers map[ranged.PeerID]Peer
}

func newPeerSet() *peerSet {
	return &peerSet{peers: make(map[ranged.PeerID]Peer)}
}

func (ps *peerSet) add(id ranged.PeerID, p Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.peers[id] = p
}

func (ps *peerSet) remove(id ranged.PeerID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.peers, id)
}

// SendToHost is a no-op: this is the host
func (ps *peerSet) SendToHost([]byte, ranged.Delivery) error { return nil }

func (ps *peerSet) Broadcast(msg []byte, d ranged.Delivery) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	var errs []error
	for id, p := range ps.peers {
		if err := p.SendFrame(msg, d); err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (ps *peerSet) SendTo(peer ranged.PeerID, msg []byte, d ranged.Delivery) error {
	ps.mu.RLock()
	p, ok := ps.peers[peer]
	ps.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
	}
	return p.SendFrame(msg, d)
}

func (ps *peerSet) PeerCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.peers)
}

// Env carries the process-wide collaborators every game shares
type Env struct {
	Tuning    ranged.Tuning
	TickRate  int
	Log       *slog.Logger
	Analytics *Analytics
}

// JoinSpec describes a client taking a seat. ID is fresh for a new
// combatant and the token's combatant for a rejoin.
type JoinSpec struct {
	ID     ranged.CombatantID
	Name   string
	Token  string
	PeerID ranged.PeerID
	Peer   Peer
}

// Game is the host of one session: the authoritative replicator, the
// bots and the scoreboard.
type Game struct {
	mu       sync.Mutex
	id       string
	match    MatchState
	tuning   ranged.Tuning
	rep      *ranged.Replicator
	peers    *peerSet
	players  map[ranged.CombatantID]*Player
	tick     uint64
	tickRate int
	closed   bool
	stop     chan struct{}

	emptySince time.Time // zero while a human is seated

	// hit scoring
	lastPos map[ranged.ArrowID]ranged.Vec3
	hits    map[ranged.ArrowID]map[ranged.CombatantID]struct{}
	grid    *SpatialGrid
	refBuf  []EntityRef

	log       *slog.Logger
	analytics *Analytics
}

// NewGame creates a session host and seats the configured bots
func NewGame(id string, cfg MatchConfig, env Env) *Game {
	if env.TickRate <= 0 {
		env.TickRate = DefaultTickRate
	}
	if env.Log == nil {
		env.Log = slog.Default()
	}
	seed := cfg.WindSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		id:         id,
		match:      NewMatchState(cfg, seed),
		tuning:     env.Tuning,
		peers:      newPeerSet(),
		players:    make(map[ranged.CombatantID]*Player),
		tickRate:   env.TickRate,
		stop:       make(chan struct{}),
		emptySince: time.Now(),
		lastPos:    make(map[ranged.ArrowID]ranged.Vec3),
		hits:       make(map[ranged.ArrowID]map[ranged.CombatantID]struct{}),
		grid:       NewSpatialGrid(cfg.ArenaSize),
		log:        env.Log.With("session", id),
		analytics:  env.Analytics,
	}
	g.rep = ranged.NewReplicator(ranged.RoleHost, "", env.Tuning,
		ranged.WithTransport(g.peers),
		ranged.WithWind(ranged.NewGustWind(seed, cfg.WindHeading, cfg.WindSpeed)),
		ranged.WithLogger(g.log),
	)
	g.rep.Observers().OnArrow(g.onArrow)

	for range cfg.Bots {
		g.addBot()
	}
	return g
}

// ID returns the session id
func (g *Game) ID() string { return g.id }

// Config returns the match rules
func (g *Game) Config() MatchConfig { return g.match.Config }

// Run starts the game loop
func (g *Game) Run() {
	tick := time.Second / time.Duration(g.tickRate)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	dt := tick.Seconds()
	for {
		select {
		case <-ticker.C:
			g.update(dt)
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop. Later joins fail with ErrGameStopped.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.close()
}

// Deliver hands an inbound frame from a client to the replicator. It is
// safe to call from the connection's read goroutine.
func (g *Game) Deliver(peer ranged.PeerID, frame []byte) {
	g.rep.Deliver(peer, frame)
}

// Join seats a client and sends its welcome. The welcome is queued before
// any replication frame reaches the peer.
func (g *Game) Join(spec JoinSpec) (*peerconn.Welcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrGameStopped
	}
	if _, ok := g.players[spec.ID]; ok {
		return nil, ErrAlreadyConnected
	}
	if g.humanCount() >= g.match.Config.MaxPlayers {
		return nil, ErrSessionFull
	}

	cfg := g.match.Config
	team := g.match.AssignTeam(g.rep.Sessions())
	p := NewPlayer(spec.ID, spec.Name, team, spec.PeerID)
	ammo := cfg.Ammo
	if left, ok := g.rep.LastAmmo(p.ID); ok && left >= 0 {
		ammo = left
	}
	g.rep.AddCombatant(ranged.SessionConfig{
		ID:           p.ID,
		Name:         p.Name,
		Team:         team,
		Color:        TeamColor(team),
		Position:     g.match.SpawnPosition(team),
		Mode:         cfg.Mode,
		Ammo:         ammo,
		InfiniteAmmo: cfg.InfiniteAmmo,
		LastTicket:   g.rep.LastTicket(p.ID),
	}, false)
	g.players[p.ID] = p

	roster := g.roster()
	welcome := &peerconn.Welcome{
		SessionID:  g.id,
		Combatant:  p.ID,
		Token:      spec.Token,
		LastTicket: g.rep.LastTicket(p.ID),
		TuningHash: g.tuning.Hash(),
		TickRate:   g.tickRate,
		Roster:     roster,
		Wind:       g.rep.WindState(),
	}
	env, err := peerconn.NewEnvelope(peerconn.MsgWelcome, welcome)
	if err == nil {
		err = spec.Peer.SendJSON(env)
	}
	if err != nil {
		g.rep.RemoveCombatant(p.ID)
		delete(g.players, p.ID)
		return nil, fmt.Errorf("send welcome: %w", err)
	}

	g.emptySince = time.Time{}
	g.peers.add(spec.PeerID, spec.Peer)
	g.rep.BindPeer(spec.PeerID, p.ID)
	g.rep.PublishRoster(roster)
	g.rep.SyncPeer(spec.PeerID)

	g.log.Info("combatant joined", "combatant", string(p.ID), "name", p.Name, "team", team,
		"resumed_ticket", welcome.LastTicket, "ammo", ammo)
	g.analytics.Track(EvtCombatantJoin, g.id, string(p.ID), "")
	return welcome, nil
}

// LeaveAndCloseIfEmpty unseats the combatant bound to peer and, when no
// human is left, stops the game before another join can take the lock. It
// reports whether the game was stopped. Arrows already in flight finish
// their flight.
func (g *Game) LeaveAndCloseIfEmpty(peer ranged.PeerID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leave(peer)
	if g.humanCount() > 0 {
		return false
	}
	g.close()
	return true
}

// CloseIfIdle stops a game that has had no human for at least idle
func (g *Game) CloseIfIdle(now time.Time, idle time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.humanCount() > 0 || now.Sub(g.emptySince) < idle {
		return false
	}
	g.close()
	return true
}

func (g *Game) close() {
	if !g.closed {
		g.closed = true
		close(g.stop)
	}
}

func (g *Game) leave(peer ranged.PeerID) {
	g.peers.remove(peer)
	id, ok := g.rep.UnbindPeer(peer)
	if !ok {
		return
	}
	g.rep.RemoveCombatant(id)
	delete(g.players, id)
	g.rep.PublishRoster(g.roster())
	if g.humanCount() == 0 {
		g.emptySince = time.Now()
	}

	g.log.Info("combatant left", "combatant", string(id))
	g.analytics.Track(EvtCombatantLeave, g.id, string(id), "")
}

// HumanCount returns the number of connected players
func (g *Game) HumanCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.humanCount()
}

// BotCount returns the number of host-driven archers
func (g *Game) BotCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players) - g.humanCount()
}

func (g *Game) humanCount() int {
	n := 0
	for _, p := range g.players {
		if !p.Bot {
			n++
		}
	}
	return n
}

// Detail returns the live view of the session for the HTTP API
func (g *Game) Detail() SessionDetail {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := SessionDetail{
		SessionInfo: SessionInfo{
			ID:         g.id,
			Mode:       g.match.Config.Mode,
			Players:    g.humanCount(),
			Bots:       len(g.players) - g.humanCount(),
			MaxPlayers: g.match.Config.MaxPlayers,
		},
		Tick:   g.tick,
		Wind:   g.rep.WindState(),
		Arrows: g.rep.World().Count(),
		Scores: make([]ScoreEntry, 0, len(g.players)),
	}
	for _, s := range g.rep.Sessions() {
		if p, ok := g.players[s.ID]; ok {
			d.Scores = append(d.Scores, p.ToEntry())
		}
	}
	return d
}

func (g *Game) addBot() {
	cfg := newBotConfig(&g.match, g.rep.Sessions())
	s := g.rep.AddCombatant(cfg, true)
	g.players[s.ID] = attachBot(s, g.match.rng.Int63())
}

func (g *Game) roster() ranged.Roster {
	ro := ranged.Roster{
		Mode:         g.match.Config.Mode,
		InfiniteAmmo: g.match.Config.InfiniteAmmo,
	}
	for _, s := range g.rep.Sessions() {
		p := g.players[s.ID]
		ro.Entries = append(ro.Entries, ranged.RosterEntry{
			ID:       s.ID,
			Name:     s.Name,
			Team:     s.Team,
			Color:    s.Color,
			Position: s.Position,
			Ammo:     s.Ammo(),
			Bot:      p != nil && p.Bot,
		})
	}
	return ro
}

// update runs one game tick
func (g *Game) update(dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++

	sessions := g.rep.Sessions()
	for _, s := range sessions {
		p := g.players[s.ID]
		if p == nil || p.brain == nil {
			continue
		}
		if p.ability != nil {
			p.ability.Update(dt, s)
			if p.brain.Target != "" && p.ability.Activate(s) {
				g.log.Debug("bot ability", "combatant", string(s.ID), "ability", p.ability.Type)
			}
		}
		p.brain.Tick(dt, sessions)
	}

	g.rep.Update(dt)
	g.scoreHits()
}

// onArrow runs inside the tick or a join, with g.mu held
func (g *Game) onArrow(e ranged.ArrowEvent) {
	owner := string(e.Arrow.Owner)
	switch e.Kind {
	case ranged.ArrowSpawned:
		g.analytics.Track(EvtArrowSpawned, g.id, owner, "")
	case ranged.ArrowLaunched:
		if p, ok := g.players[e.Arrow.Owner]; ok {
			p.Shots++
		}
		if a, ok := g.rep.World().Get(e.Arrow); ok {
			g.lastPos[e.Arrow] = a.Position
		}
		var data string
		if e.Order != nil {
			data = eventData(map[string]any{"arrow": e.Arrow.String(), "power": e.Order.Power, "loft": e.Order.Loft})
		}
		g.analytics.Track(EvtArrowLaunched, g.id, owner, data)
	case ranged.ArrowSettled:
		delete(g.lastPos, e.Arrow)
		if p, ok := g.players[e.Arrow.Owner]; ok && len(g.hits[e.Arrow]) == 0 {
			p.Streak = 0
		}
	case ranged.ArrowDespawned:
		delete(g.lastPos, e.Arrow)
		delete(g.hits, e.Arrow)
	case ranged.ArrowDuplicateSpawn:
		g.analytics.Track(EvtSpawnDuplicate, g.id, owner, eventData(map[string]any{"arrow": e.Arrow.String()}))
	case ranged.ArrowLaunchDropped:
		g.analytics.Track(EvtLaunchDropped, g.id, owner, eventData(map[string]any{"arrow": e.Arrow.String()}))
	}
}

// scoreHits sweeps every flying arrow over the distance it moved this tick
// and credits its owner for each opponent the sweep passes through. A
// non-piercing arrow scores once.
func (g *Game) scoreHits() {
	if len(g.lastPos) == 0 {
		return
	}
	sessions := g.rep.Sessions()
	g.grid.Clear()
	for i, s := range sessions {
		g.grid.InsertCircle(s.Position.X, s.Position.Z, BodyRadius, EntityRef{Kind: 'c', Idx: i})
	}

	for id, prev := range g.lastPos {
		a, ok := g.rep.World().Get(id)
		if !ok {
			delete(g.lastPos, id)
			continue
		}
		cur := a.Position
		mid := prev.Add(cur).Scale(0.5)
		reach := cur.Sub(prev).Horizontal()/2 + BodyRadius

		spent := false
		g.refBuf = g.grid.QueryBuf(mid.X, mid.Z, reach, g.refBuf[:0])
		for _, ref := range g.refBuf {
			s := sessions[ref.Idx]
			if s.ID == id.Owner || (a.Team != TeamNone && s.Team == a.Team) {
				continue
			}
			if _, done := g.hits[id][s.ID]; done {
				continue
			}
			if !SegmentHitsBody(prev, cur, s.Position) {
				continue
			}
			g.recordHit(id, s)
			if !a.Piercing {
				spent = true
				break
			}
		}

		if spent || a.Settled {
			delete(g.lastPos, id)
		} else {
			g.lastPos[id] = cur
		}
	}
}

func (g *Game) recordHit(arrow ranged.ArrowID, target *ranged.AttackSession) {
	set := g.hits[arrow]
	if set == nil {
		set = make(map[ranged.CombatantID]struct{})
		g.hits[arrow] = set
	}
	set[target.ID] = struct{}{}

	g.log.Debug("arrow hit", "arrow", arrow.String(), "target", string(target.ID))
	g.analytics.Track(EvtArrowHit, g.id, string(arrow.Owner),
		eventData(map[string]any{"arrow": arrow.String(), "target": string(target.ID)}))

	p, ok := g.players[arrow.Owner]
	if !ok {
		return
	}
	p.Hits++
	if len(set) == 1 {
		p.Streak++
	}
	hit := HitInfo{ArrowHits: len(set)}
	if shooter, ok := g.rep.Session(arrow.Owner); ok {
		hit.Distance = target.Position.Sub(shooter.Position).Horizontal()
	}
	for _, a := range CheckAccolades(p, hit) {
		g.log.Info("accolade", "combatant", string(p.ID), "accolade", a.ID)
		g.analytics.Track(EvtAccolade, g.id, string(p.ID), eventData(map[string]any{"accolade": a.ID}))
	}
}

func eventData(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
