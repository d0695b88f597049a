package ranged

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Role is this peer's place in a session
type Role uint8

const (
	RoleOffline Role = iota
	RoleHost
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	}
	return "offline"
}

// windAuthority is a wind this peer advances and publishes
type windAuthority interface {
	WindProvider
	Update(dt float64)
	TakeChanged() bool
}

type inbound struct {
	from  PeerID
	frame []byte
}

// Option configures a Replicator
type Option func(*Replicator)

func WithTransport(t Transport) Option { return func(r *Replicator) { r.transport = t } }

// WithWind sets the wind used by local shots. Clients ignore it and follow
// the host's replicated wind.
func WithWind(w WindProvider) Option { return func(r *Replicator) { r.wind = w } }

func WithLogger(l *slog.Logger) Option { return func(r *Replicator) { r.log = l } }

func WithTracer(t trace.Tracer) Option { return func(r *Replicator) { r.tracer = t } }

func WithObservers(o *Observers) Option { return func(r *Replicator) { r.obs = o } }

func WithDeliveryPolicy(p DeliveryPolicy) Option { return func(r *Replicator) { r.policy = p } }

// WithProgressInterval sets how often draw progress is sent while drawing
func WithProgressInterval(seconds float64) Option {
	return func(r *Replicator) { r.progressEvery = seconds }
}

// Replicator is the per-peer replication endpoint. It holds one
// AttackSession per combatant and the local copy of every arrow actor.
//
// Deliver may be called from any goroutine. Everything else belongs to the
// goroutine that calls Update.
type Replicator struct {
	role  Role
	local CombatantID

	tuning    Tuning
	solver    Solver
	transport Transport
	wind      WindProvider
	mirror    *ReplicatedWind
	obs       *Observers
	policy    DeliveryPolicy
	log       *slog.Logger
	tracer    trace.Tracer

	sessions map[CombatantID]*AttackSession
	world    *World

	// host only
	maxTicket map[CombatantID]uint32
	ammoLeft  map[CombatantID]int
	peers     map[PeerID]CombatantID

	inMu  sync.Mutex
	inbox []inbound

	progressEvery float64
	progressAcc   float64
}

// NewReplicator creates the endpoint for a peer. local is the combatant
// this peer's player controls, empty on a dedicated host.
func NewReplicator(role Role, local CombatantID, t Tuning, opts ...Option) *Replicator {
	r := &Replicator{
		role:          role,
		local:         local,
		tuning:        t,
		solver:        NewSolver(t),
		obs:           &Observers{},
		policy:        DefaultDeliveryPolicy(),
		log:           slog.Default(),
		tracer:        otel.Tracer("quiver/ranged"),
		sessions:      make(map[CombatantID]*AttackSession),
		world:         NewWorld(),
		maxTicket:     make(map[CombatantID]uint32),
		ammoLeft:      make(map[CombatantID]int),
		peers:         make(map[PeerID]CombatantID),
		progressEvery: 0.1,
	}
	for _, o := range opts {
		o(r)
	}
	if role == RoleClient {
		r.mirror = &ReplicatedWind{}
		r.wind = r.mirror
	}
	r.log = r.log.With("role", role.String())
	return r
}

func (r *Replicator) Role() Role               { return r.role }
func (r *Replicator) Local() CombatantID       { return r.local }
func (r *Replicator) World() *World            { return r.world }
func (r *Replicator) Solver() Solver           { return r.solver }
func (r *Replicator) Observers() *Observers    { return r.obs }
func (r *Replicator) Wind() WindProvider       { return r.wind }
func (r *Replicator) WindState() WindState     { return Snapshot(r.wind) }
func (r *Replicator) Transport() Transport     { return r.transport }

// Session returns the attack session of a combatant
func (r *Replicator) Session(id CombatantID) (*AttackSession, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Sessions returns every session ordered by combatant id
func (r *Replicator) Sessions() []*AttackSession {
	out := make([]*AttackSession, 0, len(r.sessions))
	for _, id := range slices.Sorted(maps.Keys(r.sessions)) {
		out = append(out, r.sessions[id])
	}
	return out
}

// AddCombatant registers a combatant. owned marks the sessions this peer
// drives: its own player and, on the host, bots. Everything else is a
// mirror that follows replicated stage updates.
func (r *Replicator) AddCombatant(cfg SessionConfig, owned bool) *AttackSession {
	if s, ok := r.sessions[cfg.ID]; ok {
		return s
	}
	s := NewAttackSession(cfg, r.tuning)
	s.authority = owned
	s.dispatch = r
	s.wind = r.wind
	s.obs = r.obs
	if cfg.LastTicket > r.maxTicket[cfg.ID] {
		r.maxTicket[cfg.ID] = cfg.LastTicket
	}
	r.sessions[cfg.ID] = s
	if owned {
		s.PrepareNextShot()
	}
	return s
}

// RemoveCombatant drops a session and its unfired arrow. Arrows already
// in flight finish their flight.
func (r *Replicator) RemoveCombatant(id CombatantID) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	r.ammoLeft[id] = s.ammo
	delete(r.sessions, id)
	for _, a := range r.world.Actors() {
		if a.ID.Owner == id && !a.HasBeenShot {
			r.despawn(a.ID)
		}
	}
}

// ApplyRoster reconciles the session set with the host's roster
func (r *Replicator) ApplyRoster(ro Roster) {
	present := make(map[CombatantID]struct{}, len(ro.Entries))
	for _, e := range ro.Entries {
		present[e.ID] = struct{}{}
		if s, ok := r.sessions[e.ID]; ok {
			s.Name, s.Team, s.Color = e.Name, e.Team, e.Color
			if !s.authority {
				s.Position = e.Position
			}
			continue
		}
		r.AddCombatant(SessionConfig{
			ID:           e.ID,
			Name:         e.Name,
			Team:         e.Team,
			Color:        e.Color,
			Position:     e.Position,
			Mode:         ro.Mode,
			Ammo:         e.Ammo,
			InfiniteAmmo: ro.InfiniteAmmo,
		}, e.ID == r.local)
	}
	for id := range r.sessions {
		if _, ok := present[id]; !ok {
			r.RemoveCombatant(id)
		}
	}
}

// PublishRoster sends the roster to every client
func (r *Replicator) PublishRoster(ro Roster) {
	if r.role == RoleHost {
		r.send(MsgRoster, ro)
	}
}

// ApplyWind seeds the replicated wind, typically from the join handshake
func (r *Replicator) ApplyWind(w WindState) {
	if r.mirror != nil {
		r.mirror.apply(w)
	}
}

// BindPeer ties a client connection to the combatant it may speak for
func (r *Replicator) BindPeer(peer PeerID, id CombatantID) { r.peers[peer] = id }

// UnbindPeer forgets a connection and returns the combatant it spoke for
func (r *Replicator) UnbindPeer(peer PeerID) (CombatantID, bool) {
	id, ok := r.peers[peer]
	delete(r.peers, peer)
	return id, ok
}

// LastTicket returns the highest ticket the host has spawned for a
// combatant. A rejoining client resumes from it.
func (r *Replicator) LastTicket(id CombatantID) uint32 { return r.maxTicket[id] }

// LastAmmo returns what was left in a departed combatant's quiver
func (r *Replicator) LastAmmo(id CombatantID) (int, bool) {
	n, ok := r.ammoLeft[id]
	return n, ok
}

// PrepareNextShot arms a fresh arrow for an owned session
func (r *Replicator) PrepareNextShot(s *AttackSession) bool {
	if !s.authority {
		return false
	}
	if old := s.arrow; old != nil && !old.HasBeenShot {
		if r.role == RoleClient {
			r.removeActor(old.ID)
		} else {
			r.despawn(old.ID)
		}
	}
	id := s.nextTicket()
	switch r.role {
	case RoleHost:
		r.SpawnNetworkedArrow(id.Owner, id.Ticket)
	case RoleClient:
		r.send(MsgSpawnRequest, SpawnRequest{Combatant: id.Owner, Ticket: id.Ticket})
	default:
		r.OnArrowSpawned(r.payload(id, s))
	}
	return true
}

func (r *Replicator) payload(id ArrowID, s *AttackSession) SpawnPayload {
	return SpawnPayload{
		Name:     id.String(),
		Color:    s.Color,
		Team:     s.Team,
		Position: s.Position.Add(r.tuning.HoldOffset),
	}
}

// SpawnNetworkedArrow creates an arrow on the host and replicates it to
// every client. Replayed or stale requests are ignored.
func (r *Replicator) SpawnNetworkedArrow(owner CombatantID, ticket uint32) bool {
	id := ArrowID{Owner: owner, Ticket: ticket}
	if r.role != RoleHost {
		r.log.Warn("spawn outside host", "arrow", id.String())
		return false
	}
	_, span := r.tracer.Start(context.Background(), "ranged.SpawnNetworkedArrow",
		trace.WithAttributes(attribute.String("arrow", id.String())))
	defer span.End()

	if ticket <= r.maxTicket[owner] {
		r.log.Debug("ignoring duplicate spawn", "arrow", id.String())
		span.SetAttributes(attribute.Bool("duplicate", true))
		r.obs.emitArrow(ArrowEvent{Kind: ArrowDuplicateSpawn, Arrow: id})
		return false
	}
	s, ok := r.sessions[owner]
	if !ok {
		r.log.Warn("spawn for unknown combatant", "combatant", string(owner), "ticket", ticket)
		return false
	}
	r.maxTicket[owner] = ticket

	for _, a := range r.world.Actors() {
		if a.ID.Owner == owner && !a.HasBeenShot {
			r.despawn(a.ID)
		}
	}
	p := r.payload(id, s)
	r.OnArrowSpawned(p)
	r.send(MsgArrowSpawned, p)
	return true
}

// OnArrowSpawned materializes a replicated actor and links it to the
// session of the combatant named in its identity.
func (r *Replicator) OnArrowSpawned(p SpawnPayload) *ProjectileActor {
	id, err := ParseArrowID(p.Name)
	if err != nil {
		r.log.Warn("bad spawn payload", "err", err)
		return nil
	}
	if a, ok := r.world.Get(id); ok {
		return a
	}
	a := NewProjectileActor(id, p)
	a.Local = id.Owner == r.local
	r.world.Add(a)

	if s, ok := r.sessions[id.Owner]; ok {
		switch {
		case s.authority && s.armed == id:
			s.arrow = a
		case !s.authority:
			s.arrow = a
			s.armed = id
			if id.Ticket > s.shotTicket {
				s.shotTicket = id.Ticket
			}
		}
		s.poseArrow()
	}
	r.obs.emitArrow(ArrowEvent{Kind: ArrowSpawned, Arrow: id})
	return a
}

// RequestLaunchArrow fires a resolved shot. The host and offline peers
// apply it at once; clients ask the host, which rebroadcasts it verbatim.
func (r *Replicator) RequestLaunchArrow(s *AttackSession, o LaunchOrder) {
	switch r.role {
	case RoleClient:
		r.send(MsgLaunchRequest, o)
	case RoleHost:
		r.relayLaunch(o)
	default:
		r.applyLaunch(o)
	}
}

func (r *Replicator) relayLaunch(o LaunchOrder) {
	_, span := r.tracer.Start(context.Background(), "ranged.RelayLaunch",
		trace.WithAttributes(attribute.String("arrow", o.Arrow.String())))
	defer span.End()
	if !r.applyLaunch(o) {
		span.SetAttributes(attribute.Bool("dropped", true))
		return
	}
	// a client's quiver is counted here too, so a rejoin cannot refill it
	if s, ok := r.sessions[o.Arrow.Owner]; ok && !s.authority {
		s.spendArrow()
	}
	r.send(MsgLaunch, o)
}

func (r *Replicator) applyLaunch(o LaunchOrder) bool {
	a, ok := r.world.Get(o.Arrow)
	if !ok {
		r.log.Warn("launch for missing arrow", "arrow", o.Arrow.String())
		r.obs.emitArrow(ArrowEvent{Kind: ArrowLaunchDropped, Arrow: o.Arrow, Order: &o})
		return false
	}
	if !a.Launch(o, r.solver.FlightParams(o.Wind)) {
		r.log.Debug("arrow already launched", "arrow", o.Arrow.String())
		return false
	}
	if s, ok := r.sessions[o.Arrow.Owner]; ok && s.arrow == a {
		s.arrow = nil
	}
	r.obs.emitArrow(ArrowEvent{Kind: ArrowLaunched, Arrow: o.Arrow, Order: &o})
	return true
}

// StageChanged mirrors an owned session's transition to the other peers
func (r *Replicator) StageChanged(s *AttackSession) {
	r.send(MsgStage, s.snapshot())
}

func (r *Replicator) despawn(id ArrowID) {
	if !r.removeActor(id) {
		return
	}
	if r.role == RoleHost {
		r.send(MsgDespawn, Despawn{Name: id.String()})
	}
}

func (r *Replicator) removeActor(id ArrowID) bool {
	if !r.world.Remove(id) {
		return false
	}
	if s, ok := r.sessions[id.Owner]; ok && s.arrow != nil && s.arrow.ID == id {
		s.arrow = nil
	}
	r.obs.emitArrow(ArrowEvent{Kind: ArrowDespawned, Arrow: id})
	return true
}

// SyncPeer brings a client that joined mid-session up to date: every
// armed arrow and the stage of every other combatant. Arrows already in
// flight are not replayed.
func (r *Replicator) SyncPeer(peer PeerID) {
	if r.role != RoleHost || r.transport == nil {
		return
	}
	own := r.peers[peer]
	for _, a := range r.world.Actors() {
		if a.HasBeenShot {
			continue
		}
		r.sendTo(peer, MsgArrowSpawned, SpawnPayload{
			Name:     a.ID.String(),
			Color:    a.Color,
			Team:     a.Team,
			Position: a.Position,
		})
	}
	for _, s := range r.Sessions() {
		if s.ID != own {
			r.sendTo(peer, MsgStage, s.snapshot())
		}
	}
}

func (r *Replicator) sendTo(peer PeerID, t MsgType, v any) {
	frame, err := Encode(t, v)
	if err != nil {
		r.log.Error("encode failed", "msg", t.String(), "err", err)
		return
	}
	if err := r.transport.SendTo(peer, frame, r.policy.For(t)); err != nil {
		r.log.Warn("send failed", "msg", t.String(), "peer", string(peer), "err", err)
	}
}

// send routes a message by role: clients talk to the host, the host
// broadcasts. Offline peers send nothing.
func (r *Replicator) send(t MsgType, v any) {
	if r.transport == nil || r.role == RoleOffline {
		return
	}
	frame, err := Encode(t, v)
	if err != nil {
		r.log.Error("encode failed", "msg", t.String(), "err", err)
		return
	}
	d := r.policy.For(t)
	switch r.role {
	case RoleHost:
		if r.transport.PeerCount() == 0 {
			return
		}
		err = r.transport.Broadcast(frame, d)
	case RoleClient:
		err = r.transport.SendToHost(frame, d)
	}
	if err != nil {
		r.log.Warn("send failed", "msg", t.String(), "delivery", d.String(), "err", err)
	}
}

// Deliver queues an inbound frame for the next Update
func (r *Replicator) Deliver(from PeerID, frame []byte) {
	r.inMu.Lock()
	r.inbox = append(r.inbox, inbound{from: from, frame: frame})
	r.inMu.Unlock()
}

// Update runs one tick: inbound frames first, then wind, sessions and
// arrow flight.
func (r *Replicator) Update(dt float64) {
	r.drain()

	if w, ok := r.wind.(windAuthority); ok && r.role != RoleClient {
		w.Update(dt)
		if r.role == RoleHost && w.TakeChanged() {
			r.send(MsgWind, Snapshot(w))
		}
	}

	for _, s := range r.sessions {
		s.Update(dt)
	}

	settled, collected := r.world.Update(dt, r.solver)
	for _, id := range settled {
		r.obs.emitArrow(ArrowEvent{Kind: ArrowSettled, Arrow: id})
	}
	for _, id := range collected {
		r.obs.emitArrow(ArrowEvent{Kind: ArrowDespawned, Arrow: id})
	}

	r.progressAcc += dt
	if r.progressAcc >= r.progressEvery {
		r.progressAcc = 0
		for _, s := range r.sessions {
			if s.authority && s.stage == StageDrawing {
				r.send(MsgDrawProgress, s.snapshot())
			}
		}
	}
}

func (r *Replicator) drain() {
	r.inMu.Lock()
	batch := r.inbox
	r.inbox = nil
	r.inMu.Unlock()

	for _, in := range batch {
		t, raw, err := Decode(in.frame)
		if err != nil {
			r.log.Debug("dropping frame", "peer", string(in.from), "err", err)
			continue
		}
		switch r.role {
		case RoleHost:
			r.handleHost(in.from, t, raw)
		case RoleClient:
			r.handleClient(t, raw)
		}
	}
}

func (r *Replicator) handleHost(from PeerID, t MsgType, raw []byte) {
	bound, ok := r.peers[from]
	if !ok {
		r.log.Warn("frame from unbound peer", "peer", string(from), "msg", t.String())
		return
	}
	switch t {
	case MsgSpawnRequest:
		req, err := DecodeBody[SpawnRequest](raw)
		if err != nil {
			r.log.Debug("bad spawn request", "peer", string(from), "err", err)
			return
		}
		if req.Combatant != bound {
			r.reject(from, t, req.Combatant)
			return
		}
		r.SpawnNetworkedArrow(req.Combatant, req.Ticket)

	case MsgLaunchRequest:
		o, err := DecodeBody[LaunchOrder](raw)
		if err != nil {
			r.log.Debug("bad launch request", "peer", string(from), "err", err)
			return
		}
		if o.Arrow.Owner != bound {
			r.reject(from, t, o.Arrow.Owner)
			return
		}
		r.relayLaunch(o)

	case MsgStage, MsgDrawProgress:
		u, err := DecodeBody[StageUpdate](raw)
		if err != nil {
			r.log.Debug("bad stage update", "peer", string(from), "err", err)
			return
		}
		if u.Combatant != bound {
			r.reject(from, t, u.Combatant)
			return
		}
		s, ok := r.sessions[u.Combatant]
		if !ok {
			return
		}
		if s.ammo >= 0 && u.Ammo > s.ammo {
			u.Ammo = s.ammo
		}
		if s.applyRemote(u) {
			r.send(t, u)
		}

	default:
		r.log.Debug("unexpected message from client", "peer", string(from), "msg", t.String())
	}
}

func (r *Replicator) reject(from PeerID, t MsgType, claimed CombatantID) {
	r.log.Warn("peer spoke for another combatant",
		"peer", string(from), "msg", t.String(), "combatant", string(claimed))
}

func (r *Replicator) handleClient(t MsgType, raw []byte) {
	switch t {
	case MsgArrowSpawned:
		if p, err := DecodeBody[SpawnPayload](raw); err == nil {
			r.OnArrowSpawned(p)
		}
	case MsgLaunch:
		if o, err := DecodeBody[LaunchOrder](raw); err == nil {
			r.applyLaunch(o)
		}
	case MsgDespawn:
		d, err := DecodeBody[Despawn](raw)
		if err != nil {
			return
		}
		if id, err := ParseArrowID(d.Name); err == nil {
			r.removeActor(id)
		}
	case MsgStage, MsgDrawProgress:
		if u, err := DecodeBody[StageUpdate](raw); err == nil {
			if s, ok := r.sessions[u.Combatant]; ok {
				s.applyRemote(u)
			}
		}
	case MsgWind:
		if w, err := DecodeBody[WindState](raw); err == nil {
			r.mirror.apply(w)
		}
	case MsgRoster:
		if ro, err := DecodeBody[Roster](raw); err == nil {
			r.ApplyRoster(ro)
		}
	default:
		r.log.Debug("unexpected message from host", "msg", t.String())
	}
}
