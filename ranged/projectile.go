package ranged

// Color is an RGB team/owner tint carried in the spawn payload
type Color struct {
	R uint8 `msgpack:"r" json:"r"`
	G uint8 `msgpack:"g" json:"g"`
	B uint8 `msgpack:"b" json:"b"`
}

// ProjectileActor is one arrow on this peer. It is created armed (held,
// unfired), launched exactly once, then flies until it settles.
type ProjectileActor struct {
	ID    ArrowID
	Color Color
	Team  int

	Position Vec3
	Facing   Vec3
	Velocity Vec3
	Wind     Vec3
	Piercing bool

	HasBeenShot bool
	Settled     bool
	Visible     bool
	// Local is set when the owner is this peer's own combatant
	Local bool

	flight  FlightParams
	start   Vec3
	elapsed float64
	linger  float64
}

// NewProjectileActor creates an armed arrow from a spawn payload
func NewProjectileActor(id ArrowID, p SpawnPayload) *ProjectileActor {
	return &ProjectileActor{
		ID:       id,
		Color:    p.Color,
		Team:     p.Team,
		Position: p.Position,
		Facing:   Vec3{X: 1},
	}
}

// Launch applies a launch order. It succeeds once; later calls are ignored
// so a replayed broadcast cannot re-fire a flying arrow.
func (a *ProjectileActor) Launch(o LaunchOrder, flight FlightParams) bool {
	if a.HasBeenShot {
		return false
	}
	a.HasBeenShot = true
	a.Visible = true
	a.Position = o.Origin
	a.start = o.Origin
	a.Velocity = o.Velocity
	a.Facing = o.Velocity.Normalize()
	a.Wind = o.Wind
	a.Piercing = o.Piercing
	a.flight = flight
	a.flight.Wind = o.Wind
	return true
}

// Hold poses an unfired arrow at the owner's hands
func (a *ProjectileActor) Hold(pos, facing Vec3) {
	if a.HasBeenShot {
		return
	}
	a.Position = pos
	if facing.LenSq() > 0 {
		a.Facing = facing.Normalize()
	}
}

// Update moves a launched arrow one tick. It returns true on the tick the
// arrow comes to rest.
func (a *ProjectileActor) Update(dt float64, s Solver) bool {
	if !a.HasBeenShot {
		return false
	}
	if a.Settled {
		a.linger += dt
		return false
	}
	a.Position, a.Velocity = FlightStep(a.Position, a.Velocity, a.flight, dt)
	a.elapsed += dt
	if a.Velocity.LenSq() > 0 {
		a.Facing = a.Velocity.Normalize()
	}
	if s.landed(a.start, a.Position, a.Velocity, a.elapsed) || a.elapsed >= s.t.MaxFlightTime {
		a.Settled = true
		a.Velocity = Vec3{}
		return true
	}
	return false
}

// Expired reports whether a settled arrow has lingered long enough to collect
func (a *ProjectileActor) Expired(s Solver) bool {
	return a.Settled && a.linger >= s.t.SettleLinger
}

// World is the set of arrow actors present on this peer
type World struct {
	actors map[ArrowID]*ProjectileActor
}

func NewWorld() *World {
	return &World{actors: make(map[ArrowID]*ProjectileActor)}
}

func (w *World) Add(a *ProjectileActor) {
	w.actors[a.ID] = a
}

func (w *World) Get(id ArrowID) (*ProjectileActor, bool) {
	a, ok := w.actors[id]
	return a, ok
}

func (w *World) Remove(id ArrowID) bool {
	if _, ok := w.actors[id]; !ok {
		return false
	}
	delete(w.actors, id)
	return true
}

func (w *World) Count() int {
	return len(w.actors)
}

// Actors returns the live actors in no particular order
func (w *World) Actors() []*ProjectileActor {
	out := make([]*ProjectileActor, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	return out
}

// Update flies every launched arrow, returning those that settled this
// tick and those collected after lingering.
func (w *World) Update(dt float64, s Solver) (settled, collected []ArrowID) {
	for id, a := range w.actors {
		if a.Update(dt, s) {
			settled = append(settled, id)
		}
		if a.Expired(s) {
			collected = append(collected, id)
			delete(w.actors, id)
		}
	}
	return settled, collected
}
