package ranged

import (
	"math"
	"math/rand"
)

// WindProvider is the read-only view of the current wind
type WindProvider interface {
	Direction() Vec3
	Speed() float64
	Enabled() bool
}

// WindState is a snapshot of the wind. It doubles as the wire form.
type WindState struct {
	Dir Vec3    `msgpack:"d" json:"dir"`
	Spd float64 `msgpack:"s" json:"speed"`
	On  bool    `msgpack:"e" json:"enabled"`
}

// WindVector returns the force-bearing wind vector, zero when disabled
func WindVector(w WindProvider) Vec3 {
	if w == nil || !w.Enabled() {
		return Vec3{}
	}
	return w.Direction().Normalize().Scale(w.Speed())
}

// Snapshot captures any provider into a WindState
func Snapshot(w WindProvider) WindState {
	if w == nil {
		return WindState{}
	}
	return WindState{Dir: w.Direction(), Spd: w.Speed(), On: w.Enabled()}
}

// StaticWind never changes
type StaticWind WindState

func (w StaticWind) Direction() Vec3 { return w.Dir.Normalize() }
func (w StaticWind) Speed() float64  { return w.Spd }
func (w StaticWind) Enabled() bool   { return w.On }

// ReplicatedWind is the client-side copy of the host's wind. Only the
// replicator writes it. The host publishes a normalized direction, which
// is returned as received.
type ReplicatedWind struct {
	state WindState
}

func (w *ReplicatedWind) Direction() Vec3 { return w.state.Dir }
func (w *ReplicatedWind) Speed() float64  { return w.state.Spd }
func (w *ReplicatedWind) Enabled() bool   { return w.state.On }

func (w *ReplicatedWind) apply(s WindState) { w.state = s }

const (
	gustPeriodMin = 4.0
	gustPeriodMax = 9.0
	maxVeerDeg    = 25.0
)

// GustWind is a host-side wind authority. It eases between randomly chosen
// gusts around a prevailing heading.
type GustWind struct {
	rng       *rand.Rand
	heading   float64 // prevailing heading, degrees
	baseSpeed float64
	enabled   bool

	cur, from, to WindState
	t, period     float64

	sent    WindState
	pending bool
}

// NewGustWind seeds a gust cycle. A zero base speed yields a disabled wind.
func NewGustWind(seed int64, heading, baseSpeed float64) *GustWind {
	g := &GustWind{
		rng:       rand.New(rand.NewSource(seed)),
		heading:   heading,
		baseSpeed: baseSpeed,
		enabled:   baseSpeed > 0,
	}
	g.cur = g.pick()
	g.from = g.cur
	g.to = g.pick()
	g.period = g.nextPeriod()
	g.pending = true
	return g
}

func (g *GustWind) pick() WindState {
	veer := (g.rng.Float64()*2 - 1) * maxVeerDeg
	dir := Vec3{X: 1}.RotateYaw(g.heading + veer)
	speed := g.baseSpeed * (0.5 + g.rng.Float64())
	return WindState{Dir: dir, Spd: speed, On: g.enabled}
}

func (g *GustWind) nextPeriod() float64 {
	return gustPeriodMin + g.rng.Float64()*(gustPeriodMax-gustPeriodMin)
}

// Update advances the gust cycle
func (g *GustWind) Update(dt float64) {
	if !g.enabled {
		return
	}
	g.t += dt
	if g.t >= g.period {
		g.t = 0
		g.from = g.to
		g.to = g.pick()
		g.period = g.nextPeriod()
	}
	k := g.t / g.period
	k = k * k * (3 - 2*k)
	g.cur = WindState{
		Dir: g.from.Dir.Scale(1 - k).Add(g.to.Dir.Scale(k)).Normalize(),
		Spd: g.from.Spd + (g.to.Spd-g.from.Spd)*k,
		On:  true,
	}
}

// TakeChanged reports whether the wind drifted far enough from the last
// replicated state to be sent again, and marks the current state as sent.
func (g *GustWind) TakeChanged() bool {
	drift := math.Abs(g.cur.Spd-g.sent.Spd) > 0.25 ||
		g.cur.Dir.Sub(g.sent.Dir).Len() > 0.05
	if !g.pending && !drift {
		return false
	}
	g.pending = false
	g.sent = g.cur
	return true
}

func (g *GustWind) Direction() Vec3 { return g.cur.Dir }
func (g *GustWind) Speed() float64  { return g.cur.Spd }
func (g *GustWind) Enabled() bool   { return g.enabled }
