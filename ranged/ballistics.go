package ranged

import (
	"iter"
	"math"
)

// Solver holds the tuning used by the power/accuracy mappings
type Solver struct {
	t Tuning
}

func NewSolver(t Tuning) Solver {
	return Solver{t: t}
}

// SnapPower forgives near-perfect draws to exactly 100
func (s Solver) SnapPower(power float64) float64 {
	if math.Abs(power-100) <= s.t.PowerSnap {
		return 100
	}
	return power
}

// ComputeLaunchVelocity maps a power percentage and a strength stat to a
// launch speed. Strength 10 at power 100 yields exactly BaseVelocity.
func (s Solver) ComputeLaunchVelocity(powerPercent, strength float64) float64 {
	p := s.SnapPower(powerPercent)
	return s.t.BaseVelocity * (p / 100) * (strength / 10)
}

// ComputeAccuracyDeviationDegrees returns the signed aim error in degrees.
// A hard target lock never deviates.
func (s Solver) ComputeAccuracyDeviationDegrees(lockedAccuracy, lockedPower float64, hardLock bool) float64 {
	if hardLock {
		return 0
	}
	errDeg := lockedAccuracy - 100
	if math.Abs(errDeg) <= s.t.AccuracySnap {
		return 0
	}
	if p := s.SnapPower(lockedPower); p > 100 {
		errDeg *= 1 + (p-100)*s.t.OverdrawPenalty
	}
	return errDeg
}

// SolveOptimalLoftDegrees returns the launch angle that lands a projectile
// of the given speed on target. The flatter root is tried first, then the
// lob; each must lie within [MinLoft, MaxLoft]. Unreachable targets get
// MaxLoft, everything else that fails gets DefaultLoft.
func (s Solver) SolveOptimalLoftDegrees(start, target Vec3, speed, gravity float64) float64 {
	d := target.Sub(start)
	x := d.Horizontal()
	y := d.Y
	if x < 1e-9 || gravity == 0 {
		return s.t.DefaultLoft
	}
	v2 := speed * speed
	disc := v2*v2 - gravity*(gravity*x*x+2*y*v2)
	if disc < 0 {
		return s.t.MaxLoft
	}
	root := math.Sqrt(disc)
	low := degrees(math.Atan((v2 - root) / (gravity * x)))
	if low >= s.t.MinLoft && low <= s.t.MaxLoft {
		return low
	}
	high := degrees(math.Atan((v2 + root) / (gravity * x)))
	if high >= s.t.MinLoft && high <= s.t.MaxLoft {
		return high
	}
	return s.t.DefaultLoft
}

// FlightParams are the physical constants of one arrow's flight
type FlightParams struct {
	Wind    Vec3
	Drag    float64
	Mass    float64
	Gravity float64
	Scale   float64 // wind force scale
}

// FlightParams derives the physical constants for a given wind vector
func (s Solver) FlightParams(wind Vec3) FlightParams {
	return FlightParams{
		Wind:    wind,
		Drag:    s.t.Drag,
		Mass:    s.t.Mass,
		Gravity: s.t.Gravity,
		Scale:   s.t.WindForceScale,
	}
}

// FlightStep advances one semi-implicit Euler step. Preview and live
// flight both go through here so they agree bit-for-bit.
func FlightStep(pos, vel Vec3, p FlightParams, dt float64) (Vec3, Vec3) {
	speedSq := vel.LenSq()
	acc := vel.Normalize().Scale(-speedSq * p.Drag / p.Mass)
	acc = acc.Add(Vec3{Y: -p.Gravity})
	acc = acc.Add(p.Wind.Scale(p.Scale / p.Mass))
	vel = vel.Add(acc.Scale(dt))
	pos = pos.Add(vel.Scale(dt))
	return pos, vel
}

// TrajectoryParams describes a preview request
type TrajectoryParams struct {
	Start    Vec3
	Velocity Vec3
	Flight   FlightParams
	Dt       float64
	MaxTime  float64
}

// landed reports whether a flight has come to rest
func (s Solver) landed(start, pos, vel Vec3, elapsed float64) bool {
	if vel.Len() < s.t.MinFlightSpeed {
		return true
	}
	return elapsed >= s.t.MinFlightTime && pos.Y < start.Y+s.t.FloorOffset
}

// IntegrateTrajectory yields the predicted positions of an arrow, starting
// with its launch point. Each range over the sequence recomputes from
// scratch.
func (s Solver) IntegrateTrajectory(p TrajectoryParams) iter.Seq[Vec3] {
	return func(yield func(Vec3) bool) {
		if p.Dt <= 0 {
			return
		}
		pos, vel := p.Start, p.Velocity
		if !yield(pos) {
			return
		}
		for elapsed := 0.0; elapsed < p.MaxTime; {
			pos, vel = FlightStep(pos, vel, p.Flight, p.Dt)
			elapsed += p.Dt
			if !yield(pos) {
				return
			}
			if s.landed(p.Start, pos, vel, elapsed) {
				return
			}
		}
	}
}

// PreviewLaunch is IntegrateTrajectory with the tuning's flight constants
func (s Solver) PreviewLaunch(start, velocity, wind Vec3, dt float64) iter.Seq[Vec3] {
	return s.IntegrateTrajectory(TrajectoryParams{
		Start:    start,
		Velocity: velocity,
		Flight:   s.FlightParams(wind),
		Dt:       dt,
		MaxTime:  s.t.MaxFlightTime,
	})
}
