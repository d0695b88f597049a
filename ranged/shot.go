package ranged

//go:generate go tool mockgen -destination=./mocks/provider_mock.go -package=mocks . TargetProvider,StatsProvider

// TargetProvider exposes the aim of a combatant: an optional hard-locked
// target position and, failing that, the camera's forward direction.
type TargetProvider interface {
	LockedTarget() (Vec3, bool)
	CameraForward() Vec3
}

// StatsProvider exposes the combatant stats the power mapping needs
type StatsProvider interface {
	Strength() float64
}

// FixedStrength is a constant StatsProvider
type FixedStrength float64

func (f FixedStrength) Strength() float64 { return float64(f) }

// Aim is a plain TargetProvider whose fields the owner updates directly
type Aim struct {
	Target  *Vec3
	Forward Vec3
}

func (a *Aim) LockedTarget() (Vec3, bool) {
	if a.Target == nil {
		return Vec3{}, false
	}
	return *a.Target, true
}

func (a *Aim) CameraForward() Vec3 { return a.Forward }

// Lock hard-locks a target position
func (a *Aim) Lock(p Vec3) { a.Target = &p }

// Unlock clears the target lock
func (a *Aim) Unlock() { a.Target = nil }

// LaunchOrder is a fully resolved shot. Peers apply it verbatim; nobody
// downstream of the firing authority recomputes it.
type LaunchOrder struct {
	Arrow    ArrowID `msgpack:"a"`
	Origin   Vec3    `msgpack:"o"`
	Velocity Vec3    `msgpack:"v"`
	Wind     Vec3    `msgpack:"w"`
	Piercing bool    `msgpack:"p"`
	Power    float64 `msgpack:"pw"`
	Accuracy float64 `msgpack:"ac"`
	Loft     float64 `msgpack:"l"`
}

// ResolveShot turns the session's locked values and aim into a launch
// order. It does not touch session state.
func (s *AttackSession) ResolveShot() (LaunchOrder, ShotResult) {
	sv := s.solver
	origin := s.Position.Add(s.tuning.HoldOffset)
	power := sv.SnapPower(s.lockedPower)
	strength := 10.0
	if s.stats != nil {
		strength = s.stats.Strength()
	}
	speed := sv.ComputeLaunchVelocity(power, strength)

	target, locked := s.CurrentTarget()
	var flat Vec3
	if locked {
		target = target.Add(Vec3{Y: s.tuning.TargetHeightOffset})
		flat = target.Sub(origin).Flatten()
	} else if s.targets != nil {
		flat = s.targets.CameraForward().Flatten()
	}
	if flat.LenSq() == 0 {
		flat = Vec3{X: 1}
	}

	var loft float64
	switch {
	case s.flat:
		loft = 0
	case locked:
		loft = sv.SolveOptimalLoftDegrees(origin, target, speed, s.tuning.Gravity)
	default:
		loft = s.tuning.ModeLoft[s.ShotMode]
	}

	deviation := sv.ComputeAccuracyDeviationDegrees(s.lockedAccuracy, s.lockedPower, locked)
	flat = flat.RotateYaw(-deviation * s.tuning.DeviationYawFactor)
	dir := Pitch(flat, loft)

	order := LaunchOrder{
		Arrow:    s.armed,
		Origin:   origin,
		Velocity: dir.Scale(speed),
		Wind:     WindVector(s.wind),
		Piercing: s.piercing,
		Power:    power,
		Accuracy: s.lockedAccuracy,
		Loft:     loft,
	}
	result := ShotResult{
		Combatant: s.ID,
		Arrow:     s.armed,
		Power:     power,
		Accuracy:  s.lockedAccuracy,
		Speed:     speed,
		Loft:      loft,
		Deviation: deviation,
	}
	return order, result
}

// resolveShot runs the Executing stage to completion within the tick
func (s *AttackSession) resolveShot() {
	order, result := s.ResolveShot()
	s.spendArrow()
	if s.dispatch != nil {
		s.dispatch.RequestLaunchArrow(s, order)
	}
	s.obs.emitShot(result)
	s.completeShot()
}

// Preview predicts the path of the shot the session would release right now
// if its draw were locked at power and accuracy.
func (s *AttackSession) Preview(power, accuracy, dt float64) []Vec3 {
	p, a := s.lockedPower, s.lockedAccuracy
	s.lockedPower, s.lockedAccuracy = power, accuracy
	order, _ := s.ResolveShot()
	s.lockedPower, s.lockedAccuracy = p, a

	var path []Vec3
	for pos := range s.solver.PreviewLaunch(order.Origin, order.Velocity, order.Wind, dt) {
		path = append(path, pos)
	}
	return path
}
