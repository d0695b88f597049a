package ranged

import (
	"math"
	"testing"
)

func captureShots(s *AttackSession) *[]ShotResult {
	var out []ShotResult
	obs := &Observers{}
	obs.OnShotResult(func(r ShotResult) { out = append(out, r) })
	s.SetObservers(obs)
	return &out
}

func TestScenarioPerfectDrawNoTarget(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.SetProviders(&Aim{Forward: Vec3{Z: 1}}, FixedStrength(10), StaticWind{})
	shots := captureShots(s)

	s.StartCharge()
	s.ExecuteAttack(1.5)

	if len(*shots) != 1 {
		t.Fatalf("got %d shots", len(*shots))
	}
	r := (*shots)[0]
	if r.Speed != s.tuning.BaseVelocity {
		t.Errorf("speed = %v, want base velocity %v", r.Speed, s.tuning.BaseVelocity)
	}
	if r.Loft != s.tuning.ModeLoft[ShotStandard] {
		t.Errorf("loft = %v, want standard loft %v", r.Loft, s.tuning.ModeLoft[ShotStandard])
	}
}

func TestShotModeSelectsLoft(t *testing.T) {
	tu := DefaultTuning()
	for _, mode := range []ShotMode{ShotStandard, ShotLong, ShotMax} {
		s := newTestSession(ModeDuel, -1)
		s.ShotMode = mode
		shots := captureShots(s)
		s.StartCharge()
		s.ExecuteAttack(1.5)
		if got := (*shots)[0].Loft; got != tu.ModeLoft[mode] {
			t.Errorf("mode %d: loft %v, want %v", mode, got, tu.ModeLoft[mode])
		}
	}
}

func TestLockedShotUsesSolverAndNeverDeviates(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	origin := s.Position.Add(s.tuning.HoldOffset)
	// aim point level with the bow, 20m out
	target := Vec3{X: 20, Y: origin.Y - s.tuning.TargetHeightOffset}
	aim := &Aim{}
	aim.Lock(target)
	s.SetProviders(aim, nil, nil)

	s.StartCharge()
	s.lockedPower = 100
	s.lockedAccuracy = 12
	order, r := s.ResolveShot()

	if r.Deviation != 0 {
		t.Errorf("locked shot deviated by %v", r.Deviation)
	}
	want := s.solver.SolveOptimalLoftDegrees(origin, target.Add(Vec3{Y: s.tuning.TargetHeightOffset}), r.Speed, s.tuning.Gravity)
	if r.Loft != want {
		t.Errorf("loft = %v, want solver root %v", r.Loft, want)
	}
	if order.Velocity.Z != 0 || order.Velocity.X <= 0 {
		t.Errorf("locked shot not aimed at target: %v", order.Velocity)
	}
}

func TestForcedFlatShot(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	aim := &Aim{}
	aim.Lock(Vec3{X: 30, Y: 5})
	s.SetProviders(aim, nil, nil)
	shots := captureShots(s)

	s.ForceFlat()
	s.StartCharge()
	s.ExecuteAttack(1.5)
	if (*shots)[0].Loft != 0 {
		t.Errorf("flat shot loft = %v", (*shots)[0].Loft)
	}

	s.Update(s.tuning.Cooldown)
	s.StartCharge()
	s.ExecuteAttack(1.5)
	if (*shots)[1].Loft == 0 {
		t.Error("flat flag leaked into the next shot")
	}
}

func TestDeviationRotatesAroundVertical(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.SetProviders(&Aim{Forward: Vec3{X: 1}}, nil, nil)
	s.StartCharge()
	s.lockedPower = 100
	s.lockedAccuracy = 80
	order, r := s.ResolveShot()

	if r.Deviation != -20 {
		t.Fatalf("deviation = %v, want -20", r.Deviation)
	}
	h := order.Velocity.Flatten()
	got := degrees(math.Atan2(-h.Z, h.X))
	want := -r.Deviation * s.tuning.DeviationYawFactor
	if !approx(got, want, 1e-9) {
		t.Errorf("yaw = %v°, want %v°", got, want)
	}
	if !approx(order.Velocity.Len(), r.Speed, 1e-9) {
		t.Errorf("|v| = %v, want %v", order.Velocity.Len(), r.Speed)
	}
}

func TestShotCapturesWind(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.SetProviders(nil, nil, StaticWind{Dir: Vec3{Z: 2}, Spd: 6, On: true})
	s.StartCharge()
	s.lockedPower, s.lockedAccuracy = 100, 100
	order, _ := s.ResolveShot()
	if order.Wind != (Vec3{Z: 6}) {
		t.Errorf("order wind = %v", order.Wind)
	}

	s.SetProviders(nil, nil, StaticWind{Dir: Vec3{Z: 1}, Spd: 6})
	if order, _ := s.ResolveShot(); order.Wind != (Vec3{}) {
		t.Errorf("disabled wind leaked into the shot: %v", order.Wind)
	}
}

func TestStrengthScalesSpeed(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.SetProviders(nil, FixedStrength(15), nil)
	shots := captureShots(s)
	s.StartCharge()
	s.ExecuteAttack(1.5)
	if got, want := (*shots)[0].Speed, s.tuning.BaseVelocity*1.5; !approx(got, want, 1e-9) {
		t.Errorf("speed = %v, want %v", got, want)
	}
}

func TestPreviewPredictsOfflineShot(t *testing.T) {
	r := NewReplicator(RoleOffline, "p1", DefaultTuning())
	s := r.AddCombatant(SessionConfig{ID: "p1", Ammo: -1}, true)
	s.SetProviders(&Aim{Forward: Vec3{X: 1, Z: 1}}, nil, StaticWind{Dir: Vec3{X: -1}, Spd: 4, On: true})

	dt := 1.0 / 60
	s.StartCharge()
	path := s.Preview(100, s.tuning.DefaultAccuracy, dt)
	id := s.Armed()
	s.ExecuteAttack(1.5)

	a, ok := r.World().Get(id)
	if !ok || !a.HasBeenShot {
		t.Fatal("offline shot did not launch its arrow")
	}
	for i := 1; i < len(path); i++ {
		r.Update(dt)
		if a.Position != path[i] {
			t.Fatalf("step %d: arrow at %v, preview said %v", i, a.Position, path[i])
		}
	}
	if !a.Settled {
		t.Error("arrow still flying after the previewed path ended")
	}
}
