package ranged

import (
	"testing"

	"pgregory.net/rapid"
)

func newTestSession(mode CombatMode, ammo int) *AttackSession {
	return NewAttackSession(SessionConfig{
		ID:   "p1",
		Name: "Archer",
		Mode: mode,
		Ammo: ammo,
	}, DefaultTuning())
}

// drawAndRelease runs a full shot and waits out the cooldown
func drawAndRelease(t *testing.T, s *AttackSession, hold float64) {
	t.Helper()
	if !s.StartCharge() {
		t.Fatalf("StartCharge refused in stage %s", s.Stage())
	}
	if !s.ExecuteAttack(hold) {
		t.Fatalf("ExecuteAttack refused in stage %s", s.Stage())
	}
	s.Update(s.tuning.Cooldown)
}

func TestPowerTierBreakpoints(t *testing.T) {
	tests := []struct {
		mode CombatMode
		hold float64
		want float64
	}{
		{ModeDuel, 0, 60},
		{ModeDuel, 0.74, 60},
		{ModeDuel, 0.75, 85},
		{ModeDuel, 1.49, 85},
		{ModeDuel, 1.5, 100},
		{ModeDuel, 2.49, 100},
		{ModeDuel, 2.5, 120},
		{ModeDuel, 30, 120},
		{ModeFreeRoam, 0.2, 70},
		{ModeFreeRoam, 0.75, 90},
		{ModeFreeRoam, 1.5, 100},
		{ModeFreeRoam, 2.5, 110},
	}
	for _, tt := range tests {
		s := newTestSession(tt.mode, -1)
		s.StartCharge()
		s.ExecuteAttack(tt.hold)
		if got := s.LockedPower(); got != tt.want {
			t.Errorf("mode %d hold %v: locked power %v, want %v", tt.mode, tt.hold, got, tt.want)
		}
	}
}

func TestPowerTierBounds(t *testing.T) {
	tu := DefaultTuning()
	rapid.Check(t, func(t *rapid.T) {
		mode := CombatMode(rapid.IntRange(0, 1).Draw(t, "mode"))
		tiers := tu.FreeRoamTiers
		if mode == ModeDuel {
			tiers = tu.DuelTiers
		}
		low := rapid.Float64Range(0, tiers[1].MinHold).Filter(func(h float64) bool {
			return h < tiers[1].MinHold
		}).Draw(t, "low")
		high := rapid.Float64Range(tiers[len(tiers)-1].MinHold, 60).Draw(t, "high")

		if got := tu.TierPower(mode, low); got != tiers[0].Power {
			t.Fatalf("hold %v: power %v, want lowest tier %v", low, got, tiers[0].Power)
		}
		if got := tu.TierPower(mode, high); got != tiers[len(tiers)-1].Power {
			t.Fatalf("hold %v: power %v, want top tier %v", high, got, tiers[len(tiers)-1].Power)
		}
	})
}

func TestShotCycleStages(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	obs := &Observers{}
	var seen []StageChange
	obs.OnStageChange(func(c StageChange) { seen = append(seen, c) })
	s.SetObservers(obs)

	s.StartCharge()
	s.ExecuteAttack(1)

	want := []StageChange{
		{"p1", StageIdle, StageDrawing},
		{"p1", StageDrawing, StageExecuting},
		{"p1", StageExecuting, StageShotComplete},
		{"p1", StageShotComplete, StageIdle},
	}
	if len(seen) != len(want) {
		t.Fatalf("saw %d transitions, want %d: %v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
	if s.Stage() != StageIdle {
		t.Errorf("stage after shot = %s, want idle", s.Stage())
	}
	if s.Armed().IsZero() {
		t.Error("next arrow was not armed after the shot")
	}
}

func TestStartChargeRefusedDuringCooldown(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.StartCharge()
	s.ExecuteAttack(1)

	if s.Cooldown() != s.tuning.Cooldown {
		t.Fatalf("cooldown = %v, want %v", s.Cooldown(), s.tuning.Cooldown)
	}
	if s.StartCharge() {
		t.Fatal("StartCharge accepted while cooling down")
	}
	s.Update(0.5)
	if s.StartCharge() {
		t.Fatal("StartCharge accepted with cooldown remaining")
	}
	s.Update(0.75)
	if s.Cooldown() != 0 {
		t.Errorf("cooldown = %v, want clamped to 0", s.Cooldown())
	}
	if !s.StartCharge() {
		t.Error("StartCharge refused after cooldown elapsed")
	}
}

func TestStartChargeResetsLockedValues(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	drawAndRelease(t, s, 2)
	if s.LockedPower() == unset {
		t.Fatal("power not locked by the shot")
	}
	s.StartCharge()
	if s.LockedPower() != unset || s.LockedAccuracy() != unset {
		t.Errorf("locked values %v/%v survived a new draw", s.LockedPower(), s.LockedAccuracy())
	}
}

func TestExecuteOutsideDrawingIsNoop(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.PrepareNextShot()
	ticket := s.ShotTicket()

	if s.ExecuteAttack(1) {
		t.Error("ExecuteAttack from idle reported success")
	}
	if s.Stage() != StageIdle || s.ShotTicket() != ticket || s.Cooldown() != 0 {
		t.Error("ExecuteAttack from idle changed the session")
	}

	drawAndRelease(t, s, 1)
	seq := s.Seq()
	s.ExecuteAttack(1)
	if s.Seq() != seq {
		t.Error("repeated release changed the stage")
	}
}

func TestCancelDrawIdempotent(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	s.CancelDraw()
	if s.Stage() != StageIdle || s.Seq() != 0 {
		t.Fatal("CancelDraw from idle changed the session")
	}

	s.StartCharge()
	s.Update(0.4)
	s.CancelDraw()
	once := s.snapshot()
	s.CancelDraw()
	if twice := s.snapshot(); twice != once {
		t.Errorf("second CancelDraw changed state: %+v -> %+v", once, twice)
	}
	if s.Stage() != StageIdle || s.LockedPower() != unset {
		t.Errorf("after cancel: stage %s power %v", s.Stage(), s.LockedPower())
	}
	if s.Cooldown() != 0 {
		t.Error("cancelling a draw started the cooldown")
	}
}

func TestQuickFire(t *testing.T) {
	s := newTestSession(ModeFreeRoam, -1)
	var results []ShotResult
	obs := &Observers{}
	obs.OnShotResult(func(r ShotResult) { results = append(results, r) })
	s.SetObservers(obs)

	if !s.QuickFire(0) {
		t.Fatal("QuickFire from idle refused")
	}
	if s.Stage() != StageDrawing {
		t.Fatalf("stage = %s, want drawing during the forced draw", s.Stage())
	}
	s.Update(0.2)
	if len(results) != 0 {
		t.Fatal("quick shot released before the forced draw elapsed")
	}
	s.Update(0.2)
	if len(results) != 1 {
		t.Fatalf("got %d shots, want 1", len(results))
	}
	if results[0].Power != s.tuning.QuickPower || results[0].Accuracy != s.tuning.QuickAccuracy {
		t.Errorf("quick shot locked %v/%v", results[0].Power, results[0].Accuracy)
	}
}

func TestQuickFireAfterLongHoldReleasesAtOnce(t *testing.T) {
	s := newTestSession(ModeFreeRoam, -1)
	s.StartCharge()
	s.Update(0.5)
	if !s.QuickFire(0.5) {
		t.Fatal("QuickFire refused")
	}
	if s.Stage() != StageIdle || s.Cooldown() == 0 {
		t.Errorf("expected an immediate shot, stage %s cooldown %v", s.Stage(), s.Cooldown())
	}
}

func TestOutOfAmmoPrompt(t *testing.T) {
	s := newTestSession(ModeDuel, 1)
	var prompts []Prompt
	obs := &Observers{}
	obs.OnPrompt(func(p Prompt) { prompts = append(prompts, p) })
	s.SetObservers(obs)

	drawAndRelease(t, s, 1)
	if s.Ammo() != 0 {
		t.Fatalf("ammo = %d, want 0", s.Ammo())
	}
	if len(prompts) != 1 || prompts[0].Kind != PromptOutOfAmmo {
		t.Fatalf("prompts after last arrow = %+v", prompts)
	}
	if !s.Armed().IsZero() {
		t.Error("an arrow was armed with an empty quiver")
	}
	if s.StartCharge() {
		t.Error("StartCharge accepted with an empty quiver")
	}
	if len(prompts) != 2 {
		t.Errorf("refused draw did not prompt again")
	}

	s.Restock(2)
	if s.Armed().IsZero() {
		t.Error("restock did not re-arm")
	}
	if !s.StartCharge() {
		t.Error("StartCharge refused after restock")
	}
}

func TestInfiniteAmmoNeverDepletes(t *testing.T) {
	s := NewAttackSession(SessionConfig{ID: "p1", Ammo: 1, InfiniteAmmo: true}, DefaultTuning())
	for range 3 {
		drawAndRelease(t, s, 1)
	}
	if s.Ammo() != 1 {
		t.Errorf("ammo = %d, want untouched 1", s.Ammo())
	}
}

func TestShotTicketStrictlyIncreases(t *testing.T) {
	s := newTestSession(ModeDuel, -1)
	var arrows []ArrowID
	obs := &Observers{}
	obs.OnShotResult(func(r ShotResult) { arrows = append(arrows, r.Arrow) })
	s.SetObservers(obs)

	for range 5 {
		drawAndRelease(t, s, 1)
	}
	for i := 1; i < len(arrows); i++ {
		if arrows[i].Ticket <= arrows[i-1].Ticket {
			t.Errorf("ticket %d after %d", arrows[i].Ticket, arrows[i-1].Ticket)
		}
		if arrows[i].String() == arrows[i-1].String() {
			t.Errorf("identity %s reused", arrows[i])
		}
	}
}

func TestAimingStageNeverEntered(t *testing.T) {
	s := newTestSession(ModeDuel, 3)
	obs := &Observers{}
	obs.OnStageChange(func(c StageChange) {
		if c.To == StageAiming {
			t.Errorf("entered the aiming stage from %s", c.From)
		}
	})
	s.SetObservers(obs)

	s.StartCharge()
	s.CancelDraw()
	for range 4 {
		s.QuickFire(0)
		s.Update(1)
		s.StartCharge()
		s.ExecuteAttack(3)
		s.Update(1)
	}
}

func TestMirrorAppliesOrderedUpdates(t *testing.T) {
	m := newTestSession(ModeDuel, -1)
	m.authority = false

	if !m.applyRemote(StageUpdate{Combatant: "p1", Seq: 2, Stage: StageDrawing, Timer: 0.3, Ticket: 4, Ammo: 12}) {
		t.Fatal("fresh update rejected")
	}
	if m.applyRemote(StageUpdate{Combatant: "p1", Seq: 1, Stage: StageIdle}) {
		t.Error("stale update applied")
	}
	if m.Stage() != StageDrawing || m.ShotTicket() != 4 || m.Ammo() != 12 {
		t.Errorf("mirror at %s ticket %d ammo %d", m.Stage(), m.ShotTicket(), m.Ammo())
	}

	m.applyRemote(StageUpdate{Combatant: "p1", Seq: 2, Stage: StageDrawing, Timer: 0.9})
	if m.Timer() != 0.9 || m.Stage() != StageDrawing {
		t.Errorf("progress update: timer %v stage %s", m.Timer(), m.Stage())
	}

	if m.StartCharge() || m.ExecuteAttack(1) || m.PrepareNextShot() {
		t.Error("mirror accepted a local command")
	}
}
