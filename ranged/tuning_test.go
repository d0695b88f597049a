package ranged

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuningValid(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTuningOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	data := `{"power_snap": 2, "base_velocity": 60, "duel_tiers": [{"min_hold": 0, "power": 50}, {"min_hold": 1, "power": 100}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	tu, err := LoadTuning(path)
	if err != nil {
		t.Fatal(err)
	}
	if tu.PowerSnap != 2 || tu.BaseVelocity != 60 {
		t.Errorf("overrides not applied: snap %v velocity %v", tu.PowerSnap, tu.BaseVelocity)
	}
	if tu.Gravity != DefaultTuning().Gravity {
		t.Errorf("gravity = %v, want default", tu.Gravity)
	}
	if got := tu.TierPower(ModeDuel, 1); got != 100 {
		t.Errorf("custom tier power = %v", got)
	}
}

func TestLoadTuningErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTuning(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file accepted")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"free_roam_tiers": [{"min_hold": 1, "power": 50}, {"min_hold": 1, "power": 60}]}`), 0o644)
	if _, err := LoadTuning(bad); err == nil {
		t.Error("non-increasing tiers accepted")
	}

	garbage := filepath.Join(dir, "garbage.json")
	os.WriteFile(garbage, []byte(`{`), 0o644)
	if _, err := LoadTuning(garbage); err == nil {
		t.Error("malformed json accepted")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Tuning)
	}{
		{"negative snap", func(t *Tuning) { t.PowerSnap = -1 }},
		{"zero mass", func(t *Tuning) { t.Mass = 0 }},
		{"zero gravity", func(t *Tuning) { t.Gravity = 0 }},
		{"inverted loft band", func(t *Tuning) { t.MinLoft = 50 }},
		{"no tiers", func(t *Tuning) { t.DuelTiers = nil }},
	}
	for _, tt := range tests {
		tu := DefaultTuning()
		tt.mod(&tu)
		if err := tu.Validate(); err == nil {
			t.Errorf("%s: accepted", tt.name)
		}
	}
}

func TestTuningHash(t *testing.T) {
	a, b := DefaultTuning(), DefaultTuning()
	if a.Hash() != b.Hash() {
		t.Fatal("identical tunings hash differently")
	}
	b.Gravity += 0.01
	if a.Hash() == b.Hash() {
		t.Error("changed gravity kept the same hash")
	}
}
