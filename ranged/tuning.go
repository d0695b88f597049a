package ranged

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// PowerTier maps a hold duration to a locked power value. A hold of
// MinHold seconds or more (and below the next tier) locks Power.
type PowerTier struct {
	MinHold float64 `json:"min_hold"`
	Power   float64 `json:"power"`
}

// Tuning holds every gameplay constant of the ranged core. Peers of one
// session must run identical tunings or their simulations diverge.
type Tuning struct {
	// Power/accuracy forgiveness bands around "perfect"
	PowerSnap    float64 `json:"power_snap"`
	AccuracySnap float64 `json:"accuracy_snap"`
	// Over-draw penalty per power point above 100
	OverdrawPenalty float64 `json:"overdraw_penalty"`

	DuelTiers     []PowerTier `json:"duel_tiers"`
	FreeRoamTiers []PowerTier `json:"free_roam_tiers"`

	// Accuracy locked when releasing without a target
	DefaultAccuracy float64 `json:"default_accuracy"`

	QuickDrawTime float64 `json:"quick_draw_time"`
	QuickPower    float64 `json:"quick_power"`
	QuickAccuracy float64 `json:"quick_accuracy"`

	Cooldown float64 `json:"cooldown"`

	BaseVelocity float64 `json:"base_velocity"`
	Gravity      float64 `json:"gravity"`
	Drag         float64 `json:"drag"`
	Mass         float64 `json:"mass"`

	WindForceScale float64 `json:"wind_force_scale"`
	MinFlightSpeed float64 `json:"min_flight_speed"`
	MinFlightTime  float64 `json:"min_flight_time"`
	FloorOffset    float64 `json:"floor_offset"`
	MaxFlightTime  float64 `json:"max_flight_time"`
	SettleLinger   float64 `json:"settle_linger"`

	MinLoft     float64              `json:"min_loft"`
	MaxLoft     float64              `json:"max_loft"`
	DefaultLoft float64              `json:"default_loft"`
	ModeLoft    map[ShotMode]float64 `json:"mode_loft"`

	DeviationYawFactor float64 `json:"deviation_yaw_factor"`
	TargetHeightOffset float64 `json:"target_height_offset"`
	HoldOffset         Vec3    `json:"hold_offset"`
}

// DefaultTuning returns the shipped gameplay values
func DefaultTuning() Tuning {
	return Tuning{
		PowerSnap:       5,
		AccuracySnap:    5,
		OverdrawPenalty: 0.15,
		DuelTiers: []PowerTier{
			{MinHold: 0, Power: 60},
			{MinHold: 0.75, Power: 85},
			{MinHold: 1.5, Power: 100},
			{MinHold: 2.5, Power: 120},
		},
		FreeRoamTiers: []PowerTier{
			{MinHold: 0, Power: 70},
			{MinHold: 0.75, Power: 90},
			{MinHold: 1.5, Power: 100},
			{MinHold: 2.5, Power: 110},
		},
		DefaultAccuracy: 90,
		QuickDrawTime:   0.35,
		QuickPower:      85,
		QuickAccuracy:   92,
		Cooldown:        1.0,
		BaseVelocity:    45,
		Gravity:         9.81,
		Drag:            0.0004,
		Mass:            0.05,
		WindForceScale:  0.02,
		MinFlightSpeed:  0.5,
		MinFlightTime:   0.1,
		FloorOffset:     -10,
		MaxFlightTime:   8,
		SettleLinger:    3,
		MinLoft:         -5,
		MaxLoft:         45,
		DefaultLoft:     10,
		ModeLoft: map[ShotMode]float64{
			ShotStandard: 5,
			ShotLong:     15,
			ShotMax:      30,
		},
		DeviationYawFactor: 0.75,
		TargetHeightOffset: 1.2,
		HoldOffset:         Vec3{Y: 1.5},
	}
}

// LoadTuning overlays a JSON file onto DefaultTuning. Fields absent from
// the file keep their defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects tunings the solver or state machine cannot run with
func (t Tuning) Validate() error {
	if t.PowerSnap < 0 || t.AccuracySnap < 0 {
		return errors.New("tuning: snap bands must be non-negative")
	}
	if t.Mass <= 0 {
		return errors.New("tuning: mass must be positive")
	}
	if t.Gravity <= 0 || t.BaseVelocity <= 0 {
		return errors.New("tuning: gravity and base velocity must be positive")
	}
	if t.MinLoft >= t.MaxLoft {
		return errors.New("tuning: min loft must be below max loft")
	}
	for name, tiers := range map[string][]PowerTier{"duel": t.DuelTiers, "free_roam": t.FreeRoamTiers} {
		if len(tiers) == 0 {
			return fmt.Errorf("tuning: %s tiers empty", name)
		}
		for i := 1; i < len(tiers); i++ {
			if tiers[i].MinHold <= tiers[i-1].MinHold {
				return fmt.Errorf("tuning: %s tiers must have increasing min_hold", name)
			}
		}
	}
	return nil
}

// Hash fingerprints the tuning so peers can detect a mismatch at join
func (t Tuning) Hash() uint64 {
	data, err := json.Marshal(t)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// TierPower returns the locked power for a hold duration. Breakpoints are
// closed on the upper end: a hold of exactly MinHold lands in that tier.
func (t Tuning) TierPower(mode CombatMode, holdTime float64) float64 {
	tiers := t.FreeRoamTiers
	if mode == ModeDuel {
		tiers = t.DuelTiers
	}
	power := tiers[0].Power
	for _, tier := range tiers {
		if holdTime >= tier.MinHold {
			power = tier.Power
		}
	}
	return power
}
