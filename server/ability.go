package main

import "quiver/ranged"

// AbilityType identifies the ability
type AbilityType int

const (
	AbilityPiercing AbilityType = 0 // shots pass through every body they cross
	AbilityFlatShot AbilityType = 1 // next shot leaves level, no loft
)

// Ability cooldowns and durations
const (
	PiercingCooldown = 15.0
	PiercingDuration = 5.0

	FlatShotCooldown = 8.0
)

// Ability tracks the state of a combatant's ability
type Ability struct {
	Type     AbilityType
	Cooldown float64 // remaining cooldown
	Active   bool    // currently active
	Timer    float64 // remaining active duration
}

// CanActivate returns true if the ability is ready
func (a *Ability) CanActivate() bool {
	return a.Cooldown <= 0 && !a.Active
}

// Activate applies the ability to the session and returns true on success
func (a *Ability) Activate(s *ranged.AttackSession) bool {
	if !a.CanActivate() {
		return false
	}
	switch a.Type {
	case AbilityPiercing:
		a.Active = true
		a.Timer = PiercingDuration
		a.Cooldown = PiercingCooldown
		s.SetPiercing(true)
	case AbilityFlatShot:
		a.Cooldown = FlatShotCooldown
		s.ForceFlat()
	}
	return true
}

// Update ticks the ability cooldowns and active timers
func (a *Ability) Update(dt float64, s *ranged.AttackSession) {
	if a.Cooldown > 0 {
		a.Cooldown -= dt
		if a.Cooldown < 0 {
			a.Cooldown = 0
		}
	}
	if a.Active {
		a.Timer -= dt
		if a.Timer <= 0 {
			a.Active = false
			a.Timer = 0
			if a.Type == AbilityPiercing {
				s.SetPiercing(false)
			}
		}
	}
}
