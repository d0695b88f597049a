// Package brain holds the rule-based controller used by host bots and the
// headless archer client.
package brain

import (
	"math/rand"

	"quiver/ranged"
)

const (
	MinHold = 0.8 // seconds, shortest draw the archer commits to
	MaxHold = 2.8
	MinRest = 0.3 // seconds idle between shots
	MaxRest = 1.5
)

// Archer drives one owned attack session the way a player would: lock the
// nearest opponent, draw for a random hold, release, rest.
type Archer struct {
	s   *ranged.AttackSession
	aim *ranged.Aim
	rng *rand.Rand

	holdFor float64
	held    float64
	rest    float64

	// Target is the combatant aimed at on the last tick
	Target ranged.CombatantID
}

// New attaches a controller to s. The session's aim provider is replaced.
func New(s *ranged.AttackSession, seed int64) *Archer {
	a := &Archer{
		s:   s,
		aim: &ranged.Aim{Forward: ranged.Vec3{Z: 1}},
		rng: rand.New(rand.NewSource(seed)),
	}
	s.SetProviders(a.aim, nil, nil)
	return a
}

func (a *Archer) Session() *ranged.AttackSession { return a.s }

// Tick advances the controller. It reports whether a shot was released.
func (a *Archer) Tick(dt float64, others []*ranged.AttackSession) bool {
	if a.rest > 0 {
		a.rest -= dt
	}

	target, ok := Nearest(a.s, others)
	if !ok {
		a.Target = ""
		a.aim.Unlock()
		a.s.CancelDraw()
		return false
	}
	a.Target = target.ID
	a.aim.Lock(target.Position)

	switch a.s.Stage() {
	case ranged.StageIdle:
		if a.rest > 0 || a.s.Cooldown() > 0 || a.s.Armed().IsZero() {
			return false
		}
		if a.s.StartCharge() {
			a.held = 0
			a.holdFor = MinHold + a.rng.Float64()*(MaxHold-MinHold)
		}
	case ranged.StageDrawing:
		a.held += dt
		if a.held >= a.holdFor && a.s.ExecuteAttack(a.held) {
			a.rest = MinRest + a.rng.Float64()*(MaxRest-MinRest)
			return true
		}
	}
	return false
}

// Nearest picks the closest opponent of self. Team 0 has no allies.
func Nearest(self *ranged.AttackSession, others []*ranged.AttackSession) (*ranged.AttackSession, bool) {
	var best *ranged.AttackSession
	bestSq := 0.0
	for _, o := range others {
		if o.ID == self.ID || (self.Team != 0 && o.Team == self.Team) {
			continue
		}
		sq := o.Position.Sub(self.Position).LenSq()
		if best == nil || sq < bestSq {
			best, bestSq = o, sq
		}
	}
	return best, best != nil
}
