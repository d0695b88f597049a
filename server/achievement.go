package main

// Accolade definitions, earned within a match
type AccoladeDef struct {
	ID          string
	Name        string
	Description string
}

const (
	LongShotDistance = 40.0 // metres
	StreakLength     = 5
)

var Accolades = []AccoladeDef{
	{"on_target", "On Target", "Land your first hit"},
	{"sharpshooter", "Sharpshooter", "Hit with 5 arrows in a row"},
	{"long_shot", "Long Shot", "Hit an opponent 40 m away"},
	{"skewer", "Skewer", "Hit two opponents with one arrow"},
}

// HitInfo describes the hit that was just scored
type HitInfo struct {
	Distance  float64 // horizontal, shooter to target
	ArrowHits int     // opponents this arrow has hit so far
}

// CheckAccolades records a hit against the player and returns the
// accolades it newly earned.
func CheckAccolades(p *Player, hit HitInfo) []AccoladeDef {
	if p.Accolades == nil {
		p.Accolades = make(map[string]bool)
	}

	var unlocked []AccoladeDef

	check := func(id string) bool {
		if p.Accolades[id] {
			return false
		}
		switch id {
		case "on_target":
			return p.Hits >= 1
		case "sharpshooter":
			return p.Streak >= StreakLength
		case "long_shot":
			return hit.Distance >= LongShotDistance
		case "skewer":
			return hit.ArrowHits >= 2
		}
		return false
	}

	for _, def := range Accolades {
		if check(def.ID) {
			p.Accolades[def.ID] = true
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
