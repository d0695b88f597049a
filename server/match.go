package main

import (
	"math/rand"

	"quiver/ranged"
)

// TeamID constants
const (
	TeamNone = 0
	TeamRed  = 1
	TeamBlue = 2
)

var teamColors = [...]ranged.Color{
	TeamNone: {R: 220, G: 220, B: 220},
	TeamRed:  {R: 210, G: 60, B: 50},
	TeamBlue: {R: 50, G: 90, B: 210},
}

// MatchConfig holds settings for a match
type MatchConfig struct {
	Mode         ranged.CombatMode
	InfiniteAmmo bool
	Ammo         int // starting quiver when ammo is tracked
	MaxPlayers   int // humans only
	Bots         int
	TeamCount    int
	ArenaSize    float64 // side of the square arena, metres

	WindSeed    int64
	WindHeading float64 // degrees
	WindSpeed   float64
}

// DefaultConfig returns default config for the given mode
func DefaultConfig(mode ranged.CombatMode) MatchConfig {
	switch mode {
	case ranged.ModeDuel:
		return MatchConfig{
			Mode:        ranged.ModeDuel,
			Ammo:        20,
			MaxPlayers:  8,
			TeamCount:   2,
			ArenaSize:   60,
			WindHeading: 90,
			WindSpeed:   4,
		}
	default:
		return MatchConfig{
			Mode:         ranged.ModeFreeRoam,
			InfiniteAmmo: true,
			Ammo:         -1,
			MaxPlayers:   20,
			TeamCount:    0,
			ArenaSize:    120,
			WindHeading:  45,
			WindSpeed:    6,
		}
	}
}

// IsTeamMode returns whether the match splits combatants into teams
func (c MatchConfig) IsTeamMode() bool {
	return c.TeamCount > 1
}

// MatchState holds the per-match team bookkeeping
type MatchState struct {
	Config MatchConfig
	rng    *rand.Rand
}

// NewMatchState creates a new match state for the given config
func NewMatchState(config MatchConfig, seed int64) MatchState {
	return MatchState{Config: config, rng: rand.New(rand.NewSource(seed))}
}

// AssignTeam auto-balances a new combatant to the smaller team
func (ms *MatchState) AssignTeam(sessions []*ranged.AttackSession) int {
	if !ms.Config.IsTeamMode() {
		return TeamNone
	}
	redCount := 0
	blueCount := 0
	for _, s := range sessions {
		if s.Team == TeamRed {
			redCount++
		} else if s.Team == TeamBlue {
			blueCount++
		}
	}
	if redCount <= blueCount {
		return TeamRed
	}
	return TeamBlue
}

// SpawnPosition returns a ground position for a combatant of the team. Team
// modes spawn at opposite ends of the X axis.
func (ms *MatchState) SpawnPosition(team int) ranged.Vec3 {
	half := ms.Config.ArenaSize / 2
	z := (ms.rng.Float64() - 0.5) * half
	if ms.Config.IsTeamMode() {
		switch team {
		case TeamRed:
			return ranged.Vec3{X: -half + ms.rng.Float64()*half*0.3, Z: z}
		case TeamBlue:
			return ranged.Vec3{X: half - ms.rng.Float64()*half*0.3, Z: z}
		}
	}
	return ranged.Vec3{X: (ms.rng.Float64() - 0.5) * ms.Config.ArenaSize, Z: (ms.rng.Float64() - 0.5) * ms.Config.ArenaSize}
}

// TeamColor returns the tint for a team
func TeamColor(team int) ranged.Color {
	if team < 0 || team >= len(teamColors) {
		return teamColors[TeamNone]
	}
	return teamColors[team]
}
