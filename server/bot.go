package main

import (
	"math/rand"

	"quiver/brain"
	"quiver/ranged"
)

// Bot name pool
var botNames = []string{
	"Fletcher", "Yew", "Quarrel", "Nock", "Bodkin",
	"Longshot", "Hawkeye", "Tell", "Robin", "Ashwood",
	"Sparrow", "Kestrel", "Broadhead", "Sinew", "Flint",
}

func pickBotName(rng *rand.Rand) string {
	return botNames[rng.Intn(len(botNames))]
}

// newBotConfig describes a host-driven archer. Bots never run dry.
func newBotConfig(ms *MatchState, sessions []*ranged.AttackSession) ranged.SessionConfig {
	team := ms.AssignTeam(sessions)
	return ranged.SessionConfig{
		ID:           ranged.CombatantID("bot_" + GenerateID(3)),
		Name:         pickBotName(ms.rng),
		Team:         team,
		Color:        TeamColor(team),
		Position:     ms.SpawnPosition(team),
		Mode:         ms.Config.Mode,
		Ammo:         -1,
		InfiniteAmmo: true,
	}
}

// attachBot wires a brain and an ability to an owned bot session and
// returns its record
func attachBot(s *ranged.AttackSession, seed int64) *Player {
	return &Player{
		ID:    s.ID,
		Name:  s.Name,
		Team:  s.Team,
		Bot:   true,
		brain: brain.New(s, seed),

		ability: &Ability{Type: AbilityType(seed % 2)},
	}
}
