package main

import (
	"maps"
	"slices"
	"time"

	"quiver/brain"
	"quiver/ranged"
)

const maxNameLen = 16

// Player is the host's record of one combatant: its connection (none for
// bots) and its score. The attack state itself lives in the replicator.
type Player struct {
	ID       ranged.CombatantID
	Name     string
	Team     int
	Bot      bool
	Peer     ranged.PeerID
	Shots    int
	Hits     int
	Streak   int // arrows in a row that hit someone
	JoinedAt time.Time

	Accolades map[string]bool

	brain   *brain.Archer
	ability *Ability
}

// NewPlayer creates the record for a human combatant
func NewPlayer(id ranged.CombatantID, name string, team int, peer ranged.PeerID) *Player {
	return &Player{
		ID:       id,
		Name:     sanitizeName(name),
		Team:     team,
		Peer:     peer,
		JoinedAt: time.Now(),
	}
}

// Accuracy is the share of launched arrows that hit someone
func (p *Player) Accuracy() float64 {
	if p.Shots == 0 {
		return 0
	}
	return float64(p.Hits) / float64(p.Shots)
}

// ToEntry converts to the scoreboard form
func (p *Player) ToEntry() ScoreEntry {
	return ScoreEntry{
		ID:    p.ID,
		Name:  p.Name,
		Team:  p.Team,
		Bot:   p.Bot,
		Shots: p.Shots,
		Hits:  p.Hits,

		Accolades: slices.Sorted(maps.Keys(p.Accolades)),
	}
}

func sanitizeName(name string) string {
	name = truncate(name, maxNameLen)
	if name == "" {
		return "Archer"
	}
	return name
}
