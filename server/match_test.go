package main

import (
	"math"
	"testing"

	"quiver/ranged"
)

func TestDefaultConfig(t *testing.T) {
	duel := DefaultConfig(ranged.ModeDuel)
	if !duel.IsTeamMode() || duel.InfiniteAmmo || duel.Ammo <= 0 {
		t.Errorf("duel = %+v", duel)
	}
	free := DefaultConfig(ranged.ModeFreeRoam)
	if free.IsTeamMode() || !free.InfiniteAmmo {
		t.Errorf("free roam = %+v", free)
	}
}

func TestAssignTeamBalances(t *testing.T) {
	ms := NewMatchState(DefaultConfig(ranged.ModeDuel), 1)

	var sessions []*ranged.AttackSession
	counts := map[int]int{}
	for i := range 6 {
		team := ms.AssignTeam(sessions)
		counts[team]++
		sessions = append(sessions, ranged.NewAttackSession(ranged.SessionConfig{
			ID:   ranged.CombatantID(string(rune('a' + i))),
			Team: team,
		}, ranged.DefaultTuning()))
	}
	if counts[TeamRed] != 3 || counts[TeamBlue] != 3 {
		t.Errorf("teams = %v, want 3/3", counts)
	}
}

func TestAssignTeamFreeRoam(t *testing.T) {
	ms := NewMatchState(DefaultConfig(ranged.ModeFreeRoam), 1)
	if team := ms.AssignTeam(nil); team != TeamNone {
		t.Errorf("team = %d, want none", team)
	}
}

func TestSpawnPositionInsideArena(t *testing.T) {
	for _, mode := range []ranged.CombatMode{ranged.ModeFreeRoam, ranged.ModeDuel} {
		ms := NewMatchState(DefaultConfig(mode), 42)
		half := ms.Config.ArenaSize / 2
		for range 100 {
			for _, team := range []int{TeamNone, TeamRed, TeamBlue} {
				p := ms.SpawnPosition(team)
				if math.Abs(p.X) > half || math.Abs(p.Z) > half || p.Y != 0 {
					t.Fatalf("mode %d team %d spawned outside the arena at %+v", mode, team, p)
				}
			}
		}
	}
}

func TestSpawnPositionTeamSides(t *testing.T) {
	ms := NewMatchState(DefaultConfig(ranged.ModeDuel), 7)
	for range 50 {
		if ms.SpawnPosition(TeamRed).X >= 0 {
			t.Fatal("red should spawn on the negative X side")
		}
		if ms.SpawnPosition(TeamBlue).X <= 0 {
			t.Fatal("blue should spawn on the positive X side")
		}
	}
}

func TestTeamColor(t *testing.T) {
	if TeamColor(TeamRed) == TeamColor(TeamBlue) {
		t.Error("teams need distinct colors")
	}
	if TeamColor(99) != TeamColor(TeamNone) {
		t.Error("unknown team should fall back to the neutral color")
	}
}

func TestNewBotConfig(t *testing.T) {
	ms := NewMatchState(DefaultConfig(ranged.ModeDuel), 3)
	cfg := newBotConfig(&ms, nil)
	if len(cfg.ID) != len("bot_")+6 || cfg.ID[:4] != "bot_" {
		t.Errorf("bot id = %q", cfg.ID)
	}
	if !cfg.InfiniteAmmo || cfg.Team != TeamRed || cfg.Name == "" {
		t.Errorf("bot config = %+v", cfg)
	}
}

func TestAttachBot(t *testing.T) {
	s := newTestSession()
	p := attachBot(s, 5)
	if !p.Bot || p.ID != s.ID || p.brain == nil {
		t.Errorf("bot record = %+v", p)
	}
	if p.ability == nil || p.ability.Type != AbilityFlatShot {
		t.Errorf("odd seed should get the flat shot ability, got %+v", p.ability)
	}
}
