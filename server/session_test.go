package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	"quiver/ranged"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm := NewSessionManager(Env{Tuning: ranged.DefaultTuning(), TickRate: 60, Log: quiet}, 0)
	t.Cleanup(sm.StopAll)
	return sm
}

func seat(g *Game, id string) error {
	_, err := g.Join(JoinSpec{
		ID:     ranged.CombatantID(id),
		Name:   id,
		PeerID: ranged.PeerID("peer-" + id),
		Peer:   &fakePeer{},
	})
	return err
}

func TestRemovePlayerEndsEmptySession(t *testing.T) {
	sm := newTestManager(t)
	sess, err := sm.CreateSession("Range", DefaultConfig(ranged.ModeFreeRoam), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := seat(sess.Game, "p_1"); err != nil {
		t.Fatal(err)
	}

	sm.RemovePlayer(sess.ID, "peer-p_1")
	if sm.GetSession(sess.ID) != nil {
		t.Error("empty session still listed")
	}
	if err := seat(sess.Game, "p_2"); !errors.Is(err, ErrGameStopped) {
		t.Errorf("join into the ended session err = %v", err)
	}
}

// A join racing the last leave either lands in a session that stays
// listed or is refused. It never seats a player in an ended session.
func TestLastLeaveRacesJoin(t *testing.T) {
	sm := newTestManager(t)
	for i := range 50 {
		sess, err := sm.CreateSession("Range", DefaultConfig(ranged.ModeFreeRoam), "")
		if err != nil {
			t.Fatal(err)
		}
		if err := seat(sess.Game, "p_1"); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var joinErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			sm.RemovePlayer(sess.ID, "peer-p_1")
		}()
		go func() {
			defer wg.Done()
			joinErr = seat(sess.Game, "p_2")
		}()
		wg.Wait()

		listed := sm.GetSession(sess.ID) != nil
		switch {
		case joinErr == nil && !listed:
			t.Fatalf("round %d: p_2 seated in an ended session", i)
		case joinErr != nil && !errors.Is(joinErr, ErrGameStopped):
			t.Fatalf("round %d: join err = %v", i, joinErr)
		case joinErr == nil && sess.Game.HumanCount() != 1:
			t.Fatalf("round %d: humans = %d", i, sess.Game.HumanCount())
		}
		if listed {
			sm.RemovePlayer(sess.ID, "peer-p_2")
		}
	}
	if n := sm.Count(); n != 0 {
		t.Errorf("%d sessions left over", n)
	}
}

func TestReapIdleSessions(t *testing.T) {
	sm := newTestManager(t)
	cfg := DefaultConfig(ranged.ModeDuel)
	cfg.Bots = 2
	idle, err := sm.CreateSession("Nobody came", cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	busy, err := sm.CreateSession("Busy", cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := seat(busy.Game, "p_1"); err != nil {
		t.Fatal(err)
	}

	if n := sm.ReapIdle(time.Now(), time.Minute); n != 0 {
		t.Fatalf("reaped %d fresh sessions", n)
	}
	if n := sm.ReapIdle(time.Now().Add(2*time.Minute), time.Minute); n != 1 {
		t.Fatalf("reaped %d sessions, want the idle one", n)
	}
	if sm.GetSession(idle.ID) != nil {
		t.Error("idle session still listed")
	}
	if sm.GetSession(busy.ID) == nil {
		t.Error("occupied session reaped")
	}
	if err := seat(idle.Game, "p_2"); !errors.Is(err, ErrGameStopped) {
		t.Errorf("join into a reaped session err = %v", err)
	}
}
