package peerconn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"quiver/ranged"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

type hostBehavior struct {
	reject      string
	hangUpAfter bool
}

// startHost runs a minimal host: it answers the join and echoes every
// binary frame back.
func startHost(t *testing.T, b hostBehavior) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()
		ctx := r.Context()

		var env Envelope
		if err := wsjson.Read(ctx, ws, &env); err != nil || env.T != MsgJoin {
			return
		}
		var req JoinRequest
		if err := json.Unmarshal(env.D, &req); err != nil {
			return
		}
		if b.reject != "" {
			reply, _ := NewEnvelope(MsgError, ErrorMsg{Msg: b.reject})
			wsjson.Write(ctx, ws, reply)
			ws.Close(websocket.StatusPolicyViolation, b.reject)
			return
		}
		reply, _ := NewEnvelope(MsgWelcome, Welcome{
			SessionID:  req.SessionID,
			Combatant:  ranged.CombatantID("p_" + req.Name),
			LastTicket: 3,
			Wind:       ranged.WindState{Dir: ranged.Vec3{X: 1}, Spd: 4, On: true},
		})
		if err := wsjson.Write(ctx, ws, reply); err != nil {
			return
		}
		if b.hangUpAfter {
			ws.Close(websocket.StatusGoingAway, "shutting down")
			return
		}
		for {
			typ, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			if err := ws.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type inbox chan []byte

func (in inbox) Deliver(from ranged.PeerID, frame []byte) { in <- frame }

func receive(t *testing.T, in inbox) []byte {
	t.Helper()
	select {
	case f := <-in:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func TestDialWelcome(t *testing.T) {
	url := startHost(t, hostBehavior{})
	ctx := context.Background()

	c, w, err := Dial(ctx, url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if w.SessionID != "s1" || w.Combatant != "p_ash" || w.LastTicket != 3 {
		t.Errorf("welcome = %+v", w)
	}
	if !w.Wind.On || w.Wind.Spd != 4 {
		t.Errorf("wind not carried in welcome: %+v", w.Wind)
	}
}

func TestDialRejected(t *testing.T) {
	url := startHost(t, hostBehavior{reject: "session full"})

	_, _, err := Dial(context.Background(), url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "session full") {
		t.Errorf("reason lost: %v", err)
	}
}

func TestFramesRoundTrip(t *testing.T) {
	url := startHost(t, hostBehavior{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _, err := Dial(ctx, url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	in := make(inbox, 8)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, in) }()

	frame, err := ranged.Encode(ranged.MsgSpawnRequest, ranged.SpawnRequest{Combatant: "p_ash", Ticket: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendToHost(frame, ranged.Reliable); err != nil {
		t.Fatal(err)
	}
	typ, raw, err := ranged.Decode(receive(t, in))
	if err != nil || typ != ranged.MsgSpawnRequest {
		t.Fatalf("echo decoded as %s, %v", typ, err)
	}
	req, _ := ranged.DecodeBody[ranged.SpawnRequest](raw)
	if req.Ticket != 4 {
		t.Errorf("ticket = %d", req.Ticket)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestUnreliableKeepsNewest(t *testing.T) {
	url := startHost(t, hostBehavior{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _, err := Dial(ctx, url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet, WithQueueSizes(8, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for _, f := range []string{"u1", "u2", "u3", "u4", "u5"} {
		if err := c.SendToHost([]byte(f), ranged.Unreliable); err != nil {
			t.Fatal(err)
		}
	}
	if c.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", c.Dropped())
	}

	in := make(inbox, 8)
	go c.Run(ctx, in)
	for _, want := range []string{"u4", "u5"} {
		if got := string(receive(t, in)); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestHostHangUpEndsRun(t *testing.T) {
	url := startHost(t, hostBehavior{hangUpAfter: true})
	ctx := context.Background()

	c, _, err := Dial(ctx, url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Run(ctx, make(inbox, 1)); err == nil {
		t.Error("Run returned nil after the host went away")
	}
	if c.PeerCount() != 0 {
		t.Error("closed connection still reports the host")
	}
}

func TestClientTransportSurface(t *testing.T) {
	url := startHost(t, hostBehavior{})
	c, _, err := Dial(context.Background(), url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Broadcast([]byte{1}, ranged.Reliable); !errors.Is(err, ranged.ErrNotHost) {
		t.Errorf("Broadcast = %v", err)
	}
	if err := c.SendTo("x", []byte{1}, ranged.Reliable); !errors.Is(err, ranged.ErrNotHost) {
		t.Errorf("SendTo = %v", err)
	}
	if c.PeerCount() != 1 {
		t.Errorf("PeerCount = %d", c.PeerCount())
	}

	c.Close()
	c.Close()
	if err := c.SendToHost([]byte{1}, ranged.Reliable); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v", err)
	}
}

func TestReadLimitEndsRun(t *testing.T) {
	url := startHost(t, hostBehavior{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, _, err := Dial(ctx, url, JoinRequest{SessionID: "s1", Name: "ash"}, quiet,
		WithReadLimit(1024), WithWriteTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// the host echoes it back, past what we accept
	if err := c.SendToHost(make([]byte, 4096), ranged.Reliable); err != nil {
		t.Fatal(err)
	}
	in := make(inbox, 1)
	if err := c.Run(ctx, in); err == nil || ctx.Err() != nil {
		t.Fatalf("Run = %v, want a read error before the deadline", err)
	}
	if len(in) != 0 {
		t.Error("oversized frame delivered")
	}
}
