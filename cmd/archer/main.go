// Command archer runs headless client archers against a quiver host. It is
// used for load tests and for filling a session with remote players.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"quiver/brain"
	"quiver/peerconn"
	"quiver/ranged"
)

func getEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := getEnvDefault("QUIVER_ADDR", "localhost:8080")
	sessionID := getEnvDefault("QUIVER_SESSION", "")
	password := getEnvDefault("QUIVER_PASSWORD", "")
	countStr := getEnvDefault("ARCHER_COUNT", "2")
	count, err := strconv.Atoi(countStr)
	if err != nil {
		slog.Error("invalid ARCHER_COUNT", "value", countStr)
		os.Exit(1)
	}

	tuning := ranged.DefaultTuning()
	if path := os.Getenv("QUIVER_TUNING"); path != "" {
		if tuning, err = ranged.LoadTuning(path); err != nil {
			slog.Error("load tuning", "err", err)
			os.Exit(1)
		}
	}

	serverURL := fmt.Sprintf("ws://%s/ws", addr)
	slog.Info("starting archers", "count", count, "server", serverURL)

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			req := peerconn.JoinRequest{
				SessionID: sessionID,
				Name:      fmt.Sprintf("archer-%d", id),
				Password:  password,
			}
			runArcher(ctx, serverURL, req, tuning, int64(id))
		}(i)
	}

	wg.Wait()
	slog.Info("all archers stopped")
}

// runArcher keeps one archer connected. A reconnect presents the token from
// the last welcome so the host resumes the same combatant.
func runArcher(ctx context.Context, serverURL string, req peerconn.JoinRequest, tuning ranged.Tuning, seed int64) {
	logger := slog.With("archer", req.Name)
	first := req

	for {
		if ctx.Err() != nil {
			return
		}
		token, sid, err := archerSession(ctx, serverURL, req, tuning, seed, logger)
		if token != "" {
			req.Token, req.SessionID = token, sid
		}
		if errors.Is(err, peerconn.ErrRejected) {
			if req.Token == "" {
				logger.Error("join rejected, giving up", "err", err)
				return
			}
			// the session we held a token for is gone; join afresh
			logger.Info("resume rejected, joining afresh", "err", err)
			req = first
			continue
		}
		if err != nil && ctx.Err() == nil {
			logger.Warn("archer session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func archerSession(ctx context.Context, serverURL string, req peerconn.JoinRequest, tuning ranged.Tuning, seed int64, logger *slog.Logger) (string, string, error) {
	conn, welcome, err := peerconn.Dial(ctx, serverURL, req, peerconn.WithLogger(logger))
	if err != nil {
		return "", "", err
	}
	defer conn.Close()

	if welcome.TuningHash != tuning.Hash() {
		logger.Warn("tuning differs from the host, shots will diverge",
			"host", welcome.TuningHash, "local", tuning.Hash())
	}

	rep := ranged.NewReplicator(ranged.RoleClient, welcome.Combatant, tuning,
		ranged.WithTransport(conn),
		ranged.WithLogger(logger),
	)
	rep.ApplyWind(welcome.Wind)
	self := rep.AddCombatant(localConfig(welcome), true)
	rep.ApplyRoster(welcome.Roster)

	rep.Observers().OnShotResult(func(r ranged.ShotResult) {
		if r.Combatant == welcome.Combatant {
			logger.Info("shot", "arrow", r.Arrow.String(), "power", r.Power, "speed", r.Speed, "loft", r.Loft)
		}
	})
	rep.Observers().OnPrompt(func(p ranged.Prompt) {
		logger.Info("prompt", "text", p.Text)
	})

	ctrl := brain.New(self, seed)
	rate := welcome.TickRate
	if rate <= 0 {
		rate = 60
	}
	tick := time.Second / time.Duration(rate)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return conn.Run(gctx, rep) })
	g.Go(func() error {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		dt := tick.Seconds()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-conn.Done():
				return peerconn.ErrClosed
			case <-ticker.C:
				ctrl.Tick(dt, rep.Sessions())
				rep.Update(dt)
			}
		}
	})
	return welcome.Token, welcome.SessionID, g.Wait()
}

// localConfig builds the archer's own session from the welcome, resuming
// its ticket sequence.
func localConfig(w *peerconn.Welcome) ranged.SessionConfig {
	cfg := ranged.SessionConfig{
		ID:           w.Combatant,
		Mode:         w.Roster.Mode,
		InfiniteAmmo: w.Roster.InfiniteAmmo,
		Ammo:         -1,
		LastTicket:   w.LastTicket,
	}
	for _, e := range w.Roster.Entries {
		if e.ID == w.Combatant {
			cfg.Name, cfg.Team, cfg.Color = e.Name, e.Team, e.Color
			cfg.Position, cfg.Ammo = e.Position, e.Ammo
		}
	}
	return cfg
}
