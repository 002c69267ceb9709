package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap/zaptest"

	"quiz-night/internal/config"
	"quiz-night/internal/infra/memory"
	infraredis "quiz-night/internal/infra/redis"
)

func TestQuestionsCommandListsGenres(t *testing.T) {
	out := runCLI(t, "questions")
	for _, genre := range []string{"Music", "Cinema", "K-Drama", "Netflix Originals", "TV Series"} {
		if !strings.Contains(out, genre) {
			t.Fatalf("expected %s in output, got %q", genre, out)
		}
	}
}

func TestQuestionsCommandPrintsResolvedSet(t *testing.T) {
	path := writeConfig(t, "log:\n  level: error\n")
	out := runCLI(t, "--config", path, "questions", "Music")
	if !strings.Contains(out, "1. Which artist holds the record for the most Grammy wins in history?") {
		t.Fatalf("expected first Music prompt, got %q", out)
	}
	if !strings.Contains(out, `2. Who is known as the "King of Pop"?`) {
		t.Fatalf("expected second Music prompt, got %q", out)
	}
	if !strings.Contains(out, "* C) Michael Jackson") {
		t.Fatalf("expected correct option marked, got %q", out)
	}

	fallback := runCLI(t, "--config", path, "questions", "Cinema")
	if !strings.Contains(fallback, "1. Which animal is the largest land mammal?") {
		t.Fatalf("expected default set for Cinema, got %q", fallback)
	}
}

func TestGameRepositoryFollowsRedisConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.Config{}
	cfg.Game.Roster = config.DefaultRoster

	if _, ok := newGameRepository(cfg, nil, nil, logger).(*memory.GameStore); !ok {
		t.Fatalf("expected in-process store without redis")
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	cfg.Redis.Addr = mr.Addr()
	client := newRedisClient(cfg)
	defer client.Close()

	games := newGameRepository(cfg, client, nil, logger)
	if _, ok := games.(*infraredis.GameStore); !ok {
		t.Fatalf("expected redis-backed store, got %T", games)
	}
	game := games.GetOrCreate("den")
	if got := len(game.Snapshot().Players); got != 4 {
		t.Fatalf("expected default roster seated, got %d players", got)
	}
	games.Delete("den")
}

func TestIdleSweeperRejectsBadSchedule(t *testing.T) {
	cfg := config.Config{}
	cfg.Game.SweepSchedule = "whenever"
	if _, err := newIdleSweeper(cfg, memory.NewGameStore(nil), zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected schedule parse error")
	}

	cfg.Game.SweepSchedule = "@every 1m"
	sweeper, err := newIdleSweeper(cfg, memory.NewGameStore(nil), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("sweeper: %v", err)
	}
	if entries := sweeper.Entries(); len(entries) != 1 {
		t.Fatalf("expected one scheduled sweep, got %d", len(entries))
	}
}

func TestStartRejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: shouting\n")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "start"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected start to fail on unknown log level")
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v (%s)", args, err, out.String())
	}
	return out.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
