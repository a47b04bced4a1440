package root

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"lifequest/internal/config"
	"lifequest/internal/engine"
	"lifequest/internal/storage"
)

func TestParseDay(t *testing.T) {
	got, err := parseDay("2024-06-03", true)
	if err != nil {
		t.Fatalf("parseDay: %v", err)
	}
	want := time.Date(2024, 6, 3, 23, 59, 59, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("parseDay = %v, want %v", got, want)
	}

	if got, err := parseDay("  ", false); err != nil || got != nil {
		t.Fatalf("blank date = %v, %v; want nil, nil", got, err)
	}
	if _, err := parseDay("03/06/2024", false); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("bad date err = %v, want ErrInvalidInput", err)
	}
}

func TestBalanceFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Progression.BaseXPToNextLevel = 50
	cfg.Daily.PenaltyRatio = 0.25

	b := balanceFrom(cfg)
	if b.Curve.Base != 50 || b.Curve.Growth != cfg.Progression.LevelGrowth {
		t.Fatalf("curve = %+v", b.Curve)
	}
	if b.PenaltyRatio != 0.25 || b.BaseStat != cfg.Progression.BaseStat {
		t.Fatalf("balance = %+v", b)
	}
}

func TestPrintTransitionLevelUp(t *testing.T) {
	var buf bytes.Buffer
	printTransition(&buf, &engine.TransitionResult{
		Quest:       storage.Quest{Title: "Slay the dragon", Type: "boss_fight"},
		From:        engine.StatusInProgress,
		To:          engine.StatusCompleted,
		XPDelta:     150,
		Stats:       engine.StatDelta{engine.AttributeStrength: 2},
		LevelBefore: 1,
		LevelAfter:  2,
	})
	out := buf.String()
	for _, want := range []string{"Slay the dragon", "150", "Strength", "LEVEL UP", "1 → 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTransitionUnchanged(t *testing.T) {
	var buf bytes.Buffer
	printTransition(&buf, &engine.TransitionResult{
		Quest: storage.Quest{Title: "Read"},
		From:  engine.StatusCompleted,
		To:    engine.StatusCompleted,
	})
	if !strings.Contains(buf.String(), "already completed") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestRequireArgs(t *testing.T) {
	if err := requireArgs([]string{"a"}, "id", "item number"); err == nil {
		t.Fatalf("expected error for missing argument")
	}
	if err := requireArgs([]string{"a", "2"}, "id", "item number"); err != nil {
		t.Fatalf("requireArgs: %v", err)
	}
}

func TestPrintStatsShowsAppliedChange(t *testing.T) {
	before := map[string]int{"endurance": 3, "focus": 5}
	after := map[string]int{"endurance": 0, "focus": 6}

	var buf bytes.Buffer
	printStats(&buf, after, engine.StatDiff(before, after))
	out := buf.String()
	if !strings.Contains(out, "-3") || strings.Contains(out, "-10") {
		t.Fatalf("endurance should show the clamped change:\n%s", out)
	}
	if !strings.Contains(out, "+1") {
		t.Fatalf("focus change missing:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Wisdom") && strings.ContainsAny(strings.TrimPrefix(line, "- "), "+-") {
			t.Fatalf("untouched attribute shows a change: %q", line)
		}
	}
}
