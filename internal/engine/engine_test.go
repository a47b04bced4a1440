package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lifequest/internal/auth"
	"lifequest/internal/storage"
	"lifequest/internal/timeutil"
)

type testEnv struct {
	svc   *Service
	store *storage.SQLiteStore
	clock *timeutil.FakeClock
	ctx   context.Context
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := timeutil.NewFakeClock(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	store := storage.NewSQLiteStore(db, clock)
	svc := NewService(store, storage.NewMarkerRepo(db), WithClock(clock))
	return &testEnv{svc: svc, store: store, clock: clock, ctx: auth.WithUser(ctx, "u1")}
}

func (e *testEnv) journal(t *testing.T) []storage.JournalEntry {
	t.Helper()
	entries, err := e.svc.ListJournal(e.ctx, 0)
	if err != nil {
		t.Fatalf("ListJournal: %v", err)
	}
	return entries
}

func (e *testEnv) character(t *testing.T) *storage.Character {
	t.Helper()
	c, err := e.svc.GetCharacter(e.ctx, ReadOptions{Force: true})
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	return c
}

func (e *testEnv) create(t *testing.T, def QuestDefinition) *storage.Quest {
	t.Helper()
	q, err := e.svc.CreateQuest(e.ctx, def)
	if err != nil {
		t.Fatalf("CreateQuest(%q): %v", def.Title, err)
	}
	return q
}

func (e *testEnv) setStatus(t *testing.T, id string, st QuestStatus) *TransitionResult {
	t.Helper()
	res, err := e.svc.SetQuestStatus(e.ctx, id, st)
	if err != nil {
		t.Fatalf("SetQuestStatus(%s): %v", st, err)
	}
	return res
}

func TestApplyXPRollover(t *testing.T) {
	level, xp, next := ApplyXP(1, 0, 100, 250)
	if level != 3 || xp != 40 || next != 121 {
		t.Fatalf("ApplyXP(1,0,100,250) = (%d,%d,%d), want (3,40,121)", level, xp, next)
	}

	level, xp, next = ApplyXP(4, 7, 133, 0)
	if level != 4 || xp != 7 || next != 133 {
		t.Fatalf("zero delta changed progress: (%d,%d,%d)", level, xp, next)
	}
	level, xp, next = ApplyXP(4, 7, 133, -50)
	if level != 4 || xp != 7 || next != 133 {
		t.Fatalf("negative delta changed progress: (%d,%d,%d)", level, xp, next)
	}
}

func TestRemoveXPFullReversalReturnsToOrigin(t *testing.T) {
	p := Progress{Level: 1, XP: 0, XPToNextLevel: 100}
	for _, grant := range []int{50, 75, 300, 10, 999} {
		p = DefaultCurve.Grant(p, grant)
		if p.XP >= p.XPToNextLevel {
			t.Fatalf("xp %d not below threshold %d", p.XP, p.XPToNextLevel)
		}
	}

	back := RemoveXP(p.TotalXPEarned, p.TotalXPEarned)
	if back != (Progress{Level: 1, XP: 0, XPToNextLevel: 100, TotalXPEarned: 0}) {
		t.Fatalf("RemoveXP(T,T) = %+v, want origin", back)
	}

	replayed := RemoveXP(p.TotalXPEarned, 0)
	if replayed.Level != p.Level || replayed.XP != p.XP || replayed.XPToNextLevel != p.XPToNextLevel {
		t.Fatalf("replay %+v disagrees with forward progression %+v", replayed, p)
	}

	if got := RemoveXP(30, 100); got.TotalXPEarned != 0 || got.Level != 1 {
		t.Fatalf("RemoveXP(30,100) = %+v, want clamped origin", got)
	}
}

func TestMergeStats(t *testing.T) {
	current := map[string]int{"strength": 5, "intelligence": 5}
	delta := StatDelta{AttributeStrength: 2}

	merged := MergeStats(current, delta, 0)
	if merged["strength"] != 7 || merged["intelligence"] != 5 || len(merged) != 2 {
		t.Fatalf("merged = %v", merged)
	}
	if current["strength"] != 5 {
		t.Fatalf("MergeStats mutated its input")
	}

	restored := MergeStats(merged, delta.Negate(), 0)
	if restored["strength"] != 5 || restored["intelligence"] != 5 || len(restored) != 2 {
		t.Fatalf("restored = %v", restored)
	}

	floored := MergeStats(current, StatDelta{AttributeStrength: -9}, 0)
	if floored["strength"] != 0 {
		t.Fatalf("strength = %d, want clamped to 0", floored["strength"])
	}
}

func TestTransitionEffect(t *testing.T) {
	cases := []struct {
		from, to QuestStatus
		cause    Cause
		want     Effect
		wantErr  bool
	}{
		{StatusAvailable, StatusCompleted, CauseUser, EffectGrant, false},
		{StatusInProgress, StatusCompleted, CauseUser, EffectGrant, false},
		{StatusCompleted, StatusInProgress, CauseUser, EffectRevoke, false},
		{StatusAvailable, StatusInProgress, CauseUser, EffectNone, false},
		{StatusInProgress, StatusFailed, CauseUser, EffectNone, false},
		{StatusCompleted, StatusCompleted, CauseUser, EffectNone, false},
		{StatusCompleted, StatusInProgress, CauseDailyCycle, EffectNone, false},
		{StatusFailed, StatusCompleted, CauseUser, EffectNone, true},
		{StatusCompleted, StatusFailed, CauseUser, EffectNone, true},
		{StatusAvailable, StatusCompleted, CauseDailyCycle, EffectNone, true},
	}
	for _, tc := range cases {
		got, err := TransitionEffect(tc.from, tc.to, tc.cause)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("%s->%s: err = %v, want ErrInvalidState", tc.from, tc.to, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s->%s = %v, %v; want %v", tc.from, tc.to, got, err, tc.want)
		}
	}
}

func TestOperationsRequireSignedInUser(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	if _, err := env.svc.GetCharacter(ctx, ReadOptions{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("GetCharacter err = %v", err)
	}
	if _, err := env.svc.SetQuestStatus(ctx, "x", StatusCompleted); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("SetQuestStatus err = %v", err)
	}
	if _, err := env.svc.RunDailyCycle(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("RunDailyCycle err = %v", err)
	}
}

func TestGetCharacterCreatesDefaults(t *testing.T) {
	env := newTestService(t)
	c := env.character(t)

	if c.Level != 1 || c.XP != 0 || c.XPToNextLevel != 100 || c.TotalXPEarned != 0 {
		t.Fatalf("unexpected progression: %+v", c)
	}
	for _, a := range Attributes {
		if c.Stats[string(a)] != 5 {
			t.Fatalf("%s = %d, want 5", a, c.Stats[string(a)])
		}
	}
	if !c.LastActive.IsAbsent() {
		t.Fatalf("new character should have no lastActive")
	}
}

func TestCreateQuestInitialStatusAndValidation(t *testing.T) {
	env := newTestService(t)

	daily := env.create(t, QuestDefinition{Title: "Meditate", Type: QuestDaily, XPReward: 20})
	if daily.Status != string(StatusAvailable) || !daily.PenalizeOnMiss || daily.Repeat != string(RepeatDaily) {
		t.Fatalf("daily = %+v", daily)
	}
	boss := env.create(t, QuestDefinition{Title: "Ship it", Type: QuestBossFight, XPReward: 500, Tasks: []string{"a", "b"}})
	if boss.Status != string(StatusInProgress) || len(boss.Tasks) != 2 || boss.PenalizeOnMiss {
		t.Fatalf("boss = %+v", boss)
	}

	bad := []QuestDefinition{
		{Title: "  ", Type: QuestSide},
		{Title: "x", Type: "raid"},
		{Title: "x", Type: QuestSide, XPReward: -1},
		{Title: "x", Type: QuestSide, StatRewards: StatDelta{"luck": 1}},
		{Title: "x", Type: QuestSide, StatRewards: StatDelta{AttributeFocus: -1}},
	}
	for _, def := range bad {
		if _, err := env.svc.CreateQuest(env.ctx, def); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("CreateQuest(%+v) err = %v, want ErrInvalidInput", def, err)
		}
	}
}

func TestSetQuestStatusSameStatusIsNoop(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Read", Type: QuestSide, XPReward: 40, StatRewards: StatDelta{AttributeWisdom: 2}})
	before := env.character(t)

	res := env.setStatus(t, q.ID, StatusAvailable)
	if res.Changed() || res.Effect != EffectNone || res.XPDelta != 0 {
		t.Fatalf("same-status transition had effects: %+v", res)
	}
	if got := env.journal(t); len(got) != 0 {
		t.Fatalf("journal = %d entries, want 0", len(got))
	}
	after := env.character(t)
	if after.TotalXPEarned != before.TotalXPEarned || after.Stats["wisdom"] != before.Stats["wisdom"] || after.Version != before.Version {
		t.Fatalf("character changed: before %+v after %+v", before, after)
	}
}

func TestDailyQuestCompleteThenUncheck(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Stretch", Type: QuestDaily, XPReward: 50, StatRewards: StatDelta{AttributeFocus: 1}})

	res := env.setStatus(t, q.ID, StatusCompleted)
	if res.Effect != EffectGrant || res.XPDelta != 50 {
		t.Fatalf("complete = %+v", res)
	}
	c := env.character(t)
	if c.Level != 1 || c.XP != 50 || c.TotalXPEarned != 50 || c.Stats["focus"] != 6 {
		t.Fatalf("after completion: %+v", c)
	}
	if res.Streak == nil || res.Streak.StreakCount != 1 || c.StreakCount != 1 {
		t.Fatalf("streak after first daily: result %+v character %d", res.Streak, c.StreakCount)
	}
	entries := env.journal(t)
	if len(entries) != 1 || entries[0].XPGained != 50 || entries[0].StatsGained["focus"] != 1 || entries[0].QuestID != q.ID {
		t.Fatalf("journal after completion: %+v", entries)
	}

	env.clock.Advance(time.Minute)
	res = env.setStatus(t, q.ID, StatusInProgress)
	if res.Effect != EffectRevoke || res.XPDelta != -50 {
		t.Fatalf("uncheck = %+v", res)
	}
	if res.Streak == nil {
		t.Fatalf("streak was not re-evaluated on uncheck")
	}
	c = env.character(t)
	if c.Level != 1 || c.XP != 0 || c.XPToNextLevel != 100 || c.TotalXPEarned != 0 || c.Stats["focus"] != 5 {
		t.Fatalf("after uncheck: %+v", c)
	}

	entries = env.journal(t)
	if len(entries) != 2 {
		t.Fatalf("journal = %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].XPGained != -50 || len(entries[0].StatsGained) != 0 {
		t.Fatalf("reversal entry = %+v", entries[0])
	}
	if entries[1].XPGained != 50 || entries[1].StatsGained["focus"] != 1 {
		t.Fatalf("original entry was changed: %+v", entries[1])
	}
}

func TestCompletionLevelsUpAcrossThresholds(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Marathon", Type: QuestSide, XPReward: 250})

	res := env.setStatus(t, q.ID, StatusCompleted)
	if !res.LevelUp() || res.LevelBefore != 1 || res.LevelAfter != 3 {
		t.Fatalf("level change = %d -> %d", res.LevelBefore, res.LevelAfter)
	}
	c := env.character(t)
	if c.XP != 40 || c.XPToNextLevel != 121 {
		t.Fatalf("character = %+v", c)
	}
}

func TestIllegalTransitionIsRejected(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Call mom", Type: QuestSide, XPReward: 10})
	env.setStatus(t, q.ID, StatusFailed)

	_, err := env.svc.SetQuestStatus(env.ctx, q.ID, StatusCompleted)
	var te *TransitionError
	if !errors.As(err, &te) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if te.From != StatusFailed || te.To != StatusCompleted {
		t.Fatalf("TransitionError = %+v", te)
	}

	if _, err := env.svc.SetQuestStatus(env.ctx, "missing", StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing quest err = %v", err)
	}
}

func TestConcurrentCompletionsGrantOnce(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Inbox zero", Type: QuestSide, XPReward: 30})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.SetQuestStatus(env.ctx, q.ID, StatusCompleted); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent SetQuestStatus: %v", err)
	}

	if got := env.journal(t); len(got) != 1 {
		t.Fatalf("journal = %d entries, want exactly one grant", len(got))
	}
	if c := env.character(t); c.TotalXPEarned != 30 {
		t.Fatalf("totalXpEarned = %d, want 30", c.TotalXPEarned)
	}
}

func TestToggleSubtaskDrivesStatus(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Clean garage", Type: QuestDungeon, XPReward: 60, Tasks: []string{"sort", "sweep"}})

	res, err := env.svc.ToggleSubtask(env.ctx, q.ID, 0)
	if err != nil {
		t.Fatalf("ToggleSubtask: %v", err)
	}
	if res.Quest.Progress != 50 || res.To != StatusInProgress || res.Effect != EffectNone {
		t.Fatalf("first toggle = %+v", res)
	}

	res, err = env.svc.ToggleSubtask(env.ctx, q.ID, 1)
	if err != nil {
		t.Fatalf("ToggleSubtask: %v", err)
	}
	if res.Quest.Progress != 100 || res.To != StatusCompleted || res.Effect != EffectGrant {
		t.Fatalf("second toggle = %+v", res)
	}

	res, err = env.svc.ToggleSubtask(env.ctx, q.ID, 1)
	if err != nil {
		t.Fatalf("ToggleSubtask: %v", err)
	}
	if res.To != StatusInProgress || res.Effect != EffectRevoke {
		t.Fatalf("uncheck = %+v", res)
	}
	if c := env.character(t); c.TotalXPEarned != 0 {
		t.Fatalf("totalXpEarned = %d, want 0", c.TotalXPEarned)
	}

	stored, err := env.svc.GetQuest(env.ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuest: %v", err)
	}
	if !stored.Tasks[0].Completed || stored.Tasks[1].Completed || stored.Progress != 50 {
		t.Fatalf("stored quest = %+v", stored)
	}

	if _, err := env.svc.ToggleSubtask(env.ctx, q.ID, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("out of range err = %v", err)
	}
}

func TestEvaluateStreakTable(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	today := timeutil.Native(now.Add(-3 * time.Hour))
	yesterday := timeutil.Native(now.Add(-24 * time.Hour))
	fourDaysAgo := timeutil.Native(now.Add(-4 * 24 * time.Hour))

	cases := []struct {
		name      string
		streak    int
		last      timeutil.Timestamp
		completed bool
		want      int
		changed   bool
	}{
		{"same day start", 0, today, true, 1, true},
		{"same day affirm", 3, today, true, 3, false},
		{"same day prompt", 3, today, false, 3, false},
		{"yesterday continue", 3, yesterday, true, 4, true},
		{"yesterday prompt", 3, yesterday, false, 3, false},
		{"lapsed no completion", 5, fourDaysAgo, false, 0, true},
		{"lapsed with completion", 5, fourDaysAgo, true, 1, true},
		{"absent counts as today", 0, timeutil.Timestamp{}, true, 1, true},
		{"garbage counts as today", 2, timeutil.Raw("not a date"), false, 2, false},
		{"legacy string yesterday", 1, timeutil.Raw("2024-06-09T08:00:00Z"), true, 2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateStreak(tc.streak, tc.last, now, tc.completed)
			if got.StreakCount != tc.want || got.Changed != tc.changed {
				t.Fatalf("EvaluateStreak = %+v, want count %d changed %v", got, tc.want, tc.changed)
			}
			if got.Message == "" {
				t.Fatalf("empty message")
			}
		})
	}
}

func TestEvaluateStreakPersistsOnlyOnChange(t *testing.T) {
	env := newTestService(t)
	c := env.character(t)

	fourDaysAgo := env.clock.Now().Add(-4 * 24 * time.Hour)
	err := storage.NewCharacterRepo(env.store).Update(env.ctx, "u1", map[string]any{
		"streakCount": 5,
		"lastActive":  fourDaysAgo.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		t.Fatalf("seed character: %v", err)
	}
	env.character(t)

	res, err := env.svc.EvaluateStreak(env.ctx)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if res.StreakCount != 0 || !res.Changed {
		t.Fatalf("lapsed streak = %+v", res)
	}
	after := env.character(t)
	if after.StreakCount != 0 || after.LastActive.Kind() != timeutil.KindNative {
		t.Fatalf("character after lapse: streak %d lastActive %v", after.StreakCount, after.LastActive.Kind())
	}
	if after.Version <= c.Version {
		t.Fatalf("version did not move")
	}

	res, err = env.svc.EvaluateStreak(env.ctx)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	again := env.character(t)
	if res.Changed || again.Version != after.Version {
		t.Fatalf("prompt-only evaluation wrote the character")
	}
}

func TestRunDailyCycle(t *testing.T) {
	env := newTestService(t)

	if _, err := env.svc.GrantXP(env.ctx, 200); err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	missed := env.create(t, QuestDefinition{Title: "Journal", Type: QuestDaily, XPReward: 40})
	done := env.create(t, QuestDefinition{Title: "Walk", Type: QuestDaily, XPReward: 20})
	exempt := env.create(t, QuestDefinition{Title: "Floss", Type: QuestDaily, XPReward: 100, NoPenalty: true})
	side := env.create(t, QuestDefinition{Title: "Taxes", Type: QuestSide, XPReward: 80})
	env.setStatus(t, done.ID, StatusCompleted)

	first, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if !first.Ran || len(first.Failed) != 0 || first.Penalty != 0 {
		t.Fatalf("quests created today must not be penalized: %+v", first)
	}
	second, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if second.Ran {
		t.Fatalf("second run on the same day was not a no-op")
	}

	env.clock.Advance(24 * time.Hour)
	journalBefore := len(env.journal(t))

	res, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if !res.Ran || len(res.Failed) != 1 || res.Failed[0].ID != missed.ID {
		t.Fatalf("failed = %+v", res.Failed)
	}
	if res.Penalty != 20 {
		t.Fatalf("penalty = %d, want 20", res.Penalty)
	}
	if len(res.Reset) != 2 {
		t.Fatalf("reset = %d quests, want 2", len(res.Reset))
	}

	c := env.character(t)
	if c.TotalXPEarned != 200 || c.Level != 2 || c.XP != 100 || c.XPToNextLevel != 110 {
		t.Fatalf("character after penalty: %+v", c)
	}

	entries := env.journal(t)
	if len(entries) != journalBefore+1 || entries[0].XPGained != -20 || entries[0].Kind != JournalDailyPenalty {
		t.Fatalf("journal after cycle: %+v", entries)
	}

	want := map[string]QuestStatus{
		missed.ID: StatusInProgress,
		done.ID:   StatusInProgress,
		exempt.ID: StatusAvailable,
		side.ID:   StatusAvailable,
	}
	for id, st := range want {
		q, err := env.svc.GetQuest(env.ctx, id)
		if err != nil {
			t.Fatalf("GetQuest: %v", err)
		}
		if q.Status != string(st) {
			t.Fatalf("%s status = %s, want %s", q.Title, q.Status, st)
		}
	}

	again, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if again.Ran || len(env.journal(t)) != journalBefore+1 {
		t.Fatalf("cycle ran twice on one day")
	}
}

func TestRunDailyCycleLeavesExpiredQuestsAlone(t *testing.T) {
	env := newTestService(t)
	ends := env.clock.Now().Add(2 * time.Hour)

	open := env.create(t, QuestDefinition{Title: "Course week", Type: QuestDaily, XPReward: 40, EndDate: &ends})
	done := env.create(t, QuestDefinition{Title: "Trial stretch", Type: QuestDaily, XPReward: 20, EndDate: &ends})
	env.setStatus(t, done.ID, StatusCompleted)
	if _, err := env.svc.RunDailyCycle(env.ctx); err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}

	env.clock.Advance(24 * time.Hour)
	res, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if !res.Ran || len(res.Failed) != 0 || res.Penalty != 0 || len(res.Reset) != 0 || len(res.Recurring) != 0 {
		t.Fatalf("expired quests were touched: %+v", res)
	}

	want := map[string]QuestStatus{open.ID: StatusAvailable, done.ID: StatusCompleted}
	for id, st := range want {
		q, err := env.svc.GetQuest(env.ctx, id)
		if err != nil {
			t.Fatalf("GetQuest: %v", err)
		}
		if q.Status != string(st) {
			t.Fatalf("%s status = %s, want %s", q.Title, q.Status, st)
		}
	}
	if c := env.character(t); c.TotalXPEarned != 20 {
		t.Fatalf("total xp = %d, want 20", c.TotalXPEarned)
	}
}

func TestStoredValuesAreClassifiedCaseInsensitively(t *testing.T) {
	env := newTestService(t)
	put := func(id string, doc map[string]any) {
		t.Helper()
		if err := env.store.SetDocument(env.ctx, storage.QuestPath("u1", id), doc); err != nil {
			t.Fatalf("SetDocument: %v", err)
		}
	}
	put("stretch", map[string]any{"title": "Stretch", "type": "Daily", "status": "Completed", "xpReward": 10, "repeat": "daily"})

	streak, err := env.svc.EvaluateStreak(env.ctx)
	if err != nil {
		t.Fatalf("EvaluateStreak: %v", err)
	}
	if streak.StreakCount != 1 {
		t.Fatalf("streak = %d, want 1 for a completed daily stored as %q", streak.StreakCount, "Daily")
	}

	put("meditate", map[string]any{"title": "Meditate", "type": "DAILY", "status": "Available", "xpReward": 40, "repeat": "daily", "penalizeOnMiss": true})
	if _, err := env.svc.RunDailyCycle(env.ctx); err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	env.clock.Advance(24 * time.Hour)
	res, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != "meditate" || res.Penalty != 20 {
		t.Fatalf("cycle = failed %+v penalty %d", res.Failed, res.Penalty)
	}
}

func TestRunDailyCycleWithoutMarkerDoesNotPenalizeTwice(t *testing.T) {
	env := newTestService(t)
	env.create(t, QuestDefinition{Title: "Journal", Type: QuestDaily, XPReward: 40})
	env.clock.Advance(24 * time.Hour)

	if _, err := env.svc.RunDailyCycle(env.ctx); err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if err := env.svc.markers.Delete(env.ctx, dailyMarkerKey("u1")); err != nil {
		t.Fatalf("delete marker: %v", err)
	}
	res, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if len(res.Failed) != 0 || res.Penalty != 0 || len(res.Reset) != 0 {
		t.Fatalf("rerun touched quests again: %+v", res)
	}
}

func TestWeeklyQuestRecurs(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Groceries", Type: QuestSide, XPReward: 15, Repeat: RepeatWeekly})
	env.setStatus(t, q.ID, StatusCompleted)

	env.clock.Advance(3 * 24 * time.Hour)
	res, err := env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if len(res.Recurring) != 0 {
		t.Fatalf("weekly quest reopened after 3 days")
	}

	env.clock.Advance(4 * 24 * time.Hour)
	res, err = env.svc.RunDailyCycle(env.ctx)
	if err != nil {
		t.Fatalf("RunDailyCycle: %v", err)
	}
	if len(res.Recurring) != 1 || res.Recurring[0].ID != q.ID {
		t.Fatalf("recurring = %+v", res.Recurring)
	}
	if c := env.character(t); c.TotalXPEarned != 15 {
		t.Fatalf("reopening for a new week took XP back: %d", c.TotalXPEarned)
	}
}

func TestGrantXPAndMergeStats(t *testing.T) {
	env := newTestService(t)

	c, err := env.svc.GrantXP(env.ctx, 250)
	if err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	if c.Level != 3 || c.XP != 40 || c.TotalXPEarned != 250 {
		t.Fatalf("after grant: %+v", c)
	}
	env.clock.Advance(time.Minute)
	c, err = env.svc.GrantXP(env.ctx, -250)
	if err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	if c.Level != 1 || c.XP != 0 || c.TotalXPEarned != 0 {
		t.Fatalf("after removal: %+v", c)
	}
	env.clock.Advance(time.Minute)
	if _, err := env.svc.GrantXP(env.ctx, -30); err != nil {
		t.Fatalf("GrantXP: %v", err)
	}

	before := env.character(t)
	if _, err := env.svc.MergeCharacterStats(env.ctx, StatDelta{}); err != nil {
		t.Fatalf("MergeCharacterStats: %v", err)
	}
	if after := env.character(t); after.Version != before.Version {
		t.Fatalf("empty delta wrote the character")
	}

	env.clock.Advance(time.Minute)
	c, err = env.svc.MergeCharacterStats(env.ctx, StatDelta{AttributeCharisma: 3, AttributeEndurance: -10})
	if err != nil {
		t.Fatalf("MergeCharacterStats: %v", err)
	}
	if c.Stats["charisma"] != 8 || c.Stats["endurance"] != 0 || c.Stats["focus"] != 5 {
		t.Fatalf("stats = %v", c.Stats)
	}

	// Newest first. Removing XP from an empty total moves nothing and is not
	// journaled; the clamped endurance loss is recorded as applied.
	entries := env.journal(t)
	if len(entries) != 3 {
		t.Fatalf("journal = %+v, want 3 entries", entries)
	}
	stats, removed, granted := entries[0], entries[1], entries[2]
	if stats.Kind != JournalStatsAdjusted || stats.XPGained != 0 ||
		stats.StatsGained["charisma"] != 3 || stats.StatsGained["endurance"] != -5 || len(stats.StatsGained) != 2 {
		t.Fatalf("stats entry = %+v", stats)
	}
	if removed.Kind != JournalXPAdjusted || removed.XPGained != -250 {
		t.Fatalf("removal entry = %+v", removed)
	}
	if granted.Kind != JournalXPAdjusted || granted.XPGained != 250 {
		t.Fatalf("grant entry = %+v", granted)
	}
}

func TestMergeStatsClampedToFloorWritesNothing(t *testing.T) {
	env := newTestService(t)
	if _, err := env.svc.MergeCharacterStats(env.ctx, StatDelta{AttributeFocus: -5}); err != nil {
		t.Fatalf("MergeCharacterStats: %v", err)
	}
	env.clock.Advance(time.Minute)
	before := env.character(t)

	c, err := env.svc.MergeCharacterStats(env.ctx, StatDelta{AttributeFocus: -3})
	if err != nil {
		t.Fatalf("MergeCharacterStats: %v", err)
	}
	if c.Stats["focus"] != 0 {
		t.Fatalf("focus = %d, want 0", c.Stats["focus"])
	}
	if after := env.character(t); after.Version != before.Version {
		t.Fatalf("a fully clamped delta wrote the character")
	}
	if got := env.journal(t); len(got) != 1 {
		t.Fatalf("journal = %+v, want only the first adjustment", got)
	}
}

func TestStatDiff(t *testing.T) {
	got := StatDiff(
		map[string]int{"focus": 5, "wisdom": 5, "charisma": 2},
		map[string]int{"focus": 7, "wisdom": 5, "charisma": 0},
	)
	if len(got) != 2 || got[AttributeFocus] != 2 || got[AttributeCharisma] != -2 {
		t.Fatalf("StatDiff = %v", got)
	}
}

func TestCharacterReadsAreCached(t *testing.T) {
	env := newTestService(t)
	env.character(t)

	if err := storage.NewCharacterRepo(env.store).Update(env.ctx, "u1", map[string]any{"name": "Ayla"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	cached, err := env.svc.GetCharacter(env.ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if cached.Name != "" {
		t.Fatalf("read bypassed the cache inside the TTL")
	}

	env.clock.Advance(11 * time.Second)
	fresh, err := env.svc.GetCharacter(env.ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if fresh.Name != "Ayla" {
		t.Fatalf("expired entry was served: %+v", fresh)
	}
}

func TestQuestCacheReflectsMutations(t *testing.T) {
	env := newTestService(t)
	if _, err := env.svc.ListQuests(env.ctx, ReadOptions{}); err != nil {
		t.Fatalf("ListQuests: %v", err)
	}
	q := env.create(t, QuestDefinition{Title: "Water plants", Type: QuestSide, XPReward: 5})
	env.setStatus(t, q.ID, StatusInProgress)

	qs, err := env.svc.ListQuests(env.ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ListQuests: %v", err)
	}
	if len(qs) != 1 || qs[0].Status != string(StatusInProgress) {
		t.Fatalf("cached quests = %+v", qs)
	}
	stored, err := env.svc.GetQuest(env.ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuest: %v", err)
	}
	if qs[0].Version != stored.Version || !qs[0].UpdatedAt.Equal(stored.UpdatedAt) {
		t.Fatalf("cached version %d/%v, stored %d/%v", qs[0].Version, qs[0].UpdatedAt, stored.Version, stored.UpdatedAt)
	}
}

func TestResolveQuestIDAndReset(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Dentist", Type: QuestSide, XPReward: 25})
	env.setStatus(t, q.ID, StatusCompleted)

	id, err := env.svc.ResolveQuestID(env.ctx, q.ID[:8])
	if err != nil || id != q.ID {
		t.Fatalf("ResolveQuestID = %q, %v", id, err)
	}
	if _, err := env.svc.ResolveQuestID(env.ctx, "zzzz-none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown prefix err = %v", err)
	}

	c, err := env.svc.ResetCharacter(env.ctx)
	if err != nil {
		t.Fatalf("ResetCharacter: %v", err)
	}
	if c.TotalXPEarned != 0 || c.Level != 1 {
		t.Fatalf("character after reset: %+v", c)
	}
	qs, err := env.svc.ListQuests(env.ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ListQuests: %v", err)
	}
	if len(qs) != 0 || len(env.journal(t)) != 0 {
		t.Fatalf("reset left %d quests and %d journal entries", len(qs), len(env.journal(t)))
	}
}

func TestMilestones(t *testing.T) {
	env := newTestService(t)
	q := env.create(t, QuestDefinition{Title: "Final boss", Type: QuestBossFight, XPReward: 300})
	env.setStatus(t, q.ID, StatusCompleted)

	ms, err := env.svc.Milestones(env.ctx)
	if err != nil {
		t.Fatalf("Milestones: %v", err)
	}
	earned := map[string]bool{}
	for _, m := range ms {
		earned[m.ID] = m.Earned
	}
	for _, id := range []string{"first_steps", "first_quest", "giant_slayer"} {
		if !earned[id] {
			t.Fatalf("milestone %s not earned", id)
		}
	}
	if earned["productive"] || earned["kindling"] {
		t.Fatalf("unexpected milestones earned: %v", earned)
	}
}

func TestParseStatDelta(t *testing.T) {
	d, err := ParseStatDelta("focus=1, str=+2,int=-1")
	if err != nil {
		t.Fatalf("ParseStatDelta: %v", err)
	}
	if d[AttributeFocus] != 1 || d[AttributeStrength] != 2 || d[AttributeIntelligence] != -1 {
		t.Fatalf("delta = %v", d)
	}
	if _, err := ParseStatDelta("luck=3"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown attribute err = %v", err)
	}
	if _, err := ParseStatDelta("focus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing amount err = %v", err)
	}
}
