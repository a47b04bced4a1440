package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"lifequest/internal/storage"
	"lifequest/internal/timeutil"
)

// DailyCycleResult reports what one run of the daily cycle did.
type DailyCycleResult struct {
	Day string
	// Ran is false when the cycle had already run for Day.
	Ran       bool
	Failed    []storage.Quest
	Penalty   int
	Reset     []storage.Quest
	Recurring []storage.Quest
	Character *storage.Character
}

func dailyMarkerKey(uid string) string { return "daily-cycle/" + uid }

// withinWindow reports whether q's end date has not passed yet.
func withinWindow(q storage.Quest, now time.Time) bool {
	return q.EndDate == nil || !now.After(*q.EndDate)
}

// RunDailyCycle runs at most once per calendar day. It first fails daily
// quests left open on an earlier day and charges the penalty, then reopens
// repeating dailies and any other repeating quest that is due again.
func (s *Service) RunDailyCycle(ctx context.Context) (*DailyCycleResult, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	day := timeutil.DayKey(now)
	res := &DailyCycleResult{Day: day}

	last, ok, err := s.markers.Get(ctx, dailyMarkerKey(uid))
	if err != nil {
		return nil, storeErr("read daily marker", err)
	}
	if ok && last >= day {
		return res, nil
	}
	ctx = context.WithoutCancel(ctx)

	err = s.store.RunTx(ctx, func(tx storage.DocumentStore) error {
		if err := s.evaluateMissedDailies(ctx, tx, uid, now, res); err != nil {
			return err
		}
		return s.reopenQuests(ctx, tx, uid, now, res)
	})
	s.quests.Invalidate(uid)
	if err != nil {
		s.characters.Invalidate(uid)
		s.log.Error("daily cycle failed", zap.String("user", uid), zap.String("day", day), zap.Error(err))
		return nil, storeErr("daily cycle", err)
	}
	if res.Character != nil {
		s.characters.Set(uid, *res.Character)
	}

	if err := s.markers.Set(ctx, dailyMarkerKey(uid), day); err != nil {
		s.log.Error("daily cycle ran but marker was not saved", zap.String("user", uid), zap.Error(err))
		return nil, storeErr("save daily marker", err)
	}
	res.Ran = true
	s.log.Info("daily cycle",
		zap.String("user", uid),
		zap.String("day", day),
		zap.Int("failed", len(res.Failed)),
		zap.Int("penalty", res.Penalty),
		zap.Int("reset", len(res.Reset)),
		zap.Int("recurring", len(res.Recurring)),
	)
	return res, nil
}

// evaluateMissedDailies fails penalty-eligible dailies that are still open and
// were last touched before today, then charges one aggregate penalty.
func (s *Service) evaluateMissedDailies(ctx context.Context, tx storage.DocumentStore, uid string, now time.Time, res *DailyCycleResult) error {
	repo := storage.NewQuestRepo(tx)
	// type and status are classified by the stored-value parsers, not in SQL,
	// so hand-edited casing is judged the same way everywhere.
	qs, err := repo.List(ctx, uid, storage.Query{Filters: []storage.Filter{
		storage.Where("penalizeOnMiss", storage.OpEq, true),
	}})
	if err != nil {
		return err
	}

	today := timeutil.StartOfDay(now)
	sum := 0
	for i := range qs {
		q := &qs[i]
		if parseStoredType(q.Type) != QuestDaily {
			continue
		}
		st := parseStoredStatus(q.Status)
		if st != StatusAvailable && st != StatusInProgress {
			continue
		}
		if !withinWindow(*q, now) || !q.UpdatedAt.Before(today) {
			continue
		}
		if _, err := s.applyTransition(ctx, tx, uid, q, StatusFailed, nil, CauseDailyCycle); err != nil {
			return err
		}
		res.Failed = append(res.Failed, *q)
		sum += q.XPReward
	}

	res.Penalty = int(math.Floor(float64(sum) * s.balance.PenaltyRatio))
	if res.Penalty <= 0 {
		return nil
	}

	c, err := s.loadCharacter(ctx, tx, uid)
	if err != nil {
		return err
	}
	s.applyXPDelta(c, -res.Penalty)
	if err := storage.NewCharacterRepo(tx).UpdateProgress(ctx, uid, c); err != nil {
		return err
	}
	c.Version++
	res.Character = c

	titles := make([]string, 0, len(res.Failed))
	for _, q := range res.Failed {
		titles = append(titles, q.Title)
	}
	entry := &storage.JournalEntry{
		Kind:        JournalDailyPenalty,
		Title:       "Daily quests missed",
		Description: fmt.Sprintf("%d left incomplete: %s", len(res.Failed), strings.Join(titles, ", ")),
		XPGained:    -res.Penalty,
		Timestamp:   now,
	}
	_, err = storage.NewJournalRepo(tx).Append(ctx, uid, entry)
	return err
}

// reopenQuests moves repeating quests back to InProgress in one batch: daily
// quests that finished or failed, and weekly or monthly ones whose next due
// date has come.
func (s *Service) reopenQuests(ctx context.Context, tx storage.DocumentStore, uid string, now time.Time, res *DailyCycleResult) error {
	qs, err := storage.NewQuestRepo(tx).ListAll(ctx, uid)
	if err != nil {
		return err
	}

	justFailed := make(map[string]bool, len(res.Failed))
	for _, q := range res.Failed {
		justFailed[q.ID] = true
	}

	var updates []storage.Update
	for _, q := range qs {
		if !withinWindow(q, now) {
			continue
		}
		st := parseStoredStatus(q.Status)
		repeat := parseStoredRepeat(q.Repeat)
		qt := parseStoredType(q.Type)

		var bucket *[]storage.Quest
		switch {
		case qt == QuestDaily && repeat == RepeatDaily:
			if st != StatusCompleted && st != StatusFailed {
				continue
			}
			// Finished today means it already counts for today.
			if timeutil.SameDay(now, q.UpdatedAt) && !justFailed[q.ID] {
				continue
			}
			bucket = &res.Reset
		case repeat != RepeatNone:
			if st != StatusCompleted || q.CompletedAt == nil {
				continue
			}
			due, err := NextDueDate(*q.CompletedAt, repeat)
			if err != nil || timeutil.StartOfDay(due).After(now) {
				continue
			}
			bucket = &res.Recurring
		default:
			continue
		}
		if _, err := TransitionEffect(st, StatusInProgress, CauseDailyCycle); err != nil {
			return err
		}

		fields := map[string]any{"status": string(StatusInProgress), "progress": 0}
		if len(q.Tasks) > 0 {
			tasks := make([]storage.QuestTask, len(q.Tasks))
			for i, t := range q.Tasks {
				tasks[i] = storage.QuestTask{Title: t.Title}
			}
			fields["tasks"] = tasks
			q.Tasks = tasks
		}
		updates = append(updates, storage.Update{Path: storage.QuestPath(uid, q.ID), Data: fields})
		q.Status = string(StatusInProgress)
		q.Progress = 0
		*bucket = append(*bucket, q)
	}
	return tx.BatchUpdate(ctx, updates)
}
