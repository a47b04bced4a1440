package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifequest/internal/storage"
	"lifequest/internal/timeutil"
)

// StreakOutcome is the result of evaluating a streak against today.
type StreakOutcome struct {
	StreakCount int
	Message     string
	// Changed means the count must be written along with lastActive=now.
	Changed bool
}

// EvaluateStreak compares lastActive with now by calendar day. A lastActive
// that is missing or cannot be read counts as today.
func EvaluateStreak(streak int, lastActive timeutil.Timestamp, now time.Time, completedToday bool) StreakOutcome {
	if streak < 0 {
		streak = 0
	}
	last := lastActive.Resolve(now).In(now.Location())
	diff := timeutil.DaysBetween(timeutil.StartOfDay(now), timeutil.StartOfDay(last))

	switch {
	case diff == 0:
		switch {
		case completedToday && streak == 0:
			return StreakOutcome{StreakCount: 1, Message: "Streak started! Day 1.", Changed: true}
		case completedToday:
			return StreakOutcome{StreakCount: streak, Message: fmt.Sprintf("%s Keep it up!", dayCount(streak))}
		case streak > 0:
			return StreakOutcome{StreakCount: streak, Message: fmt.Sprintf("%s Complete a daily quest to keep it going.", dayCount(streak))}
		default:
			return StreakOutcome{StreakCount: 0, Message: "Complete a daily quest to start a streak."}
		}
	case diff == 1:
		if completedToday {
			return StreakOutcome{StreakCount: streak + 1, Message: fmt.Sprintf("Streak continued! %s", dayCount(streak+1)), Changed: true}
		}
		if streak > 0 {
			return StreakOutcome{StreakCount: streak, Message: fmt.Sprintf("%s Complete a daily quest today to extend it.", dayCount(streak))}
		}
		return StreakOutcome{StreakCount: 0, Message: "Complete a daily quest to start a streak."}
	default:
		if completedToday {
			return StreakOutcome{StreakCount: 1, Message: "Fresh start! Day 1.", Changed: true}
		}
		if streak > 0 {
			return StreakOutcome{StreakCount: 0, Message: fmt.Sprintf("Streak of %d days lost. Complete a daily quest to start again.", streak), Changed: true}
		}
		return StreakOutcome{StreakCount: 0, Message: "Complete a daily quest to start a streak."}
	}
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day streak."
	}
	return fmt.Sprintf("%d day streak.", n)
}

type StreakResult struct {
	StreakCount int
	Message     string
	Changed     bool
}

// EvaluateStreak evaluates the signed-in user's streak and persists it when it
// changed.
func (s *Service) EvaluateStreak(ctx context.Context) (*StreakResult, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.GetCharacter(ctx, ReadOptions{})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	completed, err := s.completedDailyToday(ctx, uid, now)
	if err != nil {
		return nil, err
	}

	out := EvaluateStreak(c.StreakCount, c.LastActive, now, completed)
	res := &StreakResult{StreakCount: out.StreakCount, Message: out.Message, Changed: out.Changed}
	if !out.Changed {
		return res, nil
	}

	lastActive := timeutil.Native(now)
	fields := map[string]any{"streakCount": out.StreakCount, "lastActive": lastActive}
	if err := storage.NewCharacterRepo(s.store).Update(context.WithoutCancel(ctx), uid, fields); err != nil {
		return nil, storeErr("save streak", err)
	}
	if !s.characters.Update(uid, func(c storage.Character) storage.Character {
		c.StreakCount = out.StreakCount
		c.LastActive = lastActive
		c.Version++
		return c
	}) {
		s.characters.Invalidate(uid)
	}
	s.log.Debug("streak updated", zap.String("user", uid), zap.Int("streak", out.StreakCount))
	return res, nil
}

// completedDailyToday reports whether a daily quest reached Completed today,
// judged by the store rather than any local counter.
func (s *Service) completedDailyToday(ctx context.Context, uid string, now time.Time) (bool, error) {
	qs, err := storage.NewQuestRepo(s.store).List(ctx, uid, storage.Query{
		UpdatedSince: timeutil.StartOfDay(now),
	})
	if err != nil {
		return false, storeErr("query completed dailies", err)
	}
	for _, q := range qs {
		if parseStoredType(q.Type) == QuestDaily && parseStoredStatus(q.Status) == StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}
