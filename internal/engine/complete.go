package engine

import (
	"context"

	"lifequest/internal/storage"
)

const (
	JournalQuestCompleted = "quest_completed"
	JournalQuestReopened  = "quest_reopened"
	JournalDailyPenalty   = "daily_penalty"
	JournalXPAdjusted     = "xp_adjusted"
	JournalStatsAdjusted  = "stats_adjusted"
)

// grantReward adds the quest's XP and stat rewards to the character and
// journals what was granted.
func (s *Service) grantReward(ctx context.Context, tx storage.DocumentStore, uid string, q *storage.Quest, res *TransitionResult) error {
	c, err := s.loadCharacter(ctx, tx, uid)
	if err != nil {
		return err
	}
	res.LevelBefore = c.Level

	s.applyXPDelta(c, q.XPReward)
	rewards := statDeltaFromStored(q.StatRewards)
	if !rewards.IsEmpty() {
		c.Stats = MergeStats(c.Stats, rewards, s.balance.StatFloor)
	}
	if err := storage.NewCharacterRepo(tx).UpdateProgress(ctx, uid, c); err != nil {
		return err
	}
	c.Version++

	entry := &storage.JournalEntry{
		Kind:        JournalQuestCompleted,
		Title:       "Quest completed: " + q.Title,
		Description: q.Description,
		XPGained:    q.XPReward,
		StatsGained: rewards.stored(),
		QuestID:     q.ID,
		Timestamp:   s.clock.Now(),
	}
	if _, err := storage.NewJournalRepo(tx).Append(ctx, uid, entry); err != nil {
		return err
	}

	res.XPDelta = q.XPReward
	res.Stats = rewards
	res.LevelAfter = c.Level
	res.Character = c
	return nil
}

// revokeReward takes a completed quest's rewards back. XP goes through the
// full replay; the journal keeps the original grant and records the reversal
// with an empty stat map.
func (s *Service) revokeReward(ctx context.Context, tx storage.DocumentStore, uid string, q *storage.Quest, res *TransitionResult) error {
	c, err := s.loadCharacter(ctx, tx, uid)
	if err != nil {
		return err
	}
	res.LevelBefore = c.Level

	s.applyXPDelta(c, -q.XPReward)
	rewards := statDeltaFromStored(q.StatRewards).Negate()
	if !rewards.IsEmpty() {
		c.Stats = MergeStats(c.Stats, rewards, s.balance.StatFloor)
	}
	if err := storage.NewCharacterRepo(tx).UpdateProgress(ctx, uid, c); err != nil {
		return err
	}
	c.Version++

	entry := &storage.JournalEntry{
		Kind:        JournalQuestReopened,
		Title:       "Quest reopened: " + q.Title,
		XPGained:    -q.XPReward,
		StatsGained: map[string]int{},
		QuestID:     q.ID,
		Timestamp:   s.clock.Now(),
	}
	if _, err := storage.NewJournalRepo(tx).Append(ctx, uid, entry); err != nil {
		return err
	}

	res.XPDelta = -q.XPReward
	res.Stats = rewards
	res.LevelAfter = c.Level
	res.Character = c
	return nil
}
