package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lifequest/internal/cache"
	"lifequest/internal/storage"
)

// Effect is the side effect a status change has on the character.
type Effect int

const (
	EffectNone Effect = iota
	EffectGrant
	EffectRevoke
)

func (e Effect) String() string {
	switch e {
	case EffectGrant:
		return "grant"
	case EffectRevoke:
		return "revoke"
	default:
		return "none"
	}
}

// Cause says who asked for a status change. The daily cycle reopens finished
// quests for a new day without taking their rewards back.
type Cause int

const (
	CauseUser Cause = iota
	CauseDailyCycle
)

type transitionKey struct {
	from, to QuestStatus
	cause    Cause
}

var transitions = map[transitionKey]Effect{
	{StatusAvailable, StatusInProgress, CauseUser}: EffectNone,
	{StatusAvailable, StatusCompleted, CauseUser}:  EffectGrant,
	{StatusAvailable, StatusFailed, CauseUser}:     EffectNone,
	{StatusInProgress, StatusCompleted, CauseUser}: EffectGrant,
	{StatusInProgress, StatusFailed, CauseUser}:    EffectNone,
	{StatusCompleted, StatusInProgress, CauseUser}: EffectRevoke,
	{StatusCompleted, StatusAvailable, CauseUser}:  EffectRevoke,
	{StatusFailed, StatusInProgress, CauseUser}:    EffectNone,
	{StatusFailed, StatusAvailable, CauseUser}:     EffectNone,

	{StatusAvailable, StatusFailed, CauseDailyCycle}:     EffectNone,
	{StatusInProgress, StatusFailed, CauseDailyCycle}:    EffectNone,
	{StatusCompleted, StatusInProgress, CauseDailyCycle}: EffectNone,
	{StatusFailed, StatusInProgress, CauseDailyCycle}:    EffectNone,
}

// TransitionEffect looks up a status change. Staying in the same status is
// always allowed and has no effect.
func TransitionEffect(from, to QuestStatus, cause Cause) (Effect, error) {
	if from == to {
		return EffectNone, nil
	}
	effect, ok := transitions[transitionKey{from, to, cause}]
	if !ok {
		return EffectNone, &TransitionError{From: from, To: to}
	}
	return effect, nil
}

// TransitionResult describes what a status change did.
type TransitionResult struct {
	Quest       storage.Quest
	From        QuestStatus
	To          QuestStatus
	Effect      Effect
	XPDelta     int
	Stats       StatDelta
	LevelBefore int
	LevelAfter  int
	// Character is set when the change touched the character.
	Character *storage.Character
	// Streak is set when a daily quest's reward changed hands.
	Streak *StreakResult
}

func (r *TransitionResult) Changed() bool { return r.From != r.To }

func (r *TransitionResult) LevelUp() bool { return r.LevelAfter > r.LevelBefore }

// SetQuestStatus moves a quest to status and applies the reward side effects.
// The quest is re-read inside the transaction and written with a version
// check, so two racing calls cannot both grant or both revoke.
func (s *Service) SetQuestStatus(ctx context.Context, id string, status QuestStatus) (*TransitionResult, error) {
	if !status.IsValid() {
		return nil, invalidInput("unknown quest status %q", status)
	}
	return s.mutateQuest(ctx, id, func(q *storage.Quest) (QuestStatus, map[string]any, error) {
		return status, nil, nil
	})
}

// questMutation decides the target status and any extra fields to write for q.
type questMutation func(q *storage.Quest) (QuestStatus, map[string]any, error)

func (s *Service) mutateQuest(ctx context.Context, id string, mutate questMutation) (*TransitionResult, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	// Once the status write is issued the reward must follow, whatever the
	// caller does with its context.
	ctx = context.WithoutCancel(ctx)

	var (
		res     *TransitionResult
		pending *cache.Pending[[]storage.Quest]
	)
	err = s.store.RunTx(ctx, func(tx storage.DocumentStore) error {
		q, err := storage.NewQuestRepo(tx).Get(ctx, uid, id)
		if err != nil {
			return err
		}
		if q == nil {
			return fmt.Errorf("quest %s: %w", id, ErrNotFound)
		}
		to, extra, err := mutate(q)
		if err != nil {
			return err
		}
		res, err = s.applyTransition(ctx, tx, uid, q, to, extra, CauseUser)
		if err != nil {
			return err
		}
		if res.Changed() || len(extra) > 0 {
			pending = s.quests.Stage(uid, replaceQuest(res.Quest))
		}
		return nil
	})
	if err != nil {
		if pending != nil {
			pending.Rollback()
		}
		s.log.Warn("quest transition failed", zap.String("user", uid), zap.String("quest_id", id), zap.Error(err))
		return nil, storeErr("set quest status", err)
	}
	if pending != nil {
		s.confirmQuest(ctx, uid, id, pending)
	}
	if res.Character != nil {
		s.characters.Set(uid, *res.Character)
	}
	if !res.Changed() {
		return res, nil
	}

	s.log.Debug("quest transition",
		zap.String("user", uid),
		zap.String("quest_id", id),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.To)),
		zap.Stringer("effect", res.Effect),
		zap.Int("xp_delta", res.XPDelta),
	)

	if parseStoredType(res.Quest.Type) == QuestDaily && res.Effect != EffectNone {
		streak, err := s.EvaluateStreak(ctx)
		if err != nil {
			// The transition is committed; the next session start evaluates again.
			s.log.Warn("streak evaluation after transition failed", zap.String("quest_id", id), zap.Error(err))
		} else {
			res.Streak = streak
			if streak.Changed {
				if c, ok := s.characters.Peek(uid); ok {
					res.Character = &c
				}
			}
		}
	}
	return res, nil
}

// confirmQuest swaps the staged projection for the quest as committed, with
// its new version. If the re-read fails the projection is kept.
func (s *Service) confirmQuest(ctx context.Context, uid, id string, pending *cache.Pending[[]storage.Quest]) {
	fresh, err := storage.NewQuestRepo(s.store).Get(ctx, uid, id)
	if err != nil || fresh == nil {
		s.log.Debug("keeping projected quest", zap.String("quest_id", id), zap.Error(err))
		pending.Commit()
		return
	}
	current, ok := s.quests.Peek(uid)
	if !ok {
		pending.Commit()
		return
	}
	pending.Confirm(replaceQuest(*fresh)(current))
}

// applyTransition writes the status change of q through tx and applies its
// effect on the character. q is updated in place to the written state.
func (s *Service) applyTransition(ctx context.Context, tx storage.DocumentStore, uid string, q *storage.Quest, to QuestStatus, extra map[string]any, cause Cause) (*TransitionResult, error) {
	from := parseStoredStatus(q.Status)
	res := &TransitionResult{From: from, To: to}

	effect, err := TransitionEffect(from, to, cause)
	if err != nil {
		return nil, err
	}
	res.Effect = effect
	if from == to && len(extra) == 0 {
		res.Quest = *q
		return res, nil
	}

	now := s.clock.Now()
	fields := map[string]any{}
	for k, v := range extra {
		fields[k] = v
	}
	if from != to {
		fields["status"] = string(to)
		q.Status = string(to)
		if to == StatusCompleted {
			fields["completedAt"] = now
			q.CompletedAt = &now
		}
		if len(q.Tasks) == 0 && cause == CauseUser {
			progress := 0
			if to == StatusCompleted {
				progress = 100
			}
			fields["progress"] = progress
			q.Progress = progress
		}
	}
	if err := storage.NewQuestRepo(tx).UpdateFields(ctx, uid, q.ID, fields, q.Version); err != nil {
		return nil, err
	}
	q.Version++
	q.UpdatedAt = now
	res.Quest = *q

	switch effect {
	case EffectGrant:
		err = s.grantReward(ctx, tx, uid, q, res)
	case EffectRevoke:
		err = s.revokeReward(ctx, tx, uid, q, res)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
