package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lifequest/internal/auth"
	"lifequest/internal/cache"
	"lifequest/internal/storage"
	"lifequest/internal/timeutil"
)

// Balance holds the tunable numbers of the progression rules.
type Balance struct {
	Curve        Curve
	BaseStat     int
	StatFloor    int
	PenaltyRatio float64
}

func DefaultBalance() Balance {
	return Balance{
		Curve:        DefaultCurve,
		BaseStat:     5,
		StatFloor:    0,
		PenaltyRatio: 0.5,
	}
}

// MarkerStore keeps small client-local values such as the last daily cycle day.
type MarkerStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Option func(*Service)

func WithClock(c timeutil.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithBalance(b Balance) Option {
	return func(s *Service) { s.balance = b }
}

// WithCacheTiming sets the read cache TTL and the per-user fetch throttle.
func WithCacheTiming(ttl, throttle time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
		s.cacheThrottle = throttle
	}
}

type Service struct {
	store   storage.DocumentStore
	markers MarkerStore
	clock   timeutil.Clock
	log     *zap.Logger
	balance Balance

	cacheTTL      time.Duration
	cacheThrottle time.Duration
	characters    *cache.Cache[storage.Character]
	quests        *cache.Cache[[]storage.Quest]
}

func NewService(store storage.DocumentStore, markers MarkerStore, opts ...Option) *Service {
	s := &Service{
		store:         store,
		markers:       markers,
		clock:         timeutil.RealClock{},
		log:           zap.NewNop(),
		balance:       DefaultBalance(),
		cacheTTL:      cache.DefaultTTL,
		cacheThrottle: cache.DefaultFetchThrottle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.characters = cache.New[storage.Character]("character", cache.Options[storage.Character]{
		TTL:           s.cacheTTL,
		FetchThrottle: s.cacheThrottle,
		Clock:         s.clock,
		Logger:        s.log,
		Clone:         storage.Character.Clone,
	})
	s.quests = cache.New[[]storage.Quest]("quests", cache.Options[[]storage.Quest]{
		TTL:           s.cacheTTL,
		FetchThrottle: s.cacheThrottle,
		Clock:         s.clock,
		Logger:        s.log,
		Clone:         cloneQuests,
	})
	return s
}

func (s *Service) Balance() Balance { return s.balance }

// ReadOptions controls how a read uses the cache.
type ReadOptions struct {
	// Force skips the cache and the fetch throttle.
	Force bool
}

func (s *Service) user(ctx context.Context) (string, error) {
	uid, ok := auth.UserID(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	return uid, nil
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", invalidInput("title is required")
	}
	return t, nil
}

func cloneQuests(qs []storage.Quest) []storage.Quest {
	if qs == nil {
		return nil
	}
	out := make([]storage.Quest, len(qs))
	for i := range qs {
		out[i] = qs[i].Clone()
	}
	return out
}

// replaceQuest returns a cache update that swaps in q by id.
func replaceQuest(q storage.Quest) func([]storage.Quest) []storage.Quest {
	return func(qs []storage.Quest) []storage.Quest {
		for i := range qs {
			if qs[i].ID == q.ID {
				qs[i] = q.Clone()
				return qs
			}
		}
		return append(qs, q.Clone())
	}
}

func (s *Service) newCharacter(now time.Time) *storage.Character {
	stats := make(map[string]int, len(Attributes))
	for _, a := range Attributes {
		stats[string(a)] = s.balance.BaseStat
	}
	return &storage.Character{
		Level:         1,
		XP:            0,
		XPToNextLevel: s.balance.Curve.base(),
		Stats:         stats,
		LastActive:    timeutil.Timestamp{},
		CreatedAt:     now,
	}
}

// loadCharacter reads the character through ds, creating it on first use and
// repairing documents written without a full attribute set or threshold.
func (s *Service) loadCharacter(ctx context.Context, ds storage.DocumentStore, uid string) (*storage.Character, error) {
	repo := storage.NewCharacterRepo(ds)
	c, err := repo.Get(ctx, uid)
	if err != nil {
		return nil, storeErr("load character", err)
	}
	if c == nil {
		if err := repo.Save(ctx, uid, s.newCharacter(s.clock.Now())); err != nil {
			return nil, storeErr("create character", err)
		}
		s.log.Info("character created", zap.String("user", uid))
		if c, err = repo.Get(ctx, uid); err != nil {
			return nil, storeErr("load character", err)
		}
		if c == nil {
			return nil, fmt.Errorf("character for %s: %w", uid, ErrNotFound)
		}
		return c, nil
	}

	fix := map[string]any{}
	if c.Stats == nil {
		c.Stats = map[string]int{}
	}
	missing := false
	for _, a := range Attributes {
		if _, ok := c.Stats[string(a)]; !ok {
			c.Stats[string(a)] = s.balance.BaseStat
			missing = true
		}
	}
	if missing {
		fix["stats"] = c.Stats
	}
	if c.Level < 1 || c.XPToNextLevel <= 0 {
		p := s.balance.Curve.RemoveXP(c.TotalXPEarned, 0)
		c.Level, c.XP, c.XPToNextLevel = p.Level, p.XP, p.XPToNextLevel
		fix["level"], fix["xp"], fix["xpToNextLevel"] = c.Level, c.XP, c.XPToNextLevel
	}
	if len(fix) > 0 {
		if err := repo.Update(ctx, uid, fix); err != nil {
			return nil, storeErr("repair character", err)
		}
		c.Version++
	}
	return c, nil
}

// GetCharacter returns the signed-in user's character, creating it with
// default values on first use.
func (s *Service) GetCharacter(ctx context.Context, opts ReadOptions) (*storage.Character, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.characters.Get(ctx, uid, opts.Force, func(ctx context.Context) (storage.Character, error) {
		c, err := s.loadCharacter(ctx, s.store, uid)
		if err != nil {
			return storage.Character{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListQuests(ctx context.Context, opts ReadOptions) ([]storage.Quest, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	return s.quests.Get(ctx, uid, opts.Force, func(ctx context.Context) ([]storage.Quest, error) {
		qs, err := storage.NewQuestRepo(s.store).ListAll(ctx, uid)
		if err != nil {
			return nil, storeErr("list quests", err)
		}
		return qs, nil
	})
}

// GetQuest always reads the store.
func (s *Service) GetQuest(ctx context.Context, id string) (*storage.Quest, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	q, err := storage.NewQuestRepo(s.store).Get(ctx, uid, id)
	if err != nil {
		return nil, storeErr("get quest", err)
	}
	if q == nil {
		return nil, fmt.Errorf("quest %s: %w", id, ErrNotFound)
	}
	return q, nil
}

// ResolveQuestID expands a unique id prefix to the full quest id.
func (s *Service) ResolveQuestID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", invalidInput("quest id is required")
	}
	qs, err := s.ListQuests(ctx, ReadOptions{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, q := range qs {
		if q.ID == prefix {
			return q.ID, nil
		}
		if strings.HasPrefix(q.ID, prefix) {
			matches = append(matches, q.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("quest %s: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", invalidInput("quest id %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// GrantXP moves the character along the curve. Positive deltas roll forward;
// negative ones replay the curve from the reduced lifetime total.
func (s *Service) GrantXP(ctx context.Context, delta int) (*storage.Character, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return s.GetCharacter(ctx, ReadOptions{})
	}
	ctx = context.WithoutCancel(ctx)

	var out *storage.Character
	err = s.store.RunTx(ctx, func(tx storage.DocumentStore) error {
		c, err := s.loadCharacter(ctx, tx, uid)
		if err != nil {
			return err
		}
		before := c.TotalXPEarned
		s.applyXPDelta(c, delta)
		if err := storage.NewCharacterRepo(tx).UpdateProgress(ctx, uid, c); err != nil {
			return err
		}
		c.Version++

		// The removal path clamps at zero, so journal what actually moved.
		applied := delta
		if delta < 0 {
			applied = c.TotalXPEarned - before
		}
		if applied == 0 {
			out = c
			return nil
		}
		entry := &storage.JournalEntry{
			Kind:        JournalXPAdjusted,
			Title:       "XP adjusted",
			XPGained:    applied,
			StatsGained: map[string]int{},
			Timestamp:   s.clock.Now(),
		}
		if _, err := storage.NewJournalRepo(tx).Append(ctx, uid, entry); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		s.log.Warn("grant xp failed", zap.String("user", uid), zap.Int("xp_delta", delta), zap.Error(err))
		return nil, storeErr("grant xp", err)
	}
	s.characters.Set(uid, *out)
	s.log.Debug("xp granted", zap.String("user", uid), zap.Int("xp_delta", delta), zap.Int("level", out.Level))
	return out, nil
}

func (s *Service) applyXPDelta(c *storage.Character, delta int) {
	p := Progress{Level: c.Level, XP: c.XP, XPToNextLevel: c.XPToNextLevel, TotalXPEarned: c.TotalXPEarned}
	if delta > 0 {
		p = s.balance.Curve.Grant(p, delta)
	} else if delta < 0 {
		p = s.balance.Curve.RemoveXP(c.TotalXPEarned, -delta)
	}
	c.Level, c.XP, c.XPToNextLevel, c.TotalXPEarned = p.Level, p.XP, p.XPToNextLevel, p.TotalXPEarned
}

// MergeCharacterStats adds delta to the character's attributes. An empty delta
// is answered from the cache without touching the store.
func (s *Service) MergeCharacterStats(ctx context.Context, delta StatDelta) (*storage.Character, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	if err := delta.validate(); err != nil {
		return nil, err
	}
	if delta.IsEmpty() {
		return s.GetCharacter(ctx, ReadOptions{})
	}
	ctx = context.WithoutCancel(ctx)

	var out *storage.Character
	err = s.store.RunTx(ctx, func(tx storage.DocumentStore) error {
		c, err := s.loadCharacter(ctx, tx, uid)
		if err != nil {
			return err
		}
		merged := MergeStats(c.Stats, delta, s.balance.StatFloor)
		applied := StatDiff(c.Stats, merged)
		c.Stats = merged
		if applied.IsEmpty() {
			// Everything was clamped at the floor.
			out = c
			return nil
		}
		if err := storage.NewCharacterRepo(tx).Update(ctx, uid, map[string]any{"stats": c.Stats}); err != nil {
			return err
		}
		c.Version++

		entry := &storage.JournalEntry{
			Kind:        JournalStatsAdjusted,
			Title:       "Attributes adjusted",
			StatsGained: applied.stored(),
			Timestamp:   s.clock.Now(),
		}
		if _, err := storage.NewJournalRepo(tx).Append(ctx, uid, entry); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, storeErr("merge stats", err)
	}
	s.characters.Set(uid, *out)
	return out, nil
}

func (s *Service) ListJournal(ctx context.Context, limit int) ([]storage.JournalEntry, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := storage.NewJournalRepo(s.store).List(ctx, uid, limit)
	if err != nil {
		return nil, storeErr("list journal", err)
	}
	return entries, nil
}

// ResetCharacter deletes every quest and journal entry of the user and starts
// the character over.
func (s *Service) ResetCharacter(ctx context.Context) (*storage.Character, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	err = s.store.RunTx(ctx, func(tx storage.DocumentStore) error {
		if err := storage.NewQuestRepo(tx).DeleteAll(ctx, uid); err != nil {
			return err
		}
		if err := storage.NewJournalRepo(tx).DeleteAll(ctx, uid); err != nil {
			return err
		}
		return storage.NewCharacterRepo(tx).Save(ctx, uid, s.newCharacter(s.clock.Now()))
	})
	s.characters.Invalidate(uid)
	s.quests.Invalidate(uid)
	if err != nil {
		return nil, storeErr("reset character", err)
	}
	if err := s.markers.Delete(ctx, dailyMarkerKey(uid)); err != nil {
		return nil, storeErr("clear daily marker", err)
	}
	s.log.Info("character reset", zap.String("user", uid))
	return s.GetCharacter(ctx, ReadOptions{Force: true})
}

// SessionResult is what a session start produced.
type SessionResult struct {
	Daily  *DailyCycleResult
	Streak *StreakResult
}

// StartSession runs the daily cycle and then re-evaluates the streak. It is
// safe to call on every start.
func (s *Service) StartSession(ctx context.Context) (*SessionResult, error) {
	daily, err := s.RunDailyCycle(ctx)
	if err != nil {
		return nil, err
	}
	streak, err := s.EvaluateStreak(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Daily: daily, Streak: streak}, nil
}

