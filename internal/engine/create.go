package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lifequest/internal/storage"
)

// QuestDefinition is the input for a new quest.
type QuestDefinition struct {
	Title       string
	Description string
	Type        QuestType
	XPReward    int
	StatRewards StatDelta
	Deadline    *time.Time
	EndDate     *time.Time
	Repeat      Repeat
	Tasks       []string
	// NoPenalty exempts a daily quest from the missed-day penalty.
	NoPenalty bool
}

func (d QuestDefinition) normalize() (QuestDefinition, error) {
	title, err := normalizeTitle(d.Title)
	if err != nil {
		return d, err
	}
	d.Title = title
	if d.Type == "" {
		d.Type = QuestSide
	}
	if !d.Type.IsValid() {
		return d, invalidInput("unknown quest type %q", d.Type)
	}
	if d.XPReward < 0 {
		return d, invalidInput("xp reward must not be negative")
	}
	if err := d.StatRewards.validate(); err != nil {
		return d, err
	}
	for attr, v := range d.StatRewards {
		if v < 0 {
			return d, invalidInput("stat reward for %s must not be negative", attr)
		}
	}
	if d.Repeat == "" {
		d.Repeat = RepeatNone
		if d.Type == QuestDaily {
			d.Repeat = RepeatDaily
		}
	}
	if !d.Repeat.IsValid() {
		return d, invalidInput("unknown repeat %q", d.Repeat)
	}
	if d.Deadline != nil && d.EndDate != nil && d.EndDate.Before(*d.Deadline) {
		return d, invalidInput("end date is before the deadline")
	}
	var tasks []string
	for _, t := range d.Tasks {
		t, err := normalizeTitle(t)
		if err != nil {
			return d, invalidInput("task titles must not be empty")
		}
		tasks = append(tasks, t)
	}
	d.Tasks = tasks
	return d, nil
}

// CreateQuest validates def and stores a new quest in the initial status of
// its type.
func (s *Service) CreateQuest(ctx context.Context, def QuestDefinition) (*storage.Quest, error) {
	uid, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	def, err = def.normalize()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	q := &storage.Quest{
		Title:          def.Title,
		Description:    def.Description,
		Type:           string(def.Type),
		Status:         string(def.Type.InitialStatus()),
		XPReward:       def.XPReward,
		Deadline:       def.Deadline,
		EndDate:        def.EndDate,
		Repeat:         string(def.Repeat),
		PenalizeOnMiss: def.Type == QuestDaily && !def.NoPenalty,
		CreatedAt:      now,
	}
	if !def.StatRewards.IsEmpty() {
		q.StatRewards = def.StatRewards.stored()
	}
	for _, t := range def.Tasks {
		q.Tasks = append(q.Tasks, storage.QuestTask{Title: t})
	}

	id, err := storage.NewQuestRepo(s.store).Insert(ctx, uid, q)
	if err != nil {
		return nil, storeErr("create quest", err)
	}
	q.ID = id
	q.Version = 1
	q.UpdatedAt = now
	s.quests.Update(uid, replaceQuest(*q))

	s.log.Debug("quest created",
		zap.String("user", uid),
		zap.String("quest_id", id),
		zap.String("type", q.Type),
		zap.Int("xp_reward", q.XPReward),
	)
	return q, nil
}
