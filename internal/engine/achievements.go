package engine

import (
	"context"
	"fmt"

	"lifequest/internal/storage"
)

// Milestone is a badge the character earns once a threshold is reached.
type Milestone struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Earned      bool
}

// MilestoneChecker derives milestones from a snapshot of the character, its
// quests and its journal.
type MilestoneChecker struct {
	character *storage.Character
	quests    []storage.Quest
	journal   []storage.JournalEntry
}

func NewMilestoneChecker(c *storage.Character, quests []storage.Quest, journal []storage.JournalEntry) *MilestoneChecker {
	return &MilestoneChecker{character: c, quests: quests, journal: journal}
}

func (c *MilestoneChecker) Milestones() []Milestone {
	ms := []Milestone{
		c.levelMilestone("first_steps", "First Steps", "🌱", 2),
		c.levelMilestone("on_the_path", "On the Path", "🌳", 5),
		c.levelMilestone("seasoned", "Seasoned Adventurer", "⭐", 10),
		c.levelMilestone("veteran", "Veteran", "🌟", 20),

		c.completionMilestone("first_quest", "First Quest", "✓", 1),
		c.completionMilestone("productive", "Productive", "📋", 10),
		c.completionMilestone("achiever", "Achiever", "🏅", 50),
		c.completionMilestone("powerhouse", "Powerhouse", "🏆", 100),

		c.streakMilestone("kindling", "Kindling", "🔥", 3),
		c.streakMilestone("steady_flame", "Steady Flame", "🕯", 7),
		c.streakMilestone("wildfire", "Wildfire", "🌋", 30),

		c.typeMilestone("dungeon_crawler", "Dungeon Crawler", "🗝", QuestDungeon),
		c.typeMilestone("giant_slayer", "Giant Slayer", "🐉", QuestBossFight),
	}
	for _, a := range Attributes {
		ms = append(ms, c.attributeMilestone(a, 15))
	}
	return ms
}

func (c *MilestoneChecker) CountEarned() int {
	n := 0
	for _, m := range c.Milestones() {
		if m.Earned {
			n++
		}
	}
	return n
}

// netCompletions counts completions that were not later reopened.
func (c *MilestoneChecker) netCompletions() int {
	n := 0
	for _, e := range c.journal {
		switch e.Kind {
		case JournalQuestCompleted:
			n++
		case JournalQuestReopened:
			n--
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

func (c *MilestoneChecker) levelMilestone(id, name, icon string, level int) Milestone {
	return Milestone{
		ID:          id,
		Name:        name,
		Description: fmt.Sprintf("Reach level %d", level),
		Icon:        icon,
		Earned:      c.character.Level >= level,
	}
}

func (c *MilestoneChecker) completionMilestone(id, name, icon string, count int) Milestone {
	desc := fmt.Sprintf("Complete %d quests", count)
	if count == 1 {
		desc = "Complete a quest"
	}
	return Milestone{ID: id, Name: name, Description: desc, Icon: icon, Earned: c.netCompletions() >= count}
}

func (c *MilestoneChecker) streakMilestone(id, name, icon string, days int) Milestone {
	return Milestone{
		ID:          id,
		Name:        name,
		Description: fmt.Sprintf("Hold a %d day streak", days),
		Icon:        icon,
		Earned:      c.character.StreakCount >= days,
	}
}

func (c *MilestoneChecker) typeMilestone(id, name, icon string, t QuestType) Milestone {
	earned := false
	for _, q := range c.quests {
		if parseStoredType(q.Type) == t && parseStoredStatus(q.Status) == StatusCompleted {
			earned = true
			break
		}
	}
	return Milestone{ID: id, Name: name, Description: "Complete a " + QuestTypeLabel(t), Icon: icon, Earned: earned}
}

func (c *MilestoneChecker) attributeMilestone(a Attribute, value int) Milestone {
	return Milestone{
		ID:          "attr_" + string(a),
		Name:        fmt.Sprintf("Trained %s", AttributeLabel(a)),
		Description: fmt.Sprintf("%s at %d", AttributeLabel(a), value),
		Icon:        "💪",
		Earned:      c.character.Stats[string(a)] >= value,
	}
}

// Milestones returns every milestone with its earned state for the signed-in
// user.
func (s *Service) Milestones(ctx context.Context) ([]Milestone, error) {
	c, err := s.GetCharacter(ctx, ReadOptions{})
	if err != nil {
		return nil, err
	}
	quests, err := s.ListQuests(ctx, ReadOptions{})
	if err != nil {
		return nil, err
	}
	journal, err := s.ListJournal(ctx, 0)
	if err != nil {
		return nil, err
	}
	return NewMilestoneChecker(c, quests, journal).Milestones(), nil
}
