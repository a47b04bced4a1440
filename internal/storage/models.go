package storage

import (
	"time"

	"lifequest/internal/timeutil"
)

type Character struct {
	Name          string             `json:"name,omitempty"`
	Level         int                `json:"level"`
	XP            int                `json:"xp"`
	XPToNextLevel int                `json:"xpToNextLevel"`
	TotalXPEarned int                `json:"totalXpEarned"`
	Stats         map[string]int     `json:"stats"`
	StreakCount   int                `json:"streakCount"`
	LastActive    timeutil.Timestamp `json:"lastActive"`
	CreatedAt     time.Time          `json:"createdAt"`

	Version   int64     `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type QuestTask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Quest struct {
	ID             string         `json:"-"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Type           string         `json:"type"`
	Status         string         `json:"status"`
	XPReward       int            `json:"xpReward"`
	StatRewards    map[string]int `json:"statRewards,omitempty"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	EndDate        *time.Time     `json:"endDate,omitempty"`
	Repeat         string         `json:"repeat"`
	PenalizeOnMiss bool           `json:"penalizeOnMiss"`
	Progress       int            `json:"progress"`
	Tasks          []QuestTask    `json:"tasks,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`

	Version   int64     `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Clone returns a deep copy; cached quests are shared between readers.
func (q Quest) Clone() Quest {
	out := q
	if q.StatRewards != nil {
		out.StatRewards = make(map[string]int, len(q.StatRewards))
		for k, v := range q.StatRewards {
			out.StatRewards[k] = v
		}
	}
	if q.Tasks != nil {
		out.Tasks = append([]QuestTask(nil), q.Tasks...)
	}
	return out
}

func (c Character) Clone() Character {
	out := c
	if c.Stats != nil {
		out.Stats = make(map[string]int, len(c.Stats))
		for k, v := range c.Stats {
			out.Stats[k] = v
		}
	}
	return out
}

// JournalEntry is append-only: nothing outside a full reset rewrites or deletes it.
type JournalEntry struct {
	ID          string         `json:"-"`
	Kind        string         `json:"kind,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	XPGained    int            `json:"xpGained"`
	StatsGained map[string]int `json:"statsGained"`
	QuestID     string         `json:"questId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
