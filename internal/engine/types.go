package engine

import (
	"sort"
	"strings"
)

type Attribute string

const (
	AttributeStrength     Attribute = "strength"
	AttributeIntelligence Attribute = "intelligence"
	AttributeWisdom       Attribute = "wisdom"
	AttributeCharisma     Attribute = "charisma"
	AttributeFocus        Attribute = "focus"
	AttributeEndurance    Attribute = "endurance"
)

// Attributes lists every character attribute in display order.
var Attributes = []Attribute{
	AttributeStrength,
	AttributeIntelligence,
	AttributeWisdom,
	AttributeCharisma,
	AttributeFocus,
	AttributeEndurance,
}

func (a Attribute) IsValid() bool {
	switch a {
	case AttributeStrength, AttributeIntelligence, AttributeWisdom,
		AttributeCharisma, AttributeFocus, AttributeEndurance:
		return true
	default:
		return false
	}
}

type QuestType string

const (
	QuestDaily     QuestType = "daily"
	QuestSide      QuestType = "side_quest"
	QuestDungeon   QuestType = "dungeon"
	QuestBossFight QuestType = "boss_fight"
)

func (t QuestType) IsValid() bool {
	switch t {
	case QuestDaily, QuestSide, QuestDungeon, QuestBossFight:
		return true
	default:
		return false
	}
}

// InitialStatus is the status a freshly created quest of this type starts in.
func (t QuestType) InitialStatus() QuestStatus {
	switch t {
	case QuestDungeon, QuestBossFight:
		return StatusInProgress
	default:
		return StatusAvailable
	}
}

// HasTasks reports whether progress for this type is derived from subtasks.
func (t QuestType) HasTasks() bool {
	return t == QuestDungeon || t == QuestBossFight
}

type QuestStatus string

const (
	StatusAvailable  QuestStatus = "available"
	StatusInProgress QuestStatus = "in_progress"
	StatusCompleted  QuestStatus = "completed"
	StatusFailed     QuestStatus = "failed"
)

func (s QuestStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// StatDelta is a partial, signed attribute map.
type StatDelta map[Attribute]int

func (d StatDelta) Negate() StatDelta {
	out := make(StatDelta, len(d))
	for k, v := range d {
		out[k] = -v
	}
	return out
}

// Keys returns the attributes in d, sorted for stable output.
func (d StatDelta) Keys() []Attribute {
	keys := make([]Attribute, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func statDeltaFromStored(m map[string]int) StatDelta {
	out := make(StatDelta, len(m))
	for k, v := range m {
		out[Attribute(k)] = v
	}
	return out
}

func (d StatDelta) stored() map[string]int {
	out := make(map[string]int, len(d))
	for k, v := range d {
		out[string(k)] = v
	}
	return out
}

// AttributeLabel is the display name of a.
func AttributeLabel(a Attribute) string {
	s := string(a)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// QuestTypeLabel is the display name of t.
func QuestTypeLabel(t QuestType) string {
	switch t {
	case QuestDaily:
		return "daily quest"
	case QuestSide:
		return "side quest"
	case QuestDungeon:
		return "dungeon"
	case QuestBossFight:
		return "boss fight"
	default:
		return string(t)
	}
}
