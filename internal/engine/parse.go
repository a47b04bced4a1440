package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAttribute accepts full names and the usual three-letter abbreviations.
func ParseAttribute(input string) (Attribute, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	switch s {
	case "str", "strength":
		return AttributeStrength, nil
	case "int", "intelligence":
		return AttributeIntelligence, nil
	case "wis", "wisdom":
		return AttributeWisdom, nil
	case "cha", "charisma":
		return AttributeCharisma, nil
	case "foc", "focus":
		return AttributeFocus, nil
	case "end", "endurance":
		return AttributeEndurance, nil
	default:
		return "", fmt.Errorf("%w: unknown attribute %q", ErrInvalidInput, input)
	}
}

func ParseQuestType(input string) (QuestType, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "daily":
		return QuestDaily, nil
	case "side", "side_quest", "sidequest":
		return QuestSide, nil
	case "dungeon":
		return QuestDungeon, nil
	case "boss", "boss_fight", "bossfight":
		return QuestBossFight, nil
	default:
		return "", fmt.Errorf("%w: unknown quest type %q", ErrInvalidInput, input)
	}
}

func ParseQuestStatus(input string) (QuestStatus, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "available", "open":
		return StatusAvailable, nil
	case "in_progress", "inprogress", "active", "started":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	case "failed", "fail":
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown quest status %q", ErrInvalidInput, input)
	}
}

func ParseRepeat(input string) (Repeat, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return RepeatNone, nil
	}
	r := Repeat(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid repeat %q", ErrInvalidInput, input)
	}
	return r, nil
}

// ParseStatDelta parses "focus=1,str=-2" style input.
func ParseStatDelta(input string) (StatDelta, error) {
	out := StatDelta{}
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: stat %q must look like name=amount", ErrInvalidInput, part)
		}
		attr, err := ParseAttribute(name)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: stat %q amount: %v", ErrInvalidInput, part, err)
		}
		out[attr] += n
	}
	return out, nil
}

func parseStoredStatus(s string) QuestStatus {
	st := QuestStatus(s)
	if st.IsValid() {
		return st
	}
	if parsed, err := ParseQuestStatus(s); err == nil {
		return parsed
	}
	return StatusAvailable
}

func parseStoredType(s string) QuestType {
	if parsed, err := ParseQuestType(s); err == nil {
		return parsed
	}
	return QuestSide
}

func parseStoredRepeat(s string) Repeat {
	if parsed, err := ParseRepeat(s); err == nil {
		return parsed
	}
	return RepeatNone
}
