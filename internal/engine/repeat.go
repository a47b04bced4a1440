package engine

import (
	"fmt"
	"time"
)

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

func (r Repeat) IsValid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	default:
		return false
	}
}

// NextDueDate is when a quest completed at completedAt comes round again.
func NextDueDate(completedAt time.Time, r Repeat) (time.Time, error) {
	switch r {
	case RepeatDaily:
		return completedAt.AddDate(0, 0, 1), nil
	case RepeatWeekly:
		return completedAt.AddDate(0, 0, 7), nil
	case RepeatMonthly:
		return completedAt.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("repeat %q does not recur", r)
	}
}
