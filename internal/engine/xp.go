package engine

import "math"

// Curve is the level threshold progression: the first level needs Base XP and
// each following level needs Growth times the previous threshold, floored.
type Curve struct {
	Base   int
	Growth float64
}

var DefaultCurve = Curve{Base: 100, Growth: 1.1}

// Progress is a character's position on the curve.
type Progress struct {
	Level         int
	XP            int
	XPToNextLevel int
	TotalXPEarned int
}

func (c Curve) base() int {
	if c.Base <= 0 {
		return DefaultCurve.Base
	}
	return c.Base
}

func (c Curve) next(threshold int) int {
	// 100*1.1 is 110.00000000000001 in float64; the epsilon keeps values that
	// land a hair under an integer from being floored a whole point down.
	n := int(math.Floor(float64(threshold)*c.Growth + 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

// ApplyXP adds delta to xp, rolling over into as many levels as it covers.
// Non-positive deltas change nothing; removal goes through RemoveXP.
func (c Curve) ApplyXP(level, xp, xpToNextLevel, delta int) (int, int, int) {
	if delta <= 0 {
		return level, xp, xpToNextLevel
	}
	if level < 1 {
		level = 1
	}
	if xpToNextLevel <= 0 {
		xpToNextLevel = c.base()
	}
	xp += delta
	for xp >= xpToNextLevel {
		xp -= xpToNextLevel
		level++
		xpToNextLevel = c.next(xpToNextLevel)
	}
	return level, xp, xpToNextLevel
}

// RemoveXP replays the curve from level 1 against what is left of the lifetime
// total once delta is taken off. The total is clamped at zero.
func (c Curve) RemoveXP(totalXPEarned, delta int) Progress {
	remaining := totalXPEarned - delta
	if remaining < 0 {
		remaining = 0
	}
	level, xp, toNext := c.ApplyXP(1, 0, c.base(), remaining)
	return Progress{Level: level, XP: xp, XPToNextLevel: toNext, TotalXPEarned: remaining}
}

// Grant moves p forward by delta and adds it to the lifetime total.
func (c Curve) Grant(p Progress, delta int) Progress {
	if delta <= 0 {
		return p
	}
	p.Level, p.XP, p.XPToNextLevel = c.ApplyXP(p.Level, p.XP, p.XPToNextLevel, delta)
	p.TotalXPEarned += delta
	return p
}

func ApplyXP(level, xp, xpToNextLevel, delta int) (int, int, int) {
	return DefaultCurve.ApplyXP(level, xp, xpToNextLevel, delta)
}

func RemoveXP(totalXPEarned, delta int) Progress {
	return DefaultCurve.RemoveXP(totalXPEarned, delta)
}
