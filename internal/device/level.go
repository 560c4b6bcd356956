package device

import "math"

// Level range and step size.
const (
	MinLevel = 0
	MaxLevel = 65535

	// LevelStep is the increase/decrease increment, about 4%.
	LevelStep = MaxLevel / 25
)

// ToLevel converts a percentage to a raw level. Endpoints are exact and
// out-of-range input is clamped.
func ToLevel(percent int) int {
	switch {
	case percent <= 0:
		return MinLevel
	case percent >= 100:
		return MaxLevel
	}
	return int(math.Round(float64(percent) * MaxLevel / 100))
}

// ToPercent converts a raw level to a percentage, clamped to 0..100.
func ToPercent(level int) int {
	switch {
	case level <= MinLevel:
		return 0
	case level >= MaxLevel:
		return 100
	}
	return int(math.Round(float64(level) * 100 / MaxLevel))
}

// ClampLevel limits level to MinLevel..MaxLevel.
func ClampLevel(level int) int {
	return max(MinLevel, min(MaxLevel, level))
}

// StepLevel moves level one LevelStep up or down, clamped.
func StepLevel(level int, up bool) int {
	if up {
		return ClampLevel(level + LevelStep)
	}
	return ClampLevel(level - LevelStep)
}

// OnOffLevel returns MaxLevel for on and MinLevel for off.
func OnOffLevel(on bool) int {
	if on {
		return MaxLevel
	}
	return MinLevel
}
