package usage

import "image/color"

type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

// Thresholds are fractions at which a window becomes warning or critical.
type Thresholds struct {
	Warning  float64
	Critical float64
}

var DefaultThresholds = Thresholds{Warning: 0.70, Critical: 0.90}

func (t Thresholds) Level(fraction float64) Level {
	switch {
	case fraction >= t.Critical:
		return LevelCritical
	case fraction >= t.Warning:
		return LevelWarning
	default:
		return LevelOK
	}
}

var (
	shortTermPalette = [3]color.RGBA{
		{0x22, 0xC5, 0x5E, 0xFF}, // green
		{0xF9, 0x73, 0x16, 0xFF}, // orange
		{0xEF, 0x44, 0x44, 0xFF}, // red
	}
	longTermPalette = [3]color.RGBA{
		{0x06, 0xB6, 0xD4, 0xFF}, // cyan
		{0x8B, 0x5C, 0xF6, 0xFF}, // blue-purple
		{0x7C, 0x3A, 0xED, 0xFF}, // deep purple
	}

	// Gray is used for the disconnected state.
	Gray     = color.RGBA{0x6B, 0x72, 0x80, 0xFF}
	DarkGray = color.RGBA{0x4B, 0x55, 0x63, 0xFF}
)

// Color returns the display color for a level of the short-term or
// long-term window.
func (l Level) Color(longTerm bool) color.RGBA {
	if longTerm {
		return longTermPalette[l]
	}
	return shortTermPalette[l]
}
