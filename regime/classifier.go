package regime

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var ErrInsufficientHistory = errors.New("insufficient history")

// Mode selects what the boundaries are compared against.
type Mode string

const (
	// ModePercentile compares the percentile rank of the current value
	// within the trailing window.
	ModePercentile Mode = "percentile"

	// ModeAbsolute compares the decimal vol level itself.
	ModeAbsolute Mode = "absolute"
)

// Warmup is the startup policy while the window is underfilled.
type Warmup string

const (
	WarmupSkip    Warmup = "skip"
	WarmupNeutral Warmup = "neutral"
)

// Config holds the classifier calibration.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// Boundaries are strictly increasing cut points. The regime ordinal is
	// the number of boundaries reached by the input, so two boundaries give
	// Low/Mid/High and three give Low/Mid/High/Extreme.
	Boundaries []float64 `json:"boundaries" yaml:"boundaries"`

	MinHistory int `json:"min_history" yaml:"min_history"`
	Window     int `json:"window" yaml:"window"` // trailing values kept by a Tracker

	// Hysteresis is the margin the input must clear past a boundary before
	// a Tracker moves back toward Neutral. Zero disables it.
	Hysteresis float64 `json:"hysteresis" yaml:"hysteresis"`

	Warmup  Warmup `json:"warmup" yaml:"warmup"`
	Neutral Regime `json:"neutral" yaml:"neutral"`
}

// DefaultPercentile is the rolling-tertile calibration.
func DefaultPercentile() Config {
	return Config{
		Mode:       ModePercentile,
		Boundaries: []float64{1.0 / 3, 2.0 / 3},
		MinHistory: 90,
		Window:     365,
		Warmup:     WarmupSkip,
		Neutral:    Mid,
	}
}

// DefaultAbsolute is the fixed DVOL cutoff calibration: <50 Low, <70 Mid,
// <90 High, else Extreme.
func DefaultAbsolute() Config {
	return Config{
		Mode:       ModeAbsolute,
		Boundaries: []float64{0.50, 0.70, 0.90},
		Window:     365,
		Warmup:     WarmupNeutral,
		Neutral:    Mid,
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModePercentile, ModeAbsolute:
	default:
		return fmt.Errorf("regime.mode must be 'percentile' or 'absolute'")
	}
	if n := len(c.Boundaries); n < 1 || n > len(All)-1 {
		return fmt.Errorf("regime.boundaries must have 1 to %d entries", len(All)-1)
	}
	for i, b := range c.Boundaries {
		if i > 0 && b <= c.Boundaries[i-1] {
			return fmt.Errorf("regime.boundaries must be strictly increasing")
		}
		if c.Mode == ModePercentile && (b <= 0 || b > 1) {
			return fmt.Errorf("regime.boundaries must be in (0, 1] for percentile mode")
		}
	}
	if c.MinHistory < 0 {
		return fmt.Errorf("regime.min_history must be non-negative")
	}
	if c.Window < 0 || (c.Window > 0 && c.Window < c.MinHistory) {
		return fmt.Errorf("regime.window must be at least regime.min_history")
	}
	if c.Mode == ModePercentile && c.MinHistory < 1 {
		return fmt.Errorf("regime.min_history must be positive for percentile mode")
	}
	if c.Hysteresis < 0 {
		return fmt.Errorf("regime.hysteresis must be non-negative")
	}
	switch c.Warmup {
	case WarmupSkip, WarmupNeutral:
	default:
		return fmt.Errorf("regime.warmup must be 'skip' or 'neutral'")
	}
	if !c.Neutral.Valid() {
		return fmt.Errorf("regime.neutral is invalid")
	}
	return nil
}

// Classifier maps a trailing vol window and a current value to a Regime.
// It holds configuration only.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := make([]float64, len(cfg.Boundaries))
	copy(b, cfg.Boundaries)
	cfg.Boundaries = b
	return &Classifier{cfg: cfg}, nil
}

func (c *Classifier) Config() Config { return c.cfg }

// Classify returns the regime of current against window. Both take
// decimal vol (0.55, not 55); market.LoadCSV converts percent-point data.
// The window must only hold values observed before current.
func (c *Classifier) Classify(window []float64, current float64) (Regime, error) {
	x, err := c.Input(window, current)
	if err != nil {
		return 0, err
	}
	return c.Level(x), nil
}

// Input is the value compared against the boundaries: a percentile rank
// in percentile mode, the decimal vol in absolute mode.
func (c *Classifier) Input(window []float64, current float64) (float64, error) {
	if len(window) < c.cfg.MinHistory {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientHistory, len(window), c.cfg.MinHistory)
	}
	if c.cfg.Mode == ModeAbsolute {
		return current, nil
	}
	return PercentileRank(window, current), nil
}

// Level maps a boundary input to a regime.
func (c *Classifier) Level(x float64) Regime {
	n := 0
	for _, b := range c.cfg.Boundaries {
		if x >= b {
			n++
		}
	}
	return Regime(n)
}

// PercentileRank is the fraction of window values <= v.
func PercentileRank(window []float64, v float64) float64 {
	if len(window) == 0 {
		return 0
	}
	xs := make([]float64, len(window))
	copy(xs, window)
	sort.Float64s(xs)
	return stat.CDF(v, stat.Empirical, xs, nil)
}
