package regime

import (
	"errors"
	"sync"
)

// Reading is the outcome of one Tracker observation.
type Reading struct {
	Regime Regime
	Input  float64

	// Ready is false while warming up under the skip policy.
	Ready bool
	// Warmup is true when Regime came from the neutral default.
	Warmup bool
}

// Tracker owns one run's trailing vol window. Each Observe classifies the
// new value against the values seen before it, then appends it, so a
// reading never depends on later observations.
type Tracker struct {
	c *Classifier

	// OnSwitch, if set, is called when the tracked regime changes.
	OnSwitch func(from, to Regime)

	window  []float64
	current Regime
	seeded  bool
}

func NewTracker(c *Classifier) *Tracker {
	return &Tracker{c: c}
}

func (t *Tracker) Reset() {
	t.window = t.window[:0]
	t.current = 0
	t.seeded = false
}

// Neutral is the configured fallback regime, used for pricing while the
// tracker is still warming up.
func (t *Tracker) Neutral() Regime { return t.c.cfg.Neutral }

// Len is the number of values currently in the trailing window.
func (t *Tracker) Len() int { return len(t.window) }

func (t *Tracker) Observe(iv float64) (Reading, error) {
	defer t.push(iv)

	cfg := t.c.cfg
	x, err := t.c.Input(t.window, iv)
	if errors.Is(err, ErrInsufficientHistory) {
		if cfg.Warmup == WarmupNeutral {
			return Reading{Regime: cfg.Neutral, Ready: true, Warmup: true}, nil
		}
		return Reading{}, nil
	}
	if err != nil {
		return Reading{}, err
	}

	next := t.c.Level(x)
	if t.seeded && cfg.Hysteresis > 0 {
		next = t.hold(x, next)
	}
	if t.seeded && next != t.current && t.OnSwitch != nil {
		t.OnSwitch(t.current, next)
	}
	t.current = next
	t.seeded = true

	return Reading{Regime: next, Input: x, Ready: true}, nil
}

// hold delays moves back toward the neutral regime until x clears the
// boundary by the hysteresis margin. Moves away from neutral happen at
// the boundary itself.
func (t *Tracker) hold(x float64, next Regime) Regime {
	b := t.c.cfg.Boundaries
	h := t.c.cfg.Hysteresis
	n := t.c.cfg.Neutral
	for next < t.current && next >= n && x >= b[next]-h {
		next++
	}
	for next > t.current && next <= n && x < b[next-1]+h {
		next--
	}
	return next
}

func (t *Tracker) push(iv float64) {
	t.window = append(t.window, iv)
	if w := t.c.cfg.Window; w > 0 && len(t.window) > w {
		// shift in place so the backing array does not grow without bound
		n := copy(t.window, t.window[len(t.window)-w:])
		t.window = t.window[:n]
	}
}

// SwitchCounter is an OnSwitch target that counts transitions.
type SwitchCounter struct {
	mu     sync.Mutex
	counts map[[2]Regime]int
}

func (s *SwitchCounter) Record(from, to Regime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[[2]Regime]int)
	}
	s.counts[[2]Regime{from, to}]++
}

func (s *SwitchCounter) Count(from, to Regime) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[[2]Regime{from, to}]
}

func (s *SwitchCounter) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}
