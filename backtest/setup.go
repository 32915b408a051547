package backtest

import (
	"fmt"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/metrics"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
	"github.com/rustyeddy/optsim/sim"
	"github.com/rustyeddy/optsim/strategies"
)

// Setup holds what every run shares. Kernel and Calibration are read-only
// and shared; each Runner gets its own ledger and regime tracker.
type Setup struct {
	Cash      float64
	SpotQty   float64
	Collision sim.CollisionPolicy

	Regime      regime.Config
	Kernel      *pricing.Kernel
	Calibration *pricing.Calibration

	// Journal may be nil. It must be safe for concurrent use when shared
	// by a sweep.
	Journal journal.Journal

	Options Options
}

// NewRunner builds a fresh runner for one strategy over series.
func (s Setup) NewRunner(series *market.Series, strat strategies.Strategy) (*Runner, error) {
	if s.Kernel == nil {
		return nil, fmt.Errorf("backtest: Kernel is required")
	}
	c, err := regime.NewClassifier(s.Regime)
	if err != nil {
		return nil, err
	}

	ledger, err := sim.New(sim.Config{
		Cash:       s.Cash,
		SpotQty:    s.SpotQty,
		Settlement: strat.Settlement(),
		Collision:  s.Collision,
	}, meteredPricer{k: s.Kernel, m: s.Options.Metrics}, s.Journal)
	if err != nil {
		return nil, err
	}

	opts := s.Options
	if opts.Runs == nil {
		if rr, ok := s.Journal.(journal.RunRecorder); ok {
			opts.Runs = rr
		}
	}

	return &Runner{
		Series:      series,
		Strategy:    strat,
		Ledger:      ledger,
		Regime:      regime.NewTracker(c),
		Kernel:      s.Kernel,
		Calibration: s.Calibration,
		Options:     opts,
	}, nil
}

// meteredPricer counts the marks the ledger asks for.
type meteredPricer struct {
	k *pricing.Kernel
	m *metrics.Registry
}

func (p meteredPricer) Price(req pricing.Request, cal *pricing.Calibration) (pricing.Result, error) {
	res, err := p.k.Price(req, cal)
	if err == nil {
		p.m.RecordQuote(string(res.Source))
	}
	return res, err
}
