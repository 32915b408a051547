package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/optsim/indicators"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/metrics"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
	"github.com/rustyeddy/optsim/strategies"
)

// Options controls how the runner behaves.
type Options struct {
	// ExpiryMatch resolves a leg's target expiration onto a trading day.
	// Empty means market.MatchHigher.
	ExpiryMatch market.Match

	// Logger defaults to zerolog.Nop().
	Logger *zerolog.Logger

	// Metrics may be nil.
	Metrics *metrics.Registry

	// RealizedVolWindow and VolGapSmoothing configure the vol-gap signal
	// handed to strategies.
	RealizedVolWindow int
	VolGapSmoothing   int

	// RiskFree is the annual rate used for Sharpe and Sortino.
	RiskFree float64

	// Runs, if set, receives a summary row when the run finishes.
	Runs journal.RunRecorder

	// Dataset labels the run in the journal.
	Dataset string
}

// Runner drives a ledger forward over a series using a strategy.
type Runner struct {
	Series      *market.Series
	Strategy    strategies.Strategy
	Ledger      *sim.Ledger
	Regime      *regime.Tracker
	Kernel      *pricing.Kernel
	Calibration *pricing.Calibration
	Options     Options
}

// Run executes the day loop. For each observation:
//  1. classify the regime from the trailing vol window
//  2. mark every open position to market
//  3. settle expirations
//  4. update realized vol
//  5. ask the strategy for an instruction (skipped while warming up)
//  6. check the instruction against the strategy's risk policy
//  7. resolve leg expirations onto trading days
//  8. price each leg on its trade side
//  9. trade spot and open the legs
//
// Any error other than an unresolvable expiration ends the run.
func (r *Runner) Run(ctx context.Context) (res Result, err error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}

	log := r.logger()
	m := r.Options.Metrics
	name := r.Strategy.Name()
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.RecordRun(name, status, time.Since(started))
	}()

	st := runState{
		gap:    indicators.NewVolGap(r.Options.RealizedVolWindow, r.Options.VolGapSmoothing),
		quoter: &dayQuoter{kernel: r.Kernel, cal: r.Calibration, metrics: m, expiry: r.expiration},
	}

	r.Strategy.Reset()
	prev := r.Regime.OnSwitch
	r.Regime.OnSwitch = func(from, to regime.Regime) {
		if prev != nil {
			prev(from, to)
		}
		st.switches++
		m.RecordRegimeSwitch(from.String(), to.String())
		log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("regime switch")
	}
	defer func() { r.Regime.OnSwitch = prev }()

	log.Info().
		Str("run_id", r.Ledger.RunID()).
		Str("strategy", name).
		Str("start", market.FormatDay(r.Series.First().Date)).
		Str("end", market.FormatDay(r.Series.Last().Date)).
		Int("days", r.Series.Len()).
		Msg("backtest start")

	for i := 0; i < r.Series.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := r.step(r.Series.At(i), &st); err != nil {
			log.Error().Err(err).Str("run_id", r.Ledger.RunID()).Msg("backtest aborted")
			return Result{}, err
		}
	}

	res = r.result(st)
	if rec := r.Options.Runs; rec != nil {
		if err := rec.RecordRun(res.record(r.Options.Dataset)); err != nil {
			return res, fmt.Errorf("journal run: %w", err)
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("strategy", name).
		Float64("final_equity", res.FinalEquity).
		Float64("total_return", res.TotalReturn).
		Float64("max_drawdown", res.MaxDrawdown).
		Int("trades", res.Trades).
		Int("skipped", res.Skipped).
		Msg("backtest complete")
	return res, nil
}

type runState struct {
	gap         *indicators.VolGap
	quoter      *dayQuoter
	trades      int
	assignments int
	switches    int
	skipped     int
}

func (r *Runner) step(obs market.Observation, st *runState) error {
	day := market.FormatDay(obs.Date)
	m := r.Options.Metrics

	reading, err := r.Regime.Observe(obs.Sigma())
	if err != nil {
		return fmt.Errorf("regime %s: %w", day, err)
	}
	rg := r.Regime.Neutral()
	if reading.Ready {
		rg = reading.Regime
		m.SetActiveRegime(int(rg))
	}

	if _, err := r.Ledger.MarkToMarket(obs, rg, r.Calibration); err != nil {
		return err
	}

	evs, err := r.Ledger.SettleExpirations(obs)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if ev.Assigned {
			st.assignments++
		}
		m.RecordSettlement(ev.Instrument, outcome(ev))
	}

	st.gap.Update(obs)

	if !reading.Ready {
		return nil
	}

	in, err := r.Strategy.NextSignal(strategies.Context{
		Obs:         obs,
		Regime:      rg,
		RegimeReady: reading.Ready,
		Account:     r.Ledger.View(),
		Quoter:      st.quoter.at(obs, rg),
		VolGap:      st.gap.Value(),
		VolGapReady: st.gap.Ready(),
	})
	if err != nil {
		return fmt.Errorf("%s signal %s: %w", r.Strategy.Name(), day, err)
	}
	if in.Empty() {
		return nil
	}

	n, err := r.apply(obs, rg, in)
	if errors.Is(err, market.ErrMissingDate) || errors.Is(err, sim.ErrInvalidExpiration) {
		st.skipped++
		r.logger().Warn().Err(err).Str("date", day).Str("reason", in.Reason).Msg("instruction skipped")
		return nil
	}
	st.trades += n
	return err
}

type pricedLeg struct {
	leg        strategies.Leg
	expiration time.Time
	quote      pricing.Result
}

// expiration resolves a leg's target tenor to a trading day of the series.
func (r *Runner) expiration(today time.Time, days int) (time.Time, error) {
	match := r.Options.ExpiryMatch
	if match == "" {
		match = market.MatchHigher
	}
	return r.Series.Resolve(market.AddDays(today, days), match)
}

// apply prices and checks the whole instruction before touching the
// ledger, so a priced or risk-rejected instruction leaves the ledger as it
// was. A ledger error while booking aborts the run.
func (r *Runner) apply(obs market.Observation, rg regime.Regime, in *strategies.Instruction) (int, error) {
	today := market.Day(obs.Date)

	legs := make([]pricedLeg, 0, len(in.Legs))
	flows := make([]risk.Flow, 0, len(in.Legs)+1)
	if in.Spot != 0 {
		flows = append(flows, risk.SpotFlow(in.Spot, obs.Spot))
	}

	for _, leg := range in.Legs {
		exp, err := r.expiration(today, leg.Days)
		if err != nil {
			return 0, err
		}
		if !exp.After(today) {
			return 0, fmt.Errorf("%s %g resolves to %s: %w", leg.Kind, leg.Strike, market.FormatDay(exp), sim.ErrInvalidExpiration)
		}

		q, err := r.Kernel.Price(pricing.Request{
			Spot:   obs.Spot,
			Strike: leg.Strike,
			Days:   float64(market.DaysBetween(today, exp)),
			Vol:    obs.Sigma(),
			Rate:   obs.Rate,
			Kind:   leg.Kind,
			Side:   pricing.SideOf(leg.Quantity),
			Regime: rg,
		}, r.Calibration)
		if err != nil {
			return 0, fmt.Errorf("price %s %g: %w", leg.Kind, leg.Strike, err)
		}
		r.Options.Metrics.RecordQuote(string(q.Source))

		legs = append(legs, pricedLeg{leg: leg, expiration: exp, quote: q})
		flows = append(flows, risk.PremiumFlow(leg.Quantity, q.Execution))
	}

	d := risk.Evaluate(r.Strategy.Policy(), risk.Project(r.Ledger.Cash(), r.Ledger.SpotQty(), flows...))
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("%s %s (%s): %w", r.Strategy.Name(), market.FormatDay(today), in.Reason, err)
	}

	if in.Spot != 0 {
		if _, err := r.Ledger.TradeSpot(in.Spot, obs.Spot, today, in.Reason); err != nil {
			return 0, err
		}
	}
	for _, pl := range legs {
		_, err := r.Ledger.OpenPosition(sim.OpenRequest{
			Kind:       pl.leg.Kind,
			Strike:     pl.leg.Strike,
			Expiration: pl.expiration,
			Quantity:   pl.leg.Quantity,
			Reason:     in.Reason,
		}, pl.quote.Execution, today)
		if err != nil {
			return 0, err
		}
	}
	return len(legs), nil
}

func (r *Runner) validate() error {
	switch {
	case r.Series == nil:
		return fmt.Errorf("backtest: Series is required")
	case r.Series.Len() == 0:
		return fmt.Errorf("backtest: Series is empty")
	case r.Strategy == nil:
		return fmt.Errorf("backtest: Strategy is required")
	case r.Ledger == nil:
		return fmt.Errorf("backtest: Ledger is required")
	case r.Regime == nil:
		return fmt.Errorf("backtest: Regime is required")
	case r.Kernel == nil:
		return fmt.Errorf("backtest: Kernel is required")
	case r.Calibration == nil:
		return fmt.Errorf("backtest: Calibration is required")
	}
	if got, want := r.Ledger.Settlement(), r.Strategy.Settlement(); got != want {
		return fmt.Errorf("backtest: ledger settles %s but %s expects %s", got, r.Strategy.Name(), want)
	}
	return nil
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Options.Logger != nil {
		return r.Options.Logger
	}
	l := zerolog.Nop()
	return &l
}

func outcome(ev sim.Event) string {
	switch {
	case ev.Physical:
		return "physical"
	case ev.CashEffect == 0:
		return "worthless"
	}
	return "cash"
}

// dayQuoter prices prospective legs for strategies at one day's market.
// Tenors are resolved to the expiration apply will use, so a strategy's
// affordability check sees the price it will be charged.
type dayQuoter struct {
	kernel  *pricing.Kernel
	cal     *pricing.Calibration
	metrics *metrics.Registry
	expiry  func(today time.Time, days int) (time.Time, error)

	obs market.Observation
	rg  regime.Regime
}

func (q *dayQuoter) at(obs market.Observation, rg regime.Regime) *dayQuoter {
	q.obs, q.rg = obs, rg
	return q
}

func (q *dayQuoter) Quote(kind pricing.Kind, strike float64, days int, side pricing.Side) (pricing.Result, error) {
	tenor := float64(days)
	if q.expiry != nil {
		today := market.Day(q.obs.Date)
		// unresolvable targets keep the nominal tenor; apply skips them
		if exp, err := q.expiry(today, days); err == nil {
			tenor = float64(market.DaysBetween(today, exp))
		}
	}
	res, err := q.kernel.Price(pricing.Request{
		Spot:   q.obs.Spot,
		Strike: strike,
		Days:   tenor,
		Vol:    q.obs.Sigma(),
		Rate:   q.obs.Rate,
		Kind:   kind,
		Side:   side,
		Regime: q.rg,
	}, q.cal)
	if err == nil {
		q.metrics.RecordQuote(string(res.Source))
	}
	return res, err
}
