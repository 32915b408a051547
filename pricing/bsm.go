package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DaysPerYear converts calendar-day tenors to years. Crypto underlyings
// trade every day.
const DaysPerYear = 365.0

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Years converts a day count to a year fraction.
func Years(days float64) float64 {
	return days / DaysPerYear
}

// BlackScholes is the European price of one unit. T is in years. With no
// time or no vol left the discounted intrinsic value is returned.
func BlackScholes(kind Kind, S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		df := math.Exp(-r * max(T, 0))
		if kind == Call {
			return max(S-K*df, 0)
		}
		return max(K*df-S, 0)
	}

	d1, d2 := d12(S, K, T, r, sigma)
	if kind == Call {
		return S*stdNormal.CDF(d1) - K*math.Exp(-r*T)*stdNormal.CDF(d2)
	}
	return K*math.Exp(-r*T)*stdNormal.CDF(-d2) - S*stdNormal.CDF(-d1)
}

// Delta is dV/dS for one unit.
func Delta(kind Kind, S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		switch {
		case kind == Call && S > K:
			return 1
		case kind == Put && S < K:
			return -1
		}
		return 0
	}
	d1, _ := d12(S, K, T, r, sigma)
	if kind == Call {
		return stdNormal.CDF(d1)
	}
	return stdNormal.CDF(d1) - 1
}

// StrikeFromDelta returns the strike whose delta equals the target: calls
// take delta in (0, 1), puts in (-1, 0).
func StrikeFromDelta(kind Kind, S, T, r, sigma, delta float64) float64 {
	if T <= 0 || sigma <= 0 {
		return S
	}
	p := delta
	if kind == Put {
		p = delta + 1
	}
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)

	d1 := stdNormal.Quantile(p)
	sq := sigma * math.Sqrt(T)
	return S * math.Exp(-(d1*sq - (r+0.5*sigma*sigma)*T))
}

// DynamicSkew is the vol premium added to OTM puts when no calibrated skew
// is available: 2 vol points plus 20% of the vol above 60.
func DynamicSkew(iv float64) float64 {
	return 0.02 + math.Max(0, (iv-0.60)*0.20)
}

func d12(S, K, T, r, sigma float64) (float64, float64) {
	sq := sigma * math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / sq
	return d1, d1 - sq
}
