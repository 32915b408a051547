package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rustyeddy/optsim/regime"
	"gopkg.in/yaml.v3"
)

// RegimeParameters is the regime-level calibration used when no quote in
// the lookup table is close enough.
type RegimeParameters struct {
	SkewPut   float64 `json:"skew_put" yaml:"skew_put"`     // vol points added to OTM puts
	SpreadATM float64 `json:"spread_atm" yaml:"spread_atm"` // full bid/ask spread as a fraction of mid
	SpreadOTM float64 `json:"spread_otm" yaml:"spread_otm"`
}

// Quote is one observed point of the fine-grained lookup table.
type Quote struct {
	Regime    regime.Regime `json:"regime" yaml:"regime"`
	Kind      Kind          `json:"kind" yaml:"kind"`
	Moneyness float64       `json:"moneyness" yaml:"moneyness"` // strike / spot
	Days      float64       `json:"days" yaml:"days"`
	Skew      float64       `json:"skew" yaml:"skew"`
	Spread    float64       `json:"spread" yaml:"spread"`
}

// Calibration is loaded once and only read afterwards; a single value is
// shared by every concurrent run.
type Calibration struct {
	Regimes map[regime.Regime]RegimeParameters `json:"regimes" yaml:"regimes"`
	Quotes  []Quote                            `json:"quotes,omitempty" yaml:"quotes,omitempty"`

	// DynamicSkew replaces SkewPut with DynamicSkew(vol).
	DynamicSkew bool `json:"dynamic_skew,omitempty" yaml:"dynamic_skew,omitempty"`
}

// DefaultCalibration carries skew/spread fitted on IBIT option chains,
// scaled up for the High and Extreme regimes.
func DefaultCalibration() *Calibration {
	return &Calibration{
		Regimes: map[regime.Regime]RegimeParameters{
			regime.Low:     {SkewPut: 0.0359, SpreadATM: 0.0244, SpreadOTM: 0.0455},
			regime.Mid:     {SkewPut: 0.0101, SpreadATM: 0.0396, SpreadOTM: 0.0635},
			regime.High:    {SkewPut: 0.045, SpreadATM: 0.06, SpreadOTM: 0.10},
			regime.Extreme: {SkewPut: 0.08, SpreadATM: 0.10, SpreadOTM: 0.20},
		},
	}
}

func (c *Calibration) Params(r regime.Regime) (RegimeParameters, bool) {
	p, ok := c.Regimes[r]
	return p, ok
}

func (c *Calibration) Validate() error {
	for _, r := range regime.All {
		p, ok := c.Regimes[r]
		if !ok {
			return fmt.Errorf("calibration.regimes.%s is required", r)
		}
		if err := checkSpread(p.SpreadATM); err != nil {
			return fmt.Errorf("calibration.regimes.%s.spread_atm %w", r, err)
		}
		if err := checkSpread(p.SpreadOTM); err != nil {
			return fmt.Errorf("calibration.regimes.%s.spread_otm %w", r, err)
		}
	}
	for i, q := range c.Quotes {
		if !q.Regime.Valid() {
			return fmt.Errorf("calibration.quotes[%d].regime is invalid", i)
		}
		if q.Moneyness <= 0 || q.Days <= 0 {
			return fmt.Errorf("calibration.quotes[%d] moneyness and days must be positive", i)
		}
		if err := checkSpread(q.Spread); err != nil {
			return fmt.Errorf("calibration.quotes[%d].spread %w", i, err)
		}
	}
	return nil
}

func checkSpread(s float64) error {
	if s < 0 || s >= 2 {
		return fmt.Errorf("must be in [0, 2), got %g", s)
	}
	return nil
}

// LoadCalibration reads a YAML (or JSON) calibration file.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	c := &Calibration{}
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return nil, fmt.Errorf("parse calibration (tried YAML and JSON): %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	return c, nil
}

func (c *Calibration) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
