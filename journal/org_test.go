package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatEventOrg(t *testing.T) {
	t.Parallel()

	e := EventRecord{
		EventID:     "01HXYZABCDEF",
		RunID:       "R1",
		PositionID:  "P1",
		Date:        d(2024, 3, 31),
		Type:        EventSettle,
		Instrument:  "put",
		Strike:      36000,
		Expiration:  d(2024, 3, 31),
		Quantity:    -2,
		Price:       1000,
		Spot:        35000,
		CashEffect:  -72000,
		AssetEffect: 2,
		Reason:      "assigned",
	}

	out := FormatEventOrg(e)
	assert.True(t, strings.HasPrefix(out, "** SETTLE put (01HXYZAB)\n"))
	assert.Contains(t, out, ":STRIKE: 36000.00\n")
	assert.Contains(t, out, ":EXPIRATION: 2024-03-31\n")
	assert.Contains(t, out, ":ASSET_EFFECT: 2.0000\n")
	assert.Contains(t, out, ":REASON: assigned\n")
	assert.True(t, strings.HasSuffix(out, ":END:\n"))

	spot := EventRecord{EventID: "E", Type: EventSpot, Instrument: "spot", Date: d(2024, 1, 1)}
	assert.NotContains(t, FormatEventOrg(spot), ":STRIKE:")

	both := FormatEventsOrg([]EventRecord{e, spot})
	assert.Equal(t, 2, strings.Count(both, ":PROPERTIES:"))
}

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	out := FormatRunOrg(RunRecord{
		RunID:       "01HRUNID000000",
		Created:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Strategy:    "collar",
		Start:       d(2023, 1, 1),
		End:         d(2023, 12, 31),
		TotalReturn: 0.0725,
		MaxDrawdown: 0.031,
	})
	assert.True(t, strings.HasPrefix(out, "** Backtest: collar (01HRUNID)"))
	assert.Contains(t, out, ":RETURN: 7.25%\n")
	assert.Contains(t, out, ":MAX_DRAWDOWN: 3.10%\n")
	assert.Contains(t, out, ":DATASET: \n")
}
