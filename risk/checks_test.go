package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		policy  Policy
		proj    Projection
		allowed bool
		codes   []string
		wantErr error
	}{
		{
			name:    "within_limits",
			policy:  Strict(),
			proj:    Projection{Cash: 10, SpotQty: 1},
			allowed: true,
		},
		{
			name:    "float_dust_is_ignored",
			policy:  Strict(),
			proj:    Projection{Cash: -1e-12, SpotQty: -1e-12},
			allowed: true,
		},
		{
			name:    "negative_cash",
			policy:  Strict(),
			proj:    Projection{Cash: -5},
			codes:   []string{CodeNegativeCash},
			wantErr: ErrNegativeCash,
		},
		{
			name:    "negative_asset",
			policy:  Strict(),
			proj:    Projection{Cash: 5, SpotQty: -0.5},
			codes:   []string{CodeNegativeAsset},
			wantErr: ErrNegativeAssetQuantity,
		},
		{
			name:    "both",
			policy:  Strict(),
			proj:    Projection{Cash: -1, SpotQty: -1},
			codes:   []string{CodeNegativeCash, CodeNegativeAsset},
			wantErr: ErrNegativeCash,
		},
		{
			name:    "leverage_allowed",
			policy:  Policy{NoShortSpot: true},
			proj:    Projection{Cash: -100, SpotQty: 1},
			allowed: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Evaluate(tt.policy, tt.proj)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.proj, d.Projected)

			var codes []string
			for _, v := range d.Violations {
				codes = append(codes, v.Code)
				assert.NotEmpty(t, v.Msg)
			}
			assert.Equal(t, tt.codes, codes)

			err := d.Err()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	p := Project(1000, 0,
		SpotFlow(2, 400),
		PremiumFlow(-2, 30),
		PremiumFlow(2, 10),
	)
	assert.InDelta(t, 1000-800+60-20, p.Cash, 1e-9)
	assert.InDelta(t, 2, p.SpotQty, 1e-12)

	p = Project(0, 1, SpotFlow(-1, 100))
	assert.InDelta(t, 100, p.Cash, 1e-9)
	assert.InDelta(t, 0, p.SpotQty, 1e-12)
}
