package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-sim/internal/errors"
)

func TestTheoreticalRTPPresets(t *testing.T) {
	tests := []struct {
		volatility Volatility
		wantRTP    float64
		wantFree   float64
	}{
		{VolatilityLow, 96.6528, 0.16046},
		{VolatilityMedium, 96.6866, 0.17389},
		{VolatilityHigh, 96.0720, 0.15629},
	}
	for _, tt := range tests {
		t.Run(string(tt.volatility), func(t *testing.T) {
			cfg, err := DefaultMachineConfig().WithVolatility(tt.volatility)
			require.NoError(t, err)

			report, err := TheoreticalRTP(cfg)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRTP, report.RTP, 0.01)
			assert.InDelta(t, tt.wantFree, report.FreeSpinsPerSpin, 0.0001)
			assert.Greater(t, report.JackpotReturn, 0.0)
			assert.Greater(t, report.BonusProbability, 0.0)

			sum := 0.0
			for _, v := range report.SymbolReturn {
				sum += v
			}
			assert.InDelta(t, report.LineReturn, sum, 1e-9)
		})
	}
}

func TestTheoreticalRTPScalesWithMultiplier(t *testing.T) {
	cfg := DefaultMachineConfig()
	base, err := TheoreticalRTP(cfg)
	require.NoError(t, err)

	cfg.GlobalMultiplier = 2
	doubled, err := TheoreticalRTP(cfg)
	require.NoError(t, err)
	assert.InDelta(t, base.RTP*2, doubled.RTP, 1e-6)
}

func TestTheoreticalRTPUndefined(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.Weights[SymbolScatter] = 60
	cfg.FreeSpins = FreeSpinConfig{ThreeScatters: 50, FourScatters: 50, FiveScatters: 50}

	_, err := TheoreticalRTP(cfg)
	assert.True(t, errors.Is(err, errors.ErrRTPUndefined))
}

func TestTheoreticalRTPInvalidConfig(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.Reels = 0
	_, err := TheoreticalRTP(cfg)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestBinomial(t *testing.T) {
	assert.InDelta(t, 0.375, binomial(3, 2, 0.5), 1e-12)
	assert.Zero(t, binomial(5, 3, 0))
	assert.Equal(t, 1.0, binomial(4, 4, 1))
	assert.Zero(t, binomial(4, 3, 1))

	total := 0.0
	for k := 0; k <= 15; k++ {
		total += binomial(15, k, 0.07)
	}
	assert.InDelta(t, 1, total, 1e-9)
}
