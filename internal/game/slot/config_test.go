package slot

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-sim/internal/config"
	"github.com/wfunc/slot-sim/internal/errors"
)

func TestDefaultMachineConfigValid(t *testing.T) {
	cfg := DefaultMachineConfig()
	require.NoError(t, cfg.Validate())

	machine := DefaultMachine()
	assert.Equal(t, "classic", machine.Name())
	minBet, maxBet := machine.BetBounds()
	assert.Equal(t, 1.0, minBet)
	assert.Equal(t, 100.0, maxBet)
	assert.Equal(t, 1.0, machine.DefaultBet())
	assert.Equal(t, 1000.0, machine.InitialBalance())
	assert.Equal(t, 500.0, machine.JackpotFloor())
	assert.Equal(t, 8, machine.Table().Len())
}

func TestMachineConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MachineConfig)
	}{
		{"卷轴数为0", func(c *MachineConfig) { c.Reels = 0 }},
		{"行数为负", func(c *MachineConfig) { c.Rows = -1 }},
		{"符号表为空", func(c *MachineConfig) { c.Symbols = nil }},
		{"权重数量不一致", func(c *MachineConfig) { c.Weights = c.Weights[:7] }},
		{"权重为负", func(c *MachineConfig) { c.Weights[2] = -1 }},
		{"权重全为0", func(c *MachineConfig) { c.Weights = make(WeightVector, 8) }},
		{"支付线越界", func(c *MachineConfig) { c.Paylines[0].Positions[4].Row = 3 }},
		{"支付线ID重复", func(c *MachineConfig) { c.Paylines[1].ID = c.Paylines[0].ID }},
		{"没有支付线", func(c *MachineConfig) { c.Paylines = nil }},
		{"全局倍率为0", func(c *MachineConfig) { c.GlobalMultiplier = 0 }},
		{"全局倍率NaN", func(c *MachineConfig) { c.GlobalMultiplier = math.NaN() }},
		{"免费次数为负", func(c *MachineConfig) { c.FreeSpins.FourScatters = -1 }},
		{"最小投注为0", func(c *MachineConfig) { c.MinBet = 0 }},
		{"最小投注大于最大投注", func(c *MachineConfig) { c.MinBet = 200 }},
		{"默认投注越界", func(c *MachineConfig) { c.DefaultBet = 500 }},
		{"初始余额为负", func(c *MachineConfig) { c.InitialBalance = -1 }},
		{"奖池底数为负", func(c *MachineConfig) { c.JackpotFloor = -10 }},
		{"两个Scatter", func(c *MachineConfig) { c.Symbols[1].IsScatter = true }},
		{"符号ID错位", func(c *MachineConfig) { c.Symbols[3].ID = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMachineConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "err=%v", err)

			machine, err := NewMachine(cfg)
			assert.Nil(t, machine)
			assert.Error(t, err)
		})
	}
}

func TestNewMachineIsolatedFromInput(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.DefaultBet = 0
	machine, err := NewMachine(cfg)
	require.NoError(t, err)

	cfg.Weights[0] = 1000
	cfg.Paylines[0].Positions[0].Row = 2
	cfg.Symbols[0].BasePayout = 1

	got := machine.Config()
	assert.Equal(t, 4.0, got.Weights[0])
	assert.Equal(t, 1, got.Paylines[0].Positions[0].Row)
	assert.Equal(t, 60.0, got.Symbols[0].BasePayout)
	assert.Equal(t, got.MinBet, machine.DefaultBet())

	got.Weights[1] = 99
	assert.Equal(t, 8.0, machine.Config().Weights[1])
}

func TestWithVolatility(t *testing.T) {
	cfg := DefaultMachineConfig()

	for _, v := range []Volatility{VolatilityLow, VolatilityMedium, VolatilityHigh} {
		t.Run(string(v), func(t *testing.T) {
			out, err := cfg.WithVolatility(v)
			require.NoError(t, err)
			assert.Equal(t, VolatilityPresets[v], out.Weights)
			assert.NoError(t, out.Validate())
		})
	}

	t.Run("未知预设", func(t *testing.T) {
		_, err := cfg.WithVolatility("extreme")
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("符号数量不匹配", func(t *testing.T) {
		small := cfg.Clone()
		small.Symbols = small.Symbols[:4]
		_, err := small.WithVolatility(VolatilityLow)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}

func TestMachineResolveUsesSampler(t *testing.T) {
	machine := DefaultMachine()
	a, err := machine.Resolve(NewSampler(NewSeededSource(11)), 2)
	require.NoError(t, err)
	b, err := machine.Resolve(NewSampler(NewSeededSource(11)), 2)
	require.NoError(t, err)

	assert.Equal(t, a.Grid, b.Grid)
	assert.Equal(t, a.Payout, b.Payout)
	assert.Equal(t, machine.Evaluate(a.Grid, 2).Payout, a.Payout)
}

func testSlotConfig() (config.SlotConfig, config.BankrollConfig) {
	slotCfg := config.SlotConfig{
		Reels:            5,
		Rows:             3,
		GlobalMultiplier: 1,
		FreeSpins:        config.FreeSpinConfig{ThreeScatters: 8, FourScatters: 12, FiveScatters: 20},
	}
	bankroll := config.BankrollConfig{
		InitialBalance: 1000,
		MinBet:         1,
		MaxBet:         100,
		DefaultBet:     1,
		JackpotFloor:   500,
	}
	return slotCfg, bankroll
}

func TestFromConfig(t *testing.T) {
	t.Run("空符号使用默认机台", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		machine, err := FromConfig(slotCfg, bankroll)
		require.NoError(t, err)
		assert.Equal(t, DefaultMachineConfig().Weights, machine.Config().Weights)
		assert.Len(t, machine.Config().Paylines, 10)
	})

	t.Run("波动性预设", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		slotCfg.Volatility = "high"
		machine, err := FromConfig(slotCfg, bankroll)
		require.NoError(t, err)
		assert.Equal(t, VolatilityPresets[VolatilityHigh], machine.Config().Weights)
	})

	t.Run("自定义符号和支付线", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		slotCfg.Reels = 3
		slotCfg.Rows = 1
		tiers := config.TierConfig{Three: 100, Four: 300, Five: 1000}
		slotCfg.Symbols = []config.SymbolConfig{
			{ID: 0, Name: "A", Weight: 1, BasePayout: 10, Tiers: tiers},
			{ID: 1, Name: "B", Weight: 3, BasePayout: 1, Tiers: tiers, IsScatter: true},
		}
		slotCfg.Paylines = []config.PaylineConfig{
			{ID: 7, Positions: []config.PositionConfig{{Reel: 0, Row: 0}, {Reel: 1, Row: 0}, {Reel: 2, Row: 0}}},
		}
		machine, err := FromConfig(slotCfg, bankroll)
		require.NoError(t, err)

		got := machine.Config()
		assert.Equal(t, "custom", got.Name)
		assert.Equal(t, WeightVector{1, 3}, got.Weights)
		require.Len(t, got.Paylines, 1)
		assert.Equal(t, 7, got.Paylines[0].ID)
		id, ok := machine.Table().ScatterID()
		assert.True(t, ok)
		assert.Equal(t, 1, id)
	})

	t.Run("自定义符号不能使用波动性预设", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		tiers := config.TierConfig{Three: 100, Four: 300, Five: 1000}
		slotCfg.Symbols = make([]config.SymbolConfig, 8)
		for i := range slotCfg.Symbols {
			slotCfg.Symbols[i] = config.SymbolConfig{
				ID: i, Name: fmt.Sprintf("S%d", i), Weight: float64(i + 1), BasePayout: 1, Tiers: tiers,
			}
		}

		machine, err := FromConfig(slotCfg, bankroll)
		require.NoError(t, err)
		assert.Equal(t, WeightVector{1, 2, 3, 4, 5, 6, 7, 8}, machine.Config().Weights)

		slotCfg.Volatility = "medium"
		_, err = FromConfig(slotCfg, bankroll)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("非法配置整体拒绝", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		bankroll.MinBet = 0
		_, err := FromConfig(slotCfg, bankroll)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})

	t.Run("未知波动性", func(t *testing.T) {
		slotCfg, bankroll := testSlotConfig()
		slotCfg.Volatility = "wild"
		_, err := FromConfig(slotCfg, bankroll)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}
