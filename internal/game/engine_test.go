package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game/slot"
	"pgregory.net/rapid"
)

// constSource 永远返回同一个值，用来构造整屏同符号的网格
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// 中等波动权重下各符号的累计区间（总和100）
const (
	drawSeven   = constSource(0)    // [0,4)
	drawScatter = constSource(0.86) // [84,88)
	drawGrape   = constSource(0.95) // [88,100)
)

func newTestEngine(t *testing.T, mutate func(*slot.MachineConfig), opts ...EngineOption) *SpinEngine {
	t.Helper()
	cfg := slot.DefaultMachineConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	machine, err := slot.NewMachine(cfg)
	require.NoError(t, err)

	engine, err := NewSpinEngine(machine, opts...)
	require.NoError(t, err)
	return engine
}

func TestNewSpinEngine(t *testing.T) {
	engine := newTestEngine(t, nil, WithSessionID("abc"))

	assert.Equal(t, "abc", engine.SessionID())
	assert.Equal(t, StateIdle, engine.State())
	assert.Equal(t, BankrollState{Balance: 1000, Bet: 1, JackpotPool: 500}, engine.Ledger().State())

	_, err := NewSpinEngine(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestSpinRefusalLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		bet     float64
		code    errors.ErrorCode
	}{
		{"余额不足", 0.5, 1, errors.ErrInsufficientFunds},
		{"投注低于最小值", 1000, 0.5, errors.ErrInvalidBet},
		{"投注高于最大值", 1000, 101, errors.ErrInvalidBet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(c *slot.MachineConfig) {
				c.InitialBalance = tt.balance
			}, WithRandomSource(drawSeven))

			var states []SpinState
			engine.OnStateChange(func(from, to SpinState, event SpinEvent) {
				states = append(states, to)
			})
			before := engine.Ledger().State()

			outcome, err := engine.Spin(tt.bet)
			assert.Nil(t, outcome)
			assert.True(t, errors.Is(err, tt.code), "err=%v", err)
			assert.True(t, errors.IsRefusal(err))

			assert.Equal(t, before, engine.Ledger().State())
			assert.Equal(t, StateIdle, engine.State())
			assert.Equal(t, []SpinState{StateRefused, StateIdle}, states)
			assert.Zero(t, engine.Stats().Len())
		})
	}
}

func TestSpinJackpotDoublesAndResetsPool(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawSeven))

	outcome, err := engine.Spin(1)
	require.NoError(t, err)

	// 十条线全是SEVEN五连，每条线先加600再把累计翻倍
	assert.True(t, outcome.JackpotWon)
	assert.InDelta(t, 1227600, outcome.Payout, 1e-6)
	assert.Len(t, outcome.LinesWon, 10)
	assert.Len(t, outcome.LineWins, 10)
	assert.Zero(t, outcome.ScatterCount)
	assert.False(t, outcome.BonusTriggered)

	assert.Equal(t, 500.0, outcome.Bankroll.JackpotPool)
	assert.InDelta(t, 1000-1+1227600, outcome.Bankroll.Balance, 1e-6)
	assert.Equal(t, StateIdle, engine.State())
}

func TestSpinRegularWinGrowsPool(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawGrape))

	outcome, err := engine.Spin(2)
	require.NoError(t, err)

	// GRAPE五连: 2 × 3 × 1000% = 60，十条线
	assert.False(t, outcome.JackpotWon)
	assert.InDelta(t, 600, outcome.Payout, 1e-9)
	assert.Equal(t, 2.0, outcome.Wagered)
	assert.Equal(t, 502.0, outcome.Bankroll.JackpotPool)
	assert.Equal(t, 1000-2+600.0, outcome.Bankroll.Balance)
	assert.Equal(t, 2.0, outcome.Bankroll.Bet)
	assert.Equal(t, int64(1), outcome.Sequence)
	assert.NotEmpty(t, outcome.RoundID)
}

func TestSpinBonusAwardsFreeSpins(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawScatter))

	var events []SpinEvent
	engine.OnStateChange(func(from, to SpinState, event SpinEvent) {
		events = append(events, event)
	})

	outcome, err := engine.Spin(1)
	require.NoError(t, err)

	// 整屏15个Scatter：线上按Scatter档位10×40，scatter本身按五个计40
	assert.Equal(t, 15, outcome.ScatterCount)
	assert.True(t, outcome.BonusTriggered)
	assert.Equal(t, 20, outcome.FreeSpinsAwarded)
	assert.InDelta(t, 40, outcome.ScatterPayout, 1e-9)
	assert.InDelta(t, 400, outcome.LinePayout, 1e-9)
	assert.Equal(t, 20, outcome.Bankroll.FreeSpinsRemaining)
	assert.Equal(t, []SpinEvent{EventCommit, EventResolve, EventBonus, EventFinish}, events)
}

func TestSpinConsumesFreeSpinWithoutDebit(t *testing.T) {
	engine := newTestEngine(t, func(c *slot.MachineConfig) {
		c.InitialBalance = 0
	}, WithRandomSource(drawGrape))
	require.NoError(t, engine.Ledger().AddFreeSpins(2))

	outcome, err := engine.Spin(1)
	require.NoError(t, err)

	assert.True(t, outcome.FreeSpin)
	assert.Zero(t, outcome.Wagered)
	assert.Equal(t, 1, outcome.Bankroll.FreeSpinsRemaining)
	assert.Equal(t, outcome.Payout, outcome.Bankroll.Balance)
	assert.Equal(t, 500.0, outcome.Bankroll.JackpotPool, "免费旋转不注入奖池")

	snap := engine.Stats().Snapshot()
	assert.Zero(t, snap.TotalWagered)
	assert.Equal(t, outcome.Payout, snap.TotalPayout)
}

func TestSpinOutcomeIsolated(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawGrape))

	first, err := engine.Spin(1)
	require.NoError(t, err)
	bankroll := first.Bankroll

	first.Grid[0][0] = 99
	first.LinesWon[0] = -1
	first.LineWins[0].Payout = 0

	second, err := engine.Spin(1)
	require.NoError(t, err)
	assert.Equal(t, slot.SymbolGrape, second.Grid[0][0])
	assert.Equal(t, 1, second.LinesWon[0])
	assert.InDelta(t, 30, second.LineWins[0].Payout, 1e-9)
	assert.Equal(t, bankroll, first.Bankroll)
	assert.Equal(t, int64(2), second.Sequence)
}

func TestSpinDeterministicWithSeed(t *testing.T) {
	fixed := func() time.Time { return time.Unix(1700000000, 0) }
	a := newTestEngine(t, nil, WithRandomSource(slot.NewSeededSource(9)), WithClock(fixed))
	b := newTestEngine(t, nil, WithRandomSource(slot.NewSeededSource(9)), WithClock(fixed))

	for i := 0; i < 50; i++ {
		oa, err := a.Spin(1)
		require.NoError(t, err)
		ob, err := b.Spin(1)
		require.NoError(t, err)
		assert.Equal(t, oa.Grid, ob.Grid)
		assert.Equal(t, oa.Payout, ob.Payout)
		assert.Equal(t, oa.Timestamp, ob.Timestamp)
	}
	assert.Equal(t, a.Ledger().State(), b.Ledger().State())
}

func TestReconfigure(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawGrape))

	cfg := slot.DefaultMachineConfig()
	cfg.Name = "high-stakes"
	cfg.MinBet = 5
	cfg.MaxBet = 50
	machine, err := slot.NewMachine(cfg)
	require.NoError(t, err)

	require.NoError(t, engine.Reconfigure(machine))
	assert.Equal(t, "high-stakes", engine.Machine().Name())
	assert.Equal(t, 5.0, engine.Ledger().State().Bet)

	_, err = engine.Spin(1)
	assert.True(t, errors.Is(err, errors.ErrInvalidBet))

	outcome, err := engine.SpinCurrentBet()
	require.NoError(t, err)
	assert.Equal(t, 5.0, outcome.Bet)

	assert.Error(t, engine.Reconfigure(nil))
}

func TestEngineReset(t *testing.T) {
	engine := newTestEngine(t, nil, WithRandomSource(drawScatter))
	_, err := engine.Spin(3)
	require.NoError(t, err)

	require.NoError(t, engine.Reset())
	assert.Equal(t, BankrollState{Balance: 1000, Bet: 1, JackpotPool: 500}, engine.Ledger().State())
	assert.Zero(t, engine.Stats().Len())

	outcome, err := engine.Spin(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcome.Sequence)
}

func TestSpinConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		initial := rapid.Float64Range(0, 200).Draw(rt, "initial")
		spins := rapid.IntRange(1, 200).Draw(rt, "spins")

		cfg := slot.DefaultMachineConfig()
		cfg.InitialBalance = initial
		machine, err := slot.NewMachine(cfg)
		if err != nil {
			rt.Fatalf("机台: %v", err)
		}
		engine, err := NewSpinEngine(machine, WithRandomSource(slot.NewSeededSource(seed)))
		if err != nil {
			rt.Fatalf("引擎: %v", err)
		}

		var wagered, paid float64
		for i := 0; i < spins; i++ {
			bet := rapid.Float64Range(0.5, 120).Draw(rt, "bet")
			before := engine.Ledger().State()

			outcome, err := engine.Spin(bet)
			if err != nil {
				if !errors.IsRefusal(err) {
					rt.Fatalf("非拒绝错误: %v", err)
				}
				if after := engine.Ledger().State(); after != before {
					rt.Fatalf("拒绝后账本被修改: %+v -> %+v", before, after)
				}
				continue
			}
			wagered += outcome.Wagered
			paid += outcome.Payout

			if outcome.Bankroll.Balance < 0 {
				rt.Fatalf("余额为负: %v", outcome.Bankroll.Balance)
			}
			if outcome.FreeSpin != (outcome.Wagered == 0) {
				rt.Fatalf("免费旋转与投注额不一致: %+v", outcome)
			}
			if engine.State() != StateIdle {
				rt.Fatalf("转轮结束后状态为 %s", engine.State())
			}
		}

		snap := engine.Stats().Snapshot()
		final := engine.Ledger().Balance().InexactFloat64()
		want := initial - wagered + paid
		if diff := final - want; diff > 1e-6*(1+want) || diff < -1e-6*(1+want) {
			rt.Fatalf("资金不守恒: final=%v want=%v", final, want)
		}
		if d := snap.TotalWagered - wagered; d > 1e-6 || d < -1e-6 {
			rt.Fatalf("统计投注 %v != %v", snap.TotalWagered, wagered)
		}
	})
}

// lowVarianceMachine 无Jackpot的五符号机台，单次转轮方差小，便于验证收敛
func lowVarianceMachine(t *testing.T) slot.MachineConfig {
	t.Helper()
	tiers := slot.PayoutTiers{Three: 100, Four: 200, Five: 400}
	cfg := slot.DefaultMachineConfig()
	cfg.Name = "low-variance"
	cfg.Symbols = []slot.Symbol{
		{ID: 0, Name: "A", BasePayout: 3, Tiers: tiers},
		{ID: 1, Name: "B", BasePayout: 1.25, Tiers: tiers},
		{ID: 2, Name: "C", BasePayout: 0.65, Tiers: tiers},
		{ID: 3, Name: "D", BasePayout: 0.3, Tiers: tiers},
		{ID: 4, Name: "S", BasePayout: 0.6, Tiers: tiers, IsScatter: true},
	}
	cfg.Weights = slot.WeightVector{10, 20, 30, 30, 10}
	cfg.FreeSpins = slot.FreeSpinConfig{ThreeScatters: 1, FourScatters: 2, FiveScatters: 3}
	cfg.InitialBalance = 1e7
	return cfg
}

func runConvergence(t *testing.T, cfg slot.MachineConfig, spins int, seed uint64) (float64, float64) {
	t.Helper()
	report, err := slot.TheoreticalRTP(cfg)
	require.NoError(t, err)

	machine, err := slot.NewMachine(cfg)
	require.NoError(t, err)
	engine, err := NewSpinEngine(machine, WithRandomSource(slot.NewSeededSource(seed)))
	require.NoError(t, err)

	for i := 0; i < spins; i++ {
		_, err := engine.Spin(1)
		require.NoError(t, err)
	}
	return report.RTP, engine.Stats().RTP()
}

func TestEmpiricalRTPConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("一百万次转轮，-short 下跳过")
	}

	t.Run("低方差机台误差1个百分点内", func(t *testing.T) {
		theoretical, empirical := runConvergence(t, lowVarianceMachine(t), 1_000_000, 20240101)
		assert.InDelta(t, 94.56, theoretical, 0.01)
		assert.InDelta(t, theoretical, empirical, 1.0)
	})

	t.Run("默认机台误差3个百分点内", func(t *testing.T) {
		cfg := slot.DefaultMachineConfig()
		cfg.InitialBalance = 1e7
		theoretical, empirical := runConvergence(t, cfg, 1_000_000, 777)
		assert.InDelta(t, theoretical, empirical, 3.0)
	})
}
