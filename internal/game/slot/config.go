package slot

import (
	"math"

	"github.com/wfunc/slot-sim/internal/config"
	"github.com/wfunc/slot-sim/internal/errors"
)

// Volatility 波动性预设
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// 默认机台符号ID
const (
	SymbolSeven = iota
	SymbolBar
	SymbolBell
	SymbolCherry
	SymbolLemon
	SymbolOrange
	SymbolScatter
	SymbolGrape
)

// VolatilityPresets 默认机台的整组权重替换方案
var VolatilityPresets = map[Volatility]WeightVector{
	VolatilityLow:    {3, 7, 14, 22, 20, 18, 4, 15},
	VolatilityMedium: {4, 8, 14, 20, 22, 16, 4, 12},
	VolatilityHigh:   {5, 9, 12, 20, 24, 16, 4, 14},
}

// MachineConfig 机台配置（纯数据），通过 NewMachine 校验后使用
type MachineConfig struct {
	Name             string         `json:"name"`
	Reels            int            `json:"reels"`
	Rows             int            `json:"rows"`
	Symbols          []Symbol       `json:"symbols"`
	Weights          WeightVector   `json:"weights"`
	Paylines         []Payline      `json:"paylines"`
	FreeSpins        FreeSpinConfig `json:"free_spins"`
	GlobalMultiplier float64        `json:"global_multiplier"`
	MinBet           float64        `json:"min_bet"`
	MaxBet           float64        `json:"max_bet"`
	DefaultBet       float64        `json:"default_bet"`
	InitialBalance   float64        `json:"initial_balance"`
	JackpotFloor     float64        `json:"jackpot_floor"`
}

// DefaultMachineConfig 经典5x3十线水果机，理论RTP约96.7%
func DefaultMachineConfig() MachineConfig {
	regular := PayoutTiers{Three: 100, Four: 300, Five: 1000}
	return MachineConfig{
		Name:  "classic",
		Reels: 5,
		Rows:  3,
		Symbols: []Symbol{
			{ID: SymbolSeven, Name: "SEVEN", BasePayout: 60, Tiers: regular, IsJackpotTrigger: true},
			{ID: SymbolBar, Name: "BAR", BasePayout: 15, Tiers: regular},
			{ID: SymbolBell, Name: "BELL", BasePayout: 3.5, Tiers: regular},
			{ID: SymbolCherry, Name: "CHERRY", BasePayout: 1, Tiers: regular},
			{ID: SymbolLemon, Name: "LEMON", BasePayout: 0.7, Tiers: regular},
			{ID: SymbolOrange, Name: "ORANGE", BasePayout: 2, Tiers: regular},
			{ID: SymbolScatter, Name: "SCATTER", BasePayout: 2, Tiers: PayoutTiers{Three: 100, Four: 500, Five: 2000}, IsScatter: true},
			{ID: SymbolGrape, Name: "GRAPE", BasePayout: 3, Tiers: regular},
		},
		Weights:          VolatilityPresets[VolatilityMedium].Clone(),
		Paylines:         DefaultPaylines(5, 3),
		FreeSpins:        FreeSpinConfig{ThreeScatters: 8, FourScatters: 12, FiveScatters: 20},
		GlobalMultiplier: 1.0,
		MinBet:           1,
		MaxBet:           100,
		DefaultBet:       1,
		InitialBalance:   1000,
		JackpotFloor:     500,
	}
}

// Validate 整体校验，任何一项不合法即拒绝整份配置
func (c MachineConfig) Validate() error {
	if c.Reels <= 0 || c.Rows <= 0 {
		return errors.Newf(errors.ErrInvalidConfig, "网格尺寸 %dx%d 无效", c.Reels, c.Rows)
	}
	if _, err := NewSymbolTable(c.Symbols); err != nil {
		return err
	}
	if len(c.Weights) != len(c.Symbols) {
		return errors.Newf(errors.ErrInvalidConfig, "权重数量 %d 与符号数量 %d 不一致", len(c.Weights), len(c.Symbols))
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := ValidatePaylines(c.Paylines, c.Reels, c.Rows); err != nil {
		return err
	}
	if !finitePositive(c.GlobalMultiplier) {
		return errors.Newf(errors.ErrInvalidConfig, "全局倍率 %v 必须为正数", c.GlobalMultiplier)
	}
	if c.FreeSpins.ThreeScatters < 0 || c.FreeSpins.FourScatters < 0 || c.FreeSpins.FiveScatters < 0 {
		return errors.New(errors.ErrInvalidConfig, "免费旋转次数不能为负")
	}
	if !finitePositive(c.MinBet) || !finitePositive(c.MaxBet) {
		return errors.Newf(errors.ErrInvalidConfig, "投注范围 [%v, %v] 必须为正数", c.MinBet, c.MaxBet)
	}
	if c.MinBet > c.MaxBet {
		return errors.Newf(errors.ErrInvalidConfig, "最小投注 %v 大于最大投注 %v", c.MinBet, c.MaxBet)
	}
	if c.DefaultBet != 0 && (c.DefaultBet < c.MinBet || c.DefaultBet > c.MaxBet) {
		return errors.Newf(errors.ErrInvalidConfig, "默认投注 %v 不在 [%v, %v] 内", c.DefaultBet, c.MinBet, c.MaxBet)
	}
	if c.InitialBalance < 0 || math.IsNaN(c.InitialBalance) || math.IsInf(c.InitialBalance, 0) {
		return errors.Newf(errors.ErrInvalidConfig, "初始余额 %v 无效", c.InitialBalance)
	}
	if c.JackpotFloor < 0 || math.IsNaN(c.JackpotFloor) || math.IsInf(c.JackpotFloor, 0) {
		return errors.Newf(errors.ErrInvalidConfig, "奖池底数 %v 无效", c.JackpotFloor)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Clone 深拷贝
func (c MachineConfig) Clone() MachineConfig {
	out := c
	out.Symbols = append([]Symbol(nil), c.Symbols...)
	out.Weights = c.Weights.Clone()
	out.Paylines = make([]Payline, len(c.Paylines))
	for i, line := range c.Paylines {
		out.Paylines[i] = Payline{ID: line.ID, Positions: append([]Position(nil), line.Positions...)}
	}
	return out
}

// WithVolatility 用预设整体替换权重
func (c MachineConfig) WithVolatility(v Volatility) (MachineConfig, error) {
	weights, ok := VolatilityPresets[v]
	if !ok {
		return c, errors.Newf(errors.ErrInvalidConfig, "未知的波动性预设 %q", v)
	}
	if len(weights) != len(c.Symbols) {
		return c, errors.Newf(errors.ErrInvalidConfig, "波动性预设需要 %d 个符号，当前 %d 个", len(weights), len(c.Symbols))
	}
	out := c.Clone()
	out.Weights = weights.Clone()
	return out, nil
}

// Machine 已校验的不可变机台，重新配置时整体替换
type Machine struct {
	cfg   MachineConfig
	table *SymbolTable
}

// NewMachine 校验并冻结一份配置
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	if cfg.DefaultBet == 0 {
		cfg.DefaultBet = cfg.MinBet
	}
	table, err := NewSymbolTable(cfg.Symbols)
	if err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg, table: table}, nil
}

// DefaultMachine 默认机台
func DefaultMachine() *Machine {
	m, err := NewMachine(DefaultMachineConfig())
	if err != nil {
		panic(err)
	}
	return m
}

// Config 返回配置副本
func (m *Machine) Config() MachineConfig {
	return m.cfg.Clone()
}

// Table 符号表
func (m *Machine) Table() *SymbolTable {
	return m.table
}

// Name 机台名
func (m *Machine) Name() string {
	return m.cfg.Name
}

// BetBounds 投注范围
func (m *Machine) BetBounds() (float64, float64) {
	return m.cfg.MinBet, m.cfg.MaxBet
}

// DefaultBet 默认投注
func (m *Machine) DefaultBet() float64 {
	return m.cfg.DefaultBet
}

// InitialBalance 初始余额
func (m *Machine) InitialBalance() float64 {
	return m.cfg.InitialBalance
}

// JackpotFloor 奖池底数
func (m *Machine) JackpotFloor() float64 {
	return m.cfg.JackpotFloor
}

// Resolution 一次转轮的纯计算结果
type Resolution struct {
	Grid         Grid
	Matches      []LineMatch
	ScatterCount int
	PayoutResult
}

// Resolve 生成网格、评估支付线并计算赔付，不涉及任何资金状态
func (m *Machine) Resolve(s *Sampler, bet float64) (Resolution, error) {
	grid, err := s.GenerateGrid(m.cfg.Weights, m.cfg.Reels, m.cfg.Rows)
	if err != nil {
		return Resolution{}, err
	}
	return m.Evaluate(grid, bet), nil
}

// Evaluate 对给定网格计算结果
func (m *Machine) Evaluate(grid Grid, bet float64) Resolution {
	matches := EvaluatePaylines(grid, m.cfg.Paylines)
	scatters := CountScatters(grid, m.table)
	payout := ComputePayout(PayoutInput{
		Matches:          matches,
		ScatterCount:     scatters,
		Bet:              bet,
		GlobalMultiplier: m.cfg.GlobalMultiplier,
		Table:            m.table,
		FreeSpins:        m.cfg.FreeSpins,
	})
	return Resolution{
		Grid:         grid,
		Matches:      matches,
		ScatterCount: scatters,
		PayoutResult: payout,
	}
}

// FromConfig 把viper配置转换为机台；symbols为空时以默认机台为底，volatility只能用于默认符号表
func FromConfig(slotCfg config.SlotConfig, bankroll config.BankrollConfig) (*Machine, error) {
	cfg := DefaultMachineConfig()

	if len(slotCfg.Symbols) > 0 {
		cfg.Name = "custom"
		cfg.Symbols = make([]Symbol, len(slotCfg.Symbols))
		cfg.Weights = make(WeightVector, len(slotCfg.Symbols))
		for i, s := range slotCfg.Symbols {
			cfg.Symbols[i] = Symbol{
				ID:               s.ID,
				Name:             s.Name,
				BasePayout:       s.BasePayout,
				Tiers:            PayoutTiers{Three: s.Tiers.Three, Four: s.Tiers.Four, Five: s.Tiers.Five},
				IsScatter:        s.IsScatter,
				IsJackpotTrigger: s.IsJackpotTrigger,
				IsWild:           s.IsWild,
			}
			cfg.Weights[i] = s.Weight
		}
	}

	if slotCfg.Reels > 0 {
		cfg.Reels = slotCfg.Reels
	}
	if slotCfg.Rows > 0 {
		cfg.Rows = slotCfg.Rows
	}

	if len(slotCfg.Paylines) > 0 {
		cfg.Paylines = make([]Payline, len(slotCfg.Paylines))
		for i, line := range slotCfg.Paylines {
			positions := make([]Position, len(line.Positions))
			for j, p := range line.Positions {
				positions[j] = Position{Reel: p.Reel, Row: p.Row}
			}
			cfg.Paylines[i] = Payline{ID: line.ID, Positions: positions}
		}
	} else {
		cfg.Paylines = DefaultPaylines(cfg.Reels, cfg.Rows)
	}

	cfg.FreeSpins = FreeSpinConfig{
		ThreeScatters: slotCfg.FreeSpins.ThreeScatters,
		FourScatters:  slotCfg.FreeSpins.FourScatters,
		FiveScatters:  slotCfg.FreeSpins.FiveScatters,
	}
	cfg.GlobalMultiplier = slotCfg.GlobalMultiplier
	cfg.MinBet = bankroll.MinBet
	cfg.MaxBet = bankroll.MaxBet
	cfg.DefaultBet = bankroll.DefaultBet
	cfg.InitialBalance = bankroll.InitialBalance
	cfg.JackpotFloor = bankroll.JackpotFloor

	if slotCfg.Volatility != "" {
		// 预设只适用于内置符号表，自定义权重不能被静默覆盖
		if len(slotCfg.Symbols) > 0 {
			return nil, errors.Newf(errors.ErrInvalidConfig,
				"波动性预设 %q 不能与自定义符号同时使用", slotCfg.Volatility)
		}
		var err error
		if cfg, err = cfg.WithVolatility(Volatility(slotCfg.Volatility)); err != nil {
			return nil, err
		}
	}

	return NewMachine(cfg)
}
