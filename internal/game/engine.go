package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game/slot"
	"go.uber.org/zap"
)

// SpinOutcome 一次转轮的不可变结果，返回后归调用方所有
type SpinOutcome struct {
	RoundID          string         `json:"round_id"`
	SessionID        string         `json:"session_id"`
	Sequence         int64          `json:"sequence"`
	Grid             slot.Grid      `json:"grid"`
	LinesWon         []int          `json:"lines_won"`
	LineWins         []slot.LineWin `json:"line_wins"`
	ScatterCount     int            `json:"scatter_count"`
	Bet              float64        `json:"bet"`
	Wagered          float64        `json:"wagered"`
	FreeSpin         bool           `json:"free_spin"`
	Payout           float64        `json:"payout"`
	LinePayout       float64        `json:"line_payout"`
	ScatterPayout    float64        `json:"scatter_payout"`
	BonusTriggered   bool           `json:"bonus_triggered"`
	FreeSpinsAwarded int            `json:"free_spins_awarded"`
	JackpotWon       bool           `json:"jackpot_won"`
	Bankroll         BankrollState  `json:"bankroll"`
	Timestamp        time.Time      `json:"timestamp"`
}

// IsWin 是否有赔付
func (o *SpinOutcome) IsWin() bool {
	return o.Payout > 0
}

// SpinEngine 单会话转轮引擎：扣款、生成、评估、赔付、奖励、入账
type SpinEngine struct {
	mu        sync.Mutex
	sessionID string
	machine   atomic.Pointer[slot.Machine]
	sampler   *slot.Sampler
	ledger    *BankrollLedger
	stats     *StatisticsTracker
	state     *StateMachine
	logger    *zap.Logger
	sequence  int64
	clock     func() time.Time
}

// EngineOption 引擎选项
type EngineOption func(*SpinEngine)

// WithRandomSource 指定随机源，默认加密随机源
func WithRandomSource(src slot.RandomSource) EngineOption {
	return func(e *SpinEngine) {
		e.sampler = slot.NewSampler(src)
	}
}

// WithLogger 指定日志器
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *SpinEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSessionID 指定会话ID，默认随机生成
func WithSessionID(id string) EngineOption {
	return func(e *SpinEngine) {
		e.sessionID = id
	}
}

// WithClock 指定时钟
func WithClock(clock func() time.Time) EngineOption {
	return func(e *SpinEngine) {
		e.clock = clock
	}
}

// NewSpinEngine 用已校验的机台创建引擎，余额、投注范围与奖池取自机台配置
func NewSpinEngine(machine *slot.Machine, opts ...EngineOption) (*SpinEngine, error) {
	if machine == nil {
		return nil, errors.New(errors.ErrInvalidConfig, "机台为空")
	}

	e := &SpinEngine{
		sessionID: uuid.NewString(),
		sampler:   slot.NewSampler(nil),
		stats:     NewStatisticsTracker(),
		logger:    zap.NewNop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("session_id", e.sessionID))
	e.state = NewStateMachine(e.sessionID, e.logger)

	minBet, maxBet := machine.BetBounds()
	ledger, err := NewBankrollLedger(machine.InitialBalance(), minBet, maxBet)
	if err != nil {
		return nil, err
	}
	if err := ledger.SetBet(machine.DefaultBet()); err != nil {
		return nil, err
	}
	if err := ledger.ResetJackpot(machine.JackpotFloor()); err != nil {
		return nil, err
	}
	e.ledger = ledger
	e.machine.Store(machine)
	return e, nil
}

// SessionID 会话ID
func (e *SpinEngine) SessionID() string {
	return e.sessionID
}

// Machine 当前机台
func (e *SpinEngine) Machine() *slot.Machine {
	return e.machine.Load()
}

// Ledger 资金账本
func (e *SpinEngine) Ledger() *BankrollLedger {
	return e.ledger
}

// Stats 统计器
func (e *SpinEngine) Stats() *StatisticsTracker {
	return e.stats
}

// State 当前状态
func (e *SpinEngine) State() SpinState {
	return e.state.GetState()
}

// OnStateChange 订阅状态变更
func (e *SpinEngine) OnStateChange(fn func(from, to SpinState, event SpinEvent)) {
	e.state.OnStateChange(fn)
}

// SpinCurrentBet 以账本中的当前投注转一次
func (e *SpinEngine) SpinCurrentBet() (*SpinOutcome, error) {
	return e.Spin(e.ledger.State().Bet)
}

// Spin 执行一次原子转轮。所有错误都在修改账本之前发现。
func (e *SpinEngine) Spin(bet float64) (*SpinOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st := e.state.GetState(); st != StateIdle {
		return nil, errors.Newf(errors.ErrInvalidState, "当前状态 %s 不能转轮", st)
	}

	if err := e.ledger.ValidateBet(bet); err != nil {
		return nil, e.refuse(bet, err)
	}
	if !e.ledger.CanCover(bet) {
		err := errors.Newf(errors.ErrInsufficientFunds, "余额 %s, 投注 %v", e.ledger.Balance(), bet)
		return nil, e.refuse(bet, err)
	}

	machine := e.machine.Load()
	// 先抽网格再动账本，抽样失败时不留任何痕迹
	res, err := machine.Resolve(e.sampler, bet)
	if err != nil {
		return nil, e.refuse(bet, err)
	}
	if err := e.ledger.SetBet(bet); err != nil {
		return nil, e.refuse(bet, err)
	}

	freeSpin := e.ledger.State().FreeSpinsRemaining > 0
	wagered := bet
	if freeSpin {
		wagered = 0
		if err := e.ledger.ConsumeFreeSpin(); err != nil {
			return nil, e.refuse(bet, err)
		}
	} else {
		if err := e.ledger.Debit(bet); err != nil {
			return nil, e.refuse(bet, err)
		}
		if err := e.ledger.AddToJackpot(bet); err != nil {
			return nil, err
		}
	}
	e.mustTrigger(EventCommit)

	if err := e.ledger.Credit(res.Payout); err != nil {
		return nil, err
	}
	e.mustTrigger(EventResolve)

	if res.BonusTriggered {
		if err := e.ledger.AddFreeSpins(res.FreeSpinsAwarded); err != nil {
			return nil, err
		}
		e.mustTrigger(EventBonus)
	}

	if res.JackpotWon {
		if err := e.ledger.ResetJackpot(machine.JackpotFloor()); err != nil {
			return nil, err
		}
	}
	e.mustTrigger(EventFinish)

	e.stats.Record(SpinRecord{Wagered: wagered, Payout: res.Payout, IsWin: res.Payout > 0})
	e.sequence++

	outcome := &SpinOutcome{
		RoundID:          uuid.NewString(),
		SessionID:        e.sessionID,
		Sequence:         e.sequence,
		Grid:             res.Grid.Clone(),
		LinesWon:         make([]int, 0, len(res.Matches)),
		LineWins:         append([]slot.LineWin(nil), res.LineWins...),
		ScatterCount:     res.ScatterCount,
		Bet:              bet,
		Wagered:          wagered,
		FreeSpin:         freeSpin,
		Payout:           res.Payout,
		LinePayout:       res.LinePayout,
		ScatterPayout:    res.ScatterPayout,
		BonusTriggered:   res.BonusTriggered,
		FreeSpinsAwarded: res.FreeSpinsAwarded,
		JackpotWon:       res.JackpotWon,
		Bankroll:         e.ledger.State(),
		Timestamp:        e.clock(),
	}
	for _, m := range res.Matches {
		outcome.LinesWon = append(outcome.LinesWon, m.PaylineID)
	}

	e.logger.Debug("spin",
		zap.Int64("seq", outcome.Sequence),
		zap.Float64("bet", bet),
		zap.Bool("free_spin", freeSpin),
		zap.Float64("payout", outcome.Payout),
		zap.Ints("lines", outcome.LinesWon),
		zap.Int("scatters", outcome.ScatterCount),
		zap.Bool("jackpot", outcome.JackpotWon))

	return outcome, nil
}

// refuse Idle -> Refused -> Idle，不修改账本
func (e *SpinEngine) refuse(bet float64, cause error) error {
	e.mustTrigger(EventRefuse)
	e.mustTrigger(EventRelease)
	e.logger.Warn("spin_refused", zap.Float64("bet", bet), zap.Error(cause))
	return cause
}

func (e *SpinEngine) mustTrigger(event SpinEvent) {
	if err := e.state.Trigger(event); err != nil {
		// 转换表是静态的，走到这里说明流程本身有错
		panic(err)
	}
}

// Reconfigure 整体替换机台，新配置在下一次转轮生效
func (e *SpinEngine) Reconfigure(machine *slot.Machine) error {
	if machine == nil {
		return errors.New(errors.ErrInvalidConfig, "机台为空")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	minBet, maxBet := machine.BetBounds()
	if err := e.ledger.SetBetBounds(minBet, maxBet); err != nil {
		return err
	}
	e.machine.Store(machine)
	e.logger.Info("机台已重新配置", zap.String("machine", machine.Name()))
	return nil
}

// Reset 重置账本与统计，回到机台的初始状态
func (e *SpinEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	machine := e.machine.Load()
	minBet, maxBet := machine.BetBounds()
	if err := e.ledger.Reset(machine.InitialBalance(), minBet, maxBet); err != nil {
		return err
	}
	if err := e.ledger.SetBet(machine.DefaultBet()); err != nil {
		return err
	}
	if err := e.ledger.ResetJackpot(machine.JackpotFloor()); err != nil {
		return err
	}
	e.stats.Reset()
	e.state.Reset()
	e.sequence = 0
	return nil
}
