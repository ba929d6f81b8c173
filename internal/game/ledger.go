package game

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/wfunc/slot-sim/internal/errors"
)

// BankrollState 资金状态快照
type BankrollState struct {
	Balance            float64 `json:"balance"`
	Bet                float64 `json:"bet"`
	FreeSpinsRemaining int     `json:"free_spins_remaining"`
	JackpotPool        float64 `json:"jackpot_pool"`
}

// BankrollLedger 资金账本，任何修改后余额都不为负
type BankrollLedger struct {
	mu        sync.RWMutex
	balance   decimal.Decimal
	bet       decimal.Decimal
	minBet    decimal.Decimal
	maxBet    decimal.Decimal
	jackpot   decimal.Decimal
	freeSpins int
}

// NewBankrollLedger 创建账本，初始投注为最小投注
func NewBankrollLedger(initialBalance, minBet, maxBet float64) (*BankrollLedger, error) {
	l := &BankrollLedger{}
	if err := l.Reset(initialBalance, minBet, maxBet); err != nil {
		return nil, err
	}
	return l, nil
}

// Reset 重置余额与投注范围，清空免费次数和奖池
func (l *BankrollLedger) Reset(initialBalance, minBet, maxBet float64) error {
	if !validAmount(initialBalance) {
		return errors.Newf(errors.ErrInvalidConfig, "初始余额 %v 无效", initialBalance)
	}
	if !validAmount(minBet) || !validAmount(maxBet) || minBet == 0 || maxBet == 0 {
		return errors.Newf(errors.ErrInvalidConfig, "投注范围 [%v, %v] 必须为正数", minBet, maxBet)
	}
	if minBet > maxBet {
		return errors.Newf(errors.ErrInvalidConfig, "最小投注 %v 大于最大投注 %v", minBet, maxBet)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = decimal.NewFromFloat(initialBalance)
	l.minBet = decimal.NewFromFloat(minBet)
	l.maxBet = decimal.NewFromFloat(maxBet)
	l.bet = l.minBet
	l.jackpot = decimal.Zero
	l.freeSpins = 0
	return nil
}

// SetBetBounds 重新配置时更新投注范围，当前投注被夹到新范围内
func (l *BankrollLedger) SetBetBounds(minBet, maxBet float64) error {
	if !validAmount(minBet) || !validAmount(maxBet) || minBet == 0 || minBet > maxBet {
		return errors.Newf(errors.ErrInvalidConfig, "投注范围 [%v, %v] 无效", minBet, maxBet)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.minBet = decimal.NewFromFloat(minBet)
	l.maxBet = decimal.NewFromFloat(maxBet)
	if l.bet.LessThan(l.minBet) {
		l.bet = l.minBet
	}
	if l.bet.GreaterThan(l.maxBet) {
		l.bet = l.maxBet
	}
	return nil
}

// ValidateBet 投注必须在 [minBet, maxBet] 内
func (l *BankrollLedger) ValidateBet(bet float64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateBetLocked(bet)
}

func (l *BankrollLedger) validateBetLocked(bet float64) error {
	if !validAmount(bet) {
		return errors.Newf(errors.ErrInvalidBet, "投注 %v 无效", bet)
	}
	d := decimal.NewFromFloat(bet)
	if d.LessThan(l.minBet) || d.GreaterThan(l.maxBet) {
		return errors.Newf(errors.ErrInvalidBet, "投注 %s 不在 [%s, %s] 内", d, l.minBet, l.maxBet)
	}
	return nil
}

// SetBet 设置当前投注
func (l *BankrollLedger) SetBet(bet float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.validateBetLocked(bet); err != nil {
		return err
	}
	l.bet = decimal.NewFromFloat(bet)
	return nil
}

// CanCover 余额够付投注或者还有免费次数
func (l *BankrollLedger) CanCover(bet float64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.freeSpins > 0 || l.balance.GreaterThanOrEqual(decimal.NewFromFloat(bet))
}

// Debit 扣款，余额不足时拒绝且不做任何修改
func (l *BankrollLedger) Debit(amount float64) error {
	if !validAmount(amount) {
		return errors.Newf(errors.ErrInvalidParam, "扣款金额 %v 无效", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	d := decimal.NewFromFloat(amount)
	if l.balance.LessThan(d) {
		return errors.Newf(errors.ErrInsufficientFunds, "余额 %s, 需要 %s", l.balance, d)
	}
	l.balance = l.balance.Sub(d)
	return nil
}

// Credit 入账
func (l *BankrollLedger) Credit(amount float64) error {
	if !validAmount(amount) {
		return errors.Newf(errors.ErrInvalidParam, "入账金额 %v 无效", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = l.balance.Add(decimal.NewFromFloat(amount))
	return nil
}

// ConsumeFreeSpin 消耗一次免费旋转
func (l *BankrollLedger) ConsumeFreeSpin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.freeSpins == 0 {
		return errors.New(errors.ErrInvalidState, "没有剩余免费旋转")
	}
	l.freeSpins--
	return nil
}

// AddFreeSpins 增加免费旋转
func (l *BankrollLedger) AddFreeSpins(n int) error {
	if n < 0 {
		return errors.Newf(errors.ErrInvalidParam, "免费旋转次数 %d 无效", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.freeSpins += n
	return nil
}

// AddToJackpot 投注注入奖池
func (l *BankrollLedger) AddToJackpot(amount float64) error {
	if !validAmount(amount) {
		return errors.Newf(errors.ErrInvalidParam, "奖池金额 %v 无效", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.jackpot = l.jackpot.Add(decimal.NewFromFloat(amount))
	return nil
}

// ResetJackpot 奖池重置到底数
func (l *BankrollLedger) ResetJackpot(floor float64) error {
	if !validAmount(floor) {
		return errors.Newf(errors.ErrInvalidParam, "奖池底数 %v 无效", floor)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.jackpot = decimal.NewFromFloat(floor)
	return nil
}

// Balance 精确余额
func (l *BankrollLedger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// State 返回快照
func (l *BankrollLedger) State() BankrollState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return BankrollState{
		Balance:            l.balance.InexactFloat64(),
		Bet:                l.bet.InexactFloat64(),
		FreeSpinsRemaining: l.freeSpins,
		JackpotPool:        l.jackpot.InexactFloat64(),
	}
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
