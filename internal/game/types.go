package game

import (
	"time"
)

// SessionInfo 会话信息
type SessionInfo struct {
	SessionID       string        `json:"session_id"`
	Machine         string        `json:"machine"`
	State           SpinState     `json:"state"`
	StartTime       time.Time     `json:"start_time"`
	LastActivity    time.Time     `json:"last_activity"`
	Duration        float64       `json:"duration"`
	Bankroll        BankrollState `json:"bankroll"`
	Stats           StatsSnapshot `json:"stats"`
	RTP             float64       `json:"rtp"`
	HitFrequency    float64       `json:"hit_frequency"`
	VolatilityIndex float64       `json:"volatility_index"`
}

// StopReason 自动转轮停止原因
type StopReason string

const (
	StopCompleted         StopReason = "completed"
	StopBonus             StopReason = "bonus"
	StopJackpot           StopReason = "jackpot"
	StopBigWin            StopReason = "big_win"
	StopInsufficientFunds StopReason = "insufficient_funds"
	StopCanceled          StopReason = "canceled"
)

// AutoPlayOptions 自动转轮参数
type AutoPlayOptions struct {
	Spins          int     `json:"spins"`            // 最多转几次，必须>0
	Bet            float64 `json:"bet"`              // 0 表示沿用当前投注
	StopOnBonus    bool    `json:"stop_on_bonus"`    // 触发免费旋转后停止
	StopOnJackpot  bool    `json:"stop_on_jackpot"`  // 中Jackpot后停止
	BigWinMultiple float64 `json:"big_win_multiple"` // 赔付>=投注×倍数时停止，0不启用
	Collect        bool    `json:"collect"`          // 保留每次转轮的结果
}

// AutoPlayResult 自动转轮汇总
type AutoPlayResult struct {
	SessionID       string         `json:"session_id"`
	Spins           int            `json:"spins"`
	FreeSpinsPlayed int            `json:"free_spins_played"`
	TotalWagered    float64        `json:"total_wagered"`
	TotalPayout     float64        `json:"total_payout"`
	BiggestWin      float64        `json:"biggest_win"`
	BiggestWinRound string         `json:"biggest_win_round,omitempty"`
	Bonuses         int            `json:"bonuses"`
	Jackpots        int            `json:"jackpots"`
	LedgerErrors    int            `json:"ledger_errors"`
	StopReason      StopReason     `json:"stop_reason"`
	Bankroll        BankrollState  `json:"bankroll"`
	Outcomes        []*SpinOutcome `json:"outcomes,omitempty"`
}

// RTP 本次自动转轮的返还率（百分比）
func (r *AutoPlayResult) RTP() float64 {
	if r.TotalWagered == 0 {
		return 0
	}
	return r.TotalPayout / r.TotalWagered * 100
}
