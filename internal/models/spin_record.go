package models

import (
	"time"
)

// SpinRecord 中奖记录表，只记录有赔付的转轮
type SpinRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RoundID          string    `gorm:"size:36;uniqueIndex;not null" json:"round_id"`
	SessionID        string    `gorm:"size:36;index;not null" json:"session_id"`
	Sequence         int64     `gorm:"not null" json:"sequence"`
	Machine          string    `gorm:"size:50" json:"machine"`
	Bet              float64   `json:"bet"`
	Wagered          float64   `json:"wagered"`
	Payout           float64   `json:"payout"`
	LinePayout       float64   `json:"line_payout"`
	ScatterPayout    float64   `json:"scatter_payout"`
	FreeSpin         bool      `gorm:"default:false" json:"free_spin"`
	BonusTriggered   bool      `gorm:"default:false" json:"bonus_triggered"`
	FreeSpinsAwarded int       `gorm:"default:0" json:"free_spins_awarded"`
	JackpotWon       bool      `gorm:"default:false;index" json:"jackpot_won"`
	Balance          float64   `json:"balance"`
	Grid             [][]int   `gorm:"serializer:json" json:"grid"`
	LinesWon         []int     `gorm:"serializer:json" json:"lines_won"`
	SpunAt           time.Time `gorm:"index" json:"spun_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName 表名
func (SpinRecord) TableName() string {
	return "spin_records"
}

// Multiple 赔付相对投注的倍数，免费旋转按投注额计
func (r *SpinRecord) Multiple() float64 {
	if r.Bet == 0 {
		return 0
	}
	return r.Payout / r.Bet
}

// AllModels 需要迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&SpinRecord{},
	}
}
