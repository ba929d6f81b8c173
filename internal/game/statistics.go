package game

import (
	"math"
	"sync"
)

// SpinRecord 每次转轮一条，只追加不修改
type SpinRecord struct {
	Wagered float64 `json:"wagered"`
	Payout  float64 `json:"payout"`
	IsWin   bool    `json:"is_win"`
}

// StatsSnapshot 累计统计
type StatsSnapshot struct {
	TotalSpins   int64   `json:"total_spins"`
	TotalWins    int64   `json:"total_wins"`
	TotalWagered float64 `json:"total_wagered"`
	TotalPayout  float64 `json:"total_payout"`
}

// RTP 返还率（百分比），没有投注时为0
func (s StatsSnapshot) RTP() float64 {
	if s.TotalWagered == 0 {
		return 0
	}
	return s.TotalPayout / s.TotalWagered * 100
}

// Hold 庄家保留比例（百分比）
func (s StatsSnapshot) Hold() float64 {
	return 100 - s.RTP()
}

// HitFrequency 中奖频率（百分比）
func (s StatsSnapshot) HitFrequency() float64 {
	if s.TotalSpins == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(s.TotalSpins) * 100
}

// StatisticsTracker 转轮统计
type StatisticsTracker struct {
	mu       sync.RWMutex
	records  []SpinRecord
	snapshot StatsSnapshot
}

// NewStatisticsTracker 创建统计器
func NewStatisticsTracker() *StatisticsTracker {
	return &StatisticsTracker{}
}

// Record 追加一条记录
func (t *StatisticsTracker) Record(r SpinRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
	t.snapshot.TotalSpins++
	if r.IsWin {
		t.snapshot.TotalWins++
	}
	t.snapshot.TotalWagered += r.Wagered
	t.snapshot.TotalPayout += r.Payout
}

// Snapshot 当前累计值
func (t *StatisticsTracker) Snapshot() StatsSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// RTP 返还率（百分比）
func (t *StatisticsTracker) RTP() float64 {
	return t.Snapshot().RTP()
}

// Hold 庄家保留比例（百分比）
func (t *StatisticsTracker) Hold() float64 {
	return t.Snapshot().Hold()
}

// HitFrequency 中奖频率（百分比）
func (t *StatisticsTracker) HitFrequency() float64 {
	return t.Snapshot().HitFrequency()
}

// VolatilityIndex 中奖金额的总体标准差/均值，没有中奖时为0
func (t *StatisticsTracker) VolatilityIndex() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var n, sum float64
	for _, r := range t.records {
		if r.IsWin {
			n++
			sum += r.Payout
		}
	}
	if n == 0 || sum == 0 {
		return 0
	}
	mean := sum / n

	var sq float64
	for _, r := range t.records {
		if r.IsWin {
			d := r.Payout - mean
			sq += d * d
		}
	}
	return math.Sqrt(sq/n) / mean
}

// History 返回记录副本
func (t *StatisticsTracker) History() []SpinRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]SpinRecord(nil), t.records...)
}

// Len 记录数
func (t *StatisticsTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Reset 清空统计
func (t *StatisticsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
	t.snapshot = StatsSnapshot{}
}
