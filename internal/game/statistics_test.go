package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsTrackerEmpty(t *testing.T) {
	st := NewStatisticsTracker()
	assert.Zero(t, st.RTP())
	assert.Zero(t, st.HitFrequency())
	assert.Zero(t, st.VolatilityIndex())
	assert.Equal(t, 100.0, st.Hold())
	assert.Zero(t, st.Len())
}

func TestStatisticsTrackerReductions(t *testing.T) {
	st := NewStatisticsTracker()
	st.Record(SpinRecord{Wagered: 1, Payout: 0})
	st.Record(SpinRecord{Wagered: 1, Payout: 1, IsWin: true})
	st.Record(SpinRecord{Wagered: 1, Payout: 0})
	st.Record(SpinRecord{Wagered: 0, Payout: 3, IsWin: true})

	snap := st.Snapshot()
	assert.Equal(t, int64(4), snap.TotalSpins)
	assert.Equal(t, int64(2), snap.TotalWins)
	assert.Equal(t, 3.0, snap.TotalWagered)
	assert.Equal(t, 4.0, snap.TotalPayout)

	assert.InDelta(t, 400.0/3, st.RTP(), 1e-9)
	assert.InDelta(t, 100-400.0/3, st.Hold(), 1e-9)
	assert.Equal(t, 50.0, st.HitFrequency())
	// 中奖金额 1 和 3：均值2，总体标准差1
	assert.InDelta(t, 0.5, st.VolatilityIndex(), 1e-12)
}

func TestStatisticsTrackerHistoryIsCopy(t *testing.T) {
	st := NewStatisticsTracker()
	st.Record(SpinRecord{Wagered: 1, Payout: 2, IsWin: true})

	history := st.History()
	history[0].Payout = 100
	assert.Equal(t, 2.0, st.History()[0].Payout)

	st.Reset()
	assert.Zero(t, st.Len())
	assert.Equal(t, StatsSnapshot{}, st.Snapshot())
}

func TestStatsSnapshotLosingOnly(t *testing.T) {
	st := NewStatisticsTracker()
	for i := 0; i < 5; i++ {
		st.Record(SpinRecord{Wagered: 2})
	}
	assert.Zero(t, st.RTP())
	assert.Equal(t, 100.0, st.Hold())
	assert.Zero(t, st.VolatilityIndex())
}
