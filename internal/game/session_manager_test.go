package game

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game/slot"
)

func newTestSessionManager(t *testing.T, clock func() time.Time) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(&SessionManagerConfig{
		Machine:        slot.DefaultMachine(),
		MaxSessions:    4,
		SessionTimeout: time.Minute,
		Seed:           7,
		Clock:          clock,
	})
	require.NoError(t, err)
	return sm
}

func TestNewSessionManagerValidation(t *testing.T) {
	_, err := NewSessionManager(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = NewSessionManager(&SessionManagerConfig{})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestSessionManagerCreateAndGet(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var offset atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(offset.Load())) }
	sm := newTestSessionManager(t, clock)

	t.Run("指定ID创建", func(t *testing.T) {
		s, err := sm.CreateSession(context.Background(), "alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", s.Engine.SessionID())
		assert.Equal(t, base, s.StartTime)
		assert.Equal(t, 1, sm.GetActiveSessions())
	})

	t.Run("空ID随机生成", func(t *testing.T) {
		s, err := sm.CreateSession(context.Background(), "")
		require.NoError(t, err)
		assert.NotEmpty(t, s.Engine.SessionID())
		assert.NotEqual(t, "alpha", s.Engine.SessionID())
	})

	t.Run("获取会话刷新活动时间", func(t *testing.T) {
		offset.Store(int64(30 * time.Second))
		s, err := sm.GetSession("alpha")
		require.NoError(t, err)
		assert.Equal(t, base.Add(30*time.Second), s.LastActivity())

		info := s.Info(clock())
		assert.Equal(t, "alpha", info.SessionID)
		assert.Equal(t, StateIdle, info.State)
		assert.Equal(t, 30.0, info.Duration)
		assert.Equal(t, slot.DefaultMachine().Name(), info.Machine)
	})

	t.Run("会话不存在", func(t *testing.T) {
		_, err := sm.GetSession("missing")
		assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
		assert.True(t, errors.Is(sm.RemoveSession("missing"), errors.ErrSessionNotFound))
	})

	t.Run("移除会话", func(t *testing.T) {
		require.NoError(t, sm.RemoveSession("alpha"))
		_, err := sm.GetSession("alpha")
		assert.True(t, errors.Is(err, errors.ErrSessionNotFound))
	})
}

func TestSessionManagerCanceledContext(t *testing.T) {
	sm := newTestSessionManager(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sm.CreateSession(ctx, "late")
	assert.True(t, errors.Is(err, errors.ErrCanceled))
	assert.Equal(t, 0, sm.GetActiveSessions())
}

func TestSessionManagerReconfigureNil(t *testing.T) {
	sm := newTestSessionManager(t, nil)
	assert.True(t, errors.Is(sm.Reconfigure(nil), errors.ErrInvalidConfig))
	assert.Equal(t, slot.DefaultMachine().Name(), sm.Machine().Name())
}

func TestSessionManagerCleanupTask(t *testing.T) {
	base := time.Now()
	var offset atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(offset.Load())) }
	sm := newTestSessionManager(t, clock)

	_, err := sm.CreateSession(context.Background(), "idle")
	require.NoError(t, err)

	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sm.StartCleanupTask(ctx, 5*time.Millisecond, func() { ticks.Add(1) })

	offset.Store(int64(2 * time.Minute))
	require.Eventually(t, func() bool {
		return sm.GetActiveSessions() == 0 && ticks.Load() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestSessionManagerNoTimeout(t *testing.T) {
	sm, err := NewSessionManager(&SessionManagerConfig{Machine: slot.DefaultMachine()})
	require.NoError(t, err)
	_, err = sm.CreateSession(context.Background(), "forever")
	require.NoError(t, err)

	assert.Equal(t, 0, sm.CleanupInactiveSessions())
	assert.Equal(t, 1, sm.GetActiveSessions())
}
