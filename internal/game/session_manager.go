package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game/slot"
	"go.uber.org/zap"
)

// SessionManager 会话管理器，每个会话独占一个引擎和随机源
type SessionManager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	machine        *slot.Machine
	logger         *zap.Logger
	maxSessions    int
	sessionTimeout time.Duration
	seed           uint64
	created        atomic.Uint64
	clock          func() time.Time
}

// Session 一个玩家会话
type Session struct {
	Engine       *SpinEngine
	StartTime    time.Time
	mu           sync.RWMutex
	lastActivity time.Time
}

// SessionManagerConfig 会话管理器配置
type SessionManagerConfig struct {
	Machine        *slot.Machine
	Logger         *zap.Logger
	MaxSessions    int
	SessionTimeout time.Duration
	// Seed 非0时每个会话使用 Seed+序号 的PCG随机源，结果可复现
	Seed  uint64
	Clock func() time.Time
}

// NewSessionManager 创建会话管理器
func NewSessionManager(cfg *SessionManagerConfig) (*SessionManager, error) {
	if cfg == nil || cfg.Machine == nil {
		return nil, errors.New(errors.ErrInvalidConfig, "会话管理器缺少机台")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionManager{
		sessions:       make(map[string]*Session),
		machine:        cfg.Machine,
		logger:         logger,
		maxSessions:    cfg.MaxSessions,
		sessionTimeout: cfg.SessionTimeout,
		seed:           cfg.Seed,
		clock:          clock,
	}, nil
}

// CreateSession 创建新会话；sessionID为空时随机生成
func (sm *SessionManager) CreateSession(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCanceled)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, errors.Newf(errors.ErrSessionLimit, "上限 %d", sm.maxSessions)
	}
	if sessionID != "" {
		if _, exists := sm.sessions[sessionID]; exists {
			return nil, errors.Newf(errors.ErrInvalidParam, "会话已存在: %s", sessionID)
		}
	}

	opts := []EngineOption{
		WithLogger(sm.logger),
		WithClock(sm.clock),
	}
	if sessionID != "" {
		opts = append(opts, WithSessionID(sessionID))
	}
	n := sm.created.Add(1)
	if sm.seed != 0 {
		opts = append(opts, WithRandomSource(slot.NewSeededSource(sm.seed+n-1)))
	}

	engine, err := NewSpinEngine(sm.machine, opts...)
	if err != nil {
		return nil, err
	}
	id := engine.SessionID()
	engine.OnStateChange(func(from, to SpinState, event SpinEvent) {
		if to == StateRefused {
			sm.logger.Debug("转轮被拒绝", zap.String("session_id", id))
		}
	})

	now := sm.clock()
	session := &Session{
		Engine:       engine,
		StartTime:    now,
		lastActivity: now,
	}
	sm.sessions[id] = session

	sm.logger.Info("创建会话",
		zap.String("session_id", id),
		zap.String("machine", sm.machine.Name()),
		zap.Int("active", len(sm.sessions)))

	return session, nil
}

// GetSession 获取会话并刷新活动时间
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	session.touch(sm.clock())
	return session, nil
}

// RemoveSession 移除会话
func (sm *SessionManager) RemoveSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	delete(sm.sessions, sessionID)

	snap := session.Engine.Stats().Snapshot()
	sm.logger.Info("移除会话",
		zap.String("session_id", sessionID),
		zap.Int64("total_spins", snap.TotalSpins),
		zap.Float64("total_wagered", snap.TotalWagered),
		zap.Float64("total_payout", snap.TotalPayout))
	return nil
}

// Reconfigure 替换所有会话的机台，新会话也使用新机台
func (sm *SessionManager) Reconfigure(machine *slot.Machine) error {
	if machine == nil {
		return errors.New(errors.ErrInvalidConfig, "机台为空")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.machine = machine
	for id, session := range sm.sessions {
		if err := session.Engine.Reconfigure(machine); err != nil {
			return errors.Wrapf(err, errors.ErrInvalidConfig, "会话 %s", id)
		}
	}
	sm.logger.Info("全部会话已重新配置",
		zap.String("machine", machine.Name()),
		zap.Int("sessions", len(sm.sessions)))
	return nil
}

// Machine 当前机台
func (sm *SessionManager) Machine() *slot.Machine {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.machine
}

// CleanupInactiveSessions 清理超时会话，返回清理数量
func (sm *SessionManager) CleanupInactiveSessions() int {
	if sm.sessionTimeout <= 0 {
		return 0
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.clock()
	removed := 0
	for id, session := range sm.sessions {
		idle := now.Sub(session.LastActivity())
		if idle > sm.sessionTimeout {
			delete(sm.sessions, id)
			removed++
			sm.logger.Info("清理超时会话",
				zap.String("session_id", id),
				zap.Duration("inactive", idle))
		}
	}
	return removed
}

// StartCleanupTask 启动清理任务，ctx取消后退出
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration, onTick func()) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.CleanupInactiveSessions()
				if onTick != nil {
					onTick()
				}
			}
		}
	}()
}

// GetActiveSessions 活跃会话数
func (sm *SessionManager) GetActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Info 会话信息
func (s *Session) Info(now time.Time) *SessionInfo {
	stats := s.Engine.Stats()
	snap := stats.Snapshot()
	return &SessionInfo{
		SessionID:       s.Engine.SessionID(),
		Machine:         s.Engine.Machine().Name(),
		State:           s.Engine.State(),
		StartTime:       s.StartTime,
		LastActivity:    s.LastActivity(),
		Duration:        now.Sub(s.StartTime).Seconds(),
		Bankroll:        s.Engine.Ledger().State(),
		Stats:           snap,
		RTP:             snap.RTP(),
		HitFrequency:    snap.HitFrequency(),
		VolatilityIndex: stats.VolatilityIndex(),
	}
}

// LastActivity 最后活动时间
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}
