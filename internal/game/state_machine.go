package game

import (
	"fmt"
	"sync"

	"github.com/wfunc/slot-sim/internal/errors"
	"go.uber.org/zap"
)

// SpinState 转轮状态
type SpinState string

const (
	StateIdle         SpinState = "idle"          // 待机
	StateCommitted    SpinState = "committed"     // 已扣款/已消耗免费次数
	StateResolved     SpinState = "resolved"      // 已结算赔付
	StateBonusAwarded SpinState = "bonus_awarded" // 已发放免费旋转
	StateRefused      SpinState = "refused"       // 被拒绝，无副作用
)

// SpinEvent 状态机事件
type SpinEvent string

const (
	EventCommit  SpinEvent = "commit"
	EventRefuse  SpinEvent = "refuse"
	EventResolve SpinEvent = "resolve"
	EventBonus   SpinEvent = "award_bonus"
	EventFinish  SpinEvent = "finish"
	EventRelease SpinEvent = "release"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From  SpinState
	Event SpinEvent
	To    SpinState
}

var spinTransitions = []StateTransition{
	{From: StateIdle, Event: EventCommit, To: StateCommitted},
	{From: StateIdle, Event: EventRefuse, To: StateRefused},
	{From: StateRefused, Event: EventRelease, To: StateIdle},
	{From: StateCommitted, Event: EventResolve, To: StateResolved},
	{From: StateResolved, Event: EventBonus, To: StateBonusAwarded},
	{From: StateResolved, Event: EventFinish, To: StateIdle},
	{From: StateBonusAwarded, Event: EventFinish, To: StateIdle},
}

// StateMachine 单个会话的转轮状态机
type StateMachine struct {
	mu           sync.RWMutex
	currentState SpinState
	sessionID    string
	transitions  map[string]StateTransition
	logger       *zap.Logger

	onStateChange func(from, to SpinState, event SpinEvent)
}

// NewStateMachine 创建状态机，初始为待机
func NewStateMachine(sessionID string, logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		currentState: StateIdle,
		sessionID:    sessionID,
		transitions:  make(map[string]StateTransition, len(spinTransitions)),
		logger:       logger,
	}
	for _, t := range spinTransitions {
		sm.transitions[transitionKey(t.From, t.Event)] = t
	}
	return sm
}

func transitionKey(state SpinState, event SpinEvent) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Trigger 触发事件，非法转换返回 ErrInvalidState 并保持原状态
func (sm *StateMachine) Trigger(event SpinEvent) error {
	sm.mu.Lock()
	from := sm.currentState
	t, ok := sm.transitions[transitionKey(from, event)]
	if !ok {
		sm.mu.Unlock()
		return errors.Newf(errors.ErrInvalidState, "状态=%s, 事件=%s", from, event)
	}
	sm.currentState = t.To
	callback := sm.onStateChange
	sm.mu.Unlock()

	sm.logger.Debug("状态转换",
		zap.String("session_id", sm.sessionID),
		zap.String("from", string(from)),
		zap.String("to", string(t.To)),
		zap.String("event", string(event)))

	if callback != nil {
		callback(from, t.To, event)
	}
	return nil
}

// GetState 获取当前状态
func (sm *StateMachine) GetState() SpinState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// CanTransition 检查当前状态下事件是否合法
func (sm *StateMachine) CanTransition(event SpinEvent) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.transitions[transitionKey(sm.currentState, event)]
	return ok
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to SpinState, event SpinEvent)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}

// Reset 回到待机
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = StateIdle
}
