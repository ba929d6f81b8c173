package game

import (
	"context"
	"time"

	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game/slot"
	"github.com/wfunc/slot-sim/internal/models"
	"github.com/wfunc/slot-sim/internal/repository"
	"go.uber.org/zap"
)

// GameService 会话、转轮与中奖记录的业务层
type GameService struct {
	sessionManager *SessionManager
	winLedger      repository.WinLedgerRepository
	retention      int
	cleanup        time.Duration
	logger         *zap.Logger
}

// GameServiceConfig 游戏服务配置
type GameServiceConfig struct {
	Machine *slot.Machine
	Logger  *zap.Logger
	// WinLedger 为nil时不记录中奖
	WinLedger       repository.WinLedgerRepository
	Retention       int
	MaxSessions     int
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
	Seed            uint64
	Clock           func() time.Time
}

// NewGameService 创建游戏服务
func NewGameService(cfg *GameServiceConfig) (*GameService, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrInvalidConfig, "游戏服务配置为空")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm, err := NewSessionManager(&SessionManagerConfig{
		Machine:        cfg.Machine,
		Logger:         logger,
		MaxSessions:    cfg.MaxSessions,
		SessionTimeout: cfg.SessionTimeout,
		Seed:           cfg.Seed,
		Clock:          cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	return &GameService{
		sessionManager: sm,
		winLedger:      cfg.WinLedger,
		retention:      cfg.Retention,
		cleanup:        cfg.CleanupInterval,
		logger:         logger,
	}, nil
}

// Sessions 会话管理器
func (s *GameService) Sessions() *SessionManager {
	return s.sessionManager
}

// CreateSession 创建会话，返回会话ID
func (s *GameService) CreateSession(ctx context.Context) (string, error) {
	session, err := s.sessionManager.CreateSession(ctx, "")
	if err != nil {
		return "", err
	}
	return session.Engine.SessionID(), nil
}

// EndSession 结束会话
func (s *GameService) EndSession(sessionID string) error {
	return s.sessionManager.RemoveSession(sessionID)
}

// GetSessionInfo 会话信息
func (s *GameService) GetSessionInfo(sessionID string) (*SessionInfo, error) {
	session, err := s.sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Info(s.sessionManager.clock()), nil
}

// Spin 转一次。中奖记录写入失败时转轮结果照常返回，同时返回 ErrLedgerWrite。
func (s *GameService) Spin(ctx context.Context, sessionID string, bet float64) (*SpinOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCanceled)
	}
	session, err := s.sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := session.Engine.Spin(bet)
	if err != nil {
		return nil, err
	}
	if err := s.recordWin(ctx, session.Engine.Machine().Name(), outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (s *GameService) recordWin(ctx context.Context, machine string, o *SpinOutcome) error {
	if s.winLedger == nil || !o.IsWin() {
		return nil
	}
	record := &models.SpinRecord{
		RoundID:          o.RoundID,
		SessionID:        o.SessionID,
		Sequence:         o.Sequence,
		Machine:          machine,
		Bet:              o.Bet,
		Wagered:          o.Wagered,
		Payout:           o.Payout,
		LinePayout:       o.LinePayout,
		ScatterPayout:    o.ScatterPayout,
		FreeSpin:         o.FreeSpin,
		BonusTriggered:   o.BonusTriggered,
		FreeSpinsAwarded: o.FreeSpinsAwarded,
		JackpotWon:       o.JackpotWon,
		Balance:          o.Bankroll.Balance,
		Grid:             o.Grid.Clone(),
		LinesWon:         append([]int(nil), o.LinesWon...),
		SpunAt:           o.Timestamp,
	}
	if err := s.winLedger.Create(ctx, record); err != nil {
		s.logger.Error("写入中奖记录失败",
			zap.String("session_id", o.SessionID),
			zap.String("round_id", o.RoundID),
			zap.Error(err))
		return errors.Wrap(err, errors.ErrLedgerWrite)
	}
	return nil
}

// AutoPlay 连续转轮直到次数用完或满足停止条件。
// 余额不足时正常停止；ctx取消时返回已完成部分的汇总和 ErrCanceled。
func (s *GameService) AutoPlay(ctx context.Context, sessionID string, opts AutoPlayOptions) (*AutoPlayResult, error) {
	if opts.Spins <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParam, "自动转轮次数 %d 必须大于0", opts.Spins)
	}
	if opts.BigWinMultiple < 0 {
		return nil, errors.Newf(errors.ErrInvalidParam, "大奖倍数 %v 不能为负", opts.BigWinMultiple)
	}
	session, err := s.sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	bet := opts.Bet
	if bet == 0 {
		bet = session.Engine.Ledger().State().Bet
	}

	result := &AutoPlayResult{SessionID: sessionID, StopReason: StopCompleted}
	defer func() {
		result.Bankroll = session.Engine.Ledger().State()
	}()

	for result.Spins < opts.Spins {
		// Spin 在动账本之前检查ctx，取消只发生在两次转轮之间
		outcome, err := s.Spin(ctx, sessionID, bet)
		switch {
		case err == nil:
		case outcome != nil && errors.Is(err, errors.ErrLedgerWrite):
			result.LedgerErrors++
		case errors.Is(err, errors.ErrCanceled):
			result.StopReason = StopCanceled
			return result, err
		case errors.Is(err, errors.ErrInsufficientFunds):
			result.StopReason = StopInsufficientFunds
			return result, nil
		default:
			return result, err
		}

		result.Spins++
		if outcome.FreeSpin {
			result.FreeSpinsPlayed++
		}
		result.TotalWagered += outcome.Wagered
		result.TotalPayout += outcome.Payout
		if outcome.Payout > result.BiggestWin {
			result.BiggestWin = outcome.Payout
			result.BiggestWinRound = outcome.RoundID
		}
		if outcome.BonusTriggered {
			result.Bonuses++
		}
		if outcome.JackpotWon {
			result.Jackpots++
		}
		if opts.Collect {
			result.Outcomes = append(result.Outcomes, outcome)
		}

		if reason, stop := stopReason(opts, outcome); stop {
			result.StopReason = reason
			break
		}
	}

	s.logger.Info("自动转轮结束",
		zap.String("session_id", sessionID),
		zap.Int("spins", result.Spins),
		zap.String("reason", string(result.StopReason)),
		zap.Float64("rtp", result.RTP()))
	return result, nil
}

func stopReason(opts AutoPlayOptions, o *SpinOutcome) (StopReason, bool) {
	switch {
	case opts.StopOnJackpot && o.JackpotWon:
		return StopJackpot, true
	case opts.StopOnBonus && o.BonusTriggered:
		return StopBonus, true
	case opts.BigWinMultiple > 0 && o.Payout >= o.Bet*opts.BigWinMultiple:
		return StopBigWin, true
	}
	return "", false
}

// History 会话中奖记录，未启用记录时返回空
func (s *GameService) History(ctx context.Context, sessionID string, page *repository.Pagination) ([]*models.SpinRecord, error) {
	if s.winLedger == nil {
		return nil, nil
	}
	return s.winLedger.FindBySession(ctx, sessionID, page)
}

// FindRound 按轮次查中奖记录
func (s *GameService) FindRound(ctx context.Context, roundID string) (*models.SpinRecord, error) {
	if s.winLedger == nil {
		return nil, errors.New(errors.ErrNotFound, "未启用中奖记录")
	}
	return s.winLedger.FindByRoundID(ctx, roundID)
}

// RecentJackpots 最近的Jackpot记录，未启用记录时返回空
func (s *GameService) RecentJackpots(ctx context.Context, limit int) ([]*models.SpinRecord, error) {
	if s.winLedger == nil {
		return nil, nil
	}
	return s.winLedger.FindJackpots(ctx, limit)
}

// Reconfigure 校验后替换所有会话的机台
func (s *GameService) Reconfigure(machine *slot.Machine) error {
	return s.sessionManager.Reconfigure(machine)
}

// TrimLedger 按保留条数清理中奖记录
func (s *GameService) TrimLedger(ctx context.Context) (int64, error) {
	if s.winLedger == nil || s.retention <= 0 {
		return 0, nil
	}
	deleted, err := s.winLedger.Trim(ctx, s.retention)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Debug("清理中奖记录", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// Start 启动后台清理任务
func (s *GameService) Start(ctx context.Context) {
	s.sessionManager.StartCleanupTask(ctx, s.cleanup, func() {
		if _, err := s.TrimLedger(ctx); err != nil {
			s.logger.Warn("清理中奖记录失败", zap.Error(err))
		}
	})
	s.logger.Info("游戏服务已启动")
}
