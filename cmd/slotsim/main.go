package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/wfunc/slot-sim/internal/config"
	"github.com/wfunc/slot-sim/internal/database"
	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/game"
	"github.com/wfunc/slot-sim/internal/game/slot"
	"github.com/wfunc/slot-sim/internal/logger"
	"github.com/wfunc/slot-sim/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Simulator 一次批量模拟运行
type Simulator struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	ledger  repository.WinLedgerRepository
	service *game.GameService
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		spins       = flag.Int("spins", 0, "转轮次数，0使用配置值")
		bet         = flag.Float64("bet", 0, "每次投注，0使用配置值")
		seed        = flag.Uint64("seed", 0, "随机种子，0使用配置值")
		rtpOnly     = flag.Bool("rtp", false, "只打印理论RTP")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 初始化配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("初始化配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()
	if *spins > 0 {
		cfg.Simulation.Spins = *spins
	}
	if *bet > 0 {
		cfg.Simulation.Bet = *bet
	}
	if *seed > 0 {
		cfg.Simulation.Seed = *seed
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Printf("同步日志失败: %v\n", err)
		}
	}()

	machine, err := slot.FromConfig(cfg.Slot, cfg.Bankroll)
	if err != nil {
		logger.GetLogger().Error("机台配置无效", zap.Error(err))
		os.Exit(1)
	}
	printRTP(machine)
	if *rtpOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := &Simulator{cfg: cfg, logger: logger.GetLogger()}
	if err := sim.Init(machine); err != nil {
		sim.logger.Error("初始化失败", zap.Error(err))
		os.Exit(1)
	}
	defer sim.Close()

	if err := sim.Run(ctx); err != nil && !errors.Is(err, errors.ErrCanceled) {
		sim.logger.Error("模拟失败", zap.Error(err))
		os.Exit(1)
	}
}

// Init 初始化中奖账本和游戏服务
func (s *Simulator) Init(machine *slot.Machine) error {
	if s.cfg.Ledger.Enabled {
		db, err := database.Open(s.cfg.Ledger, logger.GetModuleLogger("database"))
		if err != nil {
			return err
		}
		s.db = db
		s.ledger = repository.NewWinLedgerRepository(db)
		if err := s.ledger.Migrate(context.Background()); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "迁移中奖记录表失败")
		}
	}

	service, err := game.NewGameService(&game.GameServiceConfig{
		Machine:         machine,
		Logger:          logger.GetModuleLogger("game"),
		WinLedger:       s.ledger,
		Retention:       s.cfg.Ledger.Retention,
		MaxSessions:     s.cfg.Session.MaxSessions,
		SessionTimeout:  s.cfg.Session.IdleTimeout,
		CleanupInterval: s.cfg.Session.CleanupInterval,
		Seed:            s.cfg.Simulation.Seed,
	})
	if err != nil {
		return err
	}
	s.service = service

	// 配置文件变更时替换机台，下一次转轮生效
	config.Watch(func(newCfg *config.Config) {
		m, err := slot.FromConfig(newCfg.Slot, newCfg.Bankroll)
		if err != nil {
			s.logger.Warn("新机台配置无效，保留旧配置", zap.Error(err))
			return
		}
		if err := s.service.Reconfigure(m); err != nil {
			s.logger.Warn("重新配置失败", zap.Error(err))
			return
		}
		printRTP(m)
	})
	return nil
}

// Run 创建会话并自动转轮，打印汇总
func (s *Simulator) Run(ctx context.Context) error {
	s.service.Start(ctx)

	sessionID, err := s.service.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer s.service.EndSession(sessionID)

	sim := s.cfg.Simulation
	s.logger.Info("开始模拟",
		zap.String("session_id", sessionID),
		zap.Int("spins", sim.Spins),
		zap.Float64("bet", sim.Bet),
		zap.Uint64("seed", sim.Seed))

	result, runErr := s.service.AutoPlay(ctx, sessionID, game.AutoPlayOptions{
		Spins:          sim.Spins,
		Bet:            sim.Bet,
		StopOnBonus:    sim.StopOnBonus,
		StopOnJackpot:  sim.StopOnJackpot,
		BigWinMultiple: sim.BigWinMultiple,
	})
	if result == nil {
		return runErr
	}

	info, err := s.service.GetSessionInfo(sessionID)
	if err != nil {
		return err
	}
	printResult(result, info)

	if s.ledger != nil {
		summary, err := s.ledger.Summary(ctx, sessionID)
		if err != nil {
			s.logger.Warn("查询中奖汇总失败", zap.Error(err))
		} else {
			fmt.Printf("中奖记录: %d 条, 总赔付 %.2f, 最大 %.2f, Jackpot %d, 免费旋转触发 %d\n",
				summary.TotalWins, summary.TotalPayout, summary.MaxPayout, summary.Jackpots, summary.Bonuses)
		}
		s.printLedgerRounds(ctx, result)
	}
	return runErr
}

// printLedgerRounds 打印最大中奖轮次和最近的Jackpot
func (s *Simulator) printLedgerRounds(ctx context.Context, result *game.AutoPlayResult) {
	if result.BiggestWinRound != "" {
		round, err := s.service.FindRound(ctx, result.BiggestWinRound)
		if err != nil {
			s.logger.Warn("查询最大中奖轮次失败", zap.Error(err))
		} else {
			fmt.Printf("最大中奖: 第 %d 转, 投注 %.2f, 赔付 %.2f (%.1f 倍), 中奖线 %v\n",
				round.Sequence, round.Bet, round.Payout, round.Multiple(), round.LinesWon)
		}
	}

	jackpots, err := s.service.RecentJackpots(ctx, 5)
	if err != nil {
		s.logger.Warn("查询Jackpot记录失败", zap.Error(err))
		return
	}
	for _, j := range jackpots {
		fmt.Printf("Jackpot: 第 %d 转, 赔付 %.2f (%.1f 倍), %s\n",
			j.Sequence, j.Payout, j.Multiple(), j.SpunAt.Format("2006-01-02 15:04:05"))
	}
}

// Close 关闭数据库
func (s *Simulator) Close() {
	if err := database.Close(s.db); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
}

func printRTP(machine *slot.Machine) {
	report, err := slot.TheoreticalRTP(machine.Config())
	if err != nil {
		fmt.Printf("理论RTP: 无定义 (%v)\n", err)
		return
	}
	table := machine.Table()
	fmt.Printf("机台: %s\n", machine.Name())
	fmt.Printf("理论RTP: %.4f%%\n", report.RTP)
	fmt.Printf("  支付线: %.4f  Jackpot: %.4f  Scatter: %.4f\n",
		report.LineReturn, report.JackpotReturn, report.ScatterReturn)
	fmt.Printf("  免费旋转触发概率: %.4f%%  每次期望免费次数: %.4f\n",
		report.BonusProbability*100, report.FreeSpinsPerSpin)
	for id, r := range report.SymbolReturn {
		fmt.Printf("  %-10s %.4f\n", table.Name(id), r)
	}
}

func printResult(r *game.AutoPlayResult, info *game.SessionInfo) {
	fmt.Printf("转轮: %d (免费 %d), 停止原因: %s\n", r.Spins, r.FreeSpinsPlayed, r.StopReason)
	fmt.Printf("投注: %.2f, 赔付: %.2f, 最大单次: %.2f\n", r.TotalWagered, r.TotalPayout, r.BiggestWin)
	fmt.Printf("实际RTP: %.4f%%, 中奖频率: %.2f%%, 波动指数: %.4f\n", info.RTP, info.HitFrequency, info.VolatilityIndex)
	fmt.Printf("免费旋转触发: %d, Jackpot: %d, 账本写入失败: %d\n", r.Bonuses, r.Jackpots, r.LedgerErrors)
	fmt.Printf("余额: %.2f, 奖池: %.2f, 剩余免费次数: %d\n",
		r.Bankroll.Balance, r.Bankroll.JackpotPool, r.Bankroll.FreeSpinsRemaining)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("老虎机转轮模拟器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("老虎机转轮模拟器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  slotsim [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  SLOT_SIM_SIMULATION_SPINS   转轮次数")
	fmt.Println("  SLOT_SIM_SLOT_VOLATILITY    波动档位 (low/medium/high)")
	fmt.Println("  SLOT_SIM_LEDGER_ENABLED     是否记录中奖")
}
