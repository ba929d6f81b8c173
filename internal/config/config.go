package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/wfunc/slot-sim/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Slot       SlotConfig       `mapstructure:"slot"`
	Bankroll   BankrollConfig   `mapstructure:"bankroll"`
	Session    SessionConfig    `mapstructure:"session"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Log        LogConfig        `mapstructure:"log"`
}

// SlotConfig 机台数学模型配置，留空symbols时使用内置默认机台
type SlotConfig struct {
	Reels            int             `mapstructure:"reels"`
	Rows             int             `mapstructure:"rows"`
	Symbols          []SymbolConfig  `mapstructure:"symbols"`
	Paylines         []PaylineConfig `mapstructure:"paylines"`
	FreeSpins        FreeSpinConfig  `mapstructure:"free_spins"`
	GlobalMultiplier float64         `mapstructure:"global_multiplier"`
	Volatility       string          `mapstructure:"volatility"`
}

// SymbolConfig 符号配置
type SymbolConfig struct {
	ID               int        `mapstructure:"id"`
	Name             string     `mapstructure:"name"`
	Weight           float64    `mapstructure:"weight"`
	BasePayout       float64    `mapstructure:"base_payout"`
	Tiers            TierConfig `mapstructure:"tiers"`
	IsScatter        bool       `mapstructure:"is_scatter"`
	IsJackpotTrigger bool       `mapstructure:"is_jackpot_trigger"`
	IsWild           bool       `mapstructure:"is_wild"`
}

// TierConfig 3/4/5连赔付档位（百分比）
type TierConfig struct {
	Three float64 `mapstructure:"three"`
	Four  float64 `mapstructure:"four"`
	Five  float64 `mapstructure:"five"`
}

// PaylineConfig 支付线几何
type PaylineConfig struct {
	ID        int              `mapstructure:"id"`
	Positions []PositionConfig `mapstructure:"positions"`
}

// PositionConfig 网格位置
type PositionConfig struct {
	Reel int `mapstructure:"reel"`
	Row  int `mapstructure:"row"`
}

// FreeSpinConfig 免费旋转档位表
type FreeSpinConfig struct {
	ThreeScatters int `mapstructure:"three_scatters"`
	FourScatters  int `mapstructure:"four_scatters"`
	FiveScatters  int `mapstructure:"five_scatters"`
}

// BankrollConfig 资金配置
type BankrollConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	MinBet         float64 `mapstructure:"min_bet"`
	MaxBet         float64 `mapstructure:"max_bet"`
	DefaultBet     float64 `mapstructure:"default_bet"`
	JackpotFloor   float64 `mapstructure:"jackpot_floor"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	MaxSessions     int           `mapstructure:"max_sessions"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LedgerConfig 中奖记录账本配置
type LedgerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	LogLevel  string `mapstructure:"log_level"`
	Retention int    `mapstructure:"retention"`
}

// SimulationConfig 批量模拟配置
type SimulationConfig struct {
	Spins          int     `mapstructure:"spins"`
	Bet            float64 `mapstructure:"bet"`
	Seed           uint64  `mapstructure:"seed"`
	StopOnBonus    bool    `mapstructure:"stop_on_bonus"`
	StopOnJackpot  bool    `mapstructure:"stop_on_jackpot"`
	BigWinMultiple float64 `mapstructure:"big_win_multiple"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取一份独立的配置，不影响全局实例
func Load(configPath string) (*Config, error) {
	_, loaded, err := load(configPath)
	return loaded, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	vp := viper.New()
	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("slotsim")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	vp.SetEnvPrefix("SLOT_SIM")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	if err := vp.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, "读取配置文件失败")
		}
	}

	loaded := &Config{}
	if err := vp.Unmarshal(loaded); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInvalidConfig, "解析配置失败")
	}
	return vp, loaded, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("slot.reels", 5)
	v.SetDefault("slot.rows", 3)
	v.SetDefault("slot.global_multiplier", 1.0)
	v.SetDefault("slot.volatility", "")
	v.SetDefault("slot.free_spins.three_scatters", 8)
	v.SetDefault("slot.free_spins.four_scatters", 12)
	v.SetDefault("slot.free_spins.five_scatters", 20)

	v.SetDefault("bankroll.initial_balance", 1000.0)
	v.SetDefault("bankroll.min_bet", 1.0)
	v.SetDefault("bankroll.max_bet", 100.0)
	v.SetDefault("bankroll.default_bet", 1.0)
	v.SetDefault("bankroll.jackpot_floor", 500.0)

	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.cleanup_interval", "1m")

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.dsn", "file::memory:?cache=shared")
	v.SetDefault("ledger.log_level", "warn")
	v.SetDefault("ledger.retention", 10000)

	v.SetDefault("simulation.spins", 100000)
	v.SetDefault("simulation.bet", 1.0)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.stop_on_bonus", false)
	v.SetDefault("simulation.stop_on_jackpot", false)
	v.SetDefault("simulation.big_win_multiple", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "slotsim.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化，解析成功后回调
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}
