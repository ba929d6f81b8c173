package repository

import (
	"context"

	"github.com/wfunc/slot-sim/internal/config"
	"github.com/wfunc/slot-sim/internal/database"
	"gorm.io/gorm"
)

// SetupTestDB 内存sqlite，已建表
func SetupTestDB() *gorm.DB {
	db, err := database.Open(config.LedgerConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, nil)
	if err != nil {
		panic(err)
	}
	if err := NewWinLedgerRepository(db).Migrate(context.Background()); err != nil {
		panic(err)
	}
	return db
}

// CleanupTestDB 关闭测试数据库
func CleanupTestDB(db *gorm.DB) {
	_ = database.Close(db)
}
