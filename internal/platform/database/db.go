package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据配置打开数据库连接。
// SQLite 是默认的单机部署形态，Postgres 用于多实例部署。
func Open(cfg config.DatabaseConfig, zl *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, NewGormConfig())
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite 同一时间只允许一个写者，串行化连接可以避免大部分 SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("无法获取底层数据库连接: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	zl.Info("数据库连接成功", zap.String("driver", cfg.Driver))
	return db, nil
}

// NewGormConfig 返回所有连接共用的 gorm 配置。
// TranslateError 让唯一键冲突统一表现为 gorm.ErrDuplicatedKey，便于重试判断。
func NewGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold: 200 * time.Millisecond,
				LogLevel:      logger.Silent, // 在排查问题时可以调为 Warn
				Colorful:      true,
			},
		),
		TranslateError: true,
	}
}
