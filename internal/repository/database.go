package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/model"
)

// NewMessageStore 按配置创建消息存储
// memory 驱动不需要数据库连接，返回的 *gorm.DB 为 nil
// 参数:
//   - cfg: 应用配置
//
// 返回:
//   - MessageStore: 消息存储
//   - *gorm.DB: 数据库连接（memory 驱动时为 nil），调用方负责关闭
//   - error: 连接或迁移失败
func NewMessageStore(cfg *config.Config) (MessageStore, *gorm.DB, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return NewMemoryMessageStore(), nil, nil
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	return NewMessageRepository(db), db, nil
}

// OpenDatabase 根据存储驱动打开数据库连接
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Storage.Driver {
	case config.StorageMySQL:
		dialector = mysql.Open(cfg.MySQL.DSN())
	case config.StoragePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN)
	case config.StorageSQLite:
		dialector = sqlite.Open(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("storage driver %q has no database", cfg.Storage.Driver)
	}

	// 配置 GORM logger
	logLevel := logger.Info
	if cfg.Server.Mode == "release" {
		logLevel = logger.Warn
	}
	gormLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	if cfg.Storage.Driver == config.StorageSQLite {
		// SQLite 只允许单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.Storage.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Storage.MaxLifetime) * time.Second)
	}

	return db, nil
}

// AutoMigrate 自动迁移数据库表
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Message{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
