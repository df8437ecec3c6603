package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/storage/gormrepo"
)

// OpenJournal 连接交互日志库并建表；未启用时返回 nil
func OpenJournal(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*gormrepo.Repository, *gorm.DB, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	db, err := gormrepo.Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	repo := gormrepo.New(db)
	if err := repo.AutoMigrate(ctx); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("migrate journal: %w", err)
	}
	log.Info("journal ready", zap.String("dsn", MaskDSN(cfg.DSN)))
	return repo, db, nil
}

// CloseJournal 关闭底层连接池
func CloseJournal(db *gorm.DB) {
	if db != nil {
		closeDB(db)
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
