package gormrepo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/storage"
	"github.com/danmechanic/glucid/internal/storage/models"
	"github.com/danmechanic/glucid/internal/transaction"
)

const defaultRecentLimit = 50

// Repository 基于 GORM 的 JournalRepo 实现。
// 使用 isTx 标记区分事务上下文，避免嵌套事务重复 Begin/Commit。
type Repository struct {
	db   *gorm.DB
	isTx bool
}

// New 返回一个使用给定 *gorm.DB 的仓库
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Open 连接 PostgreSQL 并设置连接池
func Open(cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if log != nil {
		log.Info("journal database connected", zap.Int("max_open", cfg.MaxOpenConns))
	}
	return db, nil
}

// AutoMigrate 建表（devices / exchange_log）
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.Device{}, &models.Exchange{})
}

// WithTx 复用现有事务或开启新事务执行 fn
func (r *Repository) WithTx(ctx context.Context, fn func(storage.JournalRepo) error) error {
	if r.isTx {
		return fn(r)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	child := &Repository{db: tx, isTx: true}
	if err := fn(child); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// EnsureDevice 若设备不存在则插入，存在则刷新地址、last_seen_at 与 updated_at
func (r *Repository) EnsureDevice(ctx context.Context, port string, address int16) (*models.Device, error) {
	now := time.Now()
	record := &models.Device{Port: port, Address: address, LastSeenAt: &now}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "port"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"address":      address,
				"last_seen_at": now,
				"updated_at":   gorm.Expr("NOW()"),
			}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	var dev models.Device
	if err := r.db.WithContext(ctx).Where("port = ?", port).First(&dev).Error; err != nil {
		return nil, err
	}
	return &dev, nil
}

// InsertExchange 写入交互记录
func (r *Repository) InsertExchange(ctx context.Context, ex *models.Exchange) error {
	return r.db.WithContext(ctx).Create(ex).Error
}

// RecentExchanges 最近的交互记录
func (r *Repository) RecentExchanges(ctx context.Context, port string, limit int) ([]models.Exchange, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultRecentLimit
	}
	q := r.db.WithContext(ctx).Model(&models.Exchange{})
	if port != "" {
		q = q.Joins("JOIN devices ON devices.id = exchange_log.device_id").Where("devices.port = ?", port)
	}
	var out []models.Exchange
	err := q.Order("exchange_log.created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// RecordExchange 实现 transaction.Recorder：设备与交互在同一事务中落库
func (r *Repository) RecordExchange(ctx context.Context, ex transaction.Exchange) error {
	return r.WithTx(ctx, func(repo storage.JournalRepo) error {
		dev, err := repo.EnsureDevice(ctx, ex.Port, int16(ex.Address))
		if err != nil {
			return err
		}
		return repo.InsertExchange(ctx, FromExchange(dev.ID, ex))
	})
}

// FromExchange 将运行器的交互记录转换为表模型
func FromExchange(deviceID int64, ex transaction.Exchange) *models.Exchange {
	rec := &models.Exchange{
		ID:         ex.ID.String(),
		DeviceID:   deviceID,
		Command:    ex.Command,
		Opcode:     int16(ex.Opcode),
		Address:    int16(ex.Address),
		Request:    ex.Request,
		Response:   ex.Response,
		Attempts:   int16(ex.Attempts),
		Result:     transaction.Result(ex.Err),
		DurationMs: int32(ex.Duration / time.Millisecond),
		CreatedAt:  ex.At,
	}
	if ex.Err != nil {
		msg := ex.Err.Error()
		rec.Error = &msg
	}
	return rec
}
