package health

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DatabaseChecker 交互日志数据库检查器
type DatabaseChecker struct {
	db *gorm.DB
}

// NewDatabaseChecker 创建数据库健康检查器
func NewDatabaseChecker(db *gorm.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

// Check 日志库不可用只影响审计，按降级处理
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}
	stats := sqlDB.Stats()
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{
			"open_conns": stats.OpenConnections,
			"in_use":     stats.InUse,
			"idle":       stats.Idle,
			"wait_count": stats.WaitCount,
		},
		Latency: time.Since(start),
	}
}
