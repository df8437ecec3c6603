package app

import (
	"gorm.io/gorm"

	"github.com/danmechanic/glucid/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器（设备链路 + 可选日志库）
func NewHealthAggregator(link health.LinkStatus, db *gorm.DB) *health.Aggregator {
	agg := health.NewAggregator(health.NewDeviceChecker(link))
	if db != nil {
		agg.AddChecker(health.NewDatabaseChecker(db))
	}
	return agg
}
