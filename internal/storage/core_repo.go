package storage

import (
	"context"

	"github.com/danmechanic/glucid/internal/storage/models"
)

// JournalRepo 交互日志存储抽象。
// 约束：
// - 上层不直接写 SQL，统一通过本接口访问
// - 接口保持 DB-agnostic（面向模型与基础类型）
type JournalRepo interface {
	// WithTx 在单个事务中执行 fn，嵌套调用复用当前事务
	WithTx(ctx context.Context, fn func(repo JournalRepo) error) error

	// EnsureDevice 若端口不存在则创建，存在则刷新地址与最近时间
	EnsureDevice(ctx context.Context, port string, address int16) (*models.Device, error)

	// InsertExchange 写入一条交互记录
	InsertExchange(ctx context.Context, ex *models.Exchange) error

	// RecentExchanges 按时间倒序返回某端口的最近交互（port 为空时不过滤）
	RecentExchanges(ctx context.Context, port string, limit int) ([]models.Exchange, error)
}
