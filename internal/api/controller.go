package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/state"
)

const persistTimeout = 2 * time.Second

// Controller 串行化对设备会话的访问；会话本身非并发安全，
// 串口同一时刻也只能进行一次交互。
type Controller struct {
	mu     sync.Mutex
	sess   *device.Session
	store  state.Store
	logger *zap.Logger
}

// NewController 创建控制器；store 可为 nil（不持久化最近状态）
func NewController(sess *device.Session, store state.Store, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{sess: sess, store: store, logger: logger}
}

// View 只读访问（仍会与设备交互，因此同样持锁）
func (c *Controller) View(fn func(s *device.Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.sess)
}

// Update 修改设备状态，成功后保存最近已知取值
func (c *Controller) Update(ctx context.Context, fn func(s *device.Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.sess); err != nil {
		return err
	}
	c.persist(ctx, c.sess.Snapshot())
	return nil
}

// persist 保存失败只记日志，设备已生效
func (c *Controller) persist(ctx context.Context, snap state.Snapshot) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.store.Save(ctx, snap); err != nil {
		c.logger.Warn("save device snapshot failed", zap.String("port", snap.Port), zap.Error(err))
	}
}

// LinkStatus 供健康检查使用，不产生设备交互
func (c *Controller) LinkStatus() (port string, st string, mismatch bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.InterfaceName(), c.sess.State().String(), c.sess.Mismatch()
}
