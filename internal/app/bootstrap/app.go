package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/api"
	"github.com/danmechanic/glucid/internal/api/middleware"
	"github.com/danmechanic/glucid/internal/app"
	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/health"
	"github.com/danmechanic/glucid/internal/metrics"
	"github.com/danmechanic/glucid/internal/transaction"
)

// Run 控制守护进程启动流程：存储 → 设备 → HTTP，收到信号后优雅关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	ctx := context.Background()
	log.Info("starting glucid daemon",
		zap.String("port", cfg.Device.Port),
		zap.String("family", cfg.Device.Family),
		zap.Bool("simulate", cfg.Device.Simulate))

	// ========== 阶段1: 指标 ==========
	reg, appm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)

	// ========== 阶段2: 可选存储（失败直接返回）==========
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := app.NewStateStore(redisClient)

	journal, db, err := app.OpenJournal(ctx, cfg.Database, log)
	if err != nil {
		log.Error("journal initialization failed", zap.Error(err))
		return err
	}
	defer app.CloseJournal(db)

	var recorder transaction.Recorder
	var journalReader api.JournalReader
	if journal != nil {
		recorder = journal
		journalReader = journal
	}

	// ========== 阶段3: 设备 ==========
	dev, err := app.NewDevice(ctx, cfg, app.DeviceDeps{
		Logger:   log,
		Metrics:  appm,
		Recorder: recorder,
		Store:    store,
	})
	if err != nil {
		return err
	}
	// 串口打不开时仍然启动，可通过 /reconnect 重试
	if err := dev.Session.Connect(); err != nil {
		log.Warn("device connect failed", zap.Error(err))
	} else {
		log.Info("device connected", zap.String("port", dev.Session.InterfaceName()))
	}
	defer dev.Session.Disconnect()

	ctl := api.NewController(dev.Session, store, log)

	// ========== 阶段4: HTTP ==========
	agg := app.NewHealthAggregator(ctl, db)
	app.AddRedisChecker(agg, redisClient)

	httpSrv := app.NewHTTPServer(cfg, metricsHandler, agg,
		middleware.RequestID(),
		middleware.AccessLog(log, appm),
	)
	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit.Enable {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst)
	}
	r := httpSrv.Engine()
	health.RegisterHTTPRoutes(r, agg)
	api.RegisterDeviceRoutes(r, api.NewDeviceHandler(ctl, journalReader, log),
		middleware.AuthConfig{APIKeys: cfg.HTTP.APIKeys}, limiter, log)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ========== 阶段5: 等待关闭信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("received shutdown signal, gracefully shutting down...")
	case err := <-errCh:
		log.Error("http server error", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Info("shutdown complete")
	return nil
}
