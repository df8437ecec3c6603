package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/api/middleware"
	"github.com/danmechanic/glucid/internal/device"
)

// controlRoutes URL 段到控制项
var controlRoutes = map[string]device.Control{
	"sync":          device.ControlSync,
	"optical":       device.ControlOptical,
	"analog":        device.ControlAnalog,
	"aes":           device.ControlAES,
	"meter":         device.ControlMeter,
	"digital-input": device.ControlDigitalInput,
	"mode":          device.ControlMode,
}

// RegisterDeviceRoutes 注册设备控制路由
func RegisterDeviceRoutes(
	r gin.IRouter,
	handler *DeviceHandler,
	authCfg middleware.AuthConfig,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) {
	if r == nil || handler == nil {
		return
	}

	v1 := r.Group("/api/v1")
	if limiter != nil {
		v1.Use(middleware.RateLimit(limiter))
	}
	if authCfg.Enabled() {
		v1.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	dev := v1.Group("/device")
	dev.GET("", handler.GetDevice)
	dev.GET("/settings", handler.GetSettings)
	for seg, ctl := range controlRoutes {
		dev.PUT("/"+seg, handler.SetControl(ctl))
	}

	dev.GET("/gains", handler.GetGains)
	dev.PUT("/gains/:stage", handler.SetStageGain)
	dev.PUT("/gains/:stage/:channel", handler.SetChannelGain)
	dev.PUT("/links", handler.SetLinks)
	dev.POST("/preset", handler.ApplyPreset)
	dev.POST("/clear-error", handler.ClearError)
	dev.POST("/reconnect", handler.Reconnect)

	v1.GET("/journal", handler.ListJournal)
}
