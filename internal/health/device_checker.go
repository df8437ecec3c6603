package health

import (
	"context"
	"time"
)

// LinkStatus 设备链路状态来源（不产生设备交互）
type LinkStatus interface {
	LinkStatus() (port string, state string, mismatch bool)
}

// DeviceChecker 根据运行器状态判断设备链路健康
type DeviceChecker struct {
	src LinkStatus
}

// NewDeviceChecker 创建设备链路检查器
func NewDeviceChecker(src LinkStatus) *DeviceChecker {
	return &DeviceChecker{src: src}
}

func (c *DeviceChecker) Name() string { return "device" }

// Check error 状态不健康；地址不符或未连接为降级
func (c *DeviceChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	port, state, mismatch := c.src.LinkStatus()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{"port": port, "state": state, "mismatch": mismatch},
	}
	switch {
	case state == "error":
		res.Status = StatusUnhealthy
		res.Message = "link in error state"
	case state != "connected":
		res.Status = StatusDegraded
		res.Message = "link not connected"
	case mismatch:
		res.Status = StatusDegraded
		res.Message = "device address mismatch"
	}
	res.Latency = time.Since(start)
	return res
}
