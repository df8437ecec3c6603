package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/storage/models"
)

// JournalReader 交互日志查询（gormrepo.Repository 实现）
type JournalReader interface {
	RecentExchanges(ctx context.Context, port string, limit int) ([]models.Exchange, error)
}

// DeviceHandler 设备控制API处理器
type DeviceHandler struct {
	ctl     *Controller
	journal JournalReader
	logger  *zap.Logger
}

// NewDeviceHandler 创建设备控制API处理器；journal 可为 nil
func NewDeviceHandler(ctl *Controller, journal JournalReader, logger *zap.Logger) *DeviceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceHandler{ctl: ctl, journal: journal, logger: logger}
}

// DeviceStatus 连接状态视图
type DeviceStatus struct {
	Port      string `json:"port"`
	Family    string `json:"family"`
	Address   int    `json:"address"`
	State     string `json:"state"`
	Mismatch  bool   `json:"address_mismatch"`
	Queryable bool   `json:"queryable"`
}

// SettingView 单个控制项的取值
type SettingView struct {
	Control string `json:"control"`
	Value   int    `json:"value"`
	Name    string `json:"name"`
	Source  string `json:"source"` // device | last_known
}

// GainsView 增益表视图
type GainsView struct {
	Input       []string `json:"input"`
	Output      []string `json:"output"`
	Raw         []int    `json:"raw"`
	LinkInputs  bool     `json:"link_inputs"`
	LinkOutputs bool     `json:"link_outputs"`
	Source      string   `json:"source"`
}

type setValueRequest struct {
	Value  *int   `json:"value"`
	Choice string `json:"choice"`
}

type gainRequest struct {
	Gain string `json:"gain" binding:"required"`
}

type presetRequest struct {
	Preset string `json:"preset" binding:"required"`
}

type linksRequest struct {
	Inputs  *bool `json:"inputs"`
	Outputs *bool `json:"outputs"`
}

func status(s *device.Session) DeviceStatus {
	return DeviceStatus{
		Port:      s.InterfaceName(),
		Family:    string(s.Family()),
		Address:   s.DeviceAddress(),
		State:     s.State().String(),
		Mismatch:  s.Mismatch(),
		Queryable: s.Family().Queryable(),
	}
}

// GetDevice 查询连接状态
// @Summary 查询设备连接状态
// @Tags 设备
// @Produce json
// @Success 200 {object} DeviceStatus
// @Router /api/v1/device [get]
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	var out DeviceStatus
	_ = h.ctl.View(func(s *device.Session) error {
		out = status(s)
		return nil
	})
	c.JSON(http.StatusOK, out)
}

// GetSettings 读取全部单字节控制项；MIDI 链路返回最近已知取值
// @Summary 读取设备设置
// @Tags 设备
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{} "未连接"
// @Failure 504 {object} map[string]interface{} "设备无应答"
// @Router /api/v1/device/settings [get]
func (h *DeviceHandler) GetSettings(c *gin.Context) {
	var settings []SettingView
	err := h.ctl.View(func(s *device.Session) error {
		for _, ctl := range device.Controls() {
			if ctl == device.ControlMode {
				continue
			}
			view := SettingView{Control: string(ctl), Source: "device"}
			if s.Family().Queryable() {
				v, err := s.Get(ctl)
				if err != nil {
					return fmt.Errorf("%s: %w", ctl, err)
				}
				view.Value = v
			} else {
				view.Value = s.LastKnown(ctl)
				view.Source = "last_known"
			}
			view.Name = device.Describe(ctl, view.Value)
			settings = append(settings, view)
		}
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// SetControl 返回设置某个控制项的处理函数
// 请求体: {"value": 2} 或 {"choice": "Internal 48k"}
func (h *DeviceHandler) SetControl(ctl device.Control) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setValueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		var v int
		switch {
		case req.Value != nil:
			v = *req.Value
		case req.Choice != "":
			n, err := ctl.ParseChoice(req.Choice)
			if err != nil {
				badRequest(c, err)
				return
			}
			v = n
		default:
			badRequest(c, fmt.Errorf("value or choice is required"))
			return
		}

		err := h.ctl.Update(c.Request.Context(), func(s *device.Session) error {
			return s.Set(ctl, v)
		})
		if err != nil {
			fail(c, err)
			return
		}
		h.logger.Info("control updated", zap.String("control", string(ctl)), zap.Int("value", v))
		c.JSON(http.StatusOK, SettingView{Control: string(ctl), Value: v, Name: device.Describe(ctl, v), Source: "device"})
	}
}

func gainsView(s *device.Session, source string) GainsView {
	g := s.Gains()
	snap := s.Snapshot()
	view := GainsView{Raw: []int{}, Input: []string{}, Output: []string{}, LinkInputs: snap.LinkInputs, LinkOutputs: snap.LinkOutputs, Source: source}
	if !g.Full() {
		return view
	}
	strs := g.Strings()
	view.Input = strs[:device.ChannelsPerStage]
	view.Output = strs[device.ChannelsPerStage:]
	for _, b := range g.Raw() {
		view.Raw = append(view.Raw, int(b))
	}
	return view
}

// GetGains 读取 16 路增益；MIDI 链路返回缓存值
// @Summary 读取模拟增益表
// @Tags 增益
// @Produce json
// @Success 200 {object} GainsView
// @Router /api/v1/device/gains [get]
func (h *DeviceHandler) GetGains(c *gin.Context) {
	var view GainsView
	err := h.ctl.View(func(s *device.Session) error {
		source := "last_known"
		if s.Family().Queryable() {
			if _, err := s.ReadGainTable(); err != nil {
				return err
			}
			source = "device"
		}
		view = gainsView(s, source)
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetChannelGain 设置一路增益；该级开启联动时整级设置
// @Summary 设置单通道增益
// @Tags 增益
// @Accept json
// @Produce json
// @Param stage path string true "input | output"
// @Param channel path int true "1-8"
// @Router /api/v1/device/gains/{stage}/{channel} [put]
func (h *DeviceHandler) SetChannelGain(c *gin.Context) {
	stage, err := device.ParseStage(c.Param("stage"))
	if err != nil {
		badRequest(c, err)
		return
	}
	ch, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid channel %q", c.Param("channel")))
		return
	}
	db, ok := h.bindGain(c)
	if !ok {
		return
	}

	h.updateGains(c, func(s *device.Session) error {
		snap := s.Snapshot()
		linked := (stage == device.StageInput && snap.LinkInputs) || (stage == device.StageOutput && snap.LinkOutputs)
		if linked {
			if _, err := stage.Index(ch); err != nil {
				return err
			}
			return s.SetChannels(stage, db, allChannels()...)
		}
		return s.SetChannels(stage, db, ch)
	})
}

// SetStageGain 设置整级 8 路增益
func (h *DeviceHandler) SetStageGain(c *gin.Context) {
	stage, err := device.ParseStage(c.Param("stage"))
	if err != nil {
		badRequest(c, err)
		return
	}
	db, ok := h.bindGain(c)
	if !ok {
		return
	}
	h.updateGains(c, func(s *device.Session) error {
		return s.SetChannels(stage, db, allChannels()...)
	})
}

// ApplyPreset 应用 +4 / -10 参考电平预设
// @Summary 应用参考电平预设
// @Tags 增益
// @Accept json
// @Param body body presetRequest true "{\"preset\": \"+4\"}"
// @Router /api/v1/device/preset [post]
func (h *DeviceHandler) ApplyPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := device.ParsePreset(req.Preset)
	if err != nil {
		badRequest(c, err)
		return
	}
	h.updateGains(c, func(s *device.Session) error { return s.ApplyPreset(p) })
}

// SetLinks 修改输入/输出联动开关
func (h *DeviceHandler) SetLinks(c *gin.Context) {
	var req linksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.updateGains(c, func(s *device.Session) error {
		snap := s.Snapshot()
		in, out := snap.LinkInputs, snap.LinkOutputs
		if req.Inputs != nil {
			in = *req.Inputs
		}
		if req.Outputs != nil {
			out = *req.Outputs
		}
		s.SetLinks(in, out)
		return nil
	})
}

// ClearError 清除错误状态
func (h *DeviceHandler) ClearError(c *gin.Context) {
	var out DeviceStatus
	_ = h.ctl.Update(c.Request.Context(), func(s *device.Session) error {
		s.ClearError()
		out = status(s)
		return nil
	})
	c.JSON(http.StatusOK, out)
}

// Reconnect 关闭并重新打开串口
func (h *DeviceHandler) Reconnect(c *gin.Context) {
	var out DeviceStatus
	err := h.ctl.Update(c.Request.Context(), func(s *device.Session) error {
		s.Disconnect()
		err := s.Connect()
		out = status(s)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("device reconnected", zap.String("port", out.Port))
	c.JSON(http.StatusOK, out)
}

// ListJournal 查询最近的设备交互日志
// @Summary 交互日志
// @Tags 日志
// @Param limit query int false "条数(默认50)"
// @Router /api/v1/journal [get]
func (h *DeviceHandler) ListJournal(c *gin.Context) {
	if h.journal == nil {
		fail(c, errJournalDisabled)
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	port := c.Query("port")
	if port == "" {
		_ = h.ctl.View(func(s *device.Session) error {
			port = s.InterfaceName()
			return nil
		})
	}
	list, err := h.journal.RecentExchanges(c.Request.Context(), port, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"port": port, "exchanges": list})
}

func (h *DeviceHandler) bindGain(c *gin.Context) (int, bool) {
	var req gainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return 0, false
	}
	db, err := device.ParseGain(strings.TrimSpace(req.Gain))
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return db, true
}

func (h *DeviceHandler) updateGains(c *gin.Context, fn func(s *device.Session) error) {
	var view GainsView
	err := h.ctl.Update(c.Request.Context(), func(s *device.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		view = gainsView(s, "device")
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func allChannels() []int {
	out := make([]int, device.ChannelsPerStage)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
