package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/metrics"
	"github.com/danmechanic/glucid/internal/protocol/lucid"
	"github.com/danmechanic/glucid/internal/transport"
)

// DefaultReadAttempts 读空行时的最大读取次数
const DefaultReadAttempts = 3

var (
	ErrNotConnected   = errors.New("not connected")
	ErrNoResponse     = errors.New("no response from device")
	ErrConnectFailed  = errors.New("connect failed")
	ErrUnknownCommand = lucid.ErrUnknownCommand
)

// State 连接状态
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// Options 运行器构造参数
type Options struct {
	Address       byte
	StrictAddress bool // 地址不符时只报错，不采用设备上报的地址
	ReadAttempts  int
	Logger        *zap.Logger
	Metrics       *metrics.AppMetrics
	Recorder      Recorder
}

// Runner 一次调用完成一次“写帧 + 有界重试读 + 校验”的交互。
// 独占传输句柄与连接状态；不做并发保护，调用方需自行串行化。
type Runner struct {
	t        transport.Transport
	address  byte
	strict   bool
	attempts int
	state    State
	opened   bool
	mismatch bool

	logger   *zap.Logger
	metrics  *metrics.AppMetrics
	recorder Recorder
}

// New 创建运行器（初始为 Disconnected）
func New(t transport.Transport, opts Options) *Runner {
	if opts.ReadAttempts <= 0 {
		opts.ReadAttempts = DefaultReadAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &Runner{
		t:        t,
		address:  opts.Address,
		strict:   opts.StrictAddress,
		attempts: opts.ReadAttempts,
		logger:   opts.Logger.With(zap.String("port", t.Name())),
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
	}
	r.setState(StateDisconnected)
	return r
}

func (r *Runner) State() State          { return r.state }
func (r *Runner) Address() byte         { return r.address }
func (r *Runner) Mismatch() bool        { return r.mismatch }
func (r *Runner) InterfaceName() string { return r.t.Name() }

// SetAddress 切换目标设备地址
func (r *Runner) SetAddress(addr byte) { r.address = addr }

// Connect 打开传输；任何失败都进入 Error
func (r *Runner) Connect() error {
	if err := r.t.Open(); err != nil {
		r.setState(StateError)
		r.logger.Warn("open transport failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, r.t.Name(), err)
	}
	r.opened = true
	r.setState(StateConnected)
	r.logger.Debug("transport opened")
	return nil
}

// Disconnect 释放传输；释放失败只记日志，状态保持不变
func (r *Runner) Disconnect() {
	if err := r.t.Close(); err != nil {
		r.logger.Error("release transport failed", zap.Error(err))
		return
	}
	r.opened = false
	r.setState(StateDisconnected)
}

// ClearError 清除 Error 状态与地址不符标志
func (r *Runner) ClearError() {
	r.mismatch = false
	if r.state != StateError {
		return
	}
	if r.opened {
		r.setState(StateConnected)
	} else {
		r.setState(StateDisconnected)
	}
}

// Send 发送已知命令并返回响应负载；无参数时发送单个 0x00
func (r *Runner) Send(cmd lucid.Command, args ...byte) ([]byte, error) {
	if !cmd.Known() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return r.exchange(cmd.String(), cmd.Opcode(), args)
}

// SendNamed 按命令名发送
func (r *Runner) SendNamed(name string, args ...byte) ([]byte, error) {
	cmd, err := lucid.ParseCommand(name)
	if err != nil {
		return nil, err
	}
	return r.exchange(cmd.String(), cmd.Opcode(), args)
}

// Probe 不校验命令表，直接发送任意操作码（用于探测未公开命令）
func (r *Runner) Probe(opcode byte, args ...byte) ([]byte, error) {
	return r.exchange(fmt.Sprintf("probe(0x%02X)", opcode), opcode, args)
}

// Post 只写不读，用于无法回读的 MIDI 链路
func (r *Runner) Post(cmd lucid.Command, args ...byte) (err error) {
	if !cmd.Known() {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	if r.state != StateConnected {
		return ErrNotConnected
	}
	args = defaultArgs(args)
	if err := lucid.ValidateArgs(args); err != nil {
		return err
	}
	frame := lucid.Build(cmd.Opcode(), r.address, args)
	ex := r.begin(cmd.String(), cmd.Opcode(), frame)
	defer func() { r.finish(ex, nil, 0, err) }()

	if _, werr := r.t.Write(frame); werr != nil {
		r.setState(StateError)
		return fmt.Errorf("%s: write: %w", cmd, werr)
	}
	return nil
}

func (r *Runner) exchange(label string, opcode byte, args []byte) (payload []byte, err error) {
	if r.state != StateConnected {
		return nil, ErrNotConnected
	}
	args = defaultArgs(args)
	if err := lucid.ValidateArgs(args); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	frame := lucid.Build(opcode, r.address, args)
	ex := r.begin(label, opcode, frame)
	var line []byte
	attempts := 0
	defer func() { r.finish(ex, line, attempts, err) }()

	if _, werr := r.t.Write(frame); werr != nil {
		r.setState(StateError)
		r.logger.Warn("write failed", zap.String("cmd", label), zap.Error(werr),
			zap.Bool("unplugged", transport.Disconnected(werr)))
		return nil, fmt.Errorf("%s: write: %w", label, werr)
	}

	line, attempts, err = r.readWithRetry(label)
	if err != nil {
		r.setState(StateError)
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	resp, err := lucid.Parse(opcode, line, r.address)
	if err != nil {
		var mm *lucid.AddressMismatchError
		if errors.As(err, &mm) {
			r.mismatch = true
			if r.metrics != nil {
				r.metrics.AddressMismatches.Inc()
			}
			if !r.strict {
				r.address = mm.Reported
			}
			r.logger.Warn("device address mismatch",
				zap.Uint8("expected", mm.Expected), zap.Uint8("reported", mm.Reported), zap.Bool("adopted", !r.strict))
		}
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	if resp.Opcode != opcode {
		r.logger.Warn("opcode echo differs", zap.String("cmd", label),
			zap.Uint8("sent", opcode), zap.Uint8("echoed", resp.Opcode))
	}
	r.mismatch = false
	return resp.Payload, nil
}

// readWithRetry 最多读取 attempts 次，读到非空行即返回
func (r *Runner) readWithRetry(label string) ([]byte, int, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		line, err := r.t.ReadLine()
		if err != nil {
			return nil, attempt, fmt.Errorf("read: %w", err)
		}
		if len(line) > 0 {
			return line, attempt, nil
		}
		r.logger.Debug("empty read", zap.String("cmd", label), zap.Int("attempt", attempt))
	}
	return nil, r.attempts, ErrNoResponse
}

func (r *Runner) begin(label string, opcode byte, frame []byte) *Exchange {
	return &Exchange{
		ID:      uuid.New(),
		Port:    r.t.Name(),
		Address: r.address,
		Command: label,
		Opcode:  opcode,
		Request: frame,
		At:      time.Now(),
	}
}

func (r *Runner) finish(ex *Exchange, line []byte, attempts int, err error) {
	ex.Duration = time.Since(ex.At)
	ex.Response = line
	ex.Attempts = attempts
	ex.Err = err

	r.logger.Debug("exchange",
		zap.String("cmd", ex.Command),
		zap.Binary("tx", ex.Request),
		zap.Binary("rx", line),
		zap.Int("attempts", attempts),
		zap.Duration("took", ex.Duration),
		zap.Error(err))

	if r.metrics != nil {
		r.metrics.TransactionsTotal.WithLabelValues(ex.Command, Result(err)).Inc()
		r.metrics.TransactionDuration.WithLabelValues(ex.Command).Observe(ex.Duration.Seconds())
		if attempts > 0 {
			r.metrics.ReadAttempts.Observe(float64(attempts))
		}
	}
	if r.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if rerr := r.recorder.RecordExchange(ctx, *ex); rerr != nil {
			r.logger.Warn("record exchange failed", zap.Error(rerr))
		}
	}
}

func (r *Runner) setState(s State) {
	r.state = s
	if r.metrics != nil {
		r.metrics.LinkState.Set(float64(s))
	}
}

func defaultArgs(args []byte) []byte {
	if len(args) == 0 {
		return []byte{0x00}
	}
	return args
}
