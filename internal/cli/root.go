// Package cli 实现 glucid 命令行：读取/设置 8824、增益、快照与终端调音台
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/app"
	"github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/logging"
	"github.com/danmechanic/glucid/internal/output"
	"github.com/danmechanic/glucid/internal/protocol/lucid"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

// Options 命令树的注入点
type Options struct {
	// Transport 非 nil 时替代串口（测试注入模拟设备）
	Transport transport.Transport
	// Ports 列出串口，nil 时使用 transport.Ports
	Ports func() ([]string, error)
}

// env 一次命令执行的共享状态
type env struct {
	opts Options

	cfgFile       string
	outputFormat  string
	device        string
	defaultDevice string
	id            int
	defaultID     int
	family        string
	simulate      bool
	verbose       bool

	cfg       *config.Config
	logger    *zap.Logger
	formatter output.Formatter

	dev     *app.Device
	store   state.Store
	closers []func()
}

// Execute 运行 glucid
func Execute() {
	if err := NewRootCmd(Options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd 构造完整命令树
func NewRootCmd(opts Options) *cobra.Command {
	e := &env{opts: opts}

	root := &cobra.Command{
		Use:   "glucid",
		Short: "Get or set values on a Lucid 8824 converter",
		Long: `glucid talks to a Lucid 8824 AD/DA converter over its RS-232 or MIDI remote port.

The unit must be in remote mode (DIP switch 1 down at power up).
All switches down selects device id 0. MIDI units accept settings but cannot be queried.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
	}
	root.SetFlagErrorFunc(flagError)

	pf := root.PersistentFlags()
	pf.StringVar(&e.cfgFile, "config", "", "config file (default is ~/.glucid.yaml)")
	pf.StringVarP(&e.outputFormat, "output", "o", "table", "output format: table, json, yaml")
	pf.StringVarP(&e.device, "device", "d", "", "use DEVICE instead of the configured port")
	pf.StringVarP(&e.defaultDevice, "default-device", "D", "", "use DEVICE and save it as the new default")
	pf.IntVarP(&e.id, "id", "i", 0, "use device id ID (0-7)")
	pf.IntVarP(&e.defaultID, "default-id", "I", 0, "use device id ID and save it as the new default")
	pf.StringVar(&e.family, "family", "", "transport family: rs232 or midi")
	pf.BoolVar(&e.simulate, "simulate", false, "talk to a built-in simulated 8824")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newGetCmd(e),
		newSetCmd(e),
		newGainCmd(e),
		newPortsCmd(e),
		newProbeCmd(e),
		newSnapshotCmd(e),
		newMixerCmd(e),
	)
	return root
}

// flagError 负增益会被当作短选项，提示使用 --
func flagError(cmd *cobra.Command, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unknown shorthand flag") {
		for _, d := range "0123456789" {
			if strings.Contains(msg, fmt.Sprintf("'%c'", d)) {
				return fmt.Errorf("%w (negative values must follow --, e.g. %s -- -8 1 2)", err, cmd.CommandPath())
			}
		}
	}
	return err
}

func (e *env) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(e.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()

	if flags.Changed("default-device") {
		cfg.Device.Port = e.defaultDevice
		if err := config.SaveDevice(cfg.Path(), &e.defaultDevice, nil); err != nil {
			return err
		}
	}
	if flags.Changed("device") {
		cfg.Device.Port = e.device
	}
	if flags.Changed("default-id") {
		if err := checkID(e.defaultID); err != nil {
			return err
		}
		cfg.Device.Address = e.defaultID
		if err := config.SaveDevice(cfg.Path(), nil, &e.defaultID); err != nil {
			return err
		}
	}
	if flags.Changed("id") {
		if err := checkID(e.id); err != nil {
			return err
		}
		cfg.Device.Address = e.id
	}
	if flags.Changed("family") {
		cfg.Device.Family = e.family
	}
	if e.simulate {
		cfg.Device.Simulate = true
	}
	if e.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	e.formatter = output.NewFormatter(e.outputFormat)
	return nil
}

func checkID(id int) error {
	if id < 0 || id > int(lucid.MaxAddress) {
		return fmt.Errorf("device id %d out of range 0..%d", id, lucid.MaxAddress)
	}
	return nil
}

// session 首次调用时组装并连接设备
func (e *env) session(ctx context.Context) (*device.Session, error) {
	if e.dev != nil {
		return e.dev.Session, nil
	}

	redisClient, err := app.NewRedisClient(ctx, e.cfg.Redis, e.logger)
	if err != nil {
		// 状态存储不可用不影响设备控制
		e.logger.Warn("state store unavailable", zap.Error(err))
	}
	if redisClient != nil {
		e.store = app.NewStateStore(redisClient)
		e.closers = append(e.closers, func() { _ = redisClient.Close() })
	}

	var recorder transaction.Recorder
	journal, db, err := app.OpenJournal(ctx, e.cfg.Database, e.logger)
	if err != nil {
		e.logger.Warn("journal unavailable", zap.Error(err))
	} else if journal != nil {
		recorder = journal
		e.closers = append(e.closers, func() { app.CloseJournal(db) })
	}

	dev, err := app.NewDevice(ctx, e.cfg, app.DeviceDeps{
		Logger:    e.logger,
		Recorder:  recorder,
		Store:     e.store,
		Transport: e.opts.Transport,
	})
	if err != nil {
		return nil, err
	}
	if err := dev.Session.Connect(); err != nil {
		return nil, fmt.Errorf("failed to open connection using %s: %w", dev.Session.InterfaceName(), err)
	}
	e.dev = dev
	return dev.Session, nil
}

// run 包装 RunE：结束后保存最近已知取值并释放资源
func (e *env) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if ferr := e.finish(cmd.Context(), err == nil); err == nil {
			err = ferr
		}
		return err
	}
}

func (e *env) finish(ctx context.Context, persist bool) error {
	defer func() {
		for _, c := range e.closers {
			c()
		}
		e.closers = nil
		if e.logger != nil {
			_ = e.logger.Sync()
		}
	}()
	if e.dev == nil {
		return nil
	}
	sess := e.dev.Session
	defer sess.Disconnect()
	if !persist {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	snap := sess.Snapshot()
	if e.store != nil {
		if err := e.store.Save(ctx, snap); err != nil {
			e.logger.Warn("save device snapshot failed", zap.Error(err))
		}
	}
	if err := config.SaveDefaults(e.cfg.Path(), snap.Defaults()); err != nil {
		return fmt.Errorf("save defaults: %w", err)
	}
	return nil
}

// print 按当前格式输出
func (e *env) print(cmd *cobra.Command, data any) {
	fmt.Fprint(cmd.OutOrStdout(), e.formatter.Format(data))
}

// tableOutput 是否为表格格式（附加说明文字只在表格格式下输出）
func (e *env) tableOutput() bool {
	_, ok := e.formatter.(*output.TableFormatter)
	return ok
}
