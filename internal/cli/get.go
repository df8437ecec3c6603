package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/device"
)

// settingControls get all 的读取顺序
var settingControls = []device.Control{
	device.ControlSync,
	device.ControlMeter,
	device.ControlAnalog,
	device.ControlAES,
	device.ControlOptical,
	device.ControlDigitalInput,
}

func newGetCmd(e *env) *cobra.Command {
	var choices bool
	cmd := &cobra.Command{
		Use:   "get [all|sync|opt|analog|aes|meter|dig1|mode|gain]",
		Short: "Read settings from the 8824 (RS-232 units only)",
		Long: `Read settings from the 8824. MIDI units cannot be queried; for them the
last known values are shown instead. With --choices, list the values a
control accepts without talking to the device.`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			what := "all"
			if len(args) == 1 {
				what = args[0]
			}
			if choices {
				c, err := device.ParseControl(what)
				if err != nil {
					return err
				}
				e.print(cmd, choiceRows(c))
				return nil
			}

			sess, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			switch what {
			case "all":
				return e.getAll(cmd, sess)
			case "gain", "gains":
				return e.getGains(cmd, sess)
			}
			c, err := device.ParseControl(what)
			if err != nil {
				return err
			}
			v, err := readControl(sess, c)
			if err != nil {
				return err
			}
			e.print(cmd, []settingRow{newSettingRow(c, v)})
			return nil
		}),
	}
	cmd.Flags().BoolVar(&choices, "choices", false, "list the accepted values instead of reading the device")
	return cmd
}

// readControl 可查询链路读设备，MIDI 返回最近已知取值
func readControl(sess *device.Session, c device.Control) (int, error) {
	if !sess.Family().Queryable() {
		return sess.LastKnown(c), nil
	}
	v, err := sess.Get(c)
	if err != nil {
		return 0, fmt.Errorf("failed talking to %s: %w", sess.InterfaceName(), err)
	}
	return v, nil
}

func (e *env) getAll(cmd *cobra.Command, sess *device.Session) error {
	view := deviceView{Port: sess.InterfaceName(), Source: "device"}
	if !sess.Family().Queryable() {
		view.Source = "last_known"
	}
	for _, c := range settingControls {
		v, err := readControl(sess, c)
		if err != nil {
			return err
		}
		view.Settings = append(view.Settings, newSettingRow(c, v))
	}
	if sess.Family().Queryable() {
		if _, err := sess.ReadGainTable(); err != nil {
			return fmt.Errorf("failed talking to %s: %w", sess.InterfaceName(), err)
		}
	}
	view.Gains = gainRows(sess.Gains())
	view.Address = sess.DeviceAddress()

	if !e.tableOutput() {
		e.print(cmd, view)
		return nil
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Device: %s (id %d, %s)\n\n", view.Port, view.Address, view.Source)
	e.print(cmd, view.Settings)
	if len(view.Gains) > 0 {
		fmt.Fprintln(out)
		e.print(cmd, view.Gains)
		fmt.Fprint(out, "\n"+gainHint)
	}
	return nil
}

func (e *env) getGains(cmd *cobra.Command, sess *device.Session) error {
	if sess.Family().Queryable() {
		if _, err := sess.ReadGainTable(); err != nil {
			return fmt.Errorf("failed talking to %s: %w", sess.InterfaceName(), err)
		}
	}
	rows := gainRows(sess.Gains())
	if rows == nil {
		return fmt.Errorf("no gain table known for %s: %w", sess.InterfaceName(), device.ErrTableNotLoaded)
	}
	e.print(cmd, rows)
	if e.tableOutput() {
		fmt.Fprint(cmd.OutOrStdout(), "\n"+gainHint)
	}
	return nil
}
