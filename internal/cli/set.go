package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/device"
)

func newSetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <sync|opt|analog|aes|meter|dig1|mode> <value>",
		Short: "Change a setting on the 8824",
		Long: `Change a setting. VALUE is either the numeric choice or its name;
see "glucid get <control> --choices" for the accepted values.`,
		Args: cobra.ExactArgs(2),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			c, err := device.ParseControl(args[0])
			if err != nil {
				return err
			}
			v, err := c.ParseChoice(args[1])
			if err != nil {
				return err
			}
			sess, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.Set(c, v); err != nil {
				return fmt.Errorf("set %s: %w", c, err)
			}
			e.logger.Debug("setting updated", zap.String("control", string(c)), zap.Int("value", v))

			// RS-232 回读确认
			rows := []settingRow{}
			for _, rc := range readBack(c) {
				got, err := readControl(sess, rc)
				if err != nil {
					return err
				}
				rows = append(rows, newSettingRow(rc, got))
			}
			e.print(cmd, rows)
			return nil
		}),
	}
}

// readBack 设置后需要回读的控制项
func readBack(c device.Control) []device.Control {
	if c == device.ControlMode {
		return []device.Control{device.ControlMeter, device.ControlDigitalInput}
	}
	return []device.Control{c}
}
