package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/state"
)

func newSnapshotCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or restore all device settings to a YAML file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save <file>",
			Short: "Read all settings and gains and write them to FILE",
			Args:  cobra.ExactArgs(1),
			RunE: e.run(func(cmd *cobra.Command, args []string) error {
				sess, err := e.session(cmd.Context())
				if err != nil {
					return err
				}
				if sess.Family().Queryable() {
					for _, c := range settingControls {
						if _, err := sess.Get(c); err != nil {
							return fmt.Errorf("read %s: %w", c, err)
						}
					}
					if _, err := sess.ReadGainTable(); err != nil {
						return fmt.Errorf("read gains: %w", err)
					}
				}
				if err := state.SaveFile(args[0], sess.Snapshot()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", sess.InterfaceName(), args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Write the settings and gains stored in FILE to the device",
			Args:  cobra.ExactArgs(1),
			RunE: e.run(func(cmd *cobra.Command, args []string) error {
				snap, err := state.LoadFile(args[0])
				if err != nil {
					return err
				}
				sess, err := e.session(cmd.Context())
				if err != nil {
					return err
				}
				if err := restore(sess, snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", sess.InterfaceName(), args[0])
				return nil
			}),
		},
	)
	return cmd
}

// restore 依次写入选择项、模式字节与增益表
func restore(sess *device.Session, snap state.Snapshot) error {
	settings := []struct {
		c device.Control
		v int
	}{
		{device.ControlSync, snap.Sync},
		{device.ControlOptical, snap.Optical},
		{device.ControlAnalog, snap.Analog},
		{device.ControlAES, snap.AES},
	}
	for _, s := range settings {
		if err := sess.Set(s.c, s.v); err != nil {
			return fmt.Errorf("restore %s: %w", s.c, err)
		}
	}
	mode := device.Mode{Meter: device.MeterSource(snap.Meter), DigitalInput: device.DigitalInput(snap.DigitalInput)}
	if err := sess.SetMode(mode); err != nil {
		return fmt.Errorf("restore mode: %w", err)
	}
	sess.SetLinks(snap.LinkInputs, snap.LinkOutputs)
	if len(snap.Gains) == 0 {
		return nil
	}
	if err := sess.SeedGainTable(snap.Gains); err != nil {
		return fmt.Errorf("restore gains: %w", err)
	}
	if err := sess.WriteGainTable(); err != nil {
		return fmt.Errorf("restore gains: %w", err)
	}
	return nil
}
