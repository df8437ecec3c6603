package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/device"
)

func newGainCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gain",
		Short: "Set analog input/output gains",
		Long: `Set analog gains. GAIN is an integer dB value between -95 and +32.
Negative values must follow "--", for example:

  glucid gain input -- -8 1 2 3
  glucid gain preset -- -10`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "preset <+4|-10>",
			Short: "Set all inputs and outputs to a reference level preset",
			Long: `+4   sets all inputs to -8 dB and all outputs to +1 dB
-10  sets all inputs to +4 dB and all outputs to -11 dB`,
			Args: cobra.ExactArgs(1),
			RunE: e.run(func(cmd *cobra.Command, args []string) error {
				p, err := device.ParsePreset(args[0])
				if err != nil {
					return err
				}
				sess, err := e.session(cmd.Context())
				if err != nil {
					return err
				}
				if err := sess.ApplyPreset(p); err != nil {
					return fmt.Errorf("apply preset %s: %w", p.Name, err)
				}
				e.print(cmd, gainRows(sess.Gains()))
				return nil
			}),
		},
		newStageGainCmd(e, device.StageInput),
		newStageGainCmd(e, device.StageOutput),
	)
	return cmd
}

func newStageGainCmd(e *env, stage device.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   stage.String() + " <GAIN> <CHANNEL|all>...",
		Short: fmt.Sprintf("Set the %s gain of one or more channels", stage),
		Args:  cobra.MinimumNArgs(2),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			db, err := device.ParseGain(args[0])
			if err != nil {
				return err
			}
			channels, err := parseChannels(args[1:])
			if err != nil {
				return err
			}
			sess, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.SetChannels(stage, db, channels...); err != nil {
				return fmt.Errorf("set %s gain: %w", stage, err)
			}
			e.print(cmd, gainRows(sess.Gains()))
			return nil
		}),
	}
}

// parseChannels 1-8 或 all，去重保持顺序
func parseChannels(args []string) ([]int, error) {
	var out []int
	seen := map[int]bool{}
	for _, a := range args {
		if strings.EqualFold(a, "all") {
			out = out[:0]
			for ch := 1; ch <= device.ChannelsPerStage; ch++ {
				out = append(out, ch)
			}
			return out, nil
		}
		ch, err := strconv.Atoi(a)
		if err != nil || ch < 1 || ch > device.ChannelsPerStage {
			return nil, fmt.Errorf("%w: channel %q (1..%d)", device.ErrOutOfRange, a, device.ChannelsPerStage)
		}
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out, nil
}
