package cli

import (
	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/tui"
)

func newMixerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "mixer",
		Aliases: []string{"tui"},
		Short:   "Interactive gain mixer for the 16 analog channels",
		Args:    cobra.NoArgs,
		RunE: e.run(func(cmd *cobra.Command, _ []string) error {
			sess, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(sess)
		}),
	}
}
