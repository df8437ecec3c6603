package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/transport"
)

func newPortsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := e.opts.Ports
			if list == nil {
				list = transport.Ports
			}
			ports, err := list()
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}
			e.print(cmd, ports)
			return nil
		},
	}
}
