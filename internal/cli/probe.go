package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmechanic/glucid/internal/device"
)

type probeView struct {
	Opcode  string `json:"opcode" yaml:"opcode" table:"OPCODE"`
	Payload string `json:"payload" yaml:"payload" table:"PAYLOAD"`
	Bytes   int    `json:"bytes" yaml:"bytes" table:"BYTES"`
}

func newProbeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <opcode> [arg...]",
		Short: "Send a raw opcode and print the response payload",
		Long: `Send any opcode (hex, e.g. 0x60 or 60) with optional argument bytes
and print the payload of the device's response. Useful for exploring
undocumented commands. RS-232 units only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			bs, err := parseHexBytes(args)
			if err != nil {
				return err
			}
			sess, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			if !sess.Family().Queryable() {
				return fmt.Errorf("probe: %w", device.ErrNotQueryable)
			}
			payload, err := e.dev.Runner.Probe(bs[0], bs[1:]...)
			if err != nil {
				return err
			}
			e.print(cmd, probeView{
				Opcode:  fmt.Sprintf("0x%02X", bs[0]),
				Payload: strings.ToUpper(hex.EncodeToString(payload)),
				Bytes:   len(payload),
			})
			return nil
		}),
	}
}

func parseHexBytes(args []string) ([]byte, error) {
	out := make([]byte, len(args))
	for i, a := range args {
		s := strings.TrimPrefix(strings.ToLower(a), "0x")
		v, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q", a)
		}
		out[i] = byte(v)
	}
	return out, nil
}
