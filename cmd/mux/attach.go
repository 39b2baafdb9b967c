package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"muxd/internal/client"
	"muxd/internal/rpc"
)

func newAttachCmd() *cobra.Command {
	var addr string
	var primary bool

	cmd := &cobra.Command{
		Use:   "attach <id>",
		Short: "Attach to a session's PTY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			c, err := rpc.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			cols, rows, err := client.TerminalSize()
			if err != nil {
				cols, rows = 0, 0 // non-terminal stdout: don't resize on attach
			}

			att, err := c.Attach(id, cols, rows, primary)
			if err != nil {
				return err
			}

			if !client.IsInteractive() {
				return drainNonInteractive(att)
			}

			raw, err := client.EnterRaw()
			if err != nil {
				return err
			}
			defer raw.Restore()

			return client.RunInteractiveAttach(att)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", client.DefaultAddr(), "Daemon address (scheme://rest)")
	cmd.Flags().BoolVar(&primary, "primary", true, "Attach as the primary (input-capable) subscriber")
	return cmd
}

// drainNonInteractive copies output to stdout without touching terminal
// modes, for piped/redirected invocations (e.g. `mux attach foo | tee log`).
func drainNonInteractive(att *rpc.Attachment) error {
	fmt.Print(string(att.BufferedOutput))
	for chunk := range att.Output() {
		fmt.Print(string(chunk))
	}
	select {
	case err := <-att.Err():
		return err
	default:
		return nil
	}
}
