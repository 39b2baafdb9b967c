package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"muxd/internal/client"
	"muxd/internal/rpc"
)

func newKillCmd() *cobra.Command {
	var addr string
	var force bool

	cmd := &cobra.Command{
		Use:   "kill <id>",
		Short: "Terminate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rpc.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			killed, err := c.Kill(args[0], force)
			if err != nil {
				return err
			}
			if !killed {
				fmt.Println("No such session.")
				return nil
			}
			fmt.Println("Killed.")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", client.DefaultAddr(), "Daemon address (scheme://rest)")
	cmd.Flags().BoolVar(&force, "force", false, "Send SIGKILL immediately instead of SIGINT-then-escalate")
	return cmd
}
