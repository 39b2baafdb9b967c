package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"muxd/internal/client"
	"muxd/internal/rpc"
)

func newLsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List sessions known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rpc.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			sessions, err := c.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions.")
				return nil
			}
			for _, s := range sessions {
				printSessionLine(s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", client.DefaultAddr(), "Daemon address (scheme://rest)")
	return cmd
}

func printSessionLine(s rpc.SessionDescriptor) {
	status := s.State
	if s.State == "exited" && s.ExitCode != nil {
		status = fmt.Sprintf("exited(%d)", *s.ExitCode)
	}
	fmt.Printf("  %-20s %-10s %s\n", s.ID, status, s.Command)
}
