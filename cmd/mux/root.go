package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mux",
		Short: "Terminal session multiplexer daemon and client",
		Long:  "mux spawns and attaches to PTY sessions managed by a background daemon, over a framed Unix-socket (or TCP) protocol.",
	}

	rootCmd.AddCommand(
		newDaemonCmd(),
		newLsCmd(),
		newCreateCmd(),
		newAttachCmd(),
		newKillCmd(),
	)

	return rootCmd
}
