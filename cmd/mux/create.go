package main

import (
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"muxd/internal/client"
	"muxd/internal/rpc"
)

func newCreateCmd() *cobra.Command {
	var addr string
	var id string
	var command string
	var cwd string
	var cols, rows int

	cmd := &cobra.Command{
		Use:   "create [--command \"...\"]",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			argv, err := commandArgv(command, args)
			if err != nil {
				return fmt.Errorf("parse command: %w", err)
			}
			if len(argv) == 0 {
				return fmt.Errorf("command is required (--command or trailing args)")
			}

			c, err := rpc.Dial(addr)
			if err != nil {
				return err
			}
			defer c.Close()

			d, err := c.Create(id, rpc.PTYOptions{
				Command:    argv[0],
				Arguments:  argv[1:],
				WorkingDir: cwd,
				Cols:       cols,
				Rows:       rows,
			})
			if err != nil {
				return err
			}
			fmt.Println(d.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", client.DefaultAddr(), "Daemon address (scheme://rest)")
	cmd.Flags().StringVar(&id, "id", "", "Session id (auto-generated if omitted)")
	cmd.Flags().StringVar(&command, "command", "", "Command line to spawn, shell-quoted")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory")
	cmd.Flags().IntVar(&cols, "cols", 80, "Initial PTY columns")
	cmd.Flags().IntVar(&rows, "rows", 24, "Initial PTY rows")
	return cmd
}

// commandArgv resolves the argv to spawn: --command is shlex-split if given,
// otherwise the command is taken from trailing positional args.
func commandArgv(command string, args []string) ([]string, error) {
	if command != "" {
		return shlex.Split(command)
	}
	return args, nil
}
