package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"muxd/internal/config"
	"muxd/internal/host"
	"muxd/internal/rpc"
	"muxd/internal/socketdir"
)

func newDaemonCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the muxd daemon (foreground)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDaemonConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			h, err := host.New(cfg)
			if err != nil {
				return fmt.Errorf("start host: %w", err)
			}
			defer h.Close()

			listeners, err := bootstrapListeners(cfg)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			defer func() {
				for _, ln := range listeners {
					ln.Close()
				}
			}()

			srv := rpc.NewServer(h)
			errCh := make(chan error, len(listeners))
			for _, ln := range listeners {
				ln := ln
				log.Printf("muxd: listening on %s", ln.Addr())
				go func() { errCh <- srv.Serve(ln) }()
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml (defaults to ~/.muxd/config.yaml)")
	return cmd
}

func loadDaemonConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// bootstrapListeners opens every address in cfg.ListenAddrs, falling back to
// the default daemon socket when none are configured.
func bootstrapListeners(cfg *config.Config) ([]net.Listener, error) {
	addrs := cfg.ListenAddrs
	if len(addrs) == 0 {
		if err := socketdir.EnsureDir(); err != nil {
			return nil, err
		}
		addrs = []string{"unix://" + socketdir.Path(socketdir.TypeDaemon, "default")}
	}

	var listeners []net.Listener
	for _, addr := range addrs {
		ln, err := listen(addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, err
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

func listen(addr string) (net.Listener, error) {
	scheme, rest, ok := strings.Cut(addr, "://")
	if !ok {
		return nil, fmt.Errorf("address %q has no scheme", addr)
	}
	switch scheme {
	case "unix":
		os.Remove(rest) // clear a stale socket file from an unclean shutdown
		return net.Listen("unix", rest)
	case "tcp":
		return net.Listen("tcp", rest)
	default:
		return nil, fmt.Errorf("unsupported transport scheme %q", scheme)
	}
}
