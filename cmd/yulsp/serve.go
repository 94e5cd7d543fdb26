package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/yulsp/config"
	"github.com/chazu/yulsp/lookup"
	"github.com/chazu/yulsp/server"
)

func (a *app) newServeCommand() *cobra.Command {
	var tcp string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server",
		Long: `Run the language server on stdin/stdout, or on a TCP address with --tcp.

Logs go to stderr or to the configured log file, never to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("tcp") {
				a.cfg.Server.Transport = config.TransportTCP
				a.cfg.Server.Address = tcp
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&tcp, "tcp", "", "listen on this TCP address instead of stdio")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := a.openLookup()
	if err != nil {
		return err
	}
	defer closeFn()

	newServer := func() *server.LspServer {
		return server.NewLSP(server.Options{
			Lookup:  svc,
			Timeout: a.cfg.Lookup.Timeout.Duration,
			Debug:   a.cfg.Server.Debug,
			Version: a.info.Version,
		})
	}

	log := commonlog.GetLogger("yulsp")
	switch a.cfg.Server.Transport {
	case config.TransportTCP:
		log.Notice("starting language server", "transport", "tcp", "address", a.cfg.Server.Address)
		return server.RunTCP(ctx, a.cfg.Server.Address, newServer)
	default:
		log.Notice("starting language server", "transport", "stdio")
		s := newServer()
		defer s.Close()
		return s.RunStdio(ctx)
	}
}

func (a *app) newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openLookup()
			if err != nil {
				return err
			}
			defer closeFn()
			return server.ServeMCP(server.NewMCP(svc, a.info.Version))
		},
	}
}

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and YULSP_*
environment overrides are applied. The API key is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", a.cfg.Path)
			}
			return a.cfg.Encode(cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge-cache",
		Short: "Delete expired entries from the signature cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Cache.Enabled {
				return fmt.Errorf("the signature cache is disabled")
			}
			cache, err := lookup.OpenCache(a.cfg.Cache.Path, a.cfg.Cache.TTL.Duration)
			if err != nil {
				return err
			}
			defer cache.Close()
			n, err := cache.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
			return nil
		},
	})
	return cmd
}

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "yulsp %s (commit %s, built %s)\n", a.info.Version, a.info.Commit, a.info.Date)
		},
	}
}
