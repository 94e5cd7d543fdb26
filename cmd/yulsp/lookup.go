package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/yulsp/lookup"
)

// openLookup builds the lookup service described by the configuration.
// The returned close function releases the cache and cancels in-flight
// backend requests.
func (a *app) openLookup() (lookup.Service, func(), error) {
	log := commonlog.GetLogger("yulsp.lookup")

	var svc lookup.Service = lookup.Disabled{}
	switch {
	case a.cfg.LookupReady():
		svc = lookup.NewDune(a.cfg.DuneConfig())
	case a.cfg.Lookup.Enabled:
		log.Notice("no API key configured; signature lookups are disabled")
	}

	var cache *lookup.Cache
	if a.cfg.Cache.Enabled {
		c, err := lookup.OpenCache(a.cfg.Cache.Path, a.cfg.Cache.TTL.Duration)
		if err != nil {
			return nil, nil, err
		}
		cache = c
		log.Info("opened signature cache", "path", a.cfg.Cache.Path)
	}

	cached := lookup.NewCached(svc, cache, a.cfg.Lookup.Timeout.Duration)
	closeFn := func() {
		cached.Close()
		if cache != nil {
			if err := cache.Close(); err != nil {
				log.Warning("closing signature cache", "error", err)
			}
		}
	}
	return cached, closeFn, nil
}

func (a *app) newSignatureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signature <selector>",
		Short: "Look up the function signature for a 4-byte selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLookup(cmd, args[0], func(ctx context.Context, svc lookup.Service, key string) (string, error) {
				return svc.FunctionSignature(ctx, key)
			})
		},
	}
}

func (a *app) newContractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contract <address>",
		Short: "Look up the contract name for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLookup(cmd, args[0], func(ctx context.Context, svc lookup.Service, key string) (string, error) {
				return svc.ContractName(ctx, key)
			})
		},
	}
}

func (a *app) runLookup(cmd *cobra.Command, key string, fetch func(context.Context, lookup.Service, string) (string, error)) error {
	svc, closeFn, err := a.openLookup()
	if err != nil {
		return err
	}
	defer closeFn()

	value, err := fetch(cmd.Context(), svc, key)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", key)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}
