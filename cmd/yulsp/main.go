// Command yulsp is a language server and query tool for Yul.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/yulsp/config"

	_ "github.com/tliron/commonlog/simple"
)

// Set with -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errCheckFailed signals that check found problems. It has already been
// reported, so main only sets the exit code.
var errCheckFailed = errors.New("check failed")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand(buildInfo{Version: version, Commit: commit, Date: date})
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "yulsp: %v\n", err)
		}
		return 1
	}
	return 0
}

type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app holds the global flags and the configuration loaded from them.
type app struct {
	info       buildInfo
	configPath string
	verbose    int
	logFile    string

	cfg *config.Config
}

func newRootCommand(info buildInfo) *cobra.Command {
	a := &app{info: info}

	root := &cobra.Command{
		Use:   "yulsp",
		Short: "Language server for Yul",
		Long: `yulsp answers editor queries about Yul source: go to definition, find
references, and hover tooltips that resolve 4-byte function selectors to
their signatures.

Run "yulsp serve" from an editor, or use the query commands directly on a
file.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to yulsp.toml or yulsp.yaml")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		a.newServeCommand(),
		a.newMCPCommand(),
		a.newIdentifyCommand(),
		a.newDefinitionCommand(),
		a.newReferencesCommand(),
		a.newHoverCommand(),
		a.newCheckCommand(),
		a.newSignatureCommand(),
		a.newContractCommand(),
		a.newConfigCommand(),
		a.newVersionCommand(),
	)
	return root
}

// setup loads the configuration and configures logging. Flags win over the
// file and the environment.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if a.verbose > 0 {
		cfg.Server.Verbosity = a.verbose
	}
	if a.logFile != "" {
		cfg.Server.LogFile = a.logFile
	}
	a.cfg = cfg

	commonlog.Initialize(cfg.Server.Verbosity, cfg.Server.LogFile)
	if cfg.Path != "" {
		commonlog.GetLogger("yulsp").Info("loaded configuration", "path", cfg.Path)
	}
	return nil
}
