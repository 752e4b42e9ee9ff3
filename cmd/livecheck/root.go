package main

import (
	"github.com/spf13/cobra"

	"github.com/goclaw/livecheck/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	appName    string
	logLevel   string
	debug      bool
}

func (o *rootOptions) overrides() map[string]any {
	overrides := make(map[string]any)
	if o.appName != "" {
		overrides["app.name"] = o.appName
	}
	if o.logLevel != "" {
		overrides["log.level"] = o.logLevel
	}
	return overrides
}

func (o *rootOptions) load(extra map[string]any) (*config.Config, error) {
	overrides := o.overrides()
	for k, v := range extra {
		overrides[k] = v
	}
	return config.Load(o.configPath, overrides)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "livecheck",
		Short: "Resolve signals across processes and wait on them by key",
		Long: `livecheck dispatches signal events from a partitioned bus into a
resolved-event store and wakes the cases waiting on them.

Running it without a subcommand is the same as "livecheck serve".`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.appName, "app-name", "", "Override app name")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	serve := newServeCmd(opts)
	cmd.RunE = serve.RunE
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve, newSendCmd(opts), newConfigCmd(opts), newVersionCmd())
	return cmd
}
