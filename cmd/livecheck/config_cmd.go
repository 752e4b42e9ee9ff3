package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Loads defaults, the config file, LIVECHECK_* environment variables and flags, validates the result and prints it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(nil)
			if err != nil {
				return err
			}

			settings := cfg.Settings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %v\n", k, settings[k])
			}
			return nil
		},
	}
}
