package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goclaw/livecheck/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version.String())
			fmt.Fprintf(out, "Build Time: %s\n", version.BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", version.GitCommit)
			fmt.Fprintf(out, "Go Version: %s\n", version.GoVersion)
		},
	}
}
