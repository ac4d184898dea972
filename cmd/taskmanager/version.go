package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"task-manager/internal/config"
)

// Set at build time with -ldflags "-X main.gitCommit=...".
var (
	gitCommit = "unknown"
	buildDate = "unknown"
)

func newVersionCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := config.Default()
			if loaded, err := config.Load(*configPath); err == nil {
				cfg = loaded
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", cfg.App.Name, cfg.App.Version)
			fmt.Fprintf(out, "  Git commit: %s\n", gitCommit)
			fmt.Fprintf(out, "  Built:      %s\n", buildDate)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}
