package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build identity, overridden via -ldflags at release time.
var (
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Long:  `Show the Orbit release version, source commit, and build environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("orbit %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		fmt.Printf("%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
