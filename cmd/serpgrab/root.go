package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"serpgrab/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serpgrab",
	Short: "Resolve search queries to result URLs with a real browser",
	Long: `serpgrab drives a headless Chrome session to run DuckDuckGo searches
and resolve each query to a winning result URL.

Features:
  - Multi-tier result-link detection with domain preference
  - Extract-only or click-through navigation modes
  - Instagram profile statistics scraping to CSV
  - Resume interrupted runs from a checkpoint
  - Kill key and signal handling with clean browser teardown
  - Smart rate limiting between queries`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.serpgrab.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`serpgrab {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
