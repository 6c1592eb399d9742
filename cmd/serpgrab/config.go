package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"serpgrab/pkg/config"
	"serpgrab/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Create, inspect and validate the serpgrab configuration file.`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Run:   runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, the config file,
environment variables and flags.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# serpgrab configuration file
#
# Every option can also be set with a SERPGRAB_ environment variable,
# e.g. SERPGRAB_HEADLESS, SERPGRAB_PREFER, SERPGRAB_LOG_LEVEL.

browser:
  headless: true
  # Persist cookies and login state between runs
  user_data_dir: ""
  user_agent: ""
  page_load_timeout: 30s

search:
  base_url: "https://duckduckgo.com/"
  engine_host: "duckduckgo.com"
  # Earlier domains win ties during candidate selection
  preferred_domains:
    - instagram.com
  # Click the chosen result instead of extracting its href
  click: false
  result_wait: 8s
  settle_timeout: 10s

instagram:
  # Credentials for the profiles command; prefer 'serpgrab auth login'
  username: ""

rate_limit:
  requests_per_minute: 60

retry:
  max_attempts: 3
  base_delay: 1s
  max_delay: 30s

output:
  results_file: "output.txt"
  report_file: "profiles.csv"

logging:
  level: "info"
  # Also write JSON logs to this file
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".serpgrab.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to write configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nEdit it to match your setup, then validate with:")
	fmt.Println("  serpgrab config validate")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Search engine", cfg.Search.BaseURL)
	ui.PrintInfo("Preferred domains", fmt.Sprintf("%v", cfg.Search.PreferredDomains))
	ui.PrintInfo("Navigation mode", navigationMode(cfg.Search.Click))
	ui.PrintInfo("Headless", fmt.Sprintf("%t", cfg.Browser.Headless))
	ui.PrintInfo("Page load timeout", cfg.Browser.PageLoadTimeout.String())
	ui.PrintInfo("Result wait", cfg.Search.ResultWait.String())
	ui.PrintInfo("Requests per minute", fmt.Sprintf("%d", cfg.RateLimit.RequestsPerMinute))
	ui.PrintInfo("Retry attempts", fmt.Sprintf("%d", cfg.Retry.MaxAttempts))
	ui.PrintInfo("Results file", cfg.Output.ResultsFile)
	ui.PrintInfo("Report file", cfg.Output.ReportFile)
	ui.PrintInfo("Log level", cfg.Logging.Level)
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid")
}

func navigationMode(click bool) string {
	if click {
		return "click"
	}
	return "extract"
}
