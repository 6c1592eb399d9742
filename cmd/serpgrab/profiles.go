package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"serpgrab/pkg/auth"
	"serpgrab/pkg/config"
	"serpgrab/pkg/instagram"
	"serpgrab/pkg/killswitch"
	"serpgrab/pkg/logger"
	"serpgrab/pkg/scraper"
	"serpgrab/pkg/ui"
)

var (
	// Profiles command flags
	reportFile  string
	accountName string
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Resolve queries to Instagram profiles and scrape their statistics",
	Long: `Run one search per query, expect the winning result to be an Instagram
profile URL, and append the profile's follower, following, post counts
and bio to a CSV report.

Statistics that cannot be extracted are recorded as N/A rather than
failing the row. Logging in with stored credentials (see 'serpgrab auth')
avoids Instagram's anonymous-view limits.`,
	Example: `  # Scrape profiles for each query
  serpgrab profiles -i accounts.txt --report profiles.csv

  # Use a stored Instagram account for the session
  serpgrab profiles -i accounts.txt --account myaccount`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runProfiles()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one query per line (required)")
	profilesCmd.Flags().StringVar(&reportFile, "report", "", "CSV report file (default: profiles.csv)")
	profilesCmd.Flags().StringVarP(&prefer, "prefer", "p", "instagram.com", "comma-separated preferred domains")
	profilesCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored Instagram account")
	profilesCmd.Flags().BoolVar(&clickResults, "click", false, "click the chosen result instead of extracting its href")
	profilesCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	profilesCmd.Flags().BoolVar(&resumeRun, "resume", false, "resume from the last checkpoint")
	profilesCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard any existing checkpoint and start over")
	_ = profilesCmd.MarkFlagRequired("input")
}

func runProfiles() {
	cfg := loadProfilesConfig()
	fillCredentials(cfg)
	session := openSession(cfg)

	listener, ctx := killswitch.New(context.Background(), session.Close)
	listener.Start()
	defer listener.Stop()
	defer session.Close()

	if err := instagram.Login(ctx, session, cfg.Instagram); err != nil {
		logger.GetLogger().WithError(err).Warn("instagram login failed, continuing anonymously")
		ui.PrintWarning("Instagram login failed, continuing anonymously")
	}

	s := scraper.New(cfg, session)
	opts := scraper.RunOptions{Resume: resumeRun, ForceRestart: forceRestart}

	if err := s.RunProfiles(ctx, inputFile, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Run aborted")
			os.Exit(130)
		}
		logger.GetLogger().WithError(err).Error("profile run failed")
		ui.PrintError("RUN FAILED", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("[RUN COMPLETED]")
}

func loadProfilesConfig() *config.Config {
	flags := make(map[string]interface{})
	if prefer != "" {
		flags["prefer"] = prefer
	}
	if clickResults {
		flags["click"] = true
	}
	if !headless {
		flags["headless"] = false
	}
	if reportFile != "" {
		flags["report"] = reportFile
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.GetLogger().WithField("version", version).Info("serpgrab starting")

	ui.PrintInfo("Input", inputFile)
	ui.PrintInfo("Report", cfg.Output.ReportFile)
	return cfg
}

// fillCredentials resolves the Instagram account for this run: an
// explicitly named stored account, then config/env credentials, then
// the default stored account. Running without any is allowed.
func fillCredentials(cfg *config.Config) {
	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("credential manager unavailable")
		return
	}

	if accountName != "" {
		account, err := manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'serpgrab auth list' to see stored accounts")
			os.Exit(1)
		}
		cfg.Instagram.Username = account.Username
		cfg.Instagram.Password = account.Password
		ui.PrintInfo("Using account", account.Username)
		return
	}

	if cfg.Instagram.Username != "" && cfg.Instagram.Password != "" {
		return
	}

	if account, err := manager.RetrieveDefault(); err == nil {
		cfg.Instagram.Username = account.Username
		cfg.Instagram.Password = account.Password
		ui.PrintInfo("Using account", account.Username)
	}
}
