package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"serpgrab/pkg/browser"
	"serpgrab/pkg/config"
	"serpgrab/pkg/killswitch"
	"serpgrab/pkg/logger"
	"serpgrab/pkg/scraper"
	"serpgrab/pkg/ui"
)

var (
	// Search command flags
	inputFile    string
	outputFile   string
	prefer       string
	clickResults bool
	headless     bool
	rateLimit    int
	maxRetries   int
	resumeRun    bool
	forceRestart bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Resolve every query in a file to a result URL",
	Long: `Run one DuckDuckGo search per line of the input file and append
"query<TAB>result" lines to the output file.

A query whose result page yields no usable link still produces a line,
carrying an ERROR marker instead of a URL. Press '` + string(killswitch.DefaultKey) + `' at any time to
abort the run; the browser is torn down before the process exits.`,
	Example: `  # Resolve queries, preferring Instagram profile links
  serpgrab search -i queries.txt -o results.txt --prefer instagram.com

  # Click through to each result instead of reading the href
  serpgrab search -i queries.txt --click

  # Resume an interrupted run
  serpgrab search -i queries.txt --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runSearch()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one query per line (required)")
	searchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "results file (default: output.txt)")
	searchCmd.Flags().StringVarP(&prefer, "prefer", "p", "", "comma-separated preferred domains, e.g. instagram.com,facebook.com")
	searchCmd.Flags().BoolVar(&clickResults, "click", false, "click the chosen result instead of extracting its href")
	searchCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	searchCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "queries per minute (0 uses the configured default)")
	searchCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "page-load retry attempts (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&resumeRun, "resume", false, "resume from the last checkpoint")
	searchCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard any existing checkpoint and start over")
	_ = searchCmd.MarkFlagRequired("input")
}

func runSearch() {
	cfg := loadRunConfig()
	session := openSession(cfg)

	listener, ctx := killswitch.New(context.Background(), session.Close)
	listener.Start()
	defer listener.Stop()
	defer session.Close()

	s := scraper.New(cfg, session)
	opts := scraper.RunOptions{Resume: resumeRun, ForceRestart: forceRestart}

	if err := s.Run(ctx, inputFile, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Run aborted")
			os.Exit(130)
		}
		logger.GetLogger().WithError(err).Error("run failed")
		ui.PrintError("RUN FAILED", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("[RUN COMPLETED]")
}

// loadRunConfig merges flags into the layered configuration and brings
// the logger up. Exits on invalid configuration.
func loadRunConfig() *config.Config {
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
	if outputFile != "" {
		flags["output"] = outputFile
	}
	if rateLimit > 0 {
		flags["requests-per-minute"] = rateLimit
	}
	if maxRetries > 0 {
		flags["max-attempts"] = maxRetries
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
	ui.PrintInfo("Results", cfg.Output.ResultsFile)
	return cfg
}

// openSession launches the browser. Launch failure is fatal.
func openSession(cfg *config.Config) *browser.Session {
	session, err := browser.NewSession(context.Background(), cfg.Browser)
	if err != nil {
		logger.GetLogger().WithError(err).Error("browser failed to launch")
		ui.PrintError("Browser failed to launch", err.Error())
		os.Exit(1)
	}
	return session
}
