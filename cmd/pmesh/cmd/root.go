package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/promptmesh/pkg/api"
	"github.com/psantana5/promptmesh/pkg/history"
	"github.com/psantana5/promptmesh/pkg/jobs"
	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
	"github.com/psantana5/promptmesh/pkg/router"
)

var (
	cfgFile      string
	serverURL    string
	outputFormat string
	apiKey       string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pmesh",
	Short: "CLI for the PromptMesh prompt-engineering backend",
	Long: `pmesh submits prompt evaluation, comparison and evolution jobs to a
PromptMesh server, follows them to completion, and keeps a local history
of past submissions.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pmesh/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default from config or http://localhost:8000)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".pmesh"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PMESH")
	viper.AutomaticEnv()
	viper.BindEnv("server", "PMESH_SERVER")
	viper.BindEnv("api_key", "PMESH_API_KEY")

	viper.SetDefault("server", "http://localhost:8000")
	viper.SetDefault("output", "table")
	viper.SetDefault("history", defaultHistoryLocator())
	viper.SetDefault("log_level", "warn")

	// Flag > env > config file > default.
	viper.ReadInConfig()
	if serverURL == "" {
		serverURL = viper.GetString("server")
	}
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	if !rootCmd.PersistentFlags().Changed("output") && viper.GetString("output") != "" {
		outputFormat = viper.GetString("output")
	}
}

func defaultHistoryLocator() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "memory:"
	}
	return "file:" + filepath.Join(home, ".pmesh")
}

// GetServerURL returns the configured server URL with trailing slashes removed
func GetServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

func logLevel() logging.Level {
	if verbose {
		return logging.DEBUG
	}
	return logging.ParseLevel(viper.GetString("log_level"))
}

// app bundles the wired client-side components one command invocation uses.
type app struct {
	logger    *logging.Logger
	notifier  notify.Notifier
	gateway   *api.Client
	kv        history.KV
	history   *history.Store
	router    *router.Router
	poller    *jobs.Poller
	submitter *jobs.Submitter
}

// buildApp wires gateway, history, router, poller and submitter from the
// resolved configuration. Callers must Close() it.
func buildApp() (*app, error) {
	logger := logging.NewLogger(logLevel(), false)
	notifier := notify.NewConsoleNotifier()
	gateway := api.NewClient(GetServerURL(), apiKey, notifier, logger)

	kv, err := history.OpenKV(viper.GetString("history"))
	if err != nil {
		return nil, fmt.Errorf("failed to open history backend: %w", err)
	}
	hist, err := history.NewStore(kv, logger)
	if err != nil {
		kv.Close()
		return nil, err
	}

	rt := router.New()
	registerRenderers(rt)

	poller := jobs.NewPoller(gateway, rt, notifier, jobs.NewTracker(), logger,
		jobs.WithProgress(printProgress))
	submitter := jobs.NewSubmitter(gateway, hist, poller, notifier, logger)

	return &app{
		logger:    logger,
		notifier:  notifier,
		gateway:   gateway,
		kv:        kv,
		history:   hist,
		router:    rt,
		poller:    poller,
		submitter: submitter,
	}, nil
}

func (a *app) Close() {
	a.kv.Close()
}

// printProgress redraws one status line per poll tick.
func printProgress(jobID string, status models.JobStatus, progress int) {
	fmt.Fprintf(os.Stderr, "\r[%s] %-9s %3d%%", jobID[:min(8, len(jobID))], status, progress)
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		fmt.Fprintln(os.Stderr)
	}
}
