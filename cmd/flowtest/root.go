package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile       string
	testDirectory string
	envName       string
	priorityCSV   string
	suiteCSV      string
	nodeCSV       string
	tagCSV        string
	verboseFlag   bool
	debugFlag     bool
	quietFlag     bool
	noLogFlag     bool
	liveEventsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "flowtest",
	Short: "flowtest runs declarative YAML API test suites",
	Long: `flowtest discovers YAML test suites, resolves their dependency graph,
schedules them across a priority-tiered worker pool, and reports pass/fail
results for every step, assertion, and scenario.`,
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: flow-test.config.yml in the current directory)")
	rootCmd.PersistentFlags().StringVarP(&testDirectory, "directory", "d", "", "test directory override")
	rootCmd.PersistentFlags().StringVarP(&envName, "environment", "e", "", "environment name for variable substitution")
	rootCmd.PersistentFlags().StringVar(&priorityCSV, "priority", "", "comma-separated priority filter")
	rootCmd.PersistentFlags().StringVar(&suiteCSV, "suite", "", "comma-separated suite name filter")
	rootCmd.PersistentFlags().StringVar(&nodeCSV, "node-id", "", "comma-separated node_id filter")
	rootCmd.PersistentFlags().StringVar(&tagCSV, "tag", "", "comma-separated tag filter")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "info-level logging")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "debug-level logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress logging entirely")
	rootCmd.PersistentFlags().BoolVar(&noLogFlag, "no-log", false, "disable the JSON run report and the live-events.jsonl sink")
	rootCmd.PersistentFlags().BoolVar(&liveEventsFlag, "live-events", false, "enable the live-events.jsonl sink explicitly")

	rootCmd.AddCommand(runCmd, dryRunCmd, initCmd, importCmd, versionCmd)
}

func initEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowtest %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// exitCodeFor maps a top-level run error to the process exit code: 0 on
// success (never reaches here), 1 on a run-time failure, 130 on SIGINT,
// 143 on SIGTERM.
func exitCodeFor(err error) int {
	switch err {
	case errInterrupted:
		return 130
	case errTerminated:
		return 143
	default:
		return 1
	}
}
