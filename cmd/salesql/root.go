// salesql is the command line front end of the sales pipeline.
//
// Usage:
//
//	salesql run [--input data.csv] [--db ecommerce.db] [--queries queries.sql] [--out .]
//	salesql queries [--table sales] [--top 5]
//	salesql validate --input data.csv
//
// Exit status is 0 when the run completed, 1 on a fatal error and 2 when the
// run finished but a query, the cross-check or an output file failed.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/salesql/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// errIncomplete marks a run that finished with non-fatal problems.
var errIncomplete = errors.New("run incomplete")

// Exit codes.
const (
	exitOK         = 0
	exitFatal      = 1
	exitIncomplete = 2
)

var rootFlags struct {
	logLevel  string
	logFormat string
	envFile   string
}

var rootCmd = &cobra.Command{
	Use:   "salesql",
	Short: "Clean e-commerce transactions into SQLite and report on them",
	Long: "salesql loads a transaction CSV, cleans it, stores it in SQLite,\n" +
		"runs a fixed catalog of SQL queries and writes a markdown report with charts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: console or json (default $LOG_FORMAT or console)")
	f.StringVar(&rootFlags.envFile, "env-file", "", "Load settings from this file instead of ./.env")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(queriesCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.Version = version
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if rootFlags.envFile != "" {
		files = append(files, rootFlags.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = rootFlags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = rootFlags.logFormat
	}
	return cfg, nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errIncomplete):
		return exitIncomplete
	default:
		return exitFatal
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
