// Package main is the entry point for the csvflow CLI, a local driver for
// the same CSV-to-Excel pipeline the cloud functions run.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the csvflow CLI.
var rootCmd = &cobra.Command{
	Use:   "csvflow",
	Short: "Merge CSV files from a storage container into one Excel workbook",
	Long: `csvflow runs the CSV-to-Excel conversion pipeline from the command line:
it lists the CSV files under the csvfiles/ prefix of a storage container,
merges them into a multi-sheet xlsx workbook, uploads the workbook to the
container root, and prints its retrieval URL.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the csvflow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./csvflow.yaml or ~/.config/csvflow/config.yaml)")
	rootCmd.AddCommand(versionCmd)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("csvflow")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/csvflow")
		}
	}

	viper.SetDefault("operation_timeout_seconds", 30)
	viper.SetDefault("parse_concurrency", 8)
	viper.SetDefault("upload_max_attempts", 1)
	viper.SetDefault("upload_retry_backoff_seconds", 1)

	// A missing config file is fine; the defaults above apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
