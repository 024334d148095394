package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkwon17/csvflow/internal/convert"
	"github.com/dkwon17/csvflow/internal/models"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Run one CSV-to-Excel conversion",
	Long: `convert merges every CSV file under the csvfiles/ prefix of the given
container into one multi-sheet xlsx workbook, uploads the workbook to the
container root (overwriting any previous one of the same name), and prints
the retrieval URL.

Credentials come from --credentials-file (a service account key JSON); when
the flag is omitted, application-default credentials are used.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("excel-filename", "", "name of the output workbook, without extension (required)")
	convertCmd.Flags().String("container", "", "source storage container (required)")
	convertCmd.Flags().String("credentials-file", "", "path to a service account key JSON")
	_ = convertCmd.MarkFlagRequired("excel-filename")
	_ = convertCmd.MarkFlagRequired("container")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	excelFilename, _ := cmd.Flags().GetString("excel-filename")
	container, _ := cmd.Flags().GetString("container")
	credentialsFile, _ := cmd.Flags().GetString("credentials-file")

	req := &models.ConversionRequest{
		ExcelFilename: excelFilename,
		ContainerName: container,
	}
	if credentialsFile != "" {
		key, err := os.ReadFile(credentialsFile)
		if err != nil {
			return fmt.Errorf("failed to read credentials file: %w", err)
		}
		req.ConnectionString = string(key)
	}

	converter := convert.NewConverter(configFromViper())
	result, err := converter.ProcessWithDefaultCredentials(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Converted %d CSV files into %s\n", result.SheetCount, result.ObjectName)
	fmt.Println(result.URL)
	return nil
}

// configFromViper maps the config-file keys onto the pipeline knobs. Keys
// mirror the environment variables the cloud functions read.
func configFromViper() convert.Config {
	cfg := convert.DefaultConfig()
	if v := viper.GetInt("operation_timeout_seconds"); v > 0 {
		cfg.OperationTimeout = time.Duration(v) * time.Second
	}
	if v := viper.GetInt("parse_concurrency"); v > 0 {
		cfg.ParseConcurrency = v
	}
	if v := viper.GetInt("upload_max_attempts"); v > 0 {
		cfg.UploadMaxAttempts = v
	}
	if v := viper.GetInt("upload_retry_backoff_seconds"); v > 0 {
		cfg.UploadRetryBackoff = time.Duration(v) * time.Second
	}
	return cfg
}
