package convert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkwon17/csvflow/internal/models"
)

func TestProcessValidation(t *testing.T) {
	// Validation failures must return before any storage client is built,
	// so these run without network access or credentials.
	tests := []struct {
		name      string
		req       *models.ConversionRequest
		wantParam string
	}{
		{
			"missing excel_filename",
			&models.ConversionRequest{ContainerName: "data", ConnectionString: "{}"},
			"excel_filename",
		},
		{
			"missing container_name",
			&models.ConversionRequest{ExcelFilename: "Report", ConnectionString: "{}"},
			"container_name",
		},
		{
			"missing connection_string",
			&models.ConversionRequest{ExcelFilename: "Report", ContainerName: "data"},
			"connection_string",
		},
		{
			"all missing names the first field",
			&models.ConversionRequest{},
			"excel_filename",
		},
	}

	c := NewConverter(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Process(context.Background(), tt.req)
			var missing *MissingParameterError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.wantParam, missing.Param)
		})
	}
}

func TestProcessWithDefaultCredentialsValidation(t *testing.T) {
	c := NewConverter(DefaultConfig())

	// The relaxed entry still requires the output name and the container.
	_, err := c.ProcessWithDefaultCredentials(context.Background(), &models.ConversionRequest{ContainerName: "data"})
	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "excel_filename", missing.Param)

	_, err = c.ProcessWithDefaultCredentials(context.Background(), &models.ConversionRequest{ExcelFilename: "Report"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "container_name", missing.Param)
}

func TestOutputObjectName(t *testing.T) {
	assert.Equal(t, "Report.xlsx", outputObjectName("Report"))
	assert.Equal(t, "Report.xlsx", outputObjectName("Report.xlsx"))
	assert.Equal(t, "q1.final.xlsx", outputObjectName("q1.final"))
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/data/Report.xlsx",
		ObjectURL("data", "Report.xlsx"),
	)
	// Re-deriving the URL for identical inputs is identical; nothing about
	// it depends on request state.
	assert.Equal(t, ObjectURL("data", "Report.xlsx"), ObjectURL("data", "Report.xlsx"))

	assert.Equal(t,
		"https://storage.googleapis.com/data/Monthly%20Report.xlsx",
		ObjectURL("data", "Monthly Report.xlsx"),
	)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 8, cfg.ParseConcurrency)
	assert.Equal(t, 1, cfg.UploadMaxAttempts, "retry is off in the base design")
	assert.Equal(t, time.Second, cfg.UploadRetryBackoff)
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("overrides applied", func(t *testing.T) {
		t.Setenv("OPERATION_TIMEOUT_SECONDS", "10")
		t.Setenv("PARSE_CONCURRENCY", "4")
		t.Setenv("UPLOAD_MAX_ATTEMPTS", "3")
		t.Setenv("UPLOAD_RETRY_BACKOFF_SECONDS", "2")

		cfg := ConfigFromEnv()
		assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
		assert.Equal(t, 4, cfg.ParseConcurrency)
		assert.Equal(t, 3, cfg.UploadMaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.UploadRetryBackoff)
	})

	t.Run("garbage falls back to defaults", func(t *testing.T) {
		t.Setenv("OPERATION_TIMEOUT_SECONDS", "soon")
		t.Setenv("PARSE_CONCURRENCY", "-1")

		cfg := ConfigFromEnv()
		assert.Equal(t, DefaultConfig().OperationTimeout, cfg.OperationTimeout)
		assert.Equal(t, DefaultConfig().ParseConcurrency, cfg.ParseConcurrency)
	})
}
