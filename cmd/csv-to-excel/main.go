package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/dkwon17/csvflow/internal/convert"
	"github.com/dkwon17/csvflow/internal/models"
)

var (
	converterInstance *convert.Converter
	once              sync.Once
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("ConvertCsvToExcel", convertCsvToExcel)
}

// main is required by the Go Functions Framework.
func main() {}

// convertCsvToExcel is the HTTP entry point: it decodes the conversion
// request, runs the pipeline, and writes the success or error envelope.
func convertCsvToExcel(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		converterInstance = convert.NewConverter(convert.ConfigFromEnv())
	})

	var req models.ConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		writeError(w, http.StatusBadRequest, "Bad Request: could not parse JSON")
		return
	}

	result, err := converterInstance.Process(r.Context(), &req)
	if err != nil {
		// The error is already logged with context inside Process.
		writeError(w, convert.HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	res := models.ConversionResponse{
		Status:    "success",
		Message:   "Job Complete!",
		ExcelURL:  result.URL,
		FileCount: result.SheetCount,
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error(
			"Failed to write response",
			"error", err,
			"container", req.ContainerName,
			"excelFilename", req.ExcelFilename,
		)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Status: "error", Message: message}); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
