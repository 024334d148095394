package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/dkwon17/csvflow/internal/convert"
	"github.com/dkwon17/csvflow/internal/models"
)

// manifestPrefix is the virtual directory watched for conversion manifest
// objects. A manifest is a JSON-encoded ConversionRequest; its credential
// field is normally empty, since manifests live in storage and must not
// carry secrets.
const manifestPrefix = "conversion-requests/"

var (
	converterInstance *convert.Converter
	storageClient     *storage.Client
	operationTimeout  time.Duration
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ConvertOnManifest", convertOnManifest)
}

// main is required by the Go Functions Framework.
func main() {}

// convertOnManifest fires on a GCS object-finalize event. Manifest objects
// trigger a conversion; everything else is ignored so the trigger can be
// attached to a bucket that also holds the CSV inputs.
func convertOnManifest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		cfg := convert.ConfigFromEnv()
		converterInstance = convert.NewConverter(cfg)
		operationTimeout = cfg.OperationTimeout
		storageClient, initErr = storage.NewClient(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	if !strings.HasPrefix(gcsEvent.Name, manifestPrefix) || !strings.HasSuffix(gcsEvent.Name, ".json") {
		slog.Info("Ignoring non-manifest object.", "gcsBucket", gcsEvent.Bucket, "gcsObject", gcsEvent.Name)
		return nil
	}

	logCtx := slog.With("gcsBucket", gcsEvent.Bucket, "gcsObject", gcsEvent.Name)
	logCtx.Info("Processing conversion manifest.")

	req, err := readManifest(ctx, gcsEvent)
	if err != nil {
		logCtx.Error("Failed to read manifest", "error", err)
		return err
	}

	result, err := converterInstance.ProcessWithDefaultCredentials(ctx, req)
	if err != nil {
		// The error is already logged with context inside the pipeline.
		return err
	}

	logCtx.Info("Manifest conversion complete.", "excelURL", result.URL, "fileCount", result.SheetCount)
	return nil
}

// readManifest downloads and decodes a conversion manifest, bounded by the
// same operation timeout as every other storage call. A manifest may omit
// container_name, in which case the bucket the manifest landed in is the
// source container.
func readManifest(ctx context.Context, e models.GCSEvent) (*models.ConversionRequest, error) {
	readCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	reader, err := storageClient.Bucket(e.Bucket).Object(e.Name).NewReader(readCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	defer reader.Close()

	var req models.ConversionRequest
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode manifest gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	if req.ContainerName == "" {
		req.ContainerName = e.Bucket
	}
	return &req, nil
}
