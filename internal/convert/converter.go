package convert

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/dkwon17/csvflow/internal/gcp"
	"github.com/dkwon17/csvflow/internal/models"
)

// CSVPrefix is the virtual directory inside the source container that
// holds the input files.
const CSVPrefix = "csvfiles/"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds the tuning knobs for a Converter. Zero values are not
// usable; start from DefaultConfig or ConfigFromEnv.
type Config struct {
	// OperationTimeout bounds each individual storage operation: the
	// listing, each object download, and each upload attempt.
	OperationTimeout time.Duration
	// ParseConcurrency limits how many CSV objects are fetched and parsed
	// at once.
	ParseConcurrency int
	// UploadMaxAttempts is the total number of upload tries; 1 disables
	// retry.
	UploadMaxAttempts int
	// UploadRetryBackoff is the delay before the second attempt. It
	// doubles after each failed attempt.
	UploadRetryBackoff time.Duration
}

// DefaultConfig returns the baseline configuration: bounded operations,
// modest fan-out, no upload retry.
func DefaultConfig() Config {
	return Config{
		OperationTimeout:   30 * time.Second,
		ParseConcurrency:   8,
		UploadMaxAttempts:  1,
		UploadRetryBackoff: time.Second,
	}
}

// ConfigFromEnv reads the tuning knobs from the environment, keeping the
// DefaultConfig value for anything unset or unparsable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.OperationTimeout = envSeconds("OPERATION_TIMEOUT_SECONDS", cfg.OperationTimeout)
	cfg.ParseConcurrency = envInt("PARSE_CONCURRENCY", cfg.ParseConcurrency)
	cfg.UploadMaxAttempts = envInt("UPLOAD_MAX_ATTEMPTS", cfg.UploadMaxAttempts)
	cfg.UploadRetryBackoff = envSeconds("UPLOAD_RETRY_BACKOFF_SECONDS", cfg.UploadRetryBackoff)
	return cfg
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(gcp.GetEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if v, err := strconv.Atoi(gcp.GetEnv(key, "")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

// Converter runs the CSV-to-workbook pipeline. One instance serves many
// requests; each request gets its own storage client built from that
// request's credential, closed when the request finishes.
type Converter struct {
	config Config

	// newClient builds the per-request storage client from the request
	// credential. Tests swap in a fake-backed client.
	newClient func(ctx context.Context, credential string) (*storage.Client, error)
}

// NewConverter creates a Converter with the given configuration.
func NewConverter(cfg Config) *Converter {
	return &Converter{
		config:    cfg,
		newClient: gcp.NewRequestClient,
	}
}

// Process executes one conversion end to end: validate, list, fetch and
// parse, assemble, upload, resolve the URL. The request must carry its own
// storage credential; callers running under ambient service credentials
// use ProcessWithDefaultCredentials instead.
func (c *Converter) Process(ctx context.Context, req *models.ConversionRequest) (*models.UploadResult, error) {
	if err := validate(req, true); err != nil {
		return nil, err
	}
	return c.run(ctx, req)
}

// ProcessWithDefaultCredentials is Process for callers whose input must
// not embed secrets (the manifest trigger, the CLI): a request without a
// connection string falls back to application-default credentials. An
// explicit credential, when present, still wins.
func (c *Converter) ProcessWithDefaultCredentials(ctx context.Context, req *models.ConversionRequest) (*models.UploadResult, error) {
	if err := validate(req, false); err != nil {
		return nil, err
	}
	return c.run(ctx, req)
}

// validate checks the required request fields and names the first one that
// is absent or empty. No storage call happens before this passes.
func validate(req *models.ConversionRequest, requireCredential bool) error {
	switch {
	case req.ExcelFilename == "":
		return &MissingParameterError{Param: "excel_filename"}
	case req.ContainerName == "":
		return &MissingParameterError{Param: "container_name"}
	case requireCredential && req.ConnectionString == "":
		return &MissingParameterError{Param: "connection_string"}
	}
	return nil
}

func (c *Converter) run(ctx context.Context, req *models.ConversionRequest) (*models.UploadResult, error) {
	logCtx := slog.With("container", req.ContainerName, "excelFilename", req.ExcelFilename)
	logCtx.Info("Starting CSV to Excel conversion.")

	client, err := c.newClient(ctx, req.ConnectionString)
	if err != nil {
		logCtx.Error("Failed to create storage client from request credential", "error", err)
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	defer client.Close()
	bucket := client.Bucket(req.ContainerName)

	refs, err := c.listCSVBlobs(ctx, bucket)
	if err != nil {
		logCtx.Error("Failed to list CSV files", "error", err, "prefix", CSVPrefix)
		return nil, err
	}
	if len(refs) == 0 {
		logCtx.Warn("No CSV files found under prefix.", "prefix", CSVPrefix)
		return nil, ErrNoCSVFiles
	}
	logCtx.Info("Found CSV files to process.", "fileCount", len(refs))

	tables, err := c.fetchAndParse(ctx, bucket, refs)
	if err != nil {
		logCtx.Error("Fetch/parse failed", "error", err)
		return nil, err
	}

	workbook, err := assembleWorkbook(tables)
	if err != nil {
		logCtx.Error("Workbook assembly failed", "error", err)
		return nil, err
	}

	result, err := c.uploadWorkbook(ctx, logCtx, bucket, req.ContainerName, req.ExcelFilename, workbook)
	if err != nil {
		logCtx.Error("Upload failed", "error", err)
		return nil, err
	}
	result.SheetCount = len(tables)

	logCtx.Info("Job Complete!", "object", result.ObjectName, "excelURL", result.URL, "sheetCount", result.SheetCount)
	return result, nil
}

// listCSVBlobs enumerates the csvfiles/ prefix and keeps the .csv objects,
// in the order the storage service returns them.
func (c *Converter) listCSVBlobs(ctx context.Context, bucket *storage.BucketHandle) ([]models.BlobRef, error) {
	listCtx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	defer cancel()

	it := bucket.Objects(listCtx, &storage.Query{Prefix: CSVPrefix})
	var refs []models.BlobRef
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &ConnectionError{Op: "list", Err: err}
		}
		if strings.HasSuffix(attrs.Name, ".csv") {
			refs = append(refs, models.BlobRef{Name: attrs.Name})
		}
	}
	return refs, nil
}

// fetchAndParse downloads and parses every listed blob with bounded
// fan-out. Results land in a slice indexed by discovery order, so sheet
// order never depends on completion order; the first failure cancels the
// remaining fetches.
func (c *Converter) fetchAndParse(ctx context.Context, bucket *storage.BucketHandle, refs []models.BlobRef) ([]models.SheetTable, error) {
	tables := make([]models.SheetTable, len(refs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.config.ParseConcurrency)

	for i, ref := range refs {
		eg.Go(func() error {
			rows, err := c.downloadAndParseCSV(gctx, bucket, ref.Name)
			if err != nil {
				return err
			}
			tables[i] = models.SheetTable{
				SheetName: baseSheetName(ref.Name),
				Rows:      rows,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// uploadWorkbook serializes the workbook and writes it to the container
// root, overwriting any existing object of the same name. Retries, when
// configured, use exponential backoff; exhaustion reports the last error.
func (c *Converter) uploadWorkbook(ctx context.Context, logCtx *slog.Logger, bucket *storage.BucketHandle, containerName, excelFilename string, workbook *excelize.File) (*models.UploadResult, error) {
	objectName := outputObjectName(excelFilename)

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, &UploadError{Object: objectName, Err: fmt.Errorf("failed to serialize workbook: %w", err)}
	}
	data := buf.Bytes()

	backoff := c.config.UploadRetryBackoff
	var lastErr error
	for attempt := 1; attempt <= c.config.UploadMaxAttempts; attempt++ {
		err := c.writeObject(ctx, bucket, objectName, data)
		if err == nil {
			return &models.UploadResult{
				ObjectName: objectName,
				URL:        ObjectURL(containerName, objectName),
			}, nil
		}
		lastErr = err
		if attempt == c.config.UploadMaxAttempts {
			break
		}

		logCtx.Warn(
			"Upload failed, will retry.",
			"object", objectName,
			"attempt", attempt,
			"maxAttempts", c.config.UploadMaxAttempts,
			"backoff", backoff.String(),
			"error", lastErr,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, &UploadError{Object: objectName, Err: ctx.Err()}
		}
	}
	return nil, &UploadError{Object: objectName, Err: lastErr}
}

func (c *Converter) writeObject(ctx context.Context, bucket *storage.BucketHandle, objectName string, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	defer cancel()

	w := bucket.Object(objectName).NewWriter(writeCtx)
	w.ContentType = xlsxContentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// outputObjectName appends the .xlsx extension when the caller left it off.
func outputObjectName(excelFilename string) string {
	if strings.HasSuffix(excelFilename, ".xlsx") {
		return excelFilename
	}
	return excelFilename + ".xlsx"
}

// ObjectURL is the public retrieval URL for an uploaded object. It is
// derived from the naming convention alone; no network call is involved.
func ObjectURL(containerName, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", containerName, url.PathEscape(objectName))
}
