package convert

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"cloud.google.com/go/storage"
)

// downloadAndParseCSV streams one blob from the container and parses it as
// delimited text. A failure to open the object is a connection fault; a
// failure while reading rows counts against the file itself.
func (c *Converter) downloadAndParseCSV(ctx context.Context, bucket *storage.BucketHandle, objectName string) ([][]string, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	defer cancel()

	reader, err := bucket.Object(objectName).NewReader(readCtx)
	if err != nil {
		return nil, &ConnectionError{Op: "download " + objectName, Err: err}
	}
	defer reader.Close()

	rows, err := parseCSV(reader)
	if err != nil {
		return nil, &ParseError{Blob: objectName, Err: err}
	}
	return rows, nil
}

// parseCSV reads delimited text into rows, header first, verbatim. An
// input with no rows at all is an error: every listed file must become a
// sheet.
func parseCSV(r io.Reader) ([][]string, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("no columns to parse from file")
	}
	return rows, nil
}
