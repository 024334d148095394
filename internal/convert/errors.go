package convert

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCSVFiles indicates the container holds no CSV objects under the
// csvfiles/ prefix. This is a client-visible condition, not a retryable
// fault.
var ErrNoCSVFiles = errors.New("no CSV files found in the csvfiles directory of the specified blob container")

// MissingParameterError names the first required request field that is
// absent or empty.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("please provide %s in the request body", e.Param)
}

// ConnectionError wraps a failure to reach the storage service or a
// rejected credential.
type ConnectionError struct {
	Op  string // "connect", "list", "download <object>"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ParseError identifies the CSV object that failed to parse. One parse
// failure aborts the whole request; there is no partial-success mode.
type ParseError struct {
	Blob string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse CSV file %q: %v", e.Blob, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UploadError wraps a failure serializing or writing the workbook object.
type UploadError struct {
	Object string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %q: %v", e.Object, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error returned by Converter.Process to the response
// status code: 400 for a missing parameter, 404 when no CSV files exist,
// 500 for everything else (connection, parse, upload).
func HTTPStatus(err error) int {
	var missing *MissingParameterError
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoCSVFiles):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
