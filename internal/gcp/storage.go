package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// NewRequestClient builds a storage client from a caller-supplied
// credential: a service account key JSON, raw or base64-encoded. An empty
// credential falls back to application-default credentials; the manifest
// trigger relies on this, since its manifests live in storage and must not
// embed secrets.
func NewRequestClient(ctx context.Context, credential string) (*storage.Client, error) {
	if strings.TrimSpace(credential) == "" {
		return storage.NewClient(ctx)
	}
	key, err := DecodeCredential(credential)
	if err != nil {
		return nil, err
	}
	return storage.NewClient(ctx, option.WithCredentialsJSON(key))
}

// DecodeCredential normalizes a connection credential to key JSON bytes.
// Malformed key content is not validated here; it surfaces as a rejected
// credential on the first storage call.
func DecodeCredential(credential string) ([]byte, error) {
	trimmed := strings.TrimSpace(credential)
	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("credential is neither key JSON nor base64-encoded key JSON: %w", err)
	}
	return key, nil
}
