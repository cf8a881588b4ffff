package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Client wraps the project's asset bucket. Keys follow
// <category>/<ownerId>/<subtype>/<timestamp>_<name>.
type Client struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewClient initializes the storage client. It first attempts to use
// credentials from the FIREBASE_SERVICE_ACCOUNT_JSON environment variable
// (Base64 encoded). If that's not found, it falls back to a local service
// account key file.
func NewClient(ctx context.Context, localFilePath string) (*Client, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON: %v", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Storage: Initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("Storage: Initializing from local file: %s.", localFilePath)
	}

	bucketName := os.Getenv("STORAGE_BUCKET")
	if bucketName == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET environment variable is not set")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %v", err)
	}

	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error getting default bucket: %v", err)
	}

	return &Client{bucket: bucket, bucketName: bucketName}, nil
}

// Put uploads one object and returns its public URL.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := c.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	return c.publicURL(key), nil
}

// Delete removes the given keys, returning the keys that were actually
// deleted. Per-key failures are collected; the last one is returned so the
// caller can log it, but the remaining keys are still attempted.
func (c *Client) Delete(ctx context.Context, keys []string) ([]string, error) {
	var deleted []string
	var lastErr error
	for _, key := range keys {
		if err := c.bucket.Object(key).Delete(ctx); err != nil {
			log.Printf("Storage: failed to delete object %s: %v", key, err)
			lastErr = fmt.Errorf("failed to delete object %s: %w", key, err)
			continue
		}
		deleted = append(deleted, key)
	}
	return deleted, lastErr
}

func (c *Client) publicURL(key string) string {
	return "https://storage.googleapis.com/" + c.bucketName + "/" + key
}

// KeyFromURL maps one of our public URLs back to its object key. URLs that
// do not point into this bucket report false.
func (c *Client) KeyFromURL(url string) (string, bool) {
	prefix := "https://storage.googleapis.com/" + c.bucketName + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
