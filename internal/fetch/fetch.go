package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxAssetBytes caps remote downloads so a misbehaving source can't balloon
// an upload.
const maxAssetBytes = 15 << 20

const defaultStockPhotoEndpoint = "https://source.unsplash.com/1600x900/?%s"

// Fetcher pulls remote binaries into the asset pipeline: direct URL
// downloads (site logos) and themed stock photos by keyword.
type Fetcher struct {
	client        *retryablehttp.Client
	stockEndpoint string
}

func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 20 * time.Second
	client.Logger = nil // suppress retryablehttp's default logging

	endpoint := os.Getenv("STOCK_PHOTO_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultStockPhotoEndpoint
	}
	return &Fetcher{client: client, stockEndpoint: endpoint}
}

// Download fetches a remote asset, returning its bytes and content type.
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid asset url %s: %w", rawURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download asset %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d downloading asset %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read asset body from %s: %w", rawURL, err)
	}
	if len(data) > maxAssetBytes {
		return nil, "", fmt.Errorf("asset %s exceeds the %d byte limit", rawURL, maxAssetBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// ThemedPhoto looks up a stock photo for the keyword and returns its bytes
// and content type.
func (f *Fetcher) ThemedPhoto(ctx context.Context, keyword string) ([]byte, string, error) {
	target := fmt.Sprintf(f.stockEndpoint, url.QueryEscape(keyword))
	data, contentType, err := f.Download(ctx, target)
	if err != nil {
		return nil, "", fmt.Errorf("stock photo lookup for %q failed: %w", keyword, err)
	}
	return data, contentType, nil
}
