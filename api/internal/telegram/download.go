package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxImageBytes = 20 << 20

// Fetcher downloads a file that Telegram reported via getFile.
type Fetcher interface {
	Fetch(ctx context.Context, filePath string) (data []byte, contentType string, err error)
}

type Downloader struct {
	client *resty.Client
	token  string
}

// NewDownloader fetches from baseURL (https://api.telegram.org when empty).
func NewDownloader(token, baseURL string) *Downloader {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	return &Downloader{client: client, token: token}
}

func (d *Downloader) Fetch(ctx context.Context, filePath string) ([]byte, string, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		Get("/file/bot" + d.token + "/" + strings.TrimLeft(filePath, "/"))
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("download: status %d", resp.StatusCode())
	}
	if len(resp.Body()) > maxImageBytes {
		return nil, "", fmt.Errorf("download: file is larger than %d MB", maxImageBytes>>20)
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
