package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDownloadTimeout is the default timeout for photo downloads
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxPhotoSize is the default maximum photo size (10MB)
	DefaultMaxPhotoSize = 10 * 1024 * 1024
)

// PhotoDownloader fetches photo bytes from Telegram's file servers.
type PhotoDownloader struct {
	client  *resty.Client
	maxSize int64
}

// NewPhotoDownloader creates a new PhotoDownloader with default settings.
func NewPhotoDownloader() *PhotoDownloader {
	return &PhotoDownloader{
		client:  resty.New().SetTimeout(DefaultDownloadTimeout),
		maxSize: DefaultMaxPhotoSize,
	}
}

// WithMaxSize sets a custom maximum file size.
func (d *PhotoDownloader) WithMaxSize(maxSize int64) *PhotoDownloader {
	d.maxSize = maxSize
	return d
}

// DownloadFromURL downloads photo data from a URL, enforcing the size limit.
func (d *PhotoDownloader) DownloadFromURL(ctx context.Context, photoURL string) ([]byte, error) {
	res, err := d.client.R().
		SetContext(ctx).
		Get(photoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("download failed: status %d", res.StatusCode())
	}

	contentType := res.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("invalid content type: expected image/*, got %s", contentType)
	}

	data := res.Body()
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("photo too large: %d bytes exceeds limit of %d bytes", len(data), d.maxSize)
	}

	return data, nil
}

// DownloadFromTelegramFileID downloads a photo from Telegram using a file ID.
// It uses the provided function to resolve the file ID to a direct URL.
func (d *PhotoDownloader) DownloadFromTelegramFileID(
	ctx context.Context,
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) ([]byte, error) {
	log.Info().Str("fileID", fileID).Msg("downloading telegram file")

	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}

	return d.DownloadFromURL(ctx, url)
}
