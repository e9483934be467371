// Package drive uploads listing photos to Google Drive and returns a
// public link for them. It talks to the Drive REST API directly with a
// refresh-token OAuth2 credential.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"
	defaultFilesURL  = "https://www.googleapis.com/drive/v3/files"
)

// ClientOpts configures a Drive client. The URL fields exist for tests and
// default to the public Google endpoints when empty.
type ClientOpts struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// FolderID is the Drive folder uploaded photos are placed in.
	FolderID string

	TokenURL  string
	UploadURL string
	FilesURL  string
}

// Client is a minimal Google Drive uploader.
type Client struct {
	http *resty.Client
	opts ClientOpts

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(opts ClientOpts) *Client {
	if opts.TokenURL == "" {
		opts.TokenURL = defaultTokenURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = defaultUploadURL
	}
	if opts.FilesURL == "" {
		opts.FilesURL = defaultFilesURL
	}

	return &Client{
		http: resty.New().SetTimeout(30 * time.Second),
		opts: opts,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached access token, exchanging the refresh
// token for a new one when the cached token is missing or about to expire.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	var token tokenResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.opts.ClientID,
			"client_secret": c.opts.ClientSecret,
			"refresh_token": c.opts.RefreshToken,
			"grant_type":    "refresh_token",
		}).
		SetResult(&token).
		Post(c.opts.TokenURL)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("token refresh failed: %s", res.Status())
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token refresh returned no access token")
	}

	c.accessToken = token.AccessToken
	// Renew a little early so an in-flight upload never carries a token
	// that expires mid-request.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 30*time.Second)
	return c.accessToken, nil
}

type uploadResponse struct {
	ID string `json:"id"`
}

type fileMetadata struct {
	WebContentLink string `json:"webContentLink"`
}

// Upload stores the given bytes as a Drive file and returns a public
// download link. An error (or empty link) means the upload failed and the
// caller must not persist a listing referencing it.
func (c *Client) Upload(ctx context.Context, data []byte, mimeType, name string) (string, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return "", err
	}

	body, contentType, err := multipartRelatedBody(data, mimeType, name, c.opts.FolderID)
	if err != nil {
		return "", err
	}

	var uploaded uploadResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParam("uploadType", "multipart").
		SetQueryParam("fields", "id").
		SetHeader("Content-Type", contentType).
		SetBody(body).
		SetResult(&uploaded).
		Post(c.opts.UploadURL)
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("drive upload failed: %s", res.Status())
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("drive upload returned no file id")
	}

	log.Info().Str("fileId", uploaded.ID).Str("name", name).Msg("uploaded photo to drive")
	return c.publicURL(ctx, accessToken, uploaded.ID)
}

// publicURL fetches the webContentLink for an uploaded file.
func (c *Client) publicURL(ctx context.Context, accessToken, fileID string) (string, error) {
	var meta fileMetadata
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParam("fields", "webContentLink").
		SetResult(&meta).
		Get(c.opts.FilesURL + "/" + fileID)
	if err != nil {
		return "", fmt.Errorf("drive file metadata: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("drive file metadata failed: %s", res.Status())
	}
	if meta.WebContentLink == "" {
		return "", fmt.Errorf("drive returned no webContentLink for %s", fileID)
	}
	return meta.WebContentLink, nil
}

// multipartRelatedBody builds the multipart/related payload the Drive
// multipart upload endpoint expects: a JSON metadata part followed by the
// media part.
func multipartRelatedBody(data []byte, mimeType, name, folderID string) ([]byte, string, error) {
	meta := map[string]any{"name": name}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	part, err = w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "multipart/related; boundary=" + w.Boundary(), nil
}
