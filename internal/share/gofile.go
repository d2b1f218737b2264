// Package share proxies finished frames to the gofile.io hosting service and
// renders share links as QR codes.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultUploadURL is the gofile.io upload endpoint.
const DefaultUploadURL = "https://upload.gofile.io/uploadfile"

// UpstreamError reports a failure from the hosting service, keeping the
// upstream status and raw body so the handler can relay both.
type UpstreamError struct {
	Status int
	Body   string
	Reason string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("share: upstream %d: %s", e.Status, e.Reason)
}

// Client uploads files to the hosting service.
type Client struct {
	uploadURL string
	http      *http.Client
}

func NewClient(uploadURL string) *Client {
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &Client{
		uploadURL: uploadURL,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadPage string `json:"downloadPage"`
	} `json:"data"`
}

// Upload streams the file to the hosting service and returns the shareable
// download-page link.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("share: building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("share: upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("share: reading response: %w", err)
	}

	log.Debug().Int("status", resp.StatusCode).Str("body", string(body)).Msg("gofile response")

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body), Reason: "upload rejected"}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body), Reason: "upstream did not return JSON"}
	}
	if parsed.Status != "ok" || parsed.Data.DownloadPage == "" {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body), Reason: "no download page in response"}
	}

	return parsed.Data.DownloadPage, nil
}

// AsUpstream unwraps an UpstreamError if err carries one.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
