// Package imghost uploads rendered depth maps to an ImgBB-compatible image
// host. The API key is pass-through configuration (IMG_API_KEY); nothing in
// this package interprets it.
package imghost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public ImgBB upload endpoint.
const DefaultBaseURL = "https://api.imgbb.com/1/upload"

const defaultTimeout = 30 * time.Second

// Upload is the hosted location of an uploaded image.
type Upload struct {
	URL        string
	DisplayURL string
	DeleteURL  string
}

// Client talks to one image-host endpoint with one API key.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New returns a client for the given endpoint. Empty baseURL selects the
// public ImgBB API; timeout <= 0 selects a 30s default.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, hc: &http.Client{Timeout: timeout}}
}

// Share uploads PNG bytes under the given name. It first tries the compact
// base64 form upload; if the host rejects that, it retries once as a
// multipart file upload.
func (c *Client) Share(ctx context.Context, name string, png []byte) (Upload, error) {
	if c.apiKey == "" {
		return Upload{}, fmt.Errorf("image host: no API key configured")
	}
	if len(png) == 0 {
		return Upload{}, fmt.Errorf("image host: empty image")
	}
	up, err := c.uploadBase64(ctx, name, png)
	if err == nil {
		return up, nil
	}
	return c.uploadMultipart(ctx, name, png)
}

func (c *Client) uploadBase64(ctx context.Context, name string, png []byte) (Upload, error) {
	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("name", name)
	form.Set("image", base64.StdEncoding.EncodeToString(png))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Upload{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) uploadMultipart(ctx context.Context, name string, png []byte) (Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("key", c.apiKey); err != nil {
		return Upload{}, err
	}
	if err := mw.WriteField("name", name); err != nil {
		return Upload{}, err
	}
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return Upload{}, err
	}
	if _, err := fw.Write(png); err != nil {
		return Upload{}, err
	}
	if err := mw.Close(); err != nil {
		return Upload{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return Upload{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// hostResponse is the ImgBB envelope; only the fields we read.
type hostResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(req *http.Request) (Upload, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return Upload{}, fmt.Errorf("image host: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Upload{}, fmt.Errorf("image host: read response: %w", err)
	}
	var hr hostResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		return Upload{}, fmt.Errorf("image host: status %d: unparseable response", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !hr.Success {
		msg := hr.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Upload{}, fmt.Errorf("image host: upload failed: %s", msg)
	}
	if hr.Data.URL == "" {
		return Upload{}, fmt.Errorf("image host: response carried no URL")
	}
	return Upload{URL: hr.Data.URL, DisplayURL: hr.Data.DisplayURL, DeleteURL: hr.Data.DeleteURL}, nil
}
