package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"depthd/internal/depthmap"
	"depthd/internal/imageio"
	"depthd/pkg/types"
)

const defaultRemoteTimeout = 120 * time.Second

// remoteRuntime proxies inference to another depth server over HTTP.
// Model weights live on the remote side; local model ids pass through as
// form fields and the raw map comes back as an NPY body.
type remoteRuntime struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRemoteRuntime returns a runtime backed by a remote depth server.
// token, when set, is sent as a bearer credential; its value is opaque here.
func NewRemoteRuntime(baseURL, token string, timeout time.Duration) Runtime {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &remoteRuntime{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *remoteRuntime) Load(mdl types.Model) (Session, error) {
	if r.baseURL == "" {
		return nil, ErrModelUnavailable("remote runtime has no base URL")
	}
	s := &remoteSession{runtime: r, modelID: mdl.ID}
	if err := s.checkHealth(context.Background()); err != nil {
		return nil, ErrModelUnavailable(fmt.Sprintf("remote depth server %s: %v", r.baseURL, err))
	}
	return s, nil
}

type remoteSession struct {
	runtime *remoteRuntime
	modelID string
}

func (s *remoteSession) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.runtime.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	s.authorize(req)
	resp, err := s.runtime.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (s *remoteSession) authorize(req *http.Request) {
	if s.runtime.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.runtime.token)
	}
}

func (s *remoteSession) Run(ctx context.Context, img image.Image) (*depthmap.DepthMap, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "input.png")
	if err != nil {
		return nil, err
	}
	if err := imageio.EncodePNG(fw, img); err != nil {
		return nil, err
	}
	if s.modelID != "" {
		if err := mw.WriteField("model", s.modelID); err != nil {
			return nil, err
		}
	}
	// ask for the raw float map instead of a rendered image
	if err := mw.WriteField("format", "npy"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.runtime.baseURL+"/depth", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(req)
	resp, err := s.runtime.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote inference: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, modelNotFoundError{id: s.modelID}
	case http.StatusTooManyRequests:
		return nil, tooBusyError{modelID: s.modelID}
	case http.StatusServiceUnavailable:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, ErrModelUnavailable(fmt.Sprintf("remote depth server: %s", strings.TrimSpace(string(msg))))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote inference status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	dm, err := depthmap.ReadNPY(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote inference: %w", err)
	}
	return dm, nil
}

func (s *remoteSession) Close() error { return nil }
