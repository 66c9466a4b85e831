package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fodsense/fod-gateway/internal/models"
)

// StatusError is a non-success response from the AI service. The status
// code and body are preserved so callers can relay them.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai service returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the external inference service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the AI service at baseURL. A nil httpClient
// gets a pooled default with a 30-second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// detectURL builds the detect endpoint URL, appending conf and imgsz
// query parameters only when the caller supplied them.
func (c *Client) detectURL(conf *float64, imgsz *int) string {
	u := c.baseURL + "/v1/detect"
	q := url.Values{}
	if conf != nil {
		q.Set("conf", strconv.FormatFloat(*conf, 'g', -1, 64))
	}
	if imgsz != nil {
		q.Set("imgsz", strconv.Itoa(*imgsz))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Detect uploads one image to the detect endpoint and returns both the
// verbatim response body (for relaying) and the parsed result (for
// persistence). A non-success status comes back as a *StatusError.
func (c *Client) Detect(ctx context.Context, image []byte, filename string, conf *float64, imgsz *int) ([]byte, *models.DetectResult, error) {
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.detectURL(conf, imgsz), &form)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result models.DetectResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse ai response: %w", err)
	}

	return body, &result, nil
}

// Health relays the AI service liveness probe body.
func (c *Client) Health(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/health")
}

// Ready relays the AI service readiness probe body.
func (c *Client) Ready(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/ready")
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
