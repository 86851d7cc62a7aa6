package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kimhaegyeong/ai-webtoon/internal/config"
)

// ImageGenerator renders a single panel image from scene metadata, with an
// optional reference image for visual continuity.
type ImageGenerator interface {
	GeneratePanelImage(ctx context.Context, req ImageRequest) (ImageResult, error)
}

type httpImageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	timeout time.Duration
}

// NewImageGenerator builds the HTTP image generation client from config.
func NewImageGenerator(cfg config.Config) (ImageGenerator, error) {
	if cfg.ImageAPIBaseURL == "" {
		return nil, errors.New("IMAGE_API_BASE_URL is not set")
	}
	timeout := time.Duration(cfg.ImageTimeoutSeconds) * time.Second
	return &httpImageClient{
		baseURL: strings.TrimSuffix(cfg.ImageAPIBaseURL, "/"),
		apiKey:  cfg.ImageAPIKey,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}, nil
}

type imageAPIRequest struct {
	Prompt         string `json:"prompt"`
	Ratio          string `json:"ratio"`
	ReferenceImage string `json:"referenceImageBase64,omitempty"`
}

type imageAPIResponse struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

func (c *httpImageClient) GeneratePanelImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	payload := imageAPIRequest{
		Prompt: BuildImagePrompt(req),
		Ratio:  "3:4",
	}
	if len(req.ReferenceImage) > 0 {
		payload.ReferenceImage = base64.StdEncoding.EncodeToString(req.ReferenceImage)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to build image request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return ImageResult{}, ErrTimeout
		}
		return ImageResult{}, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImageResult{}, fmt.Errorf("failed to read image response: %w", err)
	}

	var parsed imageAPIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ImageResult{}, fmt.Errorf("image service returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if parsed.Code == "CONTENT_FILTER" {
		return ImageResult{}, ErrContentFilter
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ImageResult{}, fmt.Errorf("image service returned status %d: %s", resp.StatusCode, parsed.Error)
	}
	if parsed.ImageBase64 == "" {
		return ImageResult{}, errors.New("image service returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.ImageBase64)
	if err != nil {
		return ImageResult{}, fmt.Errorf("image service returned invalid image data: %w", err)
	}
	mimeType := parsed.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return ImageResult{Data: data, MimeType: mimeType}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
