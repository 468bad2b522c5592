package audd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the production recognition endpoint.
const DefaultBaseURL = "https://api.audd.io/"

// Song carries the recognition metadata the organizer consumes.
type Song struct {
	Artist string
	Title  string
	Album  string
	Score  float64
}

// Recognizer defines the recognition operation used by identification.
type Recognizer interface {
	Recognize(ctx context.Context, clipPath string) (*Song, error)
}

// Client submits audio clips to the AudD recognition service.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

var _ Recognizer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an AudD client.
func New(apiToken, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiToken = strings.TrimSpace(apiToken)
	if apiToken == "" {
		return nil, errors.New("audd api token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		apiToken:   apiToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type response struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

type resultPayload struct {
	Artist     string  `json:"artist"`
	Title      string  `json:"title"`
	Album      string  `json:"album"`
	Score      float64 `json:"score"`
	AppleMusic struct {
		AlbumName string `json:"albumName"`
	} `json:"apple_music"`
	Spotify struct {
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
	} `json:"spotify"`
}

// Recognize uploads the clip and returns song metadata. A successful API
// response with a null result means the service did not recognize the clip
// and is reported as ErrNoMatch. Service error codes are translated through
// the classification table in codes.go.
func (c *Client) Recognize(ctx context.Context, clipPath string) (*Song, error) {
	clip, err := os.Open(clipPath)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer clip.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("api_token", c.apiToken); err != nil {
		return nil, fmt.Errorf("write api_token field: %w", err)
	}
	if err := writer.WriteField("return", "apple_music,spotify"); err != nil {
		return nil, fmt.Errorf("write return field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(clipPath))
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, clip); err != nil {
		return nil, fmt.Errorf("copy clip into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyCode(resp.StatusCode, "")
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read recognition response: %w", err)
	}
	var parsed response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse recognition response: %w", err)
	}

	if parsed.Status != "success" {
		if parsed.Error != nil {
			return nil, classifyCode(parsed.Error.Code, parsed.Error.Message)
		}
		return nil, fmt.Errorf("recognition status %q", parsed.Status)
	}
	if len(parsed.Result) == 0 || string(parsed.Result) == "null" {
		return nil, ErrNoMatch
	}

	var result resultPayload
	if err := json.Unmarshal(parsed.Result, &result); err != nil {
		return nil, fmt.Errorf("parse recognition result: %w", err)
	}
	return &Song{
		Artist: strings.TrimSpace(result.Artist),
		Title:  strings.TrimSpace(result.Title),
		Album:  resolveAlbum(result),
		Score:  result.Score,
	}, nil
}

// resolveAlbum prefers streaming-catalog album names over the recognition
// result's own album field, which is frequently a compilation.
func resolveAlbum(result resultPayload) string {
	if name := strings.TrimSpace(result.AppleMusic.AlbumName); name != "" {
		return name
	}
	if name := strings.TrimSpace(result.Spotify.Album.Name); name != "" {
		return name
	}
	return strings.TrimSpace(result.Album)
}
