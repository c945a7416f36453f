package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// DefaultOEmbedEndpoint is YouTube's public oEmbed endpoint
	DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"
	// DefaultLookupTimeout bounds a single title request
	DefaultLookupTimeout = 5 * time.Second

	maxOEmbedBody = 1 << 20
)

// ErrLookupStatus is returned when the endpoint answers with a non-success status
var ErrLookupStatus = errors.New("title lookup returned non-success status")

// OEmbedClient looks up video titles through an oEmbed endpoint
type OEmbedClient struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// NewOEmbedClient creates a client for endpoint. Zero values select the defaults.
func NewOEmbedClient(endpoint string, timeout time.Duration) *OEmbedClient {
	if endpoint == "" {
		endpoint = DefaultOEmbedEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &OEmbedClient{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
	}
}

// Title fetches the title of the video at videoURL
func (c *OEmbedClient) Title(ctx context.Context, videoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build title request: %w", err)
	}
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch title: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrLookupStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOEmbedBody))
	if err != nil {
		return "", fmt.Errorf("failed to read title response: %w", err)
	}

	var data oembedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse title response: %w", err)
	}

	return data.Title, nil
}
