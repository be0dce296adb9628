package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"redcode-api/internal/auth"
	"redcode-api/internal/cache"
)

// ErrLookupFailed is returned when no image could be resolved for an asset.
var ErrLookupFailed = errors.New("image lookup failed")

const maxImageBytes = 5 << 20

// Config holds image lookup API settings.
type Config struct {
	// BaseURL is the lookup endpoint; the asset id is sent as ?assetId=.
	BaseURL string
	// Secret signs the {role} bearer token sent to the API.
	Secret []byte
	// Role is the role claim of the bearer token.
	Role     string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client resolves Roblox asset ids to image URLs through the lookup API,
// caching successful answers.
type Client struct {
	http    *http.Client
	baseURL string
	secret  []byte
	role    string
	cache   cache.Cache
	ttl     time.Duration
}

// NewClient creates a lookup client. c may be nil to disable caching.
func NewClient(cfg Config, c cache.Cache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Role == "" {
		cfg.Role = "user"
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		secret:  cfg.Secret,
		role:    cfg.Role,
		cache:   c,
		ttl:     cfg.CacheTTL,
	}
}

type lookupResponse struct {
	ImageURL string `json:"imageUrl"`
	URL      string `json:"url"`
}

// ResolveImage returns the image URL for an asset id.
func (c *Client) ResolveImage(ctx context.Context, assetID string) (string, error) {
	if assetID == "" {
		return "", fmt.Errorf("%w: empty asset id", ErrLookupFailed)
	}
	if c.cache == nil {
		return c.lookup(ctx, assetID)
	}

	data, err := c.cache.GetOrSet(ctx, "thumbnail:"+assetID, c.ttl, func() ([]byte, error) {
		u, err := c.lookup(ctx, assetID)
		return []byte(u), err
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) lookup(ctx context.Context, assetID string) (string, error) {
	token, err := auth.GenerateRoleToken(c.role, c.secret, time.Hour)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrLookupFailed, err)
	}

	endpoint := c.baseURL + "?assetId=" + url.QueryEscape(assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrLookupFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: asset %s: status %d", ErrLookupFailed, assetID, resp.StatusCode)
	}

	imageURL := parseLookup(body)
	if imageURL == "" {
		return "", fmt.Errorf("%w: asset %s: no image url in response", ErrLookupFailed, assetID)
	}
	return imageURL, nil
}

// parseLookup accepts {imageUrl}, {url} or a bare string body.
func parseLookup(body []byte) string {
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.ImageURL != "" {
			return resp.ImageURL
		}
		return resp.URL
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return text
	}
	return ""
}

// FetchImage resolves an asset and downloads the image bytes.
func (c *Client) FetchImage(ctx context.Context, assetID string) ([]byte, string, error) {
	imageURL, err := c.ResolveImage(ctx, assetID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: image %s: status %d", ErrLookupFailed, imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read image: %v", ErrLookupFailed, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
