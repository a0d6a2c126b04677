package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	errs "insightminer/pkg/errors"
	"insightminer/pkg/logger"
)

// Client is an authenticated Instagram API client. Session state (cookies
// and client-fingerprint headers) is applied by the session manager; the
// client itself only knows how to speak HTTP with that state attached.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cookies    map[string]string
	baseURL    string
	apiBaseURL string
	logger     logger.Logger
	mu         sync.RWMutex
}

// NewClient creates a new Instagram API client
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     WebAppID,
		},
		cookies:    make(map[string]string),
		baseURL:    BaseURL,
		apiBaseURL: APIBaseURL,
		logger:     log,
	}
}

// SetBaseURLs overrides the upstream base URLs. Used by tests to point the
// client at a local server.
func (c *Client) SetBaseURLs(baseURL, apiBaseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
	c.apiBaseURL = apiBaseURL
}

// BaseURL returns the configured web base URL
func (c *Client) WebBaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// APIURL returns the configured API base URL
func (c *Client) APIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiBaseURL
}

// MediaInfoURL constructs the metadata-by-id URL against the configured base
func (c *Client) MediaInfoURL(pk string) string {
	return c.APIURL() + fmt.Sprintf(MediaInfoEndpoint, pk)
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, value := range headers {
		c.headers[key] = value
	}
}

// Header returns a configured header value
func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[key]
}

// SetCookies replaces the session cookies sent with every request
func (c *Client) SetCookies(cookies map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = make(map[string]string, len(cookies))
	for k, v := range cookies {
		c.cookies[k] = v
	}
}

// Cookie returns a session cookie value
func (c *Client) Cookie(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookies[name]
}

// cookieHeader renders the session cookies as a Cookie header value
func (c *Client) cookieHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.cookies) == 0 {
		return ""
	}

	var parts []string
	for name, value := range c.cookies {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, "; ")
}

// doRequest performs an HTTP request with the configured headers and cookies
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	c.mu.RLock()
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.mu.RUnlock()

	if cookie := c.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("network error: %v", err), 0)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.New(errs.ErrorTypeValidation, fmt.Sprintf("malformed response payload: %v", err), resp.StatusCode)
	}

	return nil
}

// checkResponseStatus maps HTTP response statuses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeAuth, "authentication required", resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("access forbidden", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypePrivate, "content is private or access denied", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeNotFound, "media not found", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded", resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeServerError, fmt.Sprintf("server returned status %d", resp.StatusCode), resp.StatusCode)
	default:
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), resp.StatusCode)
	}
}

// FetchMediaInfo fetches structured metadata for a media primary key. The
// typed parse is strict: a payload that decodes but fails validation is
// reported as a validation-class error so the caller can fall back to
// reconstruction.
func (c *Client) FetchMediaInfo(ctx context.Context, pk string) (*MediaItem, error) {
	url := c.MediaInfoURL(pk)

	c.logger.DebugWithFields("fetching media info", map[string]interface{}{
		"media_pk": pk,
		"url":      url,
	})

	var response MediaInfoResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	if len(response.Items) == 0 {
		return nil, errs.New(errs.ErrorTypeValidation, "media info response contains no items", 200)
	}

	item := &response.Items[0]
	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}
