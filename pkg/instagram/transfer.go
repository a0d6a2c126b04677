package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	errs "insightminer/pkg/errors"
)

// transferChunkSize bounds the copy buffer so memory stays constant
// regardless of file size
const transferChunkSize = 64 * 1024

// Transfer downloads content from a candidate URL into destPath using the
// active session's transport credentials. The response body is streamed to
// disk in bounded chunks; the returned count is the number of bytes written.
//
// Escalation ladder on non-2xx:
//   - 404: the signed URL has expired. Surfaced as a not_found error so the
//     caller can re-derive fresh candidates.
//   - 403: insufficient transport authentication. The session's browsing
//     state is refreshed with one extra round-trip, an expanded header set
//     is attached, and the transfer is retried once.
//   - anything else: fatal, no escalation.
func (c *Client) Transfer(ctx context.Context, url, destPath string) (int64, error) {
	written, status, err := c.transferOnce(ctx, url, destPath, nil)
	if err == nil {
		return written, nil
	}

	if status == http.StatusForbidden {
		c.logger.WarnWithFields("transfer forbidden, escalating auth context", map[string]interface{}{
			"url": url,
		})

		if refreshErr := c.refreshBrowsingState(ctx); refreshErr != nil {
			return 0, err
		}

		written, _, retryErr := c.transferOnce(ctx, url, destPath, c.expandedTransferHeaders())
		if retryErr == nil {
			return written, nil
		}
		return 0, retryErr
	}

	return 0, err
}

// transferOnce performs a single transfer attempt. extraHeaders, when
// non-nil, are layered on top of the base transfer header set.
func (c *Client) transferOnce(ctx context.Context, url, destPath string, extraHeaders map[string]string) (int64, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}

	for key, value := range c.transferHeaders() {
		req.Header.Set(key, value)
	}
	for key, value := range extraHeaders {
		req.Header.Set(key, value)
	}
	if cookie := c.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("transfer failed: %v", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, resp.StatusCode, c.transferStatusError(resp.StatusCode, url)
	}

	written, err := c.streamToFile(resp.Body, destPath)
	if err != nil {
		return 0, resp.StatusCode, err
	}

	c.logger.DebugWithFields("transfer completed", map[string]interface{}{
		"url":   url,
		"dest":  destPath,
		"bytes": written,
	})

	return written, resp.StatusCode, nil
}

// streamToFile copies the body to destPath in bounded chunks
func (c *Client) streamToFile(body io.Reader, destPath string) (int64, error) {
	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create destination directory: %w", err)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	buf := make([]byte, transferChunkSize)
	written, err := io.CopyBuffer(out, body, buf)
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return 0, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("transfer interrupted: %v", err), 0)
	}

	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to finalize destination file: %w", err)
	}

	return written, nil
}

// transferStatusError maps a transfer response status to a typed error
func (c *Client) transferStatusError(status int, url string) error {
	switch {
	case status == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "content URL expired", status)
	case status == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, "transfer forbidden", status)
	case status == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded during transfer", status)
	case status >= 500:
		return errs.New(errs.ErrorTypeServerError, fmt.Sprintf("server returned status %d", status), status)
	default:
		c.logger.WarnWithFields("transfer failed with unexpected status", map[string]interface{}{
			"status": status,
			"url":    url,
		})
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("transfer returned status %d", status), status)
	}
}

// transferHeaders builds the base header set for a content transfer. Values
// come from the active session so the transport fingerprint matches the
// client that authenticated.
func (c *Client) transferHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent":      c.Header("User-Agent"),
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         c.WebBaseURL() + "/",
		"Sec-Fetch-Dest":  "video",
		"Sec-Fetch-Mode":  "no-cors",
		"Sec-Fetch-Site":  "cross-site",
	}

	for _, key := range []string{"X-IG-App-ID", "X-Instagram-AJAX", "X-CSRFToken"} {
		if v := c.Header(key); v != "" {
			headers[key] = v
		}
	}

	return headers
}

// expandedTransferHeaders is the extra header set attached after a 403
func (c *Client) expandedTransferHeaders() map[string]string {
	return map[string]string{
		"Origin":             c.WebBaseURL(),
		"DNT":                "1",
		"sec-ch-ua":          `"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Linux"`,
	}
}

// refreshBrowsingState performs a lightweight round-trip against the web
// surface so the session picks up fresh browsing cookies before a retry
func (c *Client) refreshBrowsingState(ctx context.Context) error {
	resp, err := c.Get(ctx, c.WebBaseURL()+"/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Absorb any refreshed cookies handed back by the web surface
	refreshed := make(map[string]string)
	for _, cookie := range resp.Cookies() {
		refreshed[cookie.Name] = cookie.Value
	}
	if len(refreshed) > 0 {
		c.mu.Lock()
		for name, value := range refreshed {
			c.cookies[name] = value
		}
		c.mu.Unlock()
	}

	// Body content is irrelevant; drain it so the connection is reusable
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return nil
}
