package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	errs "insightminer/pkg/errors"
)

// LoginResult carries the credential bundle produced by a successful login
type LoginResult struct {
	UserID  string
	Cookies map[string]string
}

// loginResponse is the upstream login response shape
type loginResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          bool   `json:"user"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	CheckpointURL string `json:"checkpoint_url"`
	TwoFactor     bool   `json:"two_factor_required"`
}

// Login performs a fresh web login and returns the resulting cookie bundle.
// Error mapping: an upstream challenge demand surfaces as a challenge-class
// error, login throttling as rate_limit, and a wrong password as auth.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	loginClient := &http.Client{
		Timeout: c.httpClient.Timeout,
		Jar:     jar,
	}

	base := c.WebBaseURL()

	// Prime the csrftoken cookie with a plain page load
	csrfToken, err := c.primeCSRF(ctx, loginClient, base)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+LoginEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("failed to create login request: %v", err), 0)
	}

	req.Header.Set("User-Agent", c.Header("User-Agent"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrfToken)
	req.Header.Set("X-IG-App-ID", WebAppID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", base+"/accounts/login/")

	resp, err := loginClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("login request failed: %v", err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("failed to read login response: %v", err), resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.New(errs.ErrorTypeRateLimit, "login rate limited", resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, errs.New(errs.ErrorTypeAuth, fmt.Sprintf("unexpected login response (status %d)", resp.StatusCode), resp.StatusCode)
	}

	if err := classifyLoginFailure(&loginResp, resp.StatusCode); err != nil {
		return nil, err
	}

	cookies := make(map[string]string)
	if u, err := url.Parse(base); err == nil {
		for _, cookie := range jar.Cookies(u) {
			cookies[cookie.Name] = cookie.Value
		}
	}
	for _, cookie := range resp.Cookies() {
		cookies[cookie.Name] = cookie.Value
	}

	if cookies["sessionid"] == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "login reported success but no session cookie was issued", resp.StatusCode)
	}

	c.logger.InfoWithFields("login succeeded", map[string]interface{}{
		"username": username,
	})

	return &LoginResult{
		UserID:  loginResp.UserID,
		Cookies: cookies,
	}, nil
}

// classifyLoginFailure maps an unsuccessful login response to the error
// taxonomy
func classifyLoginFailure(resp *loginResponse, statusCode int) error {
	if resp.Authenticated {
		return nil
	}

	message := strings.ToLower(resp.Message)

	switch {
	case resp.CheckpointURL != "" || strings.Contains(message, "challenge"):
		return errs.New(errs.ErrorTypeChallenge, "login challenge required, manual intervention needed", statusCode)
	case resp.TwoFactor:
		return errs.New(errs.ErrorTypeChallenge, "two-factor verification required", statusCode)
	case strings.Contains(message, "rate") || statusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "login rate limited", statusCode)
	case strings.Contains(message, "password") || resp.User:
		return errs.New(errs.ErrorTypeAuth, "invalid credentials", statusCode)
	default:
		return errs.New(errs.ErrorTypeAuth, "login failed", statusCode)
	}
}

// primeCSRF loads the login page to obtain a csrftoken cookie
func (c *Client) primeCSRF(ctx context.Context, client *http.Client, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/accounts/login/", nil)
	if err != nil {
		return "", errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}
	req.Header.Set("User-Agent", c.Header("User-Agent"))

	resp, err := client.Do(req)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, fmt.Sprintf("failed to load login page: %v", err), 0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if u, err := url.Parse(base); err == nil {
		for _, cookie := range client.Jar.Cookies(u) {
			if cookie.Name == "csrftoken" {
				return cookie.Value, nil
			}
		}
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" {
			return cookie.Value, nil
		}
	}

	// Some deployments issue the token on the login POST instead
	return "missing", nil
}

// VerifySession performs the cheap timeline probe that confirms the active
// session is still accepted upstream
func (c *Client) VerifySession(ctx context.Context) error {
	resp, err := c.Get(ctx, c.APIURL()+TimelineEndpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, "session no longer accepted", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "session probe rate limited", resp.StatusCode)
	default:
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("session probe returned status %d", resp.StatusCode), resp.StatusCode)
	}
}
