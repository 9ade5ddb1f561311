package opencart

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/opencart-qa/internal/model"
)

// Client is a thin HTTP client for the OpenCart REST API. It resolves
// paths against the configured base URL, sets the configured content
// types, and retries with exponential backoff on HTTP 429.
type Client struct {
	baseURL    *url.URL
	jsonType   string
	formType   string
	endpoints  *model.Endpoints
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a client from the rest_api and content_type sections.
// endpoints may be nil when only explicit paths are used.
func NewClient(
	api model.RestAPIConfig,
	contentTypes model.ContentTypeConfig,
	endpoints *model.Endpoints,
	logger *slog.Logger,
) (*Client, error) {
	if api.BaseURL == "" {
		return nil, errors.New("rest_api.base_url is required")
	}
	base, err := url.Parse(api.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing rest_api.base_url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rest_api.base_url %q must be an absolute URL", api.BaseURL)
	}

	timeout := time.Duration(api.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if api.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	jsonType := contentTypes.JSON
	if jsonType == "" {
		jsonType = "application/json"
	}
	formType := contentTypes.FormData
	if formType == "" {
		formType = "application/x-www-form-urlencoded"
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		jsonType:  jsonType,
		formType:  formType,
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxRetries: 3,
		logger:     logger,
	}, nil
}

// URL resolves path against the base URL with RFC 3986 reference
// resolution. Absolute URLs are returned unchanged.
func (c *Client) URL(path string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// Endpoint returns the catalogue path for method and name.
func (c *Client) Endpoint(method, name string) (string, error) {
	if c.endpoints == nil {
		return "", &model.MissingEndpointError{Method: strings.ToUpper(method), Name: name}
	}
	return c.endpoints.Resolve(method, name)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// GetWithAuth performs a GET request with the given Authorization value.
func (c *Client) GetWithAuth(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, token)
}

// PostJSON performs a POST request with payload encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := c.jsonBody(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, body, "")
}

// PostForm posts user_name and password as a form.
func (c *Client) PostForm(ctx context.Context, path, userName, password string) (*Response, error) {
	form := url.Values{}
	form.Set("user_name", userName)
	form.Set("password", password)
	return c.do(ctx, http.MethodPost, path, &requestBody{
		data:        []byte(form.Encode()),
		contentType: c.formType,
	}, "")
}

// PostWithAuth posts user_name and password as JSON with the given
// Authorization value.
func (c *Client) PostWithAuth(ctx context.Context, path, userName, password, token string) (*Response, error) {
	body, err := c.jsonBody(credentialsPayload{UserName: userName, Password: password})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, body, token)
}

// Put performs a PUT request with payload encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := c.jsonBody(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, path, body, "")
}

// Login posts the credentials to the login endpoint and returns the
// access token.
func (c *Client) Login(ctx context.Context, userName, password string) (string, error) {
	path, err := c.Endpoint(http.MethodPost, "login")
	if err != nil {
		return "", err
	}

	resp, err := c.PostJSON(ctx, path, credentialsPayload{UserName: userName, Password: password})
	if err != nil {
		return "", fmt.Errorf("login as %s: %w", userName, err)
	}

	var lr loginResponse
	if err := resp.JSON(&lr); err != nil {
		return "", fmt.Errorf("login as %s: %w", userName, err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("login as %s: response has no token", userName)
	}

	return lr.Token, nil
}

// SetPassword sends the new password to target, usually the link taken
// from the set-password email. The call only succeeds when the API
// confirms with PasswordUpdatedMessage.
func (c *Client) SetPassword(ctx context.Context, target, password string) error {
	resp, err := c.Put(ctx, target, passwordPayload{Password: password})
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}

	var m messageResponse
	if err := resp.JSON(&m); err != nil {
		return fmt.Errorf("setting password: %w", err)
	}
	if m.Message != PasswordUpdatedMessage {
		return fmt.Errorf("setting password: unexpected message %q", m.Message)
	}

	return nil
}

// UpdateEmailAddress asks the API to replace oldAddr with newAddr through
// the register endpoint.
func (c *Client) UpdateEmailAddress(ctx context.Context, oldAddr, newAddr string) error {
	path, err := c.Endpoint(http.MethodPost, "register")
	if err != nil {
		return err
	}

	if _, err := c.PostJSON(ctx, path, emailUpdatePayload{
		OldEmailAddress: oldAddr,
		NewEmailAddress: newAddr,
	}); err != nil {
		return fmt.Errorf("updating email %s to %s: %w", oldAddr, newAddr, err)
	}

	c.logger.Info("email address updated", "old", oldAddr, "new", newAddr)
	return nil
}

// IsLinkActive reports whether a GET on link answers 200. Other statuses
// are not errors; transport failures are.
func (c *Client) IsLinkActive(ctx context.Context, link string) (bool, error) {
	resp, err := c.Get(ctx, link)
	if err != nil {
		if IsAPIError(err) {
			return false, nil
		}
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// requestBody is an encoded request payload that can be replayed on retry.
type requestBody struct {
	data        []byte
	contentType string
}

func (c *Client) jsonBody(payload any) (*requestBody, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return &requestBody{data: data, contentType: c.jsonType}, nil
}

// do builds the request, handles rate limiting with exponential backoff,
// and reads the response. A non-2xx status returns both the Response and
// an *APIError.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body *requestBody,
	token string,
) (*Response, error) {
	target, err := c.URL(path)
	if err != nil {
		return nil, err
	}

	var (
		lastResp *Response
		lastErr  error
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body.data)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", body.contentType)
		} else {
			req.Header.Set("Content-Type", c.jsonType)
		}
		if token != "" {
			req.Header.Set("Authorization", token)
		}

		c.logger.Debug("api request", "method", method, "url", target, "attempt", attempt)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", method, target, err)
		}

		respBody, readErr := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       respBody,
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastResp = resp
			lastErr = newAPIError(method, target, resp.StatusCode, respBody)
			if attempt == c.maxRetries {
				break
			}

			wait := retryAfterDuration(httpResp, attempt)
			c.logger.Warn("rate limited", "method", method, "url", target, "wait", wait)

			select {
			case <-ctx.Done():
				return resp, ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		c.logger.Debug("api response", "method", method, "url", target, "status", resp.StatusCode)

		if !resp.OK() {
			return resp, newAPIError(method, target, resp.StatusCode, respBody)
		}

		return resp, nil
	}

	return lastResp, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
