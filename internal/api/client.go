// Package api implements the HTTP client for the storefront API. It only
// handles transport concerns: request building, bearer auth, and normalizing
// failures into domain.APIError values carrying the server's error code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-client/internal/domain"
)

// Options carries the optional pieces of a request.
type Options struct {
	Token string
	Query url.Values
	Body  interface{}
}

// Client issues requests against a single storefront API base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New builds a Client. The timeout bounds the whole request including body
// read; a timeout surfaces as NETWORK_ERROR like any other transport failure.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, opts)
}

// Post issues a POST request with a JSON body when opts.Body is set.
func (c *Client) Post(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, opts)
}

// Patch issues a PATCH request with a JSON body when opts.Body is set.
func (c *Client) Patch(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, opts)
}

func (c *Client) do(ctx context.Context, method, path string, opts Options) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(opts.Query) > 0 {
		reqURL += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("%s %s: %v", method, path, err)
		}
		return nil, domain.NewAPIError(domain.CodeNetworkError, 0)
	}
	defer resp.Body.Close()

	data := readJSONSafely(resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	code := domain.CodeRequestFailed
	if len(data) > 0 {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			code = errBody.Error
		}
	}
	return nil, domain.NewAPIError(code, resp.StatusCode)
}

// readJSONSafely returns the response body when it is declared JSON and
// parses, nil otherwise. Empty 204-style responses come back as nil.
func readJSONSafely(resp *http.Response) json.RawMessage {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil || len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return nil
	}
	return raw
}
