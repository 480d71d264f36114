package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// Client wraps http.Client with base URL joining. Requests are sent exactly
// once.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Request describes a single outbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// NewClient creates a Client for the provided base URL. The base may carry a
// path prefix such as /api/trpc; request paths are appended to it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL builds the absolute URL for path and query without sending anything.
func (c *Client) URL(path string, q url.Values) string {
	return c.buildURL(path, q)
}

// Do executes the provided request and returns the response. Responses with a
// status of 400 or above are returned together with an *HTTPError so callers
// that understand the error body can still decode it.
//
// A gzip body is decompressed even when the caller set Accept-Encoding itself,
// which stops net/http from doing it.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, []byte, error) {
	if req == nil {
		return nil, nil, errors.New("httpx: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		return nil, nil, errors.New("httpx: HTTP method is required")
	}

	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return nil, nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}

	data, err := readBody(resp)
	if err != nil {
		return resp, nil, fmt.Errorf("httpx: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp, data, newHTTPError(resp, data)
	}
	return resp, data, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.Uncompressed || !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return ReadAllAndClose(resp.Body)
	}
	defer resp.Body.Close()
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (c *Client) buildURL(path string, q url.Values) string {
	u := *c.baseURL
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + path
		u.RawPath = ""
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
