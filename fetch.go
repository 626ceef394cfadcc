package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// Doer is the part of tls_client.HttpClient that Fetcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// proxySetter is implemented by tls_client.HttpClient.
type proxySetter interface {
	SetProxy(proxyURL string) error
}

// FetchOptions describes the outgoing request. Headers override the browser
// defaults, matched case-insensitively.
type FetchOptions struct {
	Method  string
	Headers map[string]string
	Body    []byte
}

// Response is the final response of a fetch, with its body already read.
type Response struct {
	StatusCode int
	Header     http.Header
	// URL is the URL that produced this response, after any redirects.
	URL string
	// Redirected is true when at least one redirect was followed.
	Redirected bool
	// Redirects lists each URL that answered with a redirect, in order.
	Redirects []string
	// Challenge is set when the body is an anti-bot challenge page.
	Challenge Challenge

	body []byte
}

// Text returns the decompressed response body.
func (r *Response) Text() string {
	return string(r.body)
}

// Bytes returns the decompressed response body.
func (r *Response) Bytes() []byte {
	return r.body
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher sends browser-like requests and walks redirect chains.
type Fetcher struct {
	client       Doer
	profile      *BrowserProfile
	logger       Logger
	maxRedirects int
	clientHints  bool
	proxyManager *ProxyManager
	proxyRetries int
}

// NewFetcher creates a fetcher over client using profile for the default headers.
func NewFetcher(client Doer, profile *BrowserProfile, logger Logger) *Fetcher {
	if profile == nil {
		profile = DefaultProfile
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Fetcher{
		client:       client,
		profile:      profile,
		logger:       logger,
		maxRedirects: defaultMaxRedirects,
	}
}

// SetMaxRedirects sets the redirect hop limit. Zero returns redirect responses unfollowed.
func (f *Fetcher) SetMaxRedirects(n int) {
	if n < 0 {
		n = 0
	}
	f.maxRedirects = n
}

// SetClientHints toggles sending sec-ch-ua headers from the profile.
func (f *Fetcher) SetClientHints(enabled bool) {
	f.clientHints = enabled
}

// SetProxyManager enables proxy rotation: a retryable network error switches the
// client to the next proxy and resends the request, up to retries times.
func (f *Fetcher) SetProxyManager(pm *ProxyManager, retries int) {
	f.proxyManager = pm
	f.proxyRetries = retries
}

// RotateProxy switches the client to the next proxy, keeping its cookie jar.
// Returns true if rotation succeeded.
func (f *Fetcher) RotateProxy() bool {
	if f.proxyManager == nil {
		return false
	}
	setter, ok := f.client.(proxySetter)
	if !ok {
		return false
	}

	newProxy, display := f.proxyManager.Rotate()
	if err := setter.SetProxy(newProxy); err != nil {
		f.logger.Warn("Failed to set new proxy: %v", err)
		return false
	}
	f.logger.Log("Rotated proxy: %s", display)
	return true
}

// Fetch requests targetURL with the browser header set and follows redirects
// until a non-redirect response or a challenge page is reached. Challenge pages
// are returned as-is with Response.Challenge set; they are not an error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, opts FetchOptions) (*Response, error) {
	logger := &prefixLogger{id: newShortID(), base: f.logger}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}
	body := opts.Body
	current := targetURL
	var redirects []string

	for {
		resp, err := f.doWithRotation(ctx, logger, method, current, opts.Headers, body)
		if err != nil {
			return nil, err
		}
		resp.Redirects = redirects
		resp.Redirected = len(redirects) > 0

		if resp.Challenge.Detected() {
			logger.Warn("%s challenge detected at %s", resp.Challenge.Kind, current)
			return resp, nil
		}

		next, ok := redirectLocation(current, resp.StatusCode, resp.Header)
		if !ok || f.maxRedirects == 0 {
			return resp, nil
		}
		if len(redirects) >= f.maxRedirects {
			return nil, fmt.Errorf("%s %s: %w (max %d)", method, targetURL, ErrTooManyRedirects, f.maxRedirects)
		}

		logger.Log("Following redirect to: %s", next)
		redirects = append(redirects, current)
		method, body = redirectMethod(resp.StatusCode, method, body)
		current = next
	}
}

// doWithRotation sends one hop, rotating proxies on retryable network errors
// when a proxy manager is configured.
func (f *Fetcher) doWithRotation(ctx context.Context, logger Logger, method, target string, headers map[string]string, body []byte) (*Response, error) {
	resp, err := f.doHop(ctx, logger, method, target, headers, body)
	for attempt := 1; err != nil && attempt <= f.proxyRetries; attempt++ {
		if !IsRetryableError(err) {
			break
		}
		logger.Warn("Connection error, rotating proxy (attempt %d/%d): %v", attempt, f.proxyRetries, err)
		if !f.RotateProxy() {
			return nil, fmt.Errorf("failed to rotate proxy: %w", err)
		}
		resp, err = f.doHop(ctx, logger, method, target, headers, body)
	}
	return resp, err
}

// doHop executes a single request and reads the whole body.
func (f *Fetcher) doHop(ctx context.Context, logger Logger, method, target string, headers map[string]string, body []byte) (*Response, error) {
	req, err := f.newRequest(ctx, method, target, headers, body)
	if err != nil {
		return nil, &FetchError{Method: method, URL: target, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Debug("%s %s -> error: %v", method, target, err)
		return nil, &FetchError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()
	logger.Debug("%s %s -> %d", method, target, resp.StatusCode)

	data, err := readResponseBody(resp)
	if err != nil {
		return nil, &FetchError{Method: method, URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        target,
		Challenge:  DetectChallenge(target, resp, string(data)),
		body:       data,
	}, nil
}

func (f *Fetcher) newRequest(ctx context.Context, method, target string, headers map[string]string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header = mergeHeaders(defaultHeaders(f.profile, f.clientHints), headers)
	return req, nil
}
