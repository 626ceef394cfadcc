package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	http "github.com/bogdanfinn/fhttp"
)

// fakeRoute is a canned response for one URL.
type fakeRoute struct {
	status int
	header http.Header
	body   string
}

// fakeDoer serves canned responses keyed by request URL and records every request.
type fakeDoer struct {
	mu       sync.Mutex
	routes   map[string]fakeRoute
	requests []*http.Request
	bodies   []string

	// failures makes the first n calls fail with failErr.
	failures int
	failErr  error
	proxies  []string
}

func newFakeDoer(routes map[string]fakeRoute) *fakeDoer {
	return &fakeDoer{routes: routes}
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := ""
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, body)

	if d.failures > 0 {
		d.failures--
		err := d.failErr
		if err == nil {
			err = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
		}
		return nil, err
	}

	route, ok := d.routes[req.URL.String()]
	if !ok {
		route = fakeRoute{status: http.StatusNotFound, body: "not found"}
	}
	header := http.Header{}
	for k, v := range route.header {
		header[k] = append([]string(nil), v...)
	}
	return &http.Response{
		StatusCode: route.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(route.body)),
		Request:    req,
	}, nil
}

func (d *fakeDoer) SetProxy(proxyURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proxies = append(d.proxies, proxyURL)
	return nil
}

func (d *fakeDoer) requestURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	urls := make([]string, len(d.requests))
	for i, r := range d.requests {
		urls[i] = r.Method + " " + r.URL.String()
	}
	return urls
}

func redirectTo(status int, location string) fakeRoute {
	return fakeRoute{status: status, header: http.Header{"Location": {location}}}
}

// recordingLogger keeps formatted log lines, and the level of each, for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	lines  []string
	levels []string
}

func (r *recordingLogger) record(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
	r.levels = append(r.levels, level)
}

func (r *recordingLogger) Log(format string, args ...any)   { r.record("info", format, args...) }
func (r *recordingLogger) Debug(format string, args ...any) { r.record("debug", format, args...) }
func (r *recordingLogger) Warn(format string, args ...any)  { r.record("warn", format, args...) }

// levelOf returns the level of the first line containing substr.
func (r *recordingLogger) levelOf(substr string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.lines {
		if strings.Contains(l, substr) {
			return r.levels[i]
		}
	}
	return ""
}

func (r *recordingLogger) count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}
