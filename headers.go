package main

import (
	"io"
	"sort"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// PseudoHeaderOrder is the HTTP/2 pseudo-header order for all requests.
var PseudoHeaderOrder = chrome143PseudoHeaderOrder

const (
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	defaultAcceptLanguage = "en-US,en;q=0.5"
	defaultAcceptEncoding = "gzip, deflate, br"
)

// headerField is a single name/value pair; names are stored lowercase.
type headerField struct {
	name  string
	value string
}

// defaultHeaders returns the browser header set in wire order.
func defaultHeaders(profile *BrowserProfile, clientHints bool) []headerField {
	fields := []headerField{
		{"user-agent", profile.UserAgent},
		{"accept", defaultAccept},
		{"accept-language", defaultAcceptLanguage},
		{"accept-encoding", defaultAcceptEncoding},
		{"connection", "keep-alive"},
		{"upgrade-insecure-requests", "1"},
	}
	if clientHints && profile.SecChUa != "" {
		fields = append(fields,
			headerField{"sec-ch-ua", profile.SecChUa},
			headerField{"sec-ch-ua-mobile", profile.Mobile},
			headerField{"sec-ch-ua-platform", profile.Platform},
		)
	}
	return fields
}

// mergeHeaders overlays the caller's headers on the defaults. Names match
// case-insensitively and a caller value replaces the default in place, keeping
// its position. Headers the defaults don't know are appended in sorted order.
func mergeHeaders(defaults []headerField, custom map[string]string) http.Header {
	overrides := make(map[string]string, len(custom))
	for k, v := range custom {
		overrides[strings.ToLower(strings.TrimSpace(k))] = v
	}

	header := make(http.Header, len(defaults)+len(overrides)+2)
	order := make([]string, 0, len(defaults)+len(overrides))

	for _, f := range defaults {
		value := f.value
		if v, ok := overrides[f.name]; ok {
			value = v
			delete(overrides, f.name)
		}
		header[f.name] = []string{value}
		order = append(order, f.name)
	}

	extra := make([]string, 0, len(overrides))
	for name := range overrides {
		if name == "" {
			continue
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		header[name] = []string{overrides[name]}
		order = append(order, name)
	}

	header[http.HeaderOrderKey] = order
	header[http.PHeaderOrderKey] = PseudoHeaderOrder
	return header
}

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}
