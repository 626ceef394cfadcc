package main

import (
	"net/url"

	http "github.com/bogdanfinn/fhttp"
)

// defaultMaxRedirects matches net/http's client limit.
const defaultMaxRedirects = 10

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectLocation returns the absolute redirect target of resp, resolved against
// the URL that produced it. ok is false when resp is not a usable redirect.
func redirectLocation(currentURL string, statusCode int, header http.Header) (string, bool) {
	if !isRedirectStatus(statusCode) {
		return "", false
	}
	location := header.Get("Location")
	if location == "" {
		return "", false
	}
	base, err := url.Parse(currentURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// redirectMethod applies browser semantics: 303 always becomes GET (HEAD stays
// HEAD), 301/302 turn POST into GET, and 307/308 keep method and body.
func redirectMethod(statusCode int, method string, body []byte) (string, []byte) {
	switch statusCode {
	case http.StatusSeeOther:
		if method == http.MethodHead {
			return method, nil
		}
		return http.MethodGet, nil
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, nil
		}
	}
	return method, body
}
