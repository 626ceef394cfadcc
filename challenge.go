package main

import (
	"net/url"
	"strings"

	"github.com/Hyper-Solutions/hyper-sdk-go/v2/datadome"
	"github.com/Hyper-Solutions/hyper-sdk-go/v2/incapsula"
	http "github.com/bogdanfinn/fhttp"
)

// ChallengeKind names the anti-bot system whose challenge page was served.
type ChallengeKind string

const (
	ChallengeNone                 ChallengeKind = ""
	ChallengeCloudflare           ChallengeKind = "cloudflare"
	ChallengeReese84              ChallengeKind = "reese84"
	ChallengeIncapsulaQueue       ChallengeKind = "incapsula-queue"
	ChallengeDataDomeInterstitial ChallengeKind = "datadome-interstitial"
	ChallengeDataDomeSlider       ChallengeKind = "datadome-slider"
	ChallengeDataDomeBlock        ChallengeKind = "datadome-block"
)

func (k ChallengeKind) String() string {
	if k == ChallengeNone {
		return "none"
	}
	return string(k)
}

// Challenge describes a detected challenge page. Detail fields are filled only
// when the page could be parsed; nothing here is ever solved or submitted.
type Challenge struct {
	Kind ChallengeKind

	// ScriptURL is the Reese84 challenge script.
	ScriptURL string
	// DeviceLink is the DataDome device check URL.
	DeviceLink string
}

// Detected reports whether any challenge was found.
func (c Challenge) Detected() bool {
	return c.Kind != ChallengeNone
}

// cloudflareMarkers are matched case-sensitively, as served by Cloudflare.
var cloudflareMarkers = []string{
	"challenge-form",
	"Cloudflare",
	"cf-chl-bypass",
}

// IsCloudflareChallenge reports a 503 or 429 whose body carries a Cloudflare challenge marker.
func IsCloudflareChallenge(statusCode int, body string) bool {
	if statusCode != http.StatusServiceUnavailable && statusCode != http.StatusTooManyRequests {
		return false
	}
	for _, marker := range cloudflareMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// IsReese84Challenge checks if the response body contains a Reese84 challenge.
func IsReese84Challenge(body string) bool {
	return strings.Contains(body, "Pardon Our Interruption")
}

func IsIncapsulaQueue(body string) bool {
	return strings.Contains(body, "Incapsula_Resource")
}

func IsDataDomeInterstitial(statusCode int, body string) bool {
	return statusCode == http.StatusForbidden && strings.Contains(body, "ct.captcha-delivery.com/i.js")
}

func IsDataDomeSlider(statusCode int, body string) bool {
	return statusCode == http.StatusForbidden && strings.Contains(body, "ct.captcha-delivery.com/c.js")
}

// IsDataDomeFingerprintBlock detects blocks with 't':'fe' (fingerprint enforcement).
func IsDataDomeFingerprintBlock(statusCode int, body string) bool {
	return statusCode == http.StatusForbidden && strings.Contains(body, "var dd=") && strings.Contains(body, "'t':'fe'")
}

// DetectChallenge inspects a response for known challenge pages. Cloudflare is
// checked first; Reese84 can appear on any status code, DataDome only on 403.
func DetectChallenge(pageURL string, resp *http.Response, body string) Challenge {
	switch {
	case IsCloudflareChallenge(resp.StatusCode, body):
		return Challenge{Kind: ChallengeCloudflare}
	case IsReese84Challenge(body):
		return Challenge{Kind: ChallengeReese84, ScriptURL: reese84ScriptURL(pageURL, body)}
	case IsIncapsulaQueue(body):
		return Challenge{Kind: ChallengeIncapsulaQueue}
	case IsDataDomeInterstitial(resp.StatusCode, body):
		return Challenge{Kind: ChallengeDataDomeInterstitial, DeviceLink: dataDomeDeviceLink(pageURL, resp, body)}
	case IsDataDomeSlider(resp.StatusCode, body):
		return Challenge{Kind: ChallengeDataDomeSlider}
	case IsDataDomeFingerprintBlock(resp.StatusCode, body):
		return Challenge{Kind: ChallengeDataDomeBlock}
	}
	return Challenge{Kind: ChallengeNone}
}

// reese84ScriptURL resolves the dynamic Reese84 script path against the page origin.
func reese84ScriptURL(pageURL, body string) string {
	_, scriptPath, err := incapsula.ParseDynamicReeseScript(strings.NewReader(body), pageURL)
	if err != nil || scriptPath == "" {
		return ""
	}
	origin := getOrigin(pageURL)
	if origin == "" {
		return ""
	}
	return origin + scriptPath
}

// dataDomeDeviceLink needs the datadome cookie set alongside the interstitial.
func dataDomeDeviceLink(pageURL string, resp *http.Response, body string) string {
	cookie := ""
	for _, c := range resp.Cookies() {
		if c.Name == "datadome" {
			cookie = c.Value
			break
		}
	}
	if cookie == "" {
		return ""
	}
	link, err := datadome.ParseInterstitialDeviceCheckLink(strings.NewReader(body), cookie, pageURL)
	if err != nil {
		return ""
	}
	return link
}

// getOrigin extracts the origin (scheme + host) from a URL.
func getOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
