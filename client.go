package main

import (
	"fmt"
	"sort"
	"strings"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

const defaultTimeoutSeconds = 30

// BrowserProfile bundles a TLS client profile with the headers the same browser build sends.
type BrowserProfile struct {
	Name       string
	TLSProfile profiles.ClientProfile
	UserAgent  string
	SecChUa    string
	Platform   string
	Mobile     string
}

const (
	Chrome131UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	Chrome131SecChUa   = `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`
)

// Chrome131Profile uses the preset shipped with tls-client.
var Chrome131Profile = &BrowserProfile{
	Name:       "chrome131",
	TLSProfile: profiles.Chrome_131,
	UserAgent:  Chrome131UserAgent,
	SecChUa:    Chrome131SecChUa,
	Platform:   `"Windows"`,
	Mobile:     "?0",
}

// DefaultProfile is used when no profile is configured.
// Set to Chrome143Profile in tls_chrome143.go.
var DefaultProfile = Chrome143Profile

var browserProfiles = map[string]*BrowserProfile{
	Chrome143Profile.Name: Chrome143Profile,
	Chrome131Profile.Name: Chrome131Profile,
}

// LookupProfile returns the named browser profile. An empty name selects DefaultProfile.
func LookupProfile(name string) (*BrowserProfile, error) {
	if name == "" {
		return DefaultProfile, nil
	}
	if p, ok := browserProfiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown browser profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
}

// ProfileNames lists the registered profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(browserProfiles))
	for name := range browserProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient builds a fingerprinted client that never follows redirects on its own;
// Fetch walks redirect chains itself so every hop gets the browser headers.
func NewClient(logger tls_client.Logger, proxyURL string, profile *BrowserProfile, timeoutSeconds int) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}
	if profile == nil {
		profile = DefaultProfile
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(profile.TLSProfile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	return tls_client.NewHttpClient(logger, options...)
}
