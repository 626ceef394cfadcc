package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ProxyManager hands out proxies from a list, round-robin or at random.
type ProxyManager struct {
	proxies []string // normalized proxy URLs
	display []string // host:port for logging (no credentials)
	index   int
	mu      sync.Mutex
}

// parseProxyLine parses a proxy string and returns the normalized URL and display string.
// Supported formats:
//   - ip:port
//   - ip:port:username:password
//   - http://[username:password@]ip:port
//   - https://[username:password@]ip:port (sent as http://, most proxies expect it)
//   - socks5://[username:password@]ip:port
func parseProxyLine(line string) (proxyURL, display string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil || parsed.Host == "" {
			return "", "", false
		}
		scheme := parsed.Scheme
		switch scheme {
		case "http", "https":
			scheme = "http"
		case "socks5":
		default:
			return "", "", false
		}
		u := url.URL{Scheme: scheme, Host: parsed.Host, User: parsed.User}
		return u.String(), parsed.Host, true
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2:
		host := parts[0] + ":" + parts[1]
		u := url.URL{Scheme: "http", Host: host}
		return u.String(), host, true
	case 4:
		host := parts[0] + ":" + parts[1]
		u := url.URL{Scheme: "http", Host: host, User: url.UserPassword(parts[2], parts[3])}
		return u.String(), host, true
	default:
		return "", "", false
	}
}

// ParseProxyList reads one proxy per line. Blank lines and # comments are skipped,
// as are lines in an unknown format.
func ParseProxyList(r io.Reader) (*ProxyManager, error) {
	pm := &ProxyManager{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		proxyURL, disp, ok := parseProxyLine(line)
		if !ok {
			continue
		}
		pm.proxies = append(pm.proxies, proxyURL)
		pm.display = append(pm.display, disp)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading proxy list: %w", err)
	}
	if len(pm.proxies) == 0 {
		return nil, fmt.Errorf("no valid proxies found")
	}
	return pm, nil
}

// NewProxyManager loads proxies from file. See parseProxyLine for the accepted formats.
func NewProxyManager(filename string) (*ProxyManager, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()

	pm, err := ParseProxyList(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return pm, nil
}

func (pm *ProxyManager) Current() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.proxies[pm.index]
}

func (pm *ProxyManager) CurrentDisplay() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.display[pm.index]
}

// Rotate advances the shared round-robin position and returns the proxy there
// with its display form. Callers log the returned display, since another
// worker may rotate again before CurrentDisplay is read.
func (pm *ProxyManager) Rotate() (proxyURL, display string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.index = (pm.index + 1) % len(pm.proxies)
	return pm.proxies[pm.index], pm.display[pm.index]
}

func (pm *ProxyManager) Count() int {
	return len(pm.proxies)
}

// Random returns a random proxy URL and its index for display lookup.
func (pm *ProxyManager) Random() (proxyURL string, idx int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	idx = rand.Intn(len(pm.proxies))
	return pm.proxies[idx], idx
}

// DisplayAt returns the display string for proxy at given index.
func (pm *ProxyManager) DisplayAt(idx int) string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if idx >= 0 && idx < len(pm.display) {
		return pm.display[idx]
	}
	return ""
}
