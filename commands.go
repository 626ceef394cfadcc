package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const workerStaggerDelay = 50 * time.Millisecond

var (
	getMethod   string
	getHeaders  []string
	getData     string
	getShowBody bool
	serveAddr   string
)

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Fetch a URL, following redirects and reporting challenge pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Fetch every URL listed in FILE with a pool of workers",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local fixture server (/headers, /redirect/{n}, /challenge, /status/{code})",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List browser profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range ProfileNames() {
			p, _ := LookupProfile(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, p.UserAgent)
		}
		return nil
	},
}

func init() {
	getCmd.Flags().StringVarP(&getMethod, "request", "X", "GET", "HTTP method")
	getCmd.Flags().StringArrayVarP(&getHeaders, "header", "H", nil, `Extra header "Name: value" (repeatable, overrides defaults)`)
	getCmd.Flags().StringVarP(&getData, "data", "d", "", "Request body")
	getCmd.Flags().BoolVar(&getShowBody, "body", false, "Print the response body")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8089", "Listen address")
}

// parseHeaderFlags turns "Name: value" strings into a header map.
func parseHeaderFlags(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", raw)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func loadProxies(c *Config) (*ProxyManager, error) {
	if c.ProxyFile == "" {
		return nil, nil
	}
	pm, err := NewProxyManager(c.ProxyFile)
	if err != nil {
		return nil, NewFatalError(err)
	}
	return pm, nil
}

// newFetcherFromConfig builds a client and fetcher. With a proxy list the
// starting proxy is picked at random; otherwise the single configured proxy is used.
func newFetcherFromConfig(c *Config, proxies *ProxyManager, logger Logger) (*Fetcher, error) {
	profile, err := LookupProfile(c.Profile)
	if err != nil {
		return nil, NewFatalError(err)
	}

	proxyURL := ""
	switch {
	case proxies != nil:
		var idx int
		proxyURL, idx = proxies.Random()
		logger.Log("Using proxy: %s", proxies.DisplayAt(idx))
	case c.Proxy != "":
		normalized, display, ok := parseProxyLine(c.Proxy)
		if !ok {
			return nil, NewFatalError(fmt.Errorf("invalid proxy %q", c.Proxy))
		}
		proxyURL = normalized
		logger.Log("Using proxy: %s", display)
	}

	client, err := NewClient(nil, proxyURL, profile, c.TimeoutSeconds)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to create client: %w", err))
	}

	fetcher := NewFetcher(client, profile, logger)
	fetcher.SetMaxRedirects(c.MaxRedirects)
	fetcher.SetClientHints(c.ClientHints)
	if proxies != nil {
		fetcher.SetProxyManager(proxies, c.ProxyRetries)
	}
	return fetcher, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	target := args[0]
	if err := validateTargetURL(target); err != nil {
		return err
	}
	headers, err := parseHeaderFlags(getHeaders)
	if err != nil {
		return err
	}

	proxies, err := loadProxies(cfg)
	if err != nil {
		return err
	}
	logger := NewLogrusLogger(engineLog, "fetch")
	fetcher, err := newFetcherFromConfig(cfg, proxies, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := FetchOptions{Method: getMethod, Headers: headers}
	if getData != "" {
		opts.Body = []byte(getData)
	}

	resp, err := fetcher.Fetch(ctx, target, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printResponse(out, resp)
	if resp.OK() {
		fmt.Fprintln(out, "Successfully retrieved content")
	} else {
		fmt.Fprintf(out, "Failed: status %d\n", resp.StatusCode)
	}
	if getShowBody {
		fmt.Fprintln(out)
		fmt.Fprintln(out, resp.Text())
	}
	return nil
}

func printResponse(out io.Writer, resp *Response) {
	fmt.Fprintf(out, "Status:    %d\n", resp.StatusCode)
	fmt.Fprintf(out, "URL:       %s\n", resp.URL)
	if resp.Redirected {
		fmt.Fprintf(out, "Redirects: %s\n", strings.Join(resp.Redirects, " -> "))
	}
	fmt.Fprintf(out, "Challenge: %s\n", resp.Challenge.Kind)
	if resp.Challenge.ScriptURL != "" {
		fmt.Fprintf(out, "Script:    %s\n", resp.Challenge.ScriptURL)
	}
	if resp.Challenge.DeviceLink != "" {
		fmt.Fprintf(out, "Device:    %s\n", resp.Challenge.DeviceLink)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	targets, err := LoadURLsFromFile(args[0])
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no urls found in %s", args[0])
	}

	proxies, err := loadProxies(cfg)
	if err != nil {
		return err
	}

	workerCount := min(cfg.Workers, len(targets))
	logger := NewLogrusLogger(engineLog, "batch")
	factory := func(wl Logger) (*Fetcher, error) {
		return newFetcherFromConfig(cfg, proxies, wl)
	}

	scheduler, err := NewScheduler(workerCount, factory, FetchOptions{}, workerStaggerDelay, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log("Starting %d workers for %d urls", workerCount, len(targets))
	scheduler.Start(ctx)
	scheduler.Enqueue(targets)

	summary := collectResults(scheduler.Results(), len(targets), logger)
	scheduler.Close()

	logger.Log("=== Complete: %d fetched, %d challenged, %d failed ===", summary.fetched, summary.challenged, summary.failed)
	fmt.Fprintf(cmd.OutOrStdout(), "%d fetched, %d challenged, %d failed of %d urls\n",
		summary.fetched, summary.challenged, summary.failed, len(targets))
	if summary.fatal != nil {
		return fmt.Errorf("batch aborted: %w", summary.fatal)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	if summary.failed > 0 {
		return fmt.Errorf("%d of %d urls failed", summary.failed, len(targets))
	}
	return nil
}

type batchSummary struct {
	fetched    int
	challenged int
	failed     int
	fatal      error
}

// collectResults reads until expected results arrive, a fatal result is seen,
// or the channel closes. The scheduler closes it when its workers stop, so a
// cancelled batch returns with fewer results.
func collectResults(results <-chan TaskResult, expected int, logger Logger) batchSummary {
	var s batchSummary
	for received := 0; received < expected; received++ {
		result, ok := <-results
		if !ok {
			break
		}
		switch {
		case result.Fatal:
			s.fatal = result.Error
			logger.Warn("FATAL ERROR: %v", result.Error)
			return s
		case result.Error != nil:
			s.failed++
			logger.Warn("[%d/%d] ERROR %s: %v", received+1, expected, result.URL, result.Error)
		case result.Response.Challenge.Detected():
			s.challenged++
			logger.Log("[%d/%d] CHALLENGE %s: %s (%d)", received+1, expected, result.URL, result.Response.Challenge.Kind, result.Response.StatusCode)
		default:
			s.fetched++
			logger.Log("[%d/%d] %d %s -> %s (%d redirects, %v)", received+1, expected, result.Response.StatusCode,
				result.URL, result.Response.URL, len(result.Response.Redirects), result.Duration.Round(time.Millisecond))
		}
	}
	return s
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := NewLogrusLogger(engineLog, "serve")
	server := NewFixtureServer(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log("Fixture server listening on %s", serveAddr)
		errCh <- server.ListenAndServe(serveAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Log("Shutting down fixture server")
		return server.Shutdown()
	}
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
