package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *Config
	engineLog  *logrus.Logger
	logCloser  io.Closer = io.NopCloser(nil)
)

var rootCmd = &cobra.Command{
	Use:           "cloakfetch",
	Short:         "Fetch pages with a browser fingerprint and report anti-bot challenges",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		loaded, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		if err := applyFlagOverrides(cmd, loaded); err != nil {
			return err
		}
		cfg = loaded

		logger, closer, err := setupLogging(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		engineLog, logCloser = logger, closer
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to a YAML config file")
	pf.String("profile", "", "Browser profile ("+joinNames(ProfileNames())+")")
	pf.String("proxy", "", "Proxy for all requests (ip:port, ip:port:user:pass or URL)")
	pf.String("proxy-file", "", "File with one proxy per line")
	pf.Int("proxy-retries", 0, "Rotate proxy and resend on connection errors, up to N times")
	pf.Int("timeout", defaultTimeoutSeconds, "Request timeout in seconds")
	pf.Int("max-redirects", defaultMaxRedirects, "Maximum redirects to follow (0 returns redirects unfollowed)")
	pf.Bool("client-hints", false, "Send sec-ch-ua client hint headers")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Also append logs to this file")

	rootCmd.AddCommand(getCmd, batchCmd, serveCmd, profilesCmd)
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, c *Config) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func()) {
		if err == nil && flags.Changed(name) {
			apply()
		}
	}

	set("profile", func() { c.Profile, err = flags.GetString("profile") })
	set("proxy", func() { c.Proxy, err = flags.GetString("proxy") })
	set("proxy-file", func() { c.ProxyFile, err = flags.GetString("proxy-file") })
	set("proxy-retries", func() { c.ProxyRetries, err = flags.GetInt("proxy-retries") })
	set("timeout", func() { c.TimeoutSeconds, err = flags.GetInt("timeout") })
	set("max-redirects", func() { c.MaxRedirects, err = flags.GetInt("max-redirects") })
	set("client-hints", func() { c.ClientHints, err = flags.GetBool("client-hints") })
	set("log-level", func() { c.LogLevel, err = flags.GetString("log-level") })
	set("log-file", func() { c.LogFile, err = flags.GetString("log-file") })
	if err != nil {
		return err
	}
	return c.Validate()
}

func main() {
	err := rootCmd.Execute()
	logCloser.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
