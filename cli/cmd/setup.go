package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/glassbead-io/prism/adapter"
	"github.com/glassbead-io/prism/adapter/redis"
	"github.com/glassbead-io/prism/adapter/webhook"
	"github.com/glassbead-io/prism/cli/config"
	"github.com/glassbead-io/prism/client"
)

// Exit codes.
const (
	exitSuccess  = 0
	exitStream   = 1 // transport failure or backend stream error
	exitUsage    = 2 // invalid flags, config, or input
	exitCanceled = 3 // interrupted before clean completion
)

// loadConfig loads the config file named by --config, or returns an empty
// config when the flag is unset.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// buildClient constructs a backend client from config and flags.
// The --backend flag wins over the config file.
func buildClient(c *cli.Context, cfg *config.Config) (*client.Client, error) {
	baseURL := c.String("backend")
	if baseURL == "" {
		baseURL = cfg.Backend.URL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no backend URL: pass --backend or set backend.url in config")
	}

	return client.New(client.Config{
		BaseURL: baseURL,
		Headers: cfg.Backend.Headers,
		Timeout: cfg.Backend.Timeout.Duration,
	})
}

// buildAdapter constructs the notification adapter named in config.
// Returns (nil, nil) when no adapter is configured.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := -1
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		wc := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if retries >= 0 {
			wc.Retries = retries
		}
		return webhook.New(wc)
	case "redis":
		rc := redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: redis.DefaultRetries,
		}
		if retries >= 0 {
			rc.Retries = retries
		}
		return redis.New(rc)
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", cfg.Type)
	}
}

// newSessionID generates a random session identifier.
func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Extremely unlikely; fall back to the process ID.
		return fmt.Sprintf("sess-%d", os.Getpid())
	}
	return "sess-" + hex.EncodeToString(b[:])
}
