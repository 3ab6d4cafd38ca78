// Package update tells the user when a newer plugin release is published.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

const (
	PackageName  = "opencode-aicodewith-auth"
	RegistryURL  = "https://registry.npmjs.org/" + PackageName + "/latest"
	FetchTimeout = 10 * time.Second

	EventSessionCreated = "session.created"
)

// Event is a host event. Properties is left raw; only a few fields are read.
type Event struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

type Notifier interface {
	UpdateAvailable(current, latest string)
}

type NotifierFunc func(current, latest string)

func (f NotifierFunc) UpdateAvailable(current, latest string) { f(current, latest) }

// Checker looks for a newer release once per process, on the first root
// session.
type Checker struct {
	Current  string
	URL      string
	Client   *http.Client
	Notifier Notifier

	logger  *slog.Logger
	checked atomic.Bool
}

func NewChecker(current string, notifier Notifier, logger *slog.Logger) *Checker {
	return &Checker{
		Current:  current,
		URL:      RegistryURL,
		Client:   &http.Client{Timeout: FetchTimeout},
		Notifier: notifier,
		logger:   logger,
	}
}

// HandleEvent reports whether e triggered a check. Child sessions (those
// with info.parentID) and every event after the first trigger are ignored.
func (c *Checker) HandleEvent(ctx context.Context, e Event) bool {
	if e.Type != EventSessionCreated {
		return false
	}
	if gjson.GetBytes(e.Properties, "info.parentID").String() != "" {
		return false
	}
	if !c.checked.CompareAndSwap(false, true) {
		return false
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		c.logger.Debug("Update check failed", "error", err)
		return true
	}

	switch {
	case c.Current == "":
		c.logger.Debug("No current version, skipping update check")
	case c.Current == latest:
		c.logger.Debug("Already on latest version", "version", latest)
	default:
		c.logger.Info("Update available", "current", c.Current, "latest", latest)
		if c.Notifier != nil {
			c.Notifier.UpdateAvailable(c.Current, latest)
		}
	}
	return true
}

// Latest fetches the published version.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest version: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read latest version: %w", err)
	}
	version := strings.TrimSpace(gjson.GetBytes(body, "version").String())
	if version == "" {
		return "", errors.New("registry response has no version")
	}
	return version, nil
}
