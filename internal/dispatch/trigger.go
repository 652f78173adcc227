// Package dispatch sends the best-effort signal that queued work exists.
// The result is intentionally discarded: Fire has no return value because
// nothing downstream is allowed to depend on its outcome.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType is the fixed event identifier carried on every dispatch call.
const EventType = "job-enqueued"

const defaultEndpoint = "https://api.github.com"

// Config holds the dispatch target. Missing Token or Repo disables
// dispatch entirely; enqueueing must work with no worker configured.
type Config struct {
	// Token is the bearer token for the dispatch endpoint.
	Token string

	// Repo is the "owner/repo" identifier of the worker repository.
	Repo string

	// Endpoint overrides the API base URL. Defaults to the public API.
	Endpoint string

	// Timeout bounds the outbound call. Default: 10s.
	Timeout time.Duration
}

// Trigger fires repository dispatch events at the external worker system.
type Trigger struct {
	cfg    Config
	client *http.Client
}

// New creates a dispatch trigger.
func New(cfg Config) *Trigger {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Trigger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether dispatch is configured at all.
func (t *Trigger) Enabled() bool {
	return t.cfg.Token != "" && t.cfg.Repo != ""
}

// Fire issues one dispatch call. It never reports failure: without
// configuration it is a silent no-op, and any network or HTTP error is
// logged and discarded. Callers typically run it in a detached goroutine.
func (t *Trigger) Fire(ctx context.Context) {
	if !t.Enabled() {
		return
	}

	url := fmt.Sprintf("%s/repos/%s/dispatches", strings.TrimSuffix(t.cfg.Endpoint, "/"), t.cfg.Repo)

	body, err := json.Marshal(map[string]string{"event_type": EventType})
	if err != nil {
		log.Warn().Err(err).Msg("Dispatch trigger failed to encode body")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("Dispatch trigger failed to build request")
		return
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("repo", t.cfg.Repo).Msg("Dispatch trigger call failed")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("repo", t.cfg.Repo).
			Msg("Dispatch trigger rejected")
		return
	}

	log.Debug().Str("repo", t.cfg.Repo).Msg("Dispatch trigger sent")
}
