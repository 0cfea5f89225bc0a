package loki

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"mqbridge/src/internal/config"
	"mqbridge/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// Client pushes grouped streams to the sink. A push is a single network
// call; any non-204 status or transport error is a failure. Retrying is
// the buffer's responsibility, not the client's.
type Client struct {
	config *config.SinkConfig
	client *fasthttp.Client
	logger *log.Logger

	// Statistics
	totalPushes  atomic.Uint64
	failedPushes atomic.Uint64
	lastPush     atomic.Value // time.Time
}

// NewClient creates a delivery client for the configured sink.
func NewClient(cfg *config.SinkConfig, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sink configuration cannot be nil")
	}

	c := &Client{
		config: cfg,
		logger: logger,
	}
	c.lastPush.Store(time.Time{})

	c.client = &fasthttp.Client{
		MaxConnsPerHost:     10,
		MaxIdleConnDuration: 10 * time.Second,
		ReadTimeout:         time.Duration(cfg.TimeoutS) * time.Second,
		WriteTimeout:        time.Duration(cfg.TimeoutS) * time.Second,
	}

	if strings.HasPrefix(cfg.URL, "https://") && cfg.InsecureSkipVerify {
		c.client.TLSConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return c, nil
}

// Push sends one grouped batch to the sink. The sink accepts or rejects
// the whole stream set atomically; no partial delivery is attempted.
func (c *Client) Push(ctx context.Context, streams []Stream) error {
	if len(streams) == 0 {
		return nil
	}

	body, err := json.Marshal(PushRequest{Streams: streams})
	if err != nil {
		return fmt.Errorf("failed to encode push request: %w", err)
	}

	c.totalPushes.Add(1)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("mqbridge/%s", version.Short()))
	req.SetBody(body)

	c.setAuthHeaders(req)
	if c.config.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", c.config.TenantID)
	}

	timeout := time.Duration(c.config.TimeoutS) * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		c.failedPushes.Add(1)
		return fmt.Errorf("push request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusNoContent {
		c.failedPushes.Add(1)
		return fmt.Errorf("sink returned status %d: %s", statusCode, resp.Body())
	}

	c.lastPush.Store(time.Now())
	c.logger.Debug("msg", "Streams pushed",
		"component", "loki_client",
		"stream_count", len(streams))
	return nil
}

func (c *Client) setAuthHeaders(req *fasthttp.Request) {
	switch {
	case c.config.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	case c.config.Username != "":
		credentials := base64.StdEncoding.EncodeToString(
			[]byte(c.config.Username + ":" + c.config.Password))
		req.Header.Set("Authorization", "Basic "+credentials)
	}
}

// GetStats returns client statistics.
func (c *Client) GetStats() map[string]any {
	lastPush, _ := c.lastPush.Load().(time.Time)
	return map[string]any{
		"url":           c.config.URL,
		"total_pushes":  c.totalPushes.Load(),
		"failed_pushes": c.failedPushes.Load(),
		"last_push":     lastPush,
	}
}
