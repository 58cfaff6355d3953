package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ExpoConfig configures an ExpoClient.
type ExpoConfig struct {
	URL         string
	AccessToken string        // optional; sent as a bearer token
	Timeout     time.Duration // per provider request
	BatchRate   float64       // provider requests per second; <= 0 means unlimited
}

// ExpoClient sends notifications to the Expo push API in batches.
type ExpoClient struct {
	url         string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	now         func() time.Time
}

// NewExpoClient creates a client for cfg.
func NewExpoClient(cfg ExpoConfig, logger *slog.Logger) *ExpoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.BatchRate > 0 {
		limit = rate.Limit(cfg.BatchRate)
	}
	return &ExpoClient{
		url:         cfg.URL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
		now:         time.Now,
	}
}

type pushRequest struct {
	To       []string       `json:"to"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Sound    string         `json:"sound"`
	Badge    *int           `json:"badge,omitempty"`
	Priority string         `json:"priority"`
	TTL      int            `json:"ttl"`
}

type pushResponse struct {
	Data   []Ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send delivers msg to tokens. Invalid and repeated tokens are dropped first;
// if none remain no request is made. Survivors are sent in sequential
// batches of MaxBatchSize and a failed batch does not stop later ones.
func (c *ExpoClient) Send(ctx context.Context, tokens []string, msg Message) Result {
	if len(tokens) == 0 {
		c.logger.Warn("push skipped", "reason", ErrMsgNoTokens)
		return Result{Error: ErrMsgNoTokens}
	}
	valid := FilterTokens(tokens)
	if len(valid) == 0 {
		c.logger.Warn("push skipped", "reason", ErrMsgNoValidTokens, "tokens", len(tokens))
		return Result{Error: ErrMsgNoValidTokens}
	}

	var res Result
	for start, n := 0, 1; start < len(valid); start, n = start+MaxBatchSize, n+1 {
		batch := valid[start:min(start+MaxBatchSize, len(valid))]

		tickets, err := c.sendBatch(ctx, batch, msg)
		if err != nil {
			c.logger.Error("push batch failed", "batch", n, "tokens", len(batch), "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("batch %d: %v", n, err))
			continue
		}
		res.Results = append(res.Results, BatchResult{Tokens: len(batch), Tickets: tickets})
		res.Unregistered = append(res.Unregistered, unregisteredTokens(batch, tickets)...)
	}
	res.Success = len(res.Errors) == 0

	c.logger.Info("push sent",
		"tokens", len(valid),
		"batches", len(res.Results)+len(res.Errors),
		"failed_batches", len(res.Errors),
		"unregistered", len(res.Unregistered),
	)
	return res
}

func (c *ExpoClient) sendBatch(ctx context.Context, tokens []string, msg Message) ([]Ticket, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(newPushRequest(tokens, msg))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySize))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("provider error %s: %s", out.Errors[0].Code, out.Errors[0].Message)
	}
	return out.Data, nil
}

func newPushRequest(tokens []string, msg Message) pushRequest {
	req := pushRequest{
		To:       tokens,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		Sound:    msg.Sound,
		Badge:    msg.Badge,
		Priority: msg.Priority,
		TTL:      int(msg.TTL / time.Second),
	}
	if req.Sound == "" {
		req.Sound = defaultSound
	}
	if req.Priority == "" {
		req.Priority = PriorityHigh
	}
	if req.TTL <= 0 {
		req.TTL = int(alertTTL / time.Second)
	}
	return req
}

// unregisteredTokens pairs tickets with the batch by position and returns the
// tokens the provider no longer recognizes.
func unregisteredTokens(batch []string, tickets []Ticket) []string {
	var out []string
	for i, t := range tickets {
		if i >= len(batch) {
			break
		}
		if t.Status == "error" && t.Details["error"] == "DeviceNotRegistered" {
			out = append(out, batch[i])
		}
	}
	return out
}
