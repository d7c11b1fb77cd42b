package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// AccountInfo is the account context sent to the decision provider
type AccountInfo struct {
	ID             string  `json:"id"`
	InitialCapital float64 `json:"initial_capital"`
	Environment    string  `json:"environment"`
	Automation     string  `json:"automation"`
}

// Request is the payload posted to the decision provider
type Request struct {
	MarketState map[string]market.Quote `json:"market_state"`
	Portfolio   *portfolio.Snapshot     `json:"portfolio"`
	Account     AccountInfo             `json:"account"`
}

// Response maps each coin to the provider's proposed decision
type Response struct {
	Decisions map[string]trading.Decision `json:"decisions"`
}

// Client talks to the external AI decision provider over HTTP JSON
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an advisor client
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With().Str("client", "advisor").Logger(),
	}
}

// Decide asks the provider for a decision per coin
func (c *Client) Decide(ctx context.Context, req Request) (map[string]trading.Decision, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal advisor request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/v1/decide", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build advisor request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("advisor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor returned status %d", resp.StatusCode)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode advisor response: %w", err)
	}

	// Drop malformed decisions instead of failing the whole cycle.
	decisions := make(map[string]trading.Decision, len(decoded.Decisions))
	for coin, decision := range decoded.Decisions {
		if err := decision.Validate(); err != nil {
			c.log.Warn().Err(err).Str("coin", coin).Msg("Skipping malformed decision")
			continue
		}
		decisions[coin] = decision
	}

	return decisions, nil
}
