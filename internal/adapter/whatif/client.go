package whatif

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// maxErrorBody caps how much of a failing response is quoted in errors.
const maxErrorBody = 512

// Client is a SimulationProvider backed by a remote what-if service.
type Client struct {
	endpoint string
	token    string
	dialect  domain.Dialect
	http     *http.Client
}

type simulateRequest struct {
	Dialect string `json:"dialect"`
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Index   string `json:"index"`
}

func NewClient(baseURL, token string, dialect domain.Dialect, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/simulate",
		token:    token,
		dialect:  dialect,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Simulate(ctx context.Context, schema, table, index string) (*domain.SimulationResult, error) {
	body, err := json.Marshal(simulateRequest{Dialect: string(c.dialect), Schema: schema, Table: table, Index: index})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling what-if service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("what-if service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var res domain.SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding what-if response: %w", err)
	}
	return &res, nil
}
