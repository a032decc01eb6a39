package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"cryptocrew/internal/domain"
)

const (
	tokenIssuer = "sabotage-engine"
	tokenTTL    = 5 * time.Minute
)

var ErrRejected = errors.New("ledger rejected payout")

// Client posts match settlements to the external GC ledger. Each request carries the
// game id as Idempotency-Key and a short-lived HS256 bearer token.
type Client struct {
	url    string
	secret []byte
	http   *http.Client
	now    func() time.Time
}

// NewClient returns a ledger client for url. httpClient may be nil.
func NewClient(url, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		url:    url,
		secret: []byte(secret),
		http:   httpClient,
		now:    time.Now,
	}
}

// SubmitPayout sends one settlement. A 409 means the ledger already holds this game
// and counts as success.
func (c *Client) SubmitPayout(ctx context.Context, settlement domain.Settlement) error {
	if c.url == "" || len(c.secret) == 0 {
		return fmt.Errorf("ledger client is not configured")
	}
	body, err := json.Marshal(settlement)
	if err != nil {
		return fmt.Errorf("marshal settlement: %w", err)
	}
	token, err := c.token(settlement.GameID)
	if err != nil {
		return fmt.Errorf("sign ledger token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", settlement.GameID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post settlement %s: %w", settlement.GameID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status, bytes.TrimSpace(msg))
}

func (c *Client) token(gameID string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss": tokenIssuer,
		"sub": gameID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
