package venuea

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client is Venue A's signed REST client: order placement plus whatever
// catalog reads need a signed session (the discovery-time catalog fetch
// itself is public and lives in internal/discovery).
type Client struct {
	http    *resty.Client
	signer  *Signer
	logger  *zap.Logger
	dryRun  bool
}

func NewClient(baseURL string, signer *Signer, dryRun bool, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(0). // 401 retry is handled explicitly once, below; other failures propagate
		SetHeader("Content-Type", "application/json")

	return &Client{http: http, signer: signer, dryRun: dryRun, logger: logger}
}

// signedRequest builds a request carrying Venue A's signed headers, signed
// with a fresh timestamp on every call. It does not retry by itself;
// PlaceIOCOrder calls it a second time to retry once on a 401 (covers
// clock-skew rejection just outside the ±5s tolerance window).
func (c *Client) signedRequest(ctx context.Context, method, path string) (*resty.Request, error) {
	headers, err := c.signer.Headers(method, path)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return c.http.R().SetContext(ctx).SetHeaders(headers), nil
}

// PlaceIOCOrder submits an immediate-or-cancel limit order for one leg at
// the observed ask price.
func (c *Client) PlaceIOCOrder(ctx context.Context, ticker string, side string, priceCents int, size float64) (*OrderAck, error) {
	if c.dryRun {
		c.logger.Info("dry-run-order-skipped", zap.String("ticker", ticker), zap.String("side", side))
		return &OrderAck{OrderID: "dry-run", Filled: true, FilledSize: size}, nil
	}

	const path = "/orders"
	req, err := c.signedRequest(ctx, http.MethodPost, path)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"ticker":     ticker,
		"side":       side,
		"type":       "limit",
		"time_in_force": "ioc",
		"price_cents": priceCents,
		"count":       size,
	}

	var ack OrderAck
	resp, err := req.SetBody(body).SetResult(&ack).Post(path)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		req, err = c.signedRequest(ctx, http.MethodPost, path)
		if err != nil {
			return nil, err
		}
		resp, err = req.SetBody(body).SetResult(&ack).Post(path)
		if err != nil {
			return nil, fmt.Errorf("place order (retry): %w", err)
		}
	}

	if resp.IsError() {
		return nil, fmt.Errorf("place order: status %d: %s", resp.StatusCode(), resp.String())
	}

	return &ack, nil
}

// OrderAck is Venue A's order placement response, reduced to what the
// execution engine reconciles on.
type OrderAck struct {
	OrderID    string  `json:"order_id"`
	Filled     bool    `json:"filled"`
	FilledSize float64 `json:"filled_size"`
	FillPrice  int     `json:"fill_price_cents"`
}
