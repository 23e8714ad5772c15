package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// VenueACatalogClient fetches Venue A's public event catalog. Catalog
// browsing requires no signature; only order placement and streaming auth
// do (see internal/venuea).
type VenueACatalogClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewVenueACatalogClient(baseURL string, logger *zap.Logger) *VenueACatalogClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &VenueACatalogClient{http: http, logger: logger}
}

type venueAEventsResponse struct {
	Events []venueAEvent `json:"events"`
}

type venueAEvent struct {
	EventTicker string            `json:"event_ticker"`
	League      string            `json:"series_ticker"`
	Title       string            `json:"title"`
	StartTime   time.Time         `json:"strike_date"`
	Markets     []venueAMarketRaw `json:"markets"`
}

type venueAMarketRaw struct {
	Ticker       string   `json:"ticker"`
	MarketType   string   `json:"market_type"`
	Participants []string `json:"participants"`
	LineValue    float64  `json:"line_value"`
	Volume24h    float64  `json:"volume_24h"`
}

// FetchActiveEvents fetches active events restricted to the given leagues
// (series tickers). An empty leagues set means no restriction.
func (c *VenueACatalogClient) FetchActiveEvents(ctx context.Context, leagues []string) ([]types.VenueAContract, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("status", "open")
	for _, lg := range leagues {
		req.QueryParam.Add("series_ticker", lg)
	}

	var out venueAEventsResponse
	resp, err := req.SetResult(&out).Get("/events")
	if err != nil {
		return nil, fmt.Errorf("fetch venue A events: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch venue A events: status %d: %s", resp.StatusCode(), resp.String())
	}

	var contracts []types.VenueAContract
	for _, ev := range out.Events {
		for _, m := range ev.Markets {
			contracts = append(contracts, types.VenueAContract{
				Ticker:       m.Ticker,
				EventTicker:  ev.EventTicker,
				League:       ev.League,
				Title:        ev.Title,
				MarketType:   parseMarketType(m.MarketType),
				Participants: m.Participants,
				LineValue:    m.LineValue,
				EventStart:   ev.StartTime,
				Volume24h:    m.Volume24h,
			})
		}
	}
	return contracts, nil
}

func parseMarketType(s string) types.MarketType {
	switch s {
	case "h2h", "H2H":
		return types.MarketTypeH2H
	case "total", "TOTAL":
		return types.MarketTypeTotal
	case "spread", "SPREAD":
		return types.MarketTypeSpread
	default:
		return types.MarketTypeOther
	}
}
