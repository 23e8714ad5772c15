package discovery

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// VenueBCatalogClient fetches Venue B's active market catalog. Market data
// browsing requires no auth; only order placement does (internal/venueb).
type VenueBCatalogClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewVenueBCatalogClient(baseURL string, logger *zap.Logger) *VenueBCatalogClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &VenueBCatalogClient{http: http, logger: logger}
}

type venueBMarketRaw struct {
	ConditionID string    `json:"condition_id"`
	Slug        string    `json:"slug"`
	League      string    `json:"league"`
	Question    string    `json:"question"`
	MarketType  string    `json:"market_type"`
	Participants []string `json:"participants"`
	LineValue   float64   `json:"line_value"`
	EndDate     time.Time `json:"end_date"`
	Volume24hr  float64   `json:"volume24hr"`
	NegRisk     bool      `json:"neg_risk"`
	Tokens      []struct {
		TokenID string `json:"token_id"`
		Outcome string `json:"outcome"`
	} `json:"tokens"`
}

// FetchActiveMarkets fetches active, non-closed binary markets restricted to
// the given leagues (empty means unrestricted), paginating internally.
func (c *VenueBCatalogClient) FetchActiveMarkets(ctx context.Context, leagues []string) ([]types.VenueBMarket, error) {
	const pageSize = 250
	allowed := make(map[string]bool, len(leagues))
	for _, l := range leagues {
		allowed[l] = true
	}

	var out []types.VenueBMarket
	for offset := 0; ; offset += pageSize {
		var raw []venueBMarketRaw
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("closed", "false").
			SetQueryParam("active", "true").
			SetQueryParam("limit", strconv.Itoa(pageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			SetQueryParam("order", "volume24hr").
			SetQueryParam("ascending", "false").
			SetResult(&raw).
			Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("fetch venue B markets: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch venue B markets: status %d: %s", resp.StatusCode(), resp.String())
		}

		for _, m := range raw {
			if len(leagues) > 0 && !allowed[m.League] {
				continue
			}
			if len(m.Tokens) < 2 {
				continue
			}
			vm := types.VenueBMarket{
				ConditionID:  m.ConditionID,
				Slug:         m.Slug,
				League:       m.League,
				Question:     m.Question,
				MarketType:   parseMarketType(m.MarketType),
				Participants: m.Participants,
				LineValue:    m.LineValue,
				EventStart:   m.EndDate,
				Volume24h:    m.Volume24hr,
				NegRisk:      m.NegRisk,
			}
			for _, t := range m.Tokens {
				switch t.Outcome {
				case "Yes", "YES", "yes":
					vm.YesTokenID = t.TokenID
				case "No", "NO", "no":
					vm.NoTokenID = t.TokenID
				}
			}
			out = append(out, vm)
		}

		if len(raw) < pageSize {
			break
		}
	}

	return out, nil
}
