package venueb

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

var zeroAddress = common.HexToAddress("0x0000000000000000000000000000000000000000")

// Client is Venue B's order-placement client: it builds and EIP-712 signs
// one IOC ("FAK" — fill-and-kill) order per call and submits it to the CLOB
// order endpoint.
type Client struct {
	http    *resty.Client
	creds   *Credentials
	builder builder.ExchangeOrderBuilder
	dryRun  bool
	logger  *zap.Logger
}

func NewClient(baseURL string, creds *Credentials, dryRun bool, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    http,
		creds:   creds,
		builder: NewOrderBuilder(),
		dryRun:  dryRun,
		logger:  logger,
	}
}

// OrderAck is Venue B's order placement response, reduced to what the
// execution engine reconciles on.
type OrderAck struct {
	OrderID    string
	Filled     bool
	FilledSize float64
	FillPrice  int
}

// PlaceIOCOrder signs and submits a fill-and-kill BUY order for one outcome
// token at priceCents, sized in shares.
func (c *Client) PlaceIOCOrder(ctx context.Context, tokenID string, priceCents int, size float64) (*OrderAck, error) {
	if c.dryRun {
		c.logger.Info("dry-run-order-skipped", zap.String("token-id", tokenID))
		return &OrderAck{OrderID: "dry-run", Filled: true, FilledSize: size, FillPrice: priceCents}, nil
	}

	signed, err := c.buildSignedOrder(tokenID, priceCents, size)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	reqBody := map[string]interface{}{
		"order":     convertToOrderJSON(signed),
		"owner":     c.creds.SignerAddress,
		"orderType": "FAK",
	}

	var resp orderSubmissionResponse
	httpResp, err := c.http.R().SetContext(ctx).SetBody(reqBody).SetResult(&resp).Post("/order")
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if httpResp.IsError() {
		return nil, &types.ExecutionRejected{Venue: "B", Code: resp.ErrorMsg, Message: httpResp.String()}
	}
	if !resp.Success {
		return nil, &types.ExecutionRejected{Venue: "B", Code: resp.ErrorMsg, Message: "order not accepted"}
	}

	filledSize := size
	if resp.Status == "unmatched" {
		filledSize = 0
	}
	return &OrderAck{
		OrderID:    resp.OrderID,
		Filled:     resp.Status == "matched" || resp.Status == "live",
		FilledSize: filledSize,
		FillPrice:  priceCents,
	}, nil
}

// buildSignedOrder constructs the EIP-712 order-data struct and signs it
// with the derived EOA key, mirroring the teacher's single-order path but
// against one outcome token per call rather than a YES/NO pair.
func (c *Client) buildSignedOrder(tokenID string, priceCents int, size float64) (*model.SignedOrder, error) {
	price := float64(priceCents) / 100.0
	makerAmount := usdToRawAmount(price * size) // USDC, 6 decimals
	takerAmount := usdToRawAmount(size)          // outcome shares, 6 decimals

	tokenIDBig, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("parse token id %q", tokenID)
	}

	orderData := &model.OrderData{
		Maker:         c.creds.FunderAddress,
		Taker:         zeroAddress.Hex(),
		TokenId:       tokenIDBig.String(),
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.creds.SignerAddress,
		Expiration:    "0",
		SignatureType: c.creds.SignatureType,
	}

	signed, err := c.builder.BuildSignedOrder(c.creds.PrivateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}
	return signed, nil
}

type orderSubmissionResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

func convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}
	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func usdToRawAmount(usd float64) string {
	return fmt.Sprintf("%d", int64(math.Round(usd*1_000_000)))
}
