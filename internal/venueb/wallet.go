// Package venueb implements the Polymarket-shaped Venue B: no-auth market
// data streaming plus EIP-712 signed order placement against an on-chain
// funder wallet.
package venueb

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
)

// PolygonChainID is the EIP-712 domain chain id Venue B orders are signed
// against.
var PolygonChainID = big.NewInt(137)

// Credentials holds the derived signing identity for Venue B order
// placement. Held only in memory — never persisted to disk or logged.
type Credentials struct {
	PrivateKey    *ecdsa.PrivateKey
	SignerAddress string // EOA address derived from PrivateKey
	FunderAddress string // funder/proxy wallet that holds collateral
	SignatureType model.SignatureType
}

// DeriveAPICredentials parses a hex-encoded EOA private key and pairs it
// with the funder wallet address that holds USDC collateral. When funder is
// empty the signer address itself is used, matching a direct (non-proxy)
// wallet with SignatureType EOA.
func DeriveAPICredentials(privateKeyHex, funder string) (*Credentials, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected type")
	}
	signerAddress := crypto.PubkeyToAddress(*publicKeyECDSA).Hex()

	sigType := model.EOA
	funderAddress := funder
	if funderAddress == "" {
		funderAddress = signerAddress
	} else {
		sigType = model.POLY_GNOSIS_SAFE
	}

	return &Credentials{
		PrivateKey:    privateKey,
		SignerAddress: signerAddress,
		FunderAddress: funderAddress,
		SignatureType: sigType,
	}, nil
}

// NewOrderBuilder constructs the EIP-712 typed-data builder orders are
// signed through, scoped to the Polygon mainnet exchange domain.
func NewOrderBuilder() builder.ExchangeOrderBuilder {
	return builder.NewExchangeOrderBuilderImpl(PolygonChainID, nil)
}
