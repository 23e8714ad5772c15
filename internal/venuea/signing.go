// Package venuea implements the Kalshi-shaped Venue A: signed REST order
// placement and a signed streaming market-data feed. The public event
// catalog is fetched by internal/discovery, not here.
package venuea

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ed25519"
)

// KeyType selects which asymmetric signing scheme a Venue A credential
// file uses. Kalshi-style deployments configure either; both are wired
// because the examples pack demonstrates both signing families and the
// venue's published key format varies by account vintage.
type KeyType int

const (
	KeyTypeECDSA KeyType = iota
	KeyTypeEd25519
)

// Signer signs Venue A request envelopes: timestamp + method + path.
type Signer struct {
	keyType    KeyType
	ecdsaKey   *ecdsa.PrivateKey
	ed25519Key ed25519.PrivateKey
	apiKeyID   string
}

// NewECDSASigner builds a Signer backed by a secp256k1 private key (hex,
// optionally 0x-prefixed).
func NewECDSASigner(apiKeyID, privateKeyHex string) (*Signer, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse venue A private key: %w", err)
	}
	return &Signer{keyType: KeyTypeECDSA, ecdsaKey: key, apiKeyID: apiKeyID}, nil
}

// NewEd25519Signer builds a Signer from a raw 32-byte ed25519 seed.
func NewEd25519Signer(apiKeyID string, seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("venue A ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{keyType: KeyTypeEd25519, ed25519Key: ed25519.NewKeyFromSeed(seed), apiKeyID: apiKeyID}, nil
}

// Headers returns the three signed headers Venue A expects on every
// request: key id, timestamp, and the signature itself.
func (s *Signer) Headers(method, path string) (map[string]string, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig, err := s.sign(ts, method, path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"VENUE-A-ACCESS-KEY":       s.apiKeyID,
		"VENUE-A-ACCESS-TIMESTAMP": ts,
		"VENUE-A-ACCESS-SIGNATURE": sig,
	}, nil
}

func (s *Signer) sign(timestamp, method, path string) (string, error) {
	message := timestamp + method + path
	switch s.keyType {
	case KeyTypeECDSA:
		hash := crypto.Keccak256([]byte(message))
		sig, err := crypto.Sign(hash, s.ecdsaKey)
		if err != nil {
			return "", fmt.Errorf("sign request: %w", err)
		}
		return hex.EncodeToString(sig), nil
	case KeyTypeEd25519:
		sig := ed25519.Sign(s.ed25519Key, []byte(message))
		return hex.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("unknown key type")
	}
}

// maxClockSkew is the tolerance the venue allows between our timestamp and
// its clock; requests outside this window are rejected with a 401.
const maxClockSkew = 5 * time.Second
