// Package wallet signs wallet-auth login challenges with an Ethereum key.
package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds an ECDSA key and produces EIP-191 personal signatures.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// FromHex creates a signer from a hex-encoded private key.
func FromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Address returns the checksummed address of the signing key.
func (s *Signer) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

// SignMessage signs msg with the EIP-191 personal-message prefix and returns
// the hex-encoded 65-byte signature.
func (s *Signer) SignMessage(msg []byte) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	// Recovery id in the 27/28 form wallet verifiers expect.
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
