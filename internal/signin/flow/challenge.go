package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const challengeVersion = "1"

// Challenge is the sign-in message presented to the wallet.
type Challenge struct {
	Domain    string    `json:"domain"`
	Address   string    `json:"address"`
	Statement string    `json:"statement,omitempty"`
	URI       string    `json:"uri"`
	Version   string    `json:"version"`
	ChainID   int64     `json:"chain_id"`
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
}

// newChallenge builds a challenge for address on chainID. The address is
// rendered with its EIP-55 checksum.
func newChallenge(cfg Config, address string, chainID int64, issuedAt time.Time) Challenge {
	return Challenge{
		Domain:    cfg.Domain,
		Address:   common.HexToAddress(address).Hex(),
		Statement: cfg.Statement,
		URI:       cfg.URI,
		Version:   challengeVersion,
		ChainID:   chainID,
		Nonce:     newNonce(),
		IssuedAt:  issuedAt.UTC(),
	}
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Text renders the challenge in EIP-4361 message format.
func (c Challenge) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n%s\n\n", c.Domain, c.Address)
	if c.Statement != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Statement)
	}
	fmt.Fprintf(&b, "URI: %s\n", c.URI)
	fmt.Fprintf(&b, "Version: %s\n", c.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", c.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", c.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", c.IssuedAt.Format(time.RFC3339))
	return b.String()
}
