// Package wallet adapts external wallet events onto the connection snapshot store.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/authguard/internal/core/snapshot"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidChainID = errors.New("invalid chain id")
	ErrNotConnected   = errors.New("wallet not connected")
)

// Connector is the wallet connection capability. It validates incoming events
// and forwards them to the snapshot store, which stays the only state holder.
type Connector struct {
	store *snapshot.Store
	log   *slog.Logger
}

// NewConnector creates a connector over store.
func NewConnector(store *snapshot.Store, log *slog.Logger) *Connector {
	if log == nil {
		log = slog.Default()
	}
	return &Connector{
		store: store,
		log:   log.With("component", "wallet"),
	}
}

// Connect records a connected account. The address is stored exactly as the
// wallet reported it.
func (c *Connector) Connect(address string, chainID int64) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if chainID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}

	c.store.Connect(address, chainID)
	c.log.Info("Wallet connected", "address", address, "chain_id", chainID)
	return nil
}

// SwitchChain records a chain switch of the connected account.
func (c *Connector) SwitchChain(chainID int64) error {
	if chainID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChainID, chainID)
	}
	snap := c.store.Capture()
	if !snap.IsConnected {
		return ErrNotConnected
	}

	c.store.UpdateConnectionState(true, snap.Address, &chainID)
	c.log.Info("Wallet chain switched", "address", snap.Address, "chain_id", chainID)
	return nil
}

// Disconnect clears the connection. Disconnecting an already disconnected
// wallet still counts as a state change.
func (c *Connector) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.Disconnect()
	c.log.Info("Wallet disconnected")
	return nil
}
