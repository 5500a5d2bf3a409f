// Package snapshot holds the canonical wallet-connection state and hands out
// immutable snapshots of it.
//
// # Purpose
//
// A sign-in flow spans several suspend points owned by the wallet (signature
// prompt, network round-trips). The wallet can switch chain, switch account or
// disconnect at any of them. The flow "locks" a snapshot at the start and compares
// it against a fresh one at each step boundary:
//
//	locked := store.Capture()
//	// ... request signature ...
//	if !store.ValidateState(locked, store.Capture(), "after-signature") {
//	    // abort: wallet state drifted since the lock point
//	}
//
// # Sequence numbers
//
// Every mutator (Connect, Disconnect, UpdateConnectionState) bumps a monotonic
// counter exactly once, even if nothing observable changed. The counter is a
// freshness proxy for diagnostics; drift validation only compares the connected
// flag, address and chain id.
package snapshot

import "errors"

// Initial-state validation failures, checked in this order.
var (
	ErrConnectionInvalid = errors.New("Wallet connection state invalid")
	ErrAddressMismatch   = errors.New("Wallet address mismatch")
	ErrChainIDNotFound   = errors.New("ChainId not found")
)

// ChangeFunc is invoked after every mutation with the new snapshot.
type ChangeFunc func(s Snapshot)
