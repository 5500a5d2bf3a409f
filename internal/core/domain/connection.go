package domain

// ConnectionSnapshot is an immutable read of the wallet connection at one instant.
// Timestamp (unix millis) and SequenceNumber are freshness metadata and are not part
// of the connection identity.
type ConnectionSnapshot struct {
	IsConnected    bool   `json:"is_connected"`
	Address        string `json:"address,omitempty"` // empty = no address
	ChainID        *int64 `json:"chain_id,omitempty"`
	Timestamp      int64  `json:"timestamp"`
	SequenceNumber uint64 `json:"sequence_number"`
}

// HasChainID reports whether a chain id is known.
func (s ConnectionSnapshot) HasChainID() bool {
	return s.ChainID != nil
}

// SameIdentity compares connected flag, address and chain id only.
func (s ConnectionSnapshot) SameIdentity(other ConnectionSnapshot) bool {
	if s.IsConnected != other.IsConnected || s.Address != other.Address {
		return false
	}
	if s.ChainID == nil || other.ChainID == nil {
		return s.ChainID == nil && other.ChainID == nil
	}
	return *s.ChainID == *other.ChainID
}

// ChainIDPtr is a small helper for building snapshots and mutator calls.
func ChainIDPtr(id int64) *int64 {
	return &id
}
