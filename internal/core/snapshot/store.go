package snapshot

import (
	"log/slog"
	"sync"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
)

// Snapshot is re-exported for callers that only deal with this package.
type Snapshot = domain.ConnectionSnapshot

// Store is the single source of truth for the wallet connection.
type Store struct {
	mu          sync.RWMutex
	isConnected bool
	address     string
	chainID     *int64
	sequence    uint64

	clock    clock.Clock
	log      *slog.Logger
	onChange ChangeFunc
}

// NewStore creates a disconnected store.
func NewStore(clk clock.Clock, log *slog.Logger) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		clock: clk,
		log:   log.With("component", "snapshot"),
	}
}

// SetChangeCallback registers a callback for every mutation.
func (s *Store) SetChangeCallback(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Capture reads the current state. It never blocks on I/O and has no side effects.
func (s *Store) Capture() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Connect marks the wallet connected with the given identity.
func (s *Store) Connect(address string, chainID int64) {
	s.mutate(true, address, &chainID)
}

// Disconnect clears the connection identity.
func (s *Store) Disconnect() {
	s.mutate(false, "", nil)
}

// UpdateConnectionState overwrites all identity fields.
func (s *Store) UpdateConnectionState(isConnected bool, address string, chainID *int64) {
	s.mutate(isConnected, address, chainID)
}

func (s *Store) mutate(isConnected bool, address string, chainID *int64) {
	s.mu.Lock()
	s.isConnected = isConnected
	s.address = address
	if chainID != nil {
		id := *chainID
		s.chainID = &id
	} else {
		s.chainID = nil
	}
	s.sequence++
	snap := s.snapshotLocked()
	cb := s.onChange
	s.mu.Unlock()

	s.log.Debug("Connection state updated",
		"connected", snap.IsConnected,
		"address", snap.Address,
		"sequence", snap.SequenceNumber,
	)
	if cb != nil {
		cb(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	var chainID *int64
	if s.chainID != nil {
		id := *s.chainID
		chainID = &id
	}
	return Snapshot{
		IsConnected:    s.isConnected,
		Address:        s.address,
		ChainID:        chainID,
		Timestamp:      s.clock.Now().UnixMilli(),
		SequenceNumber: s.sequence,
	}
}

// ValidateInitialState checks that the flow may start for expectedAddress.
// The first failing check wins: connection, then address (case-sensitive), then chain id.
func (s *Store) ValidateInitialState(expectedAddress string) error {
	snap := s.Capture()

	if !snap.IsConnected {
		return ErrConnectionInvalid
	}
	if snap.Address != expectedAddress {
		return ErrAddressMismatch
	}
	if !snap.HasChainID() {
		return ErrChainIDNotFound
	}
	return nil
}

// ValidateState reports whether the connection identity is unchanged between the
// locked and current snapshots. checkpoint is only used for logging. A false
// result means the caller must abort the flow; it must not retry automatically.
func (s *Store) ValidateState(locked, current Snapshot, checkpoint string) bool {
	if locked.SameIdentity(current) {
		s.log.Debug("State validated", "checkpoint", checkpoint, "sequence", current.SequenceNumber)
		return true
	}

	s.log.Warn("Wallet state drifted",
		"checkpoint", checkpoint,
		"locked_sequence", locked.SequenceNumber,
		"current_sequence", current.SequenceNumber,
		"locked_connected", locked.IsConnected,
		"current_connected", current.IsConnected,
		"locked_address", locked.Address,
		"current_address", current.Address,
	)
	return false
}
