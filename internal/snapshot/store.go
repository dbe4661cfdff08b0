// Package snapshot holds the already-fetched governance collections the core
// computes over, and reloads them from disk dumps when the host application
// works offline. Snapshots are immutable; a refresh replaces the whole
// snapshot and notifies subscribers so they recompute.
package snapshot

import (
	"sync"
	"time"

	"github.com/pimsight/go-core/pkg/types"
)

// Snapshot is one immutable set of fetched collections.
type Snapshot struct {
	Roles  []types.RoleDetailData
	Groups []types.PimGroupData
	// AuthContexts maps authentication-context ids to display names.
	AuthContexts map[string]string
	FetchedAt    time.Time
}

// Store holds the current snapshot behind a pointer swap. Reads never block
// writers for longer than the swap.
type Store struct {
	mu       sync.RWMutex
	current  *Snapshot
	notifier *Notifier
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		current:  &Snapshot{},
		notifier: NewNotifier(),
	}
}

// Current returns the current snapshot. The returned value must be treated
// as read-only; it is shared with every other reader.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new snapshot wholesale and notifies subscribers. A nil
// snapshot resets to empty.
func (s *Store) Replace(snap *Snapshot) {
	if snap == nil {
		snap = &Snapshot{}
	}
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.notifier.Publish(ReplacedEvent{
		Timestamp:  time.Now(),
		FetchedAt:  snap.FetchedAt,
		RoleCount:  len(snap.Roles),
		GroupCount: len(snap.Groups),
	})
}

// Notifier returns the store's replace notifier.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}
