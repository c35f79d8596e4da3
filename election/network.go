// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"sync"
	"time"
)

// Network is the collaborator that provides peer addressing, the
// network-wide election ceiling T_max, and a delayed-task scheduler. The
// decision kernel depends only on this narrow surface; the wire
// transport to peer nodes is supplied by the caller.
type Network interface {
	// MaxElectionsTime returns T_max, the ceiling used both to force a
	// timed-out election to DONE and to schedule its post-completion
	// purge.
	MaxElectionsTime() time.Duration

	// Schedule enqueues task to run after delay on a shared pool.
	// Ordering between tasks of equal delay is unspecified.
	Schedule(delay time.Duration, task func())

	// Peers returns the currently known peer set.
	Peers() []NodeID

	// Size returns len(Peers()).
	Size() int

	// CheckState reports how many peers the given reporter currently
	// considers active. Unused by the decision kernel itself; surfaced
	// to clients as a network-health probe.
	CheckState(reporter NodeID) int
}

// LocalNetwork is a Network backed by an in-process timer pool, suitable
// for a single node or for tests. Real deployments would swap this for a
// transport-backed implementation.
type LocalNetwork struct {
	maxElectionsTime time.Duration

	mu    sync.Mutex
	peers map[NodeID]struct{}
}

// NewLocalNetwork returns a Network with the given T_max and no peers.
func NewLocalNetwork(maxElectionsTime time.Duration) *LocalNetwork {
	return &LocalNetwork{
		maxElectionsTime: maxElectionsTime,
		peers:            make(map[NodeID]struct{}),
	}
}

func (n *LocalNetwork) MaxElectionsTime() time.Duration { return n.maxElectionsTime }

// Schedule enqueues task on Go's runtime timer pool. Ordering among
// equal-delay tasks is left to the runtime.
func (n *LocalNetwork) Schedule(delay time.Duration, task func()) {
	time.AfterFunc(delay, task)
}

// AddPeer registers a peer as known to this network view.
func (n *LocalNetwork) AddPeer(id NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[id] = struct{}{}
}

func (n *LocalNetwork) Peers() []NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()
	peers := make([]NodeID, 0, len(n.peers))
	for id := range n.peers {
		peers = append(peers, id)
	}
	return peers
}

func (n *LocalNetwork) Size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

// CheckState reports the number of known peers, ignoring the identity of
// the reporter; a real transport would narrow this to peers the
// reporter can currently reach.
func (n *LocalNetwork) CheckState(NodeID) int {
	return n.Size()
}
