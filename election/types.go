// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package election implements the local node decision kernel: the logic
// that, given an item identifier, determines whether the item is already
// settled, joins or starts an election for it, registers peer votes, and
// retires elections on completion.
package election

import (
	"time"

	"github.com/luxfi/ids"
)

// ItemId is the content-addressed identifier of an item submitted to the
// network for approval.
type ItemId = ids.ID

// NodeID identifies a peer (or the local node) participating in an
// election.
type NodeID = ids.NodeID

// ItemState is the tagged state of an item as seen by this node.
type ItemState uint8

const (
	// Pending means no decision has been reached yet and no votes lean
	// either way.
	Pending ItemState = iota
	// PendingPositive means votes lean toward approval but quorum has not
	// yet been reached.
	PendingPositive
	// PendingNegative means votes lean toward decline but quorum has not
	// yet been reached.
	PendingNegative
	// Approved is a terminal, persisted state.
	Approved
	// Declined is a terminal, persisted state.
	Declined
	// Revoked is a terminal, persisted state.
	Revoked
	// Undefined marks an item this node knows nothing about.
	Undefined
)

func (s ItemState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case PendingPositive:
		return "PENDING_POSITIVE"
	case PendingNegative:
		return "PENDING_NEGATIVE"
	case Approved:
		return "APPROVED"
	case Declined:
		return "DECLINED"
	case Revoked:
		return "REVOKED"
	case Undefined:
		return "UNDEFINED"
	default:
		return "INVALID"
	}
}

// Terminal reports whether the ledger may persist this state.
func (s ItemState) Terminal() bool {
	switch s {
	case Approved, Declined, Revoked:
		return true
	default:
		return false
	}
}

// Vote maps a caller-reported ItemState onto a boolean vote. ok is false
// for states that must be silently ignored (Pending, Undefined, or
// anything unrecognized).
func (s ItemState) Vote() (positive bool, ok bool) {
	switch s {
	case PendingPositive, Approved:
		return true, true
	case PendingNegative, Declined, Revoked:
		return false, true
	default:
		return false, false
	}
}

// StateRecord is the durable, terminal-only record the ledger persists.
type StateRecord struct {
	ItemId    ItemId     `json:"item_id"`
	State     ItemState  `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ItemResult is a read-only snapshot returned from the kernel.
type ItemResult struct {
	State     ItemState
	HaveCopy  bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Item is an arbitrary content-addressed object the network is asked to
// approve. The kernel only ever inspects its Id.
type Item interface {
	Id() ItemId
	Bytes() []byte
}

// ItemInfo is returned only to the local client that submitted an item.
type ItemInfo struct {
	Result ItemResult
	Item   Item
}

// OnDone is a completion callback invoked with the final ItemResult of an
// election, exactly once.
type OnDone func(ItemResult)
