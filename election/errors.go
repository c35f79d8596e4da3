// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import "errors"

// Sentinel errors surfaced by the kernel and its collaborators.
var (
	// ErrItemIdMismatch is an invariant violation: the caller supplied
	// both an item body and an item_id and they disagree. Treated as a
	// programming error, not a runtime condition.
	ErrItemIdMismatch = errors.New("election: item.id does not match item_id")
)

// ElectionError wraps the item-check failure (a failed body fetch from
// the source nodes) still standing when an election ends without a
// terminal decision. It is propagated to a local register-and-wait
// caller; the peer-facing entry path logs it and answers with the
// pending snapshot instead.
type ElectionError struct {
	ItemId ItemId
	Err    error
}

func (e *ElectionError) Error() string {
	return "election: item check failed for " + e.ItemId.String() + ": " + e.Err.Error()
}

func (e *ElectionError) Unwrap() error { return e.Err }
