// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import "context"

// RegisterItem submits item for approval and returns immediately with the
// current snapshot. This is the client-facing entry point; it is a thin
// adapter over ProcessCheckItem, the same way an SDK façade wraps an
// engine's real entry point.
func (k *Kernel) RegisterItem(item Item, onDone OnDone) (ItemInfo, error) {
	result, err := k.ProcessCheckItem(nil, item.Id(), nil, false, item, onDone)
	if err != nil {
		return ItemInfo{}, err
	}
	return ItemInfo{Result: result, Item: item}, nil
}

// RegisterItemAndWait submits item and blocks until its election reaches
// a decision, returning the final snapshot. Unlike the peer entry path,
// which logs an item-check failure and answers with the pending state,
// an unrecoverable check failure here is surfaced to the caller as an
// *ElectionError.
func (k *Kernel) RegisterItemAndWait(ctx context.Context, item Item) (ItemInfo, error) {
	info, err := k.RegisterItem(item, nil)
	if err != nil {
		return ItemInfo{}, err
	}

	e, ok := k.liveElection(item.Id())
	if !ok {
		// Finalized before we could look it up; the register snapshot is
		// already the final result.
		return info, nil
	}
	if err := e.WaitDone(ctx); err != nil {
		return ItemInfo{}, err
	}

	record := e.GetRecord()
	if checkErr := e.CheckErr(); checkErr != nil && !record.State.Terminal() {
		return ItemInfo{}, &ElectionError{ItemId: item.Id(), Err: checkErr}
	}
	info.Result = ItemResult{
		State:     record.State,
		HaveCopy:  e.GetItem() != nil,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
	return info, nil
}

// CheckItem is the cheap client probe: it consults only the ledger and
// never triggers election creation. A client polling with this probe
// alone cannot observe an in-flight election it did not itself start.
func (k *Kernel) CheckItem(itemId ItemId) (*ItemResult, error) {
	record, err := k.ledger.GetRecord(itemId)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return &ItemResult{
		State:     record.State,
		HaveCopy:  false,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// CheckItemFromPeer is the peer-to-peer entry point: it may create or
// join an election and register the peer's vote and source-node claim.
func (k *Kernel) CheckItemFromPeer(caller NodeID, itemId ItemId, callerState ItemState, callerHasCopy bool) (ItemResult, error) {
	return k.ProcessCheckItem(&caller, itemId, &callerState, callerHasCopy, nil, nil)
}

// WaitForItem blocks until a live election for itemId completes, then
// returns its record; if no election is live it returns the ledger
// record (or nil if the item is wholly unknown). Must not be exposed to
// remote peers: a remote caller blocking a connection handler on local
// quorum progress is a resource-exhaustion vector.
func (k *Kernel) WaitForItem(ctx context.Context, itemId ItemId) (*ItemResult, error) {
	if e, ok := k.liveElection(itemId); ok {
		if err := e.WaitDone(ctx); err != nil {
			return nil, err
		}
		record := e.GetRecord()
		result := ItemResult{
			State:     record.State,
			HaveCopy:  e.GetItem() != nil,
			CreatedAt: record.CreatedAt,
			ExpiresAt: record.ExpiresAt,
		}
		return &result, nil
	}
	return k.CheckItem(itemId)
}

// GetItem returns the item body only if an active election currently
// holds one.
func (k *Kernel) GetItem(itemId ItemId) Item {
	e, ok := k.liveElection(itemId)
	if !ok {
		return nil
	}
	return e.GetItem()
}

// Shutdown forces every live election to DONE via Close. It does not
// wait for their scheduled purges, which are harmless to run after
// shutdown: the map entries are either already gone or will be removed
// by the scheduled task. A subsequent RegisterItem for an item with no
// map entry creates a fresh election; one for an item whose closed
// election is still mapped gets that election's final result until the
// purge removes it.
func (k *Kernel) Shutdown() {
	k.checkLock.Lock()
	elections := make([]*Election, 0, len(k.elections))
	for _, e := range k.elections {
		elections = append(elections, e)
	}
	k.checkLock.Unlock()

	for _, e := range elections {
		e.Close()
	}
}
