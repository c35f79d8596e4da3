// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/election/config"
	"github.com/luxfi/election/metrics"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Kernel is the re-entrant, thread-safe dispatcher: it routes every
// incoming query (peer-driven or client-driven) to either a ledger
// lookup or an election, creating elections atomically.
//
// Kernel owns the elections map exclusively; an Election is shared with
// the kernel's background tasks. checkLock guards only the
// create-or-find decision in ProcessCheckItem, never I/O or a user
// callback.
type Kernel struct {
	ledger  Ledger
	network Network
	params  config.Parameters
	log     log.Logger
	fetcher Fetcher

	checkLock sync.Mutex
	elections map[ItemId]*Election

	metrics *metrics.Metrics
}

// NewKernel constructs a Kernel. reg may be nil, in which case metrics
// are not registered (useful for tests that construct many kernels).
func NewKernel(ledger Ledger, network Network, params config.Parameters, logger log.Logger, fetcher Fetcher, reg prometheus.Registerer) (*Kernel, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("election: failed to register kernel metrics: %w", err)
	}
	return &Kernel{
		ledger:    ledger,
		network:   network,
		params:    params,
		log:       logger,
		fetcher:   fetcher,
		elections: make(map[ItemId]*Election),
		metrics:   m,
	}, nil
}

// ProcessCheckItem is the single entry point all item checks funnel
// through. caller is nil when the call originates locally (e.g. from
// RegisterItem) rather than from a remote peer.
func (k *Kernel) ProcessCheckItem(caller *NodeID, itemId ItemId, callerState *ItemState, callerHasCopy bool, item Item, onDone OnDone) (ItemResult, error) {
	if item != nil && item.Id() != itemId {
		return ItemResult{}, ErrItemIdMismatch
	}

	// Step 1: fast path, live election.
	k.checkLock.Lock()
	e, live := k.elections[itemId]
	k.checkLock.Unlock()

	if !live {
		// Step 2: ledger lookup. A terminal record is authoritative.
		record, err := k.ledger.GetRecord(itemId)
		if err != nil {
			return ItemResult{}, err
		}
		if record != nil {
			result := ItemResult{
				State:     record.State,
				HaveCopy:  false,
				CreatedAt: record.CreatedAt,
				ExpiresAt: record.ExpiresAt,
			}
			if onDone != nil {
				onDone(result)
			}
			return result, nil
		}

		// Step 3: slow path, create election under the lock.
		k.checkLock.Lock()
		e, live = k.elections[itemId]
		if !live {
			e = NewElection(itemId, item, k.network, k.ledger, k.params, k.log, k.fetcher)
			k.elections[itemId] = e
			k.metrics.LiveElections.Inc()
		}
		k.checkLock.Unlock()

		if !live {
			// Step 4: start + purge scheduling, outside the lock.
			e.EnsureStarted()
			start := time.Now()
			e.OnDone(func(ItemResult) {
				k.metrics.DecisionTime.Observe(float64(time.Since(start)))
				maxTime := k.network.MaxElectionsTime()
				k.network.Schedule(maxTime, func() {
					k.purge(itemId, e)
				})
			})
		}
	}

	// Step 5: vote & source registration.
	if caller != nil && callerHasCopy {
		e.AddSourceNode(*caller)
	}
	if caller != nil && callerState != nil {
		if positive, ok := callerState.Vote(); ok {
			e.RegisterVote(*caller, positive)
		}
	}
	if onDone != nil {
		e.OnDone(onDone)
	}

	// Step 6: synchronous snapshot.
	record := e.GetRecord()
	return ItemResult{
		State:     record.State,
		HaveCopy:  e.GetItem() != nil,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// purge removes e from the elections map if it is still the live entry
// for itemId.
func (k *Kernel) purge(itemId ItemId, e *Election) {
	k.checkLock.Lock()
	defer k.checkLock.Unlock()
	if current, ok := k.elections[itemId]; ok && current == e {
		delete(k.elections, itemId)
		k.metrics.LiveElections.Dec()
		k.log.Debug("purged election", zap.Stringer("item", itemId))
	}
}

// liveElection returns the in-flight election for itemId, if any,
// without touching the ledger or creating an election. Used by
// client-surface reads that must observe in-flight state (WaitForItem,
// GetItem, RegisterItemAndWait).
func (k *Kernel) liveElection(itemId ItemId) (*Election, bool) {
	k.checkLock.Lock()
	defer k.checkLock.Unlock()
	e, ok := k.elections[itemId]
	return e, ok
}
