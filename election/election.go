// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/election/config"
	"github.com/luxfi/election/utils/bag"
	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// Phase is the lifecycle stage of an Election.
type Phase uint8

const (
	// Created is the phase immediately after construction, before
	// ensureStarted has run.
	Created Phase = iota
	// Started means the initial item check has fired.
	Started
	// Deciding means votes are being tallied toward a quorum.
	Deciding
	// Done is terminal; the record is final and observers have (or are
	// about to have) been notified exactly once.
	Done
)

// Fetcher retrieves an item's body from one of its source nodes. It is a
// collaborator stub: the cryptographic item format and the transport
// used to actually pull bytes from a peer are supplied by the caller.
type Fetcher func(ctx context.Context, id ItemId, sources []NodeID) ([]byte, error)

// Election is the per-item state machine. It gathers peer votes,
// optionally fetches the item body, reaches a decision, writes the
// result to the ledger, and notifies observers.
//
// An Election is shared between the kernel and background tasks (the
// vote/fetch path and the scheduled purge); its internal mutex is
// independent of the kernel's map-creation mutex.
type Election struct {
	id      ItemId
	params  config.Parameters
	network Network
	ledger  Ledger
	log     log.Logger
	fetcher Fetcher

	// EmulateLateDownload forces the election to behave as though the
	// item body could never be retrieved, even once quorum is reached.
	// Testing-only switch.
	EmulateLateDownload bool

	mu        sync.Mutex
	phase     Phase
	item      Item
	sources   []NodeID
	fetching  bool
	checkErr  error
	voted     map[NodeID]bool // first-write-wins de-duplication
	tally     bag.Bag[bool]
	record    StateRecord
	observers []OnDone

	done     chan struct{}
	doneOnce sync.Once
}

// NewElection constructs an Election in CREATED phase. Pass either an
// item body (fetched bytes already known) or just its id; when only an
// id is given, the body is retrieved lazily from source nodes once
// ensureStarted runs.
func NewElection(id ItemId, item Item, network Network, ledger Ledger, params config.Parameters, logger log.Logger, fetcher Fetcher) *Election {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Election{
		id:      id,
		item:    item,
		network: network,
		ledger:  ledger,
		params:  params,
		log:     logger,
		fetcher: fetcher,
		voted:   make(map[NodeID]bool),
		tally:   bag.New[bool](),
		record:  StateRecord{ItemId: id, State: Pending, CreatedAt: time.Now()},
		done:    make(chan struct{}),
	}
}

// Id returns the item identifier this election decides.
func (e *Election) Id() ItemId { return e.id }

// EnsureStarted is idempotent: it transitions CREATED -> STARTED and
// fires the initial item check. It must be called outside the kernel's
// checkLock since the item check may be lengthy.
func (e *Election) EnsureStarted() {
	e.mu.Lock()
	if e.phase != Created {
		e.mu.Unlock()
		return
	}
	e.phase = Started
	e.mu.Unlock()

	e.log.Debug("starting election", zap.Stringer("item", e.id))

	e.maybeFetch()

	e.mu.Lock()
	e.phase = Deciding
	e.mu.Unlock()

	if maxTime := e.network.MaxElectionsTime(); maxTime > 0 {
		e.network.Schedule(maxTime, e.forceTimeout)
	}
}

// maybeFetch launches a background body retrieval if one is needed,
// possible, and not already in flight.
func (e *Election) maybeFetch() {
	if e.EmulateLateDownload || e.fetcher == nil {
		return
	}
	e.mu.Lock()
	start := e.phase != Done && e.item == nil && !e.fetching && len(e.sources) > 0
	if start {
		e.fetching = true
	}
	e.mu.Unlock()
	if start {
		go e.fetchItem()
	}
}

// fetchItem runs the collaborator Fetcher in the background; a failure
// is not fatal to the election, it only means GetItem keeps returning
// nil, a decision can still finalize on votes alone. A later source
// addition retries the fetch.
func (e *Election) fetchItem() {
	e.mu.Lock()
	sources := append([]NodeID(nil), e.sources...)
	e.mu.Unlock()

	raw, err := e.fetcher(context.Background(), e.id, sources)

	e.mu.Lock()
	e.fetching = false
	if err != nil {
		e.checkErr = err
		e.mu.Unlock()
		e.log.Debug("item fetch failed", zap.Stringer("item", e.id), zap.Error(err))
		return
	}
	e.checkErr = nil
	if e.item == nil {
		e.item = rawItem{id: e.id, bytes: raw}
	}
	e.mu.Unlock()
}

// rawItem is the Item implementation used when only bytes (not a typed
// Item) were recovered from a peer.
type rawItem struct {
	id    ItemId
	bytes []byte
}

func (r rawItem) Id() ItemId    { return r.id }
func (r rawItem) Bytes() []byte { return r.bytes }

// AddSourceNode appends peer to the set used when the body must be
// fetched; if the election is already running without a body, this
// triggers a retrieval attempt. A source addition after DONE is
// silently dropped.
func (e *Election) AddSourceNode(peer NodeID) {
	e.mu.Lock()
	if e.phase == Done {
		e.mu.Unlock()
		return
	}
	for _, s := range e.sources {
		if s == peer {
			e.mu.Unlock()
			return
		}
	}
	e.sources = append(e.sources, peer)
	started := e.phase != Created
	e.mu.Unlock()

	if started {
		e.maybeFetch()
	}
}

// RegisterVote records a vote from peer. Subsequent votes from the same
// peer are ignored (first-write-wins); a vote registered after DONE is
// silently dropped.
func (e *Election) RegisterVote(peer NodeID, positive bool) {
	e.mu.Lock()
	if e.phase == Done {
		e.mu.Unlock()
		return
	}
	if _, seen := e.voted[peer]; seen {
		e.mu.Unlock()
		return
	}
	e.voted[peer] = positive
	e.tally.Add(positive)

	positives := e.tally.Count(true)
	negatives := e.tally.Count(false)
	alpha := e.params.AlphaConfidence
	if alpha <= 0 {
		alpha = 1
	}

	switch {
	case positives >= alpha:
		e.mu.Unlock()
		e.finalize(Approved)
		return
	case negatives >= alpha:
		e.mu.Unlock()
		e.finalize(Declined)
		return
	case positives > 0:
		e.record.State = PendingPositive
	case negatives > 0:
		e.record.State = PendingNegative
	}
	e.mu.Unlock()
}

// forceTimeout is invoked T_max after EnsureStarted if quorum was never
// reached; it decides from the best available evidence.
func (e *Election) forceTimeout() {
	e.mu.Lock()
	if e.phase == Done {
		e.mu.Unlock()
		return
	}
	votes := e.tally.Len()
	positives := e.tally.Count(true)
	negatives := e.tally.Count(false)
	e.mu.Unlock()

	switch {
	case votes == 0:
		e.finalize(Undefined)
	case positives >= negatives:
		e.finalize(Approved)
	default:
		e.finalize(Declined)
	}
}

// finalize transitions the election to DONE, persists terminal states to
// the ledger, and notifies every observer exactly once.
func (e *Election) finalize(state ItemState) {
	e.mu.Lock()
	if e.phase == Done {
		e.mu.Unlock()
		return
	}
	e.phase = Done
	e.record.State = state
	record := e.record
	observers := e.observers
	e.observers = nil
	e.mu.Unlock()

	if state.Terminal() {
		if err := e.ledger.PutRecord(record); err != nil {
			e.log.Error("failed to persist election result", zap.Stringer("item", e.id), zap.Error(err))
		}
	}

	e.doneOnce.Do(func() { close(e.done) })

	result := e.snapshot(record)
	for _, obs := range observers {
		obs(result)
	}
}

func (e *Election) snapshot(record StateRecord) ItemResult {
	return ItemResult{
		State:     record.State,
		HaveCopy:  e.GetItem() != nil,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}

// OnDone registers callback. If the election is still running, callback
// is appended to the observer list; if DONE has already been reached,
// callback is invoked synchronously with the final result. Observers are
// not deduplicated: registering the same callback twice yields two
// invocations.
func (e *Election) OnDone(callback OnDone) {
	e.mu.Lock()
	if e.phase != Done {
		e.observers = append(e.observers, callback)
		e.mu.Unlock()
		return
	}
	record := e.record
	e.mu.Unlock()
	callback(e.snapshot(record))
}

// GetItem returns the item body if known, else nil.
func (e *Election) GetItem() Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item
}

// GetRecord returns the current StateRecord, which may still be Pending.
func (e *Election) GetRecord() StateRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

// CheckErr returns the most recent unrecovered item-check failure, or
// nil. A successful retry clears it.
func (e *Election) CheckErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkErr
}

// WaitDone blocks until DONE, or returns ctx.Err() if ctx is canceled
// first.
func (e *Election) WaitDone(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close forces a transition to DONE, invoking observers exactly once. A
// terminal state is kept; any non-terminal state (Pending,
// PendingPositive, PendingNegative) is replaced by Undefined. Safe to
// call more than once or concurrently with a natural finalize.
func (e *Election) Close() {
	e.mu.Lock()
	current := e.record.State
	e.mu.Unlock()
	if current.Terminal() {
		e.finalize(current)
		return
	}
	e.finalize(Undefined)
}
