// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"errors"
	"fmt"

	"github.com/luxfi/election/codec"
	"github.com/luxfi/database"
)

// Ledger is the durable mapping from item identifier to a finalized
// StateRecord. It is read-only from the kernel's perspective; only an
// Election writes to it, and only on its transition to DONE.
//
// GetRecord never blocks on the kernel and is expected O(1); PutRecord
// is idempotent on (itemId, state).
type Ledger interface {
	GetRecord(id ItemId) (*StateRecord, error)
	PutRecord(record StateRecord) error
}

// DBLedger is a Ledger backed by any github.com/luxfi/database.Database
// key-value store. Rows are encoded with the shared codec package so the
// on-disk format is not ad hoc.
type DBLedger struct {
	db database.Database
}

// NewDBLedger wraps db as a Ledger.
func NewDBLedger(db database.Database) *DBLedger {
	return &DBLedger{db: db}
}

// GetRecord implements Ledger. A missing key is reported as (nil, nil);
// every other database error is propagated, never swallowed.
func (l *DBLedger) GetRecord(id ItemId) (*StateRecord, error) {
	raw, err := l.db.Get(id[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("election: ledger read %s: %w", id, err)
	}

	record := new(StateRecord)
	if _, err := codec.Codec.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("election: ledger decode %s: %w", id, err)
	}
	return record, nil
}

// PutRecord implements Ledger. Only terminal states are ever persisted;
// callers (Election.finalize) enforce that invariant.
func (l *DBLedger) PutRecord(record StateRecord) error {
	raw, err := codec.Codec.Marshal(codec.CurrentVersion, record)
	if err != nil {
		return fmt.Errorf("election: ledger encode %s: %w", record.ItemId, err)
	}
	if err := l.db.Put(record.ItemId[:], raw); err != nil {
		return fmt.Errorf("election: ledger write %s: %w", record.ItemId, err)
	}
	return nil
}
