// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package election

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/election/config"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func testKernel(t *testing.T, params config.Parameters, maxElectionsTime time.Duration) *Kernel {
	t.Helper()
	ledger := NewDBLedger(memdb.New())
	network := NewLocalNetwork(maxElectionsTime)
	k, err := NewKernel(ledger, network, params, nil, nil, nil)
	require.NoError(t, err)
	return k
}

var errFetchRefused = errors.New("peer refused to serve item")

type testItem struct {
	id    ItemId
	bytes []byte
}

func (i testItem) Id() ItemId    { return i.id }
func (i testItem) Bytes() []byte { return i.bytes }

func newItem(seed byte) (ItemId, Item) {
	var id ItemId
	id[0] = seed
	return id, testItem{id: id, bytes: []byte{seed}}
}

// Scenario 1: fresh submission, single node, positive.
func TestRegisterItem_FreshSubmissionPositive(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)

	id, item := newItem(1)
	var fired ItemResult
	done := make(chan struct{})
	info, err := k.RegisterItem(item, func(r ItemResult) {
		fired = r
		close(done)
	})
	require.NoError(t, err)
	require.Equal(t, Pending, info.Result.State)
	require.True(t, info.Result.HaveCopy)

	local := ids.BuildTestNodeID([]byte{1})
	_, err = k.CheckItemFromPeer(local, id, Approved, false)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("on_done never fired")
	}
	require.Equal(t, Approved, fired.State)

	record, err := k.ledger.GetRecord(id)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, Approved, record.State)
}

// Scenario 2: replay after finalization returns the ledger result
// synchronously and creates no election.
func TestCheckItem_ReplayAfterFinalization(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)

	id, item := newItem(2)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)
	require.NoError(t, k.ledger.PutRecord(StateRecord{ItemId: id, State: Approved, CreatedAt: time.Now()}))

	k.checkLock.Lock()
	delete(k.elections, id)
	k.checkLock.Unlock()

	var fired ItemResult
	result, err := k.ProcessCheckItem(nil, id, nil, false, nil, func(r ItemResult) { fired = r })
	require.NoError(t, err)
	require.Equal(t, Approved, result.State)
	require.False(t, result.HaveCopy)
	require.Equal(t, Approved, fired.State)

	k.checkLock.Lock()
	_, live := k.elections[id]
	k.checkLock.Unlock()
	require.False(t, live)
}

// Scenario 3: concurrent submissions of the same id (ten goroutines)
// create a single election and every callback fires exactly once.
func TestRegisterItem_ConcurrentRace(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 5}, time.Hour)
	id, item := newItem(3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fires := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := k.RegisterItem(item, func(ItemResult) {
				mu.Lock()
				fires++
				mu.Unlock()
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	k.checkLock.Lock()
	count := len(k.elections)
	e := k.elections[id]
	k.checkLock.Unlock()
	require.Equal(t, 1, count)

	e.Close()
	require.Equal(t, 10, fires)
}

// Scenario 4: a peer vote into a running election is added as a source
// and counted once; a repeat identical call does not double-count.
func TestCheckItemFromPeer_VoteAndSourceDedup(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 3, AlphaConfidence: 3}, time.Hour)
	id, item := newItem(4)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	peer := ids.BuildTestNodeID([]byte{9})
	_, err = k.CheckItemFromPeer(peer, id, PendingPositive, true)
	require.NoError(t, err)
	_, err = k.CheckItemFromPeer(peer, id, PendingPositive, true)
	require.NoError(t, err)

	k.checkLock.Lock()
	e := k.elections[id]
	k.checkLock.Unlock()
	require.Equal(t, 1, e.tally.Count(true))
	require.Len(t, e.sources, 1)
}

func TestCheckItemFromPeer_RevokedCountsAsNegativeVote(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 3, AlphaConfidence: 3}, time.Hour)
	id, item := newItem(5)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	peer := ids.BuildTestNodeID([]byte{7})
	_, err = k.CheckItemFromPeer(peer, id, Revoked, false)
	require.NoError(t, err)

	e, ok := k.liveElection(id)
	require.True(t, ok)
	require.Equal(t, 1, e.tally.Count(false))
	require.Equal(t, 0, e.tally.Count(true))
	require.Equal(t, PendingNegative, e.GetRecord().State)
}

func TestCheckItemFromPeer_UndefinedIsSilentlyIgnored(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 3, AlphaConfidence: 3}, time.Hour)
	id, item := newItem(6)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	peer := ids.BuildTestNodeID([]byte{8})
	_, err = k.CheckItemFromPeer(peer, id, Undefined, false)
	require.NoError(t, err)

	e, ok := k.liveElection(id)
	require.True(t, ok)
	require.Zero(t, e.tally.Len())
	require.Equal(t, Pending, e.GetRecord().State)
}

// Scenario 5: late download. The election finalizes without ever
// holding the item body.
func TestElection_LateDownload(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id := ItemId{5}

	result, err := k.ProcessCheckItem(nil, id, nil, false, nil, nil)
	require.NoError(t, err)
	require.False(t, result.HaveCopy)

	k.checkLock.Lock()
	e := k.elections[id]
	k.checkLock.Unlock()
	e.EmulateLateDownload = true

	local := ids.BuildTestNodeID([]byte{1})
	_, err = k.CheckItemFromPeer(local, id, Approved, false)
	require.NoError(t, err)

	require.Nil(t, k.GetItem(id))
	require.Equal(t, Approved, e.GetRecord().State)
}

// Scenario 6: shutdown transitions every live election to DONE exactly
// once and leaves no zombies behind.
func TestShutdown_ClosesLiveElections(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 5, AlphaConfidence: 5}, time.Hour)

	var fires int32
	var mu sync.Mutex
	for i := byte(0); i < 2; i++ {
		_, item := newItem(10 + i)
		_, err := k.RegisterItem(item, func(ItemResult) {
			mu.Lock()
			fires++
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	k.Shutdown()

	mu.Lock()
	require.EqualValues(t, 2, fires)
	mu.Unlock()

	id, item := newItem(20)
	info, err := k.RegisterItem(item, nil)
	require.NoError(t, err)
	require.Equal(t, Pending, info.Result.State)

	k.checkLock.Lock()
	_, live := k.elections[id]
	k.checkLock.Unlock()
	require.True(t, live)
}

func TestRegisterItem_SecondCallJoinsSameElection(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 3, AlphaConfidence: 3}, time.Hour)
	id, item := newItem(70)

	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)
	first, ok := k.liveElection(id)
	require.True(t, ok)

	_, err = k.RegisterItem(item, nil)
	require.NoError(t, err)
	second, ok := k.liveElection(id)
	require.True(t, ok)
	require.Same(t, first, second)
}

func TestProcessCheckItem_HaveCopyWithoutCallerIsSkipped(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 3, AlphaConfidence: 3}, time.Hour)
	id, item := newItem(71)

	_, err := k.ProcessCheckItem(nil, id, nil, true, item, nil)
	require.NoError(t, err)

	e, ok := k.liveElection(id)
	require.True(t, ok)
	require.Empty(t, e.sources)
}

func TestKernel_PurgesElectionAfterMaxElectionsTime(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, 20*time.Millisecond)
	id, item := newItem(72)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	local := ids.BuildTestNodeID([]byte{1})
	_, err = k.CheckItemFromPeer(local, id, Approved, false)
	require.NoError(t, err)

	// The entry stays through the post-DONE grace window, then goes.
	require.Eventually(t, func() bool {
		_, live := k.liveElection(id)
		return !live
	}, time.Second, 5*time.Millisecond)

	record, err := k.ledger.GetRecord(id)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, Approved, record.State)
}

func TestCheckItem_NeverCreatesElection(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id := ItemId{30}

	result, err := k.CheckItem(id)
	require.NoError(t, err)
	require.Nil(t, result)

	k.checkLock.Lock()
	count := len(k.elections)
	k.checkLock.Unlock()
	require.Zero(t, count)
}

func TestWaitForItem_BlocksUntilDone(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id, item := newItem(40)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		local := ids.BuildTestNodeID([]byte{1})
		_, _ = k.CheckItemFromPeer(local, id, Declined, false)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := k.WaitForItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, Declined, result.State)
}

func TestRegisterItemAndWait_ReturnsFinalResult(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id, item := newItem(60)

	go func() {
		time.Sleep(10 * time.Millisecond)
		local := ids.BuildTestNodeID([]byte{1})
		_, _ = k.CheckItemFromPeer(local, id, Approved, false)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	info, err := k.RegisterItemAndWait(ctx, item)
	require.NoError(t, err)
	require.Equal(t, Approved, info.Result.State)
	require.True(t, info.Result.HaveCopy)
}

func TestRegisterItemAndWait_SurfacesItemCheckFailure(t *testing.T) {
	ledger := NewDBLedger(memdb.New())
	network := NewLocalNetwork(50 * time.Millisecond)
	fetcher := func(context.Context, ItemId, []NodeID) ([]byte, error) {
		return nil, errFetchRefused
	}
	k, err := NewKernel(ledger, network, config.Parameters{K: 3, AlphaConfidence: 3}, nil, fetcher, nil)
	require.NoError(t, err)

	id, item := newItem(61)
	peer := ids.BuildTestNodeID([]byte{2})
	_, err = k.CheckItemFromPeer(peer, id, Pending, true)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = k.RegisterItemAndWait(ctx, item)
	require.Error(t, err)
	electionErr := &ElectionError{}
	require.ErrorAs(t, err, &electionErr)
	require.Equal(t, id, electionErr.ItemId)
	require.ErrorIs(t, electionErr, errFetchRefused)
}

func TestWaitForItem_CancellationDoesNotStopElection(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id, item := newItem(62)
	_, err := k.RegisterItem(item, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.WaitForItem(ctx, id)
	require.ErrorIs(t, err, context.Canceled)

	local := ids.BuildTestNodeID([]byte{1})
	_, err = k.CheckItemFromPeer(local, id, Approved, false)
	require.NoError(t, err)

	result, err := k.WaitForItem(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, Approved, result.State)
}

func TestProcessCheckItem_ItemIdMismatch(t *testing.T) {
	k := testKernel(t, config.Parameters{K: 1, AlphaConfidence: 1}, time.Hour)
	id, _ := newItem(50)
	_, item2 := newItem(51)

	_, err := k.ProcessCheckItem(nil, id, nil, false, item2, nil)
	require.ErrorIs(t, err, ErrItemIdMismatch)
}
