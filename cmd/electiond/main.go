// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command electiond is a thin, collaborator-stub CLI for exercising a
// single node's decision kernel by hand: it wires a Kernel to an
// in-memory ledger and a local (single-process) network, then reads
// line-oriented commands from stdin. No wire protocol is implemented
// here; this is a manual test harness, not a peer-reachable node.
package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/election/election"
	"github.com/luxfi/election/config"
	"github.com/luxfi/log"
)

type namedItem struct {
	id    election.ItemId
	bytes []byte
}

func (i namedItem) Id() election.ItemId { return i.id }
func (i namedItem) Bytes() []byte       { return i.bytes }

func itemIdFor(name string) election.ItemId {
	sum := sha256.Sum256([]byte(name))
	var id election.ItemId
	copy(id[:], sum[:])
	return id
}

func nodeIdFor(name string) election.NodeID {
	sum := sha256.Sum256([]byte("peer:" + name))
	var id election.NodeID
	copy(id[:], sum[:])
	return id
}

func main() {
	maxElectionsTime := flag.Duration("max-election-time", 10*time.Second, "T_max: election ceiling and purge grace window")
	network := flag.String("network", "local", "preset parameters: mainnet, testnet, or local")
	flag.Parse()

	var params config.Parameters
	switch *network {
	case "mainnet":
		params = config.Mainnet()
	case "testnet":
		params = config.Testnet()
	default:
		params = config.Local()
	}

	logger := log.NewNoOpLogger()
	net := election.NewLocalNetwork(*maxElectionsTime)
	ledger := election.NewDBLedger(memdb.New())
	kernel, err := election.NewKernel(ledger, net, params, logger, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "electiond: failed to start kernel:", err)
		os.Exit(1)
	}

	fmt.Printf("electiond: K=%d alphaConfidence=%d T_max=%s\n", params.K, params.AlphaConfidence, *maxElectionsTime)
	fmt.Println("commands: register <name> | check <name> | vote <peer> <name> <approve|decline> <haveCopy> | wait <name> | shutdown")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "register":
			if len(fields) != 2 {
				fmt.Println("usage: register <name>")
				continue
			}
			id := itemIdFor(fields[1])
			item := namedItem{id: id, bytes: []byte(fields[1])}
			info, err := kernel.RegisterItem(item, func(r election.ItemResult) {
				fmt.Printf("[%s] decided: %s\n", fields[1], r.State)
			})
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%s -> %s (have_copy=%v)\n", fields[1], info.Result.State, info.Result.HaveCopy)

		case "check":
			if len(fields) != 2 {
				fmt.Println("usage: check <name>")
				continue
			}
			result, err := kernel.CheckItem(itemIdFor(fields[1]))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if result == nil {
				fmt.Printf("%s -> unknown (no ledger record)\n", fields[1])
				continue
			}
			fmt.Printf("%s -> %s\n", fields[1], result.State)

		case "vote":
			if len(fields) != 5 {
				fmt.Println("usage: vote <peer> <name> <approve|decline> <haveCopy>")
				continue
			}
			peer := nodeIdFor(fields[1])
			var state election.ItemState
			switch fields[3] {
			case "approve":
				state = election.Approved
			case "decline":
				state = election.Declined
			default:
				fmt.Println("vote must be approve or decline")
				continue
			}
			haveCopy, _ := strconv.ParseBool(fields[4])
			result, err := kernel.CheckItemFromPeer(peer, itemIdFor(fields[2]), state, haveCopy)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%s -> %s (have_copy=%v)\n", fields[2], result.State, result.HaveCopy)

		case "wait":
			if len(fields) != 2 {
				fmt.Println("usage: wait <name>")
				continue
			}
			result, err := kernel.WaitForItem(context.Background(), itemIdFor(fields[1]))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if result == nil {
				fmt.Printf("%s -> unknown\n", fields[1])
				continue
			}
			fmt.Printf("%s -> %s\n", fields[1], result.State)

		case "shutdown":
			kernel.Shutdown()
			fmt.Println("all live elections closed")

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
