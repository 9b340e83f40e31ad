// Package chain implements the block tree: longest-chain selection,
// reorganization, and the state update triggered by block application.
package chain

import (
	"sync"
	"time"

	"github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/logging"
	"github.com/pillaiarjun/driftnode/pkg/state"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

var log = logging.For("chain")

// ChainStore is the block tree plus the derived ledger state. It is
// guarded by a single mutex held across insert, update-state, and the
// miner's full assemble-and-insert attempt (spec §5's documented lock
// order: chain store before mempool).
type ChainStore struct {
	mu sync.Mutex

	allBlocks map[chainhash.Hash256]block.Record
	canonical map[chainhash.Hash256]block.Block

	tip    chainhash.Hash256
	height uint32

	currentState state.State
	addressList  []chainhash.Hash160
}

// New constructs a store containing only the genesis block.
func New() *ChainStore {
	genesis := block.Genesis()
	h := genesis.Hash()
	cs := &ChainStore{
		allBlocks:    make(map[chainhash.Hash256]block.Record),
		canonical:    make(map[chainhash.Hash256]block.Block),
		tip:          h,
		height:       0,
		currentState: state.New(),
	}
	cs.allBlocks[h] = block.Record{Block: genesis, Height: 0}
	cs.canonical[h] = genesis
	return cs
}

// Lock and Unlock expose the store's mutex so the miner can hold it
// across its full read-parent/assemble/insert attempt, as spec §5
// requires.
func (cs *ChainStore) Lock()   { cs.mu.Lock() }
func (cs *ChainStore) Unlock() { cs.mu.Unlock() }

// Tip returns the current chain head. It takes the store's mutex itself;
// a caller that already holds the lock uses TipLocked instead.
func (cs *ChainStore) Tip() chainhash.Hash256 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.tipLocked()
}

// TipLocked is Tip's body for a caller that already holds the store's
// mutex — the miner's assemble-and-insert attempt reads tip while
// holding the lock across the whole attempt (spec §5) and must not
// re-lock the non-reentrant mutex by calling Tip() itself.
func (cs *ChainStore) TipLocked() chainhash.Hash256 {
	return cs.tipLocked()
}

func (cs *ChainStore) tipLocked() chainhash.Hash256 {
	return cs.tip
}

// Difficulty returns the difficulty of the tip block.
func (cs *ChainStore) Difficulty() chainhash.Hash256 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.difficultyLocked()
}

// DifficultyLocked is Difficulty's body for a caller that already holds
// the store's mutex, for the same reason as TipLocked.
func (cs *ChainStore) DifficultyLocked() chainhash.Hash256 {
	return cs.difficultyLocked()
}

func (cs *ChainStore) difficultyLocked() chainhash.Hash256 {
	return cs.canonical[cs.tip].Header.Difficulty
}

// Length returns the current canonical chain height.
func (cs *ChainStore) Length() uint32 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.height
}

// Contains reports whether h is on the canonical chain.
func (cs *ChainStore) Contains(h chainhash.Hash256) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.canonical[h]
	return ok
}

// HasBlock reports whether h has ever been accepted, canonical or not.
func (cs *ChainStore) HasBlock(h chainhash.Hash256) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.allBlocks[h]
	return ok
}

// BlockByHash returns the record for h if it has ever been accepted.
func (cs *ChainStore) BlockByHash(h chainhash.Hash256) (block.Record, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	rec, ok := cs.allBlocks[h]
	return rec, ok
}

// ParentDifficulty returns the difficulty of the block recorded under
// parent, if any — used by callers validating difficulty consistency
// before calling Insert.
func (cs *ChainStore) ParentDifficulty(parent chainhash.Hash256) (chainhash.Hash256, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	rec, ok := cs.allBlocks[parent]
	if !ok {
		return chainhash.Hash256{}, false
	}
	return rec.Block.Header.Difficulty, true
}

// AddressList returns a copy of the known address list, for telemetry
// and for the generator's destination selection.
func (cs *ChainStore) AddressList() []chainhash.Hash160 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]chainhash.Hash160, len(cs.addressList))
	copy(out, cs.addressList)
	return out
}

// AddAddress appends address to the known list if not already present,
// reporting whether it was new.
func (cs *ChainStore) AddAddress(address chainhash.Hash160) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, a := range cs.addressList {
		if a == address {
			return false
		}
	}
	cs.addressList = append(cs.addressList, address)
	return true
}

// StateSnapshot returns a cloned copy of the current ledger state, for
// callers (the generator) that need to read it without holding the
// chain lock across their own work.
func (cs *ChainStore) StateSnapshot() state.State {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.currentState.Clone()
}

// Insert applies the three-case chain-store insert algorithm from
// spec §4.1: extend the tip, win a fork via reorg, or record a losing
// side branch. It is idempotent on a hash already present. Returns the
// insertion latency in milliseconds, for telemetry.
//
// Insert assumes block.Header.Parent is already present in allBlocks —
// the gossip worker is responsible for buffering orphans before a
// block ever reaches here.
func (cs *ChainStore) Insert(b block.Block, nowMs uint64) int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.insertLocked(b, nowMs)
}

// InsertLocked is Insert's body for a caller that already holds the
// store's mutex — the miner's assemble-and-insert attempt must keep
// the lock held across parent/difficulty read, PoW search, and
// conditional insert (spec §5), so it cannot go through Insert's own
// locking wrapper.
func (cs *ChainStore) InsertLocked(b block.Block, nowMs uint64) int64 {
	return cs.insertLocked(b, nowMs)
}

func (cs *ChainStore) insertLocked(b block.Block, nowMs uint64) int64 {
	h := b.Hash()
	if _, already := cs.allBlocks[h]; already {
		return 0
	}

	parent := b.Header.Parent
	parentRec, ok := cs.allBlocks[parent]
	if !ok {
		log.Error().Str("block", h.Hex()).Str("parent", parent.Hex()).
			Msg("insert called with unknown parent; gossip worker must buffer orphans upstream")
		return 0
	}

	var newHeight uint32
	switch {
	case parent == cs.tip:
		// Case 1: extend tip.
		newHeight = cs.height + 1
		cs.tip = h
		cs.height = newHeight
		cs.canonical[h] = b

	case parentRec.Height+1 > cs.height:
		// Case 2: fork wins, strict > only — equal height never reorgs.
		newHeight = parentRec.Height + 1
		cs.reorganize(b, parent)
		cs.tip = h
		cs.height = newHeight
		cs.canonical[h] = b

	default:
		// Case 3: side branch, canonical chain unchanged.
		newHeight = parentRec.Height + 1
	}

	cs.allBlocks[h] = block.Record{Block: b, Height: newHeight}

	log.Debug().Str("block", h.Hex()).Uint32("height", newHeight).
		Uint32("chain_height", cs.height).Msg("block inserted")

	return int64(nowMs) - int64(b.Header.TimestampMs)
}

// reorganize walks back from the new block's parent to the fork point
// already present in canonical, rolls canonical back to that point,
// then replays the buffered ancestors forward. Caller holds cs.mu.
func (cs *ChainStore) reorganize(newBlock block.Block, parent chainhash.Hash256) {
	var ancestors []chainhash.Hash256 // from parent back to (excluding) fork point
	cursor := parent
	for {
		if _, onCanonical := cs.canonical[cursor]; onCanonical {
			break
		}
		rec, ok := cs.allBlocks[cursor]
		if !ok {
			// Unreachable given Insert's precondition, but guard anyway.
			log.Error().Str("cursor", cursor.Hex()).Msg("reorg ancestor walk hit unknown block")
			return
		}
		ancestors = append(ancestors, cursor)
		cursor = rec.Block.Header.Parent
	}
	forkPoint := cursor

	// Roll canonical back from tip to the fork point.
	for cs.tip != forkPoint {
		delete(cs.canonical, cs.tip)
		cs.tip = cs.allBlocks[cs.tip].Block.Header.Parent
	}

	// Replay buffered ancestors forward (reverse of collection order).
	for i := len(ancestors) - 1; i >= 0; i-- {
		h := ancestors[i]
		cs.canonical[h] = cs.allBlocks[h].Block
	}
}

// UpdateState applies signed to the current ledger state, per
// spec §4.1's update_state contract, and logs a balance snapshot for
// telemetry.
func (cs *ChainStore) UpdateState(signed txn.SignedTransaction, mempoolSize int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.currentState.Update(signed)
	cs.logBalances(mempoolSize)
}

func (cs *ChainStore) logBalances(mempoolSize int) {
	bal := cs.currentState.Balances(cs.addressList)
	log.Debug().Interface("balances", bal).Int("mempool_size", mempoolSize).Msg("state updated")
}

// IsDoubleSpend reports whether spending in against the current state
// would be a double spend.
func (cs *ChainStore) IsDoubleSpend(in txn.Input) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.currentState.IsDoubleSpend(in)
}

// NowMillis returns the current wall-clock time in milliseconds. Insert
// takes the time as a parameter rather than calling this, so tests pass
// a fixed value instead.
func NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
