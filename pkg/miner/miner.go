// Package miner implements the proof-of-work search loop that seals
// mempool contents into new blocks.
package miner

import (
	"math/rand"
	"time"

	blk "github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chain"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/config"
	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/logging"
	"github.com/pillaiarjun/driftnode/pkg/mempool"
)

var log = logging.For("miner")

type controlKind uint8

const (
	signalStart controlKind = iota
	signalExit
)

type controlSignal struct {
	kind   controlKind
	lambda uint64
}

type operatingState uint8

const (
	statePaused operatingState = iota
	stateRun
	stateShutDown
)

// Miner is a cooperative PoW loop driven by an out-of-band control
// channel, matching the Paused/Run(lambda)/ShutDown state machine of
// spec §4.4.
type Miner struct {
	control chan controlSignal

	store  *chain.ChainStore
	pool   *mempool.Mempool
	server gossip.Server

	mined, inserted uint64
}

// New constructs a miner bound to store, pool, and server. The miner
// starts Paused; call Start to begin mining.
func New(store *chain.ChainStore, pool *mempool.Mempool, server gossip.Server) *Miner {
	return &Miner{
		control: make(chan controlSignal, 8),
		store:   store,
		pool:    pool,
		server:  server,
	}
}

// Start transitions the miner into Run(lambdaMicros) mode.
func (m *Miner) Start(lambdaMicros uint64) {
	m.control <- controlSignal{kind: signalStart, lambda: lambdaMicros}
}

// Exit transitions the miner into ShutDown; Run returns once the
// current iteration completes.
func (m *Miner) Exit() {
	m.control <- controlSignal{kind: signalExit}
}

// Mined returns the number of PoW attempts made so far (telemetry).
func (m *Miner) Mined() uint64 { return m.mined }

// Inserted returns the number of blocks successfully sealed and
// inserted so far (telemetry).
func (m *Miner) Inserted() uint64 { return m.inserted }

// Run drives the mining loop until ShutDown or the 300-second
// wall-clock limit elapses. Call it from its own goroutine.
func (m *Miner) Run() {
	state := statePaused
	var startTime time.Time
	var lambda uint64

	for {
		switch state {
		case statePaused:
			sig, ok := <-m.control
			if !ok {
				panic("miner: control channel disconnected")
			}
			state, lambda = m.applySignal(sig, &startTime)
			continue
		case stateShutDown:
			return
		default:
			select {
			case sig, ok := <-m.control:
				if !ok {
					panic("miner: control channel disconnected")
				}
				state, lambda = m.applySignal(sig, &startTime)
			default:
			}
			if state == stateShutDown {
				return
			}
		}

		m.attempt()

		if time.Since(startTime) >= config.MiningWallClockLimit {
			log.Info().Uint64("mined", m.mined).Uint64("inserted", m.inserted).
				Msg("miner reached wall-clock limit, stopping")
			return
		}

		if state == stateRun && lambda != 0 {
			time.Sleep(time.Duration(lambda) * time.Microsecond)
		}
	}
}

func (m *Miner) applySignal(sig controlSignal, startTime *time.Time) (operatingState, uint64) {
	switch sig.kind {
	case signalExit:
		log.Info().Msg("miner shutting down")
		return stateShutDown, 0
	case signalStart:
		log.Info().Uint64("lambda_us", sig.lambda).Msg("miner starting")
		*startTime = time.Now()
		return stateRun, sig.lambda
	default:
		return statePaused, 0
	}
}

// attempt runs one PoW iteration: snapshot parent/difficulty/mempool,
// search for a nonce, and insert on success. It holds the chain store
// lock across the full assemble-and-insert attempt, per spec §5.
func (m *Miner) attempt() {
	m.store.Lock()
	defer m.store.Unlock()

	parent := m.store.TipLocked()
	difficulty := m.store.DifficultyLocked()
	timestamp := chain.NowMillis()

	content := m.pool.Snapshot()
	leaves := make([]chainhash.Hash256, len(content))
	for i, st := range content {
		leaves[i] = st.Hash()
	}
	root := chainhash.MerkleRoot(leaves)

	nonce := rand.Uint32()

	header := blk.Header{
		Parent:      parent,
		Nonce:       nonce,
		Difficulty:  difficulty,
		TimestampMs: timestamp,
		MerkleRoot:  root,
	}
	b := blk.Block{Header: header, Content: content}
	h := b.Hash()

	m.mined++

	if !h.LessOrEqual(difficulty) || len(content) == 0 {
		return
	}

	for _, tx := range content {
		m.pool.Remove(tx)
	}
	m.store.InsertLocked(b, timestamp)
	m.inserted++

	m.server.Broadcast(gossip.NewBlockHashes{Hashes: []chainhash.Hash256{h}})
}
