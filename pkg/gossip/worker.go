package gossip

import (
	"github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chain"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/logging"
	"github.com/pillaiarjun/driftnode/pkg/mempool"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

var log = logging.For("gossip")

// PeerHandle is the sender-facing half of the transport collaborator:
// a single reply channel back to whoever sent the message being
// processed. The transport itself is out of scope for this package.
type PeerHandle interface {
	Write(msg Message) error
}

// Server is the fan-out half of the transport collaborator.
type Server interface {
	Broadcast(msg Message)
}

// Envelope pairs one inbound message's raw bytes with a handle back to
// the peer that sent it.
type Envelope struct {
	Raw  []byte
	Peer PeerHandle
}

// Dispatcher is a pool of worker goroutines draining a shared inbound
// channel and dispatching decoded messages against shared chain store
// and mempool state.
type Dispatcher struct {
	numWorkers int
	inbound    <-chan Envelope
	server     Server
	store      *chain.ChainStore
	pool       *mempool.Mempool
}

// NewDispatcher wires a worker pool of size numWorkers reading from
// inbound.
func NewDispatcher(numWorkers int, inbound <-chan Envelope, server Server, store *chain.ChainStore, pool *mempool.Mempool) *Dispatcher {
	return &Dispatcher{
		numWorkers: numWorkers,
		inbound:    inbound,
		server:     server,
		store:      store,
		pool:       pool,
	}
}

// Start launches the worker pool. It returns immediately; workers run
// until inbound is closed.
func (d *Dispatcher) Start() {
	for i := 0; i < d.numWorkers; i++ {
		w := &worker{
			id:        i,
			dispatch:  d,
			orphanBuf: make(map[chainhash.Hash256]block.Block),
		}
		go w.run()
	}
}

// worker holds the per-goroutine orphan buffer — not shared across
// workers, per spec §5/§9.
type worker struct {
	id        int
	dispatch  *Dispatcher
	orphanBuf map[chainhash.Hash256]block.Block
}

func (w *worker) run() {
	for env := range w.dispatch.inbound {
		msg, err := Decode(env.Raw)
		if err != nil {
			log.Warn().Err(err).Int("worker", w.id).Msg("malformed message dropped")
			continue
		}
		w.handle(msg, env.Peer)
	}
	log.Warn().Int("worker", w.id).Msg("inbound channel closed, worker exiting")
}

func (w *worker) handle(msg Message, peer PeerHandle) {
	switch m := msg.(type) {
	case Ping:
		if err := peer.Write(Pong{Nonce: m.Nonce}); err != nil {
			log.Warn().Err(err).Msg("failed to reply to ping")
		}
	case Pong:
		log.Debug().Str("nonce", m.Nonce).Msg("pong received")
	case NewBlockHashes:
		w.handleNewBlockHashes(m, peer)
	case GetBlocks:
		w.handleGetBlocks(m, peer)
	case Blocks:
		w.handleBlocks(m, peer)
	case NewTransactionHashes:
		w.handleNewTransactionHashes(m, peer)
	case GetTransactions:
		w.handleGetTransactions(m, peer)
	case Transactions:
		w.handleTransactions(m)
	case Address:
		w.handleAddress(m)
	}
}

func (w *worker) handleNewBlockHashes(m NewBlockHashes, peer PeerHandle) {
	var want []chainhash.Hash256
	for _, h := range m.Hashes {
		if !w.dispatch.store.HasBlock(h) {
			want = append(want, h)
		}
	}
	if len(want) > 0 {
		if err := peer.Write(GetBlocks{Hashes: want}); err != nil {
			log.Warn().Err(err).Msg("failed to request blocks")
		}
	}
}

func (w *worker) handleGetBlocks(m GetBlocks, peer PeerHandle) {
	var have []block.Block
	for _, h := range m.Hashes {
		if rec, ok := w.dispatch.store.BlockByHash(h); ok {
			have = append(have, rec.Block)
		}
	}
	if len(have) > 0 {
		if err := peer.Write(Blocks{Blocks: have}); err != nil {
			log.Warn().Err(err).Msg("failed to send blocks")
		}
	}
}

func (w *worker) handleBlocks(m Blocks, peer PeerHandle) {
	var accepted []chainhash.Hash256
	missingParents := make(map[chainhash.Hash256]struct{})

	for _, b := range m.Blocks {
		h := b.Hash()

		if w.dispatch.store.HasBlock(h) {
			continue
		}

		// Unconditional overwrite: duplicate-parent cases are last-writer-wins.
		w.orphanBuf[b.Header.Parent] = b

		if !h.LessOrEqual(b.Header.Difficulty) {
			log.Debug().Str("block", h.Hex()).Msg("invalid proof of work, dropped")
			continue
		}

		if !w.dispatch.store.HasBlock(b.Header.Parent) {
			missingParents[b.Header.Parent] = struct{}{}
			continue
		}

		parentDifficulty, _ := w.dispatch.store.ParentDifficulty(b.Header.Parent)
		if b.Header.Difficulty != parentDifficulty {
			log.Debug().Str("block", h.Hex()).Msg("difficulty mismatch against parent, dropped")
			continue
		}

		w.acceptBlock(b)
		accepted = append(accepted, h)

		// Orphan drain: each drained descendant uses its own content for
		// the mempool-remove step, not the outer block's.
		inserted := h
		for {
			child, ok := w.orphanBuf[inserted]
			if !ok {
				break
			}
			w.acceptBlock(child)
			delete(w.orphanBuf, inserted)
			inserted = child.Hash()
			accepted = append(accepted, inserted)
		}
	}

	if len(accepted) > 0 {
		w.dispatch.server.Broadcast(NewBlockHashes{Hashes: accepted})
	}
	if len(missingParents) > 0 {
		hashes := make([]chainhash.Hash256, 0, len(missingParents))
		for h := range missingParents {
			hashes = append(hashes, h)
		}
		if err := peer.Write(GetBlocks{Hashes: hashes}); err != nil {
			log.Warn().Err(err).Msg("failed to request missing parents")
		}
	}
}

// acceptBlock removes b's own transactions from the mempool and
// inserts b into the chain store. Used for both directly-validated
// blocks and orphans drained after their parent arrives.
func (w *worker) acceptBlock(b block.Block) {
	for _, tx := range b.Content {
		w.dispatch.pool.Remove(tx)
	}
	w.dispatch.store.Insert(b, chain.NowMillis())
	delete(w.orphanBuf, b.Header.Parent)
}

func (w *worker) handleNewTransactionHashes(m NewTransactionHashes, peer PeerHandle) {
	var want []chainhash.Hash256
	for _, h := range m.Hashes {
		if !w.dispatch.pool.Contains(h) {
			want = append(want, h)
		}
	}
	if len(want) > 0 {
		if err := peer.Write(GetTransactions{Hashes: want}); err != nil {
			log.Warn().Err(err).Msg("failed to request transactions")
		}
	}
}

func (w *worker) handleGetTransactions(m GetTransactions, peer PeerHandle) {
	var have []txn.SignedTransaction
	for _, h := range m.Hashes {
		if st, ok := w.dispatch.pool.Get(h); ok {
			have = append(have, st)
		}
	}
	if len(have) > 0 {
		if err := peer.Write(Transactions{Transactions: have}); err != nil {
			log.Warn().Err(err).Msg("failed to send transactions")
		}
	}
}

func (w *worker) handleTransactions(m Transactions) {
	var accepted []chainhash.Hash256
	for _, t := range m.Transactions {
		h := t.Hash()
		if w.dispatch.pool.Contains(h) {
			continue
		}
		if !t.Verify() {
			log.Debug().Str("tx", h.Hex()).Msg("invalid signature, dropped")
			continue
		}
		if t.Transaction.IsOverSpend() {
			log.Debug().Str("tx", h.Hex()).Msg("overspend, dropped")
			continue
		}
		w.dispatch.pool.Add(t)
		w.dispatch.store.UpdateState(t, w.dispatch.pool.Size())
		accepted = append(accepted, h)
	}
	if len(accepted) > 0 {
		w.dispatch.server.Broadcast(NewTransactionHashes{Hashes: accepted})
	}
}

func (w *worker) handleAddress(m Address) {
	var newAddrs []chainhash.Hash160
	for _, a := range m.Addresses {
		if w.dispatch.store.AddAddress(a) {
			newAddrs = append(newAddrs, a)
		}
	}
	if len(newAddrs) > 0 {
		w.dispatch.server.Broadcast(Address{Addresses: w.dispatch.store.AddressList()})
	}
}
