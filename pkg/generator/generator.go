// Package generator implements the synthetic transaction workload
// source: it seeds addresses at startup, then steady-state produces
// signed transactions that may or may not be valid, exercising the
// gossip verifier on other nodes.
package generator

import (
	"crypto/ed25519"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/pillaiarjun/driftnode/pkg/chain"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/logging"
	"github.com/pillaiarjun/driftnode/pkg/mempool"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

var log = logging.For("generator")

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

// Generator shares the miner's control-loop protocol (Paused/Run/
// ShutDown driven by an out-of-band channel) at the interface level,
// per spec §4.5 — the two are not code-shared, only protocol-shared.
type Generator struct {
	control chan controlSignal

	store  *chain.ChainStore
	pool   *mempool.Mempool
	server gossip.Server

	// keys holds the generator's own key pairs, indexed by derived
	// address. It is never gossiped — wallet/key persistence is out of
	// scope, so these live only in process memory.
	keys map[chainhash.Hash160]ed25519.PrivateKey
}

// New constructs a generator bound to store, pool, and server. It
// starts Paused; call Start to begin producing transactions.
func New(store *chain.ChainStore, pool *mempool.Mempool, server gossip.Server) *Generator {
	return &Generator{
		control: make(chan controlSignal, 8),
		store:   store,
		pool:    pool,
		server:  server,
		keys:    make(map[chainhash.Hash160]ed25519.PrivateKey),
	}
}

// Start transitions the generator into Run(lambdaMicros) mode.
func (g *Generator) Start(lambdaMicros uint64) {
	g.control <- controlSignal{kind: signalStart, lambda: lambdaMicros}
}

// Exit transitions the generator into ShutDown.
func (g *Generator) Exit() {
	g.control <- controlSignal{kind: signalExit}
}

// Run drives the generator loop until ShutDown. Call it from its own
// goroutine.
func (g *Generator) Run() {
	state := statePaused
	var lambda uint64
	seeded := false

	for {
		switch state {
		case statePaused:
			sig, ok := <-g.control
			if !ok {
				panic("generator: control channel disconnected")
			}
			state, lambda = g.applySignal(sig)
			continue
		case stateShutDown:
			return
		default:
			select {
			case sig, ok := <-g.control:
				if !ok {
					panic("generator: control channel disconnected")
				}
				state, lambda = g.applySignal(sig)
			default:
			}
			if state == stateShutDown {
				return
			}
		}

		if !seeded {
			g.seed()
			seeded = true
		} else {
			g.produceOne()
		}

		if state == stateRun && lambda != 0 {
			time.Sleep(time.Duration(lambda) * time.Microsecond)
		}
	}
}

func (g *Generator) applySignal(sig controlSignal) (operatingState, uint64) {
	switch sig.kind {
	case signalExit:
		log.Info().Msg("generator shutting down")
		return stateShutDown, 0
	case signalStart:
		log.Info().Uint64("lambda_us", sig.lambda).Msg("generator starting")
		return stateRun, sig.lambda
	default:
		return statePaused, 0
	}
}

// seed creates three fresh key pairs, broadcasts their addresses, and
// deposits a zero-balance seed output for each directly into the
// ledger state (not the mempool — these are bootstrap entries, not
// gossip-verified transactions).
func (g *Generator) seed() {
	for i := 0; i < 3; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			log.Error().Err(err).Msg("failed to generate seed key pair")
			continue
		}
		address := chainhash.AddressFromPublicKey(pub)
		g.keys[address] = priv
		g.store.AddAddress(address)
		g.server.Broadcast(gossip.Address{Addresses: []chainhash.Hash160{address}})
	}

	for _, addr := range g.store.AddressList() {
		seedTx := txn.Transaction{
			ID:      txn.NewID(),
			Inputs:  nil,
			Outputs: []txn.Output{{Balance: 0, Address: addr}},
		}
		_, ephemeral, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			log.Error().Err(err).Msg("failed to generate ephemeral seeding key")
			continue
		}
		signed := txn.NewSigned(seedTx, ephemeral)
		g.store.UpdateState(signed, g.pool.Size())
		g.server.Broadcast(gossip.NewTransactionHashes{Hashes: []chainhash.Hash256{signed.Hash()}})
	}
}

// produceOne synthesizes one transaction. With probability 7/10 it
// spends from a random existing state.sig entry when that entry's
// sender is one of its own addresses; otherwise — including the
// remaining 3/10 of the time — it uses a fresh random key and hash,
// which will fail verification at any gossip peer.
func (g *Generator) produceOne() {
	st := g.store.StateSnapshot()

	fromKey, fromTx := g.randomForeignSender()

	if chance, err := randUint8(); err == nil && chance%10 < 7 && len(st.Sig) > 0 {
		r, err := randUint8()
		if err == nil {
			skip := int(r) % len(st.Sig)
			for _, tx := range st.Sig {
				if skip == 0 {
					senderAddr := tx.Transaction.Outputs[0].Address
					if priv, ok := g.keys[senderAddr]; ok {
						fromKey = priv
						fromTx = tx.Transaction.ID
					}
					break
				}
				skip--
			}
		}
	}

	addresses := g.store.AddressList()
	if len(addresses) == 0 {
		return
	}
	idx, err := randUint8()
	if err != nil {
		return
	}
	dest := addresses[int(idx)%len(addresses)]

	tx := txn.Transaction{
		ID:      txn.NewID(),
		Inputs:  []txn.Input{{Index: 1, PreviousHash: fromTx}},
		Outputs: []txn.Output{{Balance: 1, Address: dest}},
	}
	signed := txn.NewSigned(tx, fromKey)

	g.pool.Add(signed)
	// Applied before verification — the generator may be spending from
	// an address it does not hold the key for, so it cannot verify its
	// own output the way the gossip worker verifies incoming ones. See
	// the open-question note on generator/gossip asymmetry.
	g.store.UpdateState(signed, g.pool.Size())

	g.server.Broadcast(gossip.NewTransactionHashes{Hashes: []chainhash.Hash256{signed.Hash()}})
}

// randomForeignSender returns a throwaway key pair and a random
// transaction hash, used whenever the generator does not pick a local
// sender — the resulting transaction is expected to fail verification
// at gossip peers.
func (g *Generator) randomForeignSender() (ed25519.PrivateKey, chainhash.Hash256) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate foreign sender key")
	}
	return priv, txn.NewID()
}

func randUint8() (uint8, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(256))
	if err != nil {
		return 0, err
	}
	return uint8(n.Int64()), nil
}
