package miner

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/pillaiarjun/driftnode/pkg/chain"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/mempool"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

// stubServer discards broadcasts; the miner's attempt loop does not
// need a real transport to be exercised.
type stubServer struct{ broadcasts int }

func (s *stubServer) Broadcast(msg gossip.Message) { s.broadcasts++ }

func seedOneTransaction(t *testing.T, pool *mempool.Mempool) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	addr := chainhash.AddressFromPublicKey(pub)
	tx := txn.Transaction{
		ID:      txn.NewID(),
		Inputs:  nil,
		Outputs: []txn.Output{{Balance: 0, Address: addr}},
	}
	pool.Add(txn.NewSigned(tx, priv))
}

// Genesis difficulty (spec: difficulty[1]=16, rest 0) is a tight target
// — about 1-in-4096 hashes clear it — so a non-throttled miner with a
// tight loop clears it well within this test's deadline.
func TestMiner_MinesGenesisChild(t *testing.T) {
	store := chain.New()
	pool := mempool.New()
	seedOneTransaction(t, pool)
	srv := &stubServer{}

	m := New(store, pool, srv)
	go m.Run()

	m.Start(0)

	deadline := time.After(10 * time.Second)
	for store.Length() < 1 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for miner to extend genesis, mined=%d", m.Mined())
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.Exit()

	if store.Length() < 1 {
		t.Fatalf("expected chain height >= 1, got %d", store.Length())
	}
	if m.Inserted() == 0 {
		t.Fatalf("expected at least one inserted block")
	}
}

func TestMiner_PausedUntilStarted(t *testing.T) {
	store := chain.New()
	pool := mempool.New()
	seedOneTransaction(t, pool)
	srv := &stubServer{}

	m := New(store, pool, srv)
	go m.Run()

	time.Sleep(50 * time.Millisecond)
	if store.Length() != 0 {
		t.Fatalf("expected no mining before Start, got height %d", store.Length())
	}
	m.Exit()
}

func TestMiner_EmptyMempoolNeverInserts(t *testing.T) {
	store := chain.New()
	pool := mempool.New()
	srv := &stubServer{}

	m := New(store, pool, srv)
	go m.Run()
	m.Start(0)

	// Let it spin for a while against an empty mempool: the
	// empty-content guard must keep it from ever inserting.
	time.Sleep(200 * time.Millisecond)
	m.Exit()

	if store.Length() != 0 {
		t.Fatalf("expected empty-content guard to block insertion, got height %d", store.Length())
	}
	if m.Mined() == 0 {
		t.Fatalf("expected the miner to have attempted at least once")
	}
}
