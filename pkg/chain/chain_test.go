package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

func mustKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return priv
}

func seedTx(t *testing.T, addr chainhash.Hash160) txn.SignedTransaction {
	t.Helper()
	tx := txn.Transaction{ID: txn.NewID(), Outputs: []txn.Output{{Balance: 0, Address: addr}}}
	return txn.NewSigned(tx, mustKey(t))
}

// child builds a valid PoW-sealed block extending parent, content optional.
// Difficulty is never retargeted (spec: inherited unchanged from parent
// forever), so genesis's fixed difficulty applies to every block in
// these tests regardless of whether parent is already recorded in cs.
func child(t *testing.T, cs *ChainStore, parent chainhash.Hash256, nonceSeed uint32, content []txn.SignedTransaction) block.Block {
	t.Helper()
	difficulty := block.Genesis().Header.Difficulty
	leaves := make([]chainhash.Hash256, len(content))
	for i, c := range content {
		leaves[i] = c.Hash()
	}
	root := chainhash.MerkleRoot(leaves)
	for nonce := nonceSeed; ; nonce++ {
		h := block.Header{Parent: parent, Nonce: nonce, Difficulty: difficulty, TimestampMs: 0, MerkleRoot: root}
		b := block.Block{Header: h, Content: content}
		if b.Hash().LessOrEqual(difficulty) {
			return b
		}
	}
}

func TestChainStore_New_HasGenesis(t *testing.T) {
	cs := New()
	if cs.Length() != 0 {
		t.Fatalf("expected genesis-only height 0, got %d", cs.Length())
	}
	if cs.Tip() != block.Genesis().Hash() {
		t.Fatal("tip must be the genesis hash")
	}
}

func TestChainStore_LinearExtension(t *testing.T) {
	cs := New()
	b1 := child(t, cs, cs.Tip(), 0, nil)
	cs.Insert(b1, 0)

	if cs.Length() != 1 {
		t.Fatalf("expected height 1, got %d", cs.Length())
	}
	if cs.Tip() != b1.Hash() {
		t.Fatal("tip should be b1 after extending")
	}

	b2 := child(t, cs, cs.Tip(), 0, nil)
	cs.Insert(b2, 0)
	if cs.Length() != 2 || cs.Tip() != b2.Hash() {
		t.Fatal("expected chain to extend to height 2 at b2")
	}
}

func TestChainStore_LosingSideBranch(t *testing.T) {
	cs := New()
	b1 := child(t, cs, cs.Tip(), 0, nil)
	cs.Insert(b1, 0)

	// A second child of genesis is a side branch: same height as b1,
	// strictly not greater, so it must not become canonical.
	sideOfGenesis := child(t, cs, block.Genesis().Hash(), 1000, nil)
	cs.Insert(sideOfGenesis, 0)

	if cs.Tip() != b1.Hash() {
		t.Fatal("equal-height side branch must not replace the tip")
	}
	if !cs.HasBlock(sideOfGenesis.Hash()) {
		t.Fatal("side branch must still be recorded in allBlocks")
	}
	if cs.Contains(sideOfGenesis.Hash()) {
		t.Fatal("side branch must not be canonical")
	}
}

func TestChainStore_ReorgOnLongerFork(t *testing.T) {
	cs := New()
	b1 := child(t, cs, cs.Tip(), 0, nil)
	cs.Insert(b1, 0)
	b2 := child(t, cs, b1.Hash(), 0, nil)
	cs.Insert(b2, 0)

	// Build a competing two-block fork off genesis, both buffered as
	// allBlocks entries before the winning one arrives.
	f1 := child(t, cs, block.Genesis().Hash(), 2000, nil)
	cs.Insert(f1, 0) // height 1, loses to b1/b2 (canonical height 2)
	f2 := child(t, cs, f1.Hash(), 2000, nil)
	cs.Insert(f2, 0) // height 2, still not strictly greater than 2

	if cs.Tip() != b2.Hash() {
		t.Fatalf("expected tip still b2 before the fork overtakes, got %x", cs.Tip())
	}

	f3 := child(t, cs, f2.Hash(), 2000, nil)
	cs.Insert(f3, 0) // height 3, strictly greater: must reorg

	if cs.Tip() != f3.Hash() {
		t.Fatalf("expected reorg to f3, tip is %x", cs.Tip())
	}
	if !cs.Contains(f1.Hash()) || !cs.Contains(f2.Hash()) {
		t.Fatal("expected f1/f2 to become canonical after reorg")
	}
	if cs.Contains(b1.Hash()) || cs.Contains(b2.Hash()) {
		t.Fatal("expected b1/b2 to be rolled back out of canonical")
	}
}

func TestChainStore_ParentThenChild(t *testing.T) {
	cs := New()
	b1 := child(t, cs, cs.Tip(), 0, nil)
	b2 := child(t, cs, b1.Hash(), 0, nil)

	// Insert requires the parent already present — the gossip worker's
	// job, not the chain store's. b2 cannot be applied before b1.
	cs.Insert(b1, 0)
	cs.Insert(b2, 0)

	if cs.Tip() != b2.Hash() || cs.Length() != 2 {
		t.Fatal("expected both blocks applied once the parent preceded the child")
	}
}

func TestChainStore_DoubleSpendRejectedByState(t *testing.T) {
	cs := New()
	addr := chainhash.Hash160{0x1}
	seed := seedTx(t, addr)
	cs.UpdateState(seed, 0)

	spend := txn.Input{Index: 0, PreviousHash: seed.Transaction.ID}
	if cs.IsDoubleSpend(spend) {
		t.Fatal("matching zero-balance spend should not be flagged")
	}

	spendTx := txn.Transaction{
		ID:      txn.NewID(),
		Inputs:  []txn.Input{spend},
		Outputs: []txn.Output{{Balance: 0, Address: addr}},
	}
	cs.UpdateState(txn.NewSigned(spendTx, mustKey(t)), 0)

	// The same previous output has now been consumed; spending it again
	// must be flagged as a double spend.
	if !cs.IsDoubleSpend(spend) {
		t.Fatal("spending an already-consumed output must be a double spend")
	}
}

func TestChainStore_OverSpendIsCallerResponsibility(t *testing.T) {
	tx := txn.Transaction{
		ID:      txn.NewID(),
		Inputs:  []txn.Input{{Index: 1}},
		Outputs: []txn.Output{{Balance: 2}},
	}
	if !tx.IsOverSpend() {
		t.Fatal("outputs exceeding inputs must be flagged over-spend before it ever reaches the chain store")
	}
}

func TestChainStore_InsertIdempotent(t *testing.T) {
	cs := New()
	b1 := child(t, cs, cs.Tip(), 0, nil)
	cs.Insert(b1, 0)
	heightBefore := cs.Length()
	cs.Insert(b1, 0)
	if cs.Length() != heightBefore {
		t.Fatal("re-inserting an already-known block must be a no-op")
	}
}
