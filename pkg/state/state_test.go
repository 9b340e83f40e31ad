package state

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

func newSigned(t *testing.T, tx txn.Transaction) txn.SignedTransaction {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return txn.NewSigned(tx, priv)
}

func TestState_IsDoubleSpend_UnknownInput(t *testing.T) {
	s := New()
	in := txn.Input{Index: 1, PreviousHash: chainhash.SumSHA256([]byte("nowhere"))}
	if !s.IsDoubleSpend(in) {
		t.Error("spending an unrecorded output must be a double spend")
	}
}

func TestState_IsDoubleSpend_ValueMismatch(t *testing.T) {
	s := New()
	addr := chainhash.Hash160{}
	seed := newSigned(t, txn.Transaction{
		ID:      txn.NewID(),
		Outputs: []txn.Output{{Balance: 5, Address: addr}},
	})
	s.Update(seed)

	matching := txn.Input{Index: 5, PreviousHash: seed.Transaction.ID}
	if s.IsDoubleSpend(matching) {
		t.Error("matching balance should not be flagged a double spend")
	}

	mismatched := txn.Input{Index: 3, PreviousHash: seed.Transaction.ID}
	if !s.IsDoubleSpend(mismatched) {
		t.Error("claimed value not matching recorded output must be a double spend")
	}
}

func TestState_Update_ConsumesSpentInputs(t *testing.T) {
	s := New()
	addr := chainhash.Hash160{}
	seed := newSigned(t, txn.Transaction{
		ID:      txn.NewID(),
		Outputs: []txn.Output{{Balance: 7, Address: addr}},
	})
	s.Update(seed)

	spend := newSigned(t, txn.Transaction{
		ID:      txn.NewID(),
		Inputs:  []txn.Input{{Index: 7, PreviousHash: seed.Transaction.ID}},
		Outputs: []txn.Output{{Balance: 7, Address: addr}},
	})
	s.Update(spend)

	if _, ok := s.Map[seed.Transaction.ID]; ok {
		t.Error("spent output must be removed from the map")
	}
	if _, ok := s.Map[spend.Transaction.ID]; !ok {
		t.Error("spending transaction's own output must be recorded")
	}
}

func TestState_Update_MultiOutputKeepsLast(t *testing.T) {
	s := New()
	addrA := chainhash.Hash160{0x01}
	addrB := chainhash.Hash160{0x02}
	tx := newSigned(t, txn.Transaction{
		ID: txn.NewID(),
		Outputs: []txn.Output{
			{Balance: 1, Address: addrA},
			{Balance: 2, Address: addrB},
		},
	})
	s.Update(tx)

	got := s.Map[tx.Transaction.ID]
	if got.Address != addrB || got.Balance != 2 {
		t.Errorf("expected only the last output to survive, got %+v", got)
	}
}

func TestState_Clone_Independent(t *testing.T) {
	s := New()
	seed := newSigned(t, txn.Transaction{ID: txn.NewID(), Outputs: []txn.Output{{Balance: 1}}})
	s.Update(seed)

	clone := s.Clone()
	delete(clone.Map, seed.Transaction.ID)

	if _, ok := s.Map[seed.Transaction.ID]; !ok {
		t.Error("mutating the clone must not affect the original")
	}
}

func TestState_Balances(t *testing.T) {
	s := New()
	addr := chainhash.Hash160{0x9}
	s.Update(newSigned(t, txn.Transaction{
		ID:      txn.NewID(),
		Outputs: []txn.Output{{Balance: 3, Address: addr}},
	}))

	bal := s.Balances([]chainhash.Hash160{addr})
	if bal[addr] != 3 {
		t.Errorf("expected balance 3, got %d", bal[addr])
	}
}
