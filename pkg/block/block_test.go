package block

import (
	"testing"

	"github.com/pillaiarjun/driftnode/pkg/chainhash"
)

func TestGenesis_FixedFields(t *testing.T) {
	g := Genesis()
	if !g.Header.Parent.IsZero() {
		t.Error("genesis parent must be the zero hash")
	}
	if g.Header.Nonce != 0 {
		t.Error("genesis nonce must be zero")
	}
	if g.Header.TimestampMs != 0 {
		t.Error("genesis timestamp must be zero")
	}
	if len(g.Content) != 0 {
		t.Error("genesis content must be empty")
	}
	wantDifficulty := chainhash.Hash256{}
	wantDifficulty[1] = 16
	if g.Header.Difficulty != wantDifficulty {
		t.Errorf("genesis difficulty = %x, want difficulty[1]=16", g.Header.Difficulty)
	}
}

func TestGenesis_Deterministic(t *testing.T) {
	if Genesis().Hash() != Genesis().Hash() {
		t.Error("genesis hash must be deterministic across calls")
	}
}

func TestHeader_SerializeRoundTrip(t *testing.T) {
	h := Header{
		Parent:      chainhash.SumSHA256([]byte("parent")),
		Nonce:       42,
		Difficulty:  chainhash.SumSHA256([]byte("difficulty")),
		TimestampMs: 1234567890,
		MerkleRoot:  chainhash.SumSHA256([]byte("root")),
	}
	got, err := DeserializeHeader(h.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got != h {
		t.Errorf("header round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestBlock_SerializeRoundTrip(t *testing.T) {
	b := Genesis()
	got, err := DeserializeBlock(b.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Hash() != b.Hash() {
		t.Error("round-tripped block hashes differently")
	}
}

func TestBlock_HashChangesWithNonce(t *testing.T) {
	b1 := Genesis()
	b2 := Genesis()
	b2.Header.Nonce = 1

	if b1.Hash() == b2.Hash() {
		t.Error("changing the nonce must change the block hash")
	}
}
