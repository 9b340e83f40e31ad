package gossip

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

func TestEncodeDecode_AllVariants(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	signed := txn.NewSigned(txn.Transaction{ID: txn.NewID()}, priv)

	cases := []Message{
		Ping{Nonce: "n1"},
		Pong{Nonce: "n1"},
		NewBlockHashes{Hashes: []chainhash.Hash256{chainhash.SumSHA256([]byte("a"))}},
		GetBlocks{Hashes: []chainhash.Hash256{chainhash.SumSHA256([]byte("b"))}},
		Blocks{Blocks: []block.Block{block.Genesis()}},
		NewTransactionHashes{Hashes: []chainhash.Hash256{signed.Hash()}},
		GetTransactions{Hashes: []chainhash.Hash256{signed.Hash()}},
		Transactions{Transactions: []txn.SignedTransaction{signed}},
		Address{Addresses: []chainhash.Hash160{chainhash.AddressFromPublicKey([]byte("x"))}},
	}

	for _, msg := range cases {
		raw := Encode(msg)
		decoded, err := Decode(raw)
		if err != nil {
			t.Fatalf("decode %T: %v", msg, err)
		}
		if decoded.messageTag() != msg.messageTag() {
			t.Errorf("tag mismatch for %T: got %d want %d", msg, decoded.messageTag(), msg.messageTag())
		}
	}
}

func TestWriteReadFramed_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := Ping{Nonce: "hello"}
	if err := WriteFramed(&buf, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFramed(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ping, ok := got.(Ping)
	if !ok || ping.Nonce != "hello" {
		t.Fatalf("got %+v, want Ping{hello}", got)
	}
}

func TestReadFramedRaw_MatchesEncode(t *testing.T) {
	var buf bytes.Buffer
	msg := Pong{Nonce: "x"}
	if err := WriteFramed(&buf, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := ReadFramedRaw(&buf)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if !bytes.Equal(raw, Encode(msg)) {
		t.Fatal("raw bytes should match Encode's output exactly")
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	if _, err := Decode([]byte{0xff}); err == nil {
		t.Fatal("expected error decoding an unknown message tag")
	}
}
