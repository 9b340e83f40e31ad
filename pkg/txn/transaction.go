// Package txn implements the transaction data model: flat-balance
// inputs and outputs, the random-nonce transaction identifier, and
// Ed25519-signed transactions.
package txn

import (
	"crypto/ed25519"
	"fmt"

	"github.com/google/uuid"

	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/wire"
)

// Input references a prior transaction's output. index doubles as the
// input's claimed value — the ledger model has no separate amount field.
type Input struct {
	Index        uint8
	PreviousHash chainhash.Hash256
}

// Output pays a balance to an address.
type Output struct {
	Balance uint8
	Address chainhash.Hash160
}

// Transaction is the unsigned payload. ID is a random nonce, not a
// content hash: two transactions with identical inputs/outputs but
// different IDs are distinct entries in the ledger.
type Transaction struct {
	ID      chainhash.Hash256
	Inputs  []Input
	Outputs []Output
}

// NewID returns a fresh random transaction identifier. It expands a
// random UUIDv4 into the full 32-byte Hash256 domain by hashing it —
// the UUID supplies the collision-free randomness, SHA-256 the width.
func NewID() chainhash.Hash256 {
	u := uuid.New()
	return chainhash.SumSHA256(u[:])
}

// InputValue returns the sum of all input claimed values.
func (t Transaction) InputValue() int {
	sum := 0
	for _, in := range t.Inputs {
		sum += int(in.Index)
	}
	return sum
}

// OutputValue returns the sum of all output balances.
func (t Transaction) OutputValue() int {
	sum := 0
	for _, out := range t.Outputs {
		sum += int(out.Balance)
	}
	return sum
}

// IsOverSpend reports whether the transaction pays out more than its
// inputs claim.
func (t Transaction) IsOverSpend() bool {
	return t.OutputValue() > t.InputValue()
}

// Serialize produces the deterministic length-prefixed encoding of the
// transaction used both for signing and for hash computation.
func (t Transaction) Serialize() []byte {
	w := wire.NewWriter()
	w.PutFixed(t.ID[:])
	w.PutUint32(uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		w.PutUint8(in.Index)
		w.PutFixed(in.PreviousHash[:])
	}
	w.PutUint32(uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		w.PutUint8(out.Balance)
		w.PutFixed(out.Address[:])
	}
	return w.Bytes()
}

// DeserializeTransaction parses bytes produced by Transaction.Serialize.
func DeserializeTransaction(b []byte) (Transaction, error) {
	r := wire.NewReader(b)
	idBytes, err := r.Fixed(chainhash.Size256)
	if err != nil {
		return Transaction{}, fmt.Errorf("txn: decode id: %w", err)
	}
	id, err := chainhash.Hash256FromBytes(idBytes)
	if err != nil {
		return Transaction{}, err
	}
	numIn, err := r.Uint32()
	if err != nil {
		return Transaction{}, fmt.Errorf("txn: decode input count: %w", err)
	}
	inputs := make([]Input, numIn)
	for i := range inputs {
		idx, err := r.Uint8()
		if err != nil {
			return Transaction{}, fmt.Errorf("txn: decode input %d index: %w", i, err)
		}
		phBytes, err := r.Fixed(chainhash.Size256)
		if err != nil {
			return Transaction{}, fmt.Errorf("txn: decode input %d previous hash: %w", i, err)
		}
		ph, err := chainhash.Hash256FromBytes(phBytes)
		if err != nil {
			return Transaction{}, err
		}
		inputs[i] = Input{Index: idx, PreviousHash: ph}
	}
	numOut, err := r.Uint32()
	if err != nil {
		return Transaction{}, fmt.Errorf("txn: decode output count: %w", err)
	}
	outputs := make([]Output, numOut)
	for i := range outputs {
		bal, err := r.Uint8()
		if err != nil {
			return Transaction{}, fmt.Errorf("txn: decode output %d balance: %w", i, err)
		}
		addrBytes, err := r.Fixed(chainhash.Size160)
		if err != nil {
			return Transaction{}, fmt.Errorf("txn: decode output %d address: %w", i, err)
		}
		addr, err := chainhash.Hash160FromBytes(addrBytes)
		if err != nil {
			return Transaction{}, err
		}
		outputs[i] = Output{Balance: bal, Address: addr}
	}
	return Transaction{ID: id, Inputs: inputs, Outputs: outputs}, nil
}

// Sign computes the Ed25519 signature over SHA-256 of the transaction's
// serialization.
func Sign(t Transaction, priv ed25519.PrivateKey) []byte {
	digest := chainhash.SumSHA256(t.Serialize())
	return ed25519.Sign(priv, digest[:])
}

// Verify reports whether signature is a valid Ed25519 signature by
// pubKey over SHA-256 of the transaction's serialization.
func Verify(t Transaction, pubKey, signature []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	digest := chainhash.SumSHA256(t.Serialize())
	return ed25519.Verify(ed25519.PublicKey(pubKey), digest[:], signature)
}

// SignedTransaction pairs a transaction with its signature and the
// signer's public key.
type SignedTransaction struct {
	Transaction Transaction
	Signature   []byte
	PublicKey   []byte
}

// Serialize produces the deterministic encoding of the whole triple,
// used as the hashing input below.
func (s SignedTransaction) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBytes(s.Transaction.Serialize())
	w.PutBytes(s.Signature)
	w.PutBytes(s.PublicKey)
	return w.Bytes()
}

// DeserializeSignedTransaction parses bytes produced by Serialize.
func DeserializeSignedTransaction(b []byte) (SignedTransaction, error) {
	r := wire.NewReader(b)
	txBytes, err := r.Bytes()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("txn: decode transaction: %w", err)
	}
	tx, err := DeserializeTransaction(txBytes)
	if err != nil {
		return SignedTransaction{}, err
	}
	sig, err := r.Bytes()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("txn: decode signature: %w", err)
	}
	pub, err := r.Bytes()
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("txn: decode public key: %w", err)
	}
	return SignedTransaction{Transaction: tx, Signature: sig, PublicKey: pub}, nil
}

// Hash is the SHA-256 digest of the signed transaction's serialization
// — the key the mempool uses to identify it, and its leaf in a block's
// Merkle root.
func (s SignedTransaction) Hash() chainhash.Hash256 {
	return chainhash.SumSHA256(s.Serialize())
}

// Verify checks the embedded signature against the embedded transaction
// and public key.
func (s SignedTransaction) Verify() bool {
	return Verify(s.Transaction, s.PublicKey, s.Signature)
}

// NewSigned signs transaction t with priv and wraps the result,
// deriving the public key from the private key.
func NewSigned(t Transaction, priv ed25519.PrivateKey) SignedTransaction {
	pub := priv.Public().(ed25519.PublicKey)
	return SignedTransaction{
		Transaction: t,
		Signature:   Sign(t, priv),
		PublicKey:   append([]byte(nil), pub...),
	}
}
