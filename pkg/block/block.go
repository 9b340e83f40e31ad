// Package block implements the header/block/record triple that the
// chain store tracks.
package block

import (
	"fmt"

	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
	"github.com/pillaiarjun/driftnode/pkg/wire"
)

// Header is the part of a block whose hash is the block's identity.
type Header struct {
	Parent      chainhash.Hash256
	Nonce       uint32
	Difficulty  chainhash.Hash256
	TimestampMs uint64 // spec models this as u128; Go has no native 128-bit
	// integer and the only arithmetic on it is the chain store's
	// insertion-latency subtraction, so a uint64 millisecond count is
	// used instead.
	MerkleRoot chainhash.Hash256
}

// Serialize produces the deterministic encoding hashed to form the
// block's identity.
func (h Header) Serialize() []byte {
	w := wire.NewWriter()
	w.PutFixed(h.Parent[:])
	w.PutUint32(h.Nonce)
	w.PutFixed(h.Difficulty[:])
	w.PutUint64(h.TimestampMs)
	w.PutFixed(h.MerkleRoot[:])
	return w.Bytes()
}

// DeserializeHeader parses bytes produced by Header.Serialize.
func DeserializeHeader(b []byte) (Header, error) {
	r := wire.NewReader(b)
	parentBytes, err := r.Fixed(chainhash.Size256)
	if err != nil {
		return Header{}, fmt.Errorf("block: decode parent: %w", err)
	}
	parent, err := chainhash.Hash256FromBytes(parentBytes)
	if err != nil {
		return Header{}, err
	}
	nonce, err := r.Uint32()
	if err != nil {
		return Header{}, fmt.Errorf("block: decode nonce: %w", err)
	}
	diffBytes, err := r.Fixed(chainhash.Size256)
	if err != nil {
		return Header{}, fmt.Errorf("block: decode difficulty: %w", err)
	}
	difficulty, err := chainhash.Hash256FromBytes(diffBytes)
	if err != nil {
		return Header{}, err
	}
	ts, err := r.Uint64()
	if err != nil {
		return Header{}, fmt.Errorf("block: decode timestamp: %w", err)
	}
	rootBytes, err := r.Fixed(chainhash.Size256)
	if err != nil {
		return Header{}, fmt.Errorf("block: decode merkle root: %w", err)
	}
	root, err := chainhash.Hash256FromBytes(rootBytes)
	if err != nil {
		return Header{}, err
	}
	return Header{Parent: parent, Nonce: nonce, Difficulty: difficulty, TimestampMs: ts, MerkleRoot: root}, nil
}

// Hash returns the SHA-256 digest of the header's serialization — the
// block's identity and the value checked against difficulty.
func (h Header) Hash() chainhash.Hash256 {
	return chainhash.SumSHA256(h.Serialize())
}

// Block is a header plus its ordered sequence of signed transactions.
type Block struct {
	Header  Header
	Content []txn.SignedTransaction
}

// Hash returns the block's identity, which is its header's hash.
func (b Block) Hash() chainhash.Hash256 { return b.Header.Hash() }

// Serialize produces the deterministic encoding used on the wire.
func (b Block) Serialize() []byte {
	w := wire.NewWriter()
	w.PutBytes(b.Header.Serialize())
	w.PutUint32(uint32(len(b.Content)))
	for _, tx := range b.Content {
		w.PutBytes(tx.Serialize())
	}
	return w.Bytes()
}

// DeserializeBlock parses bytes produced by Block.Serialize.
func DeserializeBlock(b []byte) (Block, error) {
	r := wire.NewReader(b)
	headerBytes, err := r.Bytes()
	if err != nil {
		return Block{}, fmt.Errorf("block: decode header: %w", err)
	}
	header, err := DeserializeHeader(headerBytes)
	if err != nil {
		return Block{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return Block{}, fmt.Errorf("block: decode content count: %w", err)
	}
	content := make([]txn.SignedTransaction, n)
	for i := range content {
		txBytes, err := r.Bytes()
		if err != nil {
			return Block{}, fmt.Errorf("block: decode content %d: %w", i, err)
		}
		signed, err := txn.DeserializeSignedTransaction(txBytes)
		if err != nil {
			return Block{}, err
		}
		content[i] = signed
	}
	return Block{Header: header, Content: content}, nil
}

// Record is the (block, height) pair the chain store keeps for every
// block it has ever accepted.
type Record struct {
	Block  Block
	Height uint32
}

// genesisDifficulty is the fixed difficulty target assigned to genesis
// and inherited, unchanged, by every descendant (spec: no retargeting).
func genesisDifficulty() chainhash.Hash256 {
	var d chainhash.Hash256
	d[1] = 16
	return d
}

// Genesis constructs the immutable genesis block: zero parent, zero
// nonce, fixed difficulty, zero timestamp, empty content.
func Genesis() Block {
	return Block{
		Header: Header{
			Parent:      chainhash.ZeroHash256,
			Nonce:       0,
			Difficulty:  genesisDifficulty(),
			TimestampMs: 0,
			MerkleRoot:  chainhash.MerkleRoot(nil),
		},
		Content: nil,
	}
}
