// Package gossip implements the wire protocol and worker pool that
// propagate blocks, transactions, and addresses between peers.
package gossip

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pillaiarjun/driftnode/pkg/block"
	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
	"github.com/pillaiarjun/driftnode/pkg/wire"
)

// Message tag, assigned by the variant's ordinal position in the
// protocol's declared order (spec §6).
const (
	tagPing uint8 = iota
	tagPong
	tagNewBlockHashes
	tagGetBlocks
	tagBlocks
	tagNewTransactionHashes
	tagGetTransactions
	tagTransactions
	tagAddress
)

// Message is any of the nine gossip protocol variants.
type Message interface {
	messageTag() uint8
	encodePayload(w *wire.Writer)
}

// Ping carries an opaque nonce string to be echoed back as Pong.
type Ping struct{ Nonce string }

// Pong is the reply to Ping; carries the same nonce.
type Pong struct{ Nonce string }

// NewBlockHashes announces block hashes the sender believes the
// receiver may not have.
type NewBlockHashes struct{ Hashes []chainhash.Hash256 }

// GetBlocks requests the full blocks for the given hashes.
type GetBlocks struct{ Hashes []chainhash.Hash256 }

// Blocks carries full blocks in response to GetBlocks.
type Blocks struct{ Blocks []block.Block }

// NewTransactionHashes announces transaction hashes the sender has.
type NewTransactionHashes struct{ Hashes []chainhash.Hash256 }

// GetTransactions requests full transactions for the given hashes.
type GetTransactions struct{ Hashes []chainhash.Hash256 }

// Transactions carries full signed transactions.
type Transactions struct{ Transactions []txn.SignedTransaction }

// Address announces known addresses.
type Address struct{ Addresses []chainhash.Hash160 }

func (Ping) messageTag() uint8                 { return tagPing }
func (Pong) messageTag() uint8                 { return tagPong }
func (NewBlockHashes) messageTag() uint8       { return tagNewBlockHashes }
func (GetBlocks) messageTag() uint8            { return tagGetBlocks }
func (Blocks) messageTag() uint8               { return tagBlocks }
func (NewTransactionHashes) messageTag() uint8 { return tagNewTransactionHashes }
func (GetTransactions) messageTag() uint8      { return tagGetTransactions }
func (Transactions) messageTag() uint8         { return tagTransactions }
func (Address) messageTag() uint8              { return tagAddress }

func writeHashes(w *wire.Writer, hs []chainhash.Hash256) {
	w.PutUint32(uint32(len(hs)))
	for _, h := range hs {
		w.PutFixed(h[:])
	}
}

func (m Ping) encodePayload(w *wire.Writer) { w.PutBytes([]byte(m.Nonce)) }
func (m Pong) encodePayload(w *wire.Writer) { w.PutBytes([]byte(m.Nonce)) }
func (m NewBlockHashes) encodePayload(w *wire.Writer) { writeHashes(w, m.Hashes) }
func (m GetBlocks) encodePayload(w *wire.Writer)      { writeHashes(w, m.Hashes) }
func (m Blocks) encodePayload(w *wire.Writer) {
	w.PutUint32(uint32(len(m.Blocks)))
	for _, b := range m.Blocks {
		w.PutBytes(b.Serialize())
	}
}
func (m NewTransactionHashes) encodePayload(w *wire.Writer) { writeHashes(w, m.Hashes) }
func (m GetTransactions) encodePayload(w *wire.Writer)      { writeHashes(w, m.Hashes) }
func (m Transactions) encodePayload(w *wire.Writer) {
	w.PutUint32(uint32(len(m.Transactions)))
	for _, t := range m.Transactions {
		w.PutBytes(t.Serialize())
	}
}
func (m Address) encodePayload(w *wire.Writer) {
	w.PutUint32(uint32(len(m.Addresses)))
	for _, a := range m.Addresses {
		w.PutFixed(a[:])
	}
}

// Encode serializes msg to its tagged binary form: one tag byte
// followed by the variant's little-endian payload.
func Encode(msg Message) []byte {
	w := wire.NewWriter()
	w.PutUint8(msg.messageTag())
	msg.encodePayload(w)
	return w.Bytes()
}

func readHashes256(r *wire.Reader) ([]chainhash.Hash256, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]chainhash.Hash256, n)
	for i := range out {
		b, err := r.Fixed(chainhash.Size256)
		if err != nil {
			return nil, err
		}
		h, err := chainhash.Hash256FromBytes(b)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// Decode parses bytes produced by Encode back into a Message.
func Decode(raw []byte) (Message, error) {
	r := wire.NewReader(raw)
	tag, err := r.Uint8()
	if err != nil {
		return nil, fmt.Errorf("gossip: decode tag: %w", err)
	}
	switch tag {
	case tagPing:
		b, err := r.Bytes()
		if err != nil {
			return nil, fmt.Errorf("gossip: decode ping: %w", err)
		}
		return Ping{Nonce: string(b)}, nil
	case tagPong:
		b, err := r.Bytes()
		if err != nil {
			return nil, fmt.Errorf("gossip: decode pong: %w", err)
		}
		return Pong{Nonce: string(b)}, nil
	case tagNewBlockHashes:
		hs, err := readHashes256(r)
		if err != nil {
			return nil, fmt.Errorf("gossip: decode new_block_hashes: %w", err)
		}
		return NewBlockHashes{Hashes: hs}, nil
	case tagGetBlocks:
		hs, err := readHashes256(r)
		if err != nil {
			return nil, fmt.Errorf("gossip: decode get_blocks: %w", err)
		}
		return GetBlocks{Hashes: hs}, nil
	case tagBlocks:
		n, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("gossip: decode blocks count: %w", err)
		}
		bs := make([]block.Block, n)
		for i := range bs {
			raw, err := r.Bytes()
			if err != nil {
				return nil, fmt.Errorf("gossip: decode block %d: %w", i, err)
			}
			b, err := block.DeserializeBlock(raw)
			if err != nil {
				return nil, err
			}
			bs[i] = b
		}
		return Blocks{Blocks: bs}, nil
	case tagNewTransactionHashes:
		hs, err := readHashes256(r)
		if err != nil {
			return nil, fmt.Errorf("gossip: decode new_transaction_hashes: %w", err)
		}
		return NewTransactionHashes{Hashes: hs}, nil
	case tagGetTransactions:
		hs, err := readHashes256(r)
		if err != nil {
			return nil, fmt.Errorf("gossip: decode get_transactions: %w", err)
		}
		return GetTransactions{Hashes: hs}, nil
	case tagTransactions:
		n, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("gossip: decode transactions count: %w", err)
		}
		ts := make([]txn.SignedTransaction, n)
		for i := range ts {
			raw, err := r.Bytes()
			if err != nil {
				return nil, fmt.Errorf("gossip: decode transaction %d: %w", i, err)
			}
			st, err := txn.DeserializeSignedTransaction(raw)
			if err != nil {
				return nil, err
			}
			ts[i] = st
		}
		return Transactions{Transactions: ts}, nil
	case tagAddress:
		n, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("gossip: decode address count: %w", err)
		}
		as := make([]chainhash.Hash160, n)
		for i := range as {
			b, err := r.Fixed(chainhash.Size160)
			if err != nil {
				return nil, err
			}
			a, err := chainhash.Hash160FromBytes(b)
			if err != nil {
				return nil, err
			}
			as[i] = a
		}
		return Address{Addresses: as}, nil
	default:
		return nil, fmt.Errorf("gossip: unknown message tag %d", tag)
	}
}

// WriteFramed writes msg to w as a uint32 little-endian length prefix
// followed by its encoded bytes.
func WriteFramed(w io.Writer, msg Message) error {
	payload := Encode(msg)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("gossip: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("gossip: write frame payload: %w", err)
	}
	return nil
}

// ReadFramedRaw reads one length-prefixed message from r and returns
// its raw encoded bytes, undecoded — for a transport that only needs
// to hand the bytes to a worker pool.
func ReadFramedRaw(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("gossip: read frame payload: %w", err)
	}
	return payload, nil
}

// ReadFramed reads one length-prefixed message from r and decodes it.
func ReadFramed(r io.Reader) (Message, error) {
	payload, err := ReadFramedRaw(r)
	if err != nil {
		return nil, err
	}
	return Decode(payload)
}
