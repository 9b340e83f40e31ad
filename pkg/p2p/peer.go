package p2p

import (
	"net"
	"sync"

	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/logging"
)

var peerLog = logging.For("p2p")

// Peer is a connected remote node. It implements gossip.PeerHandle so
// the gossip worker pool can reply to whichever peer sent a message.
type Peer struct {
	Conn     net.Conn
	Server   *Server
	Outbound bool
	wg       sync.WaitGroup
	quit     chan struct{}
	writeMu  sync.Mutex

	closeOnce sync.Once
}

// NewPeer creates a new peer instance.
func NewPeer(conn net.Conn, server *Server, outbound bool) *Peer {
	return &Peer{
		Conn:     conn,
		Server:   server,
		Outbound: outbound,
		quit:     make(chan struct{}),
	}
}

// Start begins the peer's read loop, feeding envelopes of raw,
// undecoded message bytes into the server's inbound channel for the
// gossip worker pool to decode and consume.
func (p *Peer) Start() {
	p.wg.Add(1)
	go p.readLoop()
}

// Stop closes the connection and waits for the read loop to exit. Call
// it only from outside the read loop's own goroutine — readLoop tears
// itself down via closeConn and must not wait on its own completion.
func (p *Peer) Stop() {
	p.closeConn()
	p.wg.Wait()
}

// closeConn closes the quit channel and the connection exactly once,
// whether triggered by an external Stop or by the read loop noticing
// its own EOF.
func (p *Peer) closeConn() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.Conn.Close()
	})
}

func (p *Peer) readLoop() {
	defer p.wg.Done()
	defer p.Server.RemovePeer(p)
	defer p.closeConn()

	for {
		select {
		case <-p.quit:
			return
		default:
			raw, err := gossip.ReadFramedRaw(p.Conn)
			if err != nil {
				peerLog.Debug().Err(err).Str("peer", p.Conn.RemoteAddr().String()).Msg("peer read loop exiting")
				return
			}
			p.Server.inbound <- gossip.Envelope{Raw: raw, Peer: p}
		}
	}
}

// Write implements gossip.PeerHandle: it sends msg back to this peer
// alone, framed per the wire protocol.
func (p *Peer) Write(msg gossip.Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return gossip.WriteFramed(p.Conn, msg)
}
