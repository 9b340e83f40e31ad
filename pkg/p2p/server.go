// Package p2p is the transport collaborator the gossip worker pool
// talks to: it owns TCP connections to peers and feeds raw, undecoded
// message bytes into a shared inbound channel. The socket/peer-registry layer
// itself is out of the hard core's scope (spec §1); this package
// exists to give the gossip package something real to exercise.
package p2p

import (
	"net"
	"sync"

	"github.com/pillaiarjun/driftnode/pkg/gossip"
	"github.com/pillaiarjun/driftnode/pkg/logging"
)

var serverLog = logging.For("p2p")

// Server manages TCP connections to peers and implements gossip.Server
// (Broadcast) for the worker pool's fan-out replies.
type Server struct {
	Config ServerConfig

	peers    map[string]*Peer
	peerMu   sync.RWMutex
	listener net.Listener
	quit     chan struct{}

	inbound chan gossip.Envelope
}

// ServerConfig holds the listen address and initial seed peers.
type ServerConfig struct {
	ListenAddr string
	SeedNodes  []string
}

// NewServer constructs a server with a buffered inbound channel ready
// to be handed to a gossip.Dispatcher.
func NewServer(config ServerConfig) *Server {
	return &Server{
		Config:  config,
		peers:   make(map[string]*Peer),
		quit:    make(chan struct{}),
		inbound: make(chan gossip.Envelope, 256),
	}
}

// Inbound exposes the channel the gossip dispatcher should read from.
func (s *Server) Inbound() <-chan gossip.Envelope { return s.inbound }

// Start begins listening and dials any configured seed nodes.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.Config.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = l
	serverLog.Info().Str("addr", s.Config.ListenAddr).Msg("p2p server listening")

	for _, seed := range s.Config.SeedNodes {
		go s.Connect(seed)
	}

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connected peer.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	// Stop peers outside peerMu: each peer's read loop calls RemovePeer,
	// which takes peerMu, before p.Stop can return.
	s.peerMu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peerMu.RUnlock()
	for _, p := range peers {
		p.Stop()
	}
}

// Connect dials addr and registers it as an outbound peer.
func (s *Server) Connect(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		serverLog.Warn().Err(err).Str("addr", addr).Msg("failed to connect to seed")
		return
	}
	s.addPeer(conn, true)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				serverLog.Warn().Err(err).Msg("accept error")
				continue
			}
		}
		s.addPeer(conn, false)
	}
}

func (s *Server) addPeer(conn net.Conn, outbound bool) {
	s.peerMu.Lock()
	defer s.peerMu.Unlock()

	addr := conn.RemoteAddr().String()
	if _, ok := s.peers[addr]; ok {
		conn.Close()
		return
	}

	p := NewPeer(conn, s, outbound)
	s.peers[addr] = p
	p.Start()

	serverLog.Info().Str("peer", addr).Bool("outbound", outbound).Msg("peer connected")
}

// RemovePeer drops p from the registry. It is called from the peer's
// own read-loop teardown, so it must not call p.Stop() — that would
// wait on the read loop's goroutine to finish from inside itself.
// closeConn is idempotent, so this is still safe if invoked more than
// once for the same peer.
func (s *Server) RemovePeer(p *Peer) {
	s.peerMu.Lock()
	addr := p.Conn.RemoteAddr().String()
	delete(s.peers, addr)
	s.peerMu.Unlock()

	p.closeConn()
	serverLog.Info().Str("peer", addr).Msg("peer disconnected")
}

// Broadcast implements gossip.Server: it writes msg to every connected
// peer concurrently.
func (s *Server) Broadcast(msg gossip.Message) {
	s.peerMu.RLock()
	defer s.peerMu.RUnlock()

	for _, p := range s.peers {
		go func(p *Peer) {
			if err := p.Write(msg); err != nil {
				serverLog.Debug().Err(err).Msg("broadcast write failed")
			}
		}(p)
	}
}
