package net

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Peer is one participant connected to the relay.
type Peer struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

func (p *Peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Peer) addr() string {
	return p.Conn.RemoteAddr().String()
}

// PeerManager is used by the relay to track every connected participant.
type PeerManager struct {
	peers map[*Peer]struct{}
	mu    sync.RWMutex
}

// NewPeerManager creates a new manager.
func NewPeerManager() *PeerManager {
	return &PeerManager{
		peers: make(map[*Peer]struct{}),
	}
}

// Add registers a newly connected peer.
func (pm *PeerManager) Add(peer *Peer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peers[peer] = struct{}{}
	log.Printf("[RELAY] Peer connected from %s", peer.addr())
}

// Remove forgets a peer and closes its connection.
func (pm *PeerManager) Remove(peer *Peer) {
	pm.mu.Lock()
	_, ok := pm.peers[peer]
	delete(pm.peers, peer)
	pm.mu.Unlock()
	if ok {
		_ = peer.Conn.Close()
		log.Printf("[RELAY] Peer %s removed", peer.addr())
	}
}

// Len returns the number of connected peers.
func (pm *PeerManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// Broadcast sends data to every peer, the sender included. Peers that fail
// to take the write are dropped.
func (pm *PeerManager) Broadcast(data []byte) {
	pm.mu.RLock()
	var failed []*Peer
	for peer := range pm.peers {
		if err := peer.write(data); err != nil {
			log.Printf("[RELAY] Error sending to %s: %v", peer.addr(), err)
			failed = append(failed, peer)
		}
	}
	pm.mu.RUnlock()
	for _, peer := range failed {
		pm.Remove(peer)
	}
}
