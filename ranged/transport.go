package ranged

import "errors"

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Delivery selects how a message crosses the transport
type Delivery uint8

const (
	// Reliable messages arrive exactly once and in send order per peer
	Reliable Delivery = iota
	// Unreliable messages may be dropped; only the newest one matters
	Unreliable
)

func (d Delivery) String() string {
	if d == Unreliable {
		return "unreliable"
	}
	return "reliable"
}

// PeerID names a connection on the host side. The host itself is HostPeer.
type PeerID string

const HostPeer PeerID = ""

var ErrNotHost = errors.New("operation requires the host role")

// Transport is the only way the core talks to other peers
type Transport interface {
	// SendToHost is used by clients. On the host it is a no-op.
	SendToHost(msg []byte, d Delivery) error
	// Broadcast sends to every connected client. Clients get ErrNotHost.
	Broadcast(msg []byte, d Delivery) error
	// SendTo sends to one client. Clients get ErrNotHost.
	SendTo(peer PeerID, msg []byte, d Delivery) error
	// PeerCount is the number of connected remote peers
	PeerCount() int
}

// Deliverer accepts inbound frames from a transport goroutine
type Deliverer interface {
	Deliver(from PeerID, frame []byte)
}

