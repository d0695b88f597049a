package peerconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"quiver/ranged"
)

const (
	defaultReadLimit       = 64 * 1024
	defaultReliableQueue   = 256
	defaultUnreliableQueue = 16
	defaultWriteTimeout    = 5 * time.Second
)

type config struct {
	log             *slog.Logger
	readLimit       int64
	reliableQueue   int
	unreliableQueue int
	writeTimeout    time.Duration
}

type Option func(*config)

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.log = l } }

func WithReadLimit(n int64) Option { return func(c *config) { c.readLimit = n } }

func WithWriteTimeout(d time.Duration) Option { return func(c *config) { c.writeTimeout = d } }

// WithQueueSizes bounds the outbound queues. Reliable sends block when
// their queue is full; unreliable sends evict the oldest queued frame.
func WithQueueSizes(reliable, unreliable int) Option {
	return func(c *config) {
		c.reliableQueue = reliable
		c.unreliableQueue = unreliable
	}
}

// Conn is a joined client connection. It implements ranged.Transport for
// the client role.
type Conn struct {
	ws           *websocket.Conn
	log          *slog.Logger
	writeTimeout time.Duration

	reliable   chan []byte
	unreliable chan []byte
	dropped    atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

var _ ranged.Transport = (*Conn)(nil)

// Dial connects to a host and runs the join handshake. The returned Conn
// carries nothing until Run is called.
func Dial(ctx context.Context, url string, req JoinRequest, opts ...Option) (*Conn, *Welcome, error) {
	cfg := config{
		log:             slog.Default(),
		readLimit:       defaultReadLimit,
		reliableQueue:   defaultReliableQueue,
		unreliableQueue: defaultUnreliableQueue,
		writeTimeout:    defaultWriteTimeout,
	}
	for _, o := range opts {
		o(&cfg)
	}

	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ws.SetReadLimit(cfg.readLimit)

	welcome, err := join(ctx, ws, req)
	if err != nil {
		ws.CloseNow()
		return nil, nil, err
	}

	c := &Conn{
		ws:           ws,
		log:          cfg.log.With("sid", welcome.SessionID, "combatant", string(welcome.Combatant)),
		writeTimeout: cfg.writeTimeout,
		reliable:     make(chan []byte, cfg.reliableQueue),
		unreliable:   make(chan []byte, cfg.unreliableQueue),
		done:         make(chan struct{}),
	}
	c.log.Info("joined", "last_ticket", welcome.LastTicket, "combatants", len(welcome.Roster.Entries))
	return c, welcome, nil
}

func join(ctx context.Context, ws *websocket.Conn, req JoinRequest) (*Welcome, error) {
	env, err := NewEnvelope(MsgJoin, req)
	if err != nil {
		return nil, err
	}
	if err := wsjson.Write(ctx, ws, env); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}

	var reply Envelope
	if err := wsjson.Read(ctx, ws, &reply); err != nil {
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	switch reply.T {
	case MsgWelcome:
		var w Welcome
		if err := json.Unmarshal(reply.D, &w); err != nil {
			return nil, fmt.Errorf("decode welcome: %w", err)
		}
		return &w, nil
	case MsgError:
		var e ErrorMsg
		_ = json.Unmarshal(reply.D, &e)
		return nil, fmt.Errorf("%w: %s", ErrRejected, e.Msg)
	}
	return nil, fmt.Errorf("unexpected handshake reply %q", reply.T)
}

// Run pumps frames until ctx ends, the host goes away or Close is called.
// Inbound binary frames go to d. It returns nil on a local shutdown.
func (c *Conn) Run(ctx context.Context, d ranged.Deliverer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx, d) })
	g.Go(func() error { return c.writeLoop(gctx) })

	err := g.Wait()
	closedLocally := c.closed() || ctx.Err() != nil
	c.Close()
	if closedLocally {
		return nil
	}
	return err
}

func (c *Conn) readLoop(ctx context.Context, d ranged.Deliverer) error {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageBinary {
			c.log.Debug("ignoring text frame", "len", len(data))
			continue
		}
		d.Deliver(ranged.HostPeer, data)
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		var frame []byte
		select {
		case frame = <-c.reliable:
		default:
			select {
			case frame = <-c.reliable:
			case frame = <-c.unreliable:
			case <-ctx.Done():
				return ctx.Err()
			case <-c.done:
				return ErrClosed
			}
		}

		wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageBinary, frame)
		cancel()
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
}

// SendToHost queues a frame for the host
func (c *Conn) SendToHost(msg []byte, d ranged.Delivery) error {
	if c.closed() {
		return ErrClosed
	}
	if d == ranged.Unreliable {
		for {
			select {
			case c.unreliable <- msg:
				return nil
			default:
			}
			// only the newest unreliable frame matters
			select {
			case <-c.unreliable:
				c.dropped.Add(1)
			default:
			}
		}
	}
	select {
	case c.reliable <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Conn) Broadcast([]byte, ranged.Delivery) error { return ranged.ErrNotHost }

func (c *Conn) SendTo(ranged.PeerID, []byte, ranged.Delivery) error { return ranged.ErrNotHost }

// PeerCount is 1 while the host is connected
func (c *Conn) PeerCount() int {
	if c.closed() {
		return 0
	}
	return 1
}

// Dropped counts unreliable frames evicted before they were written
func (c *Conn) Dropped() uint64 { return c.dropped.Load() }

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close leaves the session. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close(websocket.StatusNormalClosure, "leaving")
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		c.log.Info("left session", "dropped", c.dropped.Load())
	})
	return err
}
