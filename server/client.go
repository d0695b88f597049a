package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quiver/peerconn"
	"quiver/ranged"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	joinWait           = 10 * time.Second
	maxMessageSize     = 64 << 10
	sendBufSize        = 256
	maxMessagesPerSec  = 120
	maxQuickMatchTries = 3
)

var (
	ErrPeerGone = errors.New("peer disconnected")
	ErrSlowPeer = errors.New("peer too slow, disconnected")
)

type outFrame struct {
	text bool
	data []byte
}

// Client is one WebSocket connection on the host. After the JSON join
// handshake it carries binary ranged frames only.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan outFrame
	done       chan struct{}
	closeOnce  sync.Once
	peerID     ranged.PeerID
	remoteAddr string
	log        *slog.Logger

	// set by the join; read by the hub after Serve returns
	sessionID string
	combatant ranged.CombatantID
	game      *Game

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := ranged.PeerID(GenerateID(6))
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan outFrame, sendBufSize),
		done:       make(chan struct{}),
		peerID:     id,
		remoteAddr: remoteAddr,
		log:        hub.log.With("peer", string(id), "addr", remoteAddr),
	}
}

// Serve runs the connection: the join handshake, then the write pump and
// the read loop. It returns when the connection is gone.
func (c *Client) Serve() {
	defer func() {
		c.close()
		c.hub.Release(c.remoteAddr)
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.handshake(); err != nil {
		c.log.Info("join refused", "err", err)
		c.refuse(err)
		return
	}
	go c.WritePump()
	c.ReadPump()
}

// handshake reads the join request and seats the client. Nothing else
// writes to the connection yet, so a refusal can be written directly.
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(joinWait))
	msgType, raw, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read join: %w", err)
	}
	if msgType != websocket.TextMessage {
		return errors.New("expected a join message")
	}
	var env peerconn.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.T != peerconn.MsgJoin {
		return errors.New("expected a join message")
	}
	var req peerconn.JoinRequest
	if err := json.Unmarshal(env.D, &req); err != nil {
		return fmt.Errorf("bad join: %w", err)
	}
	return c.handleJoin(req)
}

func (c *Client) handleJoin(req peerconn.JoinRequest) error {
	var (
		sess *Session
		id   ranged.CombatantID
		err  error
	)
	switch {
	case req.Token != "":
		var sid string
		sid, id, err = c.hub.auth.ValidateToken(req.Token)
		if err != nil {
			return err
		}
		if req.SessionID != "" && req.SessionID != sid {
			return ErrBadToken
		}
		if sess = c.hub.sessions.GetSession(sid); sess == nil {
			return ErrNoSession
		}
	case req.SessionID != "":
		if sess = c.hub.sessions.GetSession(req.SessionID); sess == nil {
			return ErrNoSession
		}
		if err := c.hub.auth.CheckPassword(sess.PassHash, req.Password, c.remoteAddr); err != nil {
			return err
		}
		id = newCombatantID()
	default:
		if sess, err = c.hub.sessions.QuickMatch(); err != nil {
			return err
		}
		id = newCombatantID()
	}

	quick := req.Token == "" && req.SessionID == ""
	for attempt := 1; ; attempt++ {
		token := req.Token
		if token == "" {
			if token, err = c.hub.auth.IssueToken(sess.ID, id); err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
		}

		// The welcome is queued here; WritePump starts after we return.
		_, err = sess.Game.Join(JoinSpec{
			ID:     id,
			Name:   req.Name,
			Token:  token,
			PeerID: c.peerID,
			Peer:   c,
		})
		if err == nil {
			break
		}
		// a quick-match session can end between the pick and the join
		if !quick || !errors.Is(err, ErrGameStopped) || attempt == maxQuickMatchTries {
			return err
		}
		if sess, err = c.hub.sessions.QuickMatch(); err != nil {
			return err
		}
	}
	c.log = c.log.With("session", sess.ID, "combatant", string(id))
	c.sessionID = sess.ID
	c.combatant = id
	c.game = sess.Game
	return nil
}

// refuse writes the error reply and a close frame
func (c *Client) refuse(reason error) {
	env, err := peerconn.NewEnvelope(peerconn.MsgError, peerconn.ErrorMsg{Msg: reason.Error()})
	if err != nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		return
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "join refused"))
}

// ReadPump reads ranged frames and hands them to the game
func (c *Client) ReadPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws error", "err", err)
			}
			return
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			return
		}

		if msgType != websocket.BinaryMessage {
			c.log.Debug("ignoring text frame after join")
			continue
		}
		c.game.Deliver(c.peerID, message)
	}
}

// WritePump writes queued frames and keeps the connection alive
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			typ := websocket.BinaryMessage
			if f.text {
				typ = websocket.TextMessage
			}
			if err := c.conn.WriteMessage(typ, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// SendFrame queues a binary ranged frame. An unreliable frame is dropped
// when the queue is full; a reliable one cannot be, so the peer is
// disconnected instead.
func (c *Client) SendFrame(frame []byte, d ranged.Delivery) error {
	return c.enqueue(outFrame{data: frame}, d)
}

// SendJSON queues a JSON text message
func (c *Client) SendJSON(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return c.enqueue(outFrame{text: true, data: data}, ranged.Reliable)
}

func (c *Client) enqueue(f outFrame, d ranged.Delivery) error {
	select {
	case <-c.done:
		return ErrPeerGone
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
	}
	if d == ranged.Unreliable {
		return nil
	}
	c.log.Warn("send queue full, disconnecting")
	c.close()
	return ErrSlowPeer
}

// close stops the write pump and unblocks the read loop. The hub then
// unseats the combatant.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func newCombatantID() ranged.CombatantID {
	return ranged.CombatantID("p_" + GenerateID(4))
}
