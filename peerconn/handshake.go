// Package peerconn is the client side of a quiver session: it joins a host
// over WebSocket and carries ranged frames in both directions.
package peerconn

import (
	"encoding/json"
	"errors"
	"fmt"

	"quiver/ranged"
)

// Handshake message types. The handshake runs as JSON text frames; every
// frame after the welcome is a binary ranged frame.
const (
	MsgJoin    = "join"
	MsgWelcome = "welcome"
	MsgError   = "error"
)

// Envelope wraps a handshake message with its type
type Envelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinRequest asks to join a session. Token resumes a previous combatant.
type JoinRequest struct {
	SessionID string `json:"sid"`
	Name      string `json:"name"`
	Password  string `json:"password,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Welcome is the host's answer to a successful join
type Welcome struct {
	SessionID  string             `json:"sid"`
	Combatant  ranged.CombatantID `json:"id"`
	Token      string             `json:"token"`
	LastTicket uint32             `json:"last_ticket"`
	TuningHash uint64             `json:"tuning_hash"`
	TickRate   int                `json:"tick_rate"`
	Roster     ranged.Roster      `json:"roster"`
	Wind       ranged.WindState   `json:"wind"`
}

// ErrorMsg is sent instead of a Welcome when the join is refused
type ErrorMsg struct {
	Msg string `json:"msg"`
}

var (
	ErrRejected = errors.New("join rejected")
	ErrClosed   = errors.New("connection closed")
)

// NewEnvelope marshals v under type t
func NewEnvelope(t string, v any) (Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", t, err)
	}
	return Envelope{T: t, D: data}, nil
}
