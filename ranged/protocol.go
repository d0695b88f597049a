package ranged

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgType tags a replication frame
type MsgType uint8

const (
	MsgSpawnRequest MsgType = iota + 1 // client -> host
	MsgArrowSpawned                    // host -> all
	MsgLaunchRequest                   // client -> host
	MsgLaunch                          // host -> all
	MsgDespawn                         // host -> all
	MsgStage                           // authority -> host -> all
	MsgDrawProgress                    // authority -> host -> all
	MsgWind                            // host -> all
	MsgRoster                          // host -> all
)

func (t MsgType) String() string {
	switch t {
	case MsgSpawnRequest:
		return "spawn_request"
	case MsgArrowSpawned:
		return "arrow_spawned"
	case MsgLaunchRequest:
		return "launch_request"
	case MsgLaunch:
		return "launch"
	case MsgDespawn:
		return "despawn"
	case MsgStage:
		return "stage"
	case MsgDrawProgress:
		return "draw_progress"
	case MsgWind:
		return "wind"
	case MsgRoster:
		return "roster"
	}
	return fmt.Sprintf("msg(%d)", uint8(t))
}

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrShortFrame     = errors.New("empty frame")
)

// Envelope wraps every frame. D stays raw so a frame is decoded once the
// type is known.
type Envelope struct {
	T MsgType            `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d"`
}

// SpawnRequest asks the host to spawn the arrow a client just armed
type SpawnRequest struct {
	Combatant CombatantID `msgpack:"c"`
	Ticket    uint32      `msgpack:"k"`
}

// SpawnPayload travels with a replicated actor so it renders correctly
// on arrival. Name is the canonical Arrow_{owner}_{ticket} form.
type SpawnPayload struct {
	Name     string `msgpack:"n"`
	Color    Color  `msgpack:"col"`
	Team     int    `msgpack:"tm"`
	Position Vec3   `msgpack:"pos"`
}

// Despawn removes an unfired actor that was superseded or orphaned
type Despawn struct {
	Name string `msgpack:"n"`
}

// RosterEntry describes one combatant of a session
type RosterEntry struct {
	ID       CombatantID `msgpack:"id" json:"id"`
	Name     string      `msgpack:"n" json:"name"`
	Team     int         `msgpack:"tm" json:"team"`
	Color    Color       `msgpack:"col" json:"color"`
	Position Vec3        `msgpack:"pos" json:"position"`
	Ammo     int         `msgpack:"am" json:"ammo"`
	Bot      bool        `msgpack:"b" json:"bot"`
}

// Roster is the full combatant list plus the match-wide rules
type Roster struct {
	Mode         CombatMode    `msgpack:"m" json:"mode"`
	InfiniteAmmo bool          `msgpack:"ia" json:"infinite_ammo"`
	Entries      []RosterEntry `msgpack:"e" json:"entries"`
}

// DeliveryPolicy selects the delivery mode per message type
type DeliveryPolicy map[MsgType]Delivery

// DefaultDeliveryPolicy sends discrete state reliably and continuous draw
// progress best-effort.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		MsgSpawnRequest:  Reliable,
		MsgArrowSpawned:  Reliable,
		MsgLaunchRequest: Reliable,
		MsgLaunch:        Reliable,
		MsgDespawn:       Reliable,
		MsgStage:         Reliable,
		MsgDrawProgress:  Unreliable,
		MsgWind:          Reliable,
		MsgRoster:        Reliable,
	}
}

// For returns the delivery mode for t, reliable when unlisted
func (p DeliveryPolicy) For(t MsgType) Delivery {
	if d, ok := p[t]; ok {
		return d
	}
	return Reliable
}

func known(t MsgType) bool {
	return t >= MsgSpawnRequest && t <= MsgRoster
}

// Encode builds a frame carrying v
func Encode(t MsgType, v any) ([]byte, error) {
	if !known(t) {
		return nil, fmt.Errorf("encode: %w: %d", ErrUnknownMessage, t)
	}
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return msgpack.Marshal(Envelope{T: t, D: body})
}

// Decode splits a frame into its type and raw body
func Decode(frame []byte) (MsgType, msgpack.RawMessage, error) {
	if len(frame) == 0 {
		return 0, nil, ErrShortFrame
	}
	var env Envelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return 0, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !known(env.T) {
		return env.T, nil, fmt.Errorf("decode: %w: %d", ErrUnknownMessage, env.T)
	}
	return env.T, env.D, nil
}

// DecodeBody unmarshals a frame body into a T
func DecodeBody[T any](raw msgpack.RawMessage) (T, error) {
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode body: %w", err)
	}
	return v, nil
}
