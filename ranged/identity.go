package ranged

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CombatantID identifies a combatant for the lifetime of a session
type CombatantID string

// ArrowID is the identity of one projectile actor. The owner is part of
// the identity, so equal tickets from different combatants never collide.
type ArrowID struct {
	Owner  CombatantID `msgpack:"o"`
	Ticket uint32      `msgpack:"t"`
}

const arrowPrefix = "Arrow_"

var ErrBadArrowName = errors.New("malformed arrow name")

// String renders the canonical actor name, Arrow_{owner}_{ticket}
func (id ArrowID) String() string {
	return arrowPrefix + string(id.Owner) + "_" + strconv.FormatUint(uint64(id.Ticket), 10)
}

// IsZero reports whether id names no arrow
func (id ArrowID) IsZero() bool {
	return id.Owner == "" && id.Ticket == 0
}

// ParseArrowID recovers an ArrowID from its canonical name. The ticket is
// taken after the last underscore so owner ids may contain underscores.
func ParseArrowID(name string) (ArrowID, error) {
	rest, ok := strings.CutPrefix(name, arrowPrefix)
	if !ok {
		return ArrowID{}, fmt.Errorf("%w: %q", ErrBadArrowName, name)
	}
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return ArrowID{}, fmt.Errorf("%w: %q", ErrBadArrowName, name)
	}
	ticket, err := strconv.ParseUint(rest[i+1:], 10, 32)
	if err != nil {
		return ArrowID{}, fmt.Errorf("%w: %q", ErrBadArrowName, name)
	}
	return ArrowID{Owner: CombatantID(rest[:i]), Ticket: uint32(ticket)}, nil
}
