package ranged

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func TestArrowIDString(t *testing.T) {
	id := ArrowID{Owner: "p_7", Ticket: 12}
	if got := id.String(); got != "Arrow_p_7_12" {
		t.Errorf("String() = %q", got)
	}
	back, err := ParseArrowID(id.String())
	if err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Errorf("parsed %+v, want %+v", back, id)
	}
}

func TestParseArrowIDRejectsMalformed(t *testing.T) {
	for _, name := range []string{
		"",
		"Bolt_p1_3",
		"Arrow_",
		"Arrow__3",
		"Arrow_p1",
		"Arrow_p1_",
		"Arrow_p1_x",
		"Arrow_p1_-1",
		"Arrow_p1_99999999999",
	} {
		if _, err := ParseArrowID(name); !errors.Is(err, ErrBadArrowName) {
			t.Errorf("ParseArrowID(%q) err = %v, want ErrBadArrowName", name, err)
		}
	}
}

// Parsing inverts rendering, so two different identities can never share
// a name: not for one owner's successive tickets and not across owners.
func TestArrowIdentityInjective(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := ArrowID{
			Owner:  CombatantID(rapid.StringMatching(`[A-Za-z0-9_-]{1,12}`).Draw(t, "ownerA")),
			Ticket: rapid.Uint32().Draw(t, "ticketA"),
		}
		b := ArrowID{
			Owner:  CombatantID(rapid.StringMatching(`[A-Za-z0-9_-]{1,12}`).Draw(t, "ownerB")),
			Ticket: rapid.Uint32().Draw(t, "ticketB"),
		}
		back, err := ParseArrowID(a.String())
		if err != nil {
			t.Fatalf("ParseArrowID(%q): %v", a.String(), err)
		}
		if back != a {
			t.Fatalf("round trip %+v -> %+v", a, back)
		}
		if a != b && a.String() == b.String() {
			t.Fatalf("%+v and %+v share the name %q", a, b, a.String())
		}
	})
}
