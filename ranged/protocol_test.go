package ranged

import (
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode(t *testing.T) {
	want := SpawnRequest{Combatant: "p_1", Ticket: 9}
	frame, err := Encode(MsgSpawnRequest, want)
	if err != nil {
		t.Fatal(err)
	}
	typ, raw, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if typ != MsgSpawnRequest {
		t.Fatalf("type = %s", typ)
	}
	got, err := DecodeBody[SpawnRequest](raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// A launch order must arrive with exactly the bits it left with, or
// peers fly the same arrow along different paths.
func TestLaunchOrderKeepsFloatBits(t *testing.T) {
	o := LaunchOrder{
		Arrow:    ArrowID{Owner: "p1", Ticket: 3},
		Origin:   Vec3{X: 0.1, Y: 1.5 + 1e-15, Z: -math.Pi},
		Velocity: Vec3{X: 31.28342789, Y: math.Nextafter(7, 8), Z: -4.1},
		Wind:     Vec3{X: math.SmallestNonzeroFloat64, Z: 5.000000000000001},
		Power:    100,
		Accuracy: 90,
		Loft:     7.123456789012345,
	}
	frame, err := Encode(MsgLaunch, o)
	if err != nil {
		t.Fatal(err)
	}
	_, raw, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBody[LaunchOrder](raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != o {
		t.Errorf("order changed in transit:\n got %+v\nwant %+v", got, o)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, _, err := Decode(nil); !errors.Is(err, ErrShortFrame) {
		t.Errorf("empty frame: %v", err)
	}
	if _, _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("garbage accepted")
	}

	unknown, _ := msgpack.Marshal(Envelope{T: 200})
	if _, _, err := Decode(unknown); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("unknown type: %v", err)
	}
	if _, err := Encode(0, nil); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("encode of type 0: %v", err)
	}
}

func TestDefaultDeliveryPolicy(t *testing.T) {
	p := DefaultDeliveryPolicy()
	for typ := MsgSpawnRequest; typ <= MsgRoster; typ++ {
		want := Reliable
		if typ == MsgDrawProgress {
			want = Unreliable
		}
		if got := p.For(typ); got != want {
			t.Errorf("%s: %s, want %s", typ, got, want)
		}
	}
	if got := (DeliveryPolicy{}).For(MsgLaunch); got != Reliable {
		t.Errorf("unlisted type delivered %s", got)
	}
}
