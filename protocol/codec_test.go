package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var testID = uuid.MustParse("6f1c2e0a-3b7d-4c52-9a61-0e2f4d8b7c10")

func TestPacketRoundTrip(t *testing.T) {
	cases := []Packet{
		Connect{ID: testID},
		Disconnect{ID: testID},
		Message{Text: "hello, 世界"},
		Message{Text: ""},
		PlayerUpdate{PlayerState{ID: testID, X: 3, Y: 4}},
		PlayerUpdate{PlayerState{ID: uuid.Nil, X: -1.5, Y: math.MaxFloat32}},
		ListRequest{},
	}
	for _, want := range cases {
		got, err := Decode(Encode(want))
		if err != nil {
			t.Fatalf("%v: decode: %v", want.Kind(), err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%v: got %#v want %#v", want.Kind(), got, want)
		}
	}
}

func TestListRoundTrip(t *testing.T) {
	states := []PlayerState{
		{ID: testID, X: 1, Y: 2},
		{ID: uuid.New(), X: -3.25, Y: 0},
	}
	gotStates, err := DecodePlayers(EncodePlayers(states))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotStates, states) {
		t.Fatalf("players: got %v want %v", gotStates, states)
	}

	ids := []uuid.UUID{testID, uuid.New(), uuid.Nil}
	gotIDs, err := DecodeIDs(EncodeIDs(ids))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotIDs, ids) {
		t.Fatalf("ids: got %v want %v", gotIDs, ids)
	}

	empty, err := DecodeIDs(EncodeIDs(nil))
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty ids: %v %v", empty, err)
	}
}

func TestEncodeLayout(t *testing.T) {
	b := Encode(PlayerUpdate{PlayerState{ID: testID, X: 1, Y: 2}})
	if len(b) != 4+stateSize {
		t.Fatalf("len = %d", len(b))
	}
	if tag := binary.LittleEndian.Uint32(b[0:4]); tag != uint32(KindPlayerUpdate) {
		t.Fatalf("tag = %d", tag)
	}
	if n := binary.LittleEndian.Uint64(b[4:12]); n != 16 {
		t.Fatalf("id length prefix = %d", n)
	}
	if !bytes.Equal(b[12:28], testID[:]) {
		t.Fatalf("id bytes = %x", b[12:28])
	}
	if x := math.Float32frombits(binary.LittleEndian.Uint32(b[28:32])); x != 1 {
		t.Fatalf("x = %v", x)
	}
	if y := math.Float32frombits(binary.LittleEndian.Uint32(b[32:36])); y != 2 {
		t.Fatalf("y = %v", y)
	}

	if b := Encode(ListRequest{}); !bytes.Equal(b, []byte{4, 0, 0, 0}) {
		t.Fatalf("list = %v", b)
	}
}

func TestDecodeErrors(t *testing.T) {
	connect := Encode(Connect{ID: testID})
	badID := append([]byte{}, connect...)
	binary.LittleEndian.PutUint64(badID[4:12], 15)
	hugeText := binary.LittleEndian.AppendUint32(nil, uint32(KindMessage))
	hugeText = binary.LittleEndian.AppendUint64(hugeText, math.MaxUint64)
	badText := binary.LittleEndian.AppendUint32(nil, uint32(KindMessage))
	badText = binary.LittleEndian.AppendUint64(badText, 2)
	badText = append(badText, 0xff, 0xfe)

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short tag", []byte{0, 0}, ErrTruncated},
		{"unknown tag", []byte{9, 0, 0, 0}, ErrUnknownTag},
		{"truncated id", connect[:len(connect)-1], ErrTruncated},
		{"trailing", append(append([]byte{}, connect...), 0), ErrTrailingBytes},
		{"list trailing", []byte{4, 0, 0, 0, 1}, ErrTrailingBytes},
		{"id length", badID, ErrBadIDLength},
		{"huge text", hugeText, ErrTruncated},
		{"invalid utf8", badText, ErrInvalidText},
		{"truncated player", Encode(PlayerUpdate{PlayerState{ID: testID}})[:30], ErrTruncated},
	}
	for _, c := range cases {
		p, err := Decode(c.data)
		if p != nil {
			t.Errorf("%s: got packet %#v", c.name, p)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: error %v is not a DecodeError", c.name, err)
			continue
		}
		if !errors.Is(err, c.want) {
			t.Errorf("%s: got %v want %v", c.name, err, c.want)
		}
	}
}

func TestDecodeListErrors(t *testing.T) {
	ids := EncodeIDs([]uuid.UUID{testID})
	if _, err := DecodeIDs(ids[:len(ids)-3]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("truncated ids: %v", err)
	}
	huge := binary.LittleEndian.AppendUint64(nil, 1<<40)
	if _, err := DecodePlayers(huge); !errors.Is(err, ErrTruncated) {
		t.Fatalf("huge count: %v", err)
	}
	players := EncodePlayers([]PlayerState{{ID: testID}})
	if _, err := DecodePlayers(append(players, 1)); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("trailing players: %v", err)
	}
}

func TestEncodeNormalizesInputs(t *testing.T) {
	for _, c := range []struct {
		ptr Packet
		val Packet
	}{
		{&Connect{ID: testID}, Connect{ID: testID}},
		{&Disconnect{ID: testID}, Disconnect{ID: testID}},
		{&Message{Text: "hi"}, Message{Text: "hi"}},
		{&PlayerUpdate{PlayerState{ID: testID, X: 1, Y: 2}}, PlayerUpdate{PlayerState{ID: testID, X: 1, Y: 2}}},
		{&ListRequest{}, ListRequest{}},
	} {
		if got, want := Encode(c.ptr), Encode(c.val); !bytes.Equal(got, want) {
			t.Errorf("%T: got %x want %x", c.ptr, got, want)
		}
	}

	p, err := Decode(Encode(Message{Text: "a\xff\xfeb"}))
	if err != nil {
		t.Fatalf("invalid utf-8 text does not decode: %v", err)
	}
	if got := p.(Message).Text; got != "a�b" {
		t.Fatalf("text = %q", got)
	}
}
