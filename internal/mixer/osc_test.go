package mixer

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestEncodeOSC_MuteCommandWireFormat(t *testing.T) {
	got := encodeOSC("/ch/01/mix/on", int32(1))

	want := []byte{
		'/', 'c', 'h', '/', '0', '1', '/', 'm', 'i', 'x', '/', 'o', 'n', 0, 0, 0,
		',', 'i', 0, 0,
		0, 0, 0, 1,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encodeOSC() = % x, want % x", got, want)
	}
}

func TestEncodeOSC_NoArguments(t *testing.T) {
	got := encodeOSC("/xremote")

	want := []byte{
		'/', 'x', 'r', 'e', 'm', 'o', 't', 'e', 0, 0, 0, 0,
		',', 0, 0, 0,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encodeOSC() = % x, want % x", got, want)
	}
}

func TestOSC_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		addr string
		args []any
	}{
		{"no args", "/xinfo", nil},
		{"mute on", "/ch/16/mix/on", []any{int32(0)}},
		{"mute off", "/ch/02/mix/on", []any{int32(1)}},
		{"strings", "/xinfo", []any{"192.168.1.10", "XR18-A1", "XR18", "1.18"}},
		{"float", "/ch/01/mix/fader", []any{float32(0.75)}},
		{"mixed", "/node", []any{"ch/01/config", int32(3), float32(1.5)}},
		{"blob", "/meters", []any{[]byte{0x01, 0x02, 0x03}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, args, err := decodeOSC(encodeOSC(tt.addr, tt.args...))
			if err != nil {
				t.Fatalf("decodeOSC() error = %v", err)
			}
			if addr != tt.addr {
				t.Errorf("address = %q, want %q", addr, tt.addr)
			}
			if len(tt.args) == 0 {
				if len(args) != 0 {
					t.Errorf("args = %v, want none", args)
				}
				return
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("args = %v, want %v", args, tt.args)
			}
		})
	}
}

func TestDecodeOSC_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte{'/', 'a'}},
		{"no address slash", []byte{'x', 0, 0, 0}},
		{"unterminated address", []byte{'/', 'a', 'b', 'c'}},
		{"truncated int", []byte{'/', 'x', 0, 0, ',', 'i', 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodeOSC(tt.data); !errors.Is(err, ErrMalformedPacket) {
				t.Errorf("decodeOSC(% x) error = %v, want ErrMalformedPacket", tt.data, err)
			}
		})
	}
}

func TestMuteAddress(t *testing.T) {
	tests := []struct {
		channel int
		want    string
	}{
		{1, "/ch/01/mix/on"},
		{9, "/ch/09/mix/on"},
		{16, "/ch/16/mix/on"},
		{32, "/ch/32/mix/on"},
	}
	for _, tt := range tests {
		if got := muteAddress(tt.channel); got != tt.want {
			t.Errorf("muteAddress(%d) = %q, want %q", tt.channel, got, tt.want)
		}
	}
}

func TestChannelCount(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindXR12, 12},
		{KindXR16, 16},
		{KindXR18, 16},
		{KindMR18, 16},
		{KindX32, 32},
	}
	for _, tt := range tests {
		got, err := ChannelCount(tt.kind)
		if err != nil {
			t.Errorf("ChannelCount(%s) error = %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("ChannelCount(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}

	if _, err := ChannelCount("XR99"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ChannelCount(XR99) error = %v, want ErrUnknownKind", err)
	}
}

func TestDefaultPort(t *testing.T) {
	if port, _ := DefaultPort(KindXR18); port != 10024 {
		t.Errorf("XR18 port = %d, want 10024", port)
	}
	if port, _ := DefaultPort(KindX32); port != 10023 {
		t.Errorf("X32 port = %d, want 10023", port)
	}
	if _, err := DefaultPort("DM1000"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("DefaultPort(DM1000) error = %v, want ErrUnknownKind", err)
	}
}
