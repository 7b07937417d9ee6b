package mixer

import "fmt"

// Kind identifies a supported console model family.
type Kind string

// Supported console kinds.
const (
	KindXR12 Kind = "XR12"
	KindXR16 Kind = "XR16"
	KindXR18 Kind = "XR18"
	KindMR18 Kind = "MR18"
	KindX32  Kind = "X32"
)

// kindInfo holds the per-model facts the client needs.
type kindInfo struct {
	channels int
	port     int
}

// The XR18 and MR18 expose 16 addressable channel strips; inputs 17/18 are
// the stereo aux pair and are not reachable via /ch/NN/.
var kinds = map[Kind]kindInfo{
	KindXR12: {channels: 12, port: 10024},
	KindXR16: {channels: 16, port: 10024},
	KindXR18: {channels: 16, port: 10024},
	KindMR18: {channels: 16, port: 10024},
	KindX32:  {channels: 32, port: 10023},
}

// ChannelCount returns the number of addressable channel strips for a kind.
func ChannelCount(kind Kind) (int, error) {
	info, ok := kinds[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return info.channels, nil
}

// DefaultPort returns the console's default OSC port for a kind.
func DefaultPort(kind Kind) (int, error) {
	info, ok := kinds[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return info.port, nil
}

// muteAddress returns the OSC address of a channel strip's on/off parameter.
func muteAddress(channel int) string {
	return fmt.Sprintf("/ch/%02d/mix/on", channel)
}
