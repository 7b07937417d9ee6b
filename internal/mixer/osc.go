package mixer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// OSC wire format helpers. Only the argument types the XAir family actually
// uses are supported: int32 ('i'), float32 ('f'), string ('s') and blob
// ('b'). Everything in OSC is padded to 4-byte boundaries.

// oscAlign returns the number of zero bytes needed to pad n to a multiple
// of four.
func oscAlign(n int) int {
	return (4 - n%4) % 4
}

func appendPadded(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for i := 0; i < oscAlign(len(s)+1); i++ {
		buf = append(buf, 0)
	}
	return buf
}

// encodeOSC builds a single OSC message datagram.
// Unsupported argument types panic; the caller controls every argument and a
// bad type is a programming error, not runtime input.
func encodeOSC(addr string, args ...any) []byte {
	tags := make([]byte, 0, len(args)+1)
	tags = append(tags, ',')
	for _, arg := range args {
		switch arg.(type) {
		case int32:
			tags = append(tags, 'i')
		case float32:
			tags = append(tags, 'f')
		case string:
			tags = append(tags, 's')
		case []byte:
			tags = append(tags, 'b')
		default:
			panic(fmt.Sprintf("osc: unsupported argument type %T", arg))
		}
	}

	buf := appendPadded(nil, addr)
	buf = appendPadded(buf, string(tags))

	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		case float32:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
		case string:
			buf = appendPadded(buf, v)
		case []byte:
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))
			buf = append(buf, v...)
			for i := 0; i < oscAlign(len(v)); i++ {
				buf = append(buf, 0)
			}
		}
	}

	return buf
}

// readPaddedString consumes a NUL-terminated, 4-byte-aligned string starting
// at pos. Returns the string and the position after its padding.
func readPaddedString(data []byte, pos int) (string, int, error) {
	end := pos
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end == len(data) {
		return "", 0, fmt.Errorf("%w: unterminated string", ErrMalformedPacket)
	}
	s := string(data[pos:end])
	n := end - pos + 1
	return s, pos + n + oscAlign(n), nil
}

// decodeOSC parses a single OSC message datagram into its address and
// argument list. Messages without a type tag string (legal in OSC 1.0) yield
// a nil argument list.
func decodeOSC(data []byte) (string, []any, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("%w: %d bytes", ErrMalformedPacket, len(data))
	}

	addr, pos, err := readPaddedString(data, 0)
	if err != nil {
		return "", nil, err
	}
	if addr == "" || addr[0] != '/' {
		return "", nil, fmt.Errorf("%w: bad address %q", ErrMalformedPacket, addr)
	}

	if pos >= len(data) || data[pos] != ',' {
		return addr, nil, nil
	}
	tags, pos, err := readPaddedString(data, pos)
	if err != nil {
		return addr, nil, err
	}

	var args []any
	for _, tag := range tags[1:] {
		switch tag {
		case 'i':
			if pos+4 > len(data) {
				return addr, args, fmt.Errorf("%w: truncated int32", ErrMalformedPacket)
			}
			args = append(args, int32(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 'f':
			if pos+4 > len(data) {
				return addr, args, fmt.Errorf("%w: truncated float32", ErrMalformedPacket)
			}
			args = append(args, math.Float32frombits(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 's':
			var s string
			s, pos, err = readPaddedString(data, pos)
			if err != nil {
				return addr, args, err
			}
			args = append(args, s)
		case 'b':
			if pos+4 > len(data) {
				return addr, args, fmt.Errorf("%w: truncated blob size", ErrMalformedPacket)
			}
			size := int(binary.BigEndian.Uint32(data[pos:]))
			pos += 4
			if size < 0 || pos+size > len(data) {
				return addr, args, fmt.Errorf("%w: truncated blob", ErrMalformedPacket)
			}
			args = append(args, append([]byte(nil), data[pos:pos+size]...))
			pos += size + oscAlign(size)
		default:
			return addr, args, fmt.Errorf("%w: unsupported type tag %q", ErrMalformedPacket, tag)
		}
	}

	return addr, args, nil
}
