// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"fmt"
	"strings"
)

// Records travel as packets in the style of the GDB remote protocol:
//
//	%<payload>#<trailer>
//
// '%', '#' and '}' inside the payload are escaped as '}' followed by the
// byte xor 0x20, so a payload can carry any text emitted through the raw
// path. The trailer lets the consumer check that the record is complete.
const (
	packetStart = '%'
	packetEnd   = '#'
	escapeByte  = '}'
	escapeXor   = 0x20
)

// Trailer selects the validation fragment written after a packet.
type Trailer int

const (
	// TrailerPlaceholder always writes "00".
	TrailerPlaceholder Trailer = iota
	// TrailerMod256 writes the escaped payload byte sum modulo 256 as two
	// lowercase hex digits.
	TrailerMod256
	// TrailerNone writes nothing after the end marker.
	TrailerNone
)

var trailerNames = map[Trailer]string{
	TrailerPlaceholder: "placeholder",
	TrailerMod256:      "mod256",
	TrailerNone:        "none",
}

func (t Trailer) String() string {
	if s, ok := trailerNames[t]; ok {
		return s
	}
	return fmt.Sprintf("trailer(%d)", int(t))
}

// ParseTrailer accepts the names printed by String.
func ParseTrailer(s string) (Trailer, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range trailerNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trailer %q, expected placeholder, mod256 or none", s)
}

// Width returns the number of trailer characters.
func (t Trailer) Width() int {
	if t == TrailerNone {
		return 0
	}
	return 2
}

const hexDigits = "0123456789abcdef"

func (t Trailer) appendTo(dst []byte, sum byte) []byte {
	switch t {
	case TrailerPlaceholder:
		return append(dst, '0', '0')
	case TrailerMod256:
		return append(dst, hexDigits[sum>>4], hexDigits[sum&0xf])
	}
	return dst
}

func needsEscape(c byte) bool {
	return c == packetStart || c == packetEnd || c == escapeByte
}

// Encoder frames record payloads.
type Encoder struct {
	Trailer Trailer
	// Newline appends '\n' after each packet for line oriented readers.
	Newline bool
}

// AppendPacket frames payload into dst.
func (e Encoder) AppendPacket(dst []byte, payload []byte) []byte {
	dst = append(dst, packetStart)
	start := len(dst)
	for _, c := range payload {
		if needsEscape(c) {
			dst = append(dst, escapeByte, c^escapeXor)
			continue
		}
		dst = append(dst, c)
	}
	sum := checksum(dst[start:])
	dst = append(dst, packetEnd)
	dst = e.Trailer.appendTo(dst, sum)
	if e.Newline {
		dst = append(dst, '\n')
	}
	return dst
}

func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}
