// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadTrailer = errors.New("trace record trailer mismatch")
	ErrTruncated  = errors.New("truncated trace record")
)

// Packet is one decoded record.
type Packet struct {
	Payload []byte
	Trailer string
}

// Decoder reads packets written by Encoder. Bytes between packets are
// skipped.
type Decoder struct {
	r       *bufio.Reader
	trailer Trailer
}

func NewDecoder(r io.Reader, trailer Trailer) *Decoder {
	return &Decoder{r: bufio.NewReader(r), trailer: trailer}
}

// Next returns the next packet, or io.EOF at a clean end of stream. A
// packet whose trailer does not verify is returned together with
// ErrBadTrailer so the caller can still show it.
func (d *Decoder) Next() (*Packet, error) {
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == packetStart {
			break
		}
	}

	var (
		payload []byte
		sum     byte
	)
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, eofIsTruncated(err)
		}
		if c == packetEnd {
			break
		}
		sum += c
		if c == escapeByte {
			n, err := d.r.ReadByte()
			if err != nil {
				return nil, eofIsTruncated(err)
			}
			sum += n
			c = n ^ escapeXor
		}
		payload = append(payload, c)
	}

	tr := make([]byte, d.trailer.Width())
	if _, err := io.ReadFull(d.r, tr); err != nil {
		return nil, eofIsTruncated(err)
	}
	p := &Packet{Payload: payload, Trailer: string(tr)}

	want := string(d.trailer.appendTo(nil, sum))
	if p.Trailer != want {
		return p, fmt.Errorf("%w: got %q, want %q", ErrBadTrailer, p.Trailer, want)
	}
	return p, nil
}

func eofIsTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
