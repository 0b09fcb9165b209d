/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package wire implements the pipe-delimited datagram framing shared by the
// chat server and client: KIND|SEQ|PAYLOAD|CHECKSUM.
package wire

import (
	"errors"
	"strconv"
	"strings"
)

// MaxDatagramSize is the implicit per-datagram ceiling the test harness
// enforces (1500 bytes, including the checksum tail).
const MaxDatagramSize = 1500

// Kind identifies the four packet kinds the framing recognizes.
type Kind string

const (
	KindData  Kind = "data"
	KindAck   Kind = "ack"
	KindStart Kind = "start"
	KindEnd   Kind = "end"
)

// ErrMalformed reports a packet missing fields or carrying a non-integer
// sequence number: a Framing error per the error taxonomy. Callers must
// silently discard the datagram, never surface it to a user.
var ErrMalformed = errors.New("wire: malformed packet")

// ErrChecksumMismatch reports an Integrity error: the packet must be
// silently discarded and the receiver's state left unchanged.
var ErrChecksumMismatch = errors.New("wire: checksum mismatch")

// ErrTooLarge reports a serialized packet exceeding MaxDatagramSize.
var ErrTooLarge = errors.New("wire: packet exceeds maximum datagram size")

// Packet is the wire-level unit: one per datagram.
type Packet struct {
	Kind    Kind
	Seq     uint32
	Payload string
}

// Encode renders p as "<kind>|<seq>|<payload>|<checksum>". It returns
// ErrTooLarge rather than producing a datagram the transport would refuse.
func (p Packet) Encode() (string, error) {
	body := string(p.Kind) + "|" + strconv.FormatUint(uint64(p.Seq), 10) + "|" + p.Payload + "|"
	full := body + Checksum([]byte(body))
	if len(full) > MaxDatagramSize {
		return "", ErrTooLarge
	}
	return full, nil
}

// Decode parses raw into a Packet, verifying its checksum. The checksum
// field is always the last pipe-delimited token: split once from the
// right to recover it, since Payload may itself contain pipes.
func Decode(raw string) (Packet, error) {
	if len(raw) > MaxDatagramSize {
		return Packet{}, ErrTooLarge
	}

	last := strings.LastIndexByte(raw, '|')
	if last < 0 {
		return Packet{}, ErrMalformed
	}

	body := raw[:last+1] // "<kind>|<seq>|<payload>|"
	checksum := raw[last+1:]

	if Checksum([]byte(body)) != checksum {
		return Packet{}, ErrChecksumMismatch
	}

	parts := strings.SplitN(raw[:last], "|", 3)
	if len(parts) != 3 {
		return Packet{}, ErrMalformed
	}

	seq, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Packet{}, ErrMalformed
	}

	return Packet{
		Kind:    Kind(parts[0]),
		Seq:     uint32(seq),
		Payload: parts[2],
	}, nil
}
